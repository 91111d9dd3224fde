package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool // include query variables in spans; development only
	SlowQueryThresh time.Duration
}

// DBTracingPlugin installs otelgorm on a store and annotates its spans with
// the store key and slow query markers
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a new database tracing plugin with the given configuration.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	return &DBTracingPlugin{config: cfg, logger: logger}
}

type queryStartKey struct{}

// Register installs the plugin on the store named store
func (p *DBTracingPlugin) Register(db *gorm.DB, store string) error {
	if !p.config.Enabled {
		return nil
	}

	opts := []otelgorm.Option{
		otelgorm.WithDBName(store),
		otelgorm.WithAttributes(AttrStore.String(store)),
	}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	before := func(db *gorm.DB) {
		if db.Statement.Context != nil {
			db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
		}
	}
	cb := db.Callback()
	for _, err := range []error{
		cb.Create().Before("gorm:create").Register("cnec:query_start:create", before),
		cb.Query().Before("gorm:query").Register("cnec:query_start:query", before),
		cb.Update().Before("gorm:update").Register("cnec:query_start:update", before),
		cb.Delete().Before("gorm:delete").Register("cnec:query_start:delete", before),
		cb.Raw().Before("gorm:raw").Register("cnec:query_start:raw", before),
		cb.Create().After("gorm:create").Register("cnec:slow_query:create", p.afterQuery),
		cb.Query().After("gorm:query").Register("cnec:slow_query:query", p.afterQuery),
		cb.Update().After("gorm:update").Register("cnec:slow_query:update", p.afterQuery),
		cb.Delete().After("gorm:delete").Register("cnec:slow_query:delete", p.afterQuery),
		cb.Raw().After("gorm:raw").Register("cnec:slow_query:raw", p.afterQuery),
	} {
		if err != nil {
			return err
		}
	}

	p.logger.Info("Database tracing enabled",
		zap.String("store", store),
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
	)
	return nil
}

func (p *DBTracingPlugin) afterQuery(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(start); elapsed > p.config.SlowQueryThresh {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		p.logger.Warn("slow query",
			zap.String("table", db.Statement.Table),
			zap.Duration("elapsed", elapsed),
		)
	}
}
