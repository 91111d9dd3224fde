package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type tracedRow struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func openTracedDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedRow{}))
	return db
}

func TestDBTracingPlugin_Disabled(t *testing.T) {
	db := openTracedDB(t)
	p := NewDBTracingPlugin(DBTracingConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, p.Register(db, "korea"))
	assert.Nil(t, db.Callback().Query().Get("cnec:slow_query:query"))
}

func TestDBTracingPlugin_RecordsStoreSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	Install(provider)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	db := openTracedDB(t)
	p := NewDBTracingPlugin(DBTracingConfig{Enabled: true}, zap.NewNop())
	require.NoError(t, p.Register(db, "korea"))
	assert.NotNil(t, db.Callback().Query().Get("cnec:slow_query:query"))

	ctx, parent := provider.Tracer("test").Start(context.Background(), "request")
	require.NoError(t, db.WithContext(ctx).Create(&tracedRow{Name: "a"}).Error)
	var rows []tracedRow
	require.NoError(t, db.WithContext(ctx).Find(&rows).Error)
	parent.End()

	var dbSpans int
	for _, s := range recorder.Ended() {
		for _, kv := range s.Attributes() {
			if kv.Key == AttrStore && kv.Value.AsString() == "korea" {
				dbSpans++
			}
		}
	}
	assert.GreaterOrEqual(t, dbSpans, 2)
}
