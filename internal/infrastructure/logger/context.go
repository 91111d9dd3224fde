package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	requestIDKey contextKey = "request_id"
	regionKey    contextKey = "region"
	actorKey     contextKey = "actor"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext retrieves the logger from context, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// WithRequestID stores the request id for L to pick up
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithRegion stores the store key the request operates on
func WithRegion(ctx context.Context, region string) context.Context {
	return context.WithValue(ctx, regionKey, region)
}

// WithActor stores who performed the request (admin subject or company id)
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

func GetRegion(ctx context.Context) string {
	v, _ := ctx.Value(regionKey).(string)
	return v
}

func GetActor(ctx context.Context) string {
	v, _ := ctx.Value(actorKey).(string)
	return v
}

// L returns base enriched with trace, request, region and actor fields
// found in ctx. If base is nil the logger stored in ctx is used.
//
//	logger.L(ctx, s.logger).Info("campaign approved", zap.String("campaign_id", id))
func L(ctx context.Context, base *zap.Logger) *zap.Logger {
	l := base
	if l == nil {
		l = FromContext(ctx)
	}

	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		l = l.With(
			zap.String("trace_id", spanCtx.TraceID().String()),
			zap.String("span_id", spanCtx.SpanID().String()),
		)
	}
	if v := GetRequestID(ctx); v != "" {
		l = l.With(zap.String("request_id", v))
	}
	if v := GetRegion(ctx); v != "" {
		l = l.With(zap.String("region", v))
	}
	if v := GetActor(ctx); v != "" {
		l = l.With(zap.String("actor", v))
	}
	return l
}
