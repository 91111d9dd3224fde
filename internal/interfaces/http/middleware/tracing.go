package middleware

import (
	"net/http"

	"github.com/cnec/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracing starts the otelgin server span. It is a pass-through when
// tracing is disabled.
func Tracing(serviceName string, enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return otelgin.Middleware(serviceName)
}

// SpanEnricher must run after Tracing. Once the handler returns it adds the
// request id, caller and region to the server span and marks 5xx spans as
// errors.
func SpanEnricher() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}
		if id := GetRequestID(c); id != "" {
			span.SetAttributes(attribute.String("request_id", id))
		}
		if p, ok := GetPrincipal(c); ok {
			span.SetAttributes(
				attribute.String("enduser.role", string(p.Role)),
				attribute.String("enduser.id", p.Subject),
			)
		}
		if r := c.GetString(RegionKey); r != "" {
			span.SetAttributes(telemetry.AttrRegion.String(r))
		}
		if status := c.Writer.Status(); status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}

// RegionKey is the gin key handlers store the resolved region under
const RegionKey = "region"
