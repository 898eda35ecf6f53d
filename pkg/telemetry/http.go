package telemetry

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// GinMiddleware opens a server span per request, continuing an incoming W3C trace
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ctx, span := StartSpan(ctx, fmt.Sprintf("%s %s", c.Request.Method, route),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(MethodAttr(c.Request.Method), PathAttr(route)),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(StatusCodeAttr(status))
		if status >= 500 {
			span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
		}
	}
}

// InFlight tracks concurrently served requests on m.ActiveRequests
func InFlight(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil || m.ActiveRequests == nil {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		m.ActiveRequests.Inc(ctx)
		defer m.ActiveRequests.Dec(ctx)
		c.Next()
	}
}
