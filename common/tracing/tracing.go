// Package tracing extracts the per-request trace ID used to correlate log
// lines, without depending on any persisted trace record.
package tracing

import (
	gmw "github.com/Laisky/gin-middlewares/v7"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// GetTraceID extracts the per-request trace ID gin-middlewares assigned to c.
func GetTraceID(c *gin.Context) string {
	traceID, err := gmw.TraceID(c)
	if err != nil {
		gmw.GetLogger(c).Warn("failed to get trace ID from gin-middlewares", zap.Error(err))
		return ""
	}
	return traceID.String()
}

// GetOpenTelemetryTraceID extracts the OpenTelemetry trace ID from c's
// request context when a span is active. Returns "" when tracing is disabled
// or no span is active.
func GetOpenTelemetryTraceID(c *gin.Context) string {
	spanCtx := oteltrace.SpanContextFromContext(gmw.Ctx(c))
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// WithTraceID prepends a trace_id field to fields, when one is available.
func WithTraceID(c *gin.Context, fields ...zap.Field) []zap.Field {
	traceID := GetTraceID(c)
	if traceID == "" {
		return fields
	}
	return append([]zap.Field{zap.String("trace_id", traceID)}, fields...)
}
