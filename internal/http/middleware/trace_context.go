package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/trainforge-backend/internal/platform/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"
)

// AttachTraceContext stamps every request with a trace id and a request id and echoes
// both in the response headers. An active span's trace id wins over the inbound header.
// Module and scene route params are recorded on the span and in the trace data.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		span := trace.SpanFromContext(ctx)

		td := &ctxutil.TraceData{RequestID: strings.TrimSpace(c.GetHeader(headerRequestID))}
		if td.RequestID == "" {
			td.RequestID = uuid.NewString()
		}
		if sc := span.SpanContext(); sc.HasTraceID() {
			td.TraceID = sc.TraceID().String()
		} else if td.TraceID = strings.TrimSpace(c.GetHeader(headerTraceID)); td.TraceID == "" {
			td.TraceID = uuid.NewString()
		}
		if id, err := uuid.Parse(c.Param("id")); err == nil {
			td.ModuleID = id
			span.SetAttributes(attribute.String("trainforge.module_id", id.String()))
		}
		if id, err := uuid.Parse(c.Param("sceneId")); err == nil {
			td.SceneID = id
			span.SetAttributes(attribute.String("trainforge.scene_id", id.String()))
		}

		c.Request = c.Request.WithContext(ctxutil.WithTraceData(ctx, td))
		c.Writer.Header().Set(headerTraceID, td.TraceID)
		c.Writer.Header().Set(headerRequestID, td.RequestID)
		c.Next()
	}
}
