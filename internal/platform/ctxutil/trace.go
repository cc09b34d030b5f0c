package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type traceDataKey struct{}

// TraceData correlates log lines of one request. ModuleID and SceneID are set when the
// route names them.
type TraceData struct {
	TraceID   string
	RequestID string
	ModuleID  uuid.UUID
	SceneID   uuid.UUID
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if td, ok := ctx.Value(traceDataKey{}).(*TraceData); ok {
		return td
	}
	return nil
}

// LogFields flattens td into logger key/value pairs, skipping empty values.
func (td *TraceData) LogFields() []interface{} {
	if td == nil {
		return nil
	}
	var out []interface{}
	if td.TraceID != "" {
		out = append(out, "trace_id", td.TraceID)
	}
	if td.RequestID != "" {
		out = append(out, "request_id", td.RequestID)
	}
	if td.ModuleID != uuid.Nil {
		out = append(out, "module_id", td.ModuleID.String())
	}
	if td.SceneID != uuid.Nil {
		out = append(out, "scene_id", td.SceneID.String())
	}
	return out
}
