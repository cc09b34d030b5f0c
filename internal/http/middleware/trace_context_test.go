package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/trainforge-backend/internal/platform/ctxutil"
)

func TestAttachTraceContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())

	var got *ctxutil.TraceData
	r.GET("/api/modules/:id/scenes/:sceneId", func(c *gin.Context) {
		got = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusOK)
	})

	moduleID, sceneID := uuid.New(), uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/modules/"+moduleID.String()+"/scenes/"+sceneID.String(), nil)
	req.Header.Set(headerRequestID, "req-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if got == nil {
		t.Fatalf("trace data missing")
	}
	if got.RequestID != "req-1" || rec.Header().Get(headerRequestID) != "req-1" {
		t.Fatalf("request id: want=req-1 got=%q header=%q", got.RequestID, rec.Header().Get(headerRequestID))
	}
	if got.TraceID == "" || rec.Header().Get(headerTraceID) != got.TraceID {
		t.Fatalf("trace id: got=%q header=%q", got.TraceID, rec.Header().Get(headerTraceID))
	}
	if got.ModuleID != moduleID || got.SceneID != sceneID {
		t.Fatalf("route ids: want=%s/%s got=%s/%s", moduleID, sceneID, got.ModuleID, got.SceneID)
	}
	if len(got.LogFields()) != 8 {
		t.Fatalf("log fields: want=8 got=%d", len(got.LogFields()))
	}
}

func TestAttachTraceContextIgnoresNonUUIDParams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	var got *ctxutil.TraceData
	r.GET("/api/scorm/sessions/:token", func(c *gin.Context) {
		got = ctxutil.GetTraceData(c.Request.Context())
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/scorm/sessions/abc", nil))
	if got == nil || got.ModuleID != uuid.Nil || got.SceneID != uuid.Nil {
		t.Fatalf("unexpected trace data: %+v", got)
	}
}
