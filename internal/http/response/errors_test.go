package response

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/trainforge-backend/internal/domain/aggregates"
	"github.com/yungbote/trainforge-backend/internal/domain/training"
	"github.com/yungbote/trainforge-backend/internal/modules/training/authoring"
	"github.com/yungbote/trainforge-backend/internal/modules/training/scorm"
	"github.com/yungbote/trainforge-backend/internal/platform/apierr"
	"github.com/yungbote/trainforge-backend/internal/services"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"api error", apierr.New(http.StatusTeapot, "teapot", errors.New("x")), http.StatusTeapot, "teapot"},
		{"unauthenticated", services.ErrUnauthenticated, http.StatusUnauthorized, "unauthorized"},
		{"forbidden", fmt.Errorf("publish: %w", services.ErrForbidden), http.StatusForbidden, "forbidden"},
		{"permission", &training.PermissionError{}, http.StatusForbidden, "forbidden"},
		{"validation", training.NewValidationError(training.Issue{Code: training.IssueNoScenes}), http.StatusUnprocessableEntity, "validation_failed"},
		{"too large", &training.UploadError{Reason: training.UploadTooLarge}, http.StatusRequestEntityTooLarge, "upload_too_large"},
		{"wrong type", &training.UploadError{Reason: training.UploadWrongType}, http.StatusBadRequest, "upload_wrong_type"},
		{"transport", &training.UploadError{Reason: training.UploadTransport}, http.StatusBadGateway, "upload_transport"},
		{"module missing", training.ErrModuleNotFound, http.StatusNotFound, "module_not_found"},
		{"session missing", services.ErrSessionNotFound, http.StatusNotFound, "session_not_found"},
		{"save busy", authoring.ErrSaveInProgress, http.StatusConflict, "save_in_progress"},
		{"scene type", fmt.Errorf("%w %q", training.ErrUnknownSceneType, "x"), http.StatusBadRequest, "bad_request"},
		{"scorm method", scorm.ErrUnknownMethod, http.StatusBadRequest, "bad_request"},
		{"retryable store", &training.PersistenceError{Op: "save", Retryable: true}, http.StatusServiceUnavailable, "persistence_unavailable"},
		{"store", &training.PersistenceError{Op: "save"}, http.StatusInternalServerError, "persistence_failed"},
		{"deadline", context.DeadlineExceeded, http.StatusServiceUnavailable, "timeout"},
		{"aggregate conflict", domainagg.NewError(domainagg.CodeConflict, "op", "stale", nil), http.StatusConflict, "conflict"},
		{"aggregate not found", domainagg.NewError(domainagg.CodeNotFound, "op", "gone", nil), http.StatusNotFound, "not_found"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, code := StatusFor(tc.err)
			if status != tc.status || code != tc.code {
				t.Fatalf("want=%d/%s got=%d/%s", tc.status, tc.code, status, code)
			}
		})
	}
}

func TestRespondServiceErrorHidesInternals(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	RespondServiceError(c, errors.New("pq: password authentication failed for user trainforge"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: want=%d got=%d", http.StatusInternalServerError, rec.Code)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("internal message leaked: %s", rec.Body.String())
	}
	if len(c.Errors) != 1 {
		t.Fatalf("gin errors: want=1 got=%d", len(c.Errors))
	}
}
