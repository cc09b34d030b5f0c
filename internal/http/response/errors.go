package response

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/trainforge-backend/internal/domain/aggregates"
	"github.com/yungbote/trainforge-backend/internal/domain/training"
	"github.com/yungbote/trainforge-backend/internal/modules/training/authoring"
	"github.com/yungbote/trainforge-backend/internal/modules/training/scorm"
	"github.com/yungbote/trainforge-backend/internal/platform/apierr"
	"github.com/yungbote/trainforge-backend/internal/services"
)

// StatusFor maps a service error onto an HTTP status and a stable code.
func StatusFor(err error) (int, string) {
	var (
		ae  *apierr.Error
		ve  *training.ValidationError
		ue  *training.UploadError
		pe  *training.PermissionError
		per *training.PersistenceError
		spe *scorm.ProtocolError
	)
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.As(err, &ae):
		return ae.Status, ae.Code
	case errors.Is(err, services.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, services.ErrForbidden), errors.As(err, &pe):
		return http.StatusForbidden, "forbidden"
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity, "validation_failed"
	case errors.As(err, &ue):
		switch ue.Reason {
		case training.UploadTooLarge:
			return http.StatusRequestEntityTooLarge, "upload_too_large"
		case training.UploadTransport:
			return http.StatusBadGateway, "upload_transport"
		default:
			return http.StatusBadRequest, "upload_" + string(ue.Reason)
		}
	case errors.Is(err, training.ErrModuleNotFound):
		return http.StatusNotFound, "module_not_found"
	case errors.Is(err, training.ErrSceneNotFound):
		return http.StatusNotFound, "scene_not_found"
	case errors.Is(err, training.ErrAttemptNotFound):
		return http.StatusNotFound, "attempt_not_found"
	case errors.Is(err, services.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, authoring.ErrSaveInProgress):
		return http.StatusConflict, "save_in_progress"
	case errors.Is(err, authoring.ErrStatusConflict):
		return http.StatusConflict, "status_conflict"
	case errors.Is(err, training.ErrUnknownSceneType),
		errors.Is(err, scorm.ErrUnknownMethod),
		errors.Is(err, scorm.ErrNotScormScene),
		errors.Is(err, scorm.ErrNoPackage),
		errors.Is(err, authoring.ErrUnknownTarget),
		errors.Is(err, authoring.ErrImmutableField),
		errors.As(err, &spe):
		return http.StatusBadRequest, "bad_request"
	case errors.As(err, &per):
		if per.Retryable {
			return http.StatusServiceUnavailable, "persistence_unavailable"
		}
		return http.StatusInternalServerError, "persistence_failed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "timeout"
	}
	switch domainagg.CodeOf(err) {
	case domainagg.CodeNotFound:
		return http.StatusNotFound, "not_found"
	case domainagg.CodeConflict:
		return http.StatusConflict, "conflict"
	case domainagg.CodeValidation, domainagg.CodeInvariantViolation, domainagg.CodePreconditionFailed:
		return http.StatusUnprocessableEntity, "validation_failed"
	case domainagg.CodePermissionDenied:
		return http.StatusForbidden, "forbidden"
	case domainagg.CodeRetryable:
		return http.StatusServiceUnavailable, "retryable"
	}
	return http.StatusInternalServerError, "internal"
}

// RespondServiceError writes err with the status StatusFor picks. Validation issues
// travel in details so the editor can point at the offending scene.
func RespondServiceError(c *gin.Context, err error) {
	status, code := StatusFor(err)
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	if status >= http.StatusInternalServerError {
		// store internals stay out of the response body
		msg = http.StatusText(status)
	}
	body := APIError{Message: msg, Code: code}
	var ve *training.ValidationError
	if errors.As(err, &ve) {
		body.Details = ve.Issues
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: body})
}
