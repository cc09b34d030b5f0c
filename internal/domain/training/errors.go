package training

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrModuleNotFound  = errors.New("module not found")
	ErrSceneNotFound   = errors.New("scene not found")
	ErrAttemptNotFound = errors.New("scorm attempt not found")
)

// Issue codes reported by publish validation.
const (
	IssueMissingTitle    = "missing_title"
	IssueNoScenes        = "no_scenes"
	IssueSceneIncomplete = "scene_incomplete"
	IssueInvalidField    = "invalid_field"
	IssueBrokenOrder     = "broken_order"
)

// Issue is one reason a module or scene failed validation.
type Issue struct {
	Code    string     `json:"code"`
	SceneID *uuid.UUID `json:"scene_id,omitempty"`
	Field   string     `json:"field,omitempty"`
	Message string     `json:"message"`
}

func (i Issue) String() string {
	if i.SceneID != nil {
		return fmt.Sprintf("scene %s: %s", i.SceneID.String(), i.Message)
	}
	return i.Message
}

// ValidationError blocks publish and is shown to the author inline.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Issues) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		parts = append(parts, is.String())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasCode reports whether any issue carries code.
func (e *ValidationError) HasCode(code string) bool {
	if e == nil {
		return false
	}
	for _, is := range e.Issues {
		if is.Code == code {
			return true
		}
	}
	return false
}

func NewValidationError(issues ...Issue) *ValidationError {
	return &ValidationError{Issues: issues}
}

type UploadReason string

const (
	UploadWrongType   UploadReason = "wrong_type"
	UploadTooLarge    UploadReason = "too_large"
	UploadNotAccepted UploadReason = "not_accepted"
	UploadTransport   UploadReason = "transport"
	UploadCancelled   UploadReason = "cancelled"
	UploadInvalid     UploadReason = "invalid_package"
)

// UploadError is returned before any scene field changes.
type UploadError struct {
	Reason   UploadReason
	Filename string
	Message  string
	Cause    error
}

func (e *UploadError) Error() string {
	if e == nil {
		return "upload failed"
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if msg == "" {
		msg = string(e.Reason)
	}
	if e.Filename != "" {
		return fmt.Sprintf("upload %q rejected (%s): %s", e.Filename, e.Reason, msg)
	}
	return fmt.Sprintf("upload rejected (%s): %s", e.Reason, msg)
}

func (e *UploadError) Unwrap() error { return e.Cause }

// PermissionError means the store refused a write for authorization reasons.
// The caller should seek elevated access rather than retry.
type PermissionError struct {
	Op    string
	Cause error
}

func (e *PermissionError) Error() string {
	if e == nil {
		return "permission denied"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: permission denied: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("%s: permission denied", e.Op)
}

func (e *PermissionError) Unwrap() error { return e.Cause }

// PersistenceError means the store was unreachable or rejected the write.
type PersistenceError struct {
	Op        string
	Retryable bool
	Cause     error
}

func (e *PersistenceError) Error() string {
	if e == nil {
		return "persistence failed"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: persistence failed: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("%s: persistence failed", e.Op)
}

func (e *PersistenceError) Unwrap() error { return e.Cause }
