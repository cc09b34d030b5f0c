package aggregates

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/trainforge-backend/internal/domain/aggregates"
	"github.com/yungbote/trainforge-backend/internal/domain/training"
)

// Tagged failures raised inside a write closure. MapError leaves them as they are.
func ValidationError(msg string) error { return tagged(domainagg.CodeValidation, msg) }
func InvariantError(msg string) error  { return tagged(domainagg.CodeInvariantViolation, msg) }
func ConflictError(msg string) error   { return tagged(domainagg.CodeConflict, msg) }
func RetryableError(msg string) error  { return tagged(domainagg.CodeRetryable, msg) }

func tagged(code domainagg.ErrorCode, msg string) error {
	return domainagg.NewError(code, "", strings.TrimSpace(msg), nil)
}

var pgErrorCodes = map[string]domainagg.ErrorCode{
	"23505": domainagg.CodeConflict,           // unique_violation
	"23503": domainagg.CodePreconditionFailed, // foreign_key_violation
	"40001": domainagg.CodeRetryable,          // serialization_failure
	"40P01": domainagg.CodeRetryable,          // deadlock_detected
	"55P03": domainagg.CodeRetryable,          // lock_not_available
	"42501": domainagg.CodePermissionDenied,   // insufficient_privilege
	"08000": domainagg.CodeRetryable,
	"08003": domainagg.CodeRetryable,
	"08006": domainagg.CodeRetryable,
	"57P01": domainagg.CodeRetryable, // admin_shutdown
}

// sqlite and wrapped driver errors only carry text.
var messageCodes = []struct {
	needle string
	code   domainagg.ErrorCode
}{
	{"duplicate key", domainagg.CodeConflict},
	{"unique constraint", domainagg.CodeConflict},
	{"foreign key constraint", domainagg.CodePreconditionFailed},
	{"permission denied", domainagg.CodePermissionDenied},
	{"readonly database", domainagg.CodePermissionDenied},
	{"database is locked", domainagg.CodeRetryable},
	{"deadlock", domainagg.CodeRetryable},
	{"serialization", domainagg.CodeRetryable},
	{"timeout", domainagg.CodeRetryable},
	{"temporar", domainagg.CodeRetryable},
}

// MapError classifies a store failure under op. Errors that already carry a code are
// returned unchanged.
func MapError(op string, err error) error {
	if err == nil || domainagg.CodeOf(err) != "" {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domainagg.Wrap(domainagg.CodeNotFound, op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domainagg.Wrap(domainagg.CodeRetryable, op, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if code, ok := pgErrorCodes[strings.TrimSpace(pgErr.Code)]; ok {
			return domainagg.Wrap(code, op, err)
		}
	}
	msg := strings.ToLower(err.Error())
	for _, m := range messageCodes {
		if strings.Contains(msg, m.needle) {
			return domainagg.Wrap(m.code, op, err)
		}
	}
	return domainagg.Wrap(domainagg.CodeInternal, op, err)
}

// TrainingError translates an aggregate failure into the error types the training
// modules branch on. Not-found errors pass through unchanged.
func TrainingError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch domainagg.CodeOf(err) {
	case domainagg.CodeNotFound:
		return err
	case domainagg.CodePermissionDenied:
		return &training.PermissionError{Op: op, Cause: err}
	case domainagg.CodeRetryable, domainagg.CodeInternal, "":
		return &training.PersistenceError{Op: op, Retryable: true, Cause: err}
	default:
		return &training.PersistenceError{Op: op, Retryable: false, Cause: err}
	}
}
