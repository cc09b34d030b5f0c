package aggregates

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a store failure so callers can pick a response without
// inspecting driver errors.
type ErrorCode string

const (
	CodeValidation         ErrorCode = "validation"
	CodeNotFound           ErrorCode = "not_found"
	CodeConflict           ErrorCode = "conflict"
	CodeInvariantViolation ErrorCode = "invariant_violation"
	CodePreconditionFailed ErrorCode = "precondition_failed"
	CodeRetryable          ErrorCode = "retryable"
	CodePermissionDenied   ErrorCode = "permission_denied"
	CodeInternal           ErrorCode = "internal"
)

// Retryable reports whether the same write may succeed when run again.
func (c ErrorCode) Retryable() bool { return c == CodeRetryable }

type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var head string
	switch {
	case e.Op != "" && e.Message != "":
		head = e.Op + ": " + e.Message
	case e.Op != "":
		head = e.Op
	default:
		head = e.Message
	}
	if head == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s (%s)", head, e.Code)
}

func (e *Error) Unwrap() error { return e.Cause }

func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{Code: code, Op: op, Message: message, Cause: cause}
}

// Wrap tags err with code, keeping err as the cause.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Op: op, Message: err.Error(), Cause: err}
}

func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// CodeOf returns the outermost aggregate code on err, or "" when it carries none.
func CodeOf(err error) ErrorCode {
	var aggErr *Error
	if errors.As(err, &aggErr) {
		return aggErr.Code
	}
	return ""
}
