package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type requestDataKey struct{}

const (
	RoleAuthor  = "author"
	RoleLearner = "learner"
	RoleAdmin   = "admin"
)

type RequestData struct {
	TokenString string
	UserID      uuid.UUID
	Role        string
}

// CanAuthor reports whether the caller may mutate training modules.
func (rd *RequestData) CanAuthor() bool {
	if rd == nil {
		return false
	}
	return rd.Role == RoleAuthor || rd.Role == RoleAdmin
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	val := ctx.Value(requestDataKey{})
	if rd, ok := val.(*RequestData); ok {
		return rd
	}
	return nil
}
