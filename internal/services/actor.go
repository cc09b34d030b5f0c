package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/yungbote/trainforge-backend/internal/domain/training"
	"github.com/yungbote/trainforge-backend/internal/platform/ctxutil"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

// Actor is the caller a service acts for.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

// ActorFromContext reads the authenticated caller placed by the auth middleware.
func ActorFromContext(ctx context.Context) (Actor, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return Actor{}, ErrUnauthenticated
	}
	return Actor{UserID: rd.UserID, Role: rd.Role}, nil
}

func (a Actor) IsAdmin() bool { return a.Role == ctxutil.RoleAdmin }

func (a Actor) CanAuthor() bool {
	return a.Role == ctxutil.RoleAuthor || a.Role == ctxutil.RoleAdmin
}

// canEdit allows the owning author and admins.
func (a Actor) canEdit(m *training.TrainingModule) bool {
	if m == nil || !a.CanAuthor() {
		return false
	}
	return a.IsAdmin() || m.OwnerID == a.UserID
}

// canView allows editors and, for published modules, everyone signed in.
func (a Actor) canView(m *training.TrainingModule) bool {
	if m == nil {
		return false
	}
	return a.canEdit(m) || m.Status == training.ModuleStatusPublished
}
