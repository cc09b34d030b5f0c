package aggregates

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/trainforge-backend/internal/domain/training"
)

var ScormAttemptAggregateContract = Contract{
	Name:   "Training.ScormAttemptAggregate",
	Tables: []string{"scorm_attempt", "scene_progress"},
	Notes:  "Owns the learner+scene attempt row and the scene progress row derived from it. Last commit wins.",
}

// ScormAttemptAggregate persists runtime commits.
type ScormAttemptAggregate interface {
	Aggregate

	// LoadAttempt returns (nil, nil) when the learner never opened the scene.
	LoadAttempt(ctx context.Context, learnerID, sceneID uuid.UUID) (*training.ScormAttempt, error)

	// SaveAttempt upserts the attempt and its scene progress atomically.
	SaveAttempt(ctx context.Context, attempt *training.ScormAttempt, progress *training.SceneProgress) error
}
