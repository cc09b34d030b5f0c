package aggregates

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/trainforge-backend/internal/domain/training"
)

var TrainingModuleAggregateContract = Contract{
	Name:   "Training.ModuleAggregate",
	Tables: []string{"training_module", "training_scene", "scorm_attempt", "scene_progress"},
	Notes:  "Owns the module row and its scene rows. Scenes are written after the module in the same transaction. Deletes cascade to attempts and progress.",
}

// TrainingModuleAggregate owns module graph persistence.
//
// Write method failures should return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeConflict, CodePermissionDenied, CodeRetryable, CodeInternal.
type TrainingModuleAggregate interface {
	Aggregate

	// LoadModule reads the module with its scenes in order.
	LoadModule(ctx context.Context, id uuid.UUID) (*training.TrainingModule, error)

	// SaveModule upserts the module row, upserts every scene and deletes scenes no longer
	// in the graph. The stored status is never changed by a save of an existing module.
	SaveModule(ctx context.Context, m *training.TrainingModule) error

	// TransitionStatus is a compare-and-set on the module status.
	TransitionStatus(ctx context.Context, id uuid.UUID, from []training.ModuleStatus, to training.ModuleStatus) (bool, error)

	// DeleteModule removes the module and cascades to scenes, attempts and progress.
	DeleteModule(ctx context.Context, id uuid.UUID) error
}
