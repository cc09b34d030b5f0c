package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/trainforge-backend/internal/data/repos"
	domainagg "github.com/yungbote/trainforge-backend/internal/domain/aggregates"
	"github.com/yungbote/trainforge-backend/internal/domain/training"
	"github.com/yungbote/trainforge-backend/internal/platform/dbctx"
)

type ScormAttemptAggregateDeps struct {
	Base BaseDeps

	Scenes   repos.SceneRepo
	Attempts repos.ScormAttemptRepo
	Progress repos.SceneProgressRepo
}

type scormAttemptAggregate struct {
	deps ScormAttemptAggregateDeps
}

func NewScormAttemptAggregate(deps ScormAttemptAggregateDeps) domainagg.ScormAttemptAggregate {
	deps.Base = deps.Base.withDefaults()
	return &scormAttemptAggregate{deps: deps}
}

func (a *scormAttemptAggregate) Contract() domainagg.Contract {
	return domainagg.ScormAttemptAggregateContract
}

func (a *scormAttemptAggregate) LoadAttempt(ctx context.Context, learnerID, sceneID uuid.UUID) (*training.ScormAttempt, error) {
	const op = "training.scorm_attempt.load"
	if learnerID == uuid.Nil || sceneID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "learner_id and scene_id are required", nil)
	}
	row, err := a.deps.Attempts.GetByLearnerScene(dbctx.Context{Ctx: ctx}, learnerID, sceneID)
	if err != nil {
		return nil, TrainingError(op, MapError(op, err))
	}
	return row, nil
}

func (a *scormAttemptAggregate) SaveAttempt(ctx context.Context, attempt *training.ScormAttempt, progress *training.SceneProgress) error {
	const op = "training.scorm_attempt.save"
	if attempt == nil || attempt.LearnerID == uuid.Nil || attempt.SceneID == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, op, "attempt with learner_id and scene_id is required", nil)
	}
	if progress != nil && (progress.LearnerID != attempt.LearnerID || progress.SceneID != attempt.SceneID) {
		return domainagg.NewError(domainagg.CodeInvariantViolation, op, "progress must belong to the attempt's learner and scene", nil)
	}

	now := time.Now().UTC()
	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = now
	}
	attempt.UpdatedAt = now

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		scene, err := a.deps.Scenes.GetByID(dbc, attempt.SceneID)
		if err != nil {
			return err
		}
		if scene == nil {
			return domainagg.NewError(domainagg.CodeNotFound, op, "scene not found", training.ErrSceneNotFound)
		}
		if attempt.ModuleID == uuid.Nil {
			attempt.ModuleID = scene.ModuleID
		}
		if attempt.ModuleID != scene.ModuleID {
			return InvariantError("attempt module does not own the scene")
		}
		if err := a.deps.Attempts.Upsert(dbc, attempt); err != nil {
			return err
		}
		if progress == nil {
			return nil
		}
		if progress.ID == uuid.Nil {
			progress.ID = uuid.New()
		}
		progress.ModuleID = scene.ModuleID
		if progress.CreatedAt.IsZero() {
			progress.CreatedAt = now
		}
		progress.UpdatedAt = now
		if progress.LastAccessedAt.IsZero() {
			progress.LastAccessedAt = now
		}
		return a.deps.Progress.Upsert(dbc, progress)
	})
	return TrainingError(op, err)
}
