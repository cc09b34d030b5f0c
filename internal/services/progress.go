package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/trainforge-backend/internal/data/repos"
	"github.com/yungbote/trainforge-backend/internal/domain/training"
	"github.com/yungbote/trainforge-backend/internal/modules/training/completion"
	"github.com/yungbote/trainforge-backend/internal/platform/dbctx"
	"github.com/yungbote/trainforge-backend/internal/platform/logger"
)

type ProgressService interface {
	// RecordSceneProgress stores a learner event for a non-SCORM scene. SCORM scenes
	// report through their runtime session instead.
	RecordSceneProgress(ctx context.Context, actor Actor, moduleID, sceneID uuid.UUID, in SceneProgressInput) (*training.SceneProgress, error)
	GetProgress(ctx context.Context, actor Actor, moduleID uuid.UUID) (*ModuleProgress, error)
	// LearnerResults evaluates every learner with progress on the module. Editors only.
	LearnerResults(ctx context.Context, actor Actor, moduleID uuid.UUID) ([]LearnerResult, error)
}

type SceneProgressInput struct {
	Completed        bool     `json:"completed"`
	Score            *float64 `json:"score"`
	TimeSpentSeconds int64    `json:"time_spent_seconds"`
}

type ModuleProgress struct {
	ModuleID   uuid.UUID                 `json:"module_id"`
	LearnerID  uuid.UUID                 `json:"learner_id"`
	Scenes     []*training.SceneProgress `json:"scenes"`
	Completion completion.Result         `json:"completion"`
}

type LearnerResult struct {
	LearnerID  uuid.UUID         `json:"learner_id"`
	Completion completion.Result `json:"completion"`
}

type progressService struct {
	db        *gorm.DB
	log       *logger.Logger
	training  TrainingService
	progress  repos.SceneProgressRepo
	evaluator *completion.Evaluator
	now       func() time.Time
}

func NewProgressService(db *gorm.DB, baseLog *logger.Logger, trainingSvc TrainingService, progress repos.SceneProgressRepo, evaluator *completion.Evaluator) ProgressService {
	return &progressService{
		db:        db,
		log:       baseLog.With("service", "ProgressService"),
		training:  trainingSvc,
		progress:  progress,
		evaluator: evaluator,
		now:       time.Now,
	}
}

func (s *progressService) RecordSceneProgress(ctx context.Context, actor Actor, moduleID, sceneID uuid.UUID, in SceneProgressInput) (*training.SceneProgress, error) {
	m, err := s.training.PublishedModule(ctx, actor, moduleID)
	if err != nil {
		return nil, err
	}
	idx := m.SceneIndex(sceneID)
	if idx < 0 {
		return nil, training.ErrSceneNotFound
	}
	scene := m.Scenes[idx]
	if scene.SceneType == training.SceneTypeScorm {
		return nil, training.NewValidationError(training.Issue{
			Code: training.IssueInvalidField, SceneID: &scene.ID, Field: "scene_type",
			Message: "scorm scenes record progress through their runtime session",
		})
	}
	if in.Score != nil && (*in.Score < 0 || *in.Score > 100) {
		return nil, training.NewValidationError(training.Issue{
			Code: training.IssueInvalidField, SceneID: &scene.ID, Field: "score", Message: "score must be between 0 and 100",
		})
	}
	if in.TimeSpentSeconds < 0 {
		in.TimeSpentSeconds = 0
	}

	var out *training.SceneProgress
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		row, err := s.progress.GetByLearnerScene(dbc, actor.UserID, sceneID)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		if row == nil {
			row = &training.SceneProgress{
				ID:        uuid.New(),
				LearnerID: actor.UserID,
				SceneID:   sceneID,
				ModuleID:  moduleID,
				CreatedAt: now,
			}
		}
		mergeProgress(row, scene, in)
		row.LastAccessedAt = now
		row.UpdatedAt = now
		if err := s.progress.Upsert(dbc, row); err != nil {
			return err
		}
		out = row
		return nil
	})
	if err != nil {
		s.log.Error("RecordSceneProgress failed", "module_id", moduleID, "scene_id", sceneID, "error", err)
		return nil, &training.PersistenceError{Op: "record scene progress", Retryable: true, Cause: err}
	}
	return out, nil
}

// mergeProgress folds one event into the row. Completion is sticky, time accumulates
// and the latest score replaces the previous one.
func mergeProgress(row *training.SceneProgress, scene training.TrainingScene, in SceneProgressInput) {
	row.Attempts++
	row.TimeSpentSeconds += in.TimeSpentSeconds
	if in.Score != nil {
		v := *in.Score
		row.Score = &v
	}
	row.Completed = row.Completed || in.Completed

	switch {
	case scene.SceneType == training.SceneTypeQuiz && row.Score != nil && scene.Metadata.Quiz != nil:
		if *row.Score >= float64(scene.Metadata.Quiz.PassingScore) {
			row.Status = training.ProgressPassed
			row.Completed = true
		} else {
			row.Status = training.ProgressFailed
		}
	case row.Completed:
		row.Status = training.ProgressCompleted
	default:
		row.Status = training.ProgressInProgress
	}
}

func (s *progressService) GetProgress(ctx context.Context, actor Actor, moduleID uuid.UUID) (*ModuleProgress, error) {
	var (
		m    *training.TrainingModule
		rows []*training.SceneProgress
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		m, err = s.training.PublishedModule(gctx, actor, moduleID)
		return err
	})
	g.Go(func() error {
		var err error
		rows, err = s.progress.ListByLearnerModule(dbctx.Context{Ctx: gctx}, actor.UserID, moduleID)
		if err != nil {
			return fmt.Errorf("list progress: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &ModuleProgress{
		ModuleID:   moduleID,
		LearnerID:  actor.UserID,
		Scenes:     rows,
		Completion: s.evaluate(m, actor.UserID, rows),
	}, nil
}

func (s *progressService) LearnerResults(ctx context.Context, actor Actor, moduleID uuid.UUID) ([]LearnerResult, error) {
	var (
		m    *training.TrainingModule
		rows []*training.SceneProgress
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		m, err = s.training.PublishedModule(gctx, actor, moduleID)
		if err == nil && !actor.canEdit(m) {
			err = ErrForbidden
		}
		return err
	})
	g.Go(func() error {
		var err error
		rows, err = s.progress.ListByModule(dbctx.Context{Ctx: gctx}, moduleID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byLearner := map[uuid.UUID][]*training.SceneProgress{}
	for _, r := range rows {
		byLearner[r.LearnerID] = append(byLearner[r.LearnerID], r)
	}
	out := make([]LearnerResult, 0, len(byLearner))
	for learnerID, lr := range byLearner {
		out = append(out, LearnerResult{LearnerID: learnerID, Completion: s.evaluate(m, learnerID, lr)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LearnerID.String() < out[j].LearnerID.String() })
	return out, nil
}

func (s *progressService) evaluate(m *training.TrainingModule, learnerID uuid.UUID, rows []*training.SceneProgress) completion.Result {
	flat := make([]training.SceneProgress, 0, len(rows))
	for _, r := range rows {
		if r != nil {
			flat = append(flat, *r)
		}
	}
	return s.evaluator.Evaluate(m, training.ProgressFromRows(learnerID, m.ID, flat))
}
