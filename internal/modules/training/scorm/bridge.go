package scorm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/trainforge-backend/internal/domain/training"
	"github.com/yungbote/trainforge-backend/internal/platform/logger"
)

var (
	ErrNotScormScene = errors.New("scene is not a scorm scene")
	ErrNoPackage     = errors.New("scorm scene has no package")
	ErrNoLearner     = errors.New("learner id is required")
)

type Config struct {
	Retry RetryPolicy
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Bridge opens runtime sessions between learners and SCORM scenes.
type Bridge struct {
	log   *logger.Logger
	store AttemptStore
	retry RetryPolicy
	now   func() time.Time
}

func NewBridge(log *logger.Logger, store AttemptStore, cfg Config) *Bridge {
	if log == nil {
		log = logger.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Bridge{
		log:   log.With("component", "ScormBridge"),
		store: store,
		retry: cfg.Retry.normalized(),
		now:   now,
	}
}

type OpenInput struct {
	LearnerID   uuid.UUID
	LearnerName string
	Module      *training.TrainingModule
	SceneID     uuid.UUID
	// LaunchData overrides the configured launch parameters.
	LaunchData string
}

// Open loads the learner's attempt for the scene and returns a session ready for Initialize.
// Suspend data from the previous session is restored verbatim.
func (b *Bridge) Open(ctx context.Context, in OpenInput) (*Session, error) {
	if in.LearnerID == uuid.Nil {
		return nil, ErrNoLearner
	}
	if in.Module == nil {
		return nil, training.ErrModuleNotFound
	}
	idx := in.Module.SceneIndex(in.SceneID)
	if idx < 0 {
		return nil, training.ErrSceneNotFound
	}
	scene := in.Module.Scenes[idx]
	if scene.SceneType != training.SceneTypeScorm {
		return nil, ErrNotScormScene
	}
	if scene.ScormPackageURL == "" {
		return nil, ErrNoPackage
	}

	var cfg training.ScormConfig
	if in.Module.Metadata.Scorm != nil {
		cfg = *in.Module.Metadata.Scorm
	}
	if in.LaunchData == "" {
		in.LaunchData = cfg.Launch.Parameters
	}
	version := in.Module.EffectiveScormVersion()

	var attempt *training.ScormAttempt
	err := b.retry.do(ctx, b.log, "load_attempt", func(ctx context.Context) error {
		a, err := b.store.LoadAttempt(ctx, in.LearnerID, in.SceneID)
		if err != nil {
			return err
		}
		attempt = a
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load scorm attempt: %w", err)
	}

	s := newSession(b, in, cfg, version, attempt)
	s.log.Debug("scorm session opened", "version", string(version), "resumed", attempt != nil)
	return s, nil
}
