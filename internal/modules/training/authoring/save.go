package authoring

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/trainforge-backend/internal/domain/training"
	"github.com/yungbote/trainforge-backend/internal/modules/training/ordering"
)

// acquire enforces one Save per module at a time.
func (e *Editor) acquire(ctx context.Context) error {
	if e.policy == SavePolicyReject {
		if !e.saving.TryAcquire(1) {
			return ErrSaveInProgress
		}
		return nil
	}
	return e.saving.Acquire(ctx, 1)
}

// Save persists the module and all of its scenes. A module that is already saved is
// not written again. On failure the editor returns to unsaved and the in-memory graph
// is kept, so nothing the author did is lost.
func (e *Editor) Save(ctx context.Context) error {
	if err := e.acquire(ctx); err != nil {
		return err
	}
	defer e.saving.Release(1)
	return e.saveLocked(ctx)
}

func (e *Editor) saveLocked(ctx context.Context) error {
	e.mu.Lock()
	if e.module == nil {
		e.mu.Unlock()
		return ErrEditorNotLoaded
	}
	if e.state == training.SaveStateSaved && e.revision == e.saved {
		e.mu.Unlock()
		return nil
	}
	rev := e.revision
	snapshot := e.module.Clone()
	e.state = training.SaveStateSaving
	e.mu.Unlock()

	now := e.now().UTC()
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = now
	}
	snapshot.UpdatedAt = now
	for i := range snapshot.Scenes {
		snapshot.Scenes[i].ModuleID = snapshot.ID
		if snapshot.Scenes[i].CreatedAt.IsZero() {
			snapshot.Scenes[i].CreatedAt = now
		}
		snapshot.Scenes[i].UpdatedAt = now
	}

	err := ordering.CheckOrder(snapshot.Scenes)
	if err == nil {
		err = e.store.SaveModule(ctx, snapshot)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.state = training.SaveStateUnsaved
		e.log.Warn("module save failed", "revision", rev, "error", err)
		return fmt.Errorf("save module: %w", err)
	}
	e.saved = rev
	stampTimes(e.module, snapshot)
	if e.revision == rev {
		e.state = training.SaveStateSaved
	} else {
		e.state = training.SaveStateUnsaved
	}
	e.log.Info("module saved", "revision", rev, "scenes", len(snapshot.Scenes), "state", string(e.state))
	return nil
}

// stampTimes copies persisted timestamps onto the live graph without counting as a mutation.
func stampTimes(live, saved *training.TrainingModule) {
	live.CreatedAt = saved.CreatedAt
	live.UpdatedAt = saved.UpdatedAt
	for _, s := range saved.Scenes {
		if i := live.SceneIndex(s.ID); i >= 0 {
			live.Scenes[i].CreatedAt = s.CreatedAt
			live.Scenes[i].UpdatedAt = s.UpdatedAt
		}
	}
}

// Publish checks publish readiness, saves, then flips the stored status from draft
// to published. Readiness failures come back as *training.ValidationError and leave
// the store untouched.
func (e *Editor) Publish(ctx context.Context) error {
	if err := e.acquire(ctx); err != nil {
		return err
	}
	defer e.saving.Release(1)

	if issues := e.Issues(); len(issues) > 0 {
		return training.NewValidationError(issues...)
	}
	m := e.Module()
	if err := m.Validate(); err != nil {
		return err
	}
	if err := e.saveLocked(ctx); err != nil {
		return err
	}
	if m.Status == training.ModuleStatusPublished {
		return nil
	}

	ok, err := e.store.TransitionStatus(ctx, m.ID, []training.ModuleStatus{training.ModuleStatusDraft}, training.ModuleStatusPublished)
	if err != nil {
		e.log.Warn("module publish failed", "error", err)
		return fmt.Errorf("publish module: %w", err)
	}
	if !ok {
		return ErrStatusConflict
	}

	e.mu.Lock()
	e.module.Status = training.ModuleStatusPublished
	e.mu.Unlock()
	e.log.Info("module published")
	return nil
}

// Unpublish returns a published module to draft. The graph itself is not saved.
func (e *Editor) Unpublish(ctx context.Context) error {
	m := e.Module()
	if m == nil {
		return ErrEditorNotLoaded
	}
	if m.Status == training.ModuleStatusDraft {
		return nil
	}
	ok, err := e.store.TransitionStatus(ctx, m.ID, []training.ModuleStatus{training.ModuleStatusPublished}, training.ModuleStatusDraft)
	if err != nil {
		return fmt.Errorf("unpublish module: %w", err)
	}
	if !ok {
		return ErrStatusConflict
	}
	e.mu.Lock()
	e.module.Status = training.ModuleStatusDraft
	e.mu.Unlock()
	return nil
}

// IsValidation reports whether err blocked a publish for content reasons.
func IsValidation(err error) bool {
	var ve *training.ValidationError
	return errors.As(err, &ve)
}
