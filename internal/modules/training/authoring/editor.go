// Package authoring owns the author's in-memory module graph and its persistence.
//
// An Editor tracks a three-state save machine. Every mutation marks the module
// unsaved synchronously; nothing is persisted until Save or Publish is called.
package authoring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/yungbote/trainforge-backend/internal/domain/training"
	"github.com/yungbote/trainforge-backend/internal/modules/training/content"
	"github.com/yungbote/trainforge-backend/internal/modules/training/ordering"
	"github.com/yungbote/trainforge-backend/internal/platform/logger"
)

var (
	ErrSaveInProgress  = errors.New("save already in progress")
	ErrStatusConflict  = errors.New("module status changed concurrently")
	ErrUnknownTarget   = errors.New("unknown asset target")
	ErrImmutableField  = errors.New("field cannot be changed by this update")
	ErrEditorNotLoaded = errors.New("editor has no module")
)

// Store persists module graphs. SaveModule writes the module row first and then its
// scenes inside one transaction; scenes missing from m are deleted.
type Store interface {
	LoadModule(ctx context.Context, id uuid.UUID) (*training.TrainingModule, error)
	SaveModule(ctx context.Context, m *training.TrainingModule) error
	// TransitionStatus moves the module to `to` only if its stored status is one of from.
	// ok is false when the guard did not match.
	TransitionStatus(ctx context.Context, id uuid.UUID, from []training.ModuleStatus, to training.ModuleStatus) (ok bool, err error)
}

type SavePolicy string

const (
	// SavePolicyQueue makes a second Save wait for the one in flight.
	SavePolicyQueue SavePolicy = "queue"
	// SavePolicyReject fails a second Save with ErrSaveInProgress.
	SavePolicyReject SavePolicy = "reject"
)

func ParseSavePolicy(raw string) SavePolicy {
	if strings.EqualFold(strings.TrimSpace(raw), string(SavePolicyReject)) {
		return SavePolicyReject
	}
	return SavePolicyQueue
}

type Options struct {
	Policy SavePolicy
	Now    func() time.Time
}

func (o Options) clock() func() time.Time {
	if o.Now == nil {
		return time.Now
	}
	return o.Now
}

type Editor struct {
	log      *logger.Logger
	store    Store
	registry *content.Registry
	policy   SavePolicy
	now      func() time.Time
	saving   *semaphore.Weighted

	mu       sync.Mutex
	module   *training.TrainingModule
	state    training.SaveState
	revision uint64
	saved    uint64
}

// NewEditor wraps m. A module that came from the store starts saved; pass persisted=false
// for a module that has never been written.
func NewEditor(log *logger.Logger, store Store, registry *content.Registry, m *training.TrainingModule, persisted bool, opts Options) *Editor {
	if log == nil {
		log = logger.NewNop()
	}
	now := opts.clock()
	policy := opts.Policy
	if policy != SavePolicyReject {
		policy = SavePolicyQueue
	}
	e := &Editor{
		store:    store,
		registry: registry,
		policy:   policy,
		now:      now,
		saving:   semaphore.NewWeighted(1),
		module:   m.Clone(),
		state:    training.SaveStateSaved,
	}
	if m != nil {
		e.log = log.With("component", "ModuleEditor", "module_id", m.ID.String())
		e.module.Scenes = ordering.SortByOrder(e.module.Scenes)
	} else {
		e.log = log.With("component", "ModuleEditor")
	}
	if !persisted {
		e.revision = 1
		e.state = training.SaveStateUnsaved
	}
	return e
}

func (e *Editor) ModuleID() uuid.UUID {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.module == nil {
		return uuid.Nil
	}
	return e.module.ID
}

// Module returns a deep copy of the current graph.
func (e *Editor) Module() *training.TrainingModule {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.module.Clone()
}

func (e *Editor) State() training.SaveState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Revision counts accepted mutations.
func (e *Editor) Revision() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.revision
}

// apply runs a pure transform over the current graph and installs the result.
// A failed transform leaves the editor untouched.
func (e *Editor) apply(op string, fn func(m *training.TrainingModule) (*training.TrainingModule, error)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.module == nil {
		return ErrEditorNotLoaded
	}
	next, err := fn(e.module)
	if err != nil {
		return err
	}
	if err := ordering.CheckOrder(next.Scenes); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	e.module = next
	e.revision++
	e.state = training.SaveStateUnsaved
	e.log.Debug("module mutated", "op", op, "revision", e.revision)
	return nil
}

// InsertScene adds scene at atIndex (nil appends) and returns the stored copy.
func (e *Editor) InsertScene(scene training.TrainingScene, atIndex *int) (training.TrainingScene, error) {
	if !scene.SceneType.Valid() {
		return training.TrainingScene{}, fmt.Errorf("%w: %q", training.ErrUnknownSceneType, scene.SceneType)
	}
	if scene.ID == uuid.Nil {
		scene.ID = uuid.New()
	}
	if scene.EstimatedDurationMinutes < 1 {
		scene.EstimatedDurationMinutes = 1
	}
	var out training.TrainingScene
	err := e.apply("insert_scene", func(m *training.TrainingModule) (*training.TrainingModule, error) {
		next, err := ordering.InsertScene(m, scene.Clone(), atIndex)
		if err != nil {
			return nil, err
		}
		out = next.Scenes[next.SceneIndex(scene.ID)].Clone()
		return next, nil
	})
	return out, err
}

// RemoveScene drops the scene and prunes it from the completion criteria.
func (e *Editor) RemoveScene(sceneID uuid.UUID) error {
	return e.apply("remove_scene", func(m *training.TrainingModule) (*training.TrainingModule, error) {
		next, err := ordering.RemoveScene(m, sceneID)
		if err != nil {
			return nil, err
		}
		if c := next.Metadata.CompletionCriteria; c != nil && len(c.RequiredSceneIDs) > 0 {
			cc := *c
			cc.RequiredSceneIDs = make([]uuid.UUID, 0, len(c.RequiredSceneIDs))
			for _, id := range c.RequiredSceneIDs {
				if id != sceneID {
					cc.RequiredSceneIDs = append(cc.RequiredSceneIDs, id)
				}
			}
			next.Metadata.CompletionCriteria = &cc
		}
		return next, nil
	})
}

func (e *Editor) ReorderScenes(from, to int) error {
	return e.apply("reorder_scenes", func(m *training.TrainingModule) (*training.TrainingModule, error) {
		return ordering.Reorder(m, from, to)
	})
}

func (e *Editor) MoveScene(sceneID uuid.UUID, to int) error {
	return e.apply("move_scene", func(m *training.TrainingModule) (*training.TrainingModule, error) {
		return ordering.MoveSceneByID(m, sceneID, to)
	})
}

// DuplicateScene appends a copy of the scene and returns it.
func (e *Editor) DuplicateScene(sceneID uuid.UUID) (training.TrainingScene, error) {
	newID := uuid.New()
	var out training.TrainingScene
	err := e.apply("duplicate_scene", func(m *training.TrainingModule) (*training.TrainingModule, error) {
		next, err := ordering.DuplicateScene(m, sceneID, newID)
		if err != nil {
			return nil, err
		}
		out = next.Scenes[len(next.Scenes)-1].Clone()
		return next, nil
	})
	return out, err
}

// UpdateScene edits a copy of the scene through fn. Identity, owner and position
// are restored after fn runs; the result must pass field validation.
func (e *Editor) UpdateScene(sceneID uuid.UUID, fn func(s *training.TrainingScene)) (training.TrainingScene, error) {
	var out training.TrainingScene
	err := e.apply("update_scene", func(m *training.TrainingModule) (*training.TrainingModule, error) {
		idx := m.SceneIndex(sceneID)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %s", training.ErrSceneNotFound, sceneID)
		}
		next := m.Clone()
		s := next.Scenes[idx]
		fn(&s)
		s.ID = m.Scenes[idx].ID
		s.ModuleID = m.Scenes[idx].ModuleID
		s.OrderIndex = m.Scenes[idx].OrderIndex
		s.CreatedAt = m.Scenes[idx].CreatedAt
		if err := s.Validate(); err != nil {
			return nil, err
		}
		next.Scenes[idx] = s
		out = s.Clone()
		return next, nil
	})
	return out, err
}

// UpdateModule edits the module header through fn. Scenes, owner, status and identity
// cannot be changed this way.
func (e *Editor) UpdateModule(fn func(m *training.TrainingModule)) error {
	return e.apply("update_module", func(m *training.TrainingModule) (*training.TrainingModule, error) {
		next := m.Clone()
		fn(next)
		if next.ID != m.ID || next.OwnerID != m.OwnerID || next.Status != m.Status {
			return nil, ErrImmutableField
		}
		next.Title = strings.TrimSpace(next.Title)
		next.Scenes = m.Clone().Scenes
		next.CreatedAt = m.CreatedAt
		if err := next.Validate(); err != nil {
			return nil, err
		}
		return next, nil
	})
}

// SetCompletionCriteria replaces the criteria. Every listed scene must exist; nil clears.
func (e *Editor) SetCompletionCriteria(c *training.CompletionCriteria) error {
	return e.apply("set_completion_criteria", func(m *training.TrainingModule) (*training.TrainingModule, error) {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if c != nil {
			for _, id := range c.RequiredSceneIDs {
				if m.SceneIndex(id) < 0 {
					sid := id
					return nil, training.NewValidationError(training.Issue{
						Code:    training.IssueInvalidField,
						SceneID: &sid,
						Field:   "required_scene_ids",
						Message: "required scene is not part of the module",
					})
				}
			}
		}
		next := m.Clone()
		if c == nil {
			next.Metadata.CompletionCriteria = nil
		} else {
			cc := *c
			cc.RequiredSceneIDs = append([]uuid.UUID(nil), c.RequiredSceneIDs...)
			next.Metadata.CompletionCriteria = &cc
		}
		return next, nil
	})
}

// SetAccessibility replaces the accessibility settings and refreshes the compliant flag.
// compliant is decided by the caller's scorer.
func (e *Editor) SetAccessibility(s training.AccessibilitySettings, compliant bool) error {
	return e.apply("set_accessibility", func(m *training.TrainingModule) (*training.TrainingModule, error) {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		next := m.Clone()
		next.Metadata.Accessibility = &s
		next.AccessibilityCompliant = compliant
		return next, nil
	})
}

// SetScormConfig replaces the SCORM settings. A non-nil enabled config also marks the
// module SCORM compatible with the configured version.
func (e *Editor) SetScormConfig(c *training.ScormConfig) error {
	return e.apply("set_scorm_config", func(m *training.TrainingModule) (*training.TrainingModule, error) {
		next := m.Clone()
		if c == nil {
			next.Metadata.Scorm = nil
			return next, nil
		}
		if err := c.Validate(); err != nil {
			return nil, err
		}
		cc := *c
		next.Metadata.Scorm = &cc
		if cc.Enabled {
			next.ScormCompatible = true
			if cc.Version.Valid() {
				next.ScormVersion = cc.Version
			}
		}
		return next, nil
	})
}

// SetAssetURL points the scene field named by target at url. Upload flows call this
// only after the transfer finished.
func (e *Editor) SetAssetURL(sceneID uuid.UUID, target content.UploadTarget, url string) (training.TrainingScene, error) {
	if target != content.TargetContentURL && target != content.TargetScormPackageURL {
		return training.TrainingScene{}, fmt.Errorf("%w: %q", ErrUnknownTarget, target)
	}
	url = strings.TrimSpace(url)
	return e.UpdateScene(sceneID, func(s *training.TrainingScene) {
		if target == content.TargetScormPackageURL {
			s.ScormPackageURL = url
			return
		}
		s.ContentURL = url
	})
}

// Issues lists what blocks publishing right now.
func (e *Editor) Issues() []training.Issue {
	m := e.Module()
	if e.registry == nil {
		return nil
	}
	issues := e.registry.CheckPublishable(m)
	if m != nil {
		if err := ordering.CheckOrder(m.Scenes); err != nil {
			issues = append(issues, training.Issue{Code: training.IssueBrokenOrder, Message: err.Error()})
		}
	}
	return issues
}
