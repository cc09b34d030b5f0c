package authoring

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/yungbote/trainforge-backend/internal/domain/training"
	"github.com/yungbote/trainforge-backend/internal/modules/training/content"
	"github.com/yungbote/trainforge-backend/internal/platform/logger"
)

// EditorRegistry keeps one Editor per open module so every author request for the
// module shares its save state and single-flight guard.
type EditorRegistry struct {
	log      *logger.Logger
	store    Store
	registry *content.Registry
	opts     Options

	mu      sync.Mutex
	editors map[uuid.UUID]*Editor
}

func NewEditorRegistry(log *logger.Logger, store Store, registry *content.Registry, opts Options) *EditorRegistry {
	if log == nil {
		log = logger.NewNop()
	}
	return &EditorRegistry{
		log:      log,
		store:    store,
		registry: registry,
		opts:     opts,
		editors:  map[uuid.UUID]*Editor{},
	}
}

func (r *EditorRegistry) Options() Options { return r.opts }

// Open returns the live editor for moduleID, loading the module on first use.
func (r *EditorRegistry) Open(ctx context.Context, moduleID uuid.UUID) (*Editor, error) {
	if e, ok := r.Get(moduleID); ok {
		return e, nil
	}
	m, err := r.store.LoadModule(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, training.ErrModuleNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// another request may have loaded it meanwhile
	if e, ok := r.editors[moduleID]; ok {
		return e, nil
	}
	e := NewEditor(r.log, r.store, r.registry, m, true, r.opts)
	r.editors[moduleID] = e
	return e, nil
}

// Create registers an editor for a module that has not been stored yet.
func (r *EditorRegistry) Create(m *training.TrainingModule) *Editor {
	e := NewEditor(r.log, r.store, r.registry, m, false, r.opts)
	r.mu.Lock()
	r.editors[m.ID] = e
	r.mu.Unlock()
	return e
}

func (r *EditorRegistry) Get(moduleID uuid.UUID) (*Editor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.editors[moduleID]
	return e, ok
}

// Close forgets the editor. Unsaved changes are dropped.
func (r *EditorRegistry) Close(moduleID uuid.UUID) {
	r.mu.Lock()
	delete(r.editors, moduleID)
	r.mu.Unlock()
}

func (r *EditorRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.editors)
}
