package authoring

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/trainforge-backend/internal/domain/training"
	"github.com/yungbote/trainforge-backend/internal/modules/training/content"
)

type memStore struct {
	mu       sync.Mutex
	modules  map[uuid.UUID]*training.TrainingModule
	saves    int
	failNext error
	// gate, when set, blocks SaveModule until it is closed.
	gate    chan struct{}
	entered chan struct{}
	active  int
	overlap bool
}

func newMemStore() *memStore {
	return &memStore{modules: map[uuid.UUID]*training.TrainingModule{}}
}

func (s *memStore) LoadModule(_ context.Context, id uuid.UUID) (*training.TrainingModule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.modules[id]
	if !ok {
		return nil, training.ErrModuleNotFound
	}
	return m.Clone(), nil
}

func (s *memStore) SaveModule(ctx context.Context, m *training.TrainingModule) error {
	s.mu.Lock()
	s.active++
	if s.active > 1 {
		s.overlap = true
	}
	gate, entered := s.gate, s.entered
	s.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.active--
	if err := s.failNext; err != nil {
		s.failNext = nil
		return err
	}
	stored := m.Clone()
	if prev, ok := s.modules[m.ID]; ok {
		stored.Status = prev.Status
	}
	s.modules[m.ID] = stored
	s.saves++
	return nil
}

func (s *memStore) TransitionStatus(_ context.Context, id uuid.UUID, from []training.ModuleStatus, to training.ModuleStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.modules[id]
	if !ok {
		return false, training.ErrModuleNotFound
	}
	for _, f := range from {
		if m.Status == f {
			m.Status = to
			return true, nil
		}
	}
	return false, nil
}

func newEditor(t *testing.T, store *memStore, policy SavePolicy) *Editor {
	t.Helper()
	m := training.NewModule(uuid.New(), "Forklift safety")
	return NewEditor(nil, store, content.NewRegistry(nil, ""), m, false, Options{Policy: policy})
}

func addScene(t *testing.T, e *Editor, st training.SceneType, title string) training.TrainingScene {
	t.Helper()
	s, err := e.InsertScene(training.NewScene(e.ModuleID(), st, title), nil)
	if err != nil {
		t.Fatalf("InsertScene: %v", err)
	}
	return s
}

func TestMutationsMarkUnsaved(t *testing.T) {
	store := newMemStore()
	e := newEditor(t, store, SavePolicyQueue)
	if err := e.Save(context.Background()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if e.State() != training.SaveStateSaved {
		t.Fatalf("state after save: want=saved got=%s", e.State())
	}

	a := addScene(t, e, training.SceneTypeVideo, "intro")
	steps := []struct {
		name string
		fn   func() error
	}{
		{"update scene", func() error {
			_, err := e.UpdateScene(a.ID, func(s *training.TrainingScene) { s.Description = "d" })
			return err
		}},
		{"duplicate", func() error { _, err := e.DuplicateScene(a.ID); return err }},
		{"reorder", func() error { return e.ReorderScenes(0, 1) }},
		{"update module", func() error {
			return e.UpdateModule(func(m *training.TrainingModule) { m.Description = "x" })
		}},
		{"settings", func() error {
			return e.SetAccessibility(training.AccessibilitySettings{WCAGLevel: training.WCAGLevelAA}, false)
		}},
		{"asset", func() error {
			_, err := e.SetAssetURL(a.ID, content.TargetContentURL, "https://cdn/x.mp4")
			return err
		}},
		{"remove", func() error { return e.RemoveScene(a.ID) }},
	}
	for _, st := range steps {
		if err := e.Save(context.Background()); err != nil {
			t.Fatalf("%s: Save: %v", st.name, err)
		}
		if err := st.fn(); err != nil {
			t.Fatalf("%s: %v", st.name, err)
		}
		if e.State() != training.SaveStateUnsaved {
			t.Fatalf("%s: want=unsaved got=%s", st.name, e.State())
		}
	}
}

func TestFailedMutationKeepsState(t *testing.T) {
	store := newMemStore()
	e := newEditor(t, store, SavePolicyQueue)
	addScene(t, e, training.SceneTypeVideo, "a")
	if err := e.Save(context.Background()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	rev := e.Revision()
	if err := e.ReorderScenes(0, 5); err == nil {
		t.Fatalf("expected out of range error")
	}
	if err := e.UpdateModule(func(m *training.TrainingModule) { m.Status = training.ModuleStatusPublished }); !errors.Is(err, ErrImmutableField) {
		t.Fatalf("status change: want=ErrImmutableField got=%v", err)
	}
	if e.State() != training.SaveStateSaved || e.Revision() != rev {
		t.Fatalf("failed mutation changed editor: state=%s rev=%d", e.State(), e.Revision())
	}
}

func TestSaveFailureRevertsToUnsaved(t *testing.T) {
	store := newMemStore()
	e := newEditor(t, store, SavePolicyQueue)
	addScene(t, e, training.SceneTypeVideo, "a")
	store.failNext = &training.PersistenceError{Op: "save", Retryable: true, Cause: errors.New("down")}

	err := e.Save(context.Background())
	var pe *training.PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("want PersistenceError got=%v", err)
	}
	if e.State() != training.SaveStateUnsaved {
		t.Fatalf("want=unsaved got=%s", e.State())
	}
	if len(e.Module().Scenes) != 1 {
		t.Fatalf("graph lost after failed save")
	}
	if err := e.Save(context.Background()); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	if e.State() != training.SaveStateSaved {
		t.Fatalf("want=saved got=%s", e.State())
	}
}

func TestSaveRejectPolicy(t *testing.T) {
	store := newMemStore()
	store.gate = make(chan struct{})
	store.entered = make(chan struct{}, 1)
	e := newEditor(t, store, SavePolicyReject)

	done := make(chan error, 1)
	go func() { done <- e.Save(context.Background()) }()
	<-store.entered
	if e.State() != training.SaveStateSaving {
		t.Fatalf("want=saving got=%s", e.State())
	}

	if err := e.Save(context.Background()); !errors.Is(err, ErrSaveInProgress) {
		t.Fatalf("second Save: want=ErrSaveInProgress got=%v", err)
	}
	close(store.gate)
	if err := <-done; err != nil {
		t.Fatalf("first Save: %v", err)
	}
	if store.saves != 1 {
		t.Fatalf("saves: want=1 got=%d", store.saves)
	}
}

func TestSaveQueuePolicySerializes(t *testing.T) {
	store := newMemStore()
	store.gate = make(chan struct{})
	store.entered = make(chan struct{}, 2)
	e := newEditor(t, store, SavePolicyQueue)

	first := make(chan error, 1)
	go func() { first <- e.Save(context.Background()) }()
	<-store.entered

	// a mutation while saving leaves the module unsaved after the first save lands
	addScene(t, e, training.SceneTypeVideo, "late")

	second := make(chan error, 1)
	go func() { second <- e.Save(context.Background()) }()

	select {
	case <-store.entered:
		t.Fatalf("second save entered the store while the first was in flight")
	case <-time.After(50 * time.Millisecond):
	}
	close(store.gate)
	if err := <-first; err != nil {
		t.Fatalf("first Save: %v", err)
	}
	if err := <-second; err != nil {
		t.Fatalf("second Save: %v", err)
	}
	if store.overlap {
		t.Fatalf("saves overlapped")
	}
	if e.State() != training.SaveStateSaved {
		t.Fatalf("want=saved got=%s", e.State())
	}
	stored, _ := store.LoadModule(context.Background(), e.ModuleID())
	if len(stored.Scenes) != 1 || stored.Scenes[0].Title != "late" {
		t.Fatalf("late scene not persisted: %+v", stored.Scenes)
	}
}

func TestSaveQueueHonorsContext(t *testing.T) {
	store := newMemStore()
	store.gate = make(chan struct{})
	store.entered = make(chan struct{}, 1)
	e := newEditor(t, store, SavePolicyQueue)

	go func() { _ = e.Save(context.Background()) }()
	<-store.entered
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := e.Save(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want DeadlineExceeded got=%v", err)
	}
	close(store.gate)
}

func TestPublishEndToEnd(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	e := newEditor(t, store, SavePolicyQueue)

	err := e.Publish(ctx)
	var ve *training.ValidationError
	if !errors.As(err, &ve) || !ve.HasCode(training.IssueNoScenes) {
		t.Fatalf("empty module: want no_scenes got=%v", err)
	}
	if store.saves != 0 {
		t.Fatalf("failed publish must not save")
	}

	quiz := training.NewScene(e.ModuleID(), training.SceneTypeQuiz, "check")
	quiz.IsRequired = true
	quiz.Metadata.Quiz = &training.QuizConfig{PassingScore: 70}
	q, err := e.InsertScene(quiz, nil)
	if err != nil {
		t.Fatalf("InsertScene: %v", err)
	}
	err = e.Publish(ctx)
	if !errors.As(err, &ve) || !ve.HasCode(training.IssueSceneIncomplete) {
		t.Fatalf("quiz without questions: want scene_incomplete got=%v", err)
	}

	_, err = e.UpdateScene(q.ID, func(s *training.TrainingScene) {
		s.Metadata.Quiz.Questions = append(s.Metadata.Quiz.Questions, training.QuizQuestion{
			ID:            "q1",
			Type:          training.QuestionTrueFalse,
			Prompt:        "Forks down when parked?",
			CorrectAnswer: "true",
			Points:        1,
		})
	})
	if err != nil {
		t.Fatalf("UpdateScene: %v", err)
	}
	if err := e.Publish(ctx); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got := e.Module().Status; got != training.ModuleStatusPublished {
		t.Fatalf("status: want=published got=%s", got)
	}
	stored, _ := store.LoadModule(ctx, e.ModuleID())
	if stored.Status != training.ModuleStatusPublished || len(stored.Scenes) != 1 {
		t.Fatalf("stored: status=%s scenes=%d", stored.Status, len(stored.Scenes))
	}
	if e.State() != training.SaveStateSaved {
		t.Fatalf("state: want=saved got=%s", e.State())
	}
}

func TestPublishStatusConflict(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	e := newEditor(t, store, SavePolicyQueue)
	doc := training.NewScene(e.ModuleID(), training.SceneTypeDocumentBuilder, "notes")
	doc.DocumentContent = "<p>hi</p>"
	if _, err := e.InsertScene(doc, nil); err != nil {
		t.Fatalf("InsertScene: %v", err)
	}
	if err := e.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}
	store.modules[e.ModuleID()].Status = training.ModuleStatusArchived
	if err := e.Publish(ctx); !errors.Is(err, ErrStatusConflict) {
		t.Fatalf("want ErrStatusConflict got=%v", err)
	}
}

func TestRemoveScenePrunesCriteria(t *testing.T) {
	e := newEditor(t, newMemStore(), SavePolicyQueue)
	a := addScene(t, e, training.SceneTypeVideo, "a")
	b := addScene(t, e, training.SceneTypeVideo, "b")
	if err := e.SetCompletionCriteria(&training.CompletionCriteria{MinScore: 50, RequiredSceneIDs: []uuid.UUID{a.ID, b.ID}}); err != nil {
		t.Fatalf("SetCompletionCriteria: %v", err)
	}
	if err := e.RemoveScene(a.ID); err != nil {
		t.Fatalf("RemoveScene: %v", err)
	}
	got := e.Module().Metadata.CompletionCriteria.RequiredSceneIDs
	if len(got) != 1 || got[0] != b.ID {
		t.Fatalf("required ids: want=[%s] got=%v", b.ID, got)
	}
	if err := e.SetCompletionCriteria(&training.CompletionCriteria{RequiredSceneIDs: []uuid.UUID{uuid.New()}}); !IsValidation(err) {
		t.Fatalf("unknown required scene: want validation error got=%v", err)
	}
}

func TestSetAssetURL(t *testing.T) {
	e := newEditor(t, newMemStore(), SavePolicyQueue)
	s := addScene(t, e, training.SceneTypeScorm, "pkg")
	got, err := e.SetAssetURL(s.ID, content.TargetScormPackageURL, " https://cdn/pkg.zip ")
	if err != nil {
		t.Fatalf("SetAssetURL: %v", err)
	}
	if got.ScormPackageURL != "https://cdn/pkg.zip" || got.ContentURL != "" {
		t.Fatalf("unexpected scene fields: %+v", got)
	}
	if _, err := e.SetAssetURL(s.ID, content.TargetInline, "x"); !errors.Is(err, ErrUnknownTarget) {
		t.Fatalf("inline target: want ErrUnknownTarget got=%v", err)
	}
}

func TestClone(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	e := newEditor(t, store, SavePolicyQueue)
	a := addScene(t, e, training.SceneTypeVideo, "a")
	addScene(t, e, training.SceneTypeVideo, "b")
	if err := e.SetCompletionCriteria(&training.CompletionCriteria{RequiredSceneIDs: []uuid.UUID{a.ID}}); err != nil {
		t.Fatalf("SetCompletionCriteria: %v", err)
	}
	if err := e.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}
	store.modules[e.ModuleID()].Status = training.ModuleStatusPublished
	src, _ := store.LoadModule(ctx, e.ModuleID())

	owner := uuid.New()
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	out, err := Clone(ctx, store, src.ID, "", owner, Options{Now: func() time.Time { return at }})
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	if !out.CreatedAt.Equal(at) || !out.UpdatedAt.Equal(at) {
		t.Fatalf("module timestamps: want=%v got=%v/%v", at, out.CreatedAt, out.UpdatedAt)
	}
	for i, s := range out.Scenes {
		if !s.CreatedAt.Equal(at) || !s.UpdatedAt.Equal(at) {
			t.Fatalf("scene %d timestamps: want=%v got=%v/%v", i, at, s.CreatedAt, s.UpdatedAt)
		}
	}
	if out.ID == src.ID || out.OwnerID != owner {
		t.Fatalf("clone identity/owner not reset")
	}
	if out.Status != training.ModuleStatusDraft {
		t.Fatalf("status: want=draft got=%s", out.Status)
	}
	if out.Title != "Forklift safety (Copy)" {
		t.Fatalf("title: got=%q", out.Title)
	}
	if len(out.Scenes) != len(src.Scenes) {
		t.Fatalf("scene count: want=%d got=%d", len(src.Scenes), len(out.Scenes))
	}
	for i, s := range out.Scenes {
		if s.ID == src.Scenes[i].ID || s.ModuleID != out.ID || s.OrderIndex != i {
			t.Fatalf("scene %d not remapped: %+v", i, s)
		}
	}
	req := out.Metadata.CompletionCriteria.RequiredSceneIDs
	if len(req) != 1 || req[0] != out.Scenes[0].ID {
		t.Fatalf("criteria not remapped: %v", req)
	}
	if src.Metadata.CompletionCriteria.RequiredSceneIDs[0] != a.ID {
		t.Fatalf("clone mutated the source")
	}
	if _, err := store.LoadModule(ctx, out.ID); err != nil {
		t.Fatalf("clone not persisted: %v", err)
	}
}

func TestEditorRegistry(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	reg := NewEditorRegistry(nil, store, content.NewRegistry(nil, ""), Options{})
	m := training.NewModule(uuid.New(), "m")
	e := reg.Create(m)
	if err := e.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := reg.Open(ctx, m.ID)
	if err != nil || got != e {
		t.Fatalf("Open should return the live editor: %v", err)
	}
	reg.Close(m.ID)
	reopened, err := reg.Open(ctx, m.ID)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if reopened == e || reopened.State() != training.SaveStateSaved {
		t.Fatalf("reopened editor should be fresh and saved")
	}
	if _, err := reg.Open(ctx, uuid.New()); !errors.Is(err, training.ErrModuleNotFound) {
		t.Fatalf("missing module: want ErrModuleNotFound got=%v", err)
	}
}
