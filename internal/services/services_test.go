package services

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/trainforge-backend/internal/data/aggregates"
	"github.com/yungbote/trainforge-backend/internal/data/repos"
	repotest "github.com/yungbote/trainforge-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/trainforge-backend/internal/domain/aggregates"
	"github.com/yungbote/trainforge-backend/internal/domain/training"
	"github.com/yungbote/trainforge-backend/internal/modules/training/authoring"
	"github.com/yungbote/trainforge-backend/internal/modules/training/content"
	"github.com/yungbote/trainforge-backend/internal/platform/ctxutil"
	"github.com/yungbote/trainforge-backend/internal/platform/gcp"
	"github.com/yungbote/trainforge-backend/internal/platform/logger"
)

type fixture struct {
	db       *gorm.DB
	log      *logger.Logger
	modules  repos.ModuleRepo
	progress repos.SceneProgressRepo
	store    domainagg.TrainingModuleAggregate
	attempts domainagg.ScormAttemptAggregate
	registry *content.Registry
	editors  *authoring.EditorRegistry
	bucket   *fakeBucket
	cache    *spyInvalidator
	training TrainingService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := repotest.DB(t)
	log := logger.NewNop()

	f := &fixture{
		db:       db,
		log:      log,
		modules:  repos.NewModuleRepo(db, log),
		progress: repos.NewSceneProgressRepo(db, log),
		registry: content.NewRegistry(log, ""),
		bucket:   newFakeBucket(),
		cache:    &spyInvalidator{},
	}
	scenes := repos.NewSceneRepo(db, log)
	attempts := repos.NewScormAttemptRepo(db, log)
	f.store = aggregates.NewTrainingModuleAggregate(aggregates.TrainingModuleAggregateDeps{
		Base:     aggregates.BaseDeps{DB: db},
		Modules:  f.modules,
		Scenes:   scenes,
		Attempts: attempts,
		Progress: f.progress,
	})
	f.attempts = aggregates.NewScormAttemptAggregate(aggregates.ScormAttemptAggregateDeps{
		Base:     aggregates.BaseDeps{DB: db},
		Scenes:   scenes,
		Attempts: attempts,
		Progress: f.progress,
	})
	f.editors = authoring.NewEditorRegistry(log, f.store, f.registry, authoring.Options{Policy: authoring.SavePolicyQueue})
	f.training = NewTrainingService(log, TrainingServiceDeps{
		Modules:  f.modules,
		Store:    f.store,
		Editors:  f.editors,
		Registry: f.registry,
		Cache:    f.cache,
		Assets:   f.bucket,
	})
	return f
}

func author() Actor  { return Actor{UserID: uuid.New(), Role: ctxutil.RoleAuthor} }
func learner() Actor { return Actor{UserID: uuid.New(), Role: ctxutil.RoleLearner} }
func admin() Actor   { return Actor{UserID: uuid.New(), Role: ctxutil.RoleAdmin} }

func quizMetadata(passing int) *training.SceneMetadata {
	return &training.SceneMetadata{Quiz: &training.QuizConfig{
		PassingScore: passing,
		Questions: []training.QuizQuestion{
			{ID: "q1", Type: training.QuestionTrueFalse, Prompt: "Forks down when parked?", CorrectAnswer: "true"},
		},
	}}
}

// publishedQuizModule creates, fills and publishes a module with one quiz scene.
func (f *fixture) publishedQuizModule(t *testing.T, owner Actor) (*training.TrainingModule, training.TrainingScene) {
	t.Helper()
	ctx := context.Background()
	v, err := f.training.CreateModule(ctx, owner, CreateModuleInput{Title: "Forklift safety", Save: true})
	if err != nil {
		t.Fatalf("CreateModule: %v", err)
	}
	scene, err := f.training.AddScene(ctx, owner, v.Module.ID, SceneInput{
		SceneType: string(training.SceneTypeQuiz), Title: "Check", IsRequired: true, Metadata: quizMetadata(70),
	})
	if err != nil {
		t.Fatalf("AddScene: %v", err)
	}
	pv, err := f.training.Publish(ctx, owner, v.Module.ID)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	return pv.Module, *scene
}

type spyInvalidator struct {
	mu      sync.Mutex
	modules []uuid.UUID
}

func (s *spyInvalidator) InvalidateModule(_ context.Context, moduleID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modules = append(s.modules, moduleID)
}

// fakeBucket keeps objects in memory. failUpload, when set, is returned after the
// body has been drained.
type fakeBucket struct {
	mu         sync.Mutex
	objects    map[string][]byte
	deleted    []string
	prefixes   []string
	failUpload error
}

func newFakeBucket() *fakeBucket { return &fakeBucket{objects: map[string][]byte{}} }

func objKey(cat gcp.BucketCategory, key string) string { return string(cat) + "/" + key }

func (b *fakeBucket) PutObject(_ context.Context, cat gcp.BucketCategory, key string, r io.Reader, contentType string) (*gcp.ObjectAttrs, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failUpload != nil {
		return nil, b.failUpload
	}
	b.objects[objKey(cat, key)] = buf.Bytes()
	return &gcp.ObjectAttrs{Size: int64(buf.Len()), ContentType: contentType}, nil
}

func (b *fakeBucket) DeleteObject(_ context.Context, cat gcp.BucketCategory, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, objKey(cat, key))
	b.deleted = append(b.deleted, objKey(cat, key))
	return nil
}

func (b *fakeBucket) ListKeys(_ context.Context, cat gcp.BucketCategory, prefix string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	p := objKey(cat, prefix)
	for k := range b.objects {
		if strings.HasPrefix(k, p) {
			out = append(out, strings.TrimPrefix(k, string(cat)+"/"))
		}
	}
	return out, nil
}

func (b *fakeBucket) DeletePrefix(_ context.Context, cat gcp.BucketCategory, prefix string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prefixes = append(b.prefixes, objKey(cat, prefix))
	p := objKey(cat, prefix)
	n := 0
	for k := range b.objects {
		if strings.HasPrefix(k, p) {
			delete(b.objects, k)
			n++
		}
	}
	return n, nil
}

func (b *fakeBucket) PublicURL(cat gcp.BucketCategory, key string) string {
	return "https://cdn.test/" + objKey(cat, key)
}

func (b *fakeBucket) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}
