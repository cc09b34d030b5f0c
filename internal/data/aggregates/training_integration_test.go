package aggregates_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/trainforge-backend/internal/data/aggregates"
	aggtest "github.com/yungbote/trainforge-backend/internal/data/aggregates/testutil"
	"github.com/yungbote/trainforge-backend/internal/data/repos"
	repotest "github.com/yungbote/trainforge-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/trainforge-backend/internal/domain/aggregates"
	"github.com/yungbote/trainforge-backend/internal/domain/training"
	"github.com/yungbote/trainforge-backend/internal/platform/dbctx"
)

type fixture struct {
	db       *gorm.DB
	hooks    *aggtest.HooksRecorder
	modules  repos.ModuleRepo
	scenes   repos.SceneRepo
	attempts repos.ScormAttemptRepo
	progress repos.SceneProgressRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := repotest.DB(t)
	log := repotest.Logger(t)
	return &fixture{
		db:       db,
		hooks:    &aggtest.HooksRecorder{},
		modules:  repos.NewModuleRepo(db, log),
		scenes:   repos.NewSceneRepo(db, log),
		attempts: repos.NewScormAttemptRepo(db, log),
		progress: repos.NewSceneProgressRepo(db, log),
	}
}

func (f *fixture) moduleAgg(runner aggregates.TxRunner) domainagg.TrainingModuleAggregate {
	return aggregates.NewTrainingModuleAggregate(aggregates.TrainingModuleAggregateDeps{
		Base:     aggregates.BaseDeps{DB: f.db, Runner: runner, Hooks: f.hooks},
		Modules:  f.modules,
		Scenes:   f.scenes,
		Attempts: f.attempts,
		Progress: f.progress,
	})
}

func (f *fixture) attemptAgg() domainagg.ScormAttemptAggregate {
	return aggregates.NewScormAttemptAggregate(aggregates.ScormAttemptAggregateDeps{
		Base:     aggregates.BaseDeps{DB: f.db, Hooks: f.hooks},
		Scenes:   f.scenes,
		Attempts: f.attempts,
		Progress: f.progress,
	})
}

func draftModule(scenes ...training.SceneType) *training.TrainingModule {
	m := training.NewModule(uuid.New(), "Forklift safety")
	for i, st := range scenes {
		s := training.NewScene(m.ID, st, "scene")
		s.OrderIndex = i
		m.Scenes = append(m.Scenes, s)
	}
	return m
}

func TestTrainingModuleAggregateSaveAndLoad(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agg := f.moduleAgg(nil)

	m := draftModule(training.SceneTypeVideo, training.SceneTypeQuiz, training.SceneTypeDocument)
	if err := agg.SaveModule(ctx, m); err != nil {
		t.Fatalf("SaveModule: %v", err)
	}
	got, err := agg.LoadModule(ctx, m.ID)
	if err != nil {
		t.Fatalf("LoadModule: %v", err)
	}
	if got.Title != m.Title || len(got.Scenes) != 3 {
		t.Fatalf("loaded: want title=%q scenes=3 got title=%q scenes=%d", m.Title, got.Title, len(got.Scenes))
	}
	for i, s := range got.Scenes {
		if s.OrderIndex != i || s.ID != m.Scenes[i].ID {
			t.Fatalf("scene %d: want id=%s index=%d got id=%s index=%d", i, m.Scenes[i].ID, i, s.ID, s.OrderIndex)
		}
	}
	if st, ok := f.hooks.LastStatus("training.module.save"); !ok || st != "success" {
		t.Fatalf("save hook status: want=success got=%q", st)
	}
	if save := f.hooks.Stats("training.module.save"); save.Calls != 1 || save.Retries != 0 {
		t.Fatalf("save hook: want one call and no retries got %+v", save)
	}

	// drop the middle scene and re-index
	removed := m.Scenes[1]
	m.Scenes = []training.TrainingScene{m.Scenes[0], m.Scenes[2]}
	m.Scenes[1].OrderIndex = 1
	learner := uuid.New()
	if err := f.progress.Upsert(dbctx.Context{Ctx: ctx}, &training.SceneProgress{
		ID: uuid.New(), LearnerID: learner, SceneID: removed.ID, ModuleID: m.ID, Status: training.ProgressCompleted,
	}); err != nil {
		t.Fatalf("seed progress: %v", err)
	}
	if err := agg.SaveModule(ctx, m); err != nil {
		t.Fatalf("SaveModule after removal: %v", err)
	}
	got, err = agg.LoadModule(ctx, m.ID)
	if err != nil {
		t.Fatalf("LoadModule: %v", err)
	}
	if len(got.Scenes) != 2 || got.SceneIndex(removed.ID) != -1 {
		t.Fatalf("removed scene still present: %+v", got.Scenes)
	}
	p, err := f.progress.GetByLearnerScene(dbctx.Context{Ctx: ctx}, learner, removed.ID)
	if err != nil {
		t.Fatalf("GetByLearnerScene: %v", err)
	}
	if p != nil {
		t.Fatalf("progress for removed scene should be deleted")
	}
}

func TestTrainingModuleAggregateLoadMissing(t *testing.T) {
	f := newFixture(t)
	_, err := f.moduleAgg(nil).LoadModule(context.Background(), uuid.New())
	if !errors.Is(err, training.ErrModuleNotFound) {
		t.Fatalf("err: want ErrModuleNotFound got=%v", err)
	}
}

func TestTrainingModuleAggregateRejectsBrokenOrder(t *testing.T) {
	f := newFixture(t)
	m := draftModule(training.SceneTypeVideo, training.SceneTypeImage)
	m.Scenes[1].OrderIndex = 5
	err := f.moduleAgg(nil).SaveModule(context.Background(), m)
	if !domainagg.IsCode(err, domainagg.CodeInvariantViolation) {
		t.Fatalf("err: want invariant violation got=%v", err)
	}
}

func TestTrainingModuleAggregateRollsBackOnInjectedFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	runner := &aggtest.InjectedTxRunner{DB: f.db, FailAfterBody: aggtest.ErrInjected}

	m := draftModule(training.SceneTypeVideo)
	err := f.moduleAgg(runner).SaveModule(ctx, m)
	var pe *training.PersistenceError
	if !errors.As(err, &pe) || !errors.Is(err, aggtest.ErrInjected) {
		t.Fatalf("err: want PersistenceError wrapping injected failure got=%v", err)
	}
	if _, _, rb := runner.Counts(); rb != 1 {
		t.Fatalf("rollbacks: want=1 got=%d", rb)
	}
	if save := f.hooks.Stats("training.module.save"); save.Calls != 1 || save.Statuses["success"] != 0 {
		t.Fatalf("save hook after rollback: %+v", save)
	}
	row, err := f.modules.GetByID(dbctx.Context{Ctx: ctx}, m.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if row != nil {
		t.Fatalf("module row should not persist after rollback")
	}
	n, err := f.scenes.CountByModule(dbctx.Context{Ctx: ctx}, m.ID)
	if err != nil {
		t.Fatalf("CountByModule: %v", err)
	}
	if n != 0 {
		t.Fatalf("scenes after rollback: want=0 got=%d", n)
	}
}

func TestTrainingModuleAggregateTransitionStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agg := f.moduleAgg(nil)
	m := draftModule(training.SceneTypeVideo)
	if err := agg.SaveModule(ctx, m); err != nil {
		t.Fatalf("SaveModule: %v", err)
	}

	draft := []training.ModuleStatus{training.ModuleStatusDraft}
	start := make(chan struct{})
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, misses := 0, 0
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			ok, err := agg.TransitionStatus(ctx, m.ID, draft, training.ModuleStatusPublished)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				t.Errorf("TransitionStatus: %v", err)
			case ok:
				wins++
			default:
				misses++
			}
		}()
	}
	close(start)
	wg.Wait()
	if wins != 1 || misses != 1 {
		t.Fatalf("cas: want wins=1 misses=1 got wins=%d misses=%d", wins, misses)
	}

	// a later save must not reset the status
	m.Title = "Forklift safety v2"
	if err := agg.SaveModule(ctx, m); err != nil {
		t.Fatalf("SaveModule: %v", err)
	}
	got, err := agg.LoadModule(ctx, m.ID)
	if err != nil {
		t.Fatalf("LoadModule: %v", err)
	}
	if got.Status != training.ModuleStatusPublished || got.Title != "Forklift safety v2" {
		t.Fatalf("after save: want published/%q got %s/%q", "Forklift safety v2", got.Status, got.Title)
	}

	_, err = agg.TransitionStatus(ctx, uuid.New(), draft, training.ModuleStatusPublished)
	if !errors.Is(err, training.ErrModuleNotFound) {
		t.Fatalf("missing module: want ErrModuleNotFound got=%v", err)
	}
}

func TestTrainingModuleAggregateDeleteCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agg := f.moduleAgg(nil)
	m := draftModule(training.SceneTypeScorm)
	if err := agg.SaveModule(ctx, m); err != nil {
		t.Fatalf("SaveModule: %v", err)
	}
	learner := uuid.New()
	attempt := &training.ScormAttempt{
		LearnerID: learner, SceneID: m.Scenes[0].ID, Version: training.ScormVersion12,
		State: training.AttemptIncomplete, AttemptNumber: 1,
	}
	progress := &training.SceneProgress{LearnerID: learner, SceneID: m.Scenes[0].ID, Status: training.ProgressInProgress}
	if err := f.attemptAgg().SaveAttempt(ctx, attempt, progress); err != nil {
		t.Fatalf("SaveAttempt: %v", err)
	}

	if err := agg.DeleteModule(ctx, m.ID); err != nil {
		t.Fatalf("DeleteModule: %v", err)
	}
	dbc := dbctx.Context{Ctx: ctx}
	if n, _ := f.scenes.CountByModule(dbc, m.ID); n != 0 {
		t.Fatalf("scenes after delete: want=0 got=%d", n)
	}
	if rows, _ := f.attempts.ListByLearnerModule(dbc, learner, m.ID); len(rows) != 0 {
		t.Fatalf("attempts after delete: want=0 got=%d", len(rows))
	}
	if rows, _ := f.progress.ListByModule(dbc, m.ID); len(rows) != 0 {
		t.Fatalf("progress after delete: want=0 got=%d", len(rows))
	}
	if err := agg.DeleteModule(ctx, m.ID); !errors.Is(err, training.ErrModuleNotFound) {
		t.Fatalf("second delete: want ErrModuleNotFound got=%v", err)
	}
	if del := f.hooks.Stats("training.module.delete"); del.Calls != 2 || del.Statuses["success"] != 1 {
		t.Fatalf("delete hook: want two calls with one success got %+v", del)
	}
}

func TestScormAttemptAggregateSaveAndLoad(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := draftModule(training.SceneTypeScorm)
	if err := f.moduleAgg(nil).SaveModule(ctx, m); err != nil {
		t.Fatalf("SaveModule: %v", err)
	}
	agg := f.attemptAgg()
	learner, scene := uuid.New(), m.Scenes[0].ID

	got, err := agg.LoadAttempt(ctx, learner, scene)
	if err != nil || got != nil {
		t.Fatalf("first load: want (nil, nil) got (%v, %v)", got, err)
	}

	attempt := &training.ScormAttempt{
		LearnerID: learner, SceneID: scene, Version: training.ScormVersion2004,
		State: training.AttemptIncomplete, AttemptNumber: 1, SuspendData: "page=3",
	}
	progress := &training.SceneProgress{LearnerID: learner, SceneID: scene, Status: training.ProgressInProgress}
	if err := agg.SaveAttempt(ctx, attempt, progress); err != nil {
		t.Fatalf("SaveAttempt: %v", err)
	}
	if attempt.ModuleID != m.ID || progress.ModuleID != m.ID {
		t.Fatalf("module id: want=%s got attempt=%s progress=%s", m.ID, attempt.ModuleID, progress.ModuleID)
	}

	attempt.State = training.AttemptPassed
	attempt.ScoreScaled = repotest.PtrFloat(0.9)
	progress.Status = training.ProgressPassed
	progress.Completed = true
	if err := agg.SaveAttempt(ctx, attempt, progress); err != nil {
		t.Fatalf("SaveAttempt second commit: %v", err)
	}
	got, err = agg.LoadAttempt(ctx, learner, scene)
	if err != nil {
		t.Fatalf("LoadAttempt: %v", err)
	}
	if got.State != training.AttemptPassed || got.SuspendData != "page=3" {
		t.Fatalf("loaded: want passed/page=3 got %s/%q", got.State, got.SuspendData)
	}
	p, err := f.progress.GetByLearnerScene(dbctx.Context{Ctx: ctx}, learner, scene)
	if err != nil || p == nil || !p.Completed {
		t.Fatalf("progress: want completed row got %+v err=%v", p, err)
	}
}

func TestScormAttemptAggregateUnknownScene(t *testing.T) {
	f := newFixture(t)
	err := f.attemptAgg().SaveAttempt(context.Background(), &training.ScormAttempt{
		LearnerID: uuid.New(), SceneID: uuid.New(), Version: training.ScormVersion12, State: training.AttemptIncomplete,
	}, nil)
	if !errors.Is(err, training.ErrSceneNotFound) {
		t.Fatalf("err: want ErrSceneNotFound got=%v", err)
	}
}
