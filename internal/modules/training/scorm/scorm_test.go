package scorm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/trainforge-backend/internal/domain/training"
)

type memStore struct {
	mu       sync.Mutex
	attempts map[string]*training.ScormAttempt
	progress map[string]*training.SceneProgress
	// failNext makes the next n saves fail with err.
	failNext int
	err      error
	saves    int
	// hang blocks saves until their context ends.
	hang bool
}

func newMemStore() *memStore {
	return &memStore{
		attempts: map[string]*training.ScormAttempt{},
		progress: map[string]*training.SceneProgress{},
	}
}

func storeKey(learnerID, sceneID uuid.UUID) string {
	return learnerID.String() + "/" + sceneID.String()
}

func (m *memStore) LoadAttempt(_ context.Context, learnerID, sceneID uuid.UUID) (*training.ScormAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[storeKey(learnerID, sceneID)]
	if !ok {
		return nil, nil
	}
	return cloneAttempt(a), nil
}

func (m *memStore) SaveAttempt(ctx context.Context, a *training.ScormAttempt, p *training.SceneProgress) error {
	m.mu.Lock()
	hang := m.hang
	m.mu.Unlock()
	if hang {
		<-ctx.Done()
		return &training.PersistenceError{Op: "save_attempt", Retryable: true, Cause: ctx.Err()}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.failNext > 0 {
		m.failNext--
		return m.err
	}
	m.attempts[storeKey(a.LearnerID, a.SceneID)] = cloneAttempt(a)
	cp := *p
	m.progress[storeKey(p.LearnerID, p.SceneID)] = &cp
	return nil
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	store   *memStore
	clock   *fakeClock
	bridge  *Bridge
	module  *training.TrainingModule
	scene   training.TrainingScene
	learner uuid.UUID
}

func newFixture(t *testing.T, version training.ScormVersion, cfg *training.ScormConfig) *fixture {
	t.Helper()
	m := training.NewModule(uuid.New(), "Forklift safety")
	m.ScormCompatible = true
	m.ScormVersion = version
	if cfg != nil {
		cfg.Version = version
		m.Metadata.Scorm = cfg
	}
	scene := training.NewScene(m.ID, training.SceneTypeScorm, "Package")
	scene.ScormPackageURL = "https://cdn.example.com/scorm/pkg.zip"
	m.Scenes = []training.TrainingScene{scene}

	clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := newMemStore()
	bridge := NewBridge(nil, store, Config{
		Retry: RetryPolicy{Attempts: 3, BaseDelay: time.Microsecond, MaxDelay: time.Millisecond},
		Now:   clock.now,
	})
	return &fixture{store: store, clock: clock, bridge: bridge, module: m, scene: scene, learner: uuid.New()}
}

func (f *fixture) open(t *testing.T) *API {
	t.Helper()
	s, err := f.bridge.Open(context.Background(), OpenInput{
		LearnerID:   f.learner,
		LearnerName: "Rivera, Sam",
		Module:      f.module,
		SceneID:     f.scene.ID,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return NewAPI(s)
}

func mustTrue(t *testing.T, api *API, what, got string) {
	t.Helper()
	if got != "true" {
		t.Fatalf("%s: want=true got=%s (error %s: %s)", what, got, api.GetLastError(), api.Session().GetDiagnostic(""))
	}
}

func TestSuspendDataRoundTrip(t *testing.T) {
	payload := `{"slide":7,"answers":[1,"b",null]}` + "\n\tüñí ;,=&"
	for _, version := range []training.ScormVersion{training.ScormVersion12, training.ScormVersion2004} {
		t.Run(string(version), func(t *testing.T) {
			f := newFixture(t, version, nil)
			ctx := context.Background()

			api := f.open(t)
			mustTrue(t, api, "initialize", api.initialize(""))
			mustTrue(t, api, "set suspend", api.SetValue("cmi.suspend_data", payload))
			mustTrue(t, api, "commit", api.commit(ctx, ""))
			mustTrue(t, api, "finish", api.finish(ctx, ""))

			api = f.open(t)
			mustTrue(t, api, "re-initialize", api.initialize(""))
			if got := api.getValue("cmi.suspend_data"); got != payload {
				t.Fatalf("suspend data: want=%q got=%q", payload, got)
			}
			if stored := f.store.attempts[storeKey(f.learner, f.scene.ID)]; stored.SuspendData != payload {
				t.Fatalf("stored suspend data: want=%q got=%q", payload, stored.SuspendData)
			}
		})
	}
}

func TestResumeEntryAfterSuspendExit(t *testing.T) {
	f := newFixture(t, training.ScormVersion12, nil)
	ctx := context.Background()

	api := f.open(t)
	mustTrue(t, api, "init", api.LMSInitialize(""))
	if got := api.LMSGetValue("cmi.core.entry"); got != "ab-initio" {
		t.Fatalf("first entry: want=ab-initio got=%q", got)
	}
	mustTrue(t, api, "status", api.LMSSetValue("cmi.core.lesson_status", "incomplete"))
	mustTrue(t, api, "location", api.LMSSetValue("cmi.core.lesson_location", "page-4"))
	mustTrue(t, api, "exit", api.LMSSetValue("cmi.core.exit", "suspend"))
	mustTrue(t, api, "finish", api.LMSFinish(ctx, ""))

	api = f.open(t)
	mustTrue(t, api, "init", api.LMSInitialize(""))
	if got := api.LMSGetValue("cmi.core.entry"); got != "resume" {
		t.Fatalf("entry: want=resume got=%q", got)
	}
	if got := api.LMSGetValue("cmi.core.lesson_location"); got != "page-4" {
		t.Fatalf("location: want=page-4 got=%q", got)
	}
	if got := api.LMSGetValue("cmi.core.lesson_status"); got != "incomplete" {
		t.Fatalf("status: want=incomplete got=%q", got)
	}
	if a := api.Session().Attempt(); a.AttemptNumber != 1 {
		t.Fatalf("incomplete attempt should continue, attempt=%d", a.AttemptNumber)
	}
}

func TestErrorCodes12(t *testing.T) {
	f := newFixture(t, training.ScormVersion12, nil)
	api := f.open(t)
	mustTrue(t, api, "init", api.LMSInitialize(""))

	cases := []struct {
		name string
		run  func() string
		want string
	}{
		{"get write-only", func() string { return api.LMSGetValue("cmi.core.session_time") }, "404"},
		{"set read-only", func() string { return api.LMSSetValue("cmi.core.student_id", "x") }, "403"},
		{"set keyword", func() string { return api.LMSSetValue("cmi.core._children", "x") }, "402"},
		{"children of leaf", func() string { return api.LMSGetValue("cmi.core.student_id._children") }, "202"},
		{"count of non-array", func() string { return api.LMSGetValue("cmi.core._count") }, "203"},
		{"undefined element", func() string { return api.LMSGetValue("cmi.core.bogus") }, "201"},
		{"malformed key", func() string { return api.LMSGetValue("cmi..core") }, "201"},
		{"bad vocabulary", func() string { return api.LMSSetValue("cmi.core.lesson_status", "done") }, "405"},
		{"not attempted is not settable", func() string { return api.LMSSetValue("cmi.core.lesson_status", "not attempted") }, "405"},
		{"score out of range", func() string { return api.LMSSetValue("cmi.core.score.raw", "120") }, "405"},
		{"score not a number", func() string { return api.LMSSetValue("cmi.core.score.raw", "abc") }, "405"},
		{"bad timespan", func() string { return api.LMSSetValue("cmi.core.session_time", "1:00") }, "405"},
		{"array gap", func() string { return api.LMSSetValue("cmi.objectives.1.id", "obj") }, "201"},
		{"suspend data too long", func() string { return api.LMSSetValue("cmi.suspend_data", strings.Repeat("x", 4097)) }, "405"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.run()
			if got != "" && got != "false" {
				t.Fatalf("call result: want failure got=%q", got)
			}
			if code := api.LMSGetLastError(); code != tc.want {
				t.Fatalf("error code: want=%s got=%s (%s)", tc.want, code, api.LMSGetDiagnostic(""))
			}
		})
	}

	if got := api.LMSGetValue("cmi.core._children"); !strings.Contains(got, "lesson_status") {
		t.Fatalf("core children: got=%q", got)
	}
	if api.LMSGetLastError() != "0" {
		t.Fatalf("successful get should clear last error")
	}
	if got := api.LMSGetValue("cmi.core.lesson_status"); got != "not attempted" {
		t.Fatalf("initial status: want=not attempted got=%q", got)
	}
	mustTrue(t, api, "objective id", api.LMSSetValue("cmi.objectives.0.id", "obj-1"))
	mustTrue(t, api, "objective status", api.LMSSetValue("cmi.objectives.0.status", "passed"))
	if got := api.LMSGetValue("cmi.objectives._count"); got != "1" {
		t.Fatalf("objectives count: want=1 got=%q", got)
	}
	mustTrue(t, api, "interaction", api.LMSSetValue("cmi.interactions.0.result", "wrong"))
	mustTrue(t, api, "interaction weight", api.LMSSetValue("cmi.interactions.0.weighting", "2.5"))
	if got := api.LMSGetValue("cmi.interactions.0.objectives._count"); got != "0" {
		t.Fatalf("nested count: want=0 got=%q", got)
	}
	if got := api.LMSGetErrorString("403"); got != "Element is read only" {
		t.Fatalf("error string: got=%q", got)
	}
}

func TestErrorCodes2004(t *testing.T) {
	f := newFixture(t, training.ScormVersion2004, &training.ScormConfig{Enabled: true})
	api := f.open(t)
	mustTrue(t, api, "init", api.Initialize(""))

	cases := []struct {
		name string
		run  func() string
		want string
	}{
		{"get write-only", func() string { return api.GetValue("cmi.session_time") }, "405"},
		{"set read-only", func() string { return api.SetValue("cmi.learner_id", "x") }, "404"},
		{"set version", func() string { return api.SetValue("cmi._version", "2.0") }, "404"},
		{"set keyword", func() string { return api.SetValue("cmi.score._children", "x") }, "404"},
		{"undefined element", func() string { return api.GetValue("cmi.bogus") }, "401"},
		{"empty get", func() string { return api.GetValue("") }, "301"},
		{"children of leaf", func() string { return api.GetValue("cmi.learner_id._children") }, "301"},
		{"type mismatch", func() string { return api.SetValue("cmi.completion_status", "done") }, "406"},
		{"out of range", func() string { return api.SetValue("cmi.score.scaled", "2") }, "407"},
		{"value not initialized", func() string { return api.GetValue("cmi.location") }, "403"},
		{"id first", func() string { return api.SetValue("cmi.objectives.0.score.raw", "5") }, "408"},
		{"array gap", func() string { return api.SetValue("cmi.objectives.2.id", "x") }, "351"},
		{"bad duration", func() string { return api.SetValue("cmi.session_time", "PT") }, "406"},
		{"suspend data too long", func() string { return api.SetValue("cmi.suspend_data", strings.Repeat("x", 64001)) }, "407"},
		{"get beyond count", func() string { return api.GetValue("cmi.interactions.0.id") }, "301"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.run()
			if got != "" && got != "false" {
				t.Fatalf("call result: want failure got=%q", got)
			}
			if code := api.GetLastError(); code != tc.want {
				t.Fatalf("error code: want=%s got=%s (%s)", tc.want, code, api.GetDiagnostic(""))
			}
		})
	}

	if got := api.GetValue("cmi._version"); got != "1.0" {
		t.Fatalf("_version: got=%q", got)
	}
	if got := api.GetValue("cmi.score._children"); got != "scaled,raw,min,max" {
		t.Fatalf("score children: got=%q", got)
	}
	if got := api.GetValue("cmi.completion_status"); got != "unknown" {
		t.Fatalf("initial completion: want=unknown got=%q", got)
	}
	mustTrue(t, api, "objective id", api.SetValue("cmi.objectives.0.id", "urn:obj:1"))
	mustTrue(t, api, "objective score", api.SetValue("cmi.objectives.0.score.raw", "5"))
	if got := api.GetValue("cmi.objectives._count"); got != "1" {
		t.Fatalf("objectives count: want=1 got=%q", got)
	}
	mustTrue(t, api, "comment", api.SetValue("cmi.comments_from_learner.0.comment", "great"))
	mustTrue(t, api, "timestamp", api.SetValue("cmi.comments_from_learner.0.timestamp", "2026-03-01T09:15:00Z"))
	mustTrue(t, api, "interaction result", api.SetValue("cmi.interactions.0.id", "q1"))
	mustTrue(t, api, "numeric result", api.SetValue("cmi.interactions.0.result", "0.75"))
	mustTrue(t, api, "latency", api.SetValue("cmi.interactions.0.latency", "PT1M2.5S"))
}

func TestLifecycleCodes2004(t *testing.T) {
	f := newFixture(t, training.ScormVersion2004, nil)
	ctx := context.Background()
	api := f.open(t)

	api.GetValue("cmi.location")
	if code := api.GetLastError(); code != "122" {
		t.Fatalf("get before init: want=122 got=%s", code)
	}
	api.SetValue("cmi.location", "x")
	if code := api.GetLastError(); code != "132" {
		t.Fatalf("set before init: want=132 got=%s", code)
	}
	if api.Commit(ctx, "") != "false" || api.GetLastError() != "142" {
		t.Fatalf("commit before init: want=142 got=%s", api.GetLastError())
	}
	if api.Terminate(ctx, "") != "false" || api.GetLastError() != "112" {
		t.Fatalf("terminate before init: want=112 got=%s", api.GetLastError())
	}
	if api.Initialize("unexpected") != "false" || api.GetLastError() != "201" {
		t.Fatalf("initialize with argument: want=201 got=%s", api.GetLastError())
	}
	mustTrue(t, api, "init", api.Initialize(""))
	if api.Initialize("") != "false" || api.GetLastError() != "103" {
		t.Fatalf("double init: want=103 got=%s", api.GetLastError())
	}
	mustTrue(t, api, "terminate", api.Terminate(ctx, ""))
	api.GetValue("cmi.location")
	if code := api.GetLastError(); code != "123" {
		t.Fatalf("get after terminate: want=123 got=%s", code)
	}
	if api.Terminate(ctx, "") != "false" || api.GetLastError() != "113" {
		t.Fatalf("double terminate: want=113 got=%s", api.GetLastError())
	}
	if api.Initialize("") != "false" || api.GetLastError() != "104" {
		t.Fatalf("init after terminate: want=104 got=%s", api.GetLastError())
	}
}

func TestLifecycleCodes12(t *testing.T) {
	f := newFixture(t, training.ScormVersion12, nil)
	api := f.open(t)
	api.LMSGetValue("cmi.core.lesson_status")
	if code := api.LMSGetLastError(); code != "301" {
		t.Fatalf("get before init: want=301 got=%s", code)
	}
	mustTrue(t, api, "init", api.LMSInitialize(""))
	if api.LMSInitialize("") != "false" || api.LMSGetLastError() != "101" {
		t.Fatalf("double init: want=101 got=%s", api.LMSGetLastError())
	}
}

func TestCommitRetriesTransientFailures(t *testing.T) {
	f := newFixture(t, training.ScormVersion2004, nil)
	f.store.failNext = 2
	f.store.err = errors.New("connection reset")
	api := f.open(t)
	mustTrue(t, api, "init", api.Initialize(""))
	mustTrue(t, api, "set", api.SetValue("cmi.location", "slide-2"))
	mustTrue(t, api, "commit", api.Commit(context.Background(), ""))
	if f.store.saves != 3 {
		t.Fatalf("saves: want=3 got=%d", f.store.saves)
	}
	if got := f.store.attempts[storeKey(f.learner, f.scene.ID)].Location; got != "slide-2" {
		t.Fatalf("location not persisted: got=%q", got)
	}
}

func TestCommitExhaustedRetriesIsFatal(t *testing.T) {
	cases := []struct {
		version training.ScormVersion
		commit  func(*API) string
		want    string
	}{
		{training.ScormVersion12, func(a *API) string { return a.LMSCommit(context.Background(), "") }, "101"},
		{training.ScormVersion2004, func(a *API) string { return a.Commit(context.Background(), "") }, "391"},
	}
	for _, tc := range cases {
		t.Run(string(tc.version), func(t *testing.T) {
			f := newFixture(t, tc.version, nil)
			f.store.failNext = 100
			f.store.err = &training.PersistenceError{Op: "save_attempt", Retryable: true, Cause: errors.New("timeout")}
			api := f.open(t)
			mustTrue(t, api, "init", api.initialize(""))
			if got := tc.commit(api); got != "false" {
				t.Fatalf("commit: want=false got=%s", got)
			}
			if code := api.lastError(); code != tc.want {
				t.Fatalf("code: want=%s got=%s", tc.want, code)
			}
			if f.store.saves != 3 {
				t.Fatalf("saves: want=3 got=%d", f.store.saves)
			}
			if api.Session().Fatal() == nil {
				t.Fatalf("session should be fatal")
			}
			if got := api.getValue("cmi.suspend_data"); got != "" || api.lastError() != "101" {
				t.Fatalf("calls after fatal: got=%q code=%s", got, api.lastError())
			}
		})
	}
}

func TestCommitOutlivesAbortedRequest(t *testing.T) {
	for _, version := range []training.ScormVersion{training.ScormVersion12, training.ScormVersion2004} {
		t.Run(string(version), func(t *testing.T) {
			f := newFixture(t, version, nil)
			aborted, cancel := context.WithCancel(context.Background())
			cancel()

			api := f.open(t)
			mustTrue(t, api, "init", api.initialize(""))
			mustTrue(t, api, "set suspend", api.SetValue("cmi.suspend_data", "X"))
			mustTrue(t, api, "commit", api.commit(aborted, ""))
			mustTrue(t, api, "finish", api.finish(aborted, ""))
			if api.Session().Fatal() != nil {
				t.Fatalf("aborted request made the session fatal: %v", api.Session().Fatal())
			}
			if f.store.saves != 2 {
				t.Fatalf("saves: want=2 got=%d", f.store.saves)
			}

			api = f.open(t)
			mustTrue(t, api, "re-initialize", api.initialize(""))
			if got := api.getValue("cmi.suspend_data"); got != "X" {
				t.Fatalf("suspend data: want=%q got=%q", "X", got)
			}
		})
	}
}

func TestCommitTimeoutIsNotFatal(t *testing.T) {
	f := newFixture(t, training.ScormVersion12, nil)
	f.bridge = NewBridge(nil, f.store, Config{
		Retry: RetryPolicy{Attempts: 2, BaseDelay: time.Microsecond, MaxDelay: time.Millisecond, Timeout: 20 * time.Millisecond},
		Now:   f.clock.now,
	})
	api := f.open(t)
	mustTrue(t, api, "init", api.LMSInitialize(""))
	mustTrue(t, api, "set suspend", api.LMSSetValue("cmi.suspend_data", "page=3"))

	f.store.mu.Lock()
	f.store.hang = true
	f.store.mu.Unlock()
	if got := api.LMSCommit(context.Background(), ""); got != "false" {
		t.Fatalf("commit against a hung store: want=false got=%s", got)
	}
	if api.Session().Fatal() != nil {
		t.Fatalf("timeout must not be fatal: %v", api.Session().Fatal())
	}

	f.store.mu.Lock()
	f.store.hang = false
	f.store.mu.Unlock()
	mustTrue(t, api, "commit after recovery", api.LMSCommit(context.Background(), ""))
	mustTrue(t, api, "finish", api.LMSFinish(context.Background(), ""))
	if got := f.store.attempts[storeKey(f.learner, f.scene.ID)].SuspendData; got != "page=3" {
		t.Fatalf("stored suspend data: want=%q got=%q", "page=3", got)
	}
}

func TestCommitDoesNotRetryPermissionErrors(t *testing.T) {
	f := newFixture(t, training.ScormVersion12, nil)
	f.store.failNext = 100
	f.store.err = &training.PermissionError{Op: "save_attempt"}
	api := f.open(t)
	mustTrue(t, api, "init", api.LMSInitialize(""))
	if api.LMSCommit(context.Background(), "") != "false" {
		t.Fatalf("commit should fail")
	}
	if f.store.saves != 1 {
		t.Fatalf("saves: want=1 got=%d", f.store.saves)
	}
}

func TestFinish12Status(t *testing.T) {
	mastery := 80.0
	cases := []struct {
		name      string
		mastery   *float64
		sets      map[string]string
		wantState training.AttemptState
		wantScore float64
	}{
		{"unset status defaults to completed", nil, nil, training.AttemptCompleted, -1},
		{"mastery passes", &mastery, map[string]string{"cmi.core.score.raw": "85"}, training.AttemptPassed, 85},
		{"mastery fails", &mastery, map[string]string{"cmi.core.lesson_status": "completed", "cmi.core.score.raw": "75"}, training.AttemptFailed, 75},
		{"incomplete wins over mastery", &mastery, map[string]string{"cmi.core.lesson_status": "incomplete", "cmi.core.score.raw": "95"}, training.AttemptIncomplete, 95},
		{"raw normalized by min and max", nil, map[string]string{"cmi.core.lesson_status": "passed", "cmi.core.score.raw": "15", "cmi.core.score.min": "10", "cmi.core.score.max": "20"}, training.AttemptPassed, 50},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &training.ScormConfig{Enabled: true}
			cfg.Completion.MasteryScore = tc.mastery
			f := newFixture(t, training.ScormVersion12, cfg)
			api := f.open(t)
			mustTrue(t, api, "init", api.LMSInitialize(""))
			for k, v := range tc.sets {
				mustTrue(t, api, k, api.LMSSetValue(k, v))
			}
			mustTrue(t, api, "finish", api.LMSFinish(context.Background(), ""))

			a := f.store.attempts[storeKey(f.learner, f.scene.ID)]
			if a.State != tc.wantState {
				t.Fatalf("state: want=%s got=%s", tc.wantState, a.State)
			}
			p := f.store.progress[storeKey(f.learner, f.scene.ID)]
			if p.Completed != tc.wantState.Terminal() {
				t.Fatalf("progress completed: want=%v got=%v", tc.wantState.Terminal(), p.Completed)
			}
			if tc.wantScore < 0 {
				if p.Score != nil {
					t.Fatalf("score: want none got=%v", *p.Score)
				}
				return
			}
			if p.Score == nil || *p.Score != tc.wantScore {
				t.Fatalf("score: want=%v got=%v", tc.wantScore, p.Score)
			}
		})
	}
}

func TestFinishFoldsSessionTime(t *testing.T) {
	f := newFixture(t, training.ScormVersion12, nil)
	ctx := context.Background()

	api := f.open(t)
	mustTrue(t, api, "init", api.LMSInitialize(""))
	mustTrue(t, api, "status", api.LMSSetValue("cmi.core.lesson_status", "incomplete"))
	mustTrue(t, api, "session time", api.LMSSetValue("cmi.core.session_time", "0000:10:00.00"))
	mustTrue(t, api, "finish", api.LMSFinish(ctx, ""))

	api = f.open(t)
	mustTrue(t, api, "init", api.LMSInitialize(""))
	if got := api.LMSGetValue("cmi.core.total_time"); got != "0000:10:00.00" {
		t.Fatalf("total time: want=0000:10:00.00 got=%q", got)
	}
	f.clock.advance(90 * time.Second)
	mustTrue(t, api, "finish", api.LMSFinish(ctx, ""))

	a := f.store.attempts[storeKey(f.learner, f.scene.ID)]
	if a.TotalTimeSeconds != 690 {
		t.Fatalf("total seconds: want=690 got=%v", a.TotalTimeSeconds)
	}
	if p := f.store.progress[storeKey(f.learner, f.scene.ID)]; p.TimeSpentSeconds != 690 {
		t.Fatalf("progress seconds: want=690 got=%d", p.TimeSpentSeconds)
	}
}

func TestFinish2004Evaluation(t *testing.T) {
	threshold, mastery := 0.8, 70.0
	cfg := &training.ScormConfig{Enabled: true}
	cfg.Completion.CompletionThreshold = &threshold
	cfg.Completion.MasteryScore = &mastery
	f := newFixture(t, training.ScormVersion2004, cfg)

	api := f.open(t)
	mustTrue(t, api, "init", api.Initialize(""))
	if got := api.GetValue("cmi.scaled_passing_score"); got != "0.7" {
		t.Fatalf("scaled passing score: got=%q", got)
	}
	mustTrue(t, api, "progress", api.SetValue("cmi.progress_measure", "0.9"))
	mustTrue(t, api, "scaled", api.SetValue("cmi.score.scaled", "0.5"))
	mustTrue(t, api, "terminate", api.Terminate(context.Background(), ""))

	a := f.store.attempts[storeKey(f.learner, f.scene.ID)]
	if a.State != training.AttemptFailed {
		t.Fatalf("state: want=failed got=%s", a.State)
	}
	if a.Data["cmi.completion_status"] != "completed" {
		t.Fatalf("completion: want=completed got=%q", a.Data["cmi.completion_status"])
	}
	p := f.store.progress[storeKey(f.learner, f.scene.ID)]
	if p.Status != training.ProgressFailed || p.Score == nil || *p.Score != 50 {
		t.Fatalf("progress: got=%+v", p)
	}
}

func TestRetryAfterTerminalAttempt(t *testing.T) {
	f := newFixture(t, training.ScormVersion12, nil)
	ctx := context.Background()

	api := f.open(t)
	mustTrue(t, api, "init", api.LMSInitialize(""))
	mustTrue(t, api, "status", api.LMSSetValue("cmi.core.lesson_status", "failed"))
	mustTrue(t, api, "score", api.LMSSetValue("cmi.core.score.raw", "40"))
	mustTrue(t, api, "finish", api.LMSFinish(ctx, ""))

	api = f.open(t)
	mustTrue(t, api, "init", api.LMSInitialize(""))
	if a := api.Session().Attempt(); a.AttemptNumber != 2 || a.State != training.AttemptIncomplete {
		t.Fatalf("retry: got attempt=%d state=%s", a.AttemptNumber, a.State)
	}
	if got := api.LMSGetValue("cmi.core.score.raw"); got != "" {
		t.Fatalf("score should reset on retry, got=%q", got)
	}
	if got := api.LMSGetValue("cmi.core.lesson_status"); got != "not attempted" {
		t.Fatalf("status should reset on retry, got=%q", got)
	}
}

func TestMaxAttemptsOpensReviewMode(t *testing.T) {
	cfg := &training.ScormConfig{Enabled: true}
	cfg.Completion.MaxAttempts = 1
	f := newFixture(t, training.ScormVersion12, cfg)
	ctx := context.Background()

	api := f.open(t)
	mustTrue(t, api, "init", api.LMSInitialize(""))
	mustTrue(t, api, "status", api.LMSSetValue("cmi.core.lesson_status", "passed"))
	mustTrue(t, api, "finish", api.LMSFinish(ctx, ""))
	saves := f.store.saves

	api = f.open(t)
	mustTrue(t, api, "init", api.LMSInitialize(""))
	if !api.Session().Review() {
		t.Fatalf("expected review mode")
	}
	if got := api.LMSGetValue("cmi.core.credit"); got != "no-credit" {
		t.Fatalf("credit: got=%q", got)
	}
	if got := api.LMSGetValue("cmi.core.lesson_mode"); got != "review" {
		t.Fatalf("mode: got=%q", got)
	}
	mustTrue(t, api, "status", api.LMSSetValue("cmi.core.lesson_status", "failed"))
	mustTrue(t, api, "finish", api.LMSFinish(ctx, ""))
	if f.store.saves != saves {
		t.Fatalf("review session must not persist")
	}
	if a := f.store.attempts[storeKey(f.learner, f.scene.ID)]; a.State != training.AttemptPassed {
		t.Fatalf("state changed in review: %s", a.State)
	}
}

func TestRequireSuccessGatesCompletion(t *testing.T) {
	cfg := &training.ScormConfig{Enabled: true}
	cfg.Completion.RequireSuccess = true
	f := newFixture(t, training.ScormVersion12, cfg)
	api := f.open(t)
	mustTrue(t, api, "init", api.LMSInitialize(""))
	mustTrue(t, api, "finish", api.LMSFinish(context.Background(), ""))
	if p := f.store.progress[storeKey(f.learner, f.scene.ID)]; p.Completed {
		t.Fatalf("completed without success should not count")
	}
}

func TestDispatch(t *testing.T) {
	f := newFixture(t, training.ScormVersion12, nil)
	api := f.open(t)
	ctx := context.Background()

	if got, err := api.Dispatch(ctx, "LMSInitialize", []string{""}); err != nil || got != "true" {
		t.Fatalf("LMSInitialize: got=%q err=%v", got, err)
	}
	if got, err := api.Dispatch(ctx, "LMSSetValue", []string{"cmi.core.lesson_location", "p2"}); err != nil || got != "true" {
		t.Fatalf("LMSSetValue: got=%q err=%v", got, err)
	}
	if got, _ := api.Dispatch(ctx, "LMSGetValue", []string{"cmi.core.lesson_location"}); got != "p2" {
		t.Fatalf("LMSGetValue: got=%q", got)
	}
	if got, _ := api.Dispatch(ctx, "LMSGetLastError", nil); got != "0" {
		t.Fatalf("LMSGetLastError: got=%q", got)
	}
	if got, _ := api.Dispatch(ctx, "LMSGetErrorString", []string{"201"}); got != "Invalid argument error" {
		t.Fatalf("LMSGetErrorString: got=%q", got)
	}
	if _, err := api.Dispatch(ctx, "GetValue", []string{"cmi.location"}); !errors.Is(err, ErrUnknownMethod) {
		t.Fatalf("2004 call on 1.2 session: want ErrUnknownMethod got=%v", err)
	}
	if _, err := api.Dispatch(ctx, "LMSGetValue", []string{"a", "b"}); err == nil {
		t.Fatalf("surplus arguments should fail")
	}
	if got, _ := api.Dispatch(ctx, "LMSCommit", nil); got != "true" {
		t.Fatalf("LMSCommit with missing arg: got=%q", got)
	}
}

func TestOpenRejectsNonScormScene(t *testing.T) {
	f := newFixture(t, training.ScormVersion12, nil)
	video := training.NewScene(f.module.ID, training.SceneTypeVideo, "Intro")
	f.module.Scenes = append(f.module.Scenes, video)
	ctx := context.Background()

	if _, err := f.bridge.Open(ctx, OpenInput{LearnerID: f.learner, Module: f.module, SceneID: video.ID}); !errors.Is(err, ErrNotScormScene) {
		t.Fatalf("want ErrNotScormScene got=%v", err)
	}
	if _, err := f.bridge.Open(ctx, OpenInput{LearnerID: f.learner, Module: f.module, SceneID: uuid.New()}); !errors.Is(err, training.ErrSceneNotFound) {
		t.Fatalf("want ErrSceneNotFound got=%v", err)
	}
	if _, err := f.bridge.Open(ctx, OpenInput{Module: f.module, SceneID: f.scene.ID}); !errors.Is(err, ErrNoLearner) {
		t.Fatalf("want ErrNoLearner got=%v", err)
	}
}

func TestTimeFormats(t *testing.T) {
	spans := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"0000:00:00", 0, true},
		{"01:02:03.5", 3723.5, true},
		{"9999:59:59.50", 9999*3600 + 59*60 + 59.5, true},
		{"1:00:00", 0, false},
		{"00:60:00", 0, false},
	}
	for _, tc := range spans {
		got, err := ParseTimespan12(tc.in)
		if (err == nil) != tc.ok || (tc.ok && got != tc.want) {
			t.Fatalf("ParseTimespan12(%q): want=%v ok=%v got=%v err=%v", tc.in, tc.want, tc.ok, got, err)
		}
	}
	if got := FormatTimespan12(3723.5); got != "0001:02:03.50" {
		t.Fatalf("FormatTimespan12: got=%q", got)
	}

	durations := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"PT1H2M3.5S", 3723.5, true},
		{"P1DT2H", 93600, true},
		{"PT0S", 0, true},
		{"P", 0, false},
		{"PT", 0, false},
		{"1H", 0, false},
	}
	for _, tc := range durations {
		got, err := ParseDuration(tc.in)
		if (err == nil) != tc.ok || (tc.ok && got != tc.want) {
			t.Fatalf("ParseDuration(%q): want=%v ok=%v got=%v err=%v", tc.in, tc.want, tc.ok, got, err)
		}
	}
	if got := FormatDuration(3723.5); got != "PT1H2M3.5S" {
		t.Fatalf("FormatDuration: got=%q", got)
	}
}
