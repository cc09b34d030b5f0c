package scorm

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/trainforge-backend/internal/domain/training"
	"github.com/yungbote/trainforge-backend/internal/platform/logger"
)

// AttemptStore persists SCORM attempts. LoadAttempt returns (nil, nil) when the learner
// has never opened the scene.
type AttemptStore interface {
	LoadAttempt(ctx context.Context, learnerID, sceneID uuid.UUID) (*training.ScormAttempt, error)
	// SaveAttempt upserts the attempt and the scene-level progress row together.
	SaveAttempt(ctx context.Context, attempt *training.ScormAttempt, progress *training.SceneProgress) error
}

type lifecycle int

const (
	lifecycleFresh lifecycle = iota
	lifecycleRunning
	lifecycleTerminated
)

// keySet names the version-specific elements the session interprets itself.
type keySet struct {
	status          string
	completion      string
	success         string
	scoreRaw        string
	scoreMin        string
	scoreMax        string
	scoreScaled     string
	progressMeasure string
	location        string
	suspend         string
	sessionTime     string
	exit            string
	totalTime       string
	entry           string
	credit          string
	mode            string
}

var keys12 = keySet{
	status:      "cmi.core.lesson_status",
	scoreRaw:    "cmi.core.score.raw",
	scoreMin:    "cmi.core.score.min",
	scoreMax:    "cmi.core.score.max",
	location:    "cmi.core.lesson_location",
	suspend:     "cmi.suspend_data",
	sessionTime: "cmi.core.session_time",
	exit:        "cmi.core.exit",
	totalTime:   "cmi.core.total_time",
	entry:       "cmi.core.entry",
	credit:      "cmi.core.credit",
	mode:        "cmi.core.lesson_mode",
}

var keys2004 = keySet{
	completion:      "cmi.completion_status",
	success:         "cmi.success_status",
	scoreRaw:        "cmi.score.raw",
	scoreMin:        "cmi.score.min",
	scoreMax:        "cmi.score.max",
	scoreScaled:     "cmi.score.scaled",
	progressMeasure: "cmi.progress_measure",
	location:        "cmi.location",
	suspend:         "cmi.suspend_data",
	sessionTime:     "cmi.session_time",
	exit:            "cmi.exit",
	totalTime:       "cmi.total_time",
	entry:           "cmi.entry",
	credit:          "cmi.credit",
	mode:            "cmi.mode",
}

// Session is one learner's live runtime conversation with one SCORM package.
// All calls are serialized.
type Session struct {
	mu    sync.Mutex
	log   *logger.Logger
	store AttemptStore
	retry RetryPolicy
	now   func() time.Time

	token       string
	version     training.ScormVersion
	model       *dataModel
	keys        keySet
	cfg         training.ScormConfig
	learnerName string
	launchData  string

	attempt *training.ScormAttempt
	// values holds everything the package wrote; it is what gets persisted.
	values map[string]string
	// runtime holds read-only values computed at initialize.
	runtime map[string]string

	state        lifecycle
	review       bool
	startedAt    time.Time
	lastActivity time.Time
	lastErr      Code
	lastDiag     string
	fatal        error
}

func newSession(b *Bridge, in OpenInput, cfg training.ScormConfig, version training.ScormVersion, attempt *training.ScormAttempt) *Session {
	now := b.now()
	s := &Session{
		store:        b.store,
		retry:        b.retry,
		now:          b.now,
		token:        uuid.NewString(),
		version:      version,
		model:        modelFor(version),
		cfg:          cfg,
		learnerName:  in.LearnerName,
		launchData:   in.LaunchData,
		values:       map[string]string{},
		runtime:      map[string]string{},
		lastActivity: now,
	}
	s.keys = keys12
	if version == training.ScormVersion2004 {
		s.keys = keys2004
	}
	s.log = b.log.With("scorm_session", s.token, "learner_id", in.LearnerID.String(), "scene_id", in.SceneID.String())

	if attempt == nil {
		attempt = &training.ScormAttempt{
			ID:            uuid.New(),
			LearnerID:     in.LearnerID,
			SceneID:       in.SceneID,
			ModuleID:      in.Module.ID,
			Version:       version,
			State:         training.AttemptNotAttempted,
			AttemptNumber: 1,
		}
	} else {
		attempt = cloneAttempt(attempt)
		if attempt.Version != version {
			s.log.Info("scorm version changed since last attempt, discarding runtime data",
				"from", string(attempt.Version), "to", string(version))
			attempt.Version = version
			attempt.Data = nil
			attempt.SuspendData = ""
			attempt.Location = ""
		}
		for k, v := range attempt.Data {
			s.values[k] = v
		}
		if attempt.SuspendData != "" {
			s.values[s.keys.suspend] = attempt.SuspendData
		}
	}
	s.attempt = attempt
	return s
}

func (s *Session) Token() string                  { return s.token }
func (s *Session) Version() training.ScormVersion { return s.version }
func (s *Session) LearnerID() uuid.UUID           { return s.attempt.LearnerID }
func (s *Session) SceneID() uuid.UUID             { return s.attempt.SceneID }
func (s *Session) ModuleID() uuid.UUID            { return s.attempt.ModuleID }

// Fatal returns the persistence failure that ended the session, if any.
func (s *Session) Fatal() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fatal
}

func (s *Session) Terminated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == lifecycleTerminated
}

// Review reports whether the session was opened without credit because attempts ran out.
func (s *Session) Review() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.review
}

func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Attempt returns a copy of the last persisted (or freshly created) attempt.
func (s *Session) Attempt() training.ScormAttempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *cloneAttempt(s.attempt)
}

// Initialize starts the runtime conversation and returns the session token.
func (s *Session) Initialize() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.fatal != nil {
		return "", s.fail(callInit, faultGeneral, "", "session is in a fatal state")
	}
	switch s.state {
	case lifecycleRunning:
		return "", s.fail(callInit, faultAlreadyInitialized, "", "already initialized")
	case lifecycleTerminated:
		if s.version == training.ScormVersion2004 {
			return "", s.fail(callInit, faultContentTerminated, "", "session already terminated")
		}
		return "", s.fail(callInit, faultAlreadyInitialized, "", "session already finished")
	}

	s.begin()
	s.state = lifecycleRunning
	s.startedAt = s.now()
	s.clearErr()
	s.log.Debug("scorm session initialized",
		"attempt", s.attempt.AttemptNumber,
		"state", string(s.attempt.State),
		"review", s.review,
	)
	return s.token, nil
}

// begin applies the attempt lifecycle and computes the read-only runtime values.
func (s *Session) begin() {
	k := s.keys
	lastExit := s.values[k.exit]
	delete(s.values, k.exit)
	delete(s.values, k.sessionTime)

	entry := ""
	a := s.attempt
	switch {
	case a.State.Terminal():
		maxAttempts := s.cfg.Completion.MaxAttempts
		if maxAttempts > 0 && a.AttemptNumber >= maxAttempts {
			s.review = true
			break
		}
		a.AttemptNumber++
		a.State = training.AttemptIncomplete
		s.resetAttemptData()
		entry = "ab-initio"
		if lastExit == "suspend" {
			entry = "resume"
		}
	case a.State == training.AttemptNotAttempted:
		a.State = training.AttemptIncomplete
		entry = "ab-initio"
	default:
		if lastExit == "suspend" {
			entry = "resume"
		}
	}

	credit, mode := "credit", "normal"
	if s.review {
		credit, mode = "no-credit", "review"
	}

	rt := map[string]string{
		k.entry:  entry,
		k.credit: credit,
		k.mode:   mode,
	}
	if s.version == training.ScormVersion2004 {
		rt["cmi._version"] = "1.0"
		rt["cmi.learner_id"] = a.LearnerID.String()
		rt["cmi.learner_name"] = s.learnerName
		rt[k.totalTime] = FormatDuration(a.TotalTimeSeconds)
		rt[k.completion] = "unknown"
		rt[k.success] = "unknown"
		if t := s.cfg.Completion.CompletionThreshold; t != nil {
			rt["cmi.completion_threshold"] = formatDecimal(*t)
		}
		if m := s.cfg.Completion.MasteryScore; m != nil {
			rt["cmi.scaled_passing_score"] = formatDecimal(*m / 100)
		}
		if s.launchData != "" {
			rt["cmi.launch_data"] = s.launchData
		}
	} else {
		rt["cmi.core.student_id"] = a.LearnerID.String()
		rt["cmi.core.student_name"] = s.learnerName
		rt[k.totalTime] = FormatTimespan12(a.TotalTimeSeconds)
		rt[k.status] = "not attempted"
		rt["cmi.launch_data"] = s.launchData
		rt["cmi.comments_from_lms"] = ""
		rt["cmi.student_data.mastery_score"] = ""
		if m := s.cfg.Completion.MasteryScore; m != nil {
			rt["cmi.student_data.mastery_score"] = formatDecimal(*m)
		}
		rt["cmi.student_data.max_time_allowed"] = ""
		rt["cmi.student_data.time_limit_action"] = ""
	}
	s.runtime = rt
}

// resetAttemptData clears per-attempt results. Suspend data and location survive a retry.
func (s *Session) resetAttemptData() {
	k := s.keys
	for key := range s.values {
		switch {
		case key == k.suspend || key == k.location:
		case strings.HasPrefix(key, "cmi.learner_preference.") || strings.HasPrefix(key, "cmi.student_preference."):
		default:
			delete(s.values, key)
		}
	}
	s.attempt.ScoreRaw = nil
	s.attempt.ScoreScaled = nil
}

func (s *Session) GetValue(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if err := s.checkRunning(callGet); err != nil {
		return "", err
	}
	if key == "" {
		return "", s.fail(callGet, faultGetFailure, key, "empty element name")
	}
	pk, ok := parseKey(key)
	if !ok {
		return "", s.fail(callGet, faultUndefined, key, "malformed element name")
	}

	switch last := pk.parts[len(pk.parts)-1]; last {
	case "_children":
		base := strings.TrimSuffix(pk.normalized, "._children")
		if kids, ok := s.model.children[base]; ok {
			s.clearErr()
			return kids, nil
		}
		if s.model.known(base) {
			return "", s.fail(callGet, faultNoChildren, key, "element has no children")
		}
		return "", s.fail(callGet, faultUndefined, key, "undefined element")
	case "_count":
		base := strings.TrimSuffix(pk.normalized, "._count")
		if s.model.arrays[base] {
			s.clearErr()
			return strconv.Itoa(s.count(strings.TrimSuffix(pk.raw, "._count"))), nil
		}
		if s.model.known(base) {
			return "", s.fail(callGet, faultNoCount, key, "element is not an array")
		}
		return "", s.fail(callGet, faultUndefined, key, "undefined element")
	}

	el, ok := s.model.elements[pk.normalized]
	if !ok {
		return "", s.fail(callGet, faultUndefined, key, "undefined element")
	}
	if !el.readable() {
		return "", s.fail(callGet, faultWriteOnly, key, "element is write only")
	}
	for i, idx := range pk.indices {
		if idx >= s.count(pk.arrayPath(i)) {
			return "", s.fail(callGet, faultGetFailure, key, "array index out of range")
		}
	}
	if v, ok := s.lookup(pk.raw); ok {
		s.clearErr()
		return v, nil
	}
	if s.version == training.ScormVersion2004 {
		return "", s.fail(callGet, faultNotSet, key, "value not initialized")
	}
	s.clearErr()
	return "", nil
}

func (s *Session) SetValue(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if err := s.checkRunning(callSet); err != nil {
		return err
	}
	if key == "" {
		return s.fail(callSet, faultSetFailure, key, "empty element name")
	}
	pk, ok := parseKey(key)
	if !ok {
		return s.fail(callSet, faultUndefined, key, "malformed element name")
	}
	if last := pk.parts[len(pk.parts)-1]; last == "_children" || last == "_count" {
		base := strings.TrimSuffix(pk.normalized, "."+last)
		if s.model.known(base) {
			return s.fail(callSet, faultKeyword, key, "element is a keyword")
		}
		return s.fail(callSet, faultUndefined, key, "undefined element")
	}

	el, ok := s.model.elements[pk.normalized]
	if !ok {
		return s.fail(callSet, faultUndefined, key, "undefined element")
	}
	if !el.writable() {
		return s.fail(callSet, faultReadOnly, key, "element is read only")
	}
	for i, idx := range pk.indices {
		n := s.count(pk.arrayPath(i))
		if idx > n {
			return s.fail(callSet, faultSetFailure, key, "array index skips an entry")
		}
		if idx == n && s.version == training.ScormVersion2004 && s.model.idFirst[pk.normalizedArray(i)] && pk.fieldAfter(i) != "id" {
			return s.fail(callSet, faultDependency, key, "id must be set before other fields")
		}
	}

	override := 0
	if pk.raw == s.keys.suspend && s.cfg.Data.SuspendDataLimit > 0 {
		override = s.cfg.Data.SuspendDataLimit
	}
	if f := el.check(value, override); f != 0 {
		diag := "value has the wrong type"
		if f == faultRange {
			diag = "value out of range"
		}
		return s.fail(callSet, f, key, diag)
	}

	s.values[pk.raw] = value
	s.clearErr()
	return nil
}

// Commit flushes the current values to the attempt store, retrying transient failures.
func (s *Session) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if err := s.checkRunning(callCommit); err != nil {
		return err
	}
	s.evaluate(false)
	if err := s.persist(ctx, 0); err != nil {
		return s.fail(callCommit, faultCommit, "", err.Error())
	}
	s.clearErr()
	return nil
}

// Finish ends the session: session time is folded into total time, final status is
// decided and the attempt is persisted.
func (s *Session) Finish(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if err := s.checkRunning(callTerminate); err != nil {
		return err
	}
	if s.review {
		s.state = lifecycleTerminated
		s.clearErr()
		return nil
	}

	elapsed := s.sessionSeconds()
	s.evaluate(true)
	if err := s.persist(ctx, elapsed); err != nil {
		return s.fail(callTerminate, faultCommit, "", err.Error())
	}
	s.state = lifecycleTerminated
	s.clearErr()
	s.log.Debug("scorm session finished",
		"state", string(s.attempt.State),
		"session_seconds", elapsed,
		"total_seconds", s.attempt.TotalTimeSeconds,
	)
	return nil
}

func (s *Session) GetLastError() Code {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Session) GetErrorString(code Code) string {
	return ErrorString(s.version, code)
}

// GetDiagnostic returns detail for the last error when code is empty or matches it.
func (s *Session) GetDiagnostic(code string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	code = strings.TrimSpace(code)
	if code == "" || code == s.lastErr.String() {
		if s.lastDiag != "" {
			return s.lastDiag
		}
		return ErrorString(s.version, s.lastErr)
	}
	n, err := strconv.Atoi(code)
	if err != nil {
		return ""
	}
	return ErrorString(s.version, Code(n))
}

func (s *Session) checkRunning(c call) error {
	if s.fatal != nil {
		return s.fail(c, faultGeneral, "", "session is in a fatal state")
	}
	switch s.state {
	case lifecycleFresh:
		return s.fail(c, faultNotInitialized, "", "not initialized")
	case lifecycleTerminated:
		return s.fail(c, faultTerminated, "", "session already terminated")
	}
	return nil
}

func (s *Session) lookup(key string) (string, bool) {
	if v, ok := s.values[key]; ok {
		return v, true
	}
	v, ok := s.runtime[key]
	return v, ok
}

// count returns the number of entries in the concrete array path.
func (s *Session) count(arrayPath string) int {
	prefix := arrayPath + "."
	n := 0
	scan := func(m map[string]string) {
		for key := range m {
			if !strings.HasPrefix(key, prefix) {
				continue
			}
			rest := key[len(prefix):]
			if i := strings.IndexByte(rest, '.'); i >= 0 {
				rest = rest[:i]
			}
			if idx, err := strconv.Atoi(rest); err == nil && idx+1 > n {
				n = idx + 1
			}
		}
	}
	scan(s.values)
	scan(s.runtime)
	return n
}

// sessionSeconds prefers the session time reported by the package and falls back to wall clock.
func (s *Session) sessionSeconds() float64 {
	if raw, ok := s.values[s.keys.sessionTime]; ok {
		var (
			secs float64
			err  error
		)
		if s.version == training.ScormVersion2004 {
			secs, err = ParseDuration(raw)
		} else {
			secs, err = ParseTimespan12(raw)
		}
		if err == nil {
			return secs
		}
	}
	if s.startedAt.IsZero() {
		return 0
	}
	return s.now().Sub(s.startedAt).Seconds()
}

// evaluate applies the LMS-side status rules to the package's values.
func (s *Session) evaluate(final bool) {
	k := s.keys
	if s.version == training.ScormVersion2004 {
		if t := s.cfg.Completion.CompletionThreshold; t != nil {
			if pm, ok := s.decimal(k.progressMeasure); ok {
				if pm >= *t {
					s.values[k.completion] = "completed"
				} else {
					s.values[k.completion] = "incomplete"
				}
			}
		}
		if m := s.cfg.Completion.MasteryScore; m != nil {
			if scaled, ok := s.decimal(k.scoreScaled); ok {
				if scaled >= *m/100 {
					s.values[k.success] = "passed"
				} else {
					s.values[k.success] = "failed"
				}
			}
		}
		return
	}

	if !final {
		return
	}
	status := s.values[k.status]
	if status == "" || status == "not attempted" {
		status = "completed"
	}
	if m := s.cfg.Completion.MasteryScore; m != nil && status != "incomplete" && status != "browsed" {
		if raw, ok := s.decimal(k.scoreRaw); ok {
			if raw >= *m {
				status = "passed"
			} else {
				status = "failed"
			}
		}
	}
	s.values[k.status] = status
}

func (s *Session) deriveState() training.AttemptState {
	k := s.keys
	if s.version == training.ScormVersion2004 {
		switch s.values[k.success] {
		case "passed":
			return training.AttemptPassed
		case "failed":
			return training.AttemptFailed
		}
		if s.values[k.completion] == "completed" {
			return training.AttemptCompleted
		}
		return training.AttemptIncomplete
	}
	switch s.values[k.status] {
	case "passed":
		return training.AttemptPassed
	case "failed":
		return training.AttemptFailed
	case "completed", "browsed":
		return training.AttemptCompleted
	}
	return training.AttemptIncomplete
}

func (s *Session) decimal(key string) (float64, bool) {
	v, ok := s.values[key]
	if !ok {
		return 0, false
	}
	return parseDecimal(v)
}

// persist snapshots the session into an attempt plus progress row and saves both.
// The write is detached from ctx: packages often call LMSFinish from an unload handler
// whose request the browser aborts. A store failure after retries makes the session
// fatal; running out of time does not, so a later commit can still land.
func (s *Session) persist(ctx context.Context, addSeconds float64) error {
	if s.review {
		return nil
	}
	k := s.keys
	now := s.now()

	next := cloneAttempt(s.attempt)
	next.State = s.deriveState()
	next.SuspendData = s.values[k.suspend]
	next.Location = s.values[k.location]
	next.ScoreRaw = nil
	next.ScoreScaled = nil
	if v, ok := s.decimal(k.scoreRaw); ok {
		next.ScoreRaw = &v
	}
	if k.scoreScaled != "" {
		if v, ok := s.decimal(k.scoreScaled); ok {
			next.ScoreScaled = &v
		}
	}
	next.TotalTimeSeconds += addSeconds
	next.Data = make(training.CMIData, len(s.values))
	for key, v := range s.values {
		if key == k.suspend || key == k.sessionTime {
			continue
		}
		next.Data[key] = v
	}
	if next.CreatedAt.IsZero() {
		next.CreatedAt = now
	}
	next.UpdatedAt = now

	progress := s.progressFor(next, now)
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.retry.normalized().Timeout)
	defer cancel()
	err := s.retry.do(storeCtx, s.log, "save_attempt", func(ctx context.Context) error {
		return s.store.SaveAttempt(ctx, next, progress)
	})
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.log.Warn("scorm commit timed out", "error", err.Error(), "attempt", next.AttemptNumber)
		return err
	}
	if err != nil {
		s.fatal = err
		s.log.Error("scorm commit failed", "error", err.Error(), "attempt", next.AttemptNumber)
		return err
	}
	s.attempt = next
	return nil
}

func (s *Session) progressFor(a *training.ScormAttempt, now time.Time) *training.SceneProgress {
	p := &training.SceneProgress{
		LearnerID:        a.LearnerID,
		SceneID:          a.SceneID,
		ModuleID:         a.ModuleID,
		Attempts:         a.AttemptNumber,
		TimeSpentSeconds: int64(math.Round(a.TotalTimeSeconds)),
		LastAccessedAt:   now,
		Score:            normalizedScore(a, s.keys),
	}
	switch a.State {
	case training.AttemptPassed:
		p.Status = training.ProgressPassed
	case training.AttemptFailed:
		p.Status = training.ProgressFailed
	case training.AttemptCompleted:
		p.Status = training.ProgressCompleted
	case training.AttemptIncomplete:
		p.Status = training.ProgressInProgress
	default:
		p.Status = training.ProgressNotStarted
	}
	p.Completed = a.State.Terminal()
	if s.cfg.Completion.RequireSuccess {
		p.Completed = a.State == training.AttemptPassed
	}
	return p
}

// normalizedScore maps the attempt's score onto 0..100: scaled first, then raw within min/max, then raw.
func normalizedScore(a *training.ScormAttempt, k keySet) *float64 {
	var v float64
	switch {
	case a.ScoreScaled != nil:
		v = *a.ScoreScaled * 100
	case a.ScoreRaw != nil:
		v = *a.ScoreRaw
		lo, okLo := parseDecimal(a.Data[k.scoreMin])
		hi, okHi := parseDecimal(a.Data[k.scoreMax])
		if okLo && okHi && hi > lo {
			v = (*a.ScoreRaw - lo) / (hi - lo) * 100
		}
	default:
		return nil
	}
	v = math.Max(0, math.Min(100, v))
	return &v
}

func (s *Session) touch() { s.lastActivity = s.now() }

func (s *Session) clearErr() {
	s.lastErr = 0
	s.lastDiag = ""
}

func (s *Session) fail(c call, f fault, key, diag string) error {
	code := codeFor(s.version, c, f)
	s.lastErr = code
	s.lastDiag = diag
	s.log.Warn("scorm runtime error",
		"element", key,
		"code", int(code),
		"diagnostic", diag,
	)
	return &ProtocolError{Code: code, Diagnostic: diag}
}

func cloneAttempt(a *training.ScormAttempt) *training.ScormAttempt {
	out := *a
	if a.ScoreRaw != nil {
		v := *a.ScoreRaw
		out.ScoreRaw = &v
	}
	if a.ScoreScaled != nil {
		v := *a.ScoreScaled
		out.ScoreScaled = &v
	}
	if a.Data != nil {
		out.Data = make(training.CMIData, len(a.Data))
		for k, v := range a.Data {
			out.Data[k] = v
		}
	}
	return &out
}

// rejectArgument records an argument error for calls whose parameter must be empty.
func (s *Session) rejectArgument(c call, diag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return s.fail(c, faultArgument, "", diag)
}
