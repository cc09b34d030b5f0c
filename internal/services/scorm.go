package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/trainforge-backend/internal/domain/training"
	"github.com/yungbote/trainforge-backend/internal/modules/training/scorm"
	"github.com/yungbote/trainforge-backend/internal/observability"
	"github.com/yungbote/trainforge-backend/internal/platform/logger"
)

var ErrSessionNotFound = errors.New("scorm session not found")

type ScormSessionInfo struct {
	Token      string                `json:"token"`
	Version    training.ScormVersion `json:"version"`
	ModuleID   uuid.UUID             `json:"module_id"`
	SceneID    uuid.UUID             `json:"scene_id"`
	PackageURL string                `json:"package_url"`
}

// ScormCallResult is what the runtime shim hands back to the package. Result is the
// string-typed return value; Fatal is set once persistence gave up for good.
type ScormCallResult struct {
	Result    string `json:"result"`
	ErrorCode string `json:"error_code"`
	Fatal     bool   `json:"fatal"`
}

type ScormService interface {
	OpenSession(ctx context.Context, actor Actor, moduleID, sceneID uuid.UUID, launchData string) (*ScormSessionInfo, error)
	Call(ctx context.Context, actor Actor, token, method string, args []string) (*ScormCallResult, error)
	// CloseSession finishes a running session and forgets it.
	CloseSession(ctx context.Context, actor Actor, token string) error
	// ReapIdle commits and drops sessions idle longer than the configured timeout.
	ReapIdle(ctx context.Context) int
	// Run reaps idle sessions until ctx is done.
	Run(ctx context.Context)
	Len() int
}

type ScormServiceConfig struct {
	IdleTimeout  time.Duration
	ReapInterval time.Duration
	Now          func() time.Time
}

type liveSession struct {
	api   *scorm.API
	owner uuid.UUID
	// fatalSeen keeps the commit-failure counter to one per session
	fatalSeen bool
}

type scormService struct {
	log      *logger.Logger
	training TrainingService
	bridge   *scorm.Bridge
	metrics  *observability.Metrics
	cfg      ScormServiceConfig

	mu       sync.Mutex
	sessions map[string]*liveSession
}

func NewScormService(baseLog *logger.Logger, trainingSvc TrainingService, bridge *scorm.Bridge, metrics *observability.Metrics, cfg ScormServiceConfig) ScormService {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Minute
	}
	if cfg.ReapInterval <= 0 {
		cfg.ReapInterval = time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &scormService{
		log:      baseLog.With("service", "ScormService"),
		training: trainingSvc,
		bridge:   bridge,
		metrics:  metrics,
		cfg:      cfg,
		sessions: map[string]*liveSession{},
	}
}

func (s *scormService) OpenSession(ctx context.Context, actor Actor, moduleID, sceneID uuid.UUID, launchData string) (*ScormSessionInfo, error) {
	m, err := s.training.PublishedModule(ctx, actor, moduleID)
	if err != nil {
		return nil, err
	}
	sess, err := s.bridge.Open(ctx, scorm.OpenInput{
		LearnerID:  actor.UserID,
		Module:     m,
		SceneID:    sceneID,
		LaunchData: launchData,
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.sessions[sess.Token()] = &liveSession{api: scorm.NewAPI(sess), owner: actor.UserID}
	s.mu.Unlock()
	s.metrics.ScormSessionOpened()

	scene := m.Scenes[m.SceneIndex(sceneID)]
	s.log.Info("OpenSession", "module_id", moduleID, "scene_id", sceneID, "learner_id", actor.UserID, "version", string(sess.Version()))
	return &ScormSessionInfo{
		Token:      sess.Token(),
		Version:    sess.Version(),
		ModuleID:   moduleID,
		SceneID:    sceneID,
		PackageURL: scene.ScormPackageURL,
	}, nil
}

func (s *scormService) lookup(actor Actor, token string) (*liveSession, error) {
	s.mu.Lock()
	ls, ok := s.sessions[token]
	s.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if ls.owner != actor.UserID {
		return nil, ErrForbidden
	}
	return ls, nil
}

func (s *scormService) Call(ctx context.Context, actor Actor, token, method string, args []string) (*ScormCallResult, error) {
	ls, err := s.lookup(actor, token)
	if err != nil {
		return nil, err
	}
	sess := ls.api.Session()
	version := string(sess.Version())

	res, err := ls.api.Dispatch(ctx, method, args)
	if err != nil {
		s.metrics.IncScormCall(version, method, "rejected")
		return nil, err
	}
	s.metrics.IncScormCall(version, method, res)

	out := &ScormCallResult{Result: res, ErrorCode: sess.GetLastError().String()}
	if fatal := sess.Fatal(); fatal != nil {
		out.Fatal = true
		s.mu.Lock()
		first := !ls.fatalSeen
		ls.fatalSeen = true
		s.mu.Unlock()
		if first {
			s.metrics.IncScormCommitFailure(version)
			s.log.Error("scorm session lost persistence", "token", token, "error", fatal)
		}
	}
	if sess.Terminated() {
		s.drop(token)
	}
	return out, nil
}

func (s *scormService) CloseSession(ctx context.Context, actor Actor, token string) error {
	ls, err := s.lookup(actor, token)
	if err != nil {
		return err
	}
	sess := ls.api.Session()
	defer s.drop(token)
	if sess.Terminated() || sess.Fatal() != nil {
		return nil
	}
	if err := sess.Finish(ctx); err != nil {
		var pe *scorm.ProtocolError
		if errors.As(err, &pe) && sess.Fatal() == nil {
			// never initialized; nothing to persist
			return nil
		}
		return err
	}
	return nil
}

func (s *scormService) drop(token string) {
	s.mu.Lock()
	_, ok := s.sessions[token]
	delete(s.sessions, token)
	s.mu.Unlock()
	if ok {
		s.metrics.ScormSessionClosed()
	}
}

func (s *scormService) ReapIdle(ctx context.Context) int {
	cutoff := s.cfg.Now().Add(-s.cfg.IdleTimeout)
	var idle []string
	s.mu.Lock()
	for token, ls := range s.sessions {
		if ls.api.Session().LastActivity().Before(cutoff) {
			idle = append(idle, token)
		}
	}
	s.mu.Unlock()

	for _, token := range idle {
		s.mu.Lock()
		ls, ok := s.sessions[token]
		s.mu.Unlock()
		if !ok {
			continue
		}
		sess := ls.api.Session()
		if !sess.Terminated() && sess.Fatal() == nil {
			// keep what the learner did so the next launch resumes
			if err := sess.Commit(ctx); err != nil {
				s.log.Debug("idle session commit skipped", "token", token, "error", err)
			}
		}
		s.drop(token)
	}
	if len(idle) > 0 {
		s.log.Info("reaped idle scorm sessions", "count", len(idle))
	}
	return len(idle)
}

func (s *scormService) Run(ctx context.Context) {
	t := time.NewTicker(s.cfg.ReapInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.ReapIdle(ctx)
		}
	}
}

func (s *scormService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
