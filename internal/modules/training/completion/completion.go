// Package completion decides whether a learner's progress satisfies a module's completion criteria.
package completion

import (
	"math"

	"github.com/google/uuid"

	"github.com/yungbote/trainforge-backend/internal/domain/training"
)

type Reason string

const (
	ReasonNone                 Reason = ""
	ReasonMissingRequiredScene Reason = "MissingRequiredScene"
	ReasonScoreBelowThreshold  Reason = "ScoreBelowThreshold"
	ReasonInsufficientTime     Reason = "InsufficientTime"
)

// ExceptionTimeLimitExceeded is raised when the learner went past the max time window.
// It never fails the evaluation; a reviewer decides what to do with it.
const ExceptionTimeLimitExceeded = "TimeLimitExceeded"

// Weights resolves how much a scene type contributes to the module score.
// *content.Registry satisfies it.
type Weights interface {
	Weight(st training.SceneType) (weight float64, scored bool)
}

type Result struct {
	Passed bool   `json:"passed"`
	Reason Reason `json:"reason,omitempty"`
	// Fallback is true when no criteria were configured and every scene had to be completed.
	Fallback        bool        `json:"fallback"`
	MissingSceneIDs []uuid.UUID `json:"missing_scene_ids,omitempty"`
	// FailedQuizSceneIDs lists quiz scenes whose own passing score was not met.
	FailedQuizSceneIDs []uuid.UUID `json:"failed_quiz_scene_ids,omitempty"`
	// Score is the weighted mean of recorded scene scores, 0..100. HasScore is false when no
	// scored scene has reported yet.
	Score            float64  `json:"score"`
	HasScore         bool     `json:"has_score"`
	TimeSpentMinutes float64  `json:"time_spent_minutes"`
	Exceptions       []string `json:"exceptions,omitempty"`
}

type Evaluator struct {
	weights Weights
}

func New(weights Weights) *Evaluator {
	return &Evaluator{weights: weights}
}

// Evaluate checks required scenes, then the score, then time spent. Reason carries the first
// failing check; the other fields are always filled in.
func (e *Evaluator) Evaluate(m *training.TrainingModule, p training.LearnerProgress) Result {
	res := Result{TimeSpentMinutes: float64(p.TotalTimeSpentSeconds) / 60}
	if m == nil {
		res.Reason = ReasonMissingRequiredScene
		return res
	}
	res.Score, res.HasScore = e.aggregateScore(m, p)

	criteria := m.Criteria()
	if !configured(criteria) {
		res.Fallback = true
		for _, s := range m.Scenes {
			if !p.Scenes[s.ID].Completed {
				res.MissingSceneIDs = append(res.MissingSceneIDs, s.ID)
			}
		}
		if len(res.MissingSceneIDs) > 0 {
			res.Reason = ReasonMissingRequiredScene
			return res
		}
		res.Passed = true
		return res
	}

	for _, id := range RequiredSceneIDs(m) {
		if !p.Scenes[id].Completed {
			res.MissingSceneIDs = append(res.MissingSceneIDs, id)
		}
	}

	for _, s := range m.Scenes {
		if s.SceneType != training.SceneTypeQuiz || s.Metadata.Quiz == nil {
			continue
		}
		r, ok := p.Scenes[s.ID]
		if !ok || r.Score == nil {
			continue
		}
		if *r.Score < float64(s.Metadata.Quiz.PassingScore) {
			res.FailedQuizSceneIDs = append(res.FailedQuizSceneIDs, s.ID)
		}
	}

	scoreOK := len(res.FailedQuizSceneIDs) == 0
	// a score floor with nothing reported counts as 0
	if criteria.MinScore > 0 && (!res.HasScore || res.Score < float64(criteria.MinScore)) {
		scoreOK = false
	}

	timeOK := true
	if criteria.MinTimeSpentMinutes != nil {
		timeOK = p.TotalTimeSpentSeconds >= int64(*criteria.MinTimeSpentMinutes)*60
	}
	if criteria.MaxTimeAllowedMinutes != nil && p.TotalTimeSpentSeconds > int64(*criteria.MaxTimeAllowedMinutes)*60 {
		res.Exceptions = append(res.Exceptions, ExceptionTimeLimitExceeded)
	}

	switch {
	case len(res.MissingSceneIDs) > 0:
		res.Reason = ReasonMissingRequiredScene
	case !scoreOK:
		res.Reason = ReasonScoreBelowThreshold
	case !timeOK:
		res.Reason = ReasonInsufficientTime
	default:
		res.Passed = true
	}
	return res
}

// RequiredSceneIDs is the union of the criteria's explicit list and every scene flagged
// IsRequired, in criteria order first, then module order.
func RequiredSceneIDs(m *training.TrainingModule) []uuid.UUID {
	if m == nil {
		return nil
	}
	seen := map[uuid.UUID]bool{}
	var out []uuid.UUID
	if c := m.Criteria(); c != nil {
		for _, id := range c.RequiredSceneIDs {
			if id == uuid.Nil || seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, s := range m.Scenes {
		if s.IsRequired && !seen[s.ID] {
			seen[s.ID] = true
			out = append(out, s.ID)
		}
	}
	return out
}

func (e *Evaluator) aggregateScore(m *training.TrainingModule, p training.LearnerProgress) (float64, bool) {
	var sum, total float64
	for _, s := range m.Scenes {
		r, ok := p.Scenes[s.ID]
		if !ok || r.Score == nil {
			continue
		}
		w, scored := 1.0, s.SceneType == training.SceneTypeQuiz || s.SceneType == training.SceneTypeScorm
		if e.weights != nil {
			w, scored = e.weights.Weight(s.SceneType)
		}
		if !scored || w <= 0 {
			continue
		}
		sum += clamp(*r.Score) * w
		total += w
	}
	if total == 0 {
		return 0, false
	}
	return math.Round(sum/total*100) / 100, true
}

// configured reports whether the author set any criterion at all.
func configured(c *training.CompletionCriteria) bool {
	if c == nil {
		return false
	}
	return c.MinScore > 0 || len(c.RequiredSceneIDs) > 0 || c.MinTimeSpentMinutes != nil || c.MaxTimeAllowedMinutes != nil
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
