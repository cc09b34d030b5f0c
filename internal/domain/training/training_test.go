package training

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestParseSceneType(t *testing.T) {
	for _, st := range SceneTypes {
		got, err := ParseSceneType(" " + string(st) + " ")
		if err != nil || got != st {
			t.Fatalf("ParseSceneType(%q): got=%q err=%v", st, got, err)
		}
	}
	if _, err := ParseSceneType("hologram"); err == nil {
		t.Fatalf("expected error for unknown scene type")
	}
}

func TestModuleCloneIsDeep(t *testing.T) {
	m := NewModule(uuid.New(), "Forklift safety")
	m.Tags = []string{"safety"}
	s := NewScene(m.ID, SceneTypeQuiz, "Check")
	s.Metadata.Quiz = &QuizConfig{PassingScore: 70, Questions: []QuizQuestion{{ID: "q1", Type: QuestionTrueFalse, Prompt: "p", CorrectAnswer: "true"}}}
	m.Scenes = append(m.Scenes, s)

	c := m.Clone()
	c.Tags[0] = "changed"
	c.Scenes[0].Metadata.Quiz.Questions[0].Prompt = "changed"
	c.Scenes[0].Title = "changed"

	if m.Tags[0] != "safety" {
		t.Fatalf("tags aliased: got=%v", m.Tags)
	}
	if m.Scenes[0].Metadata.Quiz.Questions[0].Prompt != "p" {
		t.Fatalf("quiz metadata aliased")
	}
	if m.Scenes[0].Title != "Check" {
		t.Fatalf("scene aliased")
	}
	if c.ID != m.ID || c.Scenes[0].ID != s.ID {
		t.Fatalf("clone must keep identities")
	}
}

func TestSceneValidate(t *testing.T) {
	s := NewScene(uuid.New(), SceneTypeQuiz, "Quiz")
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	s.EstimatedDurationMinutes = 0
	err := s.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got=%v", err)
	}
	if verr.Issues[0].SceneID == nil || *verr.Issues[0].SceneID != s.ID {
		t.Fatalf("issue should carry scene id")
	}

	s.EstimatedDurationMinutes = 1
	s.Metadata.Quiz = &QuizConfig{PassingScore: 120}
	if err := s.Validate(); err == nil {
		t.Fatalf("expected passing score out of range to fail")
	}
}

func TestQuizValidateDivesIntoQuestions(t *testing.T) {
	q := &QuizConfig{PassingScore: 70, Questions: []QuizQuestion{{Type: "essay", Prompt: "p", CorrectAnswer: "a"}}}
	if err := q.Validate(); err == nil {
		t.Fatalf("expected unknown question type to fail")
	}
	q.Questions[0].Type = QuestionMultipleChoice
	if err := q.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestCompletionCriteriaValidateWindow(t *testing.T) {
	minT, maxT := 30, 10
	c := &CompletionCriteria{MinScore: 80, MinTimeSpentMinutes: &minT, MaxTimeAllowedMinutes: &maxT}
	var verr *ValidationError
	if err := c.Validate(); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got=%v", err)
	}
	maxT = 60
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestMetadataScanRoundTrip(t *testing.T) {
	in := ModuleMetadata{
		LearningObjectives: []string{"lift safely"},
		CompletionCriteria: &CompletionCriteria{MinScore: 80, RequiredSceneIDs: []uuid.UUID{uuid.New()}},
	}
	v, err := in.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	var out ModuleMetadata
	if err := out.Scan([]byte(v.(string))); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	a, _ := json.Marshal(in)
	b, _ := json.Marshal(out)
	if string(a) != string(b) {
		t.Fatalf("round trip mismatch: want=%s got=%s", a, b)
	}
	if err := out.Scan(nil); err != nil {
		t.Fatalf("Scan(nil): %v", err)
	}
}

func TestProgressFromRows(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	score := 90.0
	p := ProgressFromRows(uuid.New(), uuid.New(), []SceneProgress{
		{SceneID: a, Completed: true, Score: &score, TimeSpentSeconds: 60},
		{SceneID: b, TimeSpentSeconds: 30},
	})
	if p.TotalTimeSpentSeconds != 90 {
		t.Fatalf("total time: want=90 got=%d", p.TotalTimeSpentSeconds)
	}
	if !p.Scenes[a].Completed || p.Scenes[b].Completed {
		t.Fatalf("completion flags wrong: %+v", p.Scenes)
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := NewValidationError(Issue{Code: IssueNoScenes, Message: "no scenes"})
	if err.Error() != "validation failed: no scenes" {
		t.Fatalf("message: got=%q", err.Error())
	}
	if !err.HasCode(IssueNoScenes) || err.HasCode(IssueMissingTitle) {
		t.Fatalf("HasCode mismatch")
	}
}
