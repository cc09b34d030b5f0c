package training

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks field-level constraints of a quiz config.
// Publish readiness (at least one question) is checked by the content adapter.
func (q *QuizConfig) Validate() error {
	if q == nil {
		return nil
	}
	return structIssues(q, nil)
}

// Validate checks field-level constraints of a scene, including nested metadata.
func (s *TrainingScene) Validate() error {
	if s == nil {
		return nil
	}
	id := s.ID
	return structIssues(s, &id)
}

// Validate checks the module's own fields and settings, not its scenes.
func (m *TrainingModule) Validate() error {
	if m == nil {
		return nil
	}
	if err := structIssues(m, nil); err != nil {
		return err
	}
	return m.Metadata.CompletionCriteria.Validate()
}

func (c *CompletionCriteria) Validate() error {
	if c == nil {
		return nil
	}
	if err := structIssues(c, nil); err != nil {
		return err
	}
	if c.MinTimeSpentMinutes != nil && c.MaxTimeAllowedMinutes != nil && *c.MaxTimeAllowedMinutes < *c.MinTimeSpentMinutes {
		return NewValidationError(Issue{
			Code:    IssueInvalidField,
			Field:   "max_time_allowed_minutes",
			Message: "max time allowed is below min time spent",
		})
	}
	return nil
}

func (a *AccessibilitySettings) Validate() error {
	if a == nil {
		return nil
	}
	return structIssues(a, nil)
}

func (c *ScormConfig) Validate() error {
	if c == nil {
		return nil
	}
	return structIssues(c, nil)
}

func structIssues(v any, sceneID *uuid.UUID) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	issues := make([]Issue, 0, len(verrs))
	for _, fe := range verrs {
		issues = append(issues, Issue{
			Code:    IssueInvalidField,
			SceneID: sceneID,
			Field:   fe.Namespace(),
			Message: fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()),
		})
	}
	return NewValidationError(issues...)
}
