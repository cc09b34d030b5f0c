package training

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownSceneType = errors.New("unknown scene type")

// SceneType is the closed set of content variants a scene can carry.
type SceneType string

const (
	SceneTypeVideo           SceneType = "video"
	SceneTypeImage           SceneType = "image"
	SceneTypeQuiz            SceneType = "quiz"
	SceneTypeDocument        SceneType = "document"
	SceneTypeScorm           SceneType = "scorm"
	SceneTypeDocumentBuilder SceneType = "document_builder"
)

// SceneTypes lists every variant in display order.
var SceneTypes = []SceneType{
	SceneTypeVideo,
	SceneTypeImage,
	SceneTypeQuiz,
	SceneTypeDocument,
	SceneTypeScorm,
	SceneTypeDocumentBuilder,
}

func (t SceneType) Valid() bool {
	for _, v := range SceneTypes {
		if v == t {
			return true
		}
	}
	return false
}

func ParseSceneType(raw string) (SceneType, error) {
	t := SceneType(strings.ToLower(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", fmt.Errorf("%w %q", ErrUnknownSceneType, raw)
	}
	return t, nil
}

type DifficultyLevel string

const (
	DifficultyBeginner     DifficultyLevel = "beginner"
	DifficultyIntermediate DifficultyLevel = "intermediate"
	DifficultyAdvanced     DifficultyLevel = "advanced"
)

type ModuleStatus string

const (
	ModuleStatusDraft     ModuleStatus = "draft"
	ModuleStatusPublished ModuleStatus = "published"
	ModuleStatusArchived  ModuleStatus = "archived"
)

type ScormVersion string

const (
	ScormVersion12   ScormVersion = "1.2"
	ScormVersion2004 ScormVersion = "2004"
)

func (v ScormVersion) Valid() bool {
	return v == ScormVersion12 || v == ScormVersion2004
}

type WCAGLevel string

const (
	WCAGLevelA   WCAGLevel = "A"
	WCAGLevelAA  WCAGLevel = "AA"
	WCAGLevelAAA WCAGLevel = "AAA"
)

func (l WCAGLevel) Valid() bool {
	return l == WCAGLevelA || l == WCAGLevelAA || l == WCAGLevelAAA
}

// SaveState tracks whether the in-memory module matches what was last persisted.
// It is never stored.
type SaveState string

const (
	SaveStateSaved   SaveState = "saved"
	SaveStateSaving  SaveState = "saving"
	SaveStateUnsaved SaveState = "unsaved"
)

type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionShortAnswer    QuestionType = "short_answer"
)
