package content

import (
	"fmt"
	"path"
	"strings"

	"github.com/yungbote/trainforge-backend/internal/domain/training"
)

// UploadTarget names the scene field an uploaded asset populates.
type UploadTarget string

const (
	TargetContentURL      UploadTarget = "content_url"
	TargetScormPackageURL UploadTarget = "scorm_package_url"
	TargetInline          UploadTarget = "inline"
)

func (t UploadTarget) valid() bool {
	return t == TargetContentURL || t == TargetScormPackageURL || t == TargetInline
}

// Adapter is the per-scene-type rule set for uploads, publish readiness and scoring.
type Adapter interface {
	Type() training.SceneType
	UploadTarget() UploadTarget
	// CheckUpload returns a *training.UploadError when the file cannot back this scene type.
	CheckUpload(filename, mimeType string, size int64) error
	// MaxUploadBytes caps the streamed size. Zero means no per-type cap.
	MaxUploadBytes() int64
	// CheckComplete lists what keeps the scene from being publishable. Empty means ready.
	CheckComplete(scene training.TrainingScene) []training.Issue
	// ScoreWeight is the scene's share of the module score. Only meaningful when Scored.
	ScoreWeight() float64
	Scored() bool
}

type completeFunc func(scene training.TrainingScene) []string

type ruleAdapter struct {
	rules
	complete completeFunc
}

func (a ruleAdapter) Type() training.SceneType   { return a.sceneType }
func (a ruleAdapter) UploadTarget() UploadTarget { return a.target }
func (a ruleAdapter) ScoreWeight() float64       { return a.weight }
func (a ruleAdapter) Scored() bool               { return a.scored }
func (a ruleAdapter) MaxUploadBytes() int64      { return a.maxUploadBytes }

func (a ruleAdapter) CheckUpload(filename, mimeType string, size int64) error {
	name := strings.TrimSpace(filename)
	if a.target == TargetInline {
		return &training.UploadError{
			Reason:   training.UploadNotAccepted,
			Filename: name,
			Message:  fmt.Sprintf("%s scenes are authored inline and accept no uploads", a.sceneType),
		}
	}
	if name == "" {
		return &training.UploadError{Reason: training.UploadWrongType, Message: "missing filename"}
	}
	ext := strings.ToLower(path.Ext(name))
	if !containsString(a.extensions, ext) {
		return &training.UploadError{
			Reason:   training.UploadWrongType,
			Filename: name,
			Message:  fmt.Sprintf("%s scenes accept %s", a.sceneType, strings.Join(a.extensions, ", ")),
		}
	}
	if mt := normalizeMime(mimeType); mt != "" && len(a.mimeFamilies) > 0 && !hasPrefixAny(mt, a.mimeFamilies) {
		return &training.UploadError{
			Reason:   training.UploadWrongType,
			Filename: name,
			Message:  fmt.Sprintf("content type %q not accepted for %s scenes", mt, a.sceneType),
		}
	}
	if a.maxUploadBytes > 0 && size > a.maxUploadBytes {
		return &training.UploadError{
			Reason:   training.UploadTooLarge,
			Filename: name,
			Message:  fmt.Sprintf("%d bytes exceeds limit of %d", size, a.maxUploadBytes),
		}
	}
	return nil
}

func (a ruleAdapter) CheckComplete(scene training.TrainingScene) []training.Issue {
	var msgs []string
	if strings.TrimSpace(scene.Title) == "" {
		msgs = append(msgs, "title is empty")
	}
	if scene.EstimatedDurationMinutes < 1 {
		msgs = append(msgs, "estimated duration must be at least one minute")
	}
	if a.complete != nil {
		msgs = append(msgs, a.complete(scene)...)
	}
	if len(msgs) == 0 {
		return nil
	}
	id := scene.ID
	issues := make([]training.Issue, 0, len(msgs))
	for _, m := range msgs {
		issues = append(issues, training.Issue{
			Code:    training.IssueSceneIncomplete,
			SceneID: &id,
			Message: m,
		})
	}
	return issues
}

func completenessFor(st training.SceneType) completeFunc {
	switch st {
	case training.SceneTypeVideo, training.SceneTypeImage, training.SceneTypeDocument:
		return requireField("content url", func(s training.TrainingScene) string { return s.ContentURL })
	case training.SceneTypeScorm:
		return requireField("scorm package url", func(s training.TrainingScene) string { return s.ScormPackageURL })
	case training.SceneTypeDocumentBuilder:
		return requireField("document content", func(s training.TrainingScene) string { return s.DocumentContent })
	case training.SceneTypeQuiz:
		return quizComplete
	default:
		return nil
	}
}

func requireField(label string, get func(training.TrainingScene) string) completeFunc {
	return func(s training.TrainingScene) []string {
		if strings.TrimSpace(get(s)) == "" {
			return []string{label + " is not set"}
		}
		return nil
	}
}

func quizComplete(s training.TrainingScene) []string {
	q := s.Metadata.Quiz
	if q == nil {
		return []string{"quiz config is missing"}
	}
	if len(q.Questions) == 0 {
		return []string{"quiz has no questions"}
	}
	var out []string
	if err := q.Validate(); err != nil {
		out = append(out, err.Error())
	}
	for i, qq := range q.Questions {
		if qq.Type == training.QuestionMultipleChoice {
			if len(qq.Options) < 2 {
				out = append(out, fmt.Sprintf("question %d needs at least two options", i+1))
			} else if !containsString(qq.Options, qq.CorrectAnswer) {
				out = append(out, fmt.Sprintf("question %d correct answer is not one of its options", i+1))
			}
		}
	}
	return out
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func hasPrefixAny(v string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(v, p) {
			return true
		}
	}
	return false
}

func normalizeMime(mt string) string {
	mt = strings.ToLower(strings.TrimSpace(mt))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return mt
}
