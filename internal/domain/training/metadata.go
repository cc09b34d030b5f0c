package training

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// ModuleMetadata is the module-level settings bag stored as a single JSON column.
type ModuleMetadata struct {
	LearningObjectives    []string               `json:"learning_objectives,omitempty"`
	Prerequisites         []string               `json:"prerequisites,omitempty"`
	CompletionCriteria    *CompletionCriteria    `json:"completion_criteria,omitempty"`
	Accessibility         *AccessibilitySettings `json:"accessibility,omitempty"`
	Scorm                 *ScormConfig           `json:"scorm,omitempty"`
	CertificateTemplateID string                 `json:"certificate_template_id,omitempty"`
}

type CompletionCriteria struct {
	MinScore              int         `json:"min_score" validate:"min=0,max=100"`
	RequiredSceneIDs      []uuid.UUID `json:"required_scene_ids,omitempty"`
	MinTimeSpentMinutes   *int        `json:"min_time_spent_minutes,omitempty" validate:"omitempty,min=0"`
	MaxTimeAllowedMinutes *int        `json:"max_time_allowed_minutes,omitempty" validate:"omitempty,min=1"`
}

// AccessibilitySettings holds the WCAG target plus independent capability flags.
// ContrastRatio is informational and does not take part in scoring.
type AccessibilitySettings struct {
	WCAGLevel            WCAGLevel `json:"wcag_level" validate:"oneof=A AA AAA"`
	KeyboardNavigation   bool      `json:"keyboard_navigation"`
	ScreenReaderSupport  bool      `json:"screen_reader_support"`
	Captions             bool      `json:"captions"`
	AudioDescriptions    bool      `json:"audio_descriptions"`
	Transcripts          bool      `json:"transcripts"`
	AltText              bool      `json:"alt_text"`
	HighContrastMode     bool      `json:"high_contrast_mode"`
	ResizableText        bool      `json:"resizable_text"`
	FocusIndicators      bool      `json:"focus_indicators"`
	SkipLinks            bool      `json:"skip_links"`
	ReducedMotion        bool      `json:"reduced_motion"`
	SignLanguage         bool      `json:"sign_language"`
	ColorBlindFriendly   bool      `json:"color_blind_friendly"`
	ClearLanguage        bool      `json:"clear_language"`
	ExtendedTimeLimits   bool      `json:"extended_time_limits"`
	ConsistentNavigation bool      `json:"consistent_navigation"`
	ContrastRatio        float64   `json:"contrast_ratio" validate:"min=0,max=21"`
}

type ScormConfig struct {
	Enabled    bool                  `json:"enabled"`
	Version    ScormVersion          `json:"version" validate:"omitempty,oneof=1.2 2004"`
	Launch     ScormLaunchConfig     `json:"launch"`
	Completion ScormCompletionConfig `json:"completion"`
	Data       ScormDataConfig       `json:"data"`
	Security   ScormSecurityConfig   `json:"security"`
	Display    ScormDisplayConfig    `json:"display"`
}

type ScormLaunchConfig struct {
	// Mode is inline or popup.
	Mode       string `json:"mode,omitempty" validate:"omitempty,oneof=inline popup"`
	EntryPoint string `json:"entry_point,omitempty"`
	Parameters string `json:"parameters,omitempty"`
	Width      int    `json:"width,omitempty" validate:"min=0"`
	Height     int    `json:"height,omitempty" validate:"min=0"`
}

type ScormCompletionConfig struct {
	MasteryScore        *float64 `json:"mastery_score,omitempty" validate:"omitempty,min=0,max=100"`
	CompletionThreshold *float64 `json:"completion_threshold,omitempty" validate:"omitempty,min=0,max=1"`
	MaxAttempts         int      `json:"max_attempts,omitempty" validate:"min=0"`
	RequireSuccess      bool     `json:"require_success,omitempty"`
}

type ScormDataConfig struct {
	// SuspendDataLimit caps cmi.suspend_data; zero uses the version default.
	SuspendDataLimit int `json:"suspend_data_limit,omitempty" validate:"min=0"`
}

type ScormSecurityConfig struct {
	AllowedOrigins []string `json:"allowed_origins,omitempty"`
	RequireHTTPS   bool     `json:"require_https,omitempty"`
}

type ScormDisplayConfig struct {
	ShowNavigation bool `json:"show_navigation"`
	ShowProgress   bool `json:"show_progress"`
	FullScreen     bool `json:"full_screen"`
}

// SceneMetadata carries the type-specific configuration of a scene.
type SceneMetadata struct {
	Quiz          *QuizConfig                 `json:"quiz_config,omitempty"`
	Media         *MediaConfig                `json:"media_config,omitempty"`
	Accessibility *SceneAccessibilityConfig   `json:"accessibility_config,omitempty"`
	Translations  map[string]SceneTranslation `json:"translations,omitempty"`
	AIGeneration  *AIGeneration               `json:"ai_generation,omitempty"`
}

type QuizConfig struct {
	Questions          []QuizQuestion `json:"questions" validate:"dive"`
	PassingScore       int            `json:"passing_score" validate:"min=0,max=100"`
	AllowRetries       bool           `json:"allow_retries"`
	MaxAttempts        int            `json:"max_attempts,omitempty" validate:"min=0"`
	RandomizeQuestions bool           `json:"randomize_questions,omitempty"`
	RandomizeAnswers   bool           `json:"randomize_answers,omitempty"`
	TimeLimitMinutes   *int           `json:"time_limit_minutes,omitempty" validate:"omitempty,min=1"`
}

type QuizQuestion struct {
	ID               string       `json:"id"`
	Type             QuestionType `json:"type" validate:"oneof=multiple_choice true_false short_answer"`
	Prompt           string       `json:"prompt" validate:"required"`
	Options          []string     `json:"options,omitempty"`
	CorrectAnswer    string       `json:"correct_answer" validate:"required"`
	Points           int          `json:"points" validate:"min=0"`
	Explanation      string       `json:"explanation,omitempty"`
	TimestampSeconds *float64     `json:"timestamp_seconds,omitempty" validate:"omitempty,min=0"`
}

type MediaConfig struct {
	Autoplay     bool     `json:"autoplay,omitempty"`
	ShowControls bool     `json:"show_controls"`
	Loop         bool     `json:"loop,omitempty"`
	StartSeconds *float64 `json:"start_seconds,omitempty"`
	EndSeconds   *float64 `json:"end_seconds,omitempty"`
	PosterURL    string   `json:"poster_url,omitempty"`
	MimeType     string   `json:"mime_type,omitempty"`
}

type SceneAccessibilityConfig struct {
	AltText             string `json:"alt_text,omitempty"`
	CaptionsURL         string `json:"captions_url,omitempty"`
	TranscriptURL       string `json:"transcript_url,omitempty"`
	AudioDescriptionURL string `json:"audio_description_url,omitempty"`
	SignLanguageURL     string `json:"sign_language_url,omitempty"`
}

type SceneTranslation struct {
	Title           string `json:"title,omitempty"`
	Description     string `json:"description,omitempty"`
	DocumentContent string `json:"document_content,omitempty"`
	CaptionsURL     string `json:"captions_url,omitempty"`
}

// AIGeneration records where generated content came from. It is provenance only.
type AIGeneration struct {
	Provider    string     `json:"provider,omitempty"`
	Model       string     `json:"model,omitempty"`
	Prompt      string     `json:"prompt,omitempty"`
	JobID       string     `json:"job_id,omitempty"`
	GeneratedAt *time.Time `json:"generated_at,omitempty"`
}

func (m ModuleMetadata) Value() (driver.Value, error) { return jsonValue(m) }
func (m *ModuleMetadata) Scan(src any) error          { return jsonScan(src, m) }
func (ModuleMetadata) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	return jsonColumnType(db)
}

func (m SceneMetadata) Value() (driver.Value, error) { return jsonValue(m) }
func (m *SceneMetadata) Scan(src any) error          { return jsonScan(src, m) }
func (SceneMetadata) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	return jsonColumnType(db)
}

// CMIData holds the SCORM data-model elements that have no dedicated column.
type CMIData map[string]string

func (d CMIData) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	return jsonValue(d)
}
func (d *CMIData) Scan(src any) error { return jsonScan(src, d) }
func (CMIData) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	return jsonColumnType(db)
}

func jsonValue(v any) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func jsonScan(src any, dst any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported json column type %T", src)
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func jsonColumnType(db *gorm.DB) string {
	if db != nil && db.Dialector != nil && db.Dialector.Name() == "postgres" {
		return "JSONB"
	}
	return "JSON"
}

func cloneJSON[T any](in T) T {
	var out T
	b, err := json.Marshal(in)
	if err != nil {
		return in
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return in
	}
	return out
}
