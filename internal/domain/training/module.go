package training

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type TrainingModule struct {
	ID                       uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID                  uuid.UUID                   `gorm:"type:uuid;not null;index" json:"owner_id"`
	Title                    string                      `gorm:"column:title;not null" json:"title"`
	Description              string                      `gorm:"column:description;type:text" json:"description,omitempty"`
	Category                 string                      `gorm:"column:category;index" json:"category,omitempty"`
	Tags                     datatypes.JSONSlice[string] `gorm:"column:tags" json:"tags,omitempty"`
	Language                 string                      `gorm:"column:language" json:"language,omitempty"`
	Industry                 string                      `gorm:"column:industry" json:"industry,omitempty"`
	TargetRoles              datatypes.JSONSlice[string] `gorm:"column:target_roles" json:"target_roles,omitempty"`
	DifficultyLevel          DifficultyLevel             `gorm:"column:difficulty_level;not null" json:"difficulty_level" validate:"oneof=beginner intermediate advanced"`
	EstimatedDurationMinutes int                         `gorm:"column:estimated_duration_minutes;not null" json:"estimated_duration_minutes" validate:"min=0"`
	ScormCompatible          bool                        `gorm:"column:scorm_compatible;not null" json:"scorm_compatible"`
	ScormVersion             ScormVersion                `gorm:"column:scorm_version" json:"scorm_version,omitempty" validate:"omitempty,oneof=1.2 2004"`
	AccessibilityCompliant   bool                        `gorm:"column:accessibility_compliant;not null" json:"accessibility_compliant"`
	Status                   ModuleStatus                `gorm:"column:status;not null;index" json:"status"`
	Metadata                 ModuleMetadata              `gorm:"column:metadata" json:"metadata"`
	Scenes                   []TrainingScene             `gorm:"foreignKey:ModuleID;references:ID;constraint:OnDelete:CASCADE" json:"scenes"`
	CreatedAt                time.Time                   `gorm:"not null" json:"created_at"`
	UpdatedAt                time.Time                   `gorm:"not null" json:"updated_at"`
}

func (TrainingModule) TableName() string { return "training_module" }

type TrainingScene struct {
	ID                       uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	ModuleID                 uuid.UUID     `gorm:"type:uuid;not null;index" json:"module_id"`
	Title                    string        `gorm:"column:title;not null" json:"title" validate:"required"`
	Description              string        `gorm:"column:description;type:text" json:"description,omitempty"`
	SceneType                SceneType     `gorm:"column:scene_type;not null" json:"scene_type" validate:"oneof=video image quiz document scorm document_builder"`
	ContentURL               string        `gorm:"column:content_url" json:"content_url,omitempty"`
	ScormPackageURL          string        `gorm:"column:scorm_package_url" json:"scorm_package_url,omitempty"`
	DocumentContent          string        `gorm:"column:document_content;type:text" json:"document_content,omitempty"`
	OrderIndex               int           `gorm:"column:order_index;not null" json:"order_index"`
	EstimatedDurationMinutes int           `gorm:"column:estimated_duration_minutes;not null" json:"estimated_duration_minutes" validate:"min=1"`
	IsRequired               bool          `gorm:"column:is_required;not null" json:"is_required"`
	AutoAdvance              bool          `gorm:"column:auto_advance;not null" json:"auto_advance"`
	Metadata                 SceneMetadata `gorm:"column:metadata" json:"metadata"`
	CreatedAt                time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt                time.Time     `gorm:"not null" json:"updated_at"`
}

func (TrainingScene) TableName() string { return "training_scene" }

// NewModule returns a draft module with a fresh identity and no scenes.
func NewModule(ownerID uuid.UUID, title string) *TrainingModule {
	return &TrainingModule{
		ID:              uuid.New(),
		OwnerID:         ownerID,
		Title:           strings.TrimSpace(title),
		DifficultyLevel: DifficultyBeginner,
		Status:          ModuleStatusDraft,
		Scenes:          []TrainingScene{},
	}
}

// NewScene returns a scene with a fresh identity and the minimum duration.
func NewScene(moduleID uuid.UUID, sceneType SceneType, title string) TrainingScene {
	return TrainingScene{
		ID:                       uuid.New(),
		ModuleID:                 moduleID,
		Title:                    strings.TrimSpace(title),
		SceneType:                sceneType,
		EstimatedDurationMinutes: 1,
	}
}

// Clone deep-copies the module and its scenes. Identities are kept.
func (m *TrainingModule) Clone() *TrainingModule {
	if m == nil {
		return nil
	}
	out := *m
	out.Tags = append(datatypes.JSONSlice[string](nil), m.Tags...)
	out.TargetRoles = append(datatypes.JSONSlice[string](nil), m.TargetRoles...)
	out.Metadata = cloneJSON(m.Metadata)
	out.Scenes = make([]TrainingScene, len(m.Scenes))
	for i := range m.Scenes {
		out.Scenes[i] = m.Scenes[i].Clone()
	}
	return &out
}

// Clone deep-copies the scene. The identity is kept.
func (s TrainingScene) Clone() TrainingScene {
	out := s
	out.Metadata = cloneJSON(s.Metadata)
	return out
}

// SceneIndex returns the index of the scene with id, or -1.
func (m *TrainingModule) SceneIndex(id uuid.UUID) int {
	if m == nil {
		return -1
	}
	for i := range m.Scenes {
		if m.Scenes[i].ID == id {
			return i
		}
	}
	return -1
}

// Criteria returns the configured completion criteria, or nil.
func (m *TrainingModule) Criteria() *CompletionCriteria {
	if m == nil {
		return nil
	}
	return m.Metadata.CompletionCriteria
}

// EffectiveScormVersion resolves the SCORM version from the scorm config, then the module flag.
func (m *TrainingModule) EffectiveScormVersion() ScormVersion {
	if m == nil {
		return ScormVersion12
	}
	if cfg := m.Metadata.Scorm; cfg != nil && cfg.Version.Valid() {
		return cfg.Version
	}
	if m.ScormVersion.Valid() {
		return m.ScormVersion
	}
	return ScormVersion12
}
