package training

import (
	"time"

	"github.com/google/uuid"
)

type ProgressStatus string

const (
	ProgressNotStarted ProgressStatus = "not_started"
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressCompleted  ProgressStatus = "completed"
	ProgressPassed     ProgressStatus = "passed"
	ProgressFailed     ProgressStatus = "failed"
)

// SceneProgress is one learner's record for one scene.
type SceneProgress struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	LearnerID        uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_scene_progress_learner_scene,priority:1" json:"learner_id"`
	SceneID          uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_scene_progress_learner_scene,priority:2" json:"scene_id"`
	ModuleID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"module_id"`
	Status           ProgressStatus `gorm:"column:status;not null" json:"status"`
	Completed        bool           `gorm:"column:completed;not null" json:"completed"`
	Score            *float64       `gorm:"column:score" json:"score,omitempty"`
	TimeSpentSeconds int64          `gorm:"column:time_spent_seconds;not null" json:"time_spent_seconds"`
	Attempts         int            `gorm:"column:attempts;not null" json:"attempts"`
	LastAccessedAt   time.Time      `gorm:"column:last_accessed_at;not null" json:"last_accessed_at"`
	CreatedAt        time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null" json:"updated_at"`
}

func (SceneProgress) TableName() string { return "scene_progress" }

// AttemptState is the lifecycle of a SCORM attempt, independent of the raw CMI status strings.
type AttemptState string

const (
	AttemptNotAttempted AttemptState = "not_attempted"
	AttemptIncomplete   AttemptState = "incomplete"
	AttemptCompleted    AttemptState = "completed"
	AttemptPassed       AttemptState = "passed"
	AttemptFailed       AttemptState = "failed"
)

func (s AttemptState) Terminal() bool {
	return s == AttemptCompleted || s == AttemptPassed || s == AttemptFailed
}

// ScormAttempt is the persisted runtime state of one learner in one SCORM scene.
type ScormAttempt struct {
	ID               uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	LearnerID        uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_scorm_attempt_learner_scene,priority:1" json:"learner_id"`
	SceneID          uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_scorm_attempt_learner_scene,priority:2" json:"scene_id"`
	ModuleID         uuid.UUID    `gorm:"type:uuid;not null;index" json:"module_id"`
	Version          ScormVersion `gorm:"column:version;not null" json:"version"`
	State            AttemptState `gorm:"column:state;not null" json:"state"`
	AttemptNumber    int          `gorm:"column:attempt_number;not null" json:"attempt_number"`
	SuspendData      string       `gorm:"column:suspend_data;type:text" json:"suspend_data,omitempty"`
	Location         string       `gorm:"column:location" json:"location,omitempty"`
	ScoreRaw         *float64     `gorm:"column:score_raw" json:"score_raw,omitempty"`
	ScoreScaled      *float64     `gorm:"column:score_scaled" json:"score_scaled,omitempty"`
	TotalTimeSeconds float64      `gorm:"column:total_time_seconds;not null" json:"total_time_seconds"`
	Data             CMIData      `gorm:"column:data" json:"data,omitempty"`
	CreatedAt        time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time    `gorm:"not null" json:"updated_at"`
}

func (ScormAttempt) TableName() string { return "scorm_attempt" }

// LearnerProgress is the evaluator's view of a learner's attempt at a module.
type LearnerProgress struct {
	LearnerID             uuid.UUID
	ModuleID              uuid.UUID
	Scenes                map[uuid.UUID]SceneResult
	TotalTimeSpentSeconds int64
}

type SceneResult struct {
	Completed bool
	// Score is 0..100 when the scene reported one.
	Score *float64
}

// ProgressFromRows folds scene progress rows into the evaluator's input.
func ProgressFromRows(learnerID, moduleID uuid.UUID, rows []SceneProgress) LearnerProgress {
	out := LearnerProgress{
		LearnerID: learnerID,
		ModuleID:  moduleID,
		Scenes:    make(map[uuid.UUID]SceneResult, len(rows)),
	}
	for _, r := range rows {
		out.Scenes[r.SceneID] = SceneResult{Completed: r.Completed, Score: r.Score}
		out.TotalTimeSpentSeconds += r.TimeSpentSeconds
	}
	return out
}
