package training

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/trainforge-backend/internal/domain/training"
	"github.com/yungbote/trainforge-backend/internal/platform/dbctx"
	"github.com/yungbote/trainforge-backend/internal/platform/logger"
)

type ScormAttemptRepo interface {
	// Upsert keys on (learner_id, scene_id). The first row's id and created_at are kept.
	Upsert(dbc dbctx.Context, row *types.ScormAttempt) error

	GetByLearnerScene(dbc dbctx.Context, learnerID, sceneID uuid.UUID) (*types.ScormAttempt, error)
	ListByLearnerModule(dbc dbctx.Context, learnerID, moduleID uuid.UUID) ([]*types.ScormAttempt, error)

	FullDeleteByModule(dbc dbctx.Context, moduleID uuid.UUID) error
	FullDeleteByScenes(dbc dbctx.Context, sceneIDs []uuid.UUID) error
}

type scormAttemptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewScormAttemptRepo(db *gorm.DB, baseLog *logger.Logger) ScormAttemptRepo {
	return &scormAttemptRepo{db: db, log: baseLog.With("repo", "ScormAttemptRepo")}
}

func (r *scormAttemptRepo) Upsert(dbc dbctx.Context, row *types.ScormAttempt) error {
	if row == nil {
		return nil
	}
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "learner_id"}, {Name: "scene_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"module_id",
				"version",
				"state",
				"attempt_number",
				"suspend_data",
				"location",
				"score_raw",
				"score_scaled",
				"total_time_seconds",
				"data",
				"updated_at",
			}),
		}).
		Create(row).Error
}

func (r *scormAttemptRepo) GetByLearnerScene(dbc dbctx.Context, learnerID, sceneID uuid.UUID) (*types.ScormAttempt, error) {
	if learnerID == uuid.Nil || sceneID == uuid.Nil {
		return nil, nil
	}
	var out []*types.ScormAttempt
	if err := dbc.DB(r.db).
		Where("learner_id = ? AND scene_id = ?", learnerID, sceneID).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *scormAttemptRepo) ListByLearnerModule(dbc dbctx.Context, learnerID, moduleID uuid.UUID) ([]*types.ScormAttempt, error) {
	var out []*types.ScormAttempt
	if learnerID == uuid.Nil || moduleID == uuid.Nil {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("learner_id = ? AND module_id = ?", learnerID, moduleID).
		Order("updated_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *scormAttemptRepo) FullDeleteByModule(dbc dbctx.Context, moduleID uuid.UUID) error {
	if moduleID == uuid.Nil {
		return nil
	}
	return dbc.DB(r.db).
		Where("module_id = ?", moduleID).
		Delete(&types.ScormAttempt{}).Error
}

func (r *scormAttemptRepo) FullDeleteByScenes(dbc dbctx.Context, sceneIDs []uuid.UUID) error {
	if len(sceneIDs) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Where("scene_id IN ?", sceneIDs).
		Delete(&types.ScormAttempt{}).Error
}
