package training

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/trainforge-backend/internal/domain/training"
	"github.com/yungbote/trainforge-backend/internal/platform/dbctx"
	"github.com/yungbote/trainforge-backend/internal/platform/logger"
)

type SceneProgressRepo interface {
	// Upsert keys on (learner_id, scene_id). The first row's id and created_at are kept.
	Upsert(dbc dbctx.Context, row *types.SceneProgress) error

	GetByLearnerScene(dbc dbctx.Context, learnerID, sceneID uuid.UUID) (*types.SceneProgress, error)
	ListByLearnerModule(dbc dbctx.Context, learnerID, moduleID uuid.UUID) ([]*types.SceneProgress, error)
	ListByModule(dbc dbctx.Context, moduleID uuid.UUID) ([]*types.SceneProgress, error)

	FullDeleteByModule(dbc dbctx.Context, moduleID uuid.UUID) error
	FullDeleteByScenes(dbc dbctx.Context, sceneIDs []uuid.UUID) error
}

type sceneProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSceneProgressRepo(db *gorm.DB, baseLog *logger.Logger) SceneProgressRepo {
	return &sceneProgressRepo{db: db, log: baseLog.With("repo", "SceneProgressRepo")}
}

func (r *sceneProgressRepo) Upsert(dbc dbctx.Context, row *types.SceneProgress) error {
	if row == nil {
		return nil
	}
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "learner_id"}, {Name: "scene_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"module_id",
				"status",
				"completed",
				"score",
				"time_spent_seconds",
				"attempts",
				"last_accessed_at",
				"updated_at",
			}),
		}).
		Create(row).Error
}

func (r *sceneProgressRepo) GetByLearnerScene(dbc dbctx.Context, learnerID, sceneID uuid.UUID) (*types.SceneProgress, error) {
	if learnerID == uuid.Nil || sceneID == uuid.Nil {
		return nil, nil
	}
	var out []*types.SceneProgress
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

func (r *sceneProgressRepo) ListByLearnerModule(dbc dbctx.Context, learnerID, moduleID uuid.UUID) ([]*types.SceneProgress, error) {
	var out []*types.SceneProgress
	if learnerID == uuid.Nil || moduleID == uuid.Nil {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("learner_id = ? AND module_id = ?", learnerID, moduleID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *sceneProgressRepo) ListByModule(dbc dbctx.Context, moduleID uuid.UUID) ([]*types.SceneProgress, error) {
	var out []*types.SceneProgress
	if moduleID == uuid.Nil {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("module_id = ?", moduleID).
		Order("learner_id ASC, created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *sceneProgressRepo) FullDeleteByModule(dbc dbctx.Context, moduleID uuid.UUID) error {
	if moduleID == uuid.Nil {
		return nil
	}
	return dbc.DB(r.db).
		Where("module_id = ?", moduleID).
		Delete(&types.SceneProgress{}).Error
}

func (r *sceneProgressRepo) FullDeleteByScenes(dbc dbctx.Context, sceneIDs []uuid.UUID) error {
	if len(sceneIDs) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Where("scene_id IN ?", sceneIDs).
		Delete(&types.SceneProgress{}).Error
}
