package training

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/trainforge-backend/internal/domain/training"
	"github.com/yungbote/trainforge-backend/internal/platform/dbctx"
	"github.com/yungbote/trainforge-backend/internal/platform/logger"
)

type SceneRepo interface {
	Upsert(dbc dbctx.Context, rows []*types.TrainingScene) error

	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.TrainingScene, error)
	ListByModule(dbc dbctx.Context, moduleID uuid.UUID) ([]*types.TrainingScene, error)
	CountByModule(dbc dbctx.Context, moduleID uuid.UUID) (int64, error)

	// DeleteByModuleExcept removes every scene of the module whose id is not in keep.
	DeleteByModuleExcept(dbc dbctx.Context, moduleID uuid.UUID, keep []uuid.UUID) (int64, error)
	FullDeleteByModule(dbc dbctx.Context, moduleID uuid.UUID) error
}

type sceneRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSceneRepo(db *gorm.DB, baseLog *logger.Logger) SceneRepo {
	return &sceneRepo{db: db, log: baseLog.With("repo", "SceneRepo")}
}

func (r *sceneRepo) Upsert(dbc dbctx.Context, rows []*types.TrainingScene) error {
	if len(rows) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title",
				"description",
				"scene_type",
				"content_url",
				"scorm_package_url",
				"document_content",
				"order_index",
				"estimated_duration_minutes",
				"is_required",
				"auto_advance",
				"metadata",
				"updated_at",
			}),
		}).
		Create(&rows).Error
}

func (r *sceneRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.TrainingScene, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*types.TrainingScene
	if err := dbc.DB(r.db).
		Where("id = ?", id).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *sceneRepo) ListByModule(dbc dbctx.Context, moduleID uuid.UUID) ([]*types.TrainingScene, error) {
	var out []*types.TrainingScene
	if moduleID == uuid.Nil {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("module_id = ?", moduleID).
		Order("order_index ASC, created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *sceneRepo) CountByModule(dbc dbctx.Context, moduleID uuid.UUID) (int64, error) {
	var n int64
	if moduleID == uuid.Nil {
		return 0, nil
	}
	err := dbc.DB(r.db).
		Model(&types.TrainingScene{}).
		Where("module_id = ?", moduleID).
		Count(&n).Error
	return n, err
}

func (r *sceneRepo) DeleteByModuleExcept(dbc dbctx.Context, moduleID uuid.UUID, keep []uuid.UUID) (int64, error) {
	if moduleID == uuid.Nil {
		return 0, nil
	}
	q := dbc.DB(r.db).Where("module_id = ?", moduleID)
	if len(keep) > 0 {
		q = q.Where("id NOT IN ?", keep)
	}
	res := q.Delete(&types.TrainingScene{})
	return res.RowsAffected, res.Error
}

func (r *sceneRepo) FullDeleteByModule(dbc dbctx.Context, moduleID uuid.UUID) error {
	if moduleID == uuid.Nil {
		return nil
	}
	return dbc.DB(r.db).
		Where("module_id = ?", moduleID).
		Delete(&types.TrainingScene{}).Error
}
