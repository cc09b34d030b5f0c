package training

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/trainforge-backend/internal/domain/training"
	"github.com/yungbote/trainforge-backend/internal/platform/dbctx"
	"github.com/yungbote/trainforge-backend/internal/platform/logger"
)

type ModuleRepo interface {
	Create(dbc dbctx.Context, row *types.TrainingModule) error
	// Upsert writes the module row only. The stored status and owner survive updates.
	Upsert(dbc dbctx.Context, row *types.TrainingModule) error

	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.TrainingModule, error)
	ListByOwner(dbc dbctx.Context, ownerID uuid.UUID) ([]*types.TrainingModule, error)
	ListByStatus(dbc dbctx.Context, statuses []types.ModuleStatus) ([]*types.TrainingModule, error)

	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	FullDeleteByID(dbc dbctx.Context, id uuid.UUID) error
}

type moduleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewModuleRepo(db *gorm.DB, baseLog *logger.Logger) ModuleRepo {
	return &moduleRepo{db: db, log: baseLog.With("repo", "ModuleRepo")}
}

func (r *moduleRepo) Create(dbc dbctx.Context, row *types.TrainingModule) error {
	if row == nil {
		return nil
	}
	return dbc.DB(r.db).Omit(clause.Associations).Create(row).Error
}

func (r *moduleRepo) Upsert(dbc dbctx.Context, row *types.TrainingModule) error {
	if row == nil {
		return nil
	}
	return dbc.DB(r.db).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title",
				"description",
				"category",
				"tags",
				"language",
				"industry",
				"target_roles",
				"difficulty_level",
				"estimated_duration_minutes",
				"scorm_compatible",
				"scorm_version",
				"accessibility_compliant",
				"metadata",
				"updated_at",
			}),
		}).
		Create(row).Error
}

func (r *moduleRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.TrainingModule, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*types.TrainingModule
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

func (r *moduleRepo) ListByOwner(dbc dbctx.Context, ownerID uuid.UUID) ([]*types.TrainingModule, error) {
	var out []*types.TrainingModule
	if ownerID == uuid.Nil {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("owner_id = ?", ownerID).
		Order("updated_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *moduleRepo) ListByStatus(dbc dbctx.Context, statuses []types.ModuleStatus) ([]*types.TrainingModule, error) {
	var out []*types.TrainingModule
	if len(statuses) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("status IN ?", statuses).
		Order("updated_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *moduleRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return dbc.DB(r.db).
		Model(&types.TrainingModule{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *moduleRepo) FullDeleteByID(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	return dbc.DB(r.db).
		Where("id = ?", id).
		Delete(&types.TrainingModule{}).Error
}
