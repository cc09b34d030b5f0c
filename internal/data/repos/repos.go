package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/trainforge-backend/internal/data/repos/training"
	"github.com/yungbote/trainforge-backend/internal/platform/logger"
)

type ModuleRepo = training.ModuleRepo
type SceneRepo = training.SceneRepo
type ScormAttemptRepo = training.ScormAttemptRepo
type SceneProgressRepo = training.SceneProgressRepo

func NewModuleRepo(db *gorm.DB, baseLog *logger.Logger) ModuleRepo {
	return training.NewModuleRepo(db, baseLog)
}
func NewSceneRepo(db *gorm.DB, baseLog *logger.Logger) SceneRepo {
	return training.NewSceneRepo(db, baseLog)
}
func NewScormAttemptRepo(db *gorm.DB, baseLog *logger.Logger) ScormAttemptRepo {
	return training.NewScormAttemptRepo(db, baseLog)
}
func NewSceneProgressRepo(db *gorm.DB, baseLog *logger.Logger) SceneProgressRepo {
	return training.NewSceneProgressRepo(db, baseLog)
}
