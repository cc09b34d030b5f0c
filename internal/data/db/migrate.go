package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/trainforge-backend/internal/domain/training"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.TrainingModule{},
		&types.TrainingScene{},
		&types.ScormAttempt{},
		&types.SceneProgress{},
	)
}

// EnsureTrainingIndexes adds the composite indexes AutoMigrate does not derive from tags.
// (module_id, order_index) is indexed but deliberately not unique: renumbering rewrites
// indices row by row inside one transaction.
func EnsureTrainingIndexes(db *gorm.DB) error {
	stmts := []struct {
		name string
		sql  string
	}{
		{"idx_training_scene_module_order", `CREATE INDEX IF NOT EXISTS idx_training_scene_module_order ON training_scene(module_id, order_index);`},
		{"idx_scene_progress_learner_module", `CREATE INDEX IF NOT EXISTS idx_scene_progress_learner_module ON scene_progress(learner_id, module_id);`},
		{"idx_scorm_attempt_learner_module", `CREATE INDEX IF NOT EXISTS idx_scorm_attempt_learner_module ON scorm_attempt(learner_id, module_id);`},
	}
	for _, s := range stmts {
		if err := db.Exec(s.sql).Error; err != nil {
			return fmt.Errorf("create %s: %w", s.name, err)
		}
	}
	return nil
}
