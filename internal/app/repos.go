package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/trainforge-backend/internal/data/aggregates"
	"github.com/yungbote/trainforge-backend/internal/data/repos"
	domainagg "github.com/yungbote/trainforge-backend/internal/domain/aggregates"
	"github.com/yungbote/trainforge-backend/internal/observability"
	"github.com/yungbote/trainforge-backend/internal/platform/logger"
)

type Repos struct {
	Modules  repos.ModuleRepo
	Scenes   repos.SceneRepo
	Attempts repos.ScormAttemptRepo
	Progress repos.SceneProgressRepo

	ModuleStore  domainagg.TrainingModuleAggregate
	AttemptStore domainagg.ScormAttemptAggregate
}

func wireRepos(db *gorm.DB, log *logger.Logger, metrics *observability.Metrics) Repos {
	log.Info("Wiring repos...")
	r := Repos{
		Modules:  repos.NewModuleRepo(db, log),
		Scenes:   repos.NewSceneRepo(db, log),
		Attempts: repos.NewScormAttemptRepo(db, log),
		Progress: repos.NewSceneProgressRepo(db, log),
	}
	base := aggregates.BaseDeps{DB: db, Hooks: aggregates.NewObservabilityHooks(metrics)}
	r.ModuleStore = aggregates.NewTrainingModuleAggregate(aggregates.TrainingModuleAggregateDeps{
		Base:     base,
		Modules:  r.Modules,
		Scenes:   r.Scenes,
		Attempts: r.Attempts,
		Progress: r.Progress,
	})
	r.AttemptStore = aggregates.NewScormAttemptAggregate(aggregates.ScormAttemptAggregateDeps{
		Base:     base,
		Scenes:   r.Scenes,
		Attempts: r.Attempts,
		Progress: r.Progress,
	})
	return r
}
