package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/trainforge-backend/internal/data/scormcache"
	"github.com/yungbote/trainforge-backend/internal/modules/training/authoring"
	"github.com/yungbote/trainforge-backend/internal/modules/training/completion"
	"github.com/yungbote/trainforge-backend/internal/modules/training/content"
	"github.com/yungbote/trainforge-backend/internal/modules/training/scorm"
	"github.com/yungbote/trainforge-backend/internal/observability"
	"github.com/yungbote/trainforge-backend/internal/platform/logger"
	"github.com/yungbote/trainforge-backend/internal/services"
)

type Services struct {
	Auth     services.AuthService
	Training services.TrainingService
	Upload   services.UploadService
	Scorm    services.ScormService
	Progress services.ProgressService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, clients Clients, r Repos, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")

	registry := content.NewRegistry(log, cfg.Editor.AdapterSpecPath)
	editors := authoring.NewEditorRegistry(log, r.ModuleStore, registry, cfg.editorOptions())

	var (
		attempts scorm.AttemptStore = r.AttemptStore
		cache    services.AttemptInvalidator
	)
	if clients.Redis != nil {
		c := scormcache.New(log, clients.Redis, r.AttemptStore, cfg.cacheConfig())
		attempts, cache = c, c
	}

	trainingSvc := services.NewTrainingService(log, services.TrainingServiceDeps{
		Modules:  r.Modules,
		Store:    r.ModuleStore,
		Editors:  editors,
		Registry: registry,
		Cache:    cache,
		Assets:   clients.Bucket,
		Metrics:  metrics,
	})

	bridge := scorm.NewBridge(log, attempts, scorm.Config{Retry: cfg.retryPolicy()})

	out := Services{
		Auth:     services.NewAuthService(log, cfg.Auth.JWTSecretKey, cfg.Auth.AccessTokenTTL),
		Training: trainingSvc,
		Scorm: services.NewScormService(log, trainingSvc, bridge, metrics, services.ScormServiceConfig{
			IdleTimeout:  cfg.Scorm.SessionIdle,
			ReapInterval: cfg.Scorm.SessionReapTick,
		}),
		Progress: services.NewProgressService(db, log, trainingSvc, r.Progress, completion.New(registry)),
	}
	if clients.Bucket != nil {
		out.Upload = services.NewUploadService(log, trainingSvc, registry, clients.Bucket, metrics, services.UploadConfig{
			MaxBytes:       cfg.Upload.MaxBytes,
			VerifyManifest: cfg.Upload.VerifyManifest,
		})
	}
	return out
}
