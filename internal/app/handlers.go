package app

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/trainforge-backend/internal/http"
	httpH "github.com/yungbote/trainforge-backend/internal/http/handlers"
	httpMW "github.com/yungbote/trainforge-backend/internal/http/middleware"
	"github.com/yungbote/trainforge-backend/internal/observability"
	"github.com/yungbote/trainforge-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health   *httpH.HealthHandler
	Module   *httpH.ModuleHandler
	Scene    *httpH.SceneHandler
	Scorm    *httpH.ScormHandler
	Progress *httpH.ProgressHandler
}

func wireHandlers(db *gorm.DB, log *logger.Logger, cfg Config, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(db),
		Module:   httpH.NewModuleHandler(log, services.Training),
		Scene:    httpH.NewSceneHandler(log, services.Training, services.Upload, cfg.Upload.MaxBytes),
		Scorm:    httpH.NewScormHandler(log, services.Scorm),
		Progress: httpH.NewProgressHandler(log, services.Progress),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireRouter(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware, metrics *observability.Metrics) *gin.Engine {
	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	return http.NewRouter(http.RouterConfig{
		Log:             log,
		Metrics:         metrics,
		ServiceName:     serviceName,
		CORSOrigins:     cfg.CORSOrigins,
		AuthMiddleware:  middleware.Auth,
		HealthHandler:   handlers.Health,
		ModuleHandler:   handlers.Module,
		SceneHandler:    handlers.Scene,
		ScormHandler:    handlers.Scorm,
		ProgressHandler: handlers.Progress,
	})
}
