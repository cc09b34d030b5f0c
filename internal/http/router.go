package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/trainforge-backend/internal/http/handlers"
	httpMW "github.com/yungbote/trainforge-backend/internal/http/middleware"
	"github.com/yungbote/trainforge-backend/internal/observability"
	"github.com/yungbote/trainforge-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	CORSOrigins    []string
	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler   *httpH.HealthHandler
	ModuleHandler   *httpH.ModuleHandler
	SceneHandler    *httpH.SceneHandler
	ScormHandler    *httpH.ScormHandler
	ProgressHandler *httpH.ProgressHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log, cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
	}

	// ===============
	// || Authoring ||
	// ===============
	authoring := api.Group("/")
	if cfg.AuthMiddleware != nil {
		authoring.Use(cfg.AuthMiddleware.RequireAuthor())
	}

	if h := cfg.ModuleHandler; h != nil {
		// Learners list and open published modules.
		api.GET("/modules", h.ListModules)
		api.GET("/modules/:id", h.GetModule)

		authoring.POST("/modules", h.CreateModule)
		authoring.PATCH("/modules/:id", h.UpdateModule)
		authoring.DELETE("/modules/:id", h.DeleteModule)
		authoring.PUT("/modules/:id/settings/accessibility", h.SetAccessibility)
		authoring.GET("/modules/:id/accessibility", h.AccessibilityReport)
		authoring.PUT("/modules/:id/completion-criteria", h.SetCompletionCriteria)
		authoring.PUT("/modules/:id/scorm-config", h.SetScormConfig)
		authoring.GET("/modules/:id/save-state", h.SaveState)
		authoring.POST("/modules/:id/save", h.Save)
		authoring.POST("/modules/:id/publish", h.Publish)
		authoring.POST("/modules/:id/unpublish", h.Unpublish)
		authoring.POST("/modules/:id/clone", h.Clone)
	}

	if h := cfg.SceneHandler; h != nil {
		authoring.POST("/modules/:id/scenes", h.AddScene)
		authoring.POST("/modules/:id/scenes/reorder", h.ReorderScenes)
		authoring.PATCH("/modules/:id/scenes/:sceneId", h.UpdateScene)
		authoring.DELETE("/modules/:id/scenes/:sceneId", h.RemoveScene)
		authoring.POST("/modules/:id/scenes/:sceneId/duplicate", h.DuplicateScene)
		authoring.POST("/modules/:id/scenes/:sceneId/upload", h.Upload)
	}

	// ===============
	// || Learning  ||
	// ===============
	if h := cfg.ProgressHandler; h != nil {
		api.GET("/modules/:id/progress", h.GetProgress)
		api.GET("/modules/:id/completion", h.GetCompletion)
		api.POST("/modules/:id/scenes/:sceneId/progress", h.RecordSceneProgress)
		authoring.GET("/modules/:id/results", h.LearnerResults)
	}

	if h := cfg.ScormHandler; h != nil {
		api.POST("/scorm/sessions", h.OpenSession)
		api.POST("/scorm/sessions/:token/rpc", h.RPC)
		api.DELETE("/scorm/sessions/:token", h.CloseSession)
	}

	return r
}
