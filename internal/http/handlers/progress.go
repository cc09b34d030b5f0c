package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/trainforge-backend/internal/http/response"
	"github.com/yungbote/trainforge-backend/internal/platform/logger"
	"github.com/yungbote/trainforge-backend/internal/services"
)

type ProgressHandler struct {
	log *logger.Logger
	svc services.ProgressService
}

func NewProgressHandler(log *logger.Logger, svc services.ProgressService) *ProgressHandler {
	return &ProgressHandler{log: log.With("handler", "ProgressHandler"), svc: svc}
}

// GET /api/modules/:id/progress
func (h *ProgressHandler) GetProgress(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	p, err := h.svc.GetProgress(c.Request.Context(), actor, id)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, p)
}

// GET /api/modules/:id/completion
func (h *ProgressHandler) GetCompletion(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	p, err := h.svc.GetProgress(c.Request.Context(), actor, id)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, p.Completion)
}

// POST /api/modules/:id/scenes/:sceneId/progress
func (h *ProgressHandler) RecordSceneProgress(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	sceneID, ok := uuidParam(c, "sceneId")
	if !ok {
		return
	}
	var req services.SceneProgressInput
	if !bindJSON(c, &req) {
		return
	}
	row, err := h.svc.RecordSceneProgress(c.Request.Context(), actor, id, sceneID, req)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"progress": row})
}

// GET /api/modules/:id/results
func (h *ProgressHandler) LearnerResults(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	results, err := h.svc.LearnerResults(c.Request.Context(), actor, id)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondList(c, "results", results)
}
