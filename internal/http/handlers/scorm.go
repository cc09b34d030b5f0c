package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/trainforge-backend/internal/http/response"
	"github.com/yungbote/trainforge-backend/internal/platform/logger"
	"github.com/yungbote/trainforge-backend/internal/services"
)

type ScormHandler struct {
	log *logger.Logger
	svc services.ScormService
}

func NewScormHandler(log *logger.Logger, svc services.ScormService) *ScormHandler {
	return &ScormHandler{log: log.With("handler", "ScormHandler"), svc: svc}
}

// POST /api/scorm/sessions
func (h *ScormHandler) OpenSession(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req struct {
		ModuleID   uuid.UUID `json:"module_id" binding:"required"`
		SceneID    uuid.UUID `json:"scene_id" binding:"required"`
		LaunchData string    `json:"launch_data"`
	}
	if !bindJSON(c, &req) {
		return
	}
	info, err := h.svc.OpenSession(c.Request.Context(), actor, req.ModuleID, req.SceneID, req.LaunchData)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, info)
}

// POST /api/scorm/sessions/:token/rpc
// Body {"method": "LMSSetValue", "args": ["cmi.core.lesson_status", "completed"]}. The
// response always carries the string result the content expects, even for "false".
func (h *ScormHandler) RPC(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req struct {
		Method string   `json:"method" binding:"required"`
		Args   []string `json:"args"`
	}
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.Call(c.Request.Context(), actor, c.Param("token"), req.Method, req.Args)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, res)
}

// DELETE /api/scorm/sessions/:token
func (h *ScormHandler) CloseSession(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	if err := h.svc.CloseSession(c.Request.Context(), actor, c.Param("token")); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondNoContent(c)
}
