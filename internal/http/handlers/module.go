package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/trainforge-backend/internal/domain/training"
	"github.com/yungbote/trainforge-backend/internal/http/response"
	"github.com/yungbote/trainforge-backend/internal/platform/logger"
	"github.com/yungbote/trainforge-backend/internal/services"
)

type ModuleHandler struct {
	log *logger.Logger
	svc services.TrainingService
}

func NewModuleHandler(log *logger.Logger, svc services.TrainingService) *ModuleHandler {
	return &ModuleHandler{log: log.With("handler", "ModuleHandler"), svc: svc}
}

// POST /api/modules
func (h *ModuleHandler) CreateModule(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req services.CreateModuleInput
	if !bindJSON(c, &req) {
		return
	}
	v, err := h.svc.CreateModule(c.Request.Context(), actor, req)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondModule(c, http.StatusCreated, v)
}

// GET /api/modules
func (h *ModuleHandler) ListModules(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	modules, err := h.svc.ListModules(c.Request.Context(), actor)
	if err != nil {
		h.log.Error("ListModules failed", "error", err, "user_id", actor.UserID)
		response.RespondServiceError(c, err)
		return
	}
	response.RespondList(c, "modules", modules)
}

// GET /api/modules/:id
func (h *ModuleHandler) GetModule(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	v, err := h.svc.GetModule(c.Request.Context(), actor, id)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondModule(c, http.StatusOK, v)
}

// PATCH /api/modules/:id
func (h *ModuleHandler) UpdateModule(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req services.ModulePatch
	if !bindJSON(c, &req) {
		return
	}
	v, err := h.svc.UpdateModule(c.Request.Context(), actor, id, req)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondModule(c, http.StatusOK, v)
}

// DELETE /api/modules/:id
func (h *ModuleHandler) DeleteModule(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteModule(c.Request.Context(), actor, id); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondNoContent(c)
}

// PUT /api/modules/:id/settings/accessibility
func (h *ModuleHandler) SetAccessibility(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req training.AccessibilitySettings
	if !bindJSON(c, &req) {
		return
	}
	rep, err := h.svc.SetAccessibility(c.Request.Context(), actor, id, req)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, rep)
}

// GET /api/modules/:id/accessibility
func (h *ModuleHandler) AccessibilityReport(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	rep, err := h.svc.AccessibilityReport(c.Request.Context(), actor, id)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, rep)
}

// PUT /api/modules/:id/completion-criteria
// A JSON null body clears the criteria.
func (h *ModuleHandler) SetCompletionCriteria(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req *training.CompletionCriteria
	if !bindJSON(c, &req) {
		return
	}
	v, err := h.svc.SetCompletionCriteria(c.Request.Context(), actor, id, req)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondModule(c, http.StatusOK, v)
}

// PUT /api/modules/:id/scorm-config
func (h *ModuleHandler) SetScormConfig(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req *training.ScormConfig
	if !bindJSON(c, &req) {
		return
	}
	v, err := h.svc.SetScormConfig(c.Request.Context(), actor, id, req)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondModule(c, http.StatusOK, v)
}

// GET /api/modules/:id/save-state
func (h *ModuleHandler) SaveState(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	st, err := h.svc.SaveState(c.Request.Context(), actor, id)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondSaveStatus(c, st)
}

// POST /api/modules/:id/save
func (h *ModuleHandler) Save(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	st, err := h.svc.Save(c.Request.Context(), actor, id)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondSaveStatus(c, st)
}

// POST /api/modules/:id/publish
func (h *ModuleHandler) Publish(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	v, err := h.svc.Publish(c.Request.Context(), actor, id)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondModule(c, http.StatusOK, v)
}

// POST /api/modules/:id/unpublish
func (h *ModuleHandler) Unpublish(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	v, err := h.svc.Unpublish(c.Request.Context(), actor, id)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondModule(c, http.StatusOK, v)
}

// POST /api/modules/:id/clone
func (h *ModuleHandler) Clone(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Title string `json:"title"`
	}
	// the body is optional
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	v, err := h.svc.Clone(c.Request.Context(), actor, id, req.Title)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondModule(c, http.StatusCreated, v)
}
