package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/trainforge-backend/internal/domain/training"
	"github.com/yungbote/trainforge-backend/internal/http/response"
	"github.com/yungbote/trainforge-backend/internal/platform/logger"
	"github.com/yungbote/trainforge-backend/internal/services"
)

type SceneHandler struct {
	log    *logger.Logger
	svc    services.TrainingService
	upload services.UploadService
	// maxUploadBytes bounds the multipart body. Zero leaves it to the upload service.
	maxUploadBytes int64
}

func NewSceneHandler(log *logger.Logger, svc services.TrainingService, upload services.UploadService, maxUploadBytes int64) *SceneHandler {
	return &SceneHandler{
		log:            log.With("handler", "SceneHandler"),
		svc:            svc,
		upload:         upload,
		maxUploadBytes: maxUploadBytes,
	}
}

// POST /api/modules/:id/scenes
func (h *SceneHandler) AddScene(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req services.SceneInput
	if !bindJSON(c, &req) {
		return
	}
	scene, err := h.svc.AddScene(c.Request.Context(), actor, id, req)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"scene": scene})
}

// PATCH /api/modules/:id/scenes/:sceneId
func (h *SceneHandler) UpdateScene(c *gin.Context) {
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
	var req services.ScenePatch
	if !bindJSON(c, &req) {
		return
	}
	scene, err := h.svc.UpdateScene(c.Request.Context(), actor, id, sceneID, req)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"scene": scene})
}

// DELETE /api/modules/:id/scenes/:sceneId
func (h *SceneHandler) RemoveScene(c *gin.Context) {
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
	if err := h.svc.RemoveScene(c.Request.Context(), actor, id, sceneID); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondNoContent(c)
}

// POST /api/modules/:id/scenes/:sceneId/duplicate
func (h *SceneHandler) DuplicateScene(c *gin.Context) {
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
	scene, err := h.svc.DuplicateScene(c.Request.Context(), actor, id, sceneID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"scene": scene})
}

// POST /api/modules/:id/scenes/reorder
func (h *SceneHandler) ReorderScenes(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req services.ReorderInput
	if !bindJSON(c, &req) {
		return
	}
	v, err := h.svc.ReorderScenes(c.Request.Context(), actor, id, req)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondModule(c, http.StatusOK, v)
}

// POST /api/modules/:id/scenes/:sceneId/upload
// Multipart form with a single "file" part. Disconnecting aborts the transfer and
// leaves the scene untouched.
func (h *SceneHandler) Upload(c *gin.Context) {
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
	if h.upload == nil {
		response.RespondError(c, http.StatusServiceUnavailable, "uploads_disabled", fmt.Errorf("object storage is not configured"))
		return
	}
	if h.maxUploadBytes > 0 {
		// multipart framing needs a little room on top of the file itself
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+1<<20)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			response.RespondServiceError(c, &training.UploadError{
				Reason: training.UploadTooLarge, Message: fmt.Sprintf("request exceeds %d bytes", h.maxUploadBytes),
			})
			return
		}
		response.RespondError(c, http.StatusBadRequest, "missing_file", err)
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.RespondServiceError(c, &training.UploadError{Reason: training.UploadTransport, Filename: fh.Filename, Cause: err})
		return
	}
	defer f.Close()

	res, err := h.upload.UploadSceneAsset(c.Request.Context(), actor, id, sceneID, services.UploadInput{
		Filename: fh.Filename,
		MimeType: fh.Header.Get("Content-Type"),
		Size:     fh.Size,
		Reader:   f,
		Path:     c.PostForm("path"),
		Progress: func(sent, total int64) {
			h.log.Debug("upload progress", "scene_id", sceneID, "sent", sent, "total", total)
		},
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, res)
}
