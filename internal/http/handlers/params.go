package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/trainforge-backend/internal/http/response"
	"github.com/yungbote/trainforge-backend/internal/platform/apierr"
	"github.com/yungbote/trainforge-backend/internal/services"
)

// actorFrom reads the caller set by the auth middleware and answers 401 when absent.
func actorFrom(c *gin.Context) (services.Actor, bool) {
	actor, err := services.ActorFromContext(c.Request.Context())
	if err != nil {
		response.RespondServiceError(c, err)
		return services.Actor{}, false
	}
	return actor, true
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.RespondServiceError(c, apierr.BadRequest("invalid_"+name, fmt.Errorf("invalid %s", name)))
		return uuid.Nil, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.RespondServiceError(c, apierr.BadRequest("invalid_request", err))
		return false
	}
	return true
}
