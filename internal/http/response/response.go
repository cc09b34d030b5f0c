package response

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/trainforge-backend/internal/domain/training"
	"github.com/yungbote/trainforge-backend/internal/services"
)

// Editor state mirrored onto module responses.
const (
	HeaderSaveState = "X-Save-State"
	HeaderRevision  = "X-Module-Revision"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// RespondModule writes a module view and stamps the editor save state on the headers.
func RespondModule(c *gin.Context, status int, v *services.ModuleView) {
	if v == nil {
		RespondError(c, http.StatusNotFound, "not_found", nil)
		return
	}
	stampSaveState(c, v.SaveState, v.Revision)
	c.JSON(status, v)
}

// RespondSaveStatus writes the result of a save or a save-state poll.
// A save that is still in flight answers 202.
func RespondSaveStatus(c *gin.Context, st *services.SaveStatus) {
	if st == nil {
		RespondError(c, http.StatusNotFound, "not_found", nil)
		return
	}
	stampSaveState(c, st.SaveState, st.Revision)
	status := http.StatusOK
	if st.SaveState == training.SaveStateSaving {
		status = http.StatusAccepted
	}
	c.JSON(status, st)
}

// RespondList wraps items under key. A nil slice is written as [].
func RespondList[T any](c *gin.Context, key string, items []T) {
	if items == nil {
		items = []T{}
	}
	c.JSON(http.StatusOK, gin.H{key: items, "count": len(items)})
}

func stampSaveState(c *gin.Context, state training.SaveState, revision uint64) {
	if state != "" {
		c.Header(HeaderSaveState, string(state))
	}
	c.Header(HeaderRevision, strconv.FormatUint(revision, 10))
}
