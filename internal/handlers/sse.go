package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noodl-labs/kodo-backend/internal/logger"
	"github.com/noodl-labs/kodo-backend/internal/sse"
)

type SSEHandler struct {
	hub *sse.Hub
	log *logger.Logger
}

func NewSSEHandler(hub *sse.Hub, baseLog *logger.Logger) *SSEHandler {
	return &SSEHandler{hub: hub, log: baseLog.With("handler", "SSEHandler")}
}

// StreamTask pushes a task's log entries as they are appended. Entries
// written before the client connected are available from the poll endpoint.
func (h *SSEHandler) StreamTask(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("task_id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid task id")
		return
	}
	client := h.hub.NewClient()
	h.hub.AddChannel(client, sse.TaskChannel(taskID))
	defer h.hub.RemoveClient(client)

	h.hub.ServeHTTP(c.Writer, c.Request, client)
}
