package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noodl-labs/kodo-backend/internal/logger"
	"github.com/noodl-labs/kodo-backend/internal/services"
	"github.com/noodl-labs/kodo-backend/internal/utils"
)

type PathHandler struct {
	paths      services.PathService
	generation services.PathGenerationService
	taskLogs   services.TaskLogService
	log        *logger.Logger
}

func NewPathHandler(paths services.PathService, generation services.PathGenerationService, taskLogs services.TaskLogService, baseLog *logger.Logger) *PathHandler {
	return &PathHandler{
		paths:      paths,
		generation: generation,
		taskLogs:   taskLogs,
		log:        baseLog.With("handler", "PathHandler"),
	}
}

func (h *PathHandler) List(c *gin.Context) {
	summaries, err := h.paths.ListPaths(c.Request.Context())
	if err != nil {
		h.log.Error("Path listing failed", "error", err)
		respondError(c, http.StatusInternalServerError, "failed to load paths")
		return
	}
	c.JSON(http.StatusOK, gin.H{"paths": summaries})
}

func (h *PathHandler) GetLevelContent(c *gin.Context) {
	pathID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid path id")
		return
	}
	levelNumber, err := strconv.Atoi(c.Param("level"))
	if err != nil || levelNumber < 1 {
		respondError(c, http.StatusBadRequest, "invalid level number")
		return
	}
	content, err := h.paths.GetLevelContent(c.Request.Context(), pathID, levelNumber)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPathNotFound):
			respondError(c, http.StatusNotFound, "path not found")
		case errors.Is(err, services.ErrLevelNotFound):
			respondError(c, http.StatusNotFound, "level not found")
		default:
			h.log.Error("Level content lookup failed", "error", err)
			respondError(c, http.StatusInternalServerError, "failed to load level")
		}
		return
	}
	c.JSON(http.StatusOK, content)
}

// wallet_address is accepted as an alias for creator_wallet.
type generatePathRequest struct {
	Topic         string `json:"topic"`
	CreatorWallet string `json:"creator_wallet"`
	WalletAddress string `json:"wallet_address"`
}

// Generate accepts the request and answers 202 with a pollable task id.
// A topic too similar to an existing path is a 409 carrying that path.
func (h *PathHandler) Generate(c *gin.Context) {
	var req generatePathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "topic and creator_wallet are required")
		return
	}
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		respondError(c, http.StatusBadRequest, "topic must not be empty")
		return
	}
	rawWallet := req.CreatorWallet
	if rawWallet == "" {
		rawWallet = req.WalletAddress
	}
	if rawWallet == "" {
		respondError(c, http.StatusBadRequest, "topic and creator_wallet are required")
		return
	}
	wallet := utils.NormalizeWallet(rawWallet)
	if !utils.IsWalletAddress(wallet) {
		respondError(c, http.StatusBadRequest, "invalid wallet address")
		return
	}

	taskID, err := h.generation.Enqueue(c.Request.Context(), topic, wallet)
	if err != nil {
		var dup *services.DuplicatePathError
		switch {
		case errors.As(err, &dup):
			c.JSON(http.StatusConflict, gin.H{
				"error":         "a similar path already exists",
				"existing_path": dup.Similar,
			})
		case errors.Is(err, services.ErrQueueFull):
			respondError(c, http.StatusServiceUnavailable, "generation queue is full, try again shortly")
		default:
			h.log.Error("Failed to enqueue generation", "error", err)
			respondError(c, http.StatusInternalServerError, "failed to start generation")
		}
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"message": "Path generation started",
		"task_id": taskID,
	})
}

func (h *PathHandler) GenerationStatus(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("task_id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid task id")
		return
	}
	status, err := h.taskLogs.Read(c.Request.Context(), taskID)
	if err != nil {
		h.log.Error("Task status lookup failed", "taskID", taskID, "error", err)
		respondError(c, http.StatusInternalServerError, "failed to load task status")
		return
	}
	if status == nil {
		respondError(c, http.StatusNotFound, "unknown task id")
		return
	}
	c.JSON(http.StatusOK, status)
}
