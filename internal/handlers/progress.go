package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noodl-labs/kodo-backend/internal/logger"
	"github.com/noodl-labs/kodo-backend/internal/services"
	"github.com/noodl-labs/kodo-backend/internal/utils"
)

type ProgressHandler struct {
	progress services.ProgressService
	log      *logger.Logger
}

func NewProgressHandler(progress services.ProgressService, baseLog *logger.Logger) *ProgressHandler {
	return &ProgressHandler{progress: progress, log: baseLog.With("handler", "ProgressHandler")}
}

type levelScoreRequest struct {
	WalletAddress  string `json:"wallet_address" binding:"required"`
	PathID         string `json:"path_id" binding:"required"`
	LevelNumber    int    `json:"level_number" binding:"required"`
	CorrectAnswers *int   `json:"correct_answers" binding:"required"`
	TotalQuestions *int   `json:"total_questions" binding:"required"`
}

func (h *ProgressHandler) UpsertLevelScore(c *gin.Context) {
	var req levelScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "wallet_address, path_id, level_number, correct_answers and total_questions are required")
		return
	}
	wallet := utils.NormalizeWallet(req.WalletAddress)
	if !utils.IsWalletAddress(wallet) {
		respondError(c, http.StatusBadRequest, "invalid wallet address")
		return
	}
	pathID, err := uuid.Parse(req.PathID)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid path id")
		return
	}
	if *req.CorrectAnswers < 0 || *req.TotalQuestions < 0 || *req.CorrectAnswers > *req.TotalQuestions {
		respondError(c, http.StatusBadRequest, "correct_answers must be between 0 and total_questions")
		return
	}

	result, err := h.progress.UpsertLevelScore(c.Request.Context(), wallet, pathID, req.LevelNumber, *req.CorrectAnswers, *req.TotalQuestions)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			respondError(c, http.StatusNotFound, "user not found")
		case errors.Is(err, services.ErrPathNotFound):
			respondError(c, http.StatusNotFound, "path not found")
		case errors.Is(err, services.ErrLevelOutOfRange):
			respondError(c, http.StatusBadRequest, "level number out of range")
		default:
			h.log.Error("Level score upsert failed", "error", err)
			respondError(c, http.StatusInternalServerError, "failed to save score")
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ProgressHandler) GetLevelScore(c *gin.Context) {
	wallet := utils.NormalizeWallet(c.Query("wallet_address"))
	if !utils.IsWalletAddress(wallet) {
		respondError(c, http.StatusBadRequest, "invalid wallet address")
		return
	}
	pathID, err := uuid.Parse(c.Query("path_id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid path id")
		return
	}
	levelNumber, err := strconv.Atoi(c.Query("level_number"))
	if err != nil || levelNumber < 1 {
		respondError(c, http.StatusBadRequest, "invalid level number")
		return
	}

	result, err := h.progress.GetLevelScore(c.Request.Context(), wallet, pathID, levelNumber)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			respondError(c, http.StatusNotFound, "user not found")
		case errors.Is(err, services.ErrScoreNotFound):
			respondError(c, http.StatusNotFound, "no score recorded for level")
		default:
			h.log.Error("Level score lookup failed", "error", err)
			respondError(c, http.StatusInternalServerError, "failed to load score")
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ProgressHandler) GetUserScores(c *gin.Context) {
	wallet := utils.NormalizeWallet(c.Param("wallet"))
	if !utils.IsWalletAddress(wallet) {
		respondError(c, http.StatusBadRequest, "invalid wallet address")
		return
	}
	scores, err := h.progress.GetUserScores(c.Request.Context(), wallet)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "user not found")
			return
		}
		h.log.Error("User scores lookup failed", "error", err)
		respondError(c, http.StatusInternalServerError, "failed to load scores")
		return
	}
	c.JSON(http.StatusOK, gin.H{"scores": scores})
}
