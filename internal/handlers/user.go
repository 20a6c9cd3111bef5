package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noodl-labs/kodo-backend/internal/logger"
	"github.com/noodl-labs/kodo-backend/internal/services"
)

type UserHandler struct {
	users services.UserService
	log   *logger.Logger
}

func NewUserHandler(users services.UserService, baseLog *logger.Logger) *UserHandler {
	return &UserHandler{users: users, log: baseLog.With("handler", "UserHandler")}
}

type upsertUserRequest struct {
	WalletAddress string `json:"wallet_address" binding:"required"`
	Name          string `json:"name"`
	Country       string `json:"country"`
}

func (h *UserHandler) Upsert(c *gin.Context) {
	var req upsertUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "wallet_address is required")
		return
	}
	user, err := h.users.Upsert(c.Request.Context(), req.WalletAddress, req.Name, req.Country)
	if err != nil {
		if errors.Is(err, services.ErrInvalidWallet) {
			respondError(c, http.StatusBadRequest, "invalid wallet address")
			return
		}
		h.log.Error("User upsert failed", "error", err)
		respondError(c, http.StatusInternalServerError, "failed to save user")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) GetByWallet(c *gin.Context) {
	user, err := h.users.GetByWallet(c.Request.Context(), c.Param("wallet"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidWallet):
			respondError(c, http.StatusBadRequest, "invalid wallet address")
		case errors.Is(err, services.ErrUserNotFound):
			respondError(c, http.StatusNotFound, "user not found")
		default:
			h.log.Error("User lookup failed", "error", err)
			respondError(c, http.StatusInternalServerError, "failed to load user")
		}
		return
	}
	c.JSON(http.StatusOK, user)
}
