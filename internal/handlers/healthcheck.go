package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/noodl-labs/kodo-backend/internal/logger"
)

type HealthcheckHandler struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewHealthcheckHandler(db *gorm.DB, baseLog *logger.Logger) *HealthcheckHandler {
	return &HealthcheckHandler{db: db, log: baseLog.With("handler", "HealthcheckHandler")}
}

func (h *HealthcheckHandler) Healthcheck(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		h.log.Error("Healthcheck database ping failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
