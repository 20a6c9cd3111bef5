package server

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/noodl-labs/kodo-backend/internal/handlers"
	"github.com/noodl-labs/kodo-backend/internal/logger"
	"github.com/noodl-labs/kodo-backend/internal/utils"
)

type RouterConfig struct {
	Logger             *logger.Logger
	UserHandler        *handlers.UserHandler
	PathHandler        *handlers.PathHandler
	NFTHandler         *handlers.NFTHandler
	ProgressHandler    *handlers.ProgressHandler
	HealthcheckHandler *handlers.HealthcheckHandler
	SSEHandler         *handlers.SSEHandler
}

func NewRouter(cfg *RouterConfig) *gin.Engine {
	mode := utils.GetEnv("GIN_MODE", gin.ReleaseMode, cfg.Logger)
	gin.SetMode(mode)

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowOrigins:     []string{utils.GetEnv("CORS_ALLOW_ORIGIN", "*", cfg.Logger)},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	router.GET("/healthcheck", cfg.HealthcheckHandler.Healthcheck)

	router.POST("/users", cfg.UserHandler.Upsert)
	router.GET("/users/:wallet", cfg.UserHandler.GetByWallet)

	router.GET("/paths", cfg.PathHandler.List)
	router.POST("/paths/generate", cfg.PathHandler.Generate)
	router.GET("/paths/generate/status/:task_id", cfg.PathHandler.GenerationStatus)
	router.GET("/paths/:id/levels/:level", cfg.PathHandler.GetLevelContent)
	router.POST("/paths/:id/complete", cfg.NFTHandler.CompletePath)

	router.POST("/progress/level", cfg.ProgressHandler.UpsertLevelScore)
	router.GET("/scores/level", cfg.ProgressHandler.GetLevelScore)
	router.GET("/scores/:wallet", cfg.ProgressHandler.GetUserScores)

	router.GET("/nfts/:wallet", cfg.NFTHandler.ListByWallet)

	router.GET("/sse/tasks/:task_id", cfg.SSEHandler.StreamTask)

	return router
}
