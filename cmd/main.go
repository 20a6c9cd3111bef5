package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/noodl-labs/kodo-backend/internal/db"
	"github.com/noodl-labs/kodo-backend/internal/handlers"
	"github.com/noodl-labs/kodo-backend/internal/logger"
	"github.com/noodl-labs/kodo-backend/internal/repos"
	"github.com/noodl-labs/kodo-backend/internal/server"
	"github.com/noodl-labs/kodo-backend/internal/services"
	"github.com/noodl-labs/kodo-backend/internal/sse"
	"github.com/noodl-labs/kodo-backend/internal/utils"
)

func main() {
	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	postgres, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Failed to connect to postgres", "error", err)
	}
	if err := postgres.AutoMigrateAll(); err != nil {
		log.Fatal("Failed to run migrations", "error", err)
	}
	gormDB := postgres.DB()

	userRepo := repos.NewUserRepo(gormDB, log)
	pathRepo := repos.NewLearningPathRepo(gormDB, log)
	levelRepo := repos.NewLevelRepo(gormDB, log)
	itemRepo := repos.NewContentItemRepo(gormDB, log)
	taskLogRepo := repos.NewTaskLogRepo(gormDB, log)
	progressRepo := repos.NewUserProgressRepo(gormDB, log)
	levelProgressRepo := repos.NewLevelProgressRepo(gormDB, log)
	nftRepo := repos.NewUserNFTRepo(gormDB, log)

	hub := sse.NewHub(log)

	aiClient, err := services.NewGeminiClient(log)
	if err != nil {
		log.Fatal("Failed to initialize gemini client", "error", err)
	}

	// Chain and IPFS are optional: without them path generation skips the
	// on-chain registration step and minting answers 403.
	var chain services.ChainService
	if utils.GetEnvAsBool("BLOCKCHAIN_ENABLED", false, log) {
		chain, err = services.NewEthChainService(rootCtx, log)
		if err != nil {
			log.Fatal("Failed to initialize chain service", "error", err)
		}
	} else {
		log.Warn("Blockchain integration disabled; paths will not be anchored and minting is off")
	}
	var ipfs services.IPFSService
	if chain != nil {
		ipfs, err = services.NewPinataService(log)
		if err != nil {
			log.Fatal("Failed to initialize pinata service", "error", err)
		}
	}

	taskLogs := services.NewTaskLogService(taskLogRepo, hub, log)
	dupCheck := services.NewDuplicateCheckService(aiClient, pathRepo, log)
	generation := services.NewPathGenerationService(aiClient, chain, dupCheck, taskLogs, pathRepo, levelRepo, itemRepo, log)
	certificates := services.NewCertificateService(aiClient, log)
	minting := services.NewMintingService(chain, ipfs, certificates, userRepo, pathRepo, progressRepo, nftRepo, log)
	progress := services.NewProgressService(userRepo, pathRepo, progressRepo, levelProgressRepo, log)
	users := services.NewUserService(userRepo, log)
	paths := services.NewPathService(pathRepo, levelRepo, itemRepo, log)
	nfts := services.NewNFTService(userRepo, pathRepo, nftRepo, log)

	go func() {
		if err := generation.Start(rootCtx); err != nil {
			log.Error("Generation worker pool exited", "error", err)
		}
	}()

	router := server.NewRouter(&server.RouterConfig{
		Logger:             log,
		UserHandler:        handlers.NewUserHandler(users, log),
		PathHandler:        handlers.NewPathHandler(paths, generation, taskLogs, log),
		NFTHandler:         handlers.NewNFTHandler(minting, nfts, log),
		ProgressHandler:    handlers.NewProgressHandler(progress, log),
		HealthcheckHandler: handlers.NewHealthcheckHandler(gormDB, log),
		SSEHandler:         handlers.NewSSEHandler(hub, log),
	})

	addr := ":" + utils.GetEnv("PORT", "8080", log)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", "error", err)
	}
}
