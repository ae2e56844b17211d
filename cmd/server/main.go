package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"textbook-gateway/internal/backend"
	"textbook-gateway/internal/config"
	"textbook-gateway/internal/database"
	"textbook-gateway/internal/handlers"
	"textbook-gateway/internal/logger"
	"textbook-gateway/internal/middleware"
	"textbook-gateway/internal/repository"
	"textbook-gateway/internal/router"
	"textbook-gateway/internal/services"
	"textbook-gateway/internal/storage"
	"textbook-gateway/internal/websocket"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()

	log, err := logger.New(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("starting textbook gateway", "env", cfg.Env, "backend_url", cfg.BackendURL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ──── Step 2: Initialize Binary Storage ────
	store, err := newObjectStore(cfg)
	if err != nil {
		log.Fatal("storage init failed", "type", cfg.StorageType, "error", err)
	}
	log.Info("✓ storage ready", "type", cfg.StorageType)

	// ──── Step 3: Initialize Redis Clients (optional) ────
	var chatLimiter middleware.Limiter
	var hub *websocket.Hub
	if cfg.RedisURL != "" {
		redisClients, err := database.NewRedisClients(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal("redis connection failed", "error", err)
		}
		defer redisClients.Close()

		limiter, err := middleware.NewRedisRateLimiter(redisClients.Limiter, "textbook-gateway:chat", cfg.ChatRateLimitPerMin, time.Minute, log)
		if err != nil {
			log.Fatal("rate limiter init failed", "error", err)
		}
		chatLimiter = limiter
		hub = websocket.NewHub(redisClients.PubSub, log)
		log.Info("✓ redis connected")
	} else {
		memLimiter := middleware.NewRateLimiter(cfg.ChatRateLimitPerMin, time.Minute)
		defer memLimiter.Close()
		chatLimiter = memLimiter
		hub = websocket.NewHub(nil, log)
		log.Info("✓ redis not configured, using in-process limiter and event hub")
	}

	// ──── Step 4: Initialize Services ────
	textbookRepo := repository.NewTextbookRepo(cfg.MetadataPath)
	textbookService := services.NewTextbookService(textbookRepo, store, hub, log)
	backendClient := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout)

	// ──── Step 5: Initialize Handlers ────
	catalogHandler := handlers.NewCatalogHandler(textbookService, backendClient, log)
	uploadHandler := handlers.NewUploadHandler(textbookService, cfg.MaxUploadBytes, log)
	chatHandler := handlers.NewChatHandler(backendClient, log)
	quizHandler := handlers.NewQuizHandler(backendClient, log)

	// ──── Step 6: Start HTTP Server ────
	r := router.New(
		catalogHandler,
		uploadHandler,
		chatHandler,
		quizHandler,
		hub,
		chatLimiter,
		log,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: cfg.BackendTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hub.Run(gctx)
	})
	g.Go(func() error {
		log.Info("✓ textbook gateway ready",
			"api", fmt.Sprintf("http://localhost:%s/api", cfg.Port),
			"ws", fmt.Sprintf("ws://localhost:%s/api/ws", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func newObjectStore(cfg *config.Config) (storage.ObjectStore, error) {
	switch cfg.StorageType {
	case "minio":
		return storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	case "local", "":
		return storage.NewLocalStore(cfg.StoragePath)
	default:
		return nil, fmt.Errorf("unknown STORAGE_TYPE %q", cfg.StorageType)
	}
}
