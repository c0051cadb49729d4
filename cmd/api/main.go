package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/effect-cards/internal/config"
	"github.com/jwebster45206/effect-cards/internal/handlers"
	"github.com/jwebster45206/effect-cards/internal/logger"
	"github.com/jwebster45206/effect-cards/internal/middleware"
	"github.com/jwebster45206/effect-cards/internal/services"
	"github.com/jwebster45206/effect-cards/internal/services/events"
	"github.com/jwebster45206/effect-cards/internal/services/queue"
	"github.com/jwebster45206/effect-cards/internal/storage"
	"github.com/jwebster45206/effect-cards/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Effect Cards API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"data_dir", cfg.DataDir)

	store, err := storage.NewRedisStorage(cfg.RedisURL, cfg.DataDir, log)
	if err != nil {
		log.Error("Failed to create storage", "error", err)
		os.Exit(1)
	}
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()

	if err := store.WaitForConnection(storageCtx, 10, 2*time.Second); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	queueClient, err := queue.NewClient(cfg.RedisURL, log)
	if err != nil {
		log.Error("Failed to create queue client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := queueClient.Close(); err != nil {
			log.Error("Error closing queue client", "error", err)
		}
	}()

	redisClient := queueClient.GetRedisClient()
	requestQueue := queue.NewRequestQueue(queueClient, log)
	broadcaster := events.NewBroadcaster(redisClient, log)
	chatLog := services.NewChatLog(store, broadcaster, log)
	worldLock := worker.NewWorldLock(redisClient, "api-"+uuid.New().String()[:8])

	mux := http.NewServeMux()

	mux.Handle("/health", handlers.NewHealthHandler(store, log))

	worldsHandler := handlers.NewWorldsHandler(store, broadcaster, log)
	mux.Handle("/v1/worlds", worldsHandler)
	mux.Handle("/v1/worlds/{id}", worldsHandler)

	mux.Handle("/v1/worlds/{id}/targets", handlers.NewTargetsHandler(store, worldLock, broadcaster, log))
	mux.Handle("/v1/worlds/{id}/items/{itemID}/use", handlers.NewItemsHandler(store, requestQueue, broadcaster, log))
	mux.Handle("/v1/worlds/{id}/chat", handlers.NewChatLogHandler(store, chatLog, log))
	mux.Handle("/v1/events/worlds/{id}", handlers.NewEventsHandler(redisClient, log))

	handler := middleware.Logger(mux)
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the event stream stays open
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}
