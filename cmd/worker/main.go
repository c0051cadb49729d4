package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/effect-cards/internal/config"
	"github.com/jwebster45206/effect-cards/internal/effectcards"
	"github.com/jwebster45206/effect-cards/internal/i18n"
	"github.com/jwebster45206/effect-cards/internal/logger"
	"github.com/jwebster45206/effect-cards/internal/render"
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

	log.Info("Starting Effect Cards Worker",
		"environment", cfg.Environment,
		"redis_url", cfg.RedisURL,
		"language", cfg.Language,
		"module_debug", cfg.ModuleDebug)

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
	requestQueue := queue.NewRequestQueue(queueClient, log)
	log.Info("Queue service initialized successfully")

	store, err := storage.NewRedisStorage(cfg.RedisURL, cfg.DataDir, log)
	if err != nil {
		log.Error("Failed to create storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Error closing storage connection", "error", err)
		}
	}()
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()

	if err := store.WaitForConnection(storageCtx, 10, 2*time.Second); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage service initialized successfully")

	localizer, err := i18n.New(cfg.Language, effectcards.Translations)
	if err != nil {
		log.Error("Failed to load translations", "language", cfg.Language, "error", err)
		os.Exit(1)
	}
	log.Info("Translations loaded", "language", localizer.Language().String())
	renderer := render.New(localizer, log)
	renderer.Mount("modules/"+effectcards.ModuleName, effectcards.Templates())

	redisClient := queueClient.GetRedisClient()
	chatLog := services.NewChatLog(store, events.NewBroadcaster(redisClient, log), log)
	processor := worker.NewItemProcessor(store, chatLog, renderer, localizer, log, cfg.ModuleDebug)
	log.Info("Item processor initialized successfully")

	w := worker.New(requestQueue, processor, redisClient, log, cfg.WorkerID)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := w.Start(); err != nil {
			log.Error("Worker error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("Worker started, waiting for requests...", "worker_id", w.ID())

	<-quit
	log.Info("Worker shutdown signal received")

	w.Stop()

	// Give worker time to finish current request
	time.Sleep(2 * time.Second)

	log.Info("Worker exited")
}
