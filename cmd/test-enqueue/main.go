package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/jwebster45206/effect-cards/internal/services/queue"
	queuePkg "github.com/jwebster45206/effect-cards/pkg/queue"
)

func main() {
	redisURL := flag.String("redis", "redis://localhost:6379", "Redis URL")
	worldFlag := flag.String("world", "", "live world id (required)")
	userID := flag.String("user", "", "id of the user using the item (required)")
	itemID := flag.String("item", "", "id of the item to use (required)")
	flag.Parse()

	if *worldFlag == "" || *userID == "" || *itemID == "" {
		flag.Usage()
		os.Exit(2)
	}
	worldID, err := uuid.Parse(*worldFlag)
	if err != nil {
		log.Fatal("Invalid world id:", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	client, err := queue.NewClient(*redisURL, logger)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer client.Close()

	fmt.Println("Connected to Redis successfully!")

	ctx := context.Background()
	requests := queue.NewRequestQueue(client, logger)

	req := queuePkg.NewItemUseRequest(worldID, *userID, *itemID)
	if err := requests.EnqueueRequest(ctx, req); err != nil {
		log.Fatal("Failed to enqueue request:", err)
	}
	fmt.Printf("✅ Enqueued item use request: %s\n", req.RequestID)

	depth, err := requests.RequestQueueDepth(ctx)
	if err != nil {
		log.Fatal("Failed to get queue depth:", err)
	}

	fmt.Printf("\n📊 Queue depth: %d requests\n", depth)
	fmt.Println("\n💡 Now start the worker to see it process these requests!")
	fmt.Println("   Run: go run ./cmd/worker")
}
