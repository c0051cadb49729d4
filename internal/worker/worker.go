package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/effect-cards/internal/logger"
	"github.com/jwebster45206/effect-cards/internal/services/events"
	"github.com/jwebster45206/effect-cards/internal/services/queue"
	queuePkg "github.com/jwebster45206/effect-cards/pkg/queue"
	"github.com/redis/go-redis/v9"
)

const (
	workerTimeout = 5 * time.Second

	// lockedRetryDelay keeps a lone worker from spinning on a locked world
	lockedRetryDelay = 100 * time.Millisecond
)

// Worker processes requests from the global request queue
type Worker struct {
	id          string
	queue       *queue.RequestQueue
	processor   *ItemProcessor
	broadcaster *events.Broadcaster
	lock        *WorldLock
	log         *slog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
}

// New creates a new worker instance
func New(requestQueue *queue.RequestQueue, processor *ItemProcessor, redisClient *redis.Client, log *slog.Logger, workerID string) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	if workerID == "" {
		workerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}

	return &Worker{
		id:          workerID,
		queue:       requestQueue,
		processor:   processor,
		broadcaster: events.NewBroadcaster(redisClient, log),
		lock:        NewWorldLock(redisClient, workerID),
		log:         log.With("worker_id", workerID),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// ID returns the worker's lock owner id
func (w *Worker) ID() string {
	return w.id
}

// Start begins processing requests from the queue
func (w *Worker) Start() error {
	w.log.Info("Worker starting")

	for {
		select {
		case <-w.ctx.Done():
			w.log.Info("Worker shutting down")
			return nil
		default:
			if err := w.processNextRequest(); err != nil {
				if w.ctx.Err() != nil {
					continue
				}
				w.log.Error("Error processing request", "error", err)
				time.Sleep(1 * time.Second)
			}
		}
	}
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop() {
	w.log.Info("Worker stop requested")
	w.cancel()
}

// processNextRequest pulls the next request from the queue and processes it
func (w *Worker) processNextRequest() error {
	req, err := w.queue.BlockingDequeueRequest(w.ctx, workerTimeout)
	if err != nil {
		return fmt.Errorf("failed to dequeue request: %w", err)
	}
	if req == nil {
		return nil
	}

	w.log.Info("Received request from queue",
		"request_id", req.RequestID,
		"type", req.Type,
		"world_id", req.WorldID.String(),
	)

	token, locked, err := w.lock.Acquire(w.ctx, req.WorldID)
	if err != nil {
		if rqErr := w.queue.RequeueRequest(w.ctx, req); rqErr != nil {
			w.log.Error("Failed to re-queue request", "request_id", req.RequestID, "error", rqErr)
		}
		return fmt.Errorf("failed to acquire world lock: %w", err)
	}
	if !locked {
		w.log.Info("World already locked, re-queueing request",
			"request_id", req.RequestID,
			"world_id", req.WorldID.String(),
		)
		if err := w.queue.RequeueRequest(w.ctx, req); err != nil {
			return fmt.Errorf("failed to re-queue request: %w", err)
		}
		time.Sleep(lockedRetryDelay)
		return nil
	}

	defer func() {
		if err := w.lock.Release(context.Background(), req.WorldID, token); err != nil {
			w.log.Error("Failed to release world lock", "error", err, "world_id", req.WorldID.String())
		}
	}()
	return w.processRequest(req)
}

// processRequest processes a single request, publishing its progress
func (w *Worker) processRequest(req *queuePkg.Request) error {
	log := logger.WithWorld(logger.WithRequestID(w.log, req.RequestID), req.WorldID.String())
	log.Info("Processing request", "type", req.Type)
	start := time.Now()

	if err := w.broadcaster.PublishRequestProcessing(w.ctx, req.WorldID, req.RequestID, string(req.Type)); err != nil {
		log.Error("Failed to publish processing event", "error", err)
	}

	switch req.Type {
	case queuePkg.RequestTypeItemUse:
		result, err := w.processor.ProcessItemUse(w.ctx, req)
		if result != nil {
			// the world changed even if a hook handler failed
			if pubErr := w.broadcaster.PublishWorldUpdated(w.ctx, req.WorldID, "item_used"); pubErr != nil {
				log.Error("Failed to publish world update event", "error", pubErr)
			}
		}
		if err != nil {
			log.Error("Failed to process item use", "error", err, "item_id", req.ItemID)
			if pubErr := w.broadcaster.PublishRequestFailed(w.ctx, req.WorldID, req.RequestID, err.Error()); pubErr != nil {
				log.Error("Failed to publish failure event", "error", pubErr)
			}
			return fmt.Errorf("failed to process item use: %w", err)
		}

		log.Info("Item use processed successfully",
			"item_id", req.ItemID,
			"item_deleted", result.ItemDeleted,
			"duration_ms", time.Since(start).Milliseconds(),
		)

		completed := map[string]any{
			"item_id":      result.ItemID,
			"item_deleted": result.ItemDeleted,
			"duration_ms":  time.Since(start).Milliseconds(),
		}
		if result.UsesLeft != nil {
			completed["uses_left"] = *result.UsesLeft
		}
		if err := w.broadcaster.PublishRequestCompleted(w.ctx, req.WorldID, req.RequestID, completed); err != nil {
			log.Error("Failed to publish completion event", "error", err)
		}

	default:
		err := fmt.Errorf("unknown request type: %s", req.Type)
		if pubErr := w.broadcaster.PublishRequestFailed(w.ctx, req.WorldID, req.RequestID, err.Error()); pubErr != nil {
			log.Error("Failed to publish failure event", "error", pubErr)
		}
		return err
	}

	return nil
}
