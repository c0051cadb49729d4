package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jwebster45206/effect-cards/pkg/queue"
	"github.com/redis/go-redis/v9"
)

// requestsKey is the global list all API processes push to and all workers
// pop from
const requestsKey = "requests"

// RequestQueue is the global queue of world requests
type RequestQueue struct {
	client *Client
	logger *slog.Logger
}

func NewRequestQueue(client *Client, logger *slog.Logger) *RequestQueue {
	return &RequestQueue{
		client: client,
		logger: logger,
	}
}

// EnqueueRequest adds a request to the end of the global requests queue
func (q *RequestQueue) EnqueueRequest(ctx context.Context, req *queue.Request) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}

	data, err := req.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize request: %w", err)
	}

	if err := q.client.rdb.RPush(ctx, requestsKey, data).Err(); err != nil {
		q.logger.Error("Failed to enqueue request", "request_id", req.RequestID, "error", err)
		return fmt.Errorf("failed to enqueue request: %w", err)
	}

	q.logger.Debug("Enqueued request",
		"request_id", req.RequestID,
		"type", req.Type,
		"world_id", req.WorldID)
	return nil
}

// DequeueRequest removes and returns the next request from the global queue.
// Returns nil if queue is empty.
func (q *RequestQueue) DequeueRequest(ctx context.Context) (*queue.Request, error) {
	result, err := q.client.rdb.LPop(ctx, requestsKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue request: %w", err)
	}

	req, err := queue.FromJSON([]byte(result))
	if err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return req, nil
}

// BlockingDequeueRequest blocks until a request is available or the timeout
// passes. A timeout of 0 waits forever. Returns nil when the timeout passes
// with an empty queue.
func (q *RequestQueue) BlockingDequeueRequest(ctx context.Context, timeout time.Duration) (*queue.Request, error) {
	result, err := q.client.rdb.BLPop(ctx, timeout, requestsKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue request: %w", err)
	}

	// BLPop returns [key, value]
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BLPop result: %v", result)
	}

	req, err := queue.FromJSON([]byte(result[1]))
	if err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return req, nil
}

// RequeueRequest puts a request back at the end of the queue, used when
// its world is locked by another worker
func (q *RequestQueue) RequeueRequest(ctx context.Context, req *queue.Request) error {
	data, err := req.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize request: %w", err)
	}
	if err := q.client.rdb.RPush(ctx, requestsKey, data).Err(); err != nil {
		return fmt.Errorf("failed to requeue request: %w", err)
	}
	return nil
}

// RequestQueueDepth returns the number of requests in the global queue
func (q *RequestQueue) RequestQueueDepth(ctx context.Context) (int, error) {
	count, err := q.client.rdb.LLen(ctx, requestsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get request queue depth: %w", err)
	}
	return int(count), nil
}
