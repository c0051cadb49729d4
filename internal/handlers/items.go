package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jwebster45206/effect-cards/pkg/queue"
	"github.com/jwebster45206/effect-cards/pkg/storage"
)

// RequestEnqueuer hands requests to the workers
type RequestEnqueuer interface {
	EnqueueRequest(ctx context.Context, req *queue.Request) error
}

// RequestEvents announces queued requests
type RequestEvents interface {
	PublishRequestQueued(ctx context.Context, worldID uuid.UUID, requestID string, requestType string) error
}

type UseItemRequest struct {
	UserID string `json:"user_id"`
}

type UseItemResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

type ItemsHandler struct {
	storage storage.Storage
	queue   RequestEnqueuer
	events  RequestEvents
	logger  *slog.Logger
}

func NewItemsHandler(storage storage.Storage, queue RequestEnqueuer, events RequestEvents, logger *slog.Logger) *ItemsHandler {
	return &ItemsHandler{
		storage: storage,
		queue:   queue,
		events:  events,
		logger:  logger,
	}
}

// ServeHTTP handles POST /v1/worlds/{id}/items/{itemID}/use.
// The use is processed asynchronously; progress is reported on the
// world's event stream.
func (h *ItemsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, h.logger, r, "POST")
		return
	}
	id, ok := worldID(w, h.logger, r)
	if !ok {
		return
	}
	itemID := r.PathValue("itemID")

	var req UseItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid use item request", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if req.UserID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "user_id is required")
		return
	}

	wld, ok := loadWorld(w, r, h.storage, h.logger, id)
	if !ok {
		return
	}
	if _, ok := wld.User(req.UserID); !ok {
		writeError(w, h.logger, http.StatusNotFound, "User not found: "+req.UserID)
		return
	}
	it, ok := wld.Item(itemID)
	if !ok {
		writeError(w, h.logger, http.StatusNotFound, "Item not found: "+itemID)
		return
	}
	if it.Depleted() {
		writeError(w, h.logger, http.StatusConflict, "Item has no uses left: "+itemID)
		return
	}

	qreq := queue.NewItemUseRequest(id, req.UserID, itemID)
	if err := h.queue.EnqueueRequest(r.Context(), qreq); err != nil {
		h.logger.Error("Failed to enqueue item use", "world_id", id, "item_id", itemID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to queue item use")
		return
	}
	if h.events != nil {
		if err := h.events.PublishRequestQueued(r.Context(), id, qreq.RequestID, string(qreq.Type)); err != nil {
			h.logger.Warn("Failed to publish queued event", "request_id", qreq.RequestID, "error", err)
		}
	}

	h.logger.Info("Item use queued",
		"request_id", qreq.RequestID,
		"world_id", id,
		"user_id", req.UserID,
		"item_id", itemID)
	writeJSON(w, h.logger, http.StatusAccepted, UseItemResponse{RequestID: qreq.RequestID, Status: "queued"})
}
