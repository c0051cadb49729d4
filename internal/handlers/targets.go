package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/effect-cards/pkg/storage"
)

const (
	lockAttempts   = 20
	lockRetryDelay = 50 * time.Millisecond
)

// Locker serializes writes to a world with the workers
type Locker interface {
	Acquire(ctx context.Context, worldID uuid.UUID) (string, bool, error)
	Release(ctx context.Context, worldID uuid.UUID, token string) error
}

// SetTargetsRequest replaces a user's targeted tokens
type SetTargetsRequest struct {
	UserID   string   `json:"user_id"`
	TokenIDs []string `json:"token_ids"`
}

type SetTargetsResponse struct {
	UserID   string   `json:"user_id"`
	TokenIDs []string `json:"token_ids"`
}

type TargetsHandler struct {
	storage storage.Storage
	lock    Locker
	events  WorldEvents
	logger  *slog.Logger
}

func NewTargetsHandler(storage storage.Storage, lock Locker, events WorldEvents, logger *slog.Logger) *TargetsHandler {
	return &TargetsHandler{
		storage: storage,
		lock:    lock,
		events:  events,
		logger:  logger,
	}
}

// ServeHTTP handles PUT /v1/worlds/{id}/targets
func (h *TargetsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, h.logger, r, "PUT")
		return
	}
	id, ok := worldID(w, h.logger, r)
	if !ok {
		return
	}

	var req SetTargetsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid set targets request", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if req.UserID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "user_id is required")
		return
	}

	token, locked, err := h.acquire(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to acquire world lock", "world_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to lock world")
		return
	}
	if !locked {
		writeError(w, h.logger, http.StatusConflict, "World is busy, try again")
		return
	}
	defer func() {
		if err := h.lock.Release(context.Background(), id, token); err != nil {
			h.logger.Error("Failed to release world lock", "world_id", id, "error", err)
		}
	}()

	wld, ok := loadWorld(w, r, h.storage, h.logger, id)
	if !ok {
		return
	}
	if _, ok := wld.User(req.UserID); !ok {
		writeError(w, h.logger, http.StatusNotFound, "User not found: "+req.UserID)
		return
	}
	if err := wld.SetTargets(req.UserID, req.TokenIDs); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.storage.SaveWorld(r.Context(), wld); err != nil {
		h.logger.Error("Failed to save world", "world_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to save world")
		return
	}

	h.logger.Debug("Targets updated", "world_id", id, "user_id", req.UserID, "token_ids", req.TokenIDs)
	if h.events != nil {
		if err := h.events.PublishWorldUpdated(r.Context(), id, "targets"); err != nil {
			h.logger.Warn("Failed to publish world update", "world_id", id, "error", err)
		}
	}

	ids := make([]string, 0)
	for _, t := range wld.UserTargets(req.UserID) {
		ids = append(ids, t.ID)
	}
	writeJSON(w, h.logger, http.StatusOK, SetTargetsResponse{UserID: req.UserID, TokenIDs: ids})
}

// acquire retries the world lock while a worker holds it
func (h *TargetsHandler) acquire(ctx context.Context, id uuid.UUID) (string, bool, error) {
	for attempt := 0; attempt < lockAttempts; attempt++ {
		token, ok, err := h.lock.Acquire(ctx, id)
		if err != nil || ok {
			return token, ok, err
		}
		select {
		case <-ctx.Done():
			return "", false, ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}
	return "", false, nil
}
