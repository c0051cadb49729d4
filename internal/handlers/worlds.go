package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/effect-cards/pkg/storage"
	"github.com/jwebster45206/effect-cards/pkg/world"
)

// WorldEvents announces changes to a world's subscribers
type WorldEvents interface {
	PublishWorldUpdated(ctx context.Context, worldID uuid.UUID, reason string) error
}

type WorldsHandler struct {
	storage storage.Storage
	events  WorldEvents
	logger  *slog.Logger
}

func NewWorldsHandler(storage storage.Storage, events WorldEvents, logger *slog.Logger) *WorldsHandler {
	return &WorldsHandler{
		storage: storage,
		events:  events,
		logger:  logger,
	}
}

// CreateWorldRequest defines the request body for instantiating a world
type CreateWorldRequest struct {
	WorldFile string `json:"world_file"` // world definition filename, extension optional
}

// ServeHTTP handles world operations
// Routes:
// GET /v1/worlds         - List world definition files
// POST /v1/worlds        - Instantiate a world from a definition file
// GET /v1/worlds/{id}    - Read a live world
// DELETE /v1/worlds/{id} - Delete a live world and its chat log
func (h *WorldsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("id") == "" {
		switch r.Method {
		case http.MethodGet:
			h.handleList(w, r)
		case http.MethodPost:
			h.handleCreate(w, r)
		default:
			methodNotAllowed(w, h.logger, r, "GET, POST")
		}
		return
	}

	id, ok := worldID(w, h.logger, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.handleRead(w, r, id)
	case http.MethodDelete:
		h.handleDelete(w, r, id)
	default:
		methodNotAllowed(w, h.logger, r, "GET, DELETE")
	}
}

func (h *WorldsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	files, err := h.storage.ListWorldFiles(r.Context())
	if err != nil {
		h.logger.Error("Failed to list world files", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to list world files")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, files)
}

func (h *WorldsHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateWorldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid create world request", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	filename := ensureJSONExtension(normalizeID(strings.TrimSuffix(req.WorldFile, ".json")))
	if filename == "" {
		writeError(w, h.logger, http.StatusBadRequest, "world_file is required")
		return
	}

	wld, err := h.storage.GetWorldFile(r.Context(), filename)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "World file not found: "+filename)
			return
		}
		h.logger.Error("Failed to load world file", "world_file", filename, "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Failed to load world file: "+err.Error())
		return
	}

	wld.ID = uuid.New()
	wld.CreatedAt = time.Now()
	if err := h.storage.SaveWorld(r.Context(), wld); err != nil {
		h.logger.Error("Failed to save world", "world_id", wld.ID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to save world")
		return
	}

	h.logger.Info("World created", "world_id", wld.ID, "world_file", filename, "name", wld.Name)
	h.publish(r.Context(), wld.ID, "created")
	writeJSON(w, h.logger, http.StatusCreated, wld.Snapshot())
}

func (h *WorldsHandler) handleRead(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	wld, ok := loadWorld(w, r, h.storage, h.logger, id)
	if !ok {
		return
	}
	writeJSON(w, h.logger, http.StatusOK, wld.Snapshot())
}

func (h *WorldsHandler) handleDelete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.storage.DeleteWorld(r.Context(), id); err != nil {
		h.logger.Error("Failed to delete world", "world_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to delete world")
		return
	}
	h.logger.Info("World deleted", "world_id", id)
	h.publish(r.Context(), id, "deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (h *WorldsHandler) publish(ctx context.Context, id uuid.UUID, reason string) {
	if h.events == nil {
		return
	}
	if err := h.events.PublishWorldUpdated(ctx, id, reason); err != nil {
		h.logger.Warn("Failed to publish world update", "world_id", id, "reason", reason, "error", err)
	}
}

// loadWorld reads a live world, writing a 404 or 500 when it cannot
func loadWorld(w http.ResponseWriter, r *http.Request, store storage.Storage, logger *slog.Logger, id uuid.UUID) (*world.World, bool) {
	wld, err := store.LoadWorld(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, logger, http.StatusNotFound, "World not found")
			return nil, false
		}
		logger.Error("Failed to load world", "world_id", id, "error", err)
		writeError(w, logger, http.StatusInternalServerError, "Failed to load world")
		return nil, false
	}
	return wld, true
}

// normalizeID converts a string to lowercase snake_case.
// It handles spaces, hyphens and dots.
func normalizeID(s string) string {
	var out strings.Builder
	prevUnderscore := false
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			r = r + ('a' - 'A')
		}
		switch {
		case r == '.':
			out.WriteRune('.')
			prevUnderscore = false
		case r == ' ' || r == '-' || r == '_':
			if !prevUnderscore && i > 0 {
				out.WriteRune('_')
				prevUnderscore = true
			}
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			out.WriteRune(r)
			prevUnderscore = false
		}
	}
	return out.String()
}

// ensureJSONExtension adds .json extension if not present
func ensureJSONExtension(s string) string {
	if s == "" || strings.HasSuffix(s, ".json") {
		return s
	}
	return s + ".json"
}
