package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/jwebster45206/effect-cards/pkg/chat"
	"github.com/jwebster45206/effect-cards/pkg/storage"
	"github.com/jwebster45206/effect-cards/pkg/world"
)

const (
	defaultChatLimit = 50
	maxChatLimit     = 500
)

// ChatReader returns the chat log as a user sees it
type ChatReader interface {
	Messages(ctx context.Context, worldID uuid.UUID, viewer *world.User, limit int) ([]*chat.Message, error)
}

type ChatLogResponse struct {
	Messages []*chat.Message `json:"messages"`
}

type ChatLogHandler struct {
	storage storage.Storage
	chat    ChatReader
	logger  *slog.Logger
}

func NewChatLogHandler(storage storage.Storage, chat ChatReader, logger *slog.Logger) *ChatLogHandler {
	return &ChatLogHandler{
		storage: storage,
		chat:    chat,
		logger:  logger,
	}
}

// ServeHTTP handles GET /v1/worlds/{id}/chat?user_id=&limit=
func (h *ChatLogHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, h.logger, r, "GET")
		return
	}
	id, ok := worldID(w, h.logger, r)
	if !ok {
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "user_id is required")
		return
	}
	limit := defaultChatLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, h.logger, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxChatLimit)
	}

	wld, ok := loadWorld(w, r, h.storage, h.logger, id)
	if !ok {
		return
	}
	viewer, ok := wld.User(userID)
	if !ok {
		writeError(w, h.logger, http.StatusNotFound, "User not found: "+userID)
		return
	}

	msgs, err := h.chat.Messages(r.Context(), id, viewer, limit)
	if err != nil {
		h.logger.Error("Failed to read chat log", "world_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to read chat log")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, ChatLogResponse{Messages: msgs})
}
