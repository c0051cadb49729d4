package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jwebster45206/effect-cards/internal/services/events"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readEvent reads one SSE frame and returns its event name and data
func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var name, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if name != "" {
				return name, data
			}
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestEventsHandler_StreamsWorldEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	mux := http.NewServeMux()
	mux.Handle("/v1/events/worlds/{id}", NewEventsHandler(rdb, testLogger()))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	worldID := uuid.New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/events/worlds/"+worldID.String(), nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	body := bufio.NewReader(resp.Body)
	name, data := readEvent(t, body)
	assert.Equal(t, "connected", name)
	assert.Contains(t, data, worldID.String())

	b := events.NewBroadcaster(rdb, testLogger())
	require.NoError(t, b.PublishWorldUpdated(ctx, worldID, "targets"))
	// Events for other worlds are not forwarded.
	require.NoError(t, b.PublishWorldUpdated(ctx, uuid.New(), "created"))
	require.NoError(t, b.PublishRequestQueued(ctx, worldID, "req-1", "item_use"))

	name, data = readEvent(t, body)
	assert.Equal(t, "world.updated", name)
	var event events.Event
	require.NoError(t, json.Unmarshal([]byte(data), &event))
	assert.Equal(t, "targets", event.Data["reason"])

	name, data = readEvent(t, body)
	assert.Equal(t, "request.queued", name)
	require.NoError(t, json.Unmarshal([]byte(data), &event))
	assert.Equal(t, "req-1", event.RequestID)
}

func TestEventsHandler_InvalidWorldID(t *testing.T) {
	h := NewEventsHandler(nil, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/v1/events/worlds/nope", nil)
	req.SetPathValue("id", "nope")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/events/worlds/nope", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
