package runner

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/jwebster45206/effect-cards/pkg/chat"
	"github.com/jwebster45206/effect-cards/pkg/world"
)

// StatusError is returned when the API answers with an unexpected status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API returned %d: %s", e.StatusCode, e.Body)
}

func (r *Runner) do(ctx context.Context, method, endpoint string, body any, wantStatus int, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.BaseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != wantStatus {
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// CreateWorld instantiates a world from a definition file
func (r *Runner) CreateWorld(ctx context.Context, worldFile string) (*world.World, error) {
	var raw json.RawMessage
	if err := r.do(ctx, http.MethodPost, "/v1/worlds", map[string]string{"world_file": worldFile}, http.StatusCreated, &raw); err != nil {
		return nil, err
	}
	return world.Parse(raw)
}

// GetWorld reads a live world
func (r *Runner) GetWorld(ctx context.Context, worldID uuid.UUID) (*world.World, error) {
	var raw json.RawMessage
	if err := r.do(ctx, http.MethodGet, "/v1/worlds/"+worldID.String(), nil, http.StatusOK, &raw); err != nil {
		return nil, err
	}
	return world.Parse(raw)
}

// DeleteWorld removes a live world and its chat log
func (r *Runner) DeleteWorld(ctx context.Context, worldID uuid.UUID) error {
	return r.do(ctx, http.MethodDelete, "/v1/worlds/"+worldID.String(), nil, http.StatusNoContent, nil)
}

// SetTargets replaces the user's targets
func (r *Runner) SetTargets(ctx context.Context, worldID uuid.UUID, userID string, tokenIDs []string, wantStatus int) error {
	if tokenIDs == nil {
		tokenIDs = []string{}
	}
	body := map[string]any{"user_id": userID, "token_ids": tokenIDs}
	return r.do(ctx, http.MethodPut, "/v1/worlds/"+worldID.String()+"/targets", body, wantStatus, nil)
}

// UseItem queues an item use and returns its request id
func (r *Runner) UseItem(ctx context.Context, worldID uuid.UUID, userID, itemID string, wantStatus int) (string, error) {
	var resp struct {
		RequestID string `json:"request_id"`
	}
	endpoint := fmt.Sprintf("/v1/worlds/%s/items/%s/use", worldID, url.PathEscape(itemID))
	if err := r.do(ctx, http.MethodPost, endpoint, map[string]string{"user_id": userID}, wantStatus, &resp); err != nil {
		return "", err
	}
	return resp.RequestID, nil
}

// ChatLog returns the chat log as the user sees it
func (r *Runner) ChatLog(ctx context.Context, worldID uuid.UUID, userID string) ([]*chat.Message, error) {
	var resp struct {
		Messages []*chat.Message `json:"messages"`
	}
	endpoint := fmt.Sprintf("/v1/worlds/%s/chat?user_id=%s&limit=500", worldID, url.QueryEscape(userID))
	if err := r.do(ctx, http.MethodGet, endpoint, nil, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// StreamEvent is one event read from a world's event stream
type StreamEvent struct {
	Type      string         `json:"type"`
	RequestID string         `json:"request_id"`
	Data      map[string]any `json:"data"`
}

// EventStream reads a world's server-sent events in the background
type EventStream struct {
	Events <-chan StreamEvent
	cancel context.CancelFunc
}

// Close stops reading the stream
func (s *EventStream) Close() {
	s.cancel()
}

// OpenEvents connects to the world's event stream. It returns once the
// server has confirmed the subscription.
func (r *Runner) OpenEvents(ctx context.Context, worldID uuid.UUID) (*EventStream, error) {
	ctx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.BaseURL+"/v1/events/worlds/"+worldID.String(), nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	// No client timeout: the stream stays open until Close
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to connect to event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		cancel()
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	events := make(chan StreamEvent, 32)
	connected := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer close(events)
		defer func() { _ = resp.Body.Close() }()

		scanner := bufio.NewScanner(resp.Body)
		var current StreamEvent
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case line == "":
				if current.Type == "connected" {
					close(connected)
				} else if current.Type != "" {
					select {
					case events <- current:
					case <-ctx.Done():
						return
					}
				}
				current = StreamEvent{}
			case strings.HasPrefix(line, "event: "):
				current.Type = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				var data StreamEvent
				if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &data); err == nil {
					current.RequestID = data.RequestID
					current.Data = data.Data
				}
			}
		}
	}()

	select {
	case <-connected:
		return &EventStream{Events: events, cancel: cancel}, nil
	case <-done:
		cancel()
		return nil, errors.New("event stream closed before it was confirmed")
	case <-ctx.Done():
		cancel()
		return nil, ctx.Err()
	}
}
