package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jwebster45206/effect-cards/pkg/chat"
	"github.com/jwebster45206/effect-cards/pkg/world"
)

func testConnection(client *http.Client, baseURL string) bool {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

// doJSON sends body (if any) as JSON and decodes a successful response into out
func doJSON(client *http.Client, method, endpoint string, body any, wantStatus int, out any) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != wantStatus {
		var errorResp ErrorResponse
		if err := json.Unmarshal(respBody, &errorResp); err != nil || errorResp.Error == "" {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(respBody))
		}
		return fmt.Errorf("%s", errorResp.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func listWorldFiles(client *http.Client, baseURL string) ([]string, map[string]string, error) {
	var worldMap map[string]string
	if err := doJSON(client, http.MethodGet, baseURL+"/v1/worlds", nil, http.StatusOK, &worldMap); err != nil {
		return nil, nil, err
	}

	var names []string
	for name := range worldMap {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, worldMap, nil
}

// decodeWorld indexes a world document returned by the API
func decodeWorld(client *http.Client, method, endpoint string, body any, wantStatus int) (*world.World, error) {
	var raw json.RawMessage
	if err := doJSON(client, method, endpoint, body, wantStatus, &raw); err != nil {
		return nil, err
	}
	return world.Parse(raw)
}

func createWorld(client *http.Client, baseURL string, worldFile string) (*world.World, error) {
	w, err := decodeWorld(client, http.MethodPost, baseURL+"/v1/worlds",
		map[string]string{"world_file": worldFile}, http.StatusCreated)
	if err != nil {
		return nil, fmt.Errorf("failed to create world: %w", err)
	}
	return w, nil
}

func getWorld(client *http.Client, baseURL string, worldID uuid.UUID) (*world.World, error) {
	w, err := decodeWorld(client, http.MethodGet, fmt.Sprintf("%s/v1/worlds/%s", baseURL, worldID), nil, http.StatusOK)
	if err != nil {
		return nil, fmt.Errorf("failed to get world: %w", err)
	}
	return w, nil
}

func setTargets(client *http.Client, baseURL string, worldID uuid.UUID, userID string, tokenIDs []string) ([]string, error) {
	reqBody := map[string]any{
		"user_id":   userID,
		"token_ids": tokenIDs,
	}
	var resp struct {
		TokenIDs []string `json:"token_ids"`
	}
	endpoint := fmt.Sprintf("%s/v1/worlds/%s/targets", baseURL, worldID)
	if err := doJSON(client, http.MethodPut, endpoint, reqBody, http.StatusOK, &resp); err != nil {
		return nil, fmt.Errorf("failed to set targets: %w", err)
	}
	return resp.TokenIDs, nil
}

// useItem queues an item use and returns the request ID
func useItem(client *http.Client, baseURL string, worldID uuid.UUID, userID, itemID string) (string, error) {
	var resp struct {
		RequestID string `json:"request_id"`
	}
	endpoint := fmt.Sprintf("%s/v1/worlds/%s/items/%s/use", baseURL, worldID, url.PathEscape(itemID))
	if err := doJSON(client, http.MethodPost, endpoint, map[string]string{"user_id": userID}, http.StatusAccepted, &resp); err != nil {
		return "", fmt.Errorf("failed to use item: %w", err)
	}
	return resp.RequestID, nil
}

func getChatLog(client *http.Client, baseURL string, worldID uuid.UUID, userID string, limit int) ([]*chat.Message, error) {
	var resp struct {
		Messages []*chat.Message `json:"messages"`
	}
	endpoint := fmt.Sprintf("%s/v1/worlds/%s/chat?user_id=%s&limit=%d", baseURL, worldID, url.QueryEscape(userID), limit)
	if err := doJSON(client, http.MethodGet, endpoint, nil, http.StatusOK, &resp); err != nil {
		return nil, fmt.Errorf("failed to get chat log: %w", err)
	}
	return resp.Messages, nil
}

// SSEEvent represents an event from the SSE stream
type SSEEvent struct {
	Type      string         `json:"type"`
	RequestID string         `json:"request_id"`
	Data      map[string]any `json:"data"`
}

// listenToSSE connects to the SSE endpoint and streams events to a channel
func listenToSSE(ctx context.Context, client *http.Client, baseURL string, worldID uuid.UUID, eventChan chan<- SSEEvent) error {
	endpoint := fmt.Sprintf("%s/v1/events/worlds/%s", baseURL, worldID.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to SSE: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("SSE connection failed with status %d: %s", resp.StatusCode, string(body))
	}

	scanner := bufio.NewScanner(resp.Body)
	var currentEvent SSEEvent

	for scanner.Scan() {
		line := scanner.Text()

		if line == "" {
			// Empty line signals end of event
			if currentEvent.Type != "" {
				select {
				case eventChan <- currentEvent:
				case <-ctx.Done():
					return ctx.Err()
				}
				currentEvent = SSEEvent{}
			}
			continue
		}

		if strings.HasPrefix(line, "event: ") {
			currentEvent.Type = strings.TrimPrefix(line, "event: ")
		} else if strings.HasPrefix(line, "data: ") {
			var data SSEEvent
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &data); err == nil {
				currentEvent.RequestID = data.RequestID
				currentEvent.Data = data.Data
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading SSE stream: %w", err)
	}
	return nil
}
