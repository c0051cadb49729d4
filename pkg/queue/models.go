package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RequestType identifies the type of request in the queue
type RequestType string

const (
	// RequestTypeItemUse is a user using an item in a world
	RequestTypeItemUse RequestType = "item_use"
)

// Request represents a unified request in the queue
type Request struct {
	RequestID string      `json:"request_id"`
	Type      RequestType `json:"type"`
	WorldID   uuid.UUID   `json:"world_id"`
	UserID    string      `json:"user_id"`

	// Item use fields
	ItemID string `json:"item_id,omitempty"`

	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewItemUseRequest builds a request for a user using an item
func NewItemUseRequest(worldID uuid.UUID, userID, itemID string) *Request {
	return &Request{
		RequestID:  uuid.NewString(),
		Type:       RequestTypeItemUse,
		WorldID:    worldID,
		UserID:     userID,
		ItemID:     itemID,
		EnqueuedAt: time.Now(),
	}
}

// Validate checks the fields required by the request type
func (r *Request) Validate() error {
	if r.RequestID == "" {
		return errors.New("request id is required")
	}
	if r.WorldID == uuid.Nil {
		return errors.New("world id is required")
	}
	if r.UserID == "" {
		return errors.New("user id is required")
	}
	switch r.Type {
	case RequestTypeItemUse:
		if r.ItemID == "" {
			return errors.New("item id is required")
		}
	default:
		return fmt.Errorf("unknown request type %q", r.Type)
	}
	return nil
}

// ToJSON converts the request to JSON bytes for Redis
func (r *Request) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// FromJSON parses a request from JSON bytes
func FromJSON(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}
