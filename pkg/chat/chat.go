package chat

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// MessageType mirrors the host's chat message type constants
type MessageType int

const (
	TypeOther MessageType = iota
	TypeOOC
	TypeIC
	TypeEmote
	TypeWhisper
	TypeRoll
)

// Speaker identifies who a message is spoken as
type Speaker struct {
	Scene string `json:"scene,omitempty"`
	Actor string `json:"actor,omitempty"`
	Token string `json:"token,omitempty"`
	Alias string `json:"alias,omitempty"`
}

// Message is a single chat log entry.
// Flags are namespaced by scope (usually a module name).
type Message struct {
	ID        uuid.UUID                  `json:"_id"`
	WorldID   uuid.UUID                  `json:"world_id"`
	Type      MessageType                `json:"type"`
	User      string                     `json:"user"`
	Speaker   Speaker                    `json:"speaker"`
	Flavor    string                     `json:"flavor,omitempty"`
	Content   string                     `json:"content"`
	Whisper   []string                   `json:"whisper"`
	Blind     bool                       `json:"blind"`
	Flags     map[string]json.RawMessage `json:"flags,omitempty"`
	Timestamp time.Time                  `json:"timestamp"`
}

// SetFlag stores v under the given scope
func (m *Message) SetFlag(scope string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s flags: %w", scope, err)
	}
	if m.Flags == nil {
		m.Flags = make(map[string]json.RawMessage)
	}
	m.Flags[scope] = data
	return nil
}

// GetFlag decodes the flags stored under scope into v.
// It returns false when the scope is not set.
func (m *Message) GetFlag(scope string, v any) (bool, error) {
	data, ok := m.Flags[scope]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("failed to decode %s flags: %w", scope, err)
	}
	return true, nil
}

// IsWhisper reports whether the message is restricted to a recipient list
func (m *Message) IsWhisper() bool {
	return len(m.Whisper) > 0
}

// VisibleTo reports whether the user can see the message at all
func (m *Message) VisibleTo(userID string) bool {
	if !m.IsWhisper() {
		return true
	}
	return m.User == userID || slices.Contains(m.Whisper, userID)
}

// ForViewer returns a copy of the message as the viewer would see it.
// Blind messages keep their content hidden from everyone except game masters,
// including the author.
func (m *Message) ForViewer(userID string, isGM bool) (*Message, bool) {
	if !m.VisibleTo(userID) {
		return nil, false
	}
	out := *m
	if m.Blind && !isGM {
		out.Content = ""
		out.Flags = nil
	}
	return &out, true
}
