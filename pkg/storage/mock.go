package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/effect-cards/pkg/chat"
	"github.com/jwebster45206/effect-cards/pkg/world"
)

// MockStorage is a mock implementation of Storage for testing.
// Worlds round-trip through JSON so callers never share state with it.
type MockStorage struct {
	mu         sync.RWMutex
	worlds     map[uuid.UUID][]byte
	worldFiles map[string][]byte
	chatLogs   map[uuid.UUID][]*chat.Message
	pingError  error
	saveError  error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		worlds:     make(map[uuid.UUID][]byte),
		worldFiles: make(map[string][]byte),
		chatLogs:   make(map[uuid.UUID][]*chat.Message),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError configures the mock to fail SaveWorld with the given error
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// AddWorldFile registers a world definition under filename
func (m *MockStorage) AddWorldFile(filename string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.worldFiles[filename] = data
}

func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MockStorage) Close() error {
	return nil
}

func (m *MockStorage) SaveWorld(ctx context.Context, w *world.World) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	w.UpdatedAt = time.Now()
	data, err := json.Marshal(w.Snapshot())
	if err != nil {
		return fmt.Errorf("failed to marshal world: %w", err)
	}
	m.worlds[w.ID] = data
	return nil
}

func (m *MockStorage) LoadWorld(ctx context.Context, id uuid.UUID) (*world.World, error) {
	m.mu.RLock()
	data, ok := m.worlds[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("world %s: %w", id, ErrNotFound)
	}
	return world.Parse(data)
}

func (m *MockStorage) DeleteWorld(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.worlds, id)
	delete(m.chatLogs, id)
	return nil
}

func (m *MockStorage) ListWorldFiles(ctx context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.worldFiles))
	for filename, data := range m.worldFiles {
		var head struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(data, &head); err != nil {
			continue
		}
		out[head.Name] = filename
	}
	return out, nil
}

func (m *MockStorage) GetWorldFile(ctx context.Context, filename string) (*world.World, error) {
	m.mu.RLock()
	data, ok := m.worldFiles[filename]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("world file %s: %w", filename, ErrNotFound)
	}
	return world.Parse(data)
}

func (m *MockStorage) AppendChatMessage(ctx context.Context, msg *chat.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *msg
	m.chatLogs[msg.WorldID] = append(m.chatLogs[msg.WorldID], &cp)
	return nil
}

func (m *MockStorage) ListChatMessages(ctx context.Context, worldID uuid.UUID, limit int) ([]*chat.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs := m.chatLogs[worldID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]*chat.Message, len(msgs))
	for i, msg := range msgs {
		cp := *msg
		out[i] = &cp
	}
	return out, nil
}
