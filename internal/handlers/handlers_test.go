package handlers

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jwebster45206/effect-cards/pkg/queue"
	"github.com/jwebster45206/effect-cards/pkg/storage"
	"github.com/jwebster45206/effect-cards/pkg/world"
	"github.com/stretchr/testify/require"
)

const keepWorldJSON = `{
	"name": "Ruined Keep",
	"system_id": "dnd5e",
	"active_scene": "hall",
	"users": [
		{"_id": "gm1", "name": "Gamemaster", "role": 4},
		{"_id": "p1", "name": "Ana", "role": 1}
	],
	"actors": [
		{
			"_id": "fighter", "name": "Brom", "type": "character",
			"max_hp": 30, "ac": 18,
			"ownership": {"p1": 3},
			"items": [
				{"_id": "potion", "name": "Potion of Speed", "type": "consumable",
				 "uses": {"value": 1, "max": 1, "autoDestroy": true},
				 "effects": [{"_id": "haste", "label": "Haste", "duration": {"rounds": 10}}]},
				{"_id": "stone", "name": "Spent Ioun Stone", "type": "trinket",
				 "uses": {"value": 0, "max": 3}}
			]
		}
	],
	"scenes": [
		{
			"_id": "hall", "name": "Great Hall",
			"tokens": [
				{"_id": "tok-fighter", "name": "Brom", "actor_id": "fighter"},
				{"_id": "tok-door", "name": "Door"}
			]
		}
	]
}`

// seedWorld stores a live copy of the keep and returns its id
func seedWorld(t *testing.T, store *storage.MockStorage) uuid.UUID {
	t.Helper()
	w, err := world.Parse([]byte(keepWorldJSON))
	require.NoError(t, err)
	w.ID = uuid.New()
	require.NoError(t, store.SaveWorld(context.Background(), w))
	return w.ID
}

type fakeEvents struct {
	mu      sync.Mutex
	updates []string
	queued  []string
}

func (f *fakeEvents) PublishWorldUpdated(_ context.Context, _ uuid.UUID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, reason)
	return nil
}

func (f *fakeEvents) PublishRequestQueued(_ context.Context, _ uuid.UUID, requestID string, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queued = append(f.queued, requestID)
	return nil
}

type fakeQueue struct {
	requests []*queue.Request
	err      error
}

func (f *fakeQueue) EnqueueRequest(_ context.Context, req *queue.Request) error {
	if f.err != nil {
		return f.err
	}
	f.requests = append(f.requests, req)
	return nil
}

type fakeLock struct {
	busy     bool
	acquired int
	released []string
}

func (f *fakeLock) Acquire(_ context.Context, _ uuid.UUID) (string, bool, error) {
	if f.busy {
		return "", false, nil
	}
	f.acquired++
	return fmt.Sprintf("token-%d", f.acquired), true, nil
}

func (f *fakeLock) Release(_ context.Context, _ uuid.UUID, token string) error {
	f.released = append(f.released, token)
	return nil
}
