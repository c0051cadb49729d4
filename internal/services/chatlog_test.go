package services

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jwebster45206/effect-cards/pkg/chat"
	"github.com/jwebster45206/effect-cards/pkg/storage"
	"github.com/jwebster45206/effect-cards/pkg/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	published []uuid.UUID
	err       error
}

func (p *recordingPublisher) PublishChatMessageCreated(_ context.Context, _ uuid.UUID, messageID uuid.UUID, _ string) error {
	p.published = append(p.published, messageID)
	return p.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestChatLog_CreateMessage(t *testing.T) {
	store := storage.NewMockStorage()
	pub := &recordingPublisher{}
	log := NewChatLog(store, pub, testLogger())
	ctx := context.Background()
	worldID := uuid.New()

	msg, err := log.CreateMessage(ctx, &chat.Message{WorldID: worldID, User: "p1", Content: "hello"})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, msg.ID)
	assert.False(t, msg.Timestamp.IsZero())
	assert.NotNil(t, msg.Whisper)
	assert.Equal(t, []uuid.UUID{msg.ID}, pub.published)

	stored, err := store.ListChatMessages(ctx, worldID, 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, msg.ID, stored[0].ID)
}

func TestChatLog_CreateMessageErrors(t *testing.T) {
	log := NewChatLog(storage.NewMockStorage(), nil, testLogger())

	_, err := log.CreateMessage(context.Background(), &chat.Message{Content: "no world"})
	assert.Error(t, err)
}

func TestChatLog_PublishFailureKeepsMessage(t *testing.T) {
	store := storage.NewMockStorage()
	log := NewChatLog(store, &recordingPublisher{err: errors.New("redis down")}, testLogger())
	worldID := uuid.New()

	_, err := log.CreateMessage(context.Background(), &chat.Message{WorldID: worldID, User: "p1"})
	require.NoError(t, err)

	stored, _ := store.ListChatMessages(context.Background(), worldID, 0)
	assert.Len(t, stored, 1)
}

func TestChatLog_Messages(t *testing.T) {
	store := storage.NewMockStorage()
	log := NewChatLog(store, nil, testLogger())
	ctx := context.Background()
	worldID := uuid.New()

	for _, m := range []*chat.Message{
		{WorldID: worldID, User: "p1", Content: "public"},
		{WorldID: worldID, User: "p1", Content: "card", Whisper: []string{"gm1"}, Blind: true},
		{WorldID: worldID, User: "p2", Content: "secret", Whisper: []string{"gm1"}},
	} {
		_, err := log.CreateMessage(ctx, m)
		require.NoError(t, err)
	}

	gm := &world.User{ID: "gm1", Role: world.RoleGamemaster}
	msgs, err := log.Messages(ctx, worldID, gm, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "card", msgs[1].Content)

	author := &world.User{ID: "p1", Role: world.RolePlayer}
	msgs, err = log.Messages(ctx, worldID, author, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "public", msgs[0].Content)
	assert.Empty(t, msgs[1].Content, "blind card content is hidden from its author")

	other := &world.User{ID: "p3", Role: world.RolePlayer}
	msgs, err = log.Messages(ctx, worldID, other, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	latest, err := log.Messages(ctx, worldID, gm, 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "secret", latest[0].Content)
}
