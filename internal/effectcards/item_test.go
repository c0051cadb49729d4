package effectcards

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/jwebster45206/effect-cards/internal/hooks"
	"github.com/jwebster45206/effect-cards/internal/i18n"
	"github.com/jwebster45206/effect-cards/internal/render"
	"github.com/jwebster45206/effect-cards/pkg/chat"
	"github.com/jwebster45206/effect-cards/pkg/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cardWorldJSON = `{
	"id": "5b0e7f2c-3a41-4c55-9f0e-2d7c1b6a9e10",
	"name": "Tomb of Horrors",
	"system_id": "dnd5e",
	"active_scene": "crypt",
	"users": [
		{"_id": "gm1", "name": "Gamemaster", "role": 4},
		{"_id": "asst", "name": "Assistant", "role": 3},
		{"_id": "p1", "name": "Ana", "role": 1}
	],
	"actors": [
		{
			"_id": "cleric", "name": "Sister Ilse", "type": "character",
			"max_hp": 24, "ac": 17,
			"ownership": {"p1": 3},
			"items": [
				{"_id": "potion", "name": "Potion of Heroism", "type": "consumable",
				 "uses": {"value": 1, "max": 1, "autoDestroy": true},
				 "effects": [
					{"_id": "heroism", "label": "heroism", "origin": "Compendium.dnd5e.items.heroism", "duration": {"seconds": 600}},
					{"_id": "aura", "label": "aura"}
				 ]},
				{"_id": "amulet", "name": "Amulet of Health", "type": "equipment",
				 "effects": [{"_id": "health", "label": "health", "transfer": true}]},
				{"_id": "mace", "name": "Mace", "type": "weapon"}
			]
		},
		{
			"_id": "skeleton", "name": "Skeleton", "type": "npc",
			"max_hp": 13, "ac": 13,
			"scene_id": "crypt", "token_id": "tok-skeleton",
			"items": [
				{"_id": "dread", "name": "Dreadful Glare", "type": "feat",
				 "effects": [{"_id": "frightened", "label": "frightened", "statuses": ["frightened"]}]}
			]
		}
	],
	"scenes": [
		{
			"_id": "crypt", "name": "Crypt",
			"tokens": [
				{"_id": "tok-cleric", "name": "Ilse", "actor_id": "cleric"},
				{"_id": "tok-skeleton", "name": "Rattling Skeleton", "actor_id": "skeleton"},
				{"_id": "tok-urn", "name": "Urn"}
			]
		}
	],
	"items": [
		{"_id": "loose-scroll", "name": "Scroll of Shield", "type": "consumable",
		 "effects": [{"_id": "shield", "label": "shield", "duration": {"rounds": 1}}]}
	]
}`

type fakeChat struct {
	messages []*chat.Message
	err      error
}

func (f *fakeChat) CreateMessage(_ context.Context, msg *chat.Message) (*chat.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.messages = append(f.messages, msg)
	return msg, nil
}

type failingRenderer struct{}

func (failingRenderer) Render(context.Context, string, any) (string, error) {
	return "", errors.New("template exploded")
}

type testEnv struct {
	world  *world.World
	chat   *fakeChat
	module *Module
	bus    *hooks.Bus
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	w, err := world.Parse([]byte(cardWorldJSON))
	require.NoError(t, err)

	loc, err := i18n.New("en", Translations)
	require.NoError(t, err)

	r := render.New(loc, logger)
	r.Mount("modules/"+ModuleName, Templates())

	fc := &fakeChat{}
	m := New(w, r, fc, loc, logger, true)
	bus := hooks.NewBus(logger)
	m.Init(bus)

	return &testEnv{world: w, chat: fc, module: m, bus: bus}
}

func (e *testEnv) use(t *testing.T, userID, itemID string) error {
	t.Helper()
	it, ok := e.world.Item(itemID)
	require.True(t, ok, "item %s not found", itemID)
	return e.bus.CallAll(world.WithUser(context.Background(), userID), UseItemHook(e.world.System()), it)
}

func cardFlagsOf(t *testing.T, msg *chat.Message) CardFlags {
	t.Helper()
	var flags CardFlags
	ok, err := msg.GetFlag(ModuleName, &flags)
	require.NoError(t, err)
	require.True(t, ok, "message has no %s flags", ModuleName)
	return flags
}

func TestModule_Init(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, 1, env.bus.Count("dnd5e.useItem"))
	assert.Equal(t, 0, env.bus.Count("pf2e.useItem"))
}

func TestHandleUseItem_CreatesBlindGMWhisper(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.world.SetTargets("p1", []string{"tok-skeleton"}))

	require.NoError(t, env.use(t, "p1", "potion"))
	require.Len(t, env.chat.messages, 1)

	msg := env.chat.messages[0]
	assert.Equal(t, env.world.ID, msg.WorldID)
	assert.Equal(t, chat.TypeOther, msg.Type)
	assert.Equal(t, "p1", msg.User)
	assert.Equal(t, []string{"gm1", "asst"}, msg.Whisper)
	assert.True(t, msg.Blind)
	assert.Equal(t, "Item Effects", msg.Flavor)
	assert.Equal(t, chat.Speaker{Scene: "crypt", Actor: "cleric", Alias: "Sister Ilse"}, msg.Speaker)

	var core CoreFlags
	ok, err := msg.GetFlag("core", &core)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, core.CanPopout)

	assert.Contains(t, msg.Content, "Heroism")
	assert.Contains(t, msg.Content, "Rattling Skeleton")
	assert.NotContains(t, msg.Content, "Aura")
	// the user who rolled is a player, so no GM controls are rendered
	assert.NotContains(t, msg.Content, `data-action="apply"`)

	// the player cannot read the card, a GM can
	hidden, visible := msg.ForViewer("p1", false)
	require.True(t, visible)
	assert.Empty(t, hidden.Content)
	shown, visible := msg.ForViewer("gm1", true)
	require.True(t, visible)
	assert.Equal(t, msg.Content, shown.Content)
}

func TestHandleUseItem_Flags(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.world.SetTargets("p1", []string{"tok-skeleton", "tok-urn", "tok-cleric"}))

	require.NoError(t, env.use(t, "p1", "potion"))
	require.Len(t, env.chat.messages, 1)
	flags := cardFlagsOf(t, env.chat.messages[0])

	assert.True(t, flags.IsEffectListCard)
	assert.Equal(t, SourceActor{ActorID: "cleric", SceneID: "crypt"}, flags.SourceActor)
	// tokens without an actor are dropped, selection order is kept
	assert.Equal(t, []string{"tok-skeleton", "tok-cleric"}, flags.TargetedTokenIDs)
	assert.Equal(t, []string{
		"Actor.cleric.Item.potion.ActiveEffect.heroism",
		"Actor.cleric.Item.potion.ActiveEffect.aura",
	}, flags.EffectUUIDs)

	require.Len(t, flags.EffectData, 1)
	snap := flags.EffectData[0]
	assert.Equal(t, "heroism", snap.ID)
	assert.Equal(t, "Actor.cleric.Item.potion.ActiveEffect.heroism", snap.StatusID)
	assert.Equal(t, "Actor.cleric.Item.potion", snap.Origin)
	require.NotNil(t, snap.Duration.Seconds)
	assert.Equal(t, 600, *snap.Duration.Seconds)
}

func TestHandleUseItem_FlagsWireFormat(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.use(t, "p1", "potion"))
	require.Len(t, env.chat.messages, 1)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(env.chat.messages[0].Flags[ModuleName], &raw))

	source := raw["sourceActor"].(map[string]any)
	assert.Contains(t, source, "tokenId")
	assert.Nil(t, source["tokenId"])
	assert.Equal(t, []any{}, raw["targetedTokenIds"])

	data := raw["effectData"].([]any)
	require.Len(t, data, 1)
	effect := data[0].(map[string]any)
	assert.Equal(t, "heroism", effect["_id"])
	assert.Equal(t, "Actor.cleric.Item.potion.ActiveEffect.heroism", effect["id"])
	assert.Equal(t, "Actor.cleric.Item.potion", effect["origin"])
}

func TestHandleUseItem_TokenActor(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.use(t, "gm1", "dread"))
	require.Len(t, env.chat.messages, 1)
	msg := env.chat.messages[0]
	flags := cardFlagsOf(t, msg)

	require.NotNil(t, flags.SourceActor.TokenID)
	assert.Equal(t, "tok-skeleton", *flags.SourceActor.TokenID)
	assert.Equal(t, "skeleton", flags.SourceActor.ActorID)
	assert.Equal(t, "Scene.crypt.Token.tok-skeleton.Actor.skeleton.Item.dread", flags.EffectData[0].Origin)
	assert.Equal(t, "tok-skeleton", msg.Speaker.Token)
	assert.Equal(t, "Rattling Skeleton", msg.Speaker.Alias)

	// a GM sees the apply controls
	assert.Contains(t, msg.Content, `data-action="apply"`)
	assert.Contains(t, msg.Content, "Frightened")
	assert.Contains(t, msg.Content, "No targets selected")
}

func TestHandleUseItem_OriginSurvivesDeletion(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.use(t, "p1", "potion"))
	deleted, err := env.world.ConsumeItem("potion")
	require.NoError(t, err)
	require.True(t, deleted)

	_, ok := env.world.Item("potion")
	assert.False(t, ok)

	require.Len(t, env.chat.messages, 1)
	flags := cardFlagsOf(t, env.chat.messages[0])
	require.Len(t, flags.EffectData, 1)
	assert.Equal(t, "Actor.cleric.Item.potion", flags.EffectData[0].Origin)
	assert.Equal(t, "heroism", flags.EffectData[0].Label)
}

func TestHandleUseItem_NoCard(t *testing.T) {
	tests := []struct {
		name   string
		itemID string
	}{
		{name: "item without effects", itemID: "mace"},
		{name: "only passive effects", itemID: "amulet"},
		{name: "item not owned by an actor", itemID: "loose-scroll"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			require.NoError(t, env.use(t, "p1", tt.itemID))
			assert.Empty(t, env.chat.messages)
		})
	}
}

func TestHandleUseItem_Errors(t *testing.T) {
	t.Run("no current user", func(t *testing.T) {
		env := newTestEnv(t)
		it, _ := env.world.Item("potion")
		err := env.module.HandleUseItem(context.Background(), it)
		assert.ErrorIs(t, err, world.ErrNoUser)
		assert.Empty(t, env.chat.messages)
	})

	t.Run("render failure", func(t *testing.T) {
		env := newTestEnv(t)
		env.module.renderer = failingRenderer{}
		err := env.use(t, "p1", "potion")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "template exploded")
		assert.Empty(t, env.chat.messages)
	})

	t.Run("chat failure", func(t *testing.T) {
		env := newTestEnv(t)
		env.chat.err = errors.New("storage offline")
		err := env.use(t, "p1", "potion")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage offline")
	})
}

func TestOnUseItem_IgnoresUnexpectedPayload(t *testing.T) {
	env := newTestEnv(t)
	err := env.bus.CallAll(world.WithUser(context.Background(), "p1"), "dnd5e.useItem", "not an item")
	assert.NoError(t, err)
	assert.Empty(t, env.chat.messages)
}
