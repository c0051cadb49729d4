package world

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWorldJSON = `{
	"name": "Sunless Citadel",
	"system_id": "dnd5e",
	"active_scene": "courtyard",
	"users": [
		{"_id": "gm1", "name": "Gamemaster", "role": 4},
		{"_id": "asst", "name": "Assistant", "role": 3},
		{"_id": "p1", "name": "Ana", "role": 1},
		{"_id": "p2", "name": "Bo", "role": 2}
	],
	"actors": [
		{
			"_id": "cleric", "name": "Sister Ilse", "type": "character",
			"max_hp": 24, "ac": 17,
			"ownership": {"p1": 3, "p2": 1},
			"items": [
				{"_id": "bless", "name": "Bless", "type": "spell",
				 "effects": [{"_id": "blessed", "label": "Blessed", "duration": {"rounds": 10}}]},
				{"_id": "potion", "name": "Potion of Heroism", "type": "consumable",
				 "uses": {"value": 1, "max": 1, "autoDestroy": true},
				 "effects": [{"_id": "heroism", "label": "Heroism", "duration": {"seconds": 600}}]}
			]
		},
		{
			"_id": "goblin", "name": "Goblin", "type": "npc",
			"max_hp": 7, "ac": 15,
			"scene_id": "courtyard", "token_id": "tok-goblin",
			"items": [{"_id": "scimitar", "name": "Scimitar", "type": "weapon"}]
		},
		{
			"_id": "fighter", "name": "Sister Ilse", "type": "character",
			"max_hp": 30, "ac": 18,
			"ownership": {"p2": 3}
		}
	],
	"scenes": [
		{
			"_id": "courtyard", "name": "Courtyard",
			"tokens": [
				{"_id": "tok-cleric", "name": "Ilse", "actor_id": "cleric"},
				{"_id": "tok-goblin", "name": "Goblin Sneak", "actor_id": "goblin"},
				{"_id": "tok-statue", "name": "Statue"},
				{"_id": "tok-fighter", "name": "Fighter", "actor_id": "fighter"}
			]
		}
	],
	"items": [
		{"_id": "loose-scroll", "name": "Scroll of Shield", "type": "consumable",
		 "effects": [{"_id": "shield", "label": "Shield", "duration": {"rounds": 1}}]}
	]
}`

func newTestWorld(t *testing.T) *World {
	t.Helper()
	w, err := Parse([]byte(testWorldJSON))
	require.NoError(t, err)
	return w
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sunless_citadel.json")
	require.NoError(t, os.WriteFile(path, []byte(testWorldJSON), 0644))

	w, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Sunless Citadel", w.Name)
	assert.Equal(t, "dnd5e", w.SystemID)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid json", `{"name":`},
		{"duplicate user", `{"users":[{"_id":"a"},{"_id":"a"}]}`},
		{"unknown token actor", `{"scenes":[{"_id":"s","tokens":[{"_id":"t","actor_id":"ghost"}]}]}`},
		{"actor without id", `{"actors":[{"name":"Nameless","max_hp":4,"ac":10}]}`},
		{"duplicate item across actors", `{"actors":[
			{"_id":"a","max_hp":4,"ac":10,"items":[{"_id":"potion","uses":{"value":1,"max":1,"autoDestroy":true}}]},
			{"_id":"b","max_hp":4,"ac":10,"items":[{"_id":"potion","uses":{"value":3,"max":3}}]}]}`},
		{"duplicate item on one actor", `{"actors":[{"_id":"a","max_hp":4,"ac":10,"items":[{"_id":"x"},{"_id":"x"}]}]}`},
		{"world item shadows actor item", `{"actors":[{"_id":"a","max_hp":4,"ac":10,"items":[{"_id":"x"}]}],"items":[{"_id":"x"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Errorf("Parse(%s) should fail", tt.name)
			}
		})
	}
}

func TestWorld_ItemLookup(t *testing.T) {
	w := newTestWorld(t)

	it, ok := w.Item("bless")
	require.True(t, ok)
	assert.Equal(t, "Actor.cleric.Item.bless", it.UUID())

	a, ok := w.ItemActor(it)
	require.True(t, ok)
	assert.Equal(t, "cleric", a.ID())

	loose, ok := w.Item("loose-scroll")
	require.True(t, ok)
	assert.Equal(t, "Item.loose-scroll", loose.UUID())
	_, ok = w.ItemActor(loose)
	assert.False(t, ok, "world items have no owning actor")

	_, ok = w.Item("nope")
	assert.False(t, ok)
}

func TestWorld_Tokens(t *testing.T) {
	w := newTestWorld(t)

	tok, ok := w.Token("tok-goblin")
	require.True(t, ok)
	assert.Equal(t, "courtyard", tok.SceneID)
	require.NotNil(t, tok.Actor)
	assert.Equal(t, "goblin", tok.Actor.ID())

	statue, ok := w.Token("tok-statue")
	require.True(t, ok)
	assert.Nil(t, statue.Actor)
}

func TestWorld_Targets(t *testing.T) {
	w := newTestWorld(t)

	assert.Empty(t, w.UserTargets("p1"))

	require.NoError(t, w.SetTargets("p1", []string{"tok-goblin", "tok-statue", "tok-cleric", "tok-goblin"}))

	targets := w.UserTargets("p1")
	ids := make([]string, 0, len(targets))
	for _, tok := range targets {
		ids = append(ids, tok.ID)
	}
	assert.Equal(t, []string{"tok-goblin", "tok-statue", "tok-cleric"}, ids, "order is preserved and duplicates dropped")

	assert.Error(t, w.SetTargets("p1", []string{"tok-missing"}))
	assert.Error(t, w.SetTargets("stranger", []string{"tok-goblin"}))

	require.NoError(t, w.SetTargets("p1", nil))
	assert.Empty(t, w.UserTargets("p1"))
}

func TestWorld_WhisperRecipients(t *testing.T) {
	w := newTestWorld(t)

	tests := []struct {
		name     string
		query    string
		expected []string
	}{
		{"gm", "gm", []string{"gm1", "asst"}},
		{"dm upper case", "DM", []string{"gm1", "asst"}},
		{"players", "players", []string{"p1", "p2"}},
		{"user name", "ana", []string{"p1"}},
		{"actor name matches owners of every actor", "Sister Ilse", []string{"p1", "p2"}},
		{"nobody", "nobody", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, w.WhisperRecipients(tt.query))
		})
	}
}

func TestWorld_Speaker(t *testing.T) {
	w := newTestWorld(t)

	cleric, _ := w.Actor("cleric")
	sp := w.Speaker(cleric)
	assert.Equal(t, "courtyard", sp.Scene)
	assert.Equal(t, "cleric", sp.Actor)
	assert.Empty(t, sp.Token)
	assert.Equal(t, "Sister Ilse", sp.Alias)

	goblin, _ := w.Actor("goblin")
	sp = w.Speaker(goblin)
	assert.Equal(t, "tok-goblin", sp.Token)
	assert.Equal(t, "Goblin Sneak", sp.Alias, "token actors speak with the token name")
}

func TestWorld_ConsumeItem(t *testing.T) {
	w := newTestWorld(t)

	deleted, err := w.ConsumeItem("bless")
	require.NoError(t, err)
	assert.False(t, deleted, "items without uses are never destroyed")

	deleted, err = w.ConsumeItem("potion")
	require.NoError(t, err)
	assert.True(t, deleted)
	_, ok := w.Item("potion")
	assert.False(t, ok)

	_, err = w.ConsumeItem("potion")
	assert.Error(t, err)
}

func TestWorld_ConsumeItem_RemovesFromOwner(t *testing.T) {
	w := newTestWorld(t)

	cleric, ok := w.Actor("cleric")
	require.True(t, ok)
	goblin, ok := w.Actor("goblin")
	require.True(t, ok)

	deleted, err := w.ConsumeItem("potion")
	require.NoError(t, err)
	require.True(t, deleted)

	_, ok = cleric.Item("potion")
	assert.False(t, ok, "potion should be gone from its owner")
	_, ok = cleric.Item("bless")
	assert.True(t, ok, "other items of the owner are kept")
	_, ok = goblin.Item("scimitar")
	assert.True(t, ok, "other actors are untouched")
	_, ok = w.Item("loose-scroll")
	assert.True(t, ok, "world items are untouched")
}

func TestWorld_DeleteItem(t *testing.T) {
	w := newTestWorld(t)

	assert.True(t, w.DeleteItem("loose-scroll"))
	_, ok := w.Item("loose-scroll")
	assert.False(t, ok)

	assert.True(t, w.DeleteItem("scimitar"))
	_, ok = w.Item("scimitar")
	assert.False(t, ok)

	assert.False(t, w.DeleteItem("scimitar"))
}

func TestWorld_CurrentUser(t *testing.T) {
	w := newTestWorld(t)

	_, err := w.CurrentUser(context.Background())
	assert.True(t, errors.Is(err, ErrNoUser))

	u, err := w.CurrentUser(WithUser(context.Background(), "gm1"))
	require.NoError(t, err)
	assert.True(t, u.IsGM())

	_, err = w.CurrentUser(WithUser(context.Background(), "ghost"))
	assert.Error(t, err)
}

func TestWorld_Snapshot(t *testing.T) {
	w := newTestWorld(t)
	require.NoError(t, w.SetTargets("p1", []string{"tok-goblin"}))

	goblin, _ := w.Actor("goblin")
	require.NoError(t, goblin.Stats.SetHP(3))

	snap := w.Snapshot()
	assert.Equal(t, []string{"tok-goblin"}, snap.Targets["p1"])

	var hp int
	for _, spec := range snap.Actors {
		if spec.ID == "goblin" {
			hp = spec.HP
		}
	}
	assert.Equal(t, 3, hp)

	snap.Targets["p1"][0] = "changed"
	assert.Equal(t, "tok-goblin", w.UserTargets("p1")[0].ID, "snapshot targets must be a copy")
}
