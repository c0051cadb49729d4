package actor

import (
	"testing"

	"github.com/jwebster45206/effect-cards/pkg/item"
)

func TestStats5e_ToAttributes(t *testing.T) {
	stats := Stats5e{
		Strength:     16,
		Dexterity:    14,
		Constitution: 15,
		Intelligence: 10,
		Wisdom:       12,
		Charisma:     8,
	}

	attrs := stats.ToAttributes()

	tests := []struct {
		key      string
		expected int
	}{
		{"strength", 16},
		{"dexterity", 14},
		{"constitution", 15},
		{"intelligence", 10},
		{"wisdom", 12},
		{"charisma", 8},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := attrs[tt.key]; got != tt.expected {
				t.Errorf("ToAttributes()[%q] = %d, want %d", tt.key, got, tt.expected)
			}
		})
	}
}

func testSpec() *Spec {
	return &Spec{
		ID:    "cleric",
		Name:  "Sister Ilse",
		Type:  "character",
		HP:    18,
		MaxHP: 24,
		AC:    17,
		Stats: Stats5e{Strength: 12, Dexterity: 10, Constitution: 14, Intelligence: 10, Wisdom: 17, Charisma: 13},
		Attributes: map[string]int{
			"religion": 5,
		},
		Ownership: map[string]OwnershipLevel{
			"player1": OwnershipOwner,
			"player2": OwnershipObserver,
		},
		Items: []*item.Item{
			{ID: "bless", Name: "Bless", Type: "spell"},
			{ID: "mace", Name: "Mace", Type: "weapon"},
		},
	}
}

func TestNewActorFromSpec(t *testing.T) {
	a, err := NewActorFromSpec(testSpec())
	if err != nil {
		t.Fatalf("NewActorFromSpec() error = %v", err)
	}

	if a.Stats == nil {
		t.Fatal("Actor.Stats is nil, want non-nil")
	}
	if a.Stats.MaxHP() != 24 {
		t.Errorf("Stats.MaxHP() = %d, want %d", a.Stats.MaxHP(), 24)
	}
	if a.Stats.HP() != 18 {
		t.Errorf("Stats.HP() = %d, want %d", a.Stats.HP(), 18)
	}
	if a.Stats.AC() != 17 {
		t.Errorf("Stats.AC() = %d, want %d", a.Stats.AC(), 17)
	}
	if wis, ok := a.Stats.Attribute("wisdom"); !ok || wis != 17 {
		t.Errorf("Stats.Attribute('wisdom') = %d, %v, want 17, true", wis, ok)
	}
	if rel, ok := a.Stats.Attribute("religion"); !ok || rel != 5 {
		t.Errorf("Stats.Attribute('religion') = %d, %v, want 5, true", rel, ok)
	}

	it, ok := a.Item("bless")
	if !ok {
		t.Fatal("Item('bless') not found")
	}
	if got := it.UUID(); got != "Actor.cleric.Item.bless" {
		t.Errorf("item UUID = %q, want %q", got, "Actor.cleric.Item.bless")
	}
	if it.Parent().Type != item.ParentActor || it.Parent().ID != "cleric" {
		t.Errorf("item parent = %+v, want actor cleric", it.Parent())
	}
}

func TestNewActorFromSpec_Errors(t *testing.T) {
	if _, err := NewActorFromSpec(nil); err == nil {
		t.Error("NewActorFromSpec(nil) should fail")
	}
	if _, err := NewActorFromSpec(&Spec{Name: "Nobody"}); err == nil {
		t.Error("NewActorFromSpec() without id should fail")
	}
}

func TestActor_TokenIdentity(t *testing.T) {
	spec := testSpec()
	a, err := NewActorFromSpec(spec)
	if err != nil {
		t.Fatalf("NewActorFromSpec() error = %v", err)
	}
	if a.IsToken() {
		t.Error("linked actor should not be a token actor")
	}
	if a.UUID() != "Actor.cleric" {
		t.Errorf("UUID() = %q, want %q", a.UUID(), "Actor.cleric")
	}

	goblin := &Spec{
		ID:      "goblin",
		Name:    "Goblin",
		MaxHP:   7,
		AC:      15,
		SceneID: "cave",
		TokenID: "tok-goblin-1",
		Items:   []*item.Item{{ID: "scimitar", Name: "Scimitar"}},
	}
	g, err := NewActorFromSpec(goblin)
	if err != nil {
		t.Fatalf("NewActorFromSpec() error = %v", err)
	}
	if !g.IsToken() {
		t.Error("unlinked token actor should report IsToken")
	}
	if g.TokenID() != "tok-goblin-1" {
		t.Errorf("TokenID() = %q, want %q", g.TokenID(), "tok-goblin-1")
	}
	want := "Scene.cave.Token.tok-goblin-1.Actor.goblin"
	if g.UUID() != want {
		t.Errorf("UUID() = %q, want %q", g.UUID(), want)
	}
	it, _ := g.Item("scimitar")
	if it.UUID() != want+".Item.scimitar" {
		t.Errorf("item UUID = %q, want %q", it.UUID(), want+".Item.scimitar")
	}
}

func TestActor_Ownership(t *testing.T) {
	a, err := NewActorFromSpec(testSpec())
	if err != nil {
		t.Fatalf("NewActorFromSpec() error = %v", err)
	}

	if !a.IsOwner("player1") {
		t.Error("player1 should own the actor")
	}
	if a.IsOwner("player2") {
		t.Error("observer should not own the actor")
	}
	owners := a.Owners()
	if len(owners) != 1 || owners[0] != "player1" {
		t.Errorf("Owners() = %v, want [player1]", owners)
	}
}

func TestActor_RemoveItem(t *testing.T) {
	a, err := NewActorFromSpec(testSpec())
	if err != nil {
		t.Fatalf("NewActorFromSpec() error = %v", err)
	}

	if !a.RemoveItem("bless") {
		t.Fatal("RemoveItem('bless') = false, want true")
	}
	if _, ok := a.Item("bless"); ok {
		t.Error("item still present after RemoveItem")
	}
	if len(a.Items()) != 1 {
		t.Errorf("len(Items()) = %d, want 1", len(a.Items()))
	}
	if a.RemoveItem("bless") {
		t.Error("RemoveItem on a missing item should return false")
	}
}

func TestActor_Snapshot(t *testing.T) {
	a, err := NewActorFromSpec(testSpec())
	if err != nil {
		t.Fatalf("NewActorFromSpec() error = %v", err)
	}
	if err := a.Stats.SetHP(5); err != nil {
		t.Fatalf("SetHP() error = %v", err)
	}

	snap := a.Snapshot()
	if snap.HP != 5 {
		t.Errorf("Snapshot().HP = %d, want 5", snap.HP)
	}
	if snap.MaxHP != 24 || snap.AC != 17 {
		t.Errorf("Snapshot() max_hp/ac = %d/%d, want 24/17", snap.MaxHP, snap.AC)
	}
	if a.Spec.HP != 18 {
		t.Errorf("Snapshot() mutated the spec HP to %d", a.Spec.HP)
	}
}
