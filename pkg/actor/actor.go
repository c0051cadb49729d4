package actor

import (
	"fmt"
	"maps"

	"github.com/jwebster45206/d20"
	"github.com/jwebster45206/effect-cards/pkg/item"
)

// OwnershipLevel is a user's permission level on an actor
type OwnershipLevel int

const (
	OwnershipNone OwnershipLevel = iota
	OwnershipLimited
	OwnershipObserver
	OwnershipOwner
)

// Stats5e represents the six core D&D 5e ability scores
type Stats5e struct {
	Strength     int `json:"strength"`
	Dexterity    int `json:"dexterity"`
	Constitution int `json:"constitution"`
	Intelligence int `json:"intelligence"`
	Wisdom       int `json:"wisdom"`
	Charisma     int `json:"charisma"`
}

// ToAttributes converts Stats5e to a map for d20.Actor compatibility
func (s *Stats5e) ToAttributes() map[string]int {
	return map[string]int{
		"strength":     s.Strength,
		"dexterity":    s.Dexterity,
		"constitution": s.Constitution,
		"intelligence": s.Intelligence,
		"wisdom":       s.Wisdom,
		"charisma":     s.Charisma,
	}
}

// Spec is the serializable definition of an actor
type Spec struct {
	ID              string                    `json:"_id"`
	Name            string                    `json:"name"`
	Type            string                    `json:"type,omitempty"` // "character", "npc", "vehicle"
	Img             string                    `json:"img,omitempty"`
	SceneID         string                    `json:"scene_id,omitempty"` // set for unlinked token actors
	TokenID         string                    `json:"token_id,omitempty"` // set for unlinked token actors
	Ownership       map[string]OwnershipLevel `json:"ownership,omitempty"`
	Stats           Stats5e                   `json:"stats,omitempty"`
	HP              int                       `json:"hp,omitempty"`
	MaxHP           int                       `json:"max_hp,omitempty"`
	AC              int                       `json:"ac,omitempty"`
	CombatModifiers map[string]int            `json:"combat_modifiers,omitempty"`
	Attributes      map[string]int            `json:"attributes,omitempty"`
	Items           []*item.Item              `json:"items,omitempty"`
}

// Actor is the runtime representation of an actor
type Actor struct {
	Spec  *Spec
	Stats *d20.Actor // Built at runtime from Spec
}

// NewActorFromSpec builds the runtime actor and attaches its items
func NewActorFromSpec(spec *Spec) (*Actor, error) {
	if spec == nil {
		return nil, fmt.Errorf("spec cannot be nil")
	}
	if spec.ID == "" {
		return nil, fmt.Errorf("actor id cannot be empty")
	}

	allAttrs := spec.Stats.ToAttributes()
	maps.Copy(allAttrs, spec.Attributes)

	stats, err := d20.NewActor(spec.ID).
		WithHP(spec.MaxHP).
		WithAC(spec.AC).
		WithAttributes(allAttrs).
		WithCombatModifiers(spec.CombatModifiers).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build actor %s: %w", spec.ID, err)
	}

	if spec.HP != spec.MaxHP && spec.HP > 0 {
		if err := stats.SetHP(spec.HP); err != nil {
			return nil, fmt.Errorf("failed to set HP for actor %s: %w", spec.ID, err)
		}
	}

	a := &Actor{Spec: spec, Stats: stats}
	parent := item.Parent{Type: item.ParentActor, ID: spec.ID, UUID: a.UUID()}
	for _, it := range spec.Items {
		it.Attach(parent)
	}
	return a, nil
}

func (a *Actor) ID() string   { return a.Spec.ID }
func (a *Actor) Name() string { return a.Spec.Name }

// IsToken reports whether this actor is an unlinked token representation
func (a *Actor) IsToken() bool {
	return a.Spec.TokenID != ""
}

// TokenID returns the id of the token this actor represents, if any
func (a *Actor) TokenID() string {
	return a.Spec.TokenID
}

// UUID returns the actor's unique reference within the world
func (a *Actor) UUID() string {
	if a.IsToken() && a.Spec.SceneID != "" {
		return fmt.Sprintf("Scene.%s.Token.%s.Actor.%s", a.Spec.SceneID, a.Spec.TokenID, a.Spec.ID)
	}
	return "Actor." + a.Spec.ID
}

// Items returns the actor's embedded items
func (a *Actor) Items() []*item.Item {
	return a.Spec.Items
}

// Item returns the embedded item with the given id
func (a *Actor) Item(id string) (*item.Item, bool) {
	for _, it := range a.Spec.Items {
		if it.ID == id {
			return it, true
		}
	}
	return nil, false
}

// RemoveItem deletes an embedded item. It reports whether the item existed.
func (a *Actor) RemoveItem(id string) bool {
	for i, it := range a.Spec.Items {
		if it.ID == id {
			a.Spec.Items = append(a.Spec.Items[:i], a.Spec.Items[i+1:]...)
			return true
		}
	}
	return false
}

// Owners returns the ids of users with owner permission
func (a *Actor) Owners() []string {
	var out []string
	for userID, level := range a.Spec.Ownership {
		if level >= OwnershipOwner {
			out = append(out, userID)
		}
	}
	return out
}

// IsOwner reports whether the user owns this actor
func (a *Actor) IsOwner(userID string) bool {
	return a.Spec.Ownership[userID] >= OwnershipOwner
}

// Snapshot returns the spec with HP synced from the runtime stats
func (a *Actor) Snapshot() *Spec {
	spec := *a.Spec
	spec.HP = a.Stats.HP()
	spec.MaxHP = a.Stats.MaxHP()
	spec.AC = a.Stats.AC()
	return &spec
}
