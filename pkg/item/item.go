package item

import "fmt"

// ParentType identifies what kind of document owns an item
type ParentType string

const (
	ParentNone  ParentType = ""
	ParentActor ParentType = "Actor"
)

// Parent is a reference to the owner of an item. UUID is filled in by the
// world index when the item is attached.
type Parent struct {
	Type ParentType `json:"type,omitempty"`
	ID   string     `json:"id,omitempty"`
	UUID string     `json:"-"`
}

// Uses tracks limited charges on consumables
type Uses struct {
	Value       int  `json:"value"`
	Max         int  `json:"max"`
	AutoDestroy bool `json:"autoDestroy,omitempty"`
}

// Item is a usable game object owned by an actor or by the world
type Item struct {
	ID      string    `json:"_id"`
	Name    string    `json:"name"`
	Type    string    `json:"type"` // e.g. "weapon", "spell", "consumable", "feat"
	Img     string    `json:"img,omitempty"`
	Uses    *Uses     `json:"uses,omitempty"`
	Effects []*Effect `json:"effects,omitempty"`

	parent Parent
}

// Attach binds the item to its parent and its effects to the item
func (i *Item) Attach(p Parent) {
	i.parent = p
	for _, e := range i.Effects {
		e.parent = i
	}
}

// Parent returns the owner reference set by Attach
func (i *Item) Parent() Parent {
	return i.parent
}

// UUID returns the item's unique reference within the world
func (i *Item) UUID() string {
	if i.parent.UUID == "" {
		return "Item." + i.ID
	}
	return i.parent.UUID + ".Item." + i.ID
}

// TemporaryEffects returns the effects flagged temporary, in item order
func (i *Item) TemporaryEffects() []*Effect {
	var out []*Effect
	for _, e := range i.Effects {
		if e.IsTemporary() {
			out = append(out, e)
		}
	}
	return out
}

// EffectUUIDs returns the UUIDs of every effect on the item
func (i *Item) EffectUUIDs() []string {
	out := make([]string, 0, len(i.Effects))
	for _, e := range i.Effects {
		out = append(out, e.UUID())
	}
	return out
}

// Depleted reports whether a limited-use item has no uses left
func (i *Item) Depleted() bool {
	return i.Uses != nil && i.Uses.Max > 0 && i.Uses.Value <= 0
}

// Consume spends one use. It reports whether the item should be destroyed.
func (i *Item) Consume() (destroy bool, err error) {
	if i.Uses == nil || i.Uses.Max == 0 {
		return false, nil
	}
	if i.Uses.Value <= 0 {
		return false, fmt.Errorf("item %s has no uses remaining", i.ID)
	}
	i.Uses.Value--
	return i.Uses.Value == 0 && i.Uses.AutoDestroy, nil
}
