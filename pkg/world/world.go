package world

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/effect-cards/pkg/actor"
	"github.com/jwebster45206/effect-cards/pkg/chat"
	"github.com/jwebster45206/effect-cards/pkg/item"
)

// Role is a user's permission role in the world
type Role int

const (
	RoleNone Role = iota
	RolePlayer
	RoleTrusted
	RoleAssistant
	RoleGamemaster
)

// User is a participant connected to the world
type User struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// IsGM reports whether the user has game master privileges
func (u *User) IsGM() bool {
	return u.Role >= RoleAssistant
}

// Scene is a map on which tokens are placed
type Scene struct {
	ID     string   `json:"_id"`
	Name   string   `json:"name"`
	Tokens []*Token `json:"tokens,omitempty"`
}

// Token is an on-scene representation of an actor.
// ActorID may be empty for decorative tokens.
type Token struct {
	ID      string `json:"_id"`
	Name    string `json:"name"`
	Img     string `json:"img,omitempty"`
	ActorID string `json:"actor_id,omitempty"`
	Hidden  bool   `json:"hidden,omitempty"`

	SceneID string       `json:"-"`
	Actor   *actor.Actor `json:"-"`
}

// World is the live host state for one game world
type World struct {
	ID          uuid.UUID           `json:"id"`
	Name        string              `json:"name"`
	SystemID    string              `json:"system_id"`
	ActiveScene string              `json:"active_scene,omitempty"`
	Users       []*User             `json:"users"`
	Scenes      []*Scene            `json:"scenes,omitempty"`
	Actors      []*actor.Spec       `json:"actors,omitempty"`
	Items       []*item.Item        `json:"items,omitempty"` // world-level items with no owner
	Targets     map[string][]string `json:"targets,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`

	mu     sync.RWMutex
	actors map[string]*actor.Actor
	tokens map[string]*Token
	users  map[string]*User
}

// Load reads a world definition file and indexes it
func Load(path string) (*World, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read world file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a world document and indexes it
func Parse(data []byte) (*World, error) {
	var w World
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to unmarshal world: %w", err)
	}
	if err := w.Index(); err != nil {
		return nil, err
	}
	return &w, nil
}

// Index builds runtime actors and lookup tables. It must be called after
// the world is decoded and before any accessor is used.
func (w *World) Index() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.users = make(map[string]*User, len(w.Users))
	for _, u := range w.Users {
		if _, dup := w.users[u.ID]; dup {
			return fmt.Errorf("duplicate user id %q", u.ID)
		}
		w.users[u.ID] = u
	}

	w.actors = make(map[string]*actor.Actor, len(w.Actors))
	for _, spec := range w.Actors {
		if _, dup := w.actors[spec.ID]; dup {
			return fmt.Errorf("duplicate actor id %q", spec.ID)
		}
		a, err := actor.NewActorFromSpec(spec)
		if err != nil {
			return err
		}
		w.actors[spec.ID] = a
	}

	w.tokens = make(map[string]*Token)
	for _, s := range w.Scenes {
		for _, t := range s.Tokens {
			if _, dup := w.tokens[t.ID]; dup {
				return fmt.Errorf("duplicate token id %q", t.ID)
			}
			t.SceneID = s.ID
			t.Actor = nil
			if t.ActorID != "" {
				a, ok := w.actors[t.ActorID]
				if !ok {
					return fmt.Errorf("token %q references unknown actor %q", t.ID, t.ActorID)
				}
				t.Actor = a
			}
			w.tokens[t.ID] = t
		}
	}

	items := make(map[string]struct{})
	for _, spec := range w.Actors {
		for _, it := range spec.Items {
			if _, dup := items[it.ID]; dup {
				return fmt.Errorf("duplicate item id %q", it.ID)
			}
			items[it.ID] = struct{}{}
		}
	}
	for _, it := range w.Items {
		if _, dup := items[it.ID]; dup {
			return fmt.Errorf("duplicate item id %q", it.ID)
		}
		items[it.ID] = struct{}{}
		it.Attach(item.Parent{})
	}

	if w.Targets == nil {
		w.Targets = make(map[string][]string)
	}
	return nil
}

// User returns the user with the given id
func (w *World) User(id string) (*User, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	u, ok := w.users[id]
	return u, ok
}

// Actor returns the runtime actor with the given id
func (w *World) Actor(id string) (*actor.Actor, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	a, ok := w.actors[id]
	return a, ok
}

// Token returns the token with the given id
func (w *World) Token(id string) (*Token, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	t, ok := w.tokens[id]
	return t, ok
}

// Item finds an item by id, searching actor inventories first and then
// world-level items
func (w *World) Item(id string) (*item.Item, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, spec := range w.Actors {
		if a, ok := w.actors[spec.ID]; ok {
			if it, ok := a.Item(id); ok {
				return it, true
			}
		}
	}
	for _, it := range w.Items {
		if it.ID == id {
			return it, true
		}
	}
	return nil, false
}

// ItemActor returns the actor that owns the item. It returns false for
// world-level items and for parents that are not actors.
func (w *World) ItemActor(it *item.Item) (*actor.Actor, bool) {
	p := it.Parent()
	if p.Type != item.ParentActor {
		return nil, false
	}
	return w.Actor(p.ID)
}

// DeleteItem removes an item from its owner or from the world
func (w *World) DeleteItem(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, spec := range w.Actors {
		if a, ok := w.actors[spec.ID]; ok && a.RemoveItem(id) {
			return true
		}
	}
	for i, it := range w.Items {
		if it.ID == id {
			w.Items = append(w.Items[:i], w.Items[i+1:]...)
			return true
		}
	}
	return false
}

// removeItem deletes it from the owner recorded by Attach
func (w *World) removeItem(it *item.Item) bool {
	p := it.Parent()
	if p.Type != item.ParentActor {
		return w.DeleteItem(it.ID)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	a, ok := w.actors[p.ID]
	return ok && a.RemoveItem(it.ID)
}

// ConsumeItem spends one use of the item and deletes it when depleted
// with auto-destroy set. It reports whether the item was deleted.
func (w *World) ConsumeItem(id string) (deleted bool, err error) {
	it, ok := w.Item(id)
	if !ok {
		return false, fmt.Errorf("item %q not found", id)
	}
	destroy, err := it.Consume()
	if err != nil {
		return false, err
	}
	if destroy {
		return w.removeItem(it), nil
	}
	return false, nil
}

// WorldID returns the world's id
func (w *World) WorldID() uuid.UUID {
	return w.ID
}

// System returns the id of the game system the world runs
func (w *World) System() string {
	return w.SystemID
}

// ActiveSceneID returns the id of the scene currently being viewed
func (w *World) ActiveSceneID() string {
	return w.ActiveScene
}

// SetTargets replaces a user's target selection. Unknown tokens are rejected.
func (w *World) SetTargets(userID string, tokenIDs []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.users[userID]; !ok {
		return fmt.Errorf("unknown user %q", userID)
	}
	ids := make([]string, 0, len(tokenIDs))
	for _, id := range tokenIDs {
		if _, ok := w.tokens[id]; !ok {
			return fmt.Errorf("unknown token %q", id)
		}
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	w.Targets[userID] = ids
	return nil
}

// UserTargets returns the user's live target set in selection order
func (w *World) UserTargets(userID string) []*Token {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var out []*Token
	for _, id := range w.Targets[userID] {
		if t, ok := w.tokens[id]; ok {
			out = append(out, t)
		}
	}
	return out
}

// WhisperRecipients resolves a whisper target name to user ids.
// "gm" and "dm" select game masters, "players" selects everyone else, then
// user names and finally the owners of actors with that name are matched.
func (w *World) WhisperRecipients(name string) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	lower := strings.ToLower(strings.TrimSpace(name))
	var out []string
	switch lower {
	case "gm", "dm":
		for _, u := range w.Users {
			if u.IsGM() {
				out = append(out, u.ID)
			}
		}
		return out
	case "players":
		for _, u := range w.Users {
			if !u.IsGM() {
				out = append(out, u.ID)
			}
		}
		return out
	}

	for _, u := range w.Users {
		if strings.ToLower(u.Name) == lower {
			out = append(out, u.ID)
		}
	}
	if len(out) > 0 {
		return out
	}

	for _, spec := range w.Actors {
		if strings.ToLower(spec.Name) != lower {
			continue
		}
		for _, owner := range w.actors[spec.ID].Owners() {
			if !slices.Contains(out, owner) {
				out = append(out, owner)
			}
		}
	}
	slices.Sort(out)
	return out
}

// Speaker builds the chat speaker for an actor
func (w *World) Speaker(a *actor.Actor) chat.Speaker {
	if a == nil {
		return chat.Speaker{Scene: w.ActiveScene}
	}
	sp := chat.Speaker{
		Scene: w.ActiveScene,
		Actor: a.ID(),
		Alias: a.Name(),
	}
	if a.IsToken() {
		if a.Spec.SceneID != "" {
			sp.Scene = a.Spec.SceneID
		}
		sp.Token = a.TokenID()
		if t, ok := w.Token(a.TokenID()); ok && t.Name != "" {
			sp.Alias = t.Name
		}
	}
	return sp
}

// Snapshot returns a copy of the world suitable for serialization, with
// actor HP synced from runtime stats and targets copied under the lock.
func (w *World) Snapshot() *World {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := &World{
		ID:          w.ID,
		Name:        w.Name,
		SystemID:    w.SystemID,
		ActiveScene: w.ActiveScene,
		Users:       w.Users,
		Scenes:      w.Scenes,
		Items:       w.Items,
		Targets:     make(map[string][]string, len(w.Targets)),
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}
	for _, spec := range w.Actors {
		if a, ok := w.actors[spec.ID]; ok {
			out.Actors = append(out.Actors, a.Snapshot())
		} else {
			out.Actors = append(out.Actors, spec)
		}
	}
	for userID, ids := range w.Targets {
		out.Targets[userID] = slices.Clone(ids)
	}
	return out
}
