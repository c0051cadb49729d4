package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jwebster45206/effect-cards/pkg/item"
	"github.com/jwebster45206/effect-cards/pkg/world"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <world.json>...\n", os.Args[0])
		os.Exit(1)
	}

	failed := false
	for _, filename := range os.Args[1:] {
		validator := &WorldValidator{}
		if err := validator.validateFile(filename); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			failed = true
			continue
		}
		fmt.Printf("%s is valid!\n", filename)
	}
	if failed {
		os.Exit(1)
	}
}

type WorldValidator struct {
	errors []string
}

func (v *WorldValidator) validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	baseName := filepath.Base(filename)
	if !strings.HasSuffix(baseName, ".json") {
		return fmt.Errorf("world file must have .json extension: %s", baseName)
	}

	nameWithoutExt := strings.TrimSuffix(baseName, ".json")
	if !isValidWorldFilename(nameWithoutExt) {
		return fmt.Errorf("world filename '%s' must be lowercase snake_case (e.g., my_world.json, not my-world.json or MyWorld.json)", baseName)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	v.errors = nil

	if !json.Valid(data) {
		return fmt.Errorf("file %s contains invalid JSON", filename)
	}

	var w world.World
	decoder := json.NewDecoder(strings.NewReader(string(data)))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&w); err != nil {
		return fmt.Errorf("file %s failed strict JSON unmarshaling: %w", filename, err)
	}

	// Index builds every actor's d20 stats and resolves token references.
	if err := w.Index(); err != nil {
		return fmt.Errorf("file %s does not describe a valid world: %w", filename, err)
	}

	v.validateWorld(&w)

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}
	return nil
}

func (v *WorldValidator) validateWorld(w *world.World) {
	if w.Name == "" {
		v.addError("world name is required")
	}
	if w.SystemID == "" {
		v.addError("system_id is required")
	}

	if w.ActiveScene != "" && !hasScene(w, w.ActiveScene) {
		v.addError(fmt.Sprintf("active_scene '%s' does not exist", w.ActiveScene))
	}

	gms := 0
	for _, u := range w.Users {
		if u.IsGM() {
			gms++
		}
	}
	if gms == 0 {
		v.addError("world has no game master user; effect cards would have no recipient")
	}

	for userID, tokenIDs := range w.Targets {
		if _, ok := w.User(userID); !ok {
			v.addError(fmt.Sprintf("targets reference unknown user '%s'", userID))
		}
		for _, tokenID := range tokenIDs {
			if _, ok := w.Token(tokenID); !ok {
				v.addError(fmt.Sprintf("targets of '%s' reference unknown token '%s'", userID, tokenID))
			}
		}
	}

	for _, spec := range w.Actors {
		for userID := range spec.Ownership {
			if _, ok := w.User(userID); !ok {
				v.addError(fmt.Sprintf("actor '%s' ownership references unknown user '%s'", spec.ID, userID))
			}
		}
		if spec.TokenID != "" {
			if _, ok := w.Token(spec.TokenID); !ok {
				v.addError(fmt.Sprintf("actor '%s' references unknown token '%s'", spec.ID, spec.TokenID))
			}
		}
		if a, ok := w.Actor(spec.ID); ok {
			for _, it := range a.Items() {
				v.validateItem(it, "actor "+spec.ID)
			}
		}
	}
	for _, it := range w.Items {
		v.validateItem(it, "world")
	}
}

// validateItem checks uses and effects. Item id uniqueness is enforced by Index.
func (v *WorldValidator) validateItem(it *item.Item, owner string) {
	if it.ID == "" {
		v.addError(fmt.Sprintf("item '%s' of %s has no _id", it.Name, owner))
		return
	}

	if it.Uses != nil {
		if it.Uses.Max < 0 || it.Uses.Value < 0 {
			v.addError(fmt.Sprintf("item '%s' has negative uses", it.ID))
		}
		if it.Uses.Max > 0 && it.Uses.Value > it.Uses.Max {
			v.addError(fmt.Sprintf("item '%s' has more uses (%d) than its max (%d)", it.ID, it.Uses.Value, it.Uses.Max))
		}
	}

	effectIDs := make(map[string]bool, len(it.Effects))
	for _, e := range it.Effects {
		if e.ID == "" {
			v.addError(fmt.Sprintf("effect '%s' on item '%s' has no _id", e.Label, it.ID))
			continue
		}
		if effectIDs[e.ID] {
			v.addError(fmt.Sprintf("effect id '%s' appears twice on item '%s'", e.ID, it.ID))
		}
		effectIDs[e.ID] = true

		d := e.Duration
		if (d.Seconds != nil && *d.Seconds < 0) || d.Rounds < 0 || d.Turns < 0 {
			v.addError(fmt.Sprintf("effect '%s' on item '%s' has a negative duration", e.ID, it.ID))
		}
	}
}

func (v *WorldValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

func hasScene(w *world.World, id string) bool {
	for _, s := range w.Scenes {
		if s.ID == id {
			return true
		}
	}
	return false
}

var validFilenameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)

func isValidWorldFilename(name string) bool {
	// Allow 'x.' prefix for experimental worlds
	name = strings.TrimPrefix(name, "x.")
	return validFilenameRegex.MatchString(name)
}
