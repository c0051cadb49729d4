package item

import (
	"fmt"
	"maps"
	"slices"
)

// ChangeMode mirrors the host's active effect change modes
type ChangeMode int

const (
	ChangeModeCustom ChangeMode = iota
	ChangeModeMultiply
	ChangeModeAdd
	ChangeModeDowngrade
	ChangeModeUpgrade
	ChangeModeOverride
)

// Change is a single attribute modification applied by an effect
type Change struct {
	Key      string     `json:"key"`
	Mode     ChangeMode `json:"mode"`
	Value    string     `json:"value"`
	Priority *int       `json:"priority,omitempty"`
}

// Duration describes how long an effect lasts. Seconds is a pointer because
// an explicit zero and an unset value mean different things to the host.
type Duration struct {
	Seconds    *int `json:"seconds,omitempty"`
	Rounds     int  `json:"rounds,omitempty"`
	Turns      int  `json:"turns,omitempty"`
	StartRound int  `json:"startRound,omitempty"`
	StartTurn  int  `json:"startTurn,omitempty"`
	StartTime  int  `json:"startTime,omitempty"`
}

// Effect is a status or condition attached to an item
type Effect struct {
	ID       string                    `json:"_id"`
	Label    string                    `json:"label"`
	Icon     string                    `json:"icon,omitempty"`
	Origin   string                    `json:"origin,omitempty"`
	Disabled bool                      `json:"disabled"`
	Transfer bool                      `json:"transfer"`
	Duration Duration                  `json:"duration"`
	Changes  []Change                  `json:"changes"`
	Statuses []string                  `json:"statuses,omitempty"`
	Flags    map[string]map[string]any `json:"flags,omitempty"`

	parent *Item
}

// IsTemporary reports whether the effect expires or is a status condition.
// An explicit seconds value wins over rounds and turns.
func (e *Effect) IsTemporary() bool {
	var d int
	if e.Duration.Seconds != nil {
		d = *e.Duration.Seconds
	} else if e.Duration.Rounds != 0 {
		d = e.Duration.Rounds
	} else {
		d = e.Duration.Turns
	}
	return d > 0 || len(e.Statuses) > 0
}

// Parent returns the item this effect is embedded in
func (e *Effect) Parent() *Item {
	return e.parent
}

// UUID returns the effect's unique reference within the world
func (e *Effect) UUID() string {
	if e.parent == nil {
		return "ActiveEffect." + e.ID
	}
	return e.parent.UUID() + ".ActiveEffect." + e.ID
}

// DurationLabel formats the duration for display
func (e *Effect) DurationLabel() string {
	switch {
	case e.Duration.Seconds != nil && *e.Duration.Seconds > 0:
		return fmt.Sprintf("%ds", *e.Duration.Seconds)
	case e.Duration.Rounds > 0 && e.Duration.Turns > 0:
		return fmt.Sprintf("%dr %dt", e.Duration.Rounds, e.Duration.Turns)
	case e.Duration.Rounds > 0:
		return fmt.Sprintf("%d rounds", e.Duration.Rounds)
	case e.Duration.Turns > 0:
		return fmt.Sprintf("%d turns", e.Duration.Turns)
	}
	return ""
}

// Clone returns a copy of the effect that shares no slices or maps with it
func (e *Effect) Clone() Effect {
	out := *e
	out.Changes = slices.Clone(e.Changes)
	out.Statuses = slices.Clone(e.Statuses)
	if e.Flags != nil {
		out.Flags = make(map[string]map[string]any, len(e.Flags))
		for scope, flags := range e.Flags {
			out.Flags[scope] = maps.Clone(flags)
		}
	}
	return out
}
