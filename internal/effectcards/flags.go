package effectcards

import "github.com/jwebster45206/effect-cards/pkg/item"

// CoreFlags are host-level flags set on every card
type CoreFlags struct {
	CanPopout bool `json:"canPopout"`
}

// SourceActor identifies the actor that used the item. TokenID is null for
// actors that are not token representations.
type SourceActor struct {
	ActorID string  `json:"actorId"`
	SceneID string  `json:"sceneId,omitempty"`
	TokenID *string `json:"tokenId"`
}

// EffectSnapshot is a full copy of a temporary effect taken when the card is
// built. StatusID carries the effect UUID so token status toggling can use it
// as a status key. Origin points at the item and shadows the effect's own
// origin; the item may be deleted right after use.
type EffectSnapshot struct {
	item.Effect
	StatusID string `json:"id"`
	Origin   string `json:"origin"`
}

// CardFlags is the metadata stored under the module's flag scope
type CardFlags struct {
	IsEffectListCard bool             `json:"isEffectListCard"`
	SourceActor      SourceActor      `json:"sourceActor"`
	TargetedTokenIDs []string         `json:"targetedTokenIds"`
	EffectUUIDs      []string         `json:"effectUuids"`
	EffectData       []EffectSnapshot `json:"effectData"`
}
