package effectcards

import (
	"context"
	"fmt"

	"github.com/jwebster45206/effect-cards/pkg/actor"
	"github.com/jwebster45206/effect-cards/pkg/chat"
	"github.com/jwebster45206/effect-cards/pkg/item"
	"github.com/jwebster45206/effect-cards/pkg/world"
)

// cardData is the input of the effect list card template
type cardData struct {
	TargetedTokens []*world.Token
	Effects        []*item.Effect
	IsGM           bool
	SystemID       string
}

// itemCard binds a used item to the actor that owns it
type itemCard struct {
	*Module
	item  *item.Item
	actor *actor.Actor
}

// HandleUseItem creates an effect list card for the GM when an item owned
// by an actor is used. Items without effects or without an owning actor are
// ignored.
func (m *Module) HandleUseItem(ctx context.Context, it *item.Item) error {
	if len(it.Effects) == 0 {
		return nil
	}
	a, ok := m.game.ItemActor(it)
	if !ok {
		return nil
	}

	card := &itemCard{Module: m, item: it, actor: a}
	return card.createListChatCard(ctx)
}

// createListChatCard posts a blind GM whisper listing the item's temporary
// effects and the tokens the user had targeted
func (c *itemCard) createListChatCard(ctx context.Context) error {
	temporary := c.item.TemporaryEffects()
	if len(temporary) == 0 {
		return nil
	}

	user, err := c.game.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve current user: %w", err)
	}

	var targeted []*world.Token
	for _, t := range c.game.UserTargets(user.ID) {
		if t.Actor != nil {
			targeted = append(targeted, t)
		}
	}

	// Everything the card refers to is copied before rendering.
	flags := c.cardFlags(temporary, targeted)

	html, err := c.renderer.Render(ctx, TemplatePath, cardData{
		TargetedTokens: targeted,
		Effects:        temporary,
		IsGM:           user.IsGM(),
		SystemID:       c.game.System(),
	})
	if err != nil {
		return fmt.Errorf("failed to render effect card for item %s: %w", c.item.ID, err)
	}

	c.log("Creating card",
		"item", c.item.UUID(),
		"effects", flags.EffectUUIDs,
		"targeted_tokens", flags.TargetedTokenIDs,
		"html", html)

	msg := &chat.Message{
		WorldID: c.game.WorldID(),
		Type:    chat.TypeOther,
		User:    user.ID,
		Speaker: c.game.Speaker(c.actor),
		Flavor:  c.i18n.Localize(MessageHeaderKey),
		Content: html,
		Whisper: c.game.WhisperRecipients("gm"),
		Blind:   true,
	}
	if err := msg.SetFlag("core", CoreFlags{CanPopout: true}); err != nil {
		return err
	}
	if err := msg.SetFlag(ModuleName, flags); err != nil {
		return err
	}

	if _, err := c.chat.CreateMessage(ctx, msg); err != nil {
		return fmt.Errorf("failed to create effect card for item %s: %w", c.item.ID, err)
	}
	return nil
}

func (c *itemCard) cardFlags(temporary []*item.Effect, targeted []*world.Token) CardFlags {
	source := SourceActor{
		ActorID: c.actor.ID(),
		SceneID: c.game.ActiveSceneID(),
	}
	if c.actor.IsToken() {
		tokenID := c.actor.TokenID()
		source.TokenID = &tokenID
	}

	tokenIDs := make([]string, 0, len(targeted))
	for _, t := range targeted {
		tokenIDs = append(tokenIDs, t.ID)
	}

	origin := c.item.UUID()
	snapshots := make([]EffectSnapshot, 0, len(temporary))
	for _, e := range temporary {
		snapshots = append(snapshots, EffectSnapshot{
			Effect:   e.Clone(),
			StatusID: e.UUID(),
			Origin:   origin,
		})
	}

	return CardFlags{
		IsEffectListCard: true,
		SourceActor:      source,
		TargetedTokenIDs: tokenIDs,
		EffectUUIDs:      c.item.EffectUUIDs(),
		EffectData:       snapshots,
	}
}
