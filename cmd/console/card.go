package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jwebster45206/effect-cards/internal/effectcards"
	"github.com/jwebster45206/effect-cards/pkg/chat"
	"github.com/jwebster45206/effect-cards/pkg/world"
	"github.com/muesli/reflow/wordwrap"
)

var (
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	cardHeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")). // yellow
			Bold(true)

	effectStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green
)

// cardFlags returns the effect list card metadata of a message, if any
func cardFlags(msg *chat.Message) (*effectcards.CardFlags, bool) {
	var flags effectcards.CardFlags
	ok, err := msg.GetFlag(effectcards.ModuleName, &flags)
	if !ok || err != nil || !flags.IsEffectListCard {
		return nil, false
	}
	return &flags, true
}

// renderCard draws an effect list card from its flags. Token names are
// looked up in w when it still has the token.
func renderCard(msg *chat.Message, flags *effectcards.CardFlags, w *world.World, width int) string {
	var b strings.Builder

	header := msg.Flavor
	if header == "" {
		header = "Item Effects"
	}
	b.WriteString(cardHeaderStyle.Render(header))
	if msg.Speaker.Alias != "" {
		b.WriteString(" " + promptStyle.Render("from "+msg.Speaker.Alias))
	}
	b.WriteString("\n")

	if len(flags.TargetedTokenIDs) == 0 {
		b.WriteString("Targets: none\n")
	} else {
		names := make([]string, 0, len(flags.TargetedTokenIDs))
		for _, id := range flags.TargetedTokenIDs {
			name := id
			if w != nil {
				if t, ok := w.Token(id); ok {
					name = t.Name
				}
			}
			names = append(names, name)
		}
		b.WriteString(wordwrap.String("Targets: "+strings.Join(names, ", "), width) + "\n")
	}

	for i := range flags.EffectData {
		e := &flags.EffectData[i]
		line := "• " + effectStyle.Render(e.Label)
		if d := e.DurationLabel(); d != "" {
			line += " (" + d + ")"
		}
		if len(e.Statuses) > 0 {
			line += " [" + strings.Join(e.Statuses, ", ") + "]"
		}
		b.WriteString(line + "\n")
		b.WriteString(promptStyle.Render(wordwrap.String("  "+e.StatusID, width)) + "\n")
	}

	source := "Source: " + flags.SourceActor.ActorID
	if flags.SourceActor.TokenID != nil {
		source += fmt.Sprintf(" (token %s)", *flags.SourceActor.TokenID)
	}
	b.WriteString(promptStyle.Render(source))

	return cardStyle.Width(width).Render(b.String())
}

// copyText is what /copy puts on the clipboard for a card
func copyText(flags *effectcards.CardFlags) string {
	return strings.Join(flags.EffectUUIDs, "\n")
}

// renderMessage formats one chat log entry for the chat panel
func renderMessage(msg *chat.Message, w *world.World, width int) string {
	if flags, ok := cardFlags(msg); ok {
		return renderCard(msg, flags, w, width-4)
	}

	speaker := msg.Speaker.Alias
	if speaker == "" {
		speaker = msg.User
		if w != nil {
			if u, ok := w.User(msg.User); ok {
				speaker = u.Name
			}
		}
	}
	content := msg.Content
	if content == "" && msg.Blind {
		content = "(blind message)"
	}
	prefix := speakerStyle.Render(speaker + ":")
	if msg.IsWhisper() {
		prefix += " " + promptStyle.Render("(whisper)")
	}
	return prefix + " " + wordwrap.String(content, width-len(speaker)-2)
}
