package effectcards

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jwebster45206/effect-cards/internal/hooks"
	"github.com/jwebster45206/effect-cards/internal/i18n"
	"github.com/jwebster45206/effect-cards/pkg/actor"
	"github.com/jwebster45206/effect-cards/pkg/chat"
	"github.com/jwebster45206/effect-cards/pkg/item"
	"github.com/jwebster45206/effect-cards/pkg/world"
	"golang.org/x/text/language"
)

const (
	// ModuleName namespaces the module's flags, templates and translations
	ModuleName = "item-effects-to-chat"

	// TemplatePath is the module-relative path of the effect list card
	TemplatePath = "modules/" + ModuleName + "/templates/item-effects-to-chat-card.html"

	MessageHeaderKey = ModuleName + ".MESSAGE_HEADER"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates returns the module's template files, to be mounted at
// "modules/<ModuleName>"
func Templates() fs.FS {
	return templateFS
}

// Translations holds the module's localized strings
var Translations = i18n.Translations{
	language.English: {
		MessageHeaderKey:             "Item Effects",
		ModuleName + ".TARGETS":      "Targets",
		ModuleName + ".NO_TARGETS":   "No targets selected",
		ModuleName + ".EFFECTS":      "Effects",
		ModuleName + ".APPLY":        "Apply to targets",
		ModuleName + ".APPLY_SOURCE": "Apply to source",
		ModuleName + ".DURATION":     "Duration",
	},
	language.Spanish: {
		MessageHeaderKey:             "Efectos del objeto",
		ModuleName + ".TARGETS":      "Objetivos",
		ModuleName + ".NO_TARGETS":   "Ningún objetivo seleccionado",
		ModuleName + ".EFFECTS":      "Efectos",
		ModuleName + ".APPLY":        "Aplicar a los objetivos",
		ModuleName + ".APPLY_SOURCE": "Aplicar al origen",
		ModuleName + ".DURATION":     "Duración",
	},
	language.German: {
		MessageHeaderKey:             "Gegenstandseffekte",
		ModuleName + ".TARGETS":      "Ziele",
		ModuleName + ".NO_TARGETS":   "Keine Ziele ausgewählt",
		ModuleName + ".EFFECTS":      "Effekte",
		ModuleName + ".APPLY":        "Auf Ziele anwenden",
		ModuleName + ".APPLY_SOURCE": "Auf Quelle anwenden",
		ModuleName + ".DURATION":     "Dauer",
	},
}

// UseItemHook returns the lifecycle hook a game system raises when an item
// is used
func UseItemHook(systemID string) string {
	return systemID + ".useItem"
}

// Game is the live host state the module reads from
type Game interface {
	WorldID() uuid.UUID
	System() string
	ActiveSceneID() string
	CurrentUser(ctx context.Context) (*world.User, error)
	UserTargets(userID string) []*world.Token
	ItemActor(it *item.Item) (*actor.Actor, bool)
	WhisperRecipients(name string) []string
	Speaker(a *actor.Actor) chat.Speaker
}

// Renderer renders a module template
type Renderer interface {
	Render(ctx context.Context, path string, data any) (string, error)
}

// MessageCreator submits chat messages to the host
type MessageCreator interface {
	CreateMessage(ctx context.Context, msg *chat.Message) (*chat.Message, error)
}

// Localizer resolves translation keys
type Localizer interface {
	Localize(key string) string
}

// Module posts a GM-only card listing the temporary effects of a used item
type Module struct {
	game     Game
	renderer Renderer
	chat     MessageCreator
	i18n     Localizer
	logger   *slog.Logger
	debug    bool
}

// New creates the module bound to one world
func New(game Game, renderer Renderer, creator MessageCreator, localizer Localizer, logger *slog.Logger, debug bool) *Module {
	return &Module{
		game:     game,
		renderer: renderer,
		chat:     creator,
		i18n:     localizer,
		logger:   logger.With("module", ModuleName),
		debug:    debug,
	}
}

// Init subscribes the module to the system's item-used hook and returns the
// registration id
func (m *Module) Init(bus *hooks.Bus) int {
	return bus.On(UseItemHook(m.game.System()), m.onUseItem)
}

func (m *Module) onUseItem(ctx context.Context, payload any) error {
	it, ok := payload.(*item.Item)
	if !ok || it == nil {
		m.log("Ignoring item hook with unexpected payload", "payload_type", fmt.Sprintf("%T", payload))
		return nil
	}
	return m.HandleUseItem(ctx, it)
}

// log writes a debug trace when module debugging is on
func (m *Module) log(msg string, args ...any) {
	if !m.debug {
		return
	}
	m.logger.Debug(msg, args...)
}
