package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jwebster45206/effect-cards/pkg/chat"
	"github.com/jwebster45206/effect-cards/pkg/item"
	"github.com/jwebster45206/effect-cards/pkg/world"
	"github.com/muesli/reflow/wordwrap"
)

const (
	PlaceHolderText = "Type a command, e.g. /use potion (/help for more)"
	chatLimit       = 100
	pollInterval    = 5 * time.Second
)

// ConsoleUI is the BubbleTea model that runs the GM console.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config       *ConsoleConfig
	client       *http.Client
	world        *world.World
	userID       string
	messages     []*chat.Message
	status       string
	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	err          error

	// Pending item use, cleared when the worker reports back
	pendingRequest string

	// World selection state
	showWorldModal bool
	worlds         []string
	worldMap       map[string]string
	selectedWorld  int
	loadingWorlds  bool
	creatingWorld  bool

	// Quit confirmation state
	showQuitModal bool

	// Event stream of the active world
	events     chan SSEEvent
	stopEvents context.CancelFunc

	// Progress bar state
	progressTick int
}

type worldsLoadedMsg struct {
	worlds   []string
	worldMap map[string]string
	err      error
}

type worldCreatedMsg struct {
	world *world.World
	err   error
}

type worldMsg struct {
	world *world.World
	err   error
}

type chatLogMsg struct {
	messages []*chat.Message
	err      error
}

type targetsSetMsg struct {
	tokenIDs []string
	err      error
}

type itemUsedMsg struct {
	itemID    string
	requestID string
	err       error
}

type sseEventMsg struct {
	event SSEEvent
}

type sseClosedMsg struct {
	err error
}

type pollTickMsg struct{}

type progressTickMsg struct{}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(cfg *ConsoleConfig, client *http.Client) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 500
	ta.SetWidth(50)
	ta.SetHeight(2)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		config:         cfg,
		client:         client,
		textarea:       ta,
		chatViewport:   chatVp,
		metaViewport:   metaVp,
		showWorldModal: true,
		loadingWorlds:  true,
	}
}

// firstGM returns the id of the first game master, or the first user
func firstGM(w *world.World) string {
	for _, u := range w.Users {
		if u.IsGM() {
			return u.ID
		}
	}
	if len(w.Users) > 0 {
		return w.Users[0].ID
	}
	return ""
}

// findUser matches a user by id, then by case-insensitive name
func findUser(w *world.World, ref string) (*world.User, bool) {
	if u, ok := w.User(ref); ok {
		return u, true
	}
	for _, u := range w.Users {
		if strings.EqualFold(u.Name, ref) {
			return u, true
		}
	}
	return nil, false
}

// usableItems lists the items the user can use: everything for game
// masters, otherwise the items of actors the user owns
func usableItems(w *world.World, userID string) []*item.Item {
	u, ok := w.User(userID)
	if !ok {
		return nil
	}
	var out []*item.Item
	for _, spec := range w.Actors {
		a, ok := w.Actor(spec.ID)
		if ok && (u.IsGM() || a.IsOwner(userID)) {
			out = append(out, a.Items()...)
		}
	}
	if u.IsGM() {
		out = append(out, w.Items...)
	}
	return out
}

// tokenLines describes the tokens the user can see. Hidden tokens are
// listed for game masters only.
func tokenLines(w *world.World, userID string) []string {
	u, ok := w.User(userID)
	gm := ok && u.IsGM()
	var out []string
	for _, s := range w.Scenes {
		for _, t := range s.Tokens {
			if t.Hidden && !gm {
				continue
			}
			kind := "decoration"
			if t.ActorID != "" {
				kind = "actor " + t.ActorID
			}
			if t.Hidden {
				kind += ", hidden"
			}
			out = append(out, fmt.Sprintf("%s - %s (%s, %s)", t.ID, t.Name, s.Name, kind))
		}
	}
	return out
}

func usesLabel(it *item.Item) string {
	if it.Uses == nil || it.Uses.Max == 0 {
		return ""
	}
	return fmt.Sprintf(" %d/%d", it.Uses.Value, it.Uses.Max)
}

func writeMetadata(w *world.World, userID string) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("WORLD") + "\n\n")

	content.WriteString(w.Name + "\n")
	content.WriteString(promptStyle.Render(w.ID.String()[:8]+"... "+w.SystemID) + "\n\n")

	content.WriteString("Acting as:\n")
	if u, ok := w.User(userID); ok {
		role := "player"
		if u.IsGM() {
			role = "GM"
		}
		content.WriteString(fmt.Sprintf("%s (%s)\n\n", u.Name, role))
	} else {
		content.WriteString("nobody\n\n")
	}

	content.WriteString("Targets:\n")
	targets := w.UserTargets(userID)
	if len(targets) == 0 {
		content.WriteString("None\n")
	}
	for _, t := range targets {
		content.WriteString(fmt.Sprintf("• %s\n", t.Name))
	}
	content.WriteString("\n")

	content.WriteString("Items:\n")
	items := usableItems(w, userID)
	if len(items) == 0 {
		content.WriteString("None\n")
	}
	for _, it := range items {
		content.WriteString(fmt.Sprintf("• %s%s\n", it.ID, usesLabel(it)))
	}

	content.WriteString("\n")
	content.WriteString("Commands:\n")
	content.WriteString("• /help: Help\n")
	content.WriteString("• /use <item>\n")
	content.WriteString("• /target <tokens>\n")
	content.WriteString("• /copy: Copy UUIDs\n")
	content.WriteString("• Ctrl+C: Quit\n")

	return content.String()
}

// writeChatContent builds the chat content for the current viewport width
func (m *ConsoleUI) writeChatContent() {
	chatWidth := m.chatViewport.Width - 6 // Account for left(3) + right(3) padding
	if chatWidth < 20 {
		chatWidth = 20
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("EFFECT CARDS") + "\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", chatWidth)) + "\n\n")

	if len(m.messages) == 0 {
		content.WriteString(promptStyle.Render("No messages yet. Use an item with /use <item>.") + "\n\n")
	}
	for _, msg := range m.messages {
		content.WriteString(renderMessage(msg, m.world, chatWidth) + "\n\n")
	}

	if m.status != "" {
		content.WriteString(m.status + "\n\n")
	}
	if m.pendingRequest != "" {
		content.WriteString(m.renderProgressBar() + "\n")
	}

	m.chatViewport.SetContent(content.String())
	m.chatViewport.GotoBottom()
}

func (m *ConsoleUI) refreshPanels() {
	m.writeChatContent()
	if m.world != nil {
		m.metaViewport.SetContent(writeMetadata(m.world, m.userID))
	}
}

func (m *ConsoleUI) resize() {
	chatWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - chatWidth - 6

	m.chatViewport.Width = chatWidth - 2
	m.chatViewport.Height = m.height - 6
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(chatWidth - 4)
}

func (m ConsoleUI) Init() tea.Cmd {
	if m.showWorldModal {
		return m.loadWorlds()
	}
	return textarea.Blink
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}
	if m.showWorldModal {
		return m.updateWorldModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.chatViewport, vpCmd = m.chatViewport.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.ready = true
		m.refreshPanels()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			input := strings.TrimSpace(m.textarea.Value())
			m.textarea.Reset()
			if input == "" {
				return m, nil
			}
			if !strings.HasPrefix(input, "/") {
				m.status = promptStyle.Render("Commands start with /. Try /help.")
				m.writeChatContent()
				return m, nil
			}
			return m.handleCommand(input)
		}

	case worldMsg:
		if msg.err != nil {
			m.status = errorStyle.Render("Error: " + msg.err.Error())
		} else {
			m.world = msg.world
		}
		m.refreshPanels()
		return m, nil

	case chatLogMsg:
		if msg.err != nil {
			m.status = errorStyle.Render("Error: " + msg.err.Error())
		} else {
			m.messages = msg.messages
		}
		m.writeChatContent()
		return m, nil

	case targetsSetMsg:
		if msg.err != nil {
			m.status = errorStyle.Render("Error: " + msg.err.Error())
		} else if len(msg.tokenIDs) == 0 {
			m.status = promptStyle.Render("Targets cleared.")
		} else {
			m.status = promptStyle.Render("Targeting " + strings.Join(msg.tokenIDs, ", "))
		}
		m.writeChatContent()
		return m, m.refreshWorld()

	case itemUsedMsg:
		if msg.err != nil {
			m.pendingRequest = ""
			m.status = errorStyle.Render("Error: " + msg.err.Error())
			m.writeChatContent()
			return m, nil
		}
		m.pendingRequest = msg.requestID
		m.progressTick = 0
		m.status = loadingStyle.Render("Using " + msg.itemID + "...")
		m.writeChatContent()
		return m, progressTick()

	case sseEventMsg:
		return m.handleEvent(msg.event)

	case sseClosedMsg:
		if msg.err != nil {
			m.status = errorStyle.Render("Event stream closed: " + msg.err.Error())
			m.writeChatContent()
		}
		return m, nil

	case pollTickMsg:
		return m, tea.Batch(m.refreshChat(), pollTick())

	case progressTickMsg:
		if m.pendingRequest != "" {
			m.progressTick++
			m.writeChatContent()
			return m, progressTick()
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

func (m ConsoleUI) handleEvent(event SSEEvent) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{m.waitForEvent()}

	switch event.Type {
	case "chat.message_created":
		cmds = append(cmds, m.refreshChat())
	case "world.updated":
		cmds = append(cmds, m.refreshWorld())
	case "request.completed":
		if event.RequestID == m.pendingRequest {
			m.pendingRequest = ""
			m.status = promptStyle.Render("Item used.")
		}
	case "request.failed":
		if event.RequestID == m.pendingRequest {
			m.pendingRequest = ""
			errMsg, _ := event.Data["error"].(string)
			m.status = errorStyle.Render("Item use failed: " + errMsg)
		}
	}
	m.writeChatContent()
	return m, tea.Batch(cmds...)
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(input)
	cmd := strings.ToLower(fields[0])
	args := fields[1:]
	width := m.chatViewport.Width - 6

	switch cmd {
	case "/help":
		helpText := `Commands:
• /help - Show this help
• /users - List users
• /as <user> - Act as a user (id or name)
• /tokens - List tokens on the scenes
• /items - List the items you can use
• /target [token ...] - Replace your targets (none clears them)
• /use <item> - Use an item
• /copy - Copy the last card's effect UUIDs
• /refresh - Reload the world and chat log
• Ctrl+C - Quit`
		m.status = titleStyle.Render("Help:") + "\n" + helpText

	case "/users":
		var b strings.Builder
		b.WriteString(titleStyle.Render("Users:") + "\n")
		for _, u := range m.world.Users {
			marker := " "
			if u.ID == m.userID {
				marker = "▶"
			}
			role := "player"
			if u.IsGM() {
				role = "GM"
			}
			b.WriteString(fmt.Sprintf("%s %s (%s, %s)\n", marker, u.Name, u.ID, role))
		}
		m.status = b.String()

	case "/as":
		if len(args) == 0 {
			m.status = errorStyle.Render("Usage: /as <user>")
			break
		}
		u, ok := findUser(m.world, strings.Join(args, " "))
		if !ok {
			m.status = errorStyle.Render("Unknown user: " + strings.Join(args, " "))
			break
		}
		m.userID = u.ID
		m.status = promptStyle.Render("Now acting as " + u.Name + ".")
		m.refreshPanels()
		m.textarea.Reset()
		return m, m.refreshChat()

	case "/tokens":
		var b strings.Builder
		b.WriteString(titleStyle.Render("Tokens:") + "\n")
		for _, line := range tokenLines(m.world, m.userID) {
			b.WriteString("• " + line + "\n")
		}
		m.status = b.String()

	case "/items":
		var b strings.Builder
		b.WriteString(titleStyle.Render("Items:") + "\n")
		for _, it := range usableItems(m.world, m.userID) {
			b.WriteString(fmt.Sprintf("• %s - %s%s, %d effects (%d temporary)\n",
				it.ID, it.Name, usesLabel(it), len(it.Effects), len(it.TemporaryEffects())))
		}
		m.status = wordwrap.String(b.String(), width)

	case "/target":
		m.textarea.Reset()
		return m, m.setTargets(args)

	case "/use":
		if len(args) != 1 {
			m.status = errorStyle.Render("Usage: /use <item>")
			break
		}
		if m.pendingRequest != "" {
			m.status = loadingStyle.Render("Still waiting for the last item use.")
			break
		}
		m.textarea.Reset()
		return m, m.useItem(args[0])

	case "/copy":
		m.status = m.copyLastCard()

	case "/refresh":
		m.textarea.Reset()
		return m, tea.Batch(m.refreshWorld(), m.refreshChat())

	default:
		m.status = errorStyle.Render("Unknown command: " + cmd)
	}

	m.writeChatContent()
	return m, nil
}

// copyLastCard puts the effect UUIDs of the newest card on the clipboard
func (m ConsoleUI) copyLastCard() string {
	for i := len(m.messages) - 1; i >= 0; i-- {
		flags, ok := cardFlags(m.messages[i])
		if !ok {
			continue
		}
		if err := clipboard.WriteAll(copyText(flags)); err != nil {
			return errorStyle.Render("Failed to copy: " + err.Error())
		}
		return promptStyle.Render(fmt.Sprintf("Copied %d effect UUIDs.", len(flags.EffectUUIDs)))
	}
	return errorStyle.Render("No effect card to copy.")
}

func (m ConsoleUI) refreshWorld() tea.Cmd {
	return func() tea.Msg {
		w, err := getWorld(m.client, m.config.APIBaseURL, m.world.ID)
		return worldMsg{w, err}
	}
}

func (m ConsoleUI) refreshChat() tea.Cmd {
	return func() tea.Msg {
		msgs, err := getChatLog(m.client, m.config.APIBaseURL, m.world.ID, m.userID, chatLimit)
		return chatLogMsg{msgs, err}
	}
}

func (m ConsoleUI) setTargets(tokenIDs []string) tea.Cmd {
	return func() tea.Msg {
		if tokenIDs == nil {
			tokenIDs = []string{}
		}
		ids, err := setTargets(m.client, m.config.APIBaseURL, m.world.ID, m.userID, tokenIDs)
		return targetsSetMsg{ids, err}
	}
}

func (m ConsoleUI) useItem(itemID string) tea.Cmd {
	return func() tea.Msg {
		requestID, err := useItem(m.client, m.config.APIBaseURL, m.world.ID, m.userID, itemID)
		return itemUsedMsg{itemID: itemID, requestID: requestID, err: err}
	}
}

// listen streams the world's events until stopEvents is called
func (m ConsoleUI) listen(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		// The stream has no read deadline; the shared client's timeout would cut it off.
		err := listenToSSE(ctx, &http.Client{}, m.config.APIBaseURL, m.world.ID, m.events)
		if ctx.Err() != nil {
			return sseClosedMsg{}
		}
		return sseClosedMsg{err}
	}
}

func (m ConsoleUI) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return sseEventMsg{<-m.events}
	}
}

func (m ConsoleUI) loadWorlds() tea.Cmd {
	return func() tea.Msg {
		orderedNames, worldMap, err := listWorldFiles(m.client, m.config.APIBaseURL)
		return worldsLoadedMsg{orderedNames, worldMap, err}
	}
}

func (m ConsoleUI) createWorldFromFile(worldFile string) tea.Cmd {
	return func() tea.Msg {
		w, err := createWorld(m.client, m.config.APIBaseURL, worldFile)
		return worldCreatedMsg{w, err}
	}
}

func (m ConsoleUI) updateWorldModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case worldsLoadedMsg:
		m.loadingWorlds = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.worlds = msg.worlds
			m.worldMap = msg.worldMap
		}

	case worldCreatedMsg:
		m.creatingWorld = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.world = msg.world
		m.userID = firstGM(m.world)
		m.showWorldModal = false
		if m.width > 0 && m.height > 0 {
			m.resize()
		}
		m.ready = true
		m.refreshPanels()
		m.textarea.Focus()

		ctx, cancel := context.WithCancel(context.Background())
		m.stopEvents = cancel
		m.events = make(chan SSEEvent, 16)
		return m, tea.Batch(textarea.Blink, m.listen(ctx), m.waitForEvent(), m.refreshChat(), pollTick())

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			if m.loadingWorlds {
				return m, tea.Quit
			}
			m.showQuitModal = true
			return m, nil
		}
		if m.loadingWorlds || m.creatingWorld || m.err != nil {
			return m, nil
		}

		switch msg.Type {
		case tea.KeyUp:
			if m.selectedWorld > 0 {
				m.selectedWorld--
			}
		case tea.KeyDown:
			if m.selectedWorld < len(m.worlds)-1 {
				m.selectedWorld++
			}
		case tea.KeyEnter:
			if len(m.worlds) > 0 {
				worldFile := m.worldMap[m.worlds[m.selectedWorld]]
				m.creatingWorld = true
				return m, m.createWorldFromFile(worldFile)
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m.quit()
		default:
			switch msg.String() {
			case "y", "Y":
				return m.quit()
			case "n", "N":
				m.showQuitModal = false
				if m.showWorldModal {
					return m, nil
				}
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) quit() (tea.Model, tea.Cmd) {
	if m.stopEvents != nil {
		m.stopEvents()
	}
	return m, tea.Quit
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit?"))
	content.WriteString("\n\n")
	content.WriteString("Are you sure you want to leave the console?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderWorldModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder

	switch {
	case m.loadingWorlds:
		content.WriteString(modalTitleStyle.Render("Loading Worlds..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Please wait while we fetch available worlds..."))
	case m.err != nil:
		content.WriteString(modalTitleStyle.Render("Error"))
		content.WriteString("\n\n")
		content.WriteString(errorStyle.Render(fmt.Sprintf("Failed to start world: %v", m.err)))
		content.WriteString("\n\n")
		content.WriteString("Press Ctrl+C to exit")
	case m.creatingWorld:
		content.WriteString(modalTitleStyle.Render("Creating World..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Setting up the table..."))
	default:
		content.WriteString(modalTitleStyle.Render("Select a World"))
		content.WriteString("\n\n")

		for i, name := range m.worlds {
			if i == m.selectedWorld {
				content.WriteString(modalSelectedItemStyle.Render(fmt.Sprintf("▶ %s", name)))
			} else {
				content.WriteString(modalItemStyle.Render(fmt.Sprintf("  %s", name)))
			}
			content.WriteString("\n")
		}

		content.WriteString("\n")
		content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to select, Ctrl+C to exit"))
	}

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if m.showWorldModal {
		return m.renderWorldModal()
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	chatWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - chatWidth - 6

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", chatWidth-4)),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}

// renderProgressBar creates an animated progress bar while an item use is pending
func (m ConsoleUI) renderProgressBar() string {
	usable := m.chatViewport.Width - 6
	if usable <= 0 {
		usable = 30 // fallback before sizing
	}
	if usable > 80 {
		usable = 80
	} else if usable < 10 {
		usable = 10
	}

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else if i == filled && frame%4 < 2 {
			bar.WriteString("▓") // Blinking effect at the progress point
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

// progressTick creates a command that sends a progress tick message
func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}

// pollTick refreshes the chat log even when the event stream is down
func pollTick() tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg {
		return pollTickMsg{}
	})
}
