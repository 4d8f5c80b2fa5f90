// Package chat is the conversation screen.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/elia-chat/elia/internal/chats"
	"github.com/elia-chat/elia/internal/config"
	"github.com/elia-chat/elia/internal/llm"
	"github.com/elia-chat/elia/internal/ui"
	"github.com/elia-chat/elia/internal/usage"
)

// Clipboard receives copied text.
type Clipboard interface {
	WriteAll(text string) error
}

type systemClipboard struct{}

func (systemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

// EngineFactory builds the engine used to talk to a model.
type EngineFactory func(ctx context.Context, model config.ChatModel) (*llm.Engine, error)

// Exit tells the caller what to do once the program has quit.
type Exit int

const (
	ExitQuit Exit = iota
	ExitBack
)

// Options configures the chat screen.
type Options struct {
	Config    *config.LaunchConfig
	Store     chats.Store
	Model     config.ChatModel
	NewEngine EngineFactory
	// ChatID opens an existing chat. Zero starts a new one, created when
	// the first message is sent.
	ChatID        int64
	InitialPrompt string
	Inline        bool
	// FromHome makes esc return to the chat list.
	FromHome  bool
	Styles    *ui.Styles
	Clipboard Clipboard
	Usage     usage.Recorder
	Logger    *slog.Logger
	Now       func() time.Time
}

type itemKind int

const (
	itemUser itemKind = iota
	itemAssistant
	itemSystem
	itemNotice
)

type item struct {
	kind    itemKind
	content string
	model   string
}

type submitMsg struct{ text string }

type streamStartedMsg struct {
	gen    int
	stream llm.Stream
	err    error
}

type streamEventMsg struct {
	gen   int
	event llm.Event
	err   error
}

type titleMsg struct {
	chatID  int64
	title   string
	applied bool
	err     error
}

// Model is the bubbletea model of the chat screen.
type Model struct {
	ctx       context.Context
	config    *config.LaunchConfig
	store     chats.Store
	styles    *ui.Styles
	clipboard Clipboard
	usage     usage.Recorder
	logger    *slog.Logger
	now       func() time.Time
	newEngine EngineFactory

	model        config.ChatModel
	engine       *llm.Engine
	engineErr    error
	systemPrompt string

	chat     *chats.Chat
	messages []chats.Message
	items    []item

	inline        bool
	fromHome      bool
	initialPrompt string

	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	dialog   *DialogModel

	streaming      bool
	gen            int
	stream         llm.Stream
	streamCancel   context.CancelFunc
	partial        strings.Builder
	streamStart    time.Time
	streamUsage    llm.Usage
	streamModel    config.ChatModel
	phase          string
	titleRequested bool

	width  int
	height int

	quitting bool
	exit     Exit
}

// New builds the chat screen, loading the chat when opts.ChatID is set.
func New(ctx context.Context, opts Options) (*Model, error) {
	if opts.Store == nil {
		return nil, errors.New("chat store is required")
	}
	if opts.NewEngine == nil {
		return nil, errors.New("engine factory is required")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	styles := opts.Styles
	if styles == nil {
		styles = ui.DefaultStyles()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	m := &Model{
		ctx:           ctx,
		config:        cfg,
		store:         opts.Store,
		styles:        styles,
		clipboard:     opts.Clipboard,
		usage:         opts.Usage,
		logger:        logger,
		now:           opts.Now,
		newEngine:     opts.NewEngine,
		model:         opts.Model,
		systemPrompt:  cfg.SystemPrompt,
		inline:        opts.Inline,
		fromHome:      opts.FromHome,
		initialPrompt: strings.TrimSpace(opts.InitialPrompt),
		dialog:        NewDialogModel(styles),
		width:         80,
		height:        24,
	}
	if m.clipboard == nil {
		m.clipboard = systemClipboard{}
	}
	if m.usage == nil {
		m.usage = usage.Discard{}
	}
	if m.now == nil {
		m.now = time.Now
	}

	if opts.ChatID != 0 {
		if err := m.loadChat(opts.ChatID); err != nil {
			return nil, err
		}
	}

	// The history is still worth showing when the model cannot be used.
	engine, err := m.newEngine(ctx, m.model)
	if err != nil {
		m.logger.Warn("engine unavailable", "model", m.model.LookupKey(), "error", err)
		m.engineErr = err
		m.items = append(m.items, item{kind: itemNotice, content: m.engineNotice()})
	}
	m.engine = engine

	m.textarea = textarea.New()
	m.textarea.Placeholder = "Message elia... (/help for commands)"
	m.textarea.ShowLineNumbers = false
	m.textarea.Prompt = "┃ "
	m.textarea.CharLimit = 0
	m.textarea.SetHeight(3)
	m.textarea.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("ctrl+j", "alt+enter"))
	m.textarea.Focus()

	m.spinner = spinner.New()
	m.spinner.Spinner = spinner.Dot
	m.spinner.Style = styles.Accent

	m.viewport = viewport.New(m.width, m.viewportHeight())
	m.layout()
	return m, nil
}

func (m *Model) loadChat(id int64) error {
	chat, err := m.store.GetChat(m.ctx, id)
	if err != nil {
		return err
	}
	if chat == nil {
		return fmt.Errorf("%w: %d", chats.ErrChatNotFound, id)
	}
	messages, err := m.store.Messages(m.ctx, id)
	if err != nil {
		return err
	}

	m.chat = chat
	m.messages = messages
	m.titleRequested = chat.Title != ""
	if model, err := m.config.GetModel(chat.Model); err == nil {
		m.model = model
	} else if chat.Model != "" {
		m.items = append(m.items, item{kind: itemNotice, content: fmt.Sprintf("Model `%s` is no longer configured, using %s.", chat.Model, m.model.Label())})
	}
	for _, msg := range messages {
		m.items = append(m.items, itemFor(msg))
		if msg.Role == llm.RoleSystem {
			m.systemPrompt = msg.Content
		}
	}
	return nil
}

func itemFor(msg chats.Message) item {
	switch msg.Role {
	case llm.RoleUser:
		return item{kind: itemUser, content: msg.Content}
	case llm.RoleAssistant:
		return item{kind: itemAssistant, content: msg.Content, model: msg.Model}
	default:
		return item{kind: itemSystem, content: msg.Content}
	}
}

// Exit reports how the screen was left.
func (m *Model) Exit() Exit { return m.exit }

// ChatID returns the current chat, zero before the first message.
func (m *Model) ChatID() int64 {
	if m.chat == nil {
		return 0
	}
	return m.chat.ID
}

func (m *Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	if m.inline {
		for _, it := range m.items {
			cmds = append(cmds, tea.Println(m.renderItem(it)))
		}
	}
	if m.initialPrompt != "" {
		prompt := m.initialPrompt
		cmds = append(cmds, func() tea.Msg { return submitMsg{text: prompt} })
	}
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case submitMsg:
		return m.send(msg.text)

	case streamStartedMsg:
		return m.handleStreamStarted(msg)

	case streamEventMsg:
		return m.handleStreamEvent(msg)

	case titleMsg:
		if msg.err != nil {
			m.logger.Warn("title generation failed", "chat_id", msg.chatID, "error", msg.err)
		}
		if msg.applied && m.chat != nil && m.chat.ID == msg.chatID {
			m.chat.Title = msg.title
		}
		return m, nil

	case spinner.TickMsg:
		if !m.streaming {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.dialog.IsOpen() {
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
		if chosen := m.dialog.Update(msg); chosen != nil {
			model, err := m.config.GetModel(chosen.ID)
			if err != nil {
				return m.showNotice(err.Error())
			}
			return m.switchModel(model)
		}
		m.refreshViewport()
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c":
		return m.quit()

	case "esc":
		if m.streaming {
			return m, m.cancelStream()
		}
		if m.fromHome {
			return m.leave()
		}
		return m, nil

	case "enter":
		value := strings.TrimSpace(m.textarea.Value())
		if value == "" {
			return m, nil
		}
		if m.streaming {
			m.phase = "Press Esc to cancel the current reply"
			return m, nil
		}
		if strings.HasPrefix(value, "/") {
			return m.ExecuteCommand(value)
		}
		m.textarea.Reset()
		return m.send(value)

	case "ctrl+y":
		return m.copyLastReply()

	case "ctrl+b":
		return m.copyLastCodeBlock()

	case "ctrl+r":
		m.textarea.SetValue("/rename ")
		m.textarea.CursorEnd()
		return m, nil

	case "ctrl+o":
		return m.openModelPicker()

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m *Model) activeSystemPrompt() string {
	return m.systemPrompt
}

// send persists the user message, creating the chat on first use, and
// starts streaming the reply.
func (m *Model) send(text string) (tea.Model, tea.Cmd) {
	if m.engine == nil {
		m.textarea.SetValue(text)
		return m.showNotice(m.engineNotice())
	}
	now := m.now()
	user := &chats.Message{Role: llm.RoleUser, Content: text, Timestamp: now}

	var printed []item
	if m.chat == nil {
		chat := &chats.Chat{Model: m.model.LookupKey(), StartedAt: now}
		system := &chats.Message{Role: llm.RoleSystem, Content: m.activeSystemPrompt(), Timestamp: now}
		if err := m.store.CreateChat(m.ctx, chat, []*chats.Message{system, user}); err != nil {
			return m.showNotice(fmt.Sprintf("Failed to save chat: %v", err))
		}
		m.chat = chat
		m.titleRequested = false
		m.messages = append(m.messages, *system)
		printed = append(printed, itemFor(*system))
	} else {
		if err := m.store.AddMessage(m.ctx, m.chat.ID, user); err != nil {
			return m.showNotice(fmt.Sprintf("Failed to save message: %v", err))
		}
	}
	m.messages = append(m.messages, *user)
	printed = append(printed, itemFor(*user))

	cmds := m.appendItems(printed...)
	cmds = append(cmds, m.startStream())
	return m, tea.Batch(cmds...)
}

func (m *Model) request() llm.Request {
	msgs := make([]llm.Message, 0, len(m.messages))
	for _, msg := range m.messages {
		msgs = append(msgs, llm.Message{Role: msg.Role, Content: msg.Content})
	}
	return llm.Request{
		Model:       m.model.Name,
		Messages:    msgs,
		Temperature: llm.Float(m.model.Temperature),
	}
}

func (m *Model) switchModel(model config.ChatModel) (tea.Model, tea.Cmd) {
	if model.LookupKey() == m.model.LookupKey() && m.engine != nil {
		return m.showNotice(fmt.Sprintf("Already using %s.", model.Label()))
	}
	engine, err := m.newEngine(m.ctx, model)
	if err != nil {
		return m.showNotice(fmt.Sprintf("Cannot use %s: %v", model.Label(), err))
	}
	m.model = model
	m.engine = engine
	m.engineErr = nil
	m.logger.Info("switched model", "model", model.LookupKey())
	return m.showNotice(fmt.Sprintf("Switched to **%s**.", model.Label()))
}

func (m *Model) engineNotice() string {
	return fmt.Sprintf("Cannot use %s: %v. Pick another model with ctrl+o or /model.", m.model.Label(), m.engineErr)
}

func (m *Model) openModelPicker() (tea.Model, tea.Cmd) {
	m.textarea.Reset()
	m.dialog.SetWidth(m.width)
	m.dialog.ShowModelPicker(m.model.LookupKey(), m.config.AllModels())
	m.refreshViewport()
	return m, nil
}

func (m *Model) lastReply() (string, bool) {
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].Role == llm.RoleAssistant {
			return m.messages[i].Content, true
		}
	}
	return "", false
}

func (m *Model) copyLastReply() (tea.Model, tea.Cmd) {
	m.textarea.Reset()
	reply, ok := m.lastReply()
	if !ok {
		return m.showNotice("No reply to copy yet.")
	}
	if err := m.clipboard.WriteAll(reply); err != nil {
		return m.showNotice(fmt.Sprintf("Clipboard unavailable: %v", err))
	}
	return m.showNotice("Copied the last reply to the clipboard.")
}

func (m *Model) copyLastCodeBlock() (tea.Model, tea.Cmd) {
	reply, ok := m.lastReply()
	if !ok {
		return m.showNotice("No reply to copy yet.")
	}
	block, ok := ui.LastCodeBlock(reply)
	if !ok {
		return m.showNotice("The last reply has no code block.")
	}
	if err := m.clipboard.WriteAll(block.Code); err != nil {
		return m.showNotice(fmt.Sprintf("Clipboard unavailable: %v", err))
	}
	lang := block.Language
	if lang == "" {
		lang = "code"
	}
	return m.showNotice(fmt.Sprintf("Copied the last %s block to the clipboard.", lang))
}

// showNotice adds a transient message that is not stored with the chat.
func (m *Model) showNotice(content string) (tea.Model, tea.Cmd) {
	return m, tea.Batch(m.appendItems(item{kind: itemNotice, content: content})...)
}

// appendItems records items for display. Inline mode prints them to the
// scrollback instead of keeping them in the viewport.
func (m *Model) appendItems(items ...item) []tea.Cmd {
	if m.inline {
		cmds := make([]tea.Cmd, 0, len(items))
		for _, it := range items {
			cmds = append(cmds, tea.Println(m.renderItem(it)))
		}
		return cmds
	}
	m.items = append(m.items, items...)
	m.refreshViewport()
	return nil
}

func (m *Model) quit() (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	if m.streaming {
		cmds = append(cmds, m.cancelStream())
	}
	m.quitting = true
	m.exit = ExitQuit
	cmds = append(cmds, tea.Quit)
	return m, tea.Sequence(cmds...)
}

// leave goes back to the chat list when there is one, otherwise quits.
func (m *Model) leave() (tea.Model, tea.Cmd) {
	if !m.fromHome {
		return m.quit()
	}
	m.quitting = true
	m.exit = ExitBack
	return m, tea.Quit
}
