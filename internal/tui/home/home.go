// Package home is the chat list screen shown when elia starts.
package home

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/elia-chat/elia/internal/chats"
	"github.com/elia-chat/elia/internal/config"
	"github.com/elia-chat/elia/internal/ui"
	"github.com/sahilm/fuzzy"
)

// ActionKind is what the user asked for when leaving the screen.
type ActionKind int

const (
	ActionQuit ActionKind = iota
	ActionOpen
	ActionNew
)

// Action is read by the caller after the program exits.
type Action struct {
	Kind   ActionKind
	ChatID int64
}

// Store is the part of the chat store the home screen uses.
type Store interface {
	ListChats(ctx context.Context, opts chats.ListOptions) ([]chats.ChatSummary, error)
	ArchiveChat(ctx context.Context, id int64, archived bool) error
	DeleteChat(ctx context.Context, id int64) error
}

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Open    key.Binding
	New     key.Binding
	Archive key.Binding
	Delete  key.Binding
	Reload  key.Binding
	Toggle  key.Binding
	Filter  key.Binding
	Quit    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Open, k.New, k.Archive, k.Delete, k.Toggle, k.Filter, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp(), {k.Up, k.Down, k.Reload}}
}

var keys = keyMap{
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Open:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
	New:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new chat")),
	Archive: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "archive")),
	Delete:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	Reload:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
	Toggle:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "archived")),
	Filter:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type chatsLoadedMsg struct {
	chats []chats.ChatSummary
	err   error
}

type opDoneMsg struct {
	status string
	err    error
}

// Model is the bubbletea model of the home screen.
type Model struct {
	ctx    context.Context
	store  Store
	config *config.LaunchConfig
	styles *ui.Styles
	now    func() time.Time

	chats    []chats.ChatSummary
	visible  []int
	cursor   int
	archived bool

	filter    textinput.Model
	filtering bool

	pendingDelete int64
	status        string
	err           error
	loaded        bool

	help   help.Model
	width  int
	height int

	action Action
}

// Options configures the home screen.
type Options struct {
	Store  Store
	Config *config.LaunchConfig
	Styles *ui.Styles
	Now    func() time.Time
}

// New returns the home screen model.
func New(ctx context.Context, opts Options) *Model {
	styles := opts.Styles
	if styles == nil {
		styles = ui.DefaultStyles()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	filter := textinput.New()
	filter.Prompt = "/"
	filter.Placeholder = "filter chats"

	return &Model{
		ctx:    ctx,
		store:  opts.Store,
		config: cfg,
		styles: styles,
		now:    now,
		filter: filter,
		help:   help.New(),
		width:  80,
		height: 24,
	}
}

// Action returns what the user selected before quitting.
func (m *Model) Action() Action { return m.action }

func (m *Model) Init() tea.Cmd {
	return m.loadCmd()
}

func (m *Model) loadCmd() tea.Cmd {
	opts := chats.ListOptions{OnlyArchived: m.archived}
	return func() tea.Msg {
		list, err := m.store.ListChats(m.ctx, opts)
		return chatsLoadedMsg{chats: list, err: err}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case chatsLoadedMsg:
		m.loaded = true
		m.err = msg.err
		if msg.err == nil {
			m.chats = msg.chats
		}
		m.applyFilter()
		return m, nil

	case opDoneMsg:
		m.err = msg.err
		if msg.err == nil {
			m.status = msg.status
		}
		return m, m.loadCmd()

	case tea.KeyMsg:
		if m.filtering {
			return m.updateFilter(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Any key other than a second "d" abandons a pending delete.
	confirmDelete := m.pendingDelete != 0 && key.Matches(msg, keys.Delete)
	if !confirmDelete {
		m.pendingDelete = 0
	}

	switch {
	case key.Matches(msg, keys.Quit):
		m.action = Action{Kind: ActionQuit}
		return m, tea.Quit

	case msg.Type == tea.KeyEsc:
		if m.filter.Value() != "" {
			m.filter.SetValue("")
			m.applyFilter()
		}
		return m, nil

	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.visible)-1 {
			m.cursor++
		}

	case key.Matches(msg, keys.Open):
		if s := m.selected(); s != nil {
			m.action = Action{Kind: ActionOpen, ChatID: s.ID}
			return m, tea.Quit
		}

	case key.Matches(msg, keys.New):
		m.action = Action{Kind: ActionNew}
		return m, tea.Quit

	case key.Matches(msg, keys.Archive):
		s := m.selected()
		if s == nil {
			return m, nil
		}
		id, archive := s.ID, !s.Archived
		return m, func() tea.Msg {
			err := m.store.ArchiveChat(m.ctx, id, archive)
			verb := "Archived"
			if !archive {
				verb = "Unarchived"
			}
			return opDoneMsg{status: fmt.Sprintf("%s chat %d.", verb, id), err: err}
		}

	case key.Matches(msg, keys.Delete):
		s := m.selected()
		if s == nil {
			return m, nil
		}
		if !confirmDelete || m.pendingDelete != s.ID {
			m.pendingDelete = s.ID
			m.status = fmt.Sprintf("Press d again to delete %q.", s.DisplayTitle())
			return m, nil
		}
		m.pendingDelete = 0
		id := s.ID
		return m, func() tea.Msg {
			err := m.store.DeleteChat(m.ctx, id)
			return opDoneMsg{status: fmt.Sprintf("Deleted chat %d.", id), err: err}
		}

	case key.Matches(msg, keys.Reload):
		m.status = ""
		return m, m.loadCmd()

	case key.Matches(msg, keys.Toggle):
		m.archived = !m.archived
		m.cursor = 0
		m.status = ""
		return m, m.loadCmd()

	case key.Matches(msg, keys.Filter):
		m.filtering = true
		return m, m.filter.Focus()
	}
	return m, nil
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filtering = false
		m.filter.Blur()
		m.filter.SetValue("")
		m.applyFilter()
		return m, nil
	case tea.KeyEnter:
		m.filtering = false
		m.filter.Blur()
		return m, nil
	case tea.KeyUp, tea.KeyDown:
		return m.handleKey(msg)
	case tea.KeyCtrlC:
		m.action = Action{Kind: ActionQuit}
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.applyFilter()
	return m, cmd
}

type summarySource []chats.ChatSummary

func (s summarySource) String(i int) string { return s[i].DisplayTitle() }
func (s summarySource) Len() int            { return len(s) }

// applyFilter recomputes the visible rows. Fuzzy matches are ordered by score.
func (m *Model) applyFilter() {
	m.visible = m.visible[:0]
	query := strings.TrimSpace(m.filter.Value())
	if query == "" {
		for i := range m.chats {
			m.visible = append(m.visible, i)
		}
	} else {
		for _, match := range fuzzy.FindFrom(query, summarySource(m.chats)) {
			m.visible = append(m.visible, match.Index)
		}
	}
	if m.cursor >= len(m.visible) {
		m.cursor = max(0, len(m.visible)-1)
	}
}

func (m *Model) selected() *chats.ChatSummary {
	if m.cursor < 0 || m.cursor >= len(m.visible) {
		return nil
	}
	return &m.chats[m.visible[m.cursor]]
}

func (m *Model) modelLabel(key string) string {
	if model, err := m.config.GetModel(key); err == nil {
		return model.Label()
	}
	return key
}

func (m *Model) View() string {
	var b strings.Builder

	heading := "Elia"
	if m.archived {
		heading += " · archived"
	}
	b.WriteString(m.styles.Title.Render(heading))
	b.WriteString("  ")
	b.WriteString(m.styles.Subtitle.Render("A snappy, keyboard-centric terminal user interface for interacting with LLMs."))
	b.WriteString("\n\n")

	if m.filtering || m.filter.Value() != "" {
		b.WriteString(m.filter.View())
		b.WriteString("\n\n")
	}

	switch {
	case !m.loaded:
		b.WriteString(m.styles.Muted.Render("Loading chats..."))
		b.WriteString("\n")
	case len(m.visible) == 0:
		empty := "No chats yet. Press n to start one."
		if m.archived {
			empty = "No archived chats."
		} else if m.filter.Value() != "" {
			empty = "No chats match the filter."
		}
		b.WriteString(m.styles.Muted.Render(empty))
		b.WriteString("\n")
	default:
		b.WriteString(m.renderRows())
	}

	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(m.styles.Error.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	} else if m.status != "" {
		b.WriteString(m.styles.Notice.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(keys))
	return b.String()
}

func (m *Model) renderRows() string {
	// Header, blank lines, status and help take about eight rows.
	maxRows := max(3, m.height-8)
	start := 0
	if m.cursor >= maxRows {
		start = m.cursor - maxRows + 1
	}
	end := min(len(m.visible), start+maxRows)

	timeWidth := 16
	modelWidth := 22
	titleWidth := max(10, m.width-timeWidth-modelWidth-8)

	var b strings.Builder
	for row := start; row < end; row++ {
		s := m.chats[m.visible[row]]
		title := s.DisplayTitle()
		if s.Archived {
			title = ui.ArchiveIcon + " " + title
		}
		line := ui.PadRight(ui.Truncate(title, titleWidth), titleWidth) + "  " +
			m.styles.Accent.Render(ui.PadRight(ui.Truncate(m.modelLabel(s.Model), modelWidth), modelWidth)) + "  " +
			m.styles.Muted.Render(m.relativeTime(s.LastActivity()))
		if row == m.cursor {
			b.WriteString(m.styles.Selected.Render(line))
		} else {
			b.WriteString(m.styles.Unselected.Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) relativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.RelTime(t, m.now(), "ago", "from now")
}
