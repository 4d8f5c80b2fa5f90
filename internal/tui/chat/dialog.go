package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/elia-chat/elia/internal/config"
	"github.com/elia-chat/elia/internal/ui"
	"github.com/sahilm/fuzzy"
)

// DialogItem represents an item in a dialog list
type DialogItem struct {
	ID          string
	Label       string
	Description string
	Category    string
	Selected    bool
}

// DialogModel is the model picker shown over the chat.
type DialogModel struct {
	open     bool
	items    []DialogItem
	filtered []DialogItem
	cursor   int
	query    string
	title    string
	width    int
	styles   *ui.Styles
}

// NewDialogModel creates a new dialog model
func NewDialogModel(styles *ui.Styles) *DialogModel {
	return &DialogModel{styles: styles}
}

// SetWidth updates the available width.
func (d *DialogModel) SetWidth(width int) {
	d.width = width
}

// IsOpen returns whether a dialog is open
func (d *DialogModel) IsOpen() bool {
	return d.open
}

// Close closes the dialog
func (d *DialogModel) Close() {
	d.open = false
	d.items = nil
	d.filtered = nil
	d.cursor = 0
	d.query = ""
}

// ShowModelPicker opens the picker over models with current highlighted.
func (d *DialogModel) ShowModelPicker(current string, models []config.ChatModel) {
	d.open = true
	d.title = "Select Model"
	d.cursor = 0
	d.query = ""
	d.items = nil

	for _, m := range models {
		item := DialogItem{
			ID:          m.LookupKey(),
			Label:       m.Label(),
			Description: m.Description,
			Category:    m.Provider,
			Selected:    m.LookupKey() == current,
		}
		d.items = append(d.items, item)
	}
	d.filtered = d.items

	for i, item := range d.filtered {
		if item.Selected {
			d.cursor = i
			break
		}
	}
}

// Selected returns the currently highlighted item
func (d *DialogModel) Selected() *DialogItem {
	if len(d.filtered) == 0 {
		return nil
	}
	if d.cursor >= len(d.filtered) {
		d.cursor = len(d.filtered) - 1
	}
	return &d.filtered[d.cursor]
}

type dialogSource []DialogItem

func (s dialogSource) String(i int) string { return s[i].Label + " " + s[i].ID }
func (s dialogSource) Len() int            { return len(s) }

// SetQuery filters items fuzzily by label and id.
func (d *DialogModel) SetQuery(query string) {
	d.query = query
	d.cursor = 0
	if strings.TrimSpace(query) == "" {
		d.filtered = d.items
	} else {
		d.filtered = nil
		for _, match := range fuzzy.FindFrom(query, dialogSource(d.items)) {
			d.filtered = append(d.filtered, d.items[match.Index])
		}
	}
}

// Query returns the current filter query
func (d *DialogModel) Query() string {
	return d.query
}

// Update handles navigation and filtering keys. It reports the chosen item
// when enter is pressed.
func (d *DialogModel) Update(msg tea.Msg) (chosen *DialogItem) {
	if !d.open {
		return nil
	}
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}

	switch {
	case key.Matches(keyMsg, key.NewBinding(key.WithKeys("up", "ctrl+p"))):
		if d.cursor > 0 {
			d.cursor--
		}
	case key.Matches(keyMsg, key.NewBinding(key.WithKeys("down", "ctrl+n"))):
		if d.cursor < len(d.filtered)-1 {
			d.cursor++
		}
	case key.Matches(keyMsg, key.NewBinding(key.WithKeys("esc"))):
		d.Close()
	case key.Matches(keyMsg, key.NewBinding(key.WithKeys("enter"))):
		item := d.Selected()
		if item == nil {
			return nil
		}
		picked := *item
		d.Close()
		return &picked
	case keyMsg.Type == tea.KeyBackspace:
		if d.query != "" {
			runes := []rune(d.query)
			d.SetQuery(string(runes[:len(runes)-1]))
		}
	case keyMsg.Type == tea.KeyRunes || keyMsg.Type == tea.KeySpace:
		d.SetQuery(d.query + string(keyMsg.Runes))
	}
	return nil
}

// View renders the picker.
func (d *DialogModel) View() string {
	if !d.open {
		return ""
	}

	maxVisible := 12
	startIdx := 0
	if d.cursor >= maxVisible {
		startIdx = d.cursor - maxVisible + 1
	}
	endIdx := min(len(d.filtered), startIdx+maxVisible)

	width := 60
	if d.width > 0 && width > d.width-4 {
		width = max(20, d.width-4)
	}

	var b strings.Builder
	b.WriteString(d.styles.Title.Render(d.title))
	if d.query != "" {
		b.WriteString("  ")
		b.WriteString(d.styles.Accent.Render(d.query))
	}
	b.WriteString("\n\n")

	if len(d.filtered) == 0 {
		b.WriteString(d.styles.Muted.Render("No models match."))
		b.WriteString("\n")
	}
	for i := startIdx; i < endIdx; i++ {
		item := d.filtered[i]
		label := item.Label
		if item.Category != "" {
			label += d.styles.Muted.Render(" · " + item.Category)
		}
		if item.Selected {
			label += d.styles.Muted.Render(" (current)")
		}
		label = ui.Truncate(label, width-4)
		if i == d.cursor {
			b.WriteString(d.styles.Title.Render("❯ ") + label)
		} else {
			b.WriteString("  " + label)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(d.styles.Muted.Render("type to filter · ↑/↓ navigate · enter select · esc cancel"))

	return d.styles.Border.Width(width).Padding(0, 1).Render(b.String())
}
