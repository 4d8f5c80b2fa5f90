package ui

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/elia-chat/elia/internal/theme"
)

// Status indicators
const (
	SuccessIcon = "✓"
	FailIcon    = "✗"
	ArchiveIcon = "▣"
)

// Styles holds lipgloss styles derived from a theme palette.
type Styles struct {
	renderer *lipgloss.Renderer
	Palette  theme.Palette

	// Text styles
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Success  lipgloss.Style
	Error    lipgloss.Style
	Warning  lipgloss.Style
	Muted    lipgloss.Style
	Bold     lipgloss.Style
	Accent   lipgloss.Style

	// Chat styles
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	SystemLabel    lipgloss.Style
	UserMessage    lipgloss.Style
	Notice         lipgloss.Style

	// List and frame styles
	Selected    lipgloss.Style
	Unselected  lipgloss.Style
	Border      lipgloss.Style
	Footer      lipgloss.Style
	TableHeader lipgloss.Style
}

// NewStyles builds styles for the palette, rendering for w.
func NewStyles(w io.Writer, p theme.Palette) *Styles {
	r := lipgloss.NewRenderer(w)
	r.SetHasDarkBackground(p.Dark)

	primary := lipgloss.Color(p.Primary)
	secondary := lipgloss.Color(p.Secondary)
	accent := lipgloss.Color(p.Accent)
	muted := lipgloss.Color(p.Muted)
	text := lipgloss.Color(p.Text)

	return &Styles{
		renderer: r,
		Palette:  p,

		Title: r.NewStyle().
			Bold(true).
			Foreground(primary),

		Subtitle: r.NewStyle().
			Foreground(muted),

		Success: r.NewStyle().
			Foreground(lipgloss.Color(p.Success)),

		Error: r.NewStyle().
			Foreground(lipgloss.Color(p.Error)),

		Warning: r.NewStyle().
			Foreground(lipgloss.Color(p.Warning)),

		Muted: r.NewStyle().
			Foreground(muted),

		Bold: r.NewStyle().
			Bold(true).
			Foreground(text),

		Accent: r.NewStyle().
			Foreground(accent),

		UserLabel: r.NewStyle().
			Bold(true).
			Foreground(secondary),

		AssistantLabel: r.NewStyle().
			Bold(true).
			Foreground(primary),

		SystemLabel: r.NewStyle().
			Italic(true).
			Foreground(muted),

		UserMessage: r.NewStyle().
			Foreground(text).
			Background(lipgloss.Color(p.Panel)).
			Padding(0, 1),

		Notice: r.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color(p.Warning)),

		Selected: r.NewStyle().
			Bold(true).
			Foreground(primary).
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(accent).
			PaddingLeft(1),

		Unselected: r.NewStyle().
			Foreground(text).
			PaddingLeft(2),

		Border: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(secondary),

		Footer: r.NewStyle().
			Foreground(muted),

		TableHeader: r.NewStyle().
			Bold(true).
			Foreground(primary).
			Padding(0, 1),
	}
}

// DefaultStyles returns styles for stderr using the default theme.
func DefaultStyles() *Styles {
	t, _ := theme.NewRegistry(nil).Get(theme.DefaultName)
	return NewStyles(os.Stderr, t.Palette())
}

// Renderer exposes the lipgloss renderer the styles were built with.
func (s *Styles) Renderer() *lipgloss.Renderer { return s.renderer }

// FormatResult returns a styled success/fail result
func (s *Styles) FormatResult(success bool, msg string) string {
	if success {
		return s.Success.Render(SuccessIcon+" ") + msg
	}
	return s.Error.Render(FailIcon+" ") + msg
}
