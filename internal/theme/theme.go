// Package theme defines the colour themes used by the UI.
package theme

import (
	"errors"
	"fmt"
	"sort"
)

// DefaultName is the theme used when none is configured.
const DefaultName = "nebula"

// ErrThemeNotFound is returned when a theme name is not registered.
var ErrThemeNotFound = errors.New("theme not found")

// Theme is a named colour palette. Colours are hex strings such as "#4169E1".
type Theme struct {
	Name       string            `yaml:"name"`
	Primary    string            `yaml:"primary"`
	Secondary  string            `yaml:"secondary,omitempty"`
	Background string            `yaml:"background,omitempty"`
	Surface    string            `yaml:"surface,omitempty"`
	Panel      string            `yaml:"panel,omitempty"`
	Warning    string            `yaml:"warning,omitempty"`
	Error      string            `yaml:"error,omitempty"`
	Success    string            `yaml:"success,omitempty"`
	Accent     string            `yaml:"accent,omitempty"`
	Dark       *bool             `yaml:"dark,omitempty"`
	Variables  map[string]string `yaml:"variables,omitempty"`
}

// IsDark reports whether the theme is dark. Themes are dark unless stated.
func (t Theme) IsDark() bool {
	return t.Dark == nil || *t.Dark
}

// Palette is a theme with every colour filled in.
type Palette struct {
	Primary    string
	Secondary  string
	Background string
	Surface    string
	Panel      string
	Warning    string
	Error      string
	Success    string
	Accent     string
	Text       string
	Muted      string
	Dark       bool
}

// Palette fills unset colours so callers never deal with blanks.
func (t Theme) Palette() Palette {
	p := Palette{
		Primary:    t.Primary,
		Secondary:  or(t.Secondary, t.Primary),
		Background: t.Background,
		Surface:    t.Surface,
		Panel:      t.Panel,
		Warning:    or(t.Warning, "#ffa62b"),
		Error:      or(t.Error, "#ba3c5b"),
		Success:    or(t.Success, "#4EBF71"),
		Dark:       t.IsDark(),
	}
	p.Accent = or(t.Accent, p.Secondary)
	if p.Dark {
		p.Background = or(p.Background, "#1e1e1e")
		p.Surface = or(p.Surface, "#272727")
		p.Text = "#e0e0e0"
		p.Muted = "#8a8a8a"
	} else {
		p.Background = or(p.Background, "#efefef")
		p.Surface = or(p.Surface, "#f5f5f5")
		p.Text = "#1e1e1e"
		p.Muted = "#6a6a6a"
	}
	p.Panel = or(p.Panel, p.Surface)
	if v, ok := t.Variables["text"]; ok && v != "" {
		p.Text = v
	}
	if v, ok := t.Variables["text-muted"]; ok && v != "" {
		p.Muted = v
	}
	return p
}

func or(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

// Registry holds builtin themes and any user themes layered on top.
type Registry struct {
	themes map[string]Theme
}

// NewRegistry returns a registry with the builtin themes, overridden by user
// themes of the same name.
func NewRegistry(user map[string]Theme) *Registry {
	r := &Registry{themes: make(map[string]Theme, len(builtins)+len(user))}
	for _, t := range Builtins() {
		r.themes[t.Name] = t
	}
	for name, t := range user {
		r.themes[name] = t
	}
	return r
}

// Get returns the named theme.
func (r *Registry) Get(name string) (Theme, error) {
	t, ok := r.themes[name]
	if !ok {
		return Theme{}, fmt.Errorf("%w: %q", ErrThemeNotFound, name)
	}
	return t, nil
}

// Names returns all registered theme names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.themes))
	for name := range r.themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsBuiltin reports whether name is a builtin theme that has not been
// replaced by a user theme.
func (r *Registry) IsBuiltin(name string) bool {
	b, ok := builtins[name]
	if !ok {
		return false
	}
	t, ok := r.themes[name]
	return ok && t.Primary == b.Primary && t.Background == b.Background
}
