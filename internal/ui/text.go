package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"
)

// Truncate shortens s to width terminal columns, ending with "…" when cut.
// ANSI sequences are preserved.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return ansi.Truncate(s, width, "…")
}

// WrapText word-wraps plain text to width columns. Words longer than the
// width are left intact.
func WrapText(s string, width int) string {
	if width <= 0 {
		return s
	}
	return wordwrap.String(s, width)
}

// PadRight pads s with spaces to width display columns.
func PadRight(s string, width int) string {
	w := runewidth.StringWidth(StripANSI(s))
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

// ParseBoolDefault parses a boolean-like environment value with a fallback default.
// True values: 1, true, yes, on, y
// False values: 0, false, no, off, n
// Empty/unknown values return defaultValue.
func ParseBoolDefault(raw string, defaultValue bool) bool {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "1", "true", "yes", "on", "y":
		return true
	case "0", "false", "no", "off", "n":
		return false
	default:
		return defaultValue
	}
}

// EnvBool reads a boolean environment variable.
func EnvBool(name string, defaultValue bool) bool {
	return ParseBoolDefault(os.Getenv(name), defaultValue)
}
