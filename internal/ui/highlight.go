package ui

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"
)

type highlighterKey struct {
	lang    string
	theme   string
	profile termenv.Profile
}

// Lexer lookup walks every registered lexer, so highlighters are kept.
var (
	highlighterCache   = make(map[highlighterKey]*Highlighter)
	highlighterCacheMu sync.RWMutex
)

// Highlighter colours code with a chroma style, limited to what the
// terminal's colour profile can show.
type Highlighter struct {
	lexer   chroma.Lexer
	style   *chroma.Style
	profile termenv.Profile
}

// NewHighlighter returns a highlighter for a fence language such as "go"
// in the named chroma style. An empty lang is guessed from sample. It
// returns nil when no lexer applies or the profile has no colours.
func NewHighlighter(profile termenv.Profile, lang, codeTheme, sample string) *Highlighter {
	if profile == termenv.Ascii {
		return nil
	}
	key := highlighterKey{lang: strings.ToLower(lang), theme: codeTheme, profile: profile}
	if key.lang != "" {
		highlighterCacheMu.RLock()
		h, ok := highlighterCache[key]
		highlighterCacheMu.RUnlock()
		if ok {
			return h
		}
	}

	var lexer chroma.Lexer
	switch {
	case key.lang != "":
		lexer = lexers.Get(key.lang)
	case sample != "":
		lexer = lexers.Analyse(sample)
	}

	var h *Highlighter
	if lexer != nil {
		style := styles.Get(codeTheme)
		if style == nil {
			style = styles.Fallback
		}
		h = &Highlighter{lexer: chroma.Coalesce(lexer), style: style, profile: profile}
	}

	// A guessed lexer depends on the sample.
	if key.lang != "" {
		highlighterCacheMu.Lock()
		highlighterCache[key] = h
		highlighterCacheMu.Unlock()
	}
	return h
}

// HighlightCode highlights code in true colour. Unknown languages are
// returned unchanged.
func HighlightCode(code, lang, codeTheme string) string {
	return HighlightCodeFor(termenv.TrueColor, code, lang, codeTheme)
}

// HighlightCodeFor highlights code for a terminal with the given profile.
func HighlightCodeFor(profile termenv.Profile, code, lang, codeTheme string) string {
	h := NewHighlighter(profile, lang, codeTheme, code)
	if h == nil {
		return code
	}
	lines := strings.Split(code, "\n")
	for i, line := range lines {
		lines[i] = h.HighlightLine(line)
	}
	return strings.Join(lines, "\n")
}

// HighlightLine highlights a single line, leaving the background alone.
func (h *Highlighter) HighlightLine(line string) string {
	if h == nil || line == "" {
		return line
	}
	iterator, err := h.lexer.Tokenise(nil, line)
	if err != nil {
		return line
	}

	var b strings.Builder
	for token := iterator(); token != chroma.EOF; token = iterator() {
		value := strings.TrimRight(token.Value, "\n")
		if value == "" {
			continue
		}
		seq := h.sequence(h.style.Get(token.Type))
		if seq == "" {
			b.WriteString(value)
			continue
		}
		fmt.Fprintf(&b, "\x1b[%sm%s\x1b[0m", seq, value)
	}
	return b.String()
}

// sequence returns the SGR parameters for a style entry.
func (h *Highlighter) sequence(entry chroma.StyleEntry) string {
	var codes []string
	if entry.Colour.IsSet() {
		if c := h.profile.Color(entry.Colour.String()); c != nil {
			if seq := c.Sequence(false); seq != "" {
				codes = append(codes, seq)
			}
		}
	}
	if entry.Bold == chroma.Yes {
		codes = append(codes, "1")
	}
	if entry.Italic == chroma.Yes {
		codes = append(codes, "3")
	}
	if entry.Underline == chroma.Yes {
		codes = append(codes, "4")
	}
	return strings.Join(codes, ";")
}

const tabWidth = 8

func advanceColumn(col int, r rune) int {
	switch r {
	case '\t':
		return col + (tabWidth - (col % tabWidth))
	case '\n':
		return 0
	}

	width := runewidth.RuneWidth(r)
	if width < 0 {
		width = 0
	}
	return col + width
}

// ANSI escape code pattern for stripping/measuring
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// StripANSI removes all ANSI escape codes from a string
func StripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

// ANSILen returns the display width of the last line of s, ignoring ANSI
// codes and expanding tabs.
func ANSILen(s string) int {
	col := 0
	plain := StripANSI(s)
	for i := 0; i < len(plain); {
		r, size := utf8.DecodeRuneInString(plain[i:])
		if r == utf8.RuneError && size == 1 {
			col++
		} else {
			col = advanceColumn(col, r)
		}
		i += size
	}
	return col
}
