package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/elia-chat/elia/internal/theme"
	"github.com/muesli/termenv"
)

func TestRenderMarkdown(t *testing.T) {
	if RenderMarkdown("", MarkdownOptions{Width: 40}) != "" {
		t.Fatal("empty input should render empty")
	}

	out := RenderMarkdown("# Heading\n\nSome **bold** text.", MarkdownOptions{Width: 40, CodeTheme: "monokai"})
	plain := StripANSI(out)
	if !strings.Contains(plain, "Heading") || !strings.Contains(plain, "bold") {
		t.Fatalf("rendered output missing content: %q", plain)
	}
	if strings.Contains(plain, "**") {
		t.Fatalf("markdown markers should be rendered: %q", plain)
	}
}

func TestRenderMarkdownCachesPerKey(t *testing.T) {
	opts := MarkdownOptions{Width: 33, CodeTheme: "dracula"}
	RenderMarkdown("one", opts)
	RenderMarkdown("two", opts)
	RenderMarkdown("three", MarkdownOptions{Width: 33, CodeTheme: "dracula", Light: true})

	mdRendererCache.Lock()
	defer mdRendererCache.Unlock()
	count := 0
	for k := range mdRendererCache.renderers {
		if k.width == 33 && k.codeTheme == "dracula" {
			count++
		}
	}
	if count != 2 {
		t.Fatalf("expected 2 cached renderers, got %d", count)
	}
}

func TestHighlightCode(t *testing.T) {
	code := "package main\n\nfunc main() {}"
	out := HighlightCode(code, "go", "monokai")
	if out == code {
		t.Fatal("expected highlighted output")
	}
	if StripANSI(out) != code {
		t.Fatalf("highlighting changed the text: %q", StripANSI(out))
	}

	if got := HighlightCode("whatever", "no-such-language", "monokai"); got != "whatever" {
		t.Fatalf("unknown language should pass through, got %q", got)
	}
}

func TestHighlightCodeFollowsProfile(t *testing.T) {
	code := "func main() {}"

	if got := HighlightCodeFor(termenv.Ascii, code, "go", "monokai"); got != code {
		t.Fatalf("ascii profile should not colour, got %q", got)
	}

	out := HighlightCodeFor(termenv.ANSI256, code, "go", "monokai")
	if StripANSI(out) != code {
		t.Fatalf("highlighting changed the text: %q", StripANSI(out))
	}
	if !strings.Contains(out, "38;5;") || strings.Contains(out, "38;2;") {
		t.Fatalf("expected 256 colour sequences, got %q", out)
	}
}

func TestStylesFromPalette(t *testing.T) {
	th, err := theme.NewRegistry(nil).Get("nebula")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	s := NewStyles(&strings.Builder{}, th.Palette())
	if s.Palette.Primary != th.Primary {
		t.Fatalf("palette primary=%q, want %q", s.Palette.Primary, th.Primary)
	}
	if got := StripANSI(s.FormatResult(true, "saved")); got != SuccessIcon+" saved" {
		t.Fatalf("FormatResult=%q", got)
	}
	if got := StripANSI(s.FormatResult(false, "failed")); got != FailIcon+" failed" {
		t.Fatalf("FormatResult=%q", got)
	}
}

func TestStreamingIndicator(t *testing.T) {
	out := StreamingIndicator{
		Spinner:    "•",
		Model:      "GPT-4o",
		Phase:      "Responding",
		Elapsed:    1500 * time.Millisecond,
		Words:      1234,
		ShowCancel: true,
	}.Render(DefaultStyles())

	plain := StripANSI(out)
	for _, want := range []string{"• GPT-4o · Responding...", "1,234 words", "· 1.5s", "esc to cancel"} {
		if !strings.Contains(plain, want) {
			t.Errorf("indicator %q missing %q", plain, want)
		}
	}

	plain = StripANSI(StreamingIndicator{Phase: "Connecting"}.Render(DefaultStyles()))
	if plain != "Connecting... · 0.0s" {
		t.Fatalf("minimal indicator=%q", plain)
	}
}
