package ui

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	glamourstyles "github.com/charmbracelet/glamour/styles"
)

type rendererKey struct {
	width     int
	codeTheme string
	dark      bool
}

// Package-level renderer cache to avoid expensive recreation during streaming
var mdRendererCache = struct {
	sync.Mutex
	renderers map[rendererKey]*glamour.TermRenderer
}{renderers: make(map[rendererKey]*glamour.TermRenderer)}

// MarkdownOptions selects how markdown is rendered.
type MarkdownOptions struct {
	Width int
	// CodeTheme is a chroma style name such as "monokai".
	CodeTheme string
	Light     bool
}

// RenderMarkdown renders markdown content with glamour.
// On error, returns the original content unchanged.
func RenderMarkdown(content string, opts MarkdownOptions) string {
	if content == "" {
		return ""
	}

	rendered, err := RenderMarkdownWithError(content, opts)
	if err != nil {
		return content
	}
	return rendered
}

// RenderMarkdownWithError renders markdown content and returns any errors.
func RenderMarkdownWithError(content string, opts MarkdownOptions) (string, error) {
	if opts.Width <= 0 {
		opts.Width = 80
	}
	key := rendererKey{width: opts.Width, codeTheme: opts.CodeTheme, dark: !opts.Light}

	mdRendererCache.Lock()
	defer mdRendererCache.Unlock()

	renderer, ok := mdRendererCache.renderers[key]
	if !ok {
		var err error
		renderer, err = glamour.NewTermRenderer(
			glamour.WithStyles(markdownStyle(key)),
			glamour.WithWordWrap(opts.Width),
		)
		if err != nil {
			return "", err
		}
		mdRendererCache.renderers[key] = renderer
	}

	rendered, err := renderer.Render(content)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(rendered), nil
}

func markdownStyle(key rendererKey) ansi.StyleConfig {
	style := glamourstyles.DarkStyleConfig
	if !key.dark {
		style = glamourstyles.LightStyleConfig
	}

	margin := uint(0)
	style.Document.Margin = &margin
	style.Document.BlockPrefix = ""
	style.Document.BlockSuffix = ""
	style.CodeBlock.Margin = &margin

	// A named chroma theme only applies when the inline chroma palette is unset.
	if key.codeTheme != "" {
		style.CodeBlock.Chroma = nil
		style.CodeBlock.Theme = key.codeTheme
	}
	return style
}
