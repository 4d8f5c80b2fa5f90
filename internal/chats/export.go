package chats

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/elia-chat/elia/internal/llm"
)

// ExportOptions configures chat export.
type ExportOptions struct {
	IncludeSystem bool
	// ModelLabel replaces the raw model key in the header when set.
	ModelLabel string
}

func escapeTableCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}

// ExportMarkdown renders a chat and its messages as Markdown.
func ExportMarkdown(chat *Chat, messages []Message, opts ExportOptions) string {
	var b strings.Builder

	title := chat.Title
	if title == "" {
		title = fmt.Sprintf("Chat %d", chat.ID)
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	b.WriteString("> Exported from elia\n\n")

	model := chat.Model
	if opts.ModelLabel != "" {
		model = opts.ModelLabel
	}
	b.WriteString("| | |\n")
	b.WriteString("|---|---|\n")
	fmt.Fprintf(&b, "| **Model** | %s |\n", escapeTableCell(model))
	if !chat.StartedAt.IsZero() {
		fmt.Fprintf(&b, "| **Started** | %s |\n", chat.StartedAt.UTC().Format("2006-01-02 15:04 UTC"))
	}
	fmt.Fprintf(&b, "| **Messages** | %d |\n", len(messages))
	if in, out := totalTokens(messages); in > 0 || out > 0 {
		fmt.Fprintf(&b, "| **Tokens** | %s in / %s out |\n", humanize.Comma(int64(in)), humanize.Comma(int64(out)))
	}
	b.WriteString("\n---\n\n")

	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			if !opts.IncludeSystem {
				continue
			}
			b.WriteString("### System\n\n")
		case llm.RoleUser:
			b.WriteString("### User\n\n")
		case llm.RoleAssistant:
			if msg.Model != "" && msg.Model != chat.Model {
				fmt.Fprintf(&b, "### Assistant (%s)\n\n", msg.Model)
			} else {
				b.WriteString("### Assistant\n\n")
			}
		default:
			continue
		}
		b.WriteString(strings.TrimRight(msg.Content, "\n"))
		b.WriteString("\n\n---\n\n")
	}
	return b.String()
}

func totalTokens(messages []Message) (int, int) {
	var in, out int
	for _, m := range messages {
		in += m.Meta.InputTokens
		out += m.Meta.OutputTokens
	}
	return in, out
}
