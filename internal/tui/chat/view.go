package chat

import (
	"strings"

	"github.com/elia-chat/elia/internal/ui"
)

func (m *Model) viewportHeight() int {
	return max(3, m.height-8)
}

func (m *Model) contentWidth() int {
	return max(20, m.width-2)
}

func (m *Model) layout() {
	m.textarea.SetWidth(max(10, m.width-2))
	m.viewport.Width = m.width
	m.viewport.Height = m.viewportHeight()
	m.dialog.SetWidth(m.width)
	m.refreshViewport()
}

// refreshViewport re-renders the conversation into the viewport and keeps it
// scrolled to the end.
func (m *Model) refreshViewport() {
	if m.inline {
		return
	}
	var parts []string
	for _, it := range m.items {
		parts = append(parts, m.renderItem(it))
	}
	if m.streaming && m.partial.Len() > 0 {
		parts = append(parts, m.renderItem(item{kind: itemAssistant, content: m.partial.String(), model: m.streamModel.LookupKey()}))
	}
	if len(parts) == 0 {
		parts = append(parts, m.styles.Muted.Render("Start the conversation by typing a message below."))
	}
	m.viewport.SetContent(strings.Join(parts, "\n"))
	m.viewport.GotoBottom()
}

func (m *Model) markdownOptions() ui.MarkdownOptions {
	return ui.MarkdownOptions{
		Width:     m.contentWidth(),
		CodeTheme: m.config.MessageCodeTheme,
		Light:     !m.styles.Palette.Dark,
	}
}

func (m *Model) modelLabel(key string) string {
	if key == "" {
		return m.model.Label()
	}
	if model, err := m.config.GetModel(key); err == nil {
		return model.Label()
	}
	return key
}

func (m *Model) renderItem(it item) string {
	var b strings.Builder
	switch it.kind {
	case itemUser:
		b.WriteString(m.styles.UserLabel.Render("You"))
		b.WriteString("\n")
		b.WriteString(m.styles.UserMessage.Render(ui.WrapText(it.content, m.contentWidth())))
		b.WriteString("\n")
	case itemAssistant:
		b.WriteString(m.styles.AssistantLabel.Render(m.modelLabel(it.model)))
		b.WriteString("\n")
		b.WriteString(strings.TrimRight(ui.RenderMarkdown(it.content, m.markdownOptions()), "\n"))
		b.WriteString("\n")
	case itemSystem:
		b.WriteString(m.styles.SystemLabel.Render("System"))
		b.WriteString("\n")
		b.WriteString(m.styles.Muted.Render(ui.WrapText(it.content, m.contentWidth())))
		b.WriteString("\n")
	case itemNotice:
		b.WriteString(m.styles.Notice.Render(strings.TrimRight(ui.RenderMarkdown(it.content, m.markdownOptions()), "\n")))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) header() string {
	title := "New chat"
	if m.chat != nil {
		if m.chat.Title != "" {
			title = m.chat.Title
		} else {
			title = "Untitled chat"
		}
	}
	line := m.styles.Title.Render("elia") + " " + title + m.styles.Muted.Render(" · "+m.model.Label())
	return ui.Truncate(line, m.width)
}

func (m *Model) footer() string {
	keys := []string{"enter send", "ctrl+j newline", "ctrl+o model", "/help commands"}
	if m.streaming {
		keys = append(keys, "esc cancel")
	} else if m.fromHome {
		keys = append(keys, "esc back")
	}
	keys = append(keys, "ctrl+c quit")
	return m.styles.Footer.Render(ui.Truncate(strings.Join(keys, " · "), m.width))
}

func (m *Model) status() string {
	if !m.streaming {
		return ""
	}
	return ui.StreamingIndicator{
		Spinner:    m.spinner.View(),
		Model:      m.model.Label(),
		Phase:      m.phase,
		Elapsed:    m.now().Sub(m.streamStart),
		Words:      len(strings.Fields(m.partial.String())),
		ShowCancel: true,
	}.Render(m.styles)
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	if !m.inline {
		b.WriteString(m.header())
		b.WriteString("\n")
	}

	switch {
	case m.dialog.IsOpen():
		b.WriteString(m.dialog.View())
		b.WriteString("\n")
	case m.inline:
		if m.streaming && m.partial.Len() > 0 {
			b.WriteString(m.renderItem(item{kind: itemAssistant, content: m.partial.String(), model: m.streamModel.LookupKey()}))
		}
	default:
		b.WriteString(m.viewport.View())
		b.WriteString("\n")
	}

	if status := m.status(); status != "" {
		b.WriteString(status)
		b.WriteString("\n")
	}
	b.WriteString(m.textarea.View())
	b.WriteString("\n")
	b.WriteString(m.footer())
	return b.String()
}
