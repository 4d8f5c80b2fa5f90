package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/elia-chat/elia/internal/chats"
	"github.com/elia-chat/elia/internal/llm"
	"github.com/elia-chat/elia/internal/usage"
)

const titleTimeout = 30 * time.Second

// startStream requests a reply to the current messages.
func (m *Model) startStream() tea.Cmd {
	m.gen++
	gen := m.gen
	m.streaming = true
	m.partial.Reset()
	m.streamStart = m.now()
	m.streamUsage = llm.Usage{}
	m.streamModel = m.model
	m.phase = "Connecting"

	ctx, cancel := context.WithCancel(m.ctx)
	m.streamCancel = cancel
	engine := m.engine
	req := m.request()
	m.logger.Debug("starting reply", "model", m.model.LookupKey(), "messages", len(req.Messages))

	m.refreshViewport()
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		stream, err := engine.Stream(ctx, req)
		return streamStartedMsg{gen: gen, stream: stream, err: err}
	})
}

func waitForEvent(gen int, stream llm.Stream) tea.Cmd {
	return func() tea.Msg {
		event, err := stream.Recv()
		return streamEventMsg{gen: gen, event: event, err: err}
	}
}

func (m *Model) handleStreamStarted(msg streamStartedMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.gen || !m.streaming {
		if msg.stream != nil {
			msg.stream.Close()
		}
		return m, nil
	}
	if msg.err != nil {
		return m, tea.Batch(m.finishStream(msg.err, false)...)
	}
	m.stream = msg.stream
	m.phase = "Responding"
	return m, waitForEvent(msg.gen, msg.stream)
}

func (m *Model) handleStreamEvent(msg streamEventMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.gen || !m.streaming {
		return m, nil
	}
	if errors.Is(msg.err, io.EOF) {
		return m, tea.Batch(m.finishStream(nil, false)...)
	}
	if msg.err != nil {
		return m, tea.Batch(m.finishStream(msg.err, false)...)
	}

	switch msg.event.Type {
	case llm.EventTextDelta:
		m.partial.WriteString(msg.event.Text)
		m.refreshViewport()
	case llm.EventUsage:
		if msg.event.Use != nil {
			m.streamUsage.Add(*msg.event.Use)
		}
	case llm.EventError:
		err := msg.event.Err
		if err == nil {
			err = errors.New("provider reported an error")
		}
		return m, tea.Batch(m.finishStream(err, false)...)
	}
	return m, waitForEvent(msg.gen, m.stream)
}

// cancelStream stops the reply in flight and keeps what has arrived.
func (m *Model) cancelStream() tea.Cmd {
	if !m.streaming {
		return nil
	}
	return tea.Batch(m.finishStream(nil, true)...)
}

// finishStream ends the current reply, storing any text received and
// recording usage.
func (m *Model) finishStream(streamErr error, cancelled bool) []tea.Cmd {
	if m.streamCancel != nil {
		m.streamCancel()
		m.streamCancel = nil
	}
	if m.stream != nil {
		m.stream.Close()
		m.stream = nil
	}
	m.streaming = false
	m.gen++

	elapsed := m.now().Sub(m.streamStart)
	text := m.partial.String()
	m.partial.Reset()

	var items []item
	if text != "" {
		reply := &chats.Message{
			Role:      llm.RoleAssistant,
			Content:   text,
			Timestamp: m.now(),
			Model:     m.streamModel.LookupKey(),
			Meta: chats.Meta{
				InputTokens:  m.streamUsage.InputTokens,
				OutputTokens: m.streamUsage.OutputTokens,
				DurationMs:   elapsed.Milliseconds(),
				Cancelled:    cancelled,
			},
		}
		if m.chat != nil {
			if err := m.store.AddMessage(m.ctx, m.chat.ID, reply); err != nil {
				m.logger.Error("saving reply failed", "chat_id", m.chat.ID, "error", err)
				items = append(items, item{kind: itemNotice, content: fmt.Sprintf("Failed to save reply: %v", err)})
			}
		}
		m.messages = append(m.messages, *reply)
		items = append([]item{itemFor(*reply)}, items...)
	}

	m.recordUsage(elapsed, cancelled)

	switch {
	case cancelled:
		m.logger.Info("reply cancelled", "chars", len(text))
		items = append(items, item{kind: itemNotice, content: "Reply cancelled."})
	case streamErr != nil:
		m.logger.Warn("reply failed", "model", m.streamModel.LookupKey(), "error", streamErr)
		items = append(items, item{kind: itemNotice, content: "Error: " + llm.ErrorSummary(streamErr)})
	case text == "":
		items = append(items, item{kind: itemNotice, content: "The model returned an empty reply."})
	}

	cmds := m.appendItems(items...)
	if cmd := m.requestTitle(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return cmds
}

func (m *Model) recordUsage(elapsed time.Duration, cancelled bool) {
	if m.streamUsage == (llm.Usage{}) && !cancelled {
		return
	}
	provider, err := llm.ProviderFor(m.streamModel)
	if err != nil {
		provider = m.streamModel.Provider
	}
	entry := usage.LogEntry{
		Timestamp:    m.now(),
		Model:        m.streamModel.LookupKey(),
		Provider:     provider,
		InputTokens:  m.streamUsage.InputTokens,
		OutputTokens: m.streamUsage.OutputTokens,
		DurationMs:   elapsed.Milliseconds(),
		Cancelled:    cancelled,
	}
	if m.chat != nil {
		entry.ChatID = m.chat.ID
	}
	if err := m.usage.Log(entry); err != nil {
		m.logger.Warn("usage log failed", "error", err)
	}
}

// requestTitle generates a title in the background once the first reply
// of an untitled chat has arrived.
func (m *Model) requestTitle() tea.Cmd {
	if m.titleRequested || m.chat == nil || m.chat.Title != "" {
		return nil
	}
	first := ""
	for _, msg := range m.messages {
		if msg.Role == llm.RoleUser {
			first = msg.Content
			break
		}
	}
	if first == "" {
		return nil
	}
	m.titleRequested = true

	ctx := m.ctx
	store := m.store
	engine := m.engine
	modelName := m.model.Name
	chatID := m.chat.ID
	return func() tea.Msg {
		tctx, cancel := context.WithTimeout(ctx, titleTimeout)
		defer cancel()
		title, genErr := llm.GenerateTitle(tctx, engine, modelName, first)

		// The user may have renamed the chat while the title was generated.
		current, err := store.GetChat(ctx, chatID)
		if err != nil {
			return titleMsg{chatID: chatID, err: err}
		}
		if current == nil || current.Title != "" || title == "" {
			return titleMsg{chatID: chatID, err: genErr}
		}
		if err := store.RenameChat(ctx, chatID, title); err != nil {
			return titleMsg{chatID: chatID, err: err}
		}
		return titleMsg{chatID: chatID, title: title, applied: true, err: genErr}
	}
}
