package llm

import (
	"context"
	"strings"
)

const (
	titleMaxRunes    = 80
	fallbackMaxRunes = 50
	titleMaxTokens   = 64
)

const titleInstruction = "You are a title generator. Reply with a short title of at most " +
	"eight words that summarises the conversation started by the user's message. " +
	"Reply with the title only, with no quotes and no trailing punctuation."

// GenerateTitle asks the model for a short title for a chat that starts
// with firstMessage. On any failure it falls back to the start of the
// message itself.
func GenerateTitle(ctx context.Context, engine *Engine, model, firstMessage string) (string, error) {
	fallback := FallbackTitle(firstMessage)
	req := Request{
		Model:       model,
		Temperature: Float(1.0),
		Messages: []Message{
			SystemText(titleInstruction),
			UserText(firstMessage),
		},
	}
	// Reasoning models spend output tokens before replying, so a small
	// cap can leave nothing for the title.
	if !isReasoningModel(model) {
		req.MaxTokens = titleMaxTokens
	}
	text, _, err := engine.Complete(ctx, req)
	if err != nil {
		return fallback, err
	}
	title := cleanTitle(text)
	if title == "" {
		return fallback, nil
	}
	return title, nil
}

// FallbackTitle is the first line of message cut to a displayable length.
func FallbackTitle(message string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(message), "\n")
	return truncateRunes(strings.TrimSpace(line), fallbackMaxRunes)
}

func cleanTitle(s string) string {
	s = strings.TrimSpace(s)
	if line, _, ok := strings.Cut(s, "\n"); ok {
		s = line
	}
	s = strings.TrimPrefix(s, "Title:")
	s = strings.Trim(s, " \t\"'`*#")
	s = strings.TrimRight(s, ".")
	return truncateRunes(strings.TrimSpace(s), titleMaxRunes)
}
