package llm

import (
	"context"
	"strings"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message is a single turn sent to a provider.
type Message struct {
	Role    Role
	Content string
}

func SystemText(text string) Message    { return Message{Role: RoleSystem, Content: text} }
func UserText(text string) Message      { return Message{Role: RoleUser, Content: text} }
func AssistantText(text string) Message { return Message{Role: RoleAssistant, Content: text} }

// Request is a provider-agnostic chat completion request.
type Request struct {
	Model       string
	Messages    []Message
	// Temperature is sent when set, including zero.
	Temperature *float64
	// MaxTokens caps the reply length. Zero means the provider default.
	MaxTokens int
}

// Float returns a pointer to v for optional request fields.
func Float(v float64) *float64 { return &v }

// splitSystem returns the joined system prompt and the remaining messages.
func (r Request) splitSystem() (string, []Message) {
	var system []string
	rest := make([]Message, 0, len(r.Messages))
	for _, msg := range r.Messages {
		if msg.Role == RoleSystem {
			if text := strings.TrimSpace(msg.Content); text != "" {
				system = append(system, msg.Content)
			}
			continue
		}
		rest = append(rest, msg)
	}
	return strings.Join(system, "\n\n"), rest
}

// Usage holds token counts for one reply.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add accumulates counts from u2. Providers may report usage in pieces.
func (u *Usage) Add(u2 Usage) {
	u.InputTokens += u2.InputTokens
	u.OutputTokens += u2.OutputTokens
}

type EventType string

const (
	EventTextDelta EventType = "text-delta"
	EventUsage     EventType = "usage"
	EventDone      EventType = "done"
	EventError     EventType = "error"
)

// Event is a single item from a Stream.
type Event struct {
	Type EventType
	Text string
	Use  *Usage
	Err  error
}

// Stream yields events until Recv returns io.EOF.
type Stream interface {
	Recv() (Event, error)
	Close() error
}

// Provider streams chat completions from one backend.
type Provider interface {
	Name() string
	Stream(ctx context.Context, req Request) (Stream, error)
}
