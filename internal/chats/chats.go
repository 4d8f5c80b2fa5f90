// Package chats persists chats and their messages in SQLite.
package chats

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/elia-chat/elia/internal/llm"
)

// ErrChatNotFound is returned when an operation targets a missing chat.
var ErrChatNotFound = errors.New("chat not found")

// Chat is a conversation with one model.
type Chat struct {
	ID        int64
	Model     string
	Title     string
	StartedAt time.Time
	Archived  bool
}

// Meta is per-message metadata stored as a JSON object.
type Meta struct {
	InputTokens  int   `json:"input_tokens,omitempty"`
	OutputTokens int   `json:"output_tokens,omitempty"`
	DurationMs   int64 `json:"duration_ms,omitempty"`
	// Cancelled marks a reply that was stopped before it finished.
	Cancelled bool `json:"cancelled,omitempty"`
	// Source records where an imported message came from, e.g. "chatgpt".
	Source string `json:"source,omitempty"`
}

func (m Meta) encode() (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeMeta(raw string) Meta {
	var m Meta
	if raw == "" {
		return m
	}
	// Unknown keys from older databases are ignored.
	_ = json.Unmarshal([]byte(raw), &m)
	return m
}

// Message is one turn in a chat.
type Message struct {
	ID        int64
	ChatID    int64
	Role      llm.Role
	Content   string
	Timestamp time.Time
	Model     string
	Meta      Meta
	// ParentID is the previous message in the chat, zero for the first.
	ParentID int64
}

// ChatSummary is a chat plus list information.
type ChatSummary struct {
	Chat
	MessageCount  int
	LastMessageAt time.Time
	// FirstUserMessage is used when the chat has no title yet.
	FirstUserMessage string
}

// LastActivity is the latest message time, or the start time.
func (s ChatSummary) LastActivity() time.Time {
	if !s.LastMessageAt.IsZero() {
		return s.LastMessageAt
	}
	return s.StartedAt
}

// DisplayTitle returns the title, falling back to the first user message.
func (s ChatSummary) DisplayTitle() string {
	if s.Title != "" {
		return s.Title
	}
	if s.FirstUserMessage != "" {
		return llm.FallbackTitle(s.FirstUserMessage)
	}
	return "Untitled chat"
}

// ListOptions filters ListChats.
type ListOptions struct {
	// IncludeArchived lists archived chats along with the rest.
	IncludeArchived bool
	// OnlyArchived lists archived chats only.
	OnlyArchived bool
	Limit        int
	Offset       int
}

// SearchResult is a message matching a full text query.
type SearchResult struct {
	ChatID    int64
	MessageID int64
	Title     string
	Role      llm.Role
	Snippet   string
	Timestamp time.Time
}

// SystemPrompt is a saved, reusable system prompt.
type SystemPrompt struct {
	ID     int64
	Title  string
	Prompt string
}

// Store is the persistence interface used by the UI and commands.
type Store interface {
	CreateChat(ctx context.Context, chat *Chat, messages []*Message) error
	GetChat(ctx context.Context, id int64) (*Chat, error)
	ListChats(ctx context.Context, opts ListOptions) ([]ChatSummary, error)
	AddMessage(ctx context.Context, chatID int64, msg *Message) error
	Messages(ctx context.Context, chatID int64) ([]Message, error)
	RenameChat(ctx context.Context, id int64, title string) error
	ArchiveChat(ctx context.Context, id int64, archived bool) error
	DeleteChat(ctx context.Context, id int64) error
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
	SaveSystemPrompt(ctx context.Context, p *SystemPrompt) error
	SystemPrompts(ctx context.Context) ([]SystemPrompt, error)
	Close() error
}
