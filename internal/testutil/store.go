// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/elia-chat/elia/internal/chats"
	"github.com/elia-chat/elia/internal/llm"
)

// NewStore opens a chat database in a temporary directory. It is closed
// when the test ends.
func NewStore(t *testing.T) *chats.SQLiteStore {
	t.Helper()
	store, err := chats.Open(chats.Config{Path: filepath.Join(t.TempDir(), "elia.sqlite")})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// SeedChat stores a chat with a system prompt followed by alternating user
// and assistant turns, and returns its id.
func SeedChat(t *testing.T, store chats.Store, model, title string, started time.Time, turns ...string) int64 {
	t.Helper()
	msgs := []*chats.Message{{Role: llm.RoleSystem, Content: "You are a helpful assistant.", Timestamp: started}}
	for i, text := range turns {
		msg := &chats.Message{Role: llm.RoleUser, Content: text, Timestamp: started.Add(time.Duration(i+1) * time.Second)}
		if i%2 == 1 {
			msg.Role = llm.RoleAssistant
			msg.Model = model
		}
		msgs = append(msgs, msg)
	}
	chat := &chats.Chat{Model: model, Title: title, StartedAt: started}
	if err := store.CreateChat(context.Background(), chat, msgs); err != nil {
		t.Fatalf("seed chat: %v", err)
	}
	return chat.ID
}
