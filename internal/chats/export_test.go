package chats

import (
	"strings"
	"testing"
	"time"

	"github.com/elia-chat/elia/internal/llm"
)

func TestExportMarkdown(t *testing.T) {
	chat := &Chat{
		ID:        7,
		Title:     "Rust | lifetimes",
		Model:     "elia-gpt-4o",
		StartedAt: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
	}
	messages := []Message{
		{Role: llm.RoleSystem, Content: "You are helpful."},
		{Role: llm.RoleUser, Content: "What is a lifetime?"},
		{Role: llm.RoleAssistant, Content: "A scope for references.\n", Meta: Meta{InputTokens: 1200, OutputTokens: 34}},
		{Role: llm.RoleAssistant, Content: "Switched model reply", Model: "claude-3-5-haiku-20241022"},
	}

	out := ExportMarkdown(chat, messages, ExportOptions{ModelLabel: "GPT-4o"})

	for _, want := range []string{
		"# Rust | lifetimes",
		"| **Model** | GPT-4o |",
		"| **Started** | 2024-01-15 10:30 UTC |",
		"| **Tokens** | 1,200 in / 34 out |",
		"### User\n\nWhat is a lifetime?",
		"### Assistant\n\nA scope for references.\n\n---",
		"### Assistant (claude-3-5-haiku-20241022)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("export missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "You are helpful.") {
		t.Error("system prompt exported without IncludeSystem")
	}

	out = ExportMarkdown(chat, messages, ExportOptions{IncludeSystem: true})
	if !strings.Contains(out, "### System\n\nYou are helpful.") {
		t.Error("expected system prompt with IncludeSystem")
	}
	if !strings.Contains(out, "| **Model** | elia-gpt-4o |") {
		t.Error("expected raw model key without label")
	}
}

func TestExportMarkdownUntitled(t *testing.T) {
	out := ExportMarkdown(&Chat{ID: 3}, nil, ExportOptions{})
	if !strings.HasPrefix(out, "# Chat 3\n") {
		t.Fatalf("unexpected heading: %q", out)
	}
	if strings.Contains(out, "Tokens") || strings.Contains(out, "Started") {
		t.Fatalf("empty chat should omit tokens/started: %q", out)
	}
}

func TestChatSummaryDisplayTitle(t *testing.T) {
	s := ChatSummary{FirstUserMessage: "How do I reverse a linked list in Go without allocating new nodes?"}
	if got := s.DisplayTitle(); got != llm.FallbackTitle(s.FirstUserMessage) {
		t.Fatalf("DisplayTitle=%q", got)
	}
	if got := (ChatSummary{}).DisplayTitle(); got != "Untitled chat" {
		t.Fatalf("DisplayTitle=%q", got)
	}
}
