package chat

import (
	"context"
	"strings"
	"testing"

	"github.com/elia-chat/elia/internal/chats"
	"github.com/elia-chat/elia/internal/config"
	"github.com/google/go-cmp/cmp"
)

func TestFilterCommands(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"help", "clear", "model", "rename", "system", "export", "copy", "archive", "quit"}},
		{"/q", []string{"quit"}},
		{"exit", []string{"quit"}},
		{"ren", []string{"rename"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			var got []string
			for _, c := range FilterCommands(tt.query) {
				got = append(got, c.Name)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("FilterCommands(%q) mismatch (-want +got):\n%s", tt.query, diff)
			}
		})
	}
}

func TestResolveCommand(t *testing.T) {
	tests := []struct {
		name string
		want string
		ok   bool
	}{
		{"help", "help", true},
		{"?", "help", true},
		{"new", "clear", true},
		{"arch", "archive", true},
		{"sys", "system", true},
		{"nope", "", false},
	}
	for _, tt := range tests {
		cmd, _, ok := resolveCommand(tt.name)
		if ok != tt.ok || cmd.Name != tt.want {
			t.Errorf("resolveCommand(%q) = %q, %v; want %q, %v", tt.name, cmd.Name, ok, tt.want, tt.ok)
		}
	}
}

func TestFuzzyMatchModel(t *testing.T) {
	models := config.Default().AllModels()
	tests := []struct {
		query string
		want  string
		ok    bool
	}{
		{"4o", "elia-gpt-4o", true},
		{"haiku", "elia-claude-3-5-haiku-20241022", true},
		{"GPT-4.1", "elia-gpt-4.1", true},
		{"zzzz", "", false},
	}
	for _, tt := range tests {
		got, ok := fuzzyMatchModel(tt.query, models)
		if ok != tt.ok || got.LookupKey() != tt.want {
			t.Errorf("fuzzyMatchModel(%q) = %q, %v; want %q, %v", tt.query, got.LookupKey(), ok, tt.want, tt.ok)
		}
	}
}

func TestUnknownCommand(t *testing.T) {
	h := newHarness(t, nil)
	h.submit(t, "/frobnicate")
	if notice := h.lastNotice(t); !strings.Contains(notice, "Unknown command: /frobnicate") {
		t.Fatalf("notice = %q", notice)
	}
	if h.m.textarea.Value() != "" {
		t.Fatal("command input should be cleared")
	}
	if h.provider.RequestCount() != 0 {
		t.Fatal("commands must not be sent to the model")
	}
}

func TestHelpCommand(t *testing.T) {
	h := newHarness(t, nil)
	h.submit(t, "/?")
	notice := h.lastNotice(t)
	for _, want := range []string{"/rename <title>", "Ctrl+J", "aliases: q, exit"} {
		if !strings.Contains(notice, want) {
			t.Errorf("help missing %q", want)
		}
	}
}

func TestModelCommand(t *testing.T) {
	h := newHarness(t, nil)

	h.submit(t, "/model haiku")
	if h.m.model.LookupKey() != "elia-claude-3-5-haiku-20241022" {
		t.Fatalf("model = %q", h.m.model.LookupKey())
	}
	if !strings.Contains(h.lastNotice(t), "Claude 3.5 Haiku") {
		t.Fatalf("notice = %q", h.lastNotice(t))
	}

	h.submit(t, "/m elia-claude-3-5-haiku-20241022")
	if !strings.Contains(h.lastNotice(t), "Already using") {
		t.Fatalf("notice = %q", h.lastNotice(t))
	}

	h.submit(t, "/model nothing-like-this")
	if !strings.Contains(h.lastNotice(t), "Unknown model") {
		t.Fatalf("notice = %q", h.lastNotice(t))
	}

	h.submit(t, "/model")
	if !h.m.dialog.IsOpen() {
		t.Fatal("/model without an argument should open the picker")
	}
}

func TestRenameCommand(t *testing.T) {
	h := newHarness(t, nil)

	h.submit(t, "/rename Too early")
	if !strings.Contains(h.lastNotice(t), "Send a message") {
		t.Fatalf("notice = %q", h.lastNotice(t))
	}

	h.provider.AddTextResponse("Hi!").AddTextResponse("Greeting")
	h.submit(t, "Hello")
	h.submit(t, "/rename   Morning chat  ")

	chat, err := h.store.GetChat(context.Background(), h.m.ChatID())
	if err != nil {
		t.Fatalf("GetChat: %v", err)
	}
	if chat.Title != "Morning chat" || h.m.chat.Title != "Morning chat" {
		t.Fatalf("title = %q", chat.Title)
	}

	h.submit(t, "/rename")
	if !strings.Contains(h.lastNotice(t), "Usage") {
		t.Fatalf("notice = %q", h.lastNotice(t))
	}
}

func TestSystemCommand(t *testing.T) {
	h := newHarness(t, nil)

	h.submit(t, "/system")
	if !strings.Contains(h.lastNotice(t), "You are a test assistant.") {
		t.Fatalf("notice = %q", h.lastNotice(t))
	}

	h.submit(t, "/system Answer in French.")
	h.provider.AddTextResponse("Bonjour!").AddTextResponse("Salut")
	h.submit(t, "Hello")

	req := h.provider.Requests[0]
	if req.Messages[0].Content != "Answer in French." {
		t.Fatalf("system prompt sent = %q", req.Messages[0].Content)
	}

	h.submit(t, "/system Be brief.")
	if !strings.Contains(h.lastNotice(t), "next new chat") {
		t.Fatalf("notice = %q", h.lastNotice(t))
	}
}

func TestSystemCommandSavedPrompt(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.store.SaveSystemPrompt(context.Background(), &chats.SystemPrompt{Title: "Pirate", Prompt: "Talk like a pirate."}); err != nil {
		t.Fatalf("SaveSystemPrompt: %v", err)
	}

	h.submit(t, "/system")
	if !strings.Contains(h.lastNotice(t), "`@Pirate`") {
		t.Fatalf("saved prompts not listed: %q", h.lastNotice(t))
	}

	h.submit(t, "/system @ninja")
	if !strings.Contains(h.lastNotice(t), `No saved prompt named "ninja"`) {
		t.Fatalf("notice = %q", h.lastNotice(t))
	}

	h.submit(t, "/system @pirate")
	if h.m.activeSystemPrompt() != "Talk like a pirate." {
		t.Fatalf("system prompt = %q", h.m.activeSystemPrompt())
	}
}

func TestClearStartsNewChat(t *testing.T) {
	h := newHarness(t, nil)
	h.provider.AddTextResponse("Hi!").AddTextResponse("Greeting")
	h.submit(t, "Hello")
	first := h.m.ChatID()

	h.submit(t, "/clear")
	if h.m.ChatID() != 0 || len(h.m.messages) != 0 {
		t.Fatal("/clear should drop the current chat")
	}
	if len(h.m.items) != 1 || h.m.items[0].kind != itemNotice {
		t.Fatalf("items after clear = %+v", h.m.items)
	}

	h.provider.AddTextResponse("Hello again").AddTextResponse("Again")
	h.submit(t, "Hello")
	if h.m.ChatID() == first || h.m.ChatID() == 0 {
		t.Fatalf("expected a new chat, got %d (first %d)", h.m.ChatID(), first)
	}
}

func TestArchiveCommand(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.FromHome = true })

	h.submit(t, "/archive")
	if h.m.quitting {
		t.Fatal("nothing to archive without a chat")
	}

	h.provider.AddTextResponse("Hi!").AddTextResponse("Greeting")
	h.submit(t, "Hello")
	h.submit(t, "/archive")

	chat, _ := h.store.GetChat(context.Background(), h.m.ChatID())
	if !chat.Archived {
		t.Fatal("chat should be archived")
	}
	if !h.m.quitting || h.m.Exit() != ExitBack {
		t.Fatal("archiving should return to the chat list")
	}
}

func TestQuitCommand(t *testing.T) {
	h := newHarness(t, nil)
	h.submit(t, "/q")
	if !h.m.quitting || h.m.Exit() != ExitQuit {
		t.Fatal("/q should quit")
	}
}
