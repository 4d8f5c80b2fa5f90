package home

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/elia-chat/elia/internal/chats"
	"github.com/elia-chat/elia/internal/ui"
)

type fakeStore struct {
	chats    []chats.ChatSummary
	lastOpts chats.ListOptions
	archived map[int64]bool
	deleted  []int64
}

func (s *fakeStore) ListChats(ctx context.Context, opts chats.ListOptions) ([]chats.ChatSummary, error) {
	s.lastOpts = opts
	var out []chats.ChatSummary
	for _, c := range s.chats {
		if c.Archived == opts.OnlyArchived {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *fakeStore) ArchiveChat(ctx context.Context, id int64, archived bool) error {
	if s.archived == nil {
		s.archived = make(map[int64]bool)
	}
	s.archived[id] = archived
	for i := range s.chats {
		if s.chats[i].ID == id {
			s.chats[i].Archived = archived
		}
	}
	return nil
}

func (s *fakeStore) DeleteChat(ctx context.Context, id int64) error {
	s.deleted = append(s.deleted, id)
	kept := s.chats[:0]
	for _, c := range s.chats {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	s.chats = kept
	return nil
}

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestModel(t *testing.T) (*Model, *fakeStore) {
	t.Helper()
	store := &fakeStore{chats: []chats.ChatSummary{
		{Chat: chats.Chat{ID: 3, Title: "Rust lifetimes", Model: "elia-gpt-4o", StartedAt: testNow.Add(-time.Hour)}},
		{Chat: chats.Chat{ID: 2, Model: "elia-claude-3-5-haiku-20241022", StartedAt: testNow.Add(-48 * time.Hour)}, FirstUserMessage: "How do I bake bread?"},
		{Chat: chats.Chat{ID: 1, Title: "Old thing", Model: "custom", Archived: true, StartedAt: testNow.Add(-72 * time.Hour)}},
	}}
	m := New(context.Background(), Options{
		Store:  store,
		Styles: ui.DefaultStyles(),
		Now:    func() time.Time { return testNow },
	})
	drain(t, m, m.Init())
	return m, store
}

// drain runs cmd and feeds resulting messages back until none remain.
func drain(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	for i := 0; cmd != nil && i < 10; i++ {
		msg := cmd()
		if _, ok := msg.(tea.QuitMsg); ok {
			return
		}
		_, cmd = m.Update(msg)
	}
}

func press(t *testing.T, m *Model, keys ...string) {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		_, cmd := m.Update(msg)
		drain(t, m, cmd)
	}
}

func TestViewListsChats(t *testing.T) {
	m, _ := newTestModel(t)
	view := ui.StripANSI(m.View())

	for _, want := range []string{"Rust lifetimes", "GPT-4o", "1 hour ago", "How do I bake bread?", "Claude 3.5 Haiku", "2 days ago"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	if strings.Contains(view, "Old thing") {
		t.Error("archived chat should be hidden by default")
	}
}

func TestOpenSelectedChat(t *testing.T) {
	m, _ := newTestModel(t)
	press(t, m, "j", "enter")

	if got := m.Action(); got != (Action{Kind: ActionOpen, ChatID: 2}) {
		t.Fatalf("Action()=%+v", got)
	}
}

func TestNewChatAndQuit(t *testing.T) {
	m, _ := newTestModel(t)
	press(t, m, "n")
	if m.Action().Kind != ActionNew {
		t.Fatalf("Action()=%+v, want new", m.Action())
	}

	m, _ = newTestModel(t)
	press(t, m, "q")
	if m.Action().Kind != ActionQuit {
		t.Fatalf("Action()=%+v, want quit", m.Action())
	}
}

func TestDeleteNeedsSecondPress(t *testing.T) {
	m, store := newTestModel(t)

	press(t, m, "d")
	if len(store.deleted) != 0 {
		t.Fatal("first press should only ask for confirmation")
	}
	if !strings.Contains(ui.StripANSI(m.View()), "Press d again") {
		t.Fatal("expected confirmation hint")
	}

	// Moving away cancels the pending delete.
	press(t, m, "j", "d")
	if len(store.deleted) != 0 {
		t.Fatal("delete should not carry over to another chat")
	}

	press(t, m, "d")
	if len(store.deleted) != 1 || store.deleted[0] != 2 {
		t.Fatalf("deleted=%v, want [2]", store.deleted)
	}
	if len(m.chats) != 1 {
		t.Fatalf("expected list reload after delete, got %d chats", len(m.chats))
	}
}

func TestArchiveAndToggleArchived(t *testing.T) {
	m, store := newTestModel(t)

	press(t, m, "a")
	if !store.archived[3] {
		t.Fatal("expected chat 3 to be archived")
	}
	if len(m.chats) != 1 {
		t.Fatalf("archived chat should leave the list, got %d", len(m.chats))
	}

	press(t, m, "tab")
	if !store.lastOpts.OnlyArchived {
		t.Fatal("tab should list archived chats")
	}
	view := ui.StripANSI(m.View())
	if !strings.Contains(view, "Old thing") || !strings.Contains(view, "archived") {
		t.Fatalf("archived view wrong:\n%s", view)
	}

	// Unarchive from the archived list.
	press(t, m, "a")
	if store.archived[3] {
		t.Fatal("expected chat 3 to be unarchived")
	}
	if len(m.chats) != 1 || m.chats[0].ID != 1 {
		t.Fatalf("unexpected archived list %+v", m.chats)
	}
}

func TestFuzzyFilter(t *testing.T) {
	m, _ := newTestModel(t)

	press(t, m, "/", "b", "r", "e", "d")
	if len(m.visible) != 1 || m.selected().ID != 2 {
		t.Fatalf("filter should keep the bread chat, visible=%v", m.visible)
	}

	press(t, m, "enter")
	if m.filtering {
		t.Fatal("enter should leave filter mode")
	}
	press(t, m, "enter")
	if m.Action().ChatID != 2 {
		t.Fatalf("Action()=%+v, want filtered chat", m.Action())
	}
}

func TestFilterEscClears(t *testing.T) {
	m, _ := newTestModel(t)
	press(t, m, "/", "z", "z", "z")
	if len(m.visible) != 0 {
		t.Fatalf("expected no matches, got %v", m.visible)
	}
	if !strings.Contains(ui.StripANSI(m.View()), "No chats match") {
		t.Fatal("expected empty filter message")
	}
	press(t, m, "esc")
	if len(m.visible) != 2 || m.filtering {
		t.Fatalf("esc should clear the filter, visible=%v", m.visible)
	}
}
