package usage

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoggerWritesDailyFiles(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(dir)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	day1 := time.Date(2025, 3, 1, 23, 59, 0, 0, time.UTC)
	day2 := day1.Add(2 * time.Minute)
	entries := []LogEntry{
		{Timestamp: day1, ChatID: 1, Model: "gpt-4.1", Provider: "openai", InputTokens: 10, OutputTokens: 20},
		{Timestamp: day1, ChatID: 1, Model: "gpt-4.1", Provider: "openai", InputTokens: 5, OutputTokens: 6, Cancelled: true},
		{Timestamp: day2, ChatID: 2, Model: "claude", Provider: "anthropic", InputTokens: 1, OutputTokens: 2},
	}
	for _, e := range entries {
		if err := l.Log(e); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	got := readEntries(t, filepath.Join(dir, "2025-03-01.jsonl"))
	if diff := cmp.Diff(entries[:2], got); diff != "" {
		t.Fatalf("day 1 entries (-want +got):\n%s", diff)
	}
	got = readEntries(t, filepath.Join(dir, "2025-03-02.jsonl"))
	if diff := cmp.Diff(entries[2:], got); diff != "" {
		t.Fatalf("day 2 entries (-want +got):\n%s", diff)
	}
}

func TestNewLoggerDefaultsToDataDir(t *testing.T) {
	data := t.TempDir()
	t.Setenv("XDG_DATA_HOME", data)

	l, err := NewLogger("")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if want := filepath.Join(data, "elia", "usage"); l.Dir() != want {
		t.Fatalf("Dir()=%q, want %q", l.Dir(), want)
	}
}

func readEntries(t *testing.T, path string) []LogEntry {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	var entries []LogEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e LogEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("decode %q: %v", scanner.Text(), err)
		}
		entries = append(entries, e)
	}
	return entries
}
