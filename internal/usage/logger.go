// Package usage records token usage of completed replies.
package usage

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/elia-chat/elia/internal/config"
)

// LogEntry is a single line of the usage log.
type LogEntry struct {
	Timestamp    time.Time `json:"timestamp"`
	ChatID       int64     `json:"chat_id,omitempty"`
	Model        string    `json:"model"`
	Provider     string    `json:"provider"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	DurationMs   int64     `json:"duration_ms,omitempty"`
	Cancelled    bool      `json:"cancelled,omitempty"`
}

// Recorder accepts usage entries.
type Recorder interface {
	Log(entry LogEntry) error
}

// Logger writes usage entries to daily JSONL files
type Logger struct {
	baseDir string
	mu      sync.Mutex
}

// NewLogger writes under dir. An empty dir means DataDir()/usage.
func NewLogger(dir string) (*Logger, error) {
	if dir == "" {
		data, err := config.DataDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(data, "usage")
	}
	return &Logger{baseDir: dir}, nil
}

// Dir returns the directory holding the log files.
func (l *Logger) Dir() string { return l.baseDir }

// Log appends entry to the file for its UTC date.
func (l *Logger) Log(entry LogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	entry.Timestamp = entry.Timestamp.UTC()

	if err := os.MkdirAll(l.baseDir, 0o755); err != nil {
		return err
	}

	filename := filepath.Join(l.baseDir, entry.Timestamp.Format("2006-01-02")+".jsonl")
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	if _, err := w.Write(data); err != nil {
		return err
	}
	if err := w.WriteByte('\n'); err != nil {
		return err
	}
	return w.Flush()
}

// Discard drops every entry.
type Discard struct{}

func (Discard) Log(LogEntry) error { return nil }
