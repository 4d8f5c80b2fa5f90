package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetupDebugWritesFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "logs", "elia.log")
	logger, closer, err := Setup(Options{Debug: true, Path: path})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	logger.Info("stream started", "model", "gpt-4.1")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	for _, want := range []string{"logging started", "stream started", "model=gpt-4.1"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("log file should not contain colour codes:\n%s", out)
	}
}

func TestSetupWithoutDebugLogsInfo(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "elia.log")
	logger, closer, err := Setup(Options{Path: path})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	logger.Debug("retrying", "attempt", 2)
	logger.Info("chat created", "chat_id", 7)
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "chat created") || !strings.Contains(out, "chat_id=7") {
		t.Errorf("info record missing:\n%s", out)
	}
	if strings.Contains(out, "retrying") || strings.Contains(out, "logging started") {
		t.Errorf("debug records should be dropped:\n%s", out)
	}
}

func TestSetupDefaultPath(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)
	_, closer, err := Setup(Options{})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	closer.Close()
	if _, err := os.Stat(filepath.Join(dir, "elia", "elia.log")); err != nil {
		t.Fatalf("log file not created: %v", err)
	}
}
