// Package logging configures the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/elia-chat/elia/internal/config"
	"github.com/lmittmann/tint"
)

// Options controls where logs go.
type Options struct {
	// Debug lowers the level from info to debug.
	Debug bool
	// Path defaults to DataDir()/elia.log.
	Path string
}

// Setup installs the default logger, writing to a file since the terminal
// belongs to the UI. The returned closer flushes the log file.
func Setup(opts Options) (*slog.Logger, io.Closer, error) {
	path := opts.Path
	if path == "" {
		dir, err := config.DataDir()
		if err != nil {
			return nil, nil, err
		}
		path = filepath.Join(dir, "elia.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	logger := New(f, level)
	slog.SetDefault(logger)
	logger.Debug("logging started", "path", path, "pid", os.Getpid())
	return logger, f, nil
}

// New returns a tint logger writing to w without colour codes.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.DateTime,
		NoColor:    true,
	}))
}
