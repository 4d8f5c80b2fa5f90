package cmd

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/elia-chat/elia/internal/chats"
	"github.com/elia-chat/elia/internal/config"
	"github.com/elia-chat/elia/internal/llm"
	"github.com/elia-chat/elia/internal/theme"
	"github.com/elia-chat/elia/internal/tui/chat"
	"github.com/elia-chat/elia/internal/ui"
	"github.com/elia-chat/elia/internal/usage"
	"golang.org/x/term"
)

func loadConfig() (*config.LaunchConfig, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.ApplyOverrides(flagModel, flagTheme)
	return cfg, nil
}

func loadThemes() (*theme.Registry, error) {
	dir, err := config.ThemeDir()
	if err != nil {
		return nil, err
	}
	registry, err := theme.LoadRegistry(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load themes: %w", err)
	}
	return registry, nil
}

// loadStyles resolves the configured theme. An unknown theme falls back to
// the default one with a warning rather than refusing to start.
func loadStyles(cfg *config.LaunchConfig) (*ui.Styles, error) {
	registry, err := loadThemes()
	if err != nil {
		return nil, err
	}
	t, err := registry.Get(cfg.Theme)
	if err != nil {
		logger.Warn("unknown theme, using default", "theme", cfg.Theme, "error", err)
		if t, err = registry.Get(theme.DefaultName); err != nil {
			return nil, err
		}
	}
	return ui.NewStyles(os.Stdout, t.Palette()), nil
}

func openStore() (*chats.SQLiteStore, error) {
	path, err := config.DatabasePath()
	if err != nil {
		return nil, err
	}
	store, err := chats.Open(chats.Config{Path: path, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("failed to open chat database: %w", err)
	}
	return store, nil
}

func newEngine(ctx context.Context, model config.ChatModel) (*llm.Engine, error) {
	provider, err := llm.NewProvider(ctx, model)
	if err != nil {
		return nil, err
	}
	return llm.NewEngine(provider,
		llm.WithMaxRetries(model.MaxRetries),
		llm.WithLogger(logger),
	), nil
}

// app bundles what every interactive command needs.
type app struct {
	cfg    *config.LaunchConfig
	styles *ui.Styles
	store  *chats.SQLiteStore
	usage  usage.Recorder
}

func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	styles, err := loadStyles(cfg)
	if err != nil {
		return nil, err
	}
	store, err := openStore()
	if err != nil {
		return nil, err
	}

	var recorder usage.Recorder = usage.Discard{}
	if l, err := usage.NewLogger(""); err != nil {
		logger.Warn("usage log disabled", "error", err)
	} else {
		recorder = l
	}

	return &app{cfg: cfg, styles: styles, store: store, usage: recorder}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		logger.Warn("closing database failed", "error", err)
	}
}

func (a *app) defaultModel() (config.ChatModel, error) {
	model, err := a.cfg.DefaultModelConfig()
	if err != nil {
		return config.ChatModel{}, fmt.Errorf("default model %q: %w", a.cfg.DefaultModel, err)
	}
	return model, nil
}

type chatRun struct {
	model    config.ChatModel
	chatID   int64
	prompt   string
	inline   bool
	fromHome bool
	// ttyInput reads keys from the terminal when stdin is a pipe.
	ttyInput bool
}

func (a *app) runChat(ctx context.Context, run chatRun) (chat.Exit, error) {
	screen, err := chat.New(ctx, chat.Options{
		Config:        a.cfg,
		Store:         a.store,
		Model:         run.model,
		NewEngine:     newEngine,
		ChatID:        run.chatID,
		InitialPrompt: run.prompt,
		Inline:        run.inline,
		FromHome:      run.fromHome,
		Styles:        a.styles,
		Usage:         a.usage,
		Logger:        logger,
	})
	if err != nil {
		return chat.ExitQuit, err
	}

	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if !run.inline {
		opts = append(opts, tea.WithAltScreen())
	}
	if run.ttyInput {
		opts = append(opts, tea.WithInputTTY())
	}
	if _, err := tea.NewProgram(screen, opts...).Run(); err != nil {
		return chat.ExitQuit, programError("chat", err)
	}
	return screen.Exit(), nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// terminalWidth returns the width of stdout, or fallback when it is not a
// terminal.
func terminalWidth(fallback int) int {
	if !isTerminal(os.Stdout) {
		return fallback
	}
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return fallback
	}
	return w
}
