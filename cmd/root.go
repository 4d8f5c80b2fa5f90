package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/elia-chat/elia/internal/exitcode"
	"github.com/elia-chat/elia/internal/logging"
	"github.com/elia-chat/elia/internal/pprof"
	"github.com/elia-chat/elia/internal/signal"
	"github.com/elia-chat/elia/internal/tui/chat"
	"github.com/elia-chat/elia/internal/tui/home"
	"github.com/elia-chat/elia/internal/ui"
	"github.com/spf13/cobra"
)

var (
	flagDebug  bool
	flagConfig string
	flagTheme  string
	flagModel  string
	flagPprof  int

	logger      = slog.New(slog.DiscardHandler)
	logCloser   io.Closer
	pprofServer *pprof.Server
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Log at debug level to the data directory")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to an alternate config file")
	rootCmd.PersistentFlags().StringVar(&flagTheme, "theme", "", "Theme to use")
	rootCmd.PersistentFlags().StringVarP(&flagModel, "model", "m", "", "Model for new chats (id or name)")
	rootCmd.PersistentFlags().IntVar(&flagPprof, "pprof", -1, "Serve pprof on this localhost port (0 picks one)")
	rootCmd.PersistentFlags().MarkHidden("pprof")
	if err := rootCmd.RegisterFlagCompletionFunc("model", modelFlagCompletion); err != nil {
		panic(fmt.Sprintf("failed to register model completion: %v", err))
	}
	if err := rootCmd.RegisterFlagCompletionFunc("theme", themeFlagCompletion); err != nil {
		panic(fmt.Sprintf("failed to register theme completion: %v", err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "elia",
	Short: "A keyboard-centric terminal chat client for LLMs",
	Long: `elia is a terminal chat client for large language models.
Chats are stored locally in SQLite.

Examples:
  elia                                  # browse chats
  elia chat "explain goroutines"        # start a new chat
  elia chat -m elia-claude-3-5-haiku-20241022 -i
  git diff | elia chat -p "review this" # print the reply and exit
  elia chats search "kubernetes"
  elia import ~/Downloads/conversations.json`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := startLogging(); err != nil {
			return err
		}
		return startPprof(cmd.ErrOrStderr())
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		stopPprof()
		return stopLogging()
	},
	RunE: runHome,
}

func startLogging() error {
	debug := flagDebug || ui.EnvBool("ELIA_DEBUG", false)
	l, closer, err := logging.Setup(logging.Options{Debug: debug})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	logger = l
	logCloser = closer
	return nil
}

func startPprof(w io.Writer) error {
	if flagPprof < 0 {
		return nil
	}
	srv := pprof.NewServer(logger)
	port, err := srv.Start(flagPprof)
	if err != nil {
		return fmt.Errorf("failed to start pprof server: %w", err)
	}
	pprofServer = srv
	pprof.PrintUsage(w, port)
	return nil
}

func stopPprof() {
	if pprofServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := pprofServer.Stop(ctx); err != nil {
		logger.Warn("pprof shutdown failed", "error", err)
	}
	pprofServer = nil
}

func stopLogging() error {
	if logCloser == nil {
		return nil
	}
	err := logCloser.Close()
	logCloser = nil
	return err
}

// Execute runs the root command and exits with the code carried by the
// error, if any.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	var exitErr exitcode.ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != exitcode.Cancelled {
		fmt.Fprintln(os.Stderr, ui.DefaultStyles().FormatResult(false, err.Error()))
	}
	stopPprof()
	stopLogging()
	os.Exit(exitcode.Code(err))
}

// runHome alternates between the chat list and the chat screen until the
// user quits. Each screen runs as its own program.
func runHome(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext()
	defer stop()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	for {
		screen := home.New(ctx, home.Options{
			Store:  a.store,
			Config: a.cfg,
			Styles: a.styles,
		})
		if _, err := tea.NewProgram(screen, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
			return programError("chat list", err)
		}

		action := screen.Action()
		logger.Debug("home action", "kind", action.Kind, "chat_id", action.ChatID)
		switch action.Kind {
		case home.ActionOpen, home.ActionNew:
			model, err := a.defaultModel()
			if err != nil {
				return err
			}
			exit, err := a.runChat(ctx, chatRun{
				model:    model,
				chatID:   action.ChatID,
				fromHome: true,
			})
			if err != nil {
				return err
			}
			if exit == chat.ExitQuit {
				return nil
			}
		default:
			return nil
		}
	}
}

func programError(screen string, err error) error {
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return exitcode.Cancel()
	}
	return fmt.Errorf("failed to run %s: %w", screen, err)
}
