package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/elia-chat/elia/internal/chats"
	"github.com/elia-chat/elia/internal/config"
	"github.com/elia-chat/elia/internal/exitcode"
	"github.com/elia-chat/elia/internal/ui"
	"github.com/spf13/cobra"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all chats (requires confirmation)",
	Long: `Delete the chat database entirely. This cannot be undone.

You are asked to confirm unless --yes is given.`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Do not ask for confirmation")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	path, err := config.DatabasePath()
	if err != nil {
		return fmt.Errorf("failed to get database path: %w", err)
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(cmd.OutOrStdout(), "No chat database found.")
		return nil
	}

	if !resetYes {
		if !isTerminal(os.Stdin) {
			return exitcode.Declined("refusing to delete chats without a terminal; pass --yes")
		}
		ok, err := ui.ConfirmPrompt("Delete ALL chats?", "This removes "+path+" and cannot be undone.")
		if err != nil && !errors.Is(err, ui.ErrAborted) {
			return err
		}
		if !ok {
			return exitcode.Declined("reset aborted")
		}
	}

	if err := chats.Reset(path); err != nil {
		return fmt.Errorf("failed to delete database: %w", err)
	}
	logger.Info("database reset", "path", path)
	fmt.Fprintln(cmd.OutOrStdout(), ui.DefaultStyles().FormatResult(true, "Chat database deleted."))
	return nil
}
