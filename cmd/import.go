package cmd

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/elia-chat/elia/internal/importer"
	"github.com/elia-chat/elia/internal/signal"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a ChatGPT conversations.json export",
	Long: `Import chats from a ChatGPT data export.

Download your data from ChatGPT, unzip it and pass the path of
conversations.json. Each conversation becomes a chat; only the branch that
was last shown in ChatGPT is imported.

Examples:
  elia import ~/Downloads/chatgpt-export/conversations.json`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext()
	defer stop()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open export: %w", err)
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Reading %s (%s)\n", args[0], humanize.Bytes(uint64(info.Size())))
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	progress := isTerminal(os.Stderr)
	result, err := importer.ImportChatGPT(ctx, store, f, importer.Options{
		Logger: logger,
		OnProgress: func(p importer.Progress) {
			if progress {
				fmt.Fprintf(cmd.ErrOrStderr(), "\rImporting %d/%d", p.Current, p.Total)
			}
		},
	})
	if progress {
		fmt.Fprintln(cmd.ErrOrStderr())
	}
	if err != nil {
		return fmt.Errorf("import failed after %d chats: %w", result.Chats, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %s chats (%s messages)",
		humanize.Comma(int64(result.Chats)), humanize.Comma(int64(result.Messages)))
	if result.Skipped > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), ", skipped %d empty", result.Skipped)
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}
