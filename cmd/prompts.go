package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/elia-chat/elia/internal/chats"
	"github.com/elia-chat/elia/internal/ui"
	"github.com/spf13/cobra"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "List saved system prompts",
	Long: `List saved system prompts.

A saved prompt is used in a chat with "/system @title".

Examples:
  elia prompts
  elia prompts add reviewer "You review Go code. Be terse."
  cat prompt.md | elia prompts add writer`,
	Args: cobra.NoArgs,
	RunE: runPromptsList,
}

var promptsAddCmd = &cobra.Command{
	Use:   "add TITLE [PROMPT...]",
	Short: "Save a system prompt",
	Long:  "Save a system prompt under TITLE. The prompt is read from stdin when it is not given.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPromptsAdd,
}

func init() {
	promptsCmd.AddCommand(promptsAddCmd)
	rootCmd.AddCommand(promptsCmd)
}

func runPromptsList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	prompts, err := store.SystemPrompts(cmd.Context())
	if err != nil {
		return err
	}
	writePrompts(cmd.OutOrStdout(), prompts)
	return nil
}

func writePrompts(w io.Writer, prompts []chats.SystemPrompt) {
	if len(prompts) == 0 {
		fmt.Fprintln(w, "No saved prompts. Add one with: elia prompts add TITLE PROMPT")
		return
	}
	for _, p := range prompts {
		first, _, _ := strings.Cut(strings.TrimSpace(p.Prompt), "\n")
		fmt.Fprintf(w, "@%s  %s\n", ui.PadRight(p.Title, 16), ui.Truncate(first, 60))
	}
}

func runPromptsAdd(cmd *cobra.Command, args []string) error {
	title := strings.TrimSpace(args[0])
	if title == "" || strings.ContainsAny(title, " \t") {
		return fmt.Errorf("title %q must be a single word", args[0])
	}
	prompt := strings.TrimSpace(strings.Join(args[1:], " "))
	if prompt == "" && !isTerminal(os.Stdin) {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		prompt = strings.TrimSpace(string(data))
	}
	if prompt == "" {
		return fmt.Errorf("prompt must not be empty")
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	p := &chats.SystemPrompt{Title: title, Prompt: prompt}
	if err := store.SaveSystemPrompt(cmd.Context(), p); err != nil {
		return fmt.Errorf("failed to save prompt: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved prompt @%s\n", title)
	return nil
}
