package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/elia-chat/elia/internal/config"
	"github.com/elia-chat/elia/internal/llm"
	"github.com/elia-chat/elia/internal/ui"
	"github.com/gobwas/glob"
	"github.com/spf13/cobra"
)

var (
	modelsFilter string
	modelsJSON   bool
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List available models",
	Long: `List the models from the config file followed by the builtin ones.

Examples:
  elia models
  elia models --filter 'elia-claude-*'
  elia models --filter '*mini*' --json`,
	Args: cobra.NoArgs,
	RunE: runModels,
}

func init() {
	modelsCmd.Flags().StringVarP(&modelsFilter, "filter", "f", "", "Only list models whose id or name matches this glob")
	modelsCmd.Flags().BoolVar(&modelsJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	models, err := filterModels(cfg.AllModels(), modelsFilter)
	if err != nil {
		return err
	}
	return writeModels(cmd.OutOrStdout(), cfg, models, modelsJSON)
}

// filterModels keeps the models whose lookup key or name matches pattern.
// Matching ignores case.
func filterModels(models []config.ChatModel, pattern string) ([]config.ChatModel, error) {
	if pattern == "" {
		return models, nil
	}
	g, err := glob.Compile(strings.ToLower(pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", pattern, err)
	}
	var out []config.ChatModel
	for _, m := range models {
		if g.Match(strings.ToLower(m.LookupKey())) || g.Match(strings.ToLower(m.Name)) {
			out = append(out, m)
		}
	}
	return out, nil
}

type modelEntry struct {
	config.ChatModel
	ResolvedProvider string `json:"resolved_provider,omitempty"`
	Default          bool   `json:"default,omitempty"`
}

func writeModels(w io.Writer, cfg *config.LaunchConfig, models []config.ChatModel, asJSON bool) error {
	entries := make([]modelEntry, 0, len(models))
	for _, m := range models {
		provider, _ := llm.ProviderFor(m)
		entries = append(entries, modelEntry{
			ChatModel:        m,
			ResolvedProvider: provider,
			Default:          m.LookupKey() == cfg.DefaultModel,
		})
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "No models match.")
		return nil
	}
	for _, e := range entries {
		marker := " "
		if e.Default {
			marker = "*"
		}
		provider := e.ResolvedProvider
		if provider == "" {
			provider = "?"
		}
		fmt.Fprintf(w, "%s %s %s %s\n", marker, ui.PadRight(e.LookupKey(), 36), ui.PadRight(provider, 10), e.Label())
		if e.Description != "" {
			fmt.Fprintf(w, "    %s\n", e.Description)
		}
	}
	return nil
}

// modelFlagCompletion completes model lookup keys for --model flags.
func modelFlagCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg, err := loadConfig()
	if err != nil {
		cfg = config.Default()
	}
	var out []string
	for _, m := range cfg.AllModels() {
		if strings.HasPrefix(m.LookupKey(), toComplete) {
			out = append(out, m.LookupKey()+"\t"+m.Label())
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
