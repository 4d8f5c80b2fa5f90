package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/elia-chat/elia/internal/theme"
	"github.com/spf13/cobra"
)

var themesCmd = &cobra.Command{
	Use:   "themes",
	Short: "List available themes",
	Long: `List builtin themes and the themes found in the themes directory.

User themes are YAML files in $XDG_CONFIG_HOME/elia/themes. A user theme
with the name of a builtin theme replaces it.`,
	Args: cobra.NoArgs,
	RunE: runThemes,
}

func init() {
	rootCmd.AddCommand(themesCmd)
}

func runThemes(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	registry, err := loadThemes()
	if err != nil {
		return err
	}
	writeThemes(cmd.OutOrStdout(), registry, cfg.Theme)
	return nil
}

func writeThemes(w io.Writer, registry *theme.Registry, current string) {
	for _, name := range registry.Names() {
		marker := " "
		if name == current {
			marker = "*"
		}
		kind := "user"
		if registry.IsBuiltin(name) {
			kind = "builtin"
		}
		t, _ := registry.Get(name)
		mode := "dark"
		if !t.IsDark() {
			mode = "light"
		}
		fmt.Fprintf(w, "%s %-20s %-8s %-6s %s\n", marker, name, kind, mode, strings.ToLower(t.Primary))
	}
}

func themeFlagCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	registry, err := loadThemes()
	if err != nil {
		registry = theme.NewRegistry(nil)
	}
	var out []string
	for _, name := range registry.Names() {
		if strings.HasPrefix(name, toComplete) {
			out = append(out, name)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
