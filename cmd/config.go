package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/elia-chat/elia/internal/config"
	"github.com/spf13/cobra"
)

var configJSON bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration paths and the effective config",
	Long: `Print where elia reads its configuration and stores its data, followed
by the launch configuration after the config file, ELIA_ environment
variables and command line flags have been applied. API keys are masked.`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func init() {
	configCmd.Flags().BoolVar(&configJSON, "json", false, "Only print the effective config as JSON")
	rootCmd.AddCommand(configCmd)
}

type configPaths struct {
	ConfigFile string `json:"config_file"`
	DataDir    string `json:"data_dir"`
	Database   string `json:"database"`
	Themes     string `json:"themes"`
}

func resolvePaths() (configPaths, error) {
	var p configPaths
	var err error
	if flagConfig != "" {
		p.ConfigFile = flagConfig
	} else if p.ConfigFile, err = config.ConfigFilePath(); err != nil {
		return p, err
	}
	if p.DataDir, err = config.DataDir(); err != nil {
		return p, err
	}
	if p.Database, err = config.DatabasePath(); err != nil {
		return p, err
	}
	if p.Themes, err = config.ThemeDir(); err != nil {
		return p, err
	}
	return p, nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	paths, err := resolvePaths()
	if err != nil {
		return err
	}
	return writeConfig(cmd.OutOrStdout(), paths, cfg, configJSON)
}

func writeConfig(w io.Writer, paths configPaths, cfg *config.LaunchConfig, jsonOnly bool) error {
	if !jsonOnly {
		fmt.Fprintf(w, "Config file: %s\n", paths.ConfigFile)
		fmt.Fprintf(w, "Data dir:    %s\n", paths.DataDir)
		fmt.Fprintf(w, "Database:    %s\n", paths.Database)
		fmt.Fprintf(w, "Themes:      %s\n\n", paths.Themes)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(cfg)
}
