package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	DefaultModelKey         = "elia-gpt-4.1"
	DefaultSystemPrompt     = "You are a helpful assistant named Elia."
	DefaultMessageCodeTheme = "monokai"
	DefaultTheme            = "nebula"
)

// ErrEmptySystemPrompt is returned when the configured system prompt is blank.
var ErrEmptySystemPrompt = errors.New("system prompt must not be empty")

// LaunchConfig is the configuration of the application at launch.
// Values may come from the config file, ELIA_ env vars and command line flags.
type LaunchConfig struct {
	DefaultModel     string      `mapstructure:"default_model" json:"default_model"`
	SystemPrompt     string      `mapstructure:"system_prompt" json:"system_prompt"`
	MessageCodeTheme string      `mapstructure:"message_code_theme" json:"message_code_theme"`
	Models           []ChatModel `mapstructure:"-" json:"models"`
	Theme            string      `mapstructure:"theme" json:"theme"`

	builtinModels []ChatModel
}

// rawModel mirrors ChatModel with pointer fields so unset values can be
// told apart from zero values when applying defaults.
type rawModel struct {
	Name         string   `mapstructure:"name"`
	ID           string   `mapstructure:"id"`
	DisplayName  string   `mapstructure:"display_name"`
	Provider     string   `mapstructure:"provider"`
	APIKey       string   `mapstructure:"api_key"`
	APIBase      string   `mapstructure:"api_base"`
	Organization string   `mapstructure:"organization"`
	Description  string   `mapstructure:"description"`
	Product      string   `mapstructure:"product"`
	Temperature  *float64 `mapstructure:"temperature"`
	MaxRetries   *int     `mapstructure:"max_retries"`
}

// Default returns a LaunchConfig populated with defaults only.
func Default() *LaunchConfig {
	prompt := os.Getenv("ELIA_SYSTEM_PROMPT")
	if prompt == "" {
		prompt = DefaultSystemPrompt
	}
	return &LaunchConfig{
		DefaultModel:     DefaultModelKey,
		SystemPrompt:     prompt,
		MessageCodeTheme: DefaultMessageCodeTheme,
		Theme:            DefaultTheme,
		builtinModels:    BuiltinModels(),
	}
}

// Load reads the config file at path. An empty path means the default
// location; a missing file is not an error.
func Load(path string) (*LaunchConfig, error) {
	defaults := Default()

	v := viper.New()
	v.SetConfigType("toml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		dir, err := ConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get config dir: %w", err)
		}
		v.SetConfigName("config")
		v.AddConfigPath(dir)
	}

	v.SetDefault("default_model", defaults.DefaultModel)
	v.SetDefault("system_prompt", defaults.SystemPrompt)
	v.SetDefault("message_code_theme", defaults.MessageCodeTheme)
	v.SetDefault("theme", defaults.Theme)

	// ELIA_SYSTEM_PROMPT only feeds the default, so it is not bound here.
	for key, env := range map[string]string{
		"default_model":      "ELIA_DEFAULT_MODEL",
		"message_code_theme": "ELIA_MESSAGE_CODE_THEME",
		"theme":              "ELIA_THEME",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(path != "" && os.IsNotExist(err)) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &LaunchConfig{builtinModels: defaults.builtinModels}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var raw []rawModel
	if err := v.UnmarshalKey("models", &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal models: %w", err)
	}
	for i, rm := range raw {
		model, err := rm.toModel()
		if err != nil {
			return nil, fmt.Errorf("models[%d]: %w", i, err)
		}
		cfg.Models = append(cfg.Models, model)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (rm rawModel) toModel() (ChatModel, error) {
	if strings.TrimSpace(rm.Name) == "" {
		return ChatModel{}, errors.New("name is required")
	}
	m := ChatModel{
		Name:         rm.Name,
		ID:           rm.ID,
		DisplayName:  rm.DisplayName,
		Provider:     rm.Provider,
		Organization: rm.Organization,
		Description:  rm.Description,
		Product:      rm.Product,
		Temperature:  1.0,
	}
	if rm.Temperature != nil {
		m.Temperature = *rm.Temperature
	}
	if rm.MaxRetries != nil {
		if *rm.MaxRetries < 0 {
			return ChatModel{}, fmt.Errorf("max_retries must be >= 0, got %d", *rm.MaxRetries)
		}
		m.MaxRetries = *rm.MaxRetries
	}

	key, err := ResolveValue(rm.APIKey)
	if err != nil {
		return ChatModel{}, fmt.Errorf("api_key: %w", err)
	}
	m.APIKey = Secret(key)

	base, err := ResolveValue(rm.APIBase)
	if err != nil {
		return ChatModel{}, fmt.Errorf("api_base: %w", err)
	}
	if base != "" {
		if err := validateBaseURL(base); err != nil {
			return ChatModel{}, fmt.Errorf("api_base: %w", err)
		}
	}
	m.APIBase = base
	return m, nil
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q is not an http(s) URL", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", raw)
	}
	return nil
}

// Validate checks invariants that the file format cannot express.
func (c *LaunchConfig) Validate() error {
	if strings.TrimSpace(c.SystemPrompt) == "" {
		return ErrEmptySystemPrompt
	}
	return nil
}

// ApplyOverrides applies command line overrides. Empty values are ignored.
func (c *LaunchConfig) ApplyOverrides(model, theme string) {
	if model != "" {
		c.DefaultModel = model
	}
	if theme != "" {
		c.Theme = theme
	}
}

// BuiltinModels returns the models shipped with elia. They are not
// configurable from the config file.
func (c *LaunchConfig) BuiltinModels() []ChatModel {
	if c.builtinModels == nil {
		c.builtinModels = BuiltinModels()
	}
	return c.builtinModels
}

// AllModels returns user models followed by builtin models.
func (c *LaunchConfig) AllModels() []ChatModel {
	all := make([]ChatModel, 0, len(c.Models)+len(c.BuiltinModels()))
	all = append(all, c.Models...)
	all = append(all, c.BuiltinModels()...)
	return all
}

// DefaultModelConfig resolves DefaultModel to a model definition.
func (c *LaunchConfig) DefaultModelConfig() (ChatModel, error) {
	return c.GetModel(c.DefaultModel)
}
