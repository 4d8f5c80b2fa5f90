package config

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrModelNotFound is returned when no model matches a lookup key.
var ErrModelNotFound = errors.New("model not found")

// Secret holds a credential. It never prints its value.
type Secret string

func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "**********"
}

// Value returns the underlying secret.
func (s Secret) Value() string { return string(s) }

func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// ChatModel describes a model that can be chatted with.
type ChatModel struct {
	// Name must match the model name used by the provider, e.g. "gpt-4.1".
	Name string `json:"name"`
	// ID distinguishes several entries for the same model name, such as a
	// personal and a work "gpt-4o" with different keys.
	ID          string `json:"id,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	// Provider is e.g. "openai", "anthropic", "google". Inferred from the
	// name when empty.
	Provider string `json:"provider,omitempty"`
	// APIKey replaces the provider's environment variable for this model.
	APIKey Secret `json:"api_key,omitempty"`
	// APIBase overrides the base URL, e.g. for a LocalAI server.
	APIBase      string  `json:"api_base,omitempty"`
	Organization string  `json:"organization,omitempty"`
	Description  string  `json:"description,omitempty"`
	Product      string  `json:"product,omitempty"`
	Temperature  float64 `json:"temperature"`
	// MaxRetries is how many times a failed request is retried.
	MaxRetries int `json:"max_retries"`
}

// LookupKey is the key used to refer to the model from config and chats.
func (m ChatModel) LookupKey() string {
	if m.ID != "" {
		return m.ID
	}
	return m.Name
}

// Label is the name shown in the UI.
func (m ChatModel) Label() string {
	if m.DisplayName != "" {
		return m.DisplayName
	}
	return m.Name
}

// GetModel finds a model by lookup key, then by provider model name.
func (c *LaunchConfig) GetModel(key string) (ChatModel, error) {
	all := c.AllModels()
	for _, m := range all {
		if m.LookupKey() == key {
			return m, nil
		}
	}
	for _, m := range all {
		if m.Name == key {
			return m, nil
		}
	}
	return ChatModel{}, fmt.Errorf("%w: %q", ErrModelNotFound, key)
}

func builtinOpenAIModels() []ChatModel {
	return []ChatModel{
		{
			ID:          "elia-gpt-4.1",
			Name:        "gpt-4.1",
			DisplayName: "GPT-4.1",
			Provider:    "OpenAI",
			Product:     "ChatGPT",
			Description: "Flagship GPT model for complex tasks.",
			Temperature: 0.7,
		},
		{
			ID:          "elia-gpt-4o",
			Name:        "gpt-4o",
			DisplayName: "GPT-4o",
			Provider:    "OpenAI",
			Product:     "ChatGPT",
			Description: "Fast, intelligent, flexible GPT model.",
			Temperature: 0.7,
		},
		{
			ID:          "elia-o4-mini",
			Name:        "o4-mini",
			DisplayName: "o4-mini",
			Provider:    "OpenAI",
			Product:     "ChatGPT",
			Description: "Faster, more affordable reasoning model",
			Temperature: 1.0,
		},
	}
}

func builtinAnthropicModels() []ChatModel {
	return []ChatModel{
		{
			ID:          "elia-claude-3-7-sonnet-20250219",
			Name:        "claude-3-7-sonnet-20250219",
			DisplayName: "Claude 3.7 Sonnet",
			Provider:    "Anthropic",
			Product:     "Claude 3.7",
			Description: "Anthropic's most intelligent model with extended thinking capabilities",
			Temperature: 1.0,
		},
		{
			ID:          "elia-claude-3-5-sonnet-20241022",
			Name:        "claude-3-5-sonnet-20241022",
			DisplayName: "Claude 3.5 Sonnet",
			Provider:    "Anthropic",
			Product:     "Claude 3.5 Sonnet",
			Description: "Anthropic's previous most intelligent model.",
			Temperature: 1.0,
		},
		{
			ID:          "elia-claude-3-5-haiku-20241022",
			Name:        "claude-3-5-haiku-20241022",
			DisplayName: "Claude 3.5 Haiku",
			Provider:    "Anthropic",
			Product:     "Claude 3.5 Haiku",
			Description: "Anthropic's fastest and most cost-effective model.",
			Temperature: 1.0,
		},
	}
}

func builtinGoogleModels() []ChatModel {
	return []ChatModel{
		{
			ID:          "elia-gemini-2.5-pro-preview-05-06",
			Name:        "gemini-2.5-pro-preview-05-06",
			DisplayName: "Gemini 2.5 Pro Preview",
			Provider:    "Google",
			Product:     "Gemini",
			Description: "Google's most powerful thinking model.",
			Temperature: 1.0,
		},
		{
			ID:          "elia-gemini-2.5-flash-preview-05-20",
			Name:        "gemini-2.5-flash-preview-05-20",
			DisplayName: "Gemini 2.5 Flash Preview",
			Provider:    "Google",
			Product:     "Gemini",
			Description: "Google's first hybrid reasoning model with thinking budgets.",
			Temperature: 1.0,
		},
	}
}

// BuiltinModels returns OpenAI, Anthropic then Google builtin models.
func BuiltinModels() []ChatModel {
	var models []ChatModel
	models = append(models, builtinOpenAIModels()...)
	models = append(models, builtinAnthropicModels()...)
	models = append(models, builtinGoogleModels()...)
	return models
}
