package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/elia-chat/elia/internal/config"
)

// Provider kinds understood by NewProvider.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
	ProviderBedrock   = "bedrock"
	ProviderDebug     = "debug"
	ProviderMock      = "mock"
)

// ErrUnknownProvider is returned when no provider can serve a model.
var ErrUnknownProvider = errors.New("unknown provider")

// ProviderFor decides which backend serves model. An explicit provider
// wins; otherwise the model name is used. Models with an api_base and no
// known provider are treated as OpenAI-compatible.
func ProviderFor(model config.ChatModel) (string, error) {
	switch p := strings.ToLower(strings.TrimSpace(model.Provider)); p {
	case ProviderOpenAI, ProviderAnthropic, ProviderBedrock, ProviderDebug, ProviderMock:
		return p, nil
	case ProviderGoogle, "gemini":
		return ProviderGoogle, nil
	case "":
	default:
		if model.APIBase != "" {
			return ProviderOpenAI, nil
		}
	}

	name := strings.ToLower(model.Name)
	switch {
	case strings.HasPrefix(name, bedrockPrefix):
		return ProviderBedrock, nil
	case strings.HasPrefix(name, "gpt-"),
		strings.HasPrefix(name, "o1"),
		strings.HasPrefix(name, "o3"),
		strings.HasPrefix(name, "o4"),
		strings.HasPrefix(name, "chatgpt-"):
		return ProviderOpenAI, nil
	case strings.HasPrefix(name, "claude-"):
		return ProviderAnthropic, nil
	case strings.HasPrefix(name, "gemini-"):
		return ProviderGoogle, nil
	}
	if model.APIBase != "" {
		return ProviderOpenAI, nil
	}
	return "", fmt.Errorf("%w for model %q: set provider in config", ErrUnknownProvider, model.Name)
}

// NewProvider builds the provider for model. Keys fall back to the
// provider's usual environment variable when the model has none.
func NewProvider(ctx context.Context, model config.ChatModel) (Provider, error) {
	kind, err := ProviderFor(model)
	if err != nil {
		return nil, err
	}
	key := model.APIKey.Value()

	switch kind {
	case ProviderOpenAI:
		name := strings.ToLower(model.Provider)
		if key == "" && model.APIBase == "" {
			key = os.Getenv("OPENAI_API_KEY")
			if key == "" {
				return nil, fmt.Errorf("no OpenAI API key: set OPENAI_API_KEY or api_key in config")
			}
		}
		return NewOpenAIProvider(model.Name, OpenAIOptions{
			APIKey:       key,
			BaseURL:      model.APIBase,
			Organization: model.Organization,
			Name:         name,
		}), nil
	case ProviderAnthropic:
		if key == "" {
			key = os.Getenv("ANTHROPIC_API_KEY")
			if key == "" {
				return nil, fmt.Errorf("no Anthropic API key: set ANTHROPIC_API_KEY or api_key in config")
			}
		}
		return NewAnthropicProvider(key, model.APIBase, model.Name), nil
	case ProviderBedrock:
		return NewBedrockProvider(ctx, key, model.Name)
	case ProviderGoogle:
		return NewGeminiProvider(key, model.APIBase, model.Name), nil
	case ProviderDebug:
		return NewDebugProvider(model.Name), nil
	case ProviderMock:
		return NewMockProvider(model.Name), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, kind)
}
