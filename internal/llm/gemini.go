package llm

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/genai"
)

// GeminiProvider streams from the Gemini API.
type GeminiProvider struct {
	apiKey  string
	baseURL string
	model   string
}

// NewGeminiProvider falls back to GEMINI_API_KEY then GOOGLE_API_KEY when
// apiKey is empty.
func NewGeminiProvider(apiKey, baseURL, model string) *GeminiProvider {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	return &GeminiProvider{apiKey: apiKey, baseURL: baseURL, model: model}
}

func (p *GeminiProvider) Name() string {
	return fmt.Sprintf("google (%s)", p.model)
}

func (p *GeminiProvider) Stream(ctx context.Context, req Request) (Stream, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("no Gemini API key: set GEMINI_API_KEY or api_key in config")
	}
	system, rest := req.splitSystem()
	contents := buildGeminiContents(rest)
	if len(contents) == 0 {
		return nil, fmt.Errorf("no user content provided")
	}

	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if req.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	model := chooseModel(req.Model, p.model)

	return newEventStream(ctx, func(ctx context.Context, events chan<- Event) error {
		clientCfg := &genai.ClientConfig{
			APIKey:  p.apiKey,
			Backend: genai.BackendGeminiAPI,
		}
		if p.baseURL != "" {
			clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: p.baseURL}
		}
		client, err := genai.NewClient(ctx, clientCfg)
		if err != nil {
			return fmt.Errorf("create gemini client: %w", err)
		}

		var usage Usage
		for resp, err := range client.Models.GenerateContentStream(ctx, model, contents, cfg) {
			if err != nil {
				return fmt.Errorf("gemini streaming error: %w", err)
			}
			if text := resp.Text(); text != "" {
				if err := send(ctx, events, Event{Type: EventTextDelta, Text: text}); err != nil {
					return err
				}
			}
			// Usage metadata is cumulative; the last chunk holds the totals.
			if md := resp.UsageMetadata; md != nil {
				usage = Usage{
					InputTokens:  int(md.PromptTokenCount),
					OutputTokens: int(md.CandidatesTokenCount),
				}
			}
		}
		if err := send(ctx, events, Event{Type: EventUsage, Use: &usage}); err != nil {
			return err
		}
		return send(ctx, events, Event{Type: EventDone})
	}), nil
}

func buildGeminiContents(messages []Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleUser:
			out = append(out, genai.NewContentFromText(msg.Content, genai.RoleUser))
		case RoleAssistant:
			out = append(out, genai.NewContentFromText(msg.Content, genai.RoleModel))
		}
	}
	return out
}
