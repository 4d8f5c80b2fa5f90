package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

const bedrockPrefix = "bedrock/"

const defaultBedrockRegion = "us-east-1"

// NewBedrockProvider returns an Anthropic provider that talks to AWS
// Bedrock. apiKey may hold "ACCESS_KEY_ID:SECRET_ACCESS_KEY"; otherwise the
// default AWS credential chain is used. Request models keep their
// "bedrock/" prefix in config and lose it on the wire.
func NewBedrockProvider(ctx context.Context, apiKey, model string, opts ...option.RequestOption) (*AnthropicProvider, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = os.Getenv("AWS_DEFAULT_REGION")
	}
	if region == "" {
		region = defaultBedrockRegion
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if apiKey != "" {
		access, secret, ok := strings.Cut(apiKey, ":")
		if !ok || access == "" || secret == "" {
			return nil, fmt.Errorf("bedrock api_key must be ACCESS_KEY_ID:SECRET_ACCESS_KEY")
		}
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(access, secret, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	reqOpts := append([]option.RequestOption{bedrock.WithConfig(cfg), option.WithMaxRetries(0)}, opts...)
	client := anthropic.NewClient(reqOpts...)
	return &AnthropicProvider{
		client:      &client,
		name:        "bedrock",
		model:       strings.TrimPrefix(model, bedrockPrefix),
		modelPrefix: bedrockPrefix,
	}, nil
}
