package llm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/aqua777/go-legalrag/schema"
)

const (
	// DefaultBedrockModel is the default model to use.
	DefaultBedrockModel = "anthropic.claude-3-5-sonnet-20241022-v2:0"
	// DefaultBedrockRegion is used when no AWS region is configured.
	DefaultBedrockRegion = "us-east-1"
)

// BedrockLLM implements the LLM interface for AWS Bedrock using the
// Converse API.
type BedrockLLM struct {
	client    *bedrockruntime.Client
	model     string
	maxTokens int
	timeout   time.Duration
	logger    *slog.Logger
}

// BedrockOption configures a BedrockLLM.
type BedrockOption func(*BedrockLLM)

// WithBedrockModel sets the model.
func WithBedrockModel(model string) BedrockOption {
	return func(b *BedrockLLM) {
		b.model = model
	}
}

// WithBedrockMaxTokens bounds the completion length.
func WithBedrockMaxTokens(n int) BedrockOption {
	return func(b *BedrockLLM) {
		b.maxTokens = n
	}
}

// WithBedrockTimeout sets the per-call timeout.
func WithBedrockTimeout(d time.Duration) BedrockOption {
	return func(b *BedrockLLM) {
		b.timeout = d
	}
}

// WithBedrockCredentials sets static credentials instead of the default
// AWS credential chain.
func WithBedrockCredentials(region, accessKeyID, secretAccessKey string) BedrockOption {
	return func(b *BedrockLLM) {
		cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				accessKeyID, secretAccessKey, "",
			)),
		)
		if err == nil {
			b.client = bedrockruntime.NewFromConfig(cfg)
		}
	}
}

// NewBedrockLLM creates an AWS Bedrock client using the default credential
// chain unless overridden by options.
func NewBedrockLLM(opts ...BedrockOption) (*BedrockLLM, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = os.Getenv("AWS_DEFAULT_REGION")
	}
	if region == "" {
		region = DefaultBedrockRegion
	}

	b := &BedrockLLM{
		model:     DefaultBedrockModel,
		maxTokens: DefaultMaxTokens,
		timeout:   DefaultTimeout,
		logger:    slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.client == nil {
		cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		b.client = bedrockruntime.NewFromConfig(cfg)
	}

	return b, nil
}

func (b *BedrockLLM) Complete(ctx context.Context, prompt string) (string, error) {
	return b.Chat(ctx, []ChatMessage{NewUserMessage(prompt)})
}

func (b *BedrockLLM) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	converseMessages, systemPrompts := convertBedrockMessages(messages)

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(b.model),
		Messages: converseMessages,
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens: aws.Int32(int32(b.maxTokens)),
		},
	}
	if len(systemPrompts) > 0 {
		input.System = systemPrompts
	}

	resp, err := b.client.Converse(ctx, input)
	if err != nil {
		b.logger.Error("Chat failed", "model", b.model, "error", err)
		return "", schema.NewTransientError("completion",
			fmt.Errorf("%w: bedrock converse failed: %v", ErrProviderUnavailable, err))
	}

	return extractBedrockText(resp), nil
}

func convertBedrockMessages(messages []ChatMessage) ([]types.Message, []types.SystemContentBlock) {
	var out []types.Message
	var system []types.SystemContentBlock

	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, &types.SystemContentBlockMemberText{Value: m.Content})
			continue
		}
		role := types.ConversationRoleUser
		if m.Role == RoleAssistant {
			role = types.ConversationRoleAssistant
		}
		out = append(out, types.Message{
			Role:    role,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Content}},
		})
	}

	return out, system
}

func extractBedrockText(resp *bedrockruntime.ConverseOutput) string {
	msg, ok := resp.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return ""
	}
	var text string
	for _, block := range msg.Value.Content {
		if t, ok := block.(*types.ContentBlockMemberText); ok {
			text += t.Value
		}
	}
	return text
}
