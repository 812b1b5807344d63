package provider

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

const bedrockDefaultModel = "anthropic.claude-3-5-sonnet-20240620-v1:0"

func init() {
	RegisterFactory("bedrock", func(config map[string]any) (Provider, error) {
		region := configString(config, "region")
		if region == "" {
			region = os.Getenv("AWS_REGION")
		}

		var opts []func(*awsconfig.LoadOptions) error
		if region != "" {
			opts = append(opts, awsconfig.WithRegion(region))
		}

		cfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
		if err != nil {
			return nil, fmt.Errorf("loading AWS config: %w", err)
		}

		return NewBedrockProvider(bedrockruntime.NewFromConfig(cfg), configString(config, "model")), nil
	})
}

// BedrockProvider implements Provider via the Amazon Bedrock Converse API
type BedrockProvider struct {
	client *bedrockruntime.Client
	model  string
}

// NewBedrockProvider creates a provider backed by an existing Bedrock runtime client
func NewBedrockProvider(client *bedrockruntime.Client, model string) *BedrockProvider {
	if model == "" {
		model = bedrockDefaultModel
	}
	return &BedrockProvider{client: client, model: model}
}

// Name returns the provider name
func (p *BedrockProvider) Name() string {
	return "bedrock"
}

// CreateCompletion creates a chat completion
func (p *BedrockProvider) CreateCompletion(ctx context.Context, req CompletionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	// Converse keeps system prompts separate from the conversation.
	var system []types.SystemContentBlock
	var messages []types.Message
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			system = append(system, &types.SystemContentBlockMemberText{Value: m.Content})
		case "assistant":
			messages = append(messages, types.Message{
				Role:    types.ConversationRoleAssistant,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Content}},
			})
		default:
			messages = append(messages, types.Message{
				Role:    types.ConversationRoleUser,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Content}},
			})
		}
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(model),
		Messages: messages,
		System:   system,
	}
	if req.MaxTokens > 0 || req.Temperature > 0 {
		inference := &types.InferenceConfiguration{}
		if req.MaxTokens > 0 {
			inference.MaxTokens = aws.Int32(int32(req.MaxTokens))
		}
		if req.Temperature > 0 {
			inference.Temperature = aws.Float32(float32(req.Temperature))
		}
		input.InferenceConfig = inference
	}

	out, err := p.client.Converse(ctx, input)
	if err != nil {
		return "", fmt.Errorf("bedrock converse: %w", err)
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return "", fmt.Errorf("bedrock converse: unexpected output type %T", out.Output)
	}

	for _, block := range msg.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			return text.Value, nil
		}
	}
	return "", fmt.Errorf("bedrock converse: no text content in response")
}
