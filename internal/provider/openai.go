package provider

import (
	"context"
	"fmt"
	"os"

	"github.com/sashabaranov/go-openai"
)

const openaiDefaultModel = "gpt-4o"

func init() {
	RegisterFactory("openai", func(config map[string]any) (Provider, error) {
		apiKey := configString(config, "api_key")
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			apiKey = os.Getenv("AZURE_OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY not set")
		}

		endpoint := configString(config, "azure_endpoint")
		if endpoint == "" {
			endpoint = os.Getenv("AZURE_OPENAI_ENDPOINT")
		}

		model := configString(config, "model")

		var client *openai.Client
		if endpoint != "" {
			// Azure OpenAI deployment. The deployment name doubles as the model.
			client = openai.NewClientWithConfig(openai.DefaultAzureConfig(apiKey, endpoint))
		} else {
			client = openai.NewClient(apiKey)
		}

		return NewOpenAIProvider(client, model), nil
	})
}

// OpenAIProvider implements Provider for OpenAI and Azure OpenAI
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates a provider backed by an existing client
func NewOpenAIProvider(client *openai.Client, model string) *OpenAIProvider {
	if model == "" {
		model = openaiDefaultModel
	}
	return &OpenAIProvider{client: client, model: model}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// CreateCompletion creates a chat completion
func (p *OpenAIProvider) CreateCompletion(ctx context.Context, req CompletionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai completion: no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}
