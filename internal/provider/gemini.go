package provider

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/genai"
)

const geminiDefaultModel = "gemini-2.5-flash"

func init() {
	RegisterFactory("gemini", func(config map[string]any) (Provider, error) {
		apiKey := configString(config, "api_key")
		if apiKey == "" {
			apiKey = os.Getenv("GOOGLE_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("GOOGLE_API_KEY not set")
		}

		client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("creating Gemini client: %w", err)
		}

		return NewGeminiProvider(client, configString(config, "model")), nil
	})
}

// GeminiProvider implements Provider for the Google Gemini API
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a provider backed by an existing client
func NewGeminiProvider(client *genai.Client, model string) *GeminiProvider {
	if model == "" {
		model = geminiDefaultModel
	}
	return &GeminiProvider{client: client, model: model}
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// CreateCompletion creates a chat completion
func (p *GeminiProvider) CreateCompletion(ctx context.Context, req CompletionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	var system string
	var contents []*genai.Content
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			system = m.Content
		case "assistant":
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if req.Temperature > 0 {
		temp := float32(req.Temperature)
		cfg.Temperature = &temp
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini generate content: empty response")
	}
	return text, nil
}
