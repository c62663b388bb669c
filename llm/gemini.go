// Google Gemini provider implementation using the official
// google.golang.org/genai SDK.
//
// Information Hiding:
// - API authentication and client creation
// - Request/response format for the Gemini API

package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// GeminiProvider implements the Provider interface for Google Gemini.
type GeminiProvider struct {
	client      *genai.Client
	model       string
	maxTokens   int32
	temperature float32
}

// NewGeminiProvider creates a new Gemini provider. Returns an error when
// temperature or max_tokens is missing or client initialization fails.
func NewGeminiProvider(cfg Config) (*GeminiProvider, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: client initialization: %w", err)
	}

	return &GeminiProvider{
		client:      client,
		model:       cfg.Model,
		maxTokens:   int32(*cfg.MaxTokens),
		temperature: *cfg.Temperature,
	}, nil
}

// Name returns the provider name.
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Model returns the configured model.
func (p *GeminiProvider) Model() string {
	return p.model
}

// Complete sends the prompt as user content and returns the response text.
func (p *GeminiProvider) Complete(ctx context.Context, prompt string) (string, error) {
	response, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(p.temperature),
		MaxOutputTokens: p.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("generate content failed: %w", err)
	}

	content := response.Text()
	if content == "" {
		return "", errors.New("empty response from Gemini")
	}
	return content, nil
}

// Verify GeminiProvider implements Provider
var _ Provider = (*GeminiProvider)(nil)
