// DeepSeek provider implementation using the go-openai library.
//
// Information Hiding:
// - Uses the OpenAI-compatible chat-completions API with a different
//   base URL

package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const deepseekBaseURL = "https://api.deepseek.com/v1"

// DeepSeekProvider implements the Provider interface for DeepSeek.
type DeepSeekProvider struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewDeepSeekProvider creates a new DeepSeek provider. Returns an error
// when temperature or max_tokens is missing from the configuration.
func NewDeepSeekProvider(cfg Config) (*DeepSeekProvider, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("deepseek: %w", err)
	}

	conf := openai.DefaultConfig(cfg.APIKey)
	conf.BaseURL = deepseekBaseURL
	if cfg.BaseURL != "" {
		conf.BaseURL = canonicalChatBaseURL(cfg.BaseURL)
	}

	return &DeepSeekProvider{
		client:      openai.NewClientWithConfig(conf),
		model:       cfg.Model,
		maxTokens:   *cfg.MaxTokens,
		temperature: *cfg.Temperature,
	}, nil
}

// Name returns the provider name.
func (p *DeepSeekProvider) Name() string {
	return "deepseek"
}

// Model returns the configured model.
func (p *DeepSeekProvider) Model() string {
	return p.model
}

// Complete sends the prompt as a single user message and returns
// choices[0].message.content.
func (p *DeepSeekProvider) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty response from DeepSeek")
	}
	return resp.Choices[0].Message.Content, nil
}

// Verify DeepSeekProvider implements Provider
var _ Provider = (*DeepSeekProvider)(nil)
