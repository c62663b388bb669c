package llm

import (
	"errors"
	"strings"
	"testing"
)

func validConfig() Config {
	temp := float32(0.2)
	maxTokens := 4096
	return Config{
		APIKey:      "test-key",
		Model:       "test-model",
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	}
}

func TestNewProviderKnownNames(t *testing.T) {
	for _, name := range []string{"openai", "anthropic", "deepseek"} {
		provider, err := NewProvider(name, validConfig())
		if err != nil {
			t.Fatalf("NewProvider(%q): unexpected error: %v", name, err)
		}
		if provider.Name() != name {
			t.Errorf("provider name = %q, want %q", provider.Name(), name)
		}
		if provider.Model() != "test-model" {
			t.Errorf("provider model = %q, want test-model", provider.Model())
		}
	}
}

func TestNewProviderCaseInsensitive(t *testing.T) {
	provider, err := NewProvider("OpenAI", validConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.Name() != "openai" {
		t.Errorf("expected openai, got %q", provider.Name())
	}
}

func TestNewProviderUnsupported(t *testing.T) {
	_, err := NewProvider("mystery-ai", validConfig())
	if err == nil {
		t.Fatal("expected error for unsupported provider")
	}
	if !errors.Is(err, ErrUnsupportedProvider) {
		t.Errorf("expected ErrUnsupportedProvider, got %v", err)
	}
	if !strings.Contains(err.Error(), "mystery-ai") {
		t.Errorf("error should name the provider: %v", err)
	}
}

func TestNewProviderMissingTemperature(t *testing.T) {
	cfg := validConfig()
	cfg.Temperature = nil
	_, err := NewProvider("openai", cfg)
	if err == nil {
		t.Fatal("expected error for missing temperature")
	}
	if !strings.Contains(err.Error(), "temperature") {
		t.Errorf("error should mention temperature: %v", err)
	}
}

func TestNewProviderMissingMaxTokens(t *testing.T) {
	cfg := validConfig()
	cfg.MaxTokens = nil
	_, err := NewProvider("anthropic", cfg)
	if err == nil {
		t.Fatal("expected error for missing max_tokens")
	}
	if !strings.Contains(err.Error(), "max_tokens") {
		t.Errorf("error should mention max_tokens: %v", err)
	}
}

func TestNewProviderMissingAPIKey(t *testing.T) {
	cfg := validConfig()
	cfg.APIKey = ""
	_, err := NewProvider("deepseek", cfg)
	if err == nil {
		t.Fatal("expected error for missing api_key")
	}
}

func TestNewProviderNonPositiveMaxTokens(t *testing.T) {
	cfg := validConfig()
	zero := 0
	cfg.MaxTokens = &zero
	_, err := NewProvider("openai", cfg)
	if err == nil {
		t.Fatal("expected error for non-positive max_tokens")
	}
}

func TestCanonicalChatBaseURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"https://api.example.com", "https://api.example.com/v1"},
		{"https://api.example.com/", "https://api.example.com/v1"},
		{"https://api.example.com/v1", "https://api.example.com/v1"},
		{"https://api.example.com/v1/", "https://api.example.com/v1"},
	}
	for _, c := range cases {
		if got := canonicalChatBaseURL(c.in); got != c.want {
			t.Errorf("canonicalChatBaseURL(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
