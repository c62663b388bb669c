// Provider factory - creates the concrete client for a configured
// provider name.
//
// The provider set is closed: openai, anthropic, deepseek, gemini. An
// unknown name is a configuration error surfaced at construction, never a
// runtime crash.

package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedProvider is returned when a configured provider name does
// not match any supported client.
var ErrUnsupportedProvider = errors.New("unsupported AI provider")

// NewProvider creates the client for a provider name (case-insensitive).
func NewProvider(name string, cfg Config) (Provider, error) {
	switch strings.ToLower(name) {
	case "openai":
		return NewOpenAIProvider(cfg)
	case "anthropic":
		return NewAnthropicProvider(cfg)
	case "deepseek":
		return NewDeepSeekProvider(cfg)
	case "gemini":
		return NewGeminiProvider(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, name)
	}
}
