// Package llm provides the model provider abstraction for the
// investigation workflow.
//
// LLM Provider interface - the abstract interface for providers.
// Each provider implementation hides:
// - API client initialization and authentication
// - Request/response format conversion
// - Provider-specific response envelope extraction

package llm

import (
	"context"
	"errors"
	"fmt"
)

// Provider defines the abstract interface for LLM providers. Every
// investigation call is a single user message carrying the full prompt;
// the provider returns the text payload of the response.
type Provider interface {
	// Name returns the provider name (for logging and budget lookup).
	Name() string

	// Model returns the configured model identifier.
	Model() string

	// Complete sends one prompt as a single user message and returns the
	// response text. Exactly one network round trip per call; retries are
	// the executor's job.
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config holds the per-provider settings a client needs. Temperature and
// MaxTokens are pointers because their absence is a configuration error,
// not a zero value.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature *float32
	MaxTokens   *int
}

var (
	errMissingTemperature = errors.New("temperature must be explicitly set in the configuration")
	errMissingMaxTokens   = errors.New("max_tokens must be explicitly set in the configuration")
	errMissingAPIKey      = errors.New("api_key is not set")
)

// validate checks the fields every provider requires. Called at client
// construction so misconfiguration fails before any network activity.
func (c Config) validate() error {
	if c.Temperature == nil {
		return errMissingTemperature
	}
	if c.MaxTokens == nil {
		return errMissingMaxTokens
	}
	if c.APIKey == "" {
		return errMissingAPIKey
	}
	if *c.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", *c.MaxTokens)
	}
	return nil
}
