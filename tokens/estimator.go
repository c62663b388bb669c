// Package tokens estimates prompt sizes and splits oversized codebase
// content into chunks that fit a provider's context budget.
//
// Estimates are deliberately approximate: one token per four characters
// holds closely enough across the supported providers, and the safe limit
// keeps a 25% margin for prompt scaffolding and the response.

package tokens

// tokenRatios maps a provider to its approximate tokens-per-character
// ratio. Unknown providers use the default entry.
var tokenRatios = map[string]float64{
	"openai":    0.25,
	"anthropic": 0.25,
	"deepseek":  0.25,
	"gemini":    0.25,
	"default":   0.25,
}

// apiLimits maps provider -> model -> context token limit. Each provider
// carries a default model entry; an unknown provider falls back to
// defaultCapacity.
var apiLimits = map[string]map[string]int{
	"openai": {
		"o3":      200000,
		"default": 100000,
	},
	"anthropic": {
		"claude-4-sonnet-20240620": 200000,
		"default":                  100000,
	},
	"deepseek": {
		"default": 100000,
	},
	"gemini": {
		"gemini-3-pro": 200000,
		"default":      100000,
	},
}

const defaultCapacity = 100000

// safeLimitFraction is the share of a model's context reserved for the
// prompt payload; the rest is margin for scaffolding and response.
const safeLimitFraction = 0.75

// Ratio returns the tokens-per-character ratio for a provider.
func Ratio(provider string) float64 {
	if r, ok := tokenRatios[provider]; ok {
		return r
	}
	return tokenRatios["default"]
}

// EstimateTokens estimates the token count of text for a provider. Pure
// function of the text length and the provider ratio.
func EstimateTokens(text, provider string) int {
	return estimateLen(len(text), provider)
}

// estimateLen is EstimateTokens for a known byte length.
func estimateLen(length int, provider string) int {
	return int(float64(length) * Ratio(provider))
}

// Capacity returns the context token limit for a provider/model pair,
// falling back to the provider's default model and then to the overall
// default for unknown providers.
func Capacity(provider, model string) int {
	limits, ok := apiLimits[provider]
	if !ok {
		return defaultCapacity
	}
	if limit, ok := limits[model]; ok {
		return limit
	}
	if limit, ok := limits["default"]; ok {
		return limit
	}
	return defaultCapacity
}

// SafeLimit returns the usable token budget for a provider/model pair.
func SafeLimit(provider, model string) int {
	return int(float64(Capacity(provider, model)) * safeLimitFraction)
}

// Fits reports whether text fits the provider/model safe limit, along with
// the estimated token count and the limit itself.
func Fits(text, provider, model string) (bool, int, int) {
	estimated := EstimateTokens(text, provider)
	safeLimit := SafeLimit(provider, model)
	return estimated <= safeLimit, estimated, safeLimit
}
