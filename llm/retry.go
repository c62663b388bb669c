// Retrying request executor - wraps a single model call with bounded
// retries and exponential back-off.
//
// Information Hiding:
// - Back-off schedule computation
// - Structured API error body extraction for diagnostics
// - Per-attempt timeout enforcement

package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// requestTimeout bounds every individual model call. No call may hang
// indefinitely.
const requestTimeout = 120 * time.Second

// RetryPolicy bounds how a failing call is retried. The delay before the
// retry after attempt k (0-indexed) is BaseDelay * 2^k.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy mirrors the workflow default of three attempts with a
// one second base delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}
}

// Delay returns the back-off delay after attempt (0-indexed).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return p.BaseDelay << uint(attempt)
}

// Executor runs model calls under a retry policy. Retries block the
// calling sequence; no concurrent attempts are ever spawned.
type Executor struct {
	policy RetryPolicy
	sleep  func(time.Duration)
	logger *zap.Logger
}

// NewExecutor creates an executor. Non-positive policy fields fall back to
// the defaults. A nil logger disables logging.
func NewExecutor(policy RetryPolicy, logger *zap.Logger) *Executor {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = DefaultRetryPolicy().MaxAttempts
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = DefaultRetryPolicy().BaseDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{policy: policy, sleep: time.Sleep, logger: logger}
}

// Execute attempts call up to the policy budget. Each attempt is bounded
// by the request timeout. On exhaustion it returns a terminal error that
// wraps the last failure and names the provider and attempt count.
func (e *Executor) Execute(ctx context.Context, providerLabel string, call func(context.Context) (string, error)) (string, error) {
	var lastErr error

	for attempt := 0; attempt < e.policy.MaxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		text, err := call(callCtx)
		cancel()
		if err == nil {
			return text, nil
		}
		lastErr = err

		e.logErrorDetail(providerLabel, err)
		if attempt == e.policy.MaxAttempts-1 {
			break
		}

		delay := e.policy.Delay(attempt)
		e.logger.Warn("API request failed, retrying",
			zap.String("provider", providerLabel),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", e.policy.MaxAttempts),
			zap.Duration("backoff", delay),
			zap.Error(err))
		e.sleep(delay)
	}

	return "", fmt.Errorf("%s API failed after %d attempts: %w", providerLabel, e.policy.MaxAttempts, lastErr)
}

// logErrorDetail surfaces the structured error body a provider returned,
// when one is available, ahead of the generic retry message. Rate-limit
// and bad-request responses carry the server's diagnosis here.
func (e *Executor) logErrorDetail(provider string, err error) {
	var openaiErr *openai.APIError
	if errors.As(err, &openaiErr) {
		e.logger.Error("API error detail",
			zap.String("provider", provider),
			zap.Int("status", openaiErr.HTTPStatusCode),
			zap.String("type", openaiErr.Type),
			zap.String("message", openaiErr.Message))
		return
	}

	var anthropicErr *anthropic.Error
	if errors.As(err, &anthropicErr) {
		e.logger.Error("API error detail",
			zap.String("provider", provider),
			zap.Int("status", anthropicErr.StatusCode),
			zap.ByteString("body", anthropicErr.DumpResponse(true)))
	}
}
