package llm

import (
	"context"
	"iter"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
)

// RetryConfig defines retry behavior for rate-limited stream opens.
// Only attempts that failed before any text arrived are retried.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts (default: 3)
	MaxRetries int

	// InitialBackoff is the wait before the first retry (default: 2s)
	InitialBackoff time.Duration

	// MaxBackoff caps any single wait, including API-suggested delays (default: 30s)
	MaxBackoff time.Duration

	// BackoffMultiplier is applied to backoff on each retry (default: 2)
	BackoffMultiplier float64
}

// Defaults suit an interactive question: a clinician waits on the answer
const (
	DefaultMaxRetries        = 3
	DefaultInitialBackoff    = 2 * time.Second
	DefaultMaxBackoff        = 30 * time.Second
	DefaultBackoffMultiplier = 2.0

	defaultProviderTimeout = 2 * time.Minute
)

func NewDefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:        DefaultMaxRetries,
		InitialBackoff:    DefaultInitialBackoff,
		MaxBackoff:        DefaultMaxBackoff,
		BackoffMultiplier: DefaultBackoffMultiplier,
	}
}

// IsRateLimitError matches 429 and overload responses from either provider
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "529") ||
		strings.Contains(errStr, "RESOURCE_EXHAUSTED") ||
		strings.Contains(errStr, "rate_limit_error") ||
		strings.Contains(errStr, "overloaded_error") ||
		strings.Contains(errStr, "quota")
}

// retryDelayRegex matches "Please retry in Xs" or "retryDelay:Xs" patterns
var retryDelayRegex = regexp.MustCompile(`(?i)(?:Please retry in |retryDelay[:\s]+)(\d+(?:\.\d+)?)\s*s`)

// ExtractRetryDelay parses the API-suggested retry delay from an error.
// Returns 0 if no delay is found in the error message.
//
// Example error message:
// "Error 429, Message: ... Please retry in 45.387061394s., Status: RESOURCE_EXHAUSTED"
func ExtractRetryDelay(err error) time.Duration {
	if err == nil {
		return 0
	}

	matches := retryDelayRegex.FindStringSubmatch(err.Error())
	if len(matches) < 2 {
		return 0
	}

	seconds, parseErr := strconv.ParseFloat(matches[1], 64)
	if parseErr != nil {
		return 0
	}

	return time.Duration(seconds * float64(time.Second))
}

// CalculateBackoff computes the backoff duration for a given attempt.
// An API-provided delay replaces InitialBackoff as the base.
// The result is capped at MaxBackoff.
func (c *RetryConfig) CalculateBackoff(attempt int, apiDelay time.Duration) time.Duration {
	base := c.InitialBackoff
	if apiDelay > 0 {
		base = apiDelay
	}

	multiplier := 1.0
	for i := 0; i < attempt; i++ {
		multiplier *= c.BackoffMultiplier
	}

	backoff := time.Duration(float64(base) * multiplier)
	if backoff > c.MaxBackoff {
		backoff = c.MaxBackoff
	}

	return backoff
}

// streamAttempt opens one provider stream and forwards text through emit.
// It reports whether any text was emitted and whether the consumer stopped early.
type streamAttempt func(ctx context.Context, emit func(string) bool) (emitted bool, stopped bool, err error)

// retryingStream turns attempts into a single sequence. A rate-limited
// attempt that produced no text is retried; any other error ends the
// sequence as its final element.
func retryingStream(ctx context.Context, retry *RetryConfig, logger arbor.ILogger, provider string, attempt streamAttempt) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for n := 0; ; n++ {
			emitted, stopped, err := attempt(ctx, func(text string) bool {
				return yield(text, nil)
			})
			if stopped || err == nil {
				return
			}
			if emitted || !IsRateLimitError(err) || n >= retry.MaxRetries {
				yield("", err)
				return
			}

			backoff := retry.CalculateBackoff(n, ExtractRetryDelay(err))
			logger.Warn().
				Str("provider", provider).
				Int("attempt", n+1).
				Dur("backoff", backoff).
				Err(err).
				Msg("Rate limited opening stream, retrying")

			select {
			case <-ctx.Done():
				yield("", ctx.Err())
				return
			case <-time.After(backoff):
			}
		}
	}
}
