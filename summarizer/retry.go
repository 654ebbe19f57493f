package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// RetryConfig controls the retry behavior for transient API failures
type RetryConfig struct {
	MaxRetries int           // Additional attempts after the first (0 = no retry)
	Delay      time.Duration // Fixed delay between attempts
	Timeout    time.Duration // Overall deadline for one Summarize call including retries
}

// DefaultRetryConfig retries once after a fixed delay. Permanent
// failures are never retried; the entry stays unseen and is picked up
// again on the next run.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 1,
		Delay:      5 * time.Second,
		Timeout:    2 * time.Minute,
	}
}

// WithRetry wraps a summarizer with retry logic for transient errors
func WithRetry(s Summarizer, cfg RetryConfig) Summarizer {
	return &retrySummarizer{inner: s, cfg: cfg}
}

type retrySummarizer struct {
	inner Summarizer
	cfg   RetryConfig
}

func (r *retrySummarizer) Name() string {
	return r.inner.Name()
}

func (r *retrySummarizer) Summarize(ctx context.Context, title, content string) (string, error) {
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	var lastErr error
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			slog.Warn("retrying summarization", "attempt", attempt, "delay", r.cfg.Delay, "error", lastErr)
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("summarization cancelled: %w", ctx.Err())
			case <-time.After(r.cfg.Delay):
			}
		}

		result, err := r.inner.Summarize(ctx, title, content)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", fmt.Errorf("summarization timed out: %w", err)
		}
		if !isRetryable(err) {
			return "", fmt.Errorf("non-retryable summarization error: %w", err)
		}
	}

	return "", fmt.Errorf("summarization failed after max retries (%d): %w", r.cfg.MaxRetries, lastErr)
}

// isRetryable classifies an error as transient (retry) or permanent
// (surface immediately). Rate limits and server-side failures are
// transient; auth and request errors are not.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500 {
			return true
		}
		return false
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode >= 500 {
			return true
		}
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"rate limit", "quota", "timeout", "connection refused", "connection reset"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
