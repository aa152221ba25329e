// Package failure implements FailureDecorator (spec §4.8): a bounded
// retry wrapper that only retries the two error kinds that indicate a
// transport problem rather than a remote decision.
//
// Grounded on cmd/node/main.go's register() (10 attempts, fixed 400ms
// sleep between retries), generalized into a reusable, configurable
// decorator parameterized by RetryConfig instead of hardcoded constants.
package failure

import (
	"context"
	"time"

	"github.com/dreamware/terrastore/internal/errs"
)

// RetryConfig configures Retry: up to Retries additional attempts after
// the first, sleeping Interval between attempts.
type RetryConfig struct {
	Retries  int
	Interval time.Duration
}

// Retry invokes fn, retrying on errs.Retryable errors (MissingRoute,
// CommunicationError) up to cfg.Retries additional times, sleeping
// cfg.Interval between attempts. ProcessingError and ValidationError are
// never retried — they reflect a decision already made by the remote, not
// a transport hiccup (spec §4.8). Retry carries no state across calls:
// every invocation gets its own fresh retry budget.
func Retry(ctx context.Context, cfg RetryConfig, fn func(context.Context) error) error {
	var lastErr error
	attempts := cfg.Retries + 1
	for i := 0; i < attempts; i++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !errs.Retryable(lastErr) {
			return lastErr
		}
		if i == attempts-1 {
			break
		}
		timer := time.NewTimer(cfg.Interval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		}
	}
	return lastErr
}
