package failure

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dreamware/terrastore/internal/errs"
)

func TestRetrySucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryConfig{Retries: 3, Interval: time.Millisecond}, func(context.Context) error {
		calls++
		return nil
	})
	if err != nil || calls != 1 {
		t.Fatalf("err=%v calls=%d, want nil/1", err, calls)
	}
}

func TestRetryRetriesOnMissingRoute(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryConfig{Retries: 2, Interval: time.Millisecond}, func(context.Context) error {
		calls++
		if calls < 3 {
			return errs.NewMissingRoute("no owner")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3 (1 initial + 2 retries)", calls)
	}
}

func TestRetryRetriesOnCommunicationError(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryConfig{Retries: 1, Interval: time.Millisecond}, func(context.Context) error {
		calls++
		return errs.NewCommunication("dial failed", errors.New("econnrefused"))
	})
	if !errors.Is(err, errs.Communication) {
		t.Fatalf("expected communication error after exhausting retries, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2 (1 initial + 1 retry)", calls)
	}
}

func TestRetryDoesNotRetryProcessingError(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryConfig{Retries: 5, Interval: time.Millisecond}, func(context.Context) error {
		calls++
		return errs.NewProcessing("key not found", nil)
	})
	if !errors.Is(err, errs.Processing) {
		t.Fatalf("expected processing error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (no retry on ProcessingError)", calls)
	}
}

func TestRetryDoesNotRetryValidationError(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryConfig{Retries: 5, Interval: time.Millisecond}, func(context.Context) error {
		calls++
		return errs.NewValidation("bad input")
	})
	if !errors.Is(err, errs.Validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (no retry on ValidationError)", calls)
	}
}

func TestRetryReturnsLastErrorAfterExhaustingBudget(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryConfig{Retries: 3, Interval: time.Millisecond}, func(context.Context) error {
		calls++
		return errs.NewMissingRoute("attempt %d", calls)
	})
	if calls != 4 {
		t.Fatalf("calls = %d, want 4 (1 initial + 3 retries)", calls)
	}
	if !errors.Is(err, errs.MissingRoute) {
		t.Fatalf("expected missing route error, got %v", err)
	}
}

func TestRetryStatelessAcrossCalls(t *testing.T) {
	cfg := RetryConfig{Retries: 2, Interval: time.Millisecond}
	fn := func(context.Context) error { return errs.NewCommunication("down", nil) }

	calls1 := countCalls(t, cfg, fn)
	calls2 := countCalls(t, cfg, fn)
	if calls1 != calls2 {
		t.Fatalf("Retry call counts differ across invocations: %d vs %d", calls1, calls2)
	}
}

func countCalls(t *testing.T, cfg RetryConfig, fn func(context.Context) error) int {
	t.Helper()
	calls := 0
	_ = Retry(context.Background(), cfg, func(ctx context.Context) error {
		calls++
		return fn(ctx)
	})
	return calls
}

func TestRetryAbortsOnContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- Retry(ctx, RetryConfig{Retries: 10, Interval: 50 * time.Millisecond}, func(context.Context) error {
			calls++
			if calls == 1 {
				cancel()
			}
			return errs.NewMissingRoute("still down")
		})
	}()

	select {
	case err := <-done:
		if !errors.Is(err, errs.MissingRoute) {
			t.Fatalf("expected missing route error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Retry did not return promptly after context cancellation")
	}
}
