package retry

import (
	"context"
	"fmt"
	"testing"
	"time"

	errs "vkdump/pkg/errors"
)

func fastConfig(maxAttempts int) *Config {
	return &Config{
		MaxAttempts: maxAttempts,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
	}
}

func TestDoSucceedsAfterRetries(t *testing.T) {
	attempts := 0
	err := Do(func() error {
		attempts++
		if attempts < 3 {
			return &errs.Error{Type: errs.ErrorTypeNetwork, Message: "flaky"}
		}
		return nil
	}, fastConfig(5))

	if err != nil {
		t.Fatalf("Do() error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("got %d attempts, want 3", attempts)
	}
}

func TestDoStopsOnPermanentError(t *testing.T) {
	attempts := 0
	err := Do(func() error {
		attempts++
		return &errs.Error{Type: errs.ErrorTypeAuth, Message: "denied"}
	}, fastConfig(5))

	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if attempts != 1 {
		t.Errorf("got %d attempts, want 1", attempts)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	attempts := 0
	err := Do(func() error {
		attempts++
		return &errs.Error{Type: errs.ErrorTypeServerError, Message: "boom"}
	}, fastConfig(3))

	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if attempts != 3 {
		t.Errorf("got %d attempts, want 3", attempts)
	}

	var typed *errs.Error
	if !errs.As(err, &typed) {
		t.Error("wrapped error lost its type")
	}
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := fastConfig(0)
	cfg.Context = ctx
	cfg.Backoff = &ConstantBackoff{Delay: time.Second}

	err := Do(func() error {
		return &errs.Error{Type: errs.ErrorTypeNetwork, Message: "flaky"}
	}, cfg)

	if err == nil {
		t.Fatal("expected cancellation error, got nil")
	}
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	result, err := DoWithResult(func() (string, error) {
		attempts++
		if attempts < 2 {
			return "", &errs.Error{Type: errs.ErrorTypeRateLimit, Message: "slow down"}
		}
		return "done", nil
	}, fastConfig(5))

	if err != nil {
		t.Fatalf("DoWithResult() error: %v", err)
	}
	if result != "done" {
		t.Errorf("result = %q, want %q", result, "done")
	}
}

func TestDefaultRetryIf(t *testing.T) {
	if DefaultRetryIf(nil) {
		t.Error("nil error should not be retried")
	}
	if DefaultRetryIf(context.Canceled) {
		t.Error("cancelled context should not be retried")
	}
	if !DefaultRetryIf(fmt.Errorf("unknown")) {
		t.Error("untyped errors default to retryable")
	}
	if DefaultRetryIf(&errs.Error{Type: errs.ErrorTypeParsing}) {
		t.Error("parsing errors should not be retried")
	}
}

func TestExponentialBackoffGrows(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   time.Second,
		Multiplier: 2.0,
	}

	first := backoff.NextDelay(1)
	second := backoff.NextDelay(2)
	if second <= first {
		t.Errorf("delay did not grow: %v then %v", first, second)
	}

	capped := backoff.NextDelay(20)
	if capped > time.Second {
		t.Errorf("delay %v exceeds max", capped)
	}
}

func TestErrorTypeBackoffSelection(t *testing.T) {
	backoff := NewErrorTypeBackoff()

	if backoff.GetBackoffForError("rate_limit") != backoff.RateLimitBackoff {
		t.Error("rate_limit errors should use the rate limit backoff")
	}
	if backoff.GetBackoffForError("network") != backoff.NetworkErrorBackoff {
		t.Error("network errors should use the network backoff")
	}
	if backoff.GetBackoffForError("parsing") != backoff.DefaultBackoff {
		t.Error("unmapped error types should use the default backoff")
	}

	// Rate limit delays start much higher than network delays
	if backoff.RateLimitBackoff.NextDelay(1) <= backoff.NetworkErrorBackoff.NextDelay(1) {
		t.Error("rate limit backoff should start with a longer delay")
	}
}

func TestRetrierWithOverrides(t *testing.T) {
	attempts := 0
	retrier := NewRetrier(fastConfig(1)).WithMaxAttempts(4)

	err := retrier.Do(func() error {
		attempts++
		return &errs.Error{Type: errs.ErrorTypeNetwork, Message: "flaky"}
	})

	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if attempts != 4 {
		t.Errorf("got %d attempts, want 4", attempts)
	}
}
