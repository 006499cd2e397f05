package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/courtside/propcore/internal/errs"
)

// StatusError reports a non-2xx HTTP status from an upstream.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream returned %d", e.Status)
	}
	return fmt.Sprintf("upstream returned %d: %s", e.Status, e.Body)
}

// RetryPolicy is the single retry/backoff discipline shared by every
// provider call. Rate-limit statuses and transport errors are retried with
// linear-scaled backoff; all other statuses are terminal for the call.
type RetryPolicy struct {
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int
	// BaseDelay is multiplied by the attempt number between retries.
	BaseDelay time.Duration
	// RetryableStatus reports whether an HTTP status warrants a retry.
	RetryableStatus func(status int) bool

	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

// DefaultRetryPolicy retries 403/429 (blocked/rate limited) twice with a
// 500ms base delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 2,
		BaseDelay:  500 * time.Millisecond,
		RetryableStatus: func(status int) bool {
			return status == http.StatusForbidden || status == http.StatusTooManyRequests
		},
	}
}

// Do runs call, retrying per policy. A *StatusError with a retryable status
// or any transport-level error is retried until the attempt cap; a
// *StatusError with any other status is terminal immediately. Exhausting
// the cap returns errs.KindProviderUnavailable carrying the last cause.
// Retries are silent to the caller except via latency.
func (p RetryPolicy) Do(ctx context.Context, logger *slog.Logger, op string, call func(context.Context) error) error {
	if logger == nil {
		logger = slog.Default()
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxRetries+1; attempt++ {
		if err := ctx.Err(); err != nil {
			return errs.Wrap(errs.KindProviderUnavailable, err, "%s: context done before attempt %d", op, attempt)
		}

		err := call(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		var statusErr *StatusError
		if errors.As(err, &statusErr) && !p.RetryableStatus(statusErr.Status) {
			return err
		}
		if attempt > p.MaxRetries {
			break
		}

		delay := p.BaseDelay * time.Duration(attempt)
		logger.Debug("retrying upstream call", "op", op, "attempt", attempt, "delay", delay, "error", err)
		sleep(delay)
	}
	return errs.Wrap(errs.KindProviderUnavailable, lastErr, "%s: retries exhausted after %d attempts", op, p.MaxRetries+1)
}
