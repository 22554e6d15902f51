package storeapi

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/questline/scoreboard/pkg/metrics"
)

// Default retry configuration constants.
const (
	defaultRetryAttempts = 3
	defaultRetryBase     = 200 * time.Millisecond
	defaultRetryCap      = 2 * time.Second
)

// RetryPolicy retries transient failures with capped exponential backoff
// and jitter. The budget bounds the whole logical call, not each attempt,
// so worst-case latency stays predictable.
type RetryPolicy struct {
	Attempts int
	Base     time.Duration
	Cap      time.Duration
	Budget   time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts: defaultRetryAttempts,
		Base:     defaultRetryBase,
		Cap:      defaultRetryCap,
	}
}

// Do runs fn until it succeeds, fails with a non-transient error, or the
// attempt count or budget is exhausted. Only ErrUnavailable is retried;
// semantic errors surface immediately.
func (p RetryPolicy) Do(ctx context.Context, fn func(context.Context) error) error {
	if p.Budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Budget)
		defer cancel()
	}

	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			metrics.RecordStoreRetry()
			select {
			case <-time.After(p.delay(attempt - 1)):
			case <-ctx.Done():
				return fmt.Errorf("%w: retry budget exhausted: %v", ErrUnavailable, ctx.Err())
			}
		}
		err = fn(ctx)
		if err == nil || !errors.Is(err, ErrUnavailable) {
			return err
		}
	}
	return err
}

// delay computes the backoff before the given retry (1-based), with the
// upper half randomized to avoid thundering herds.
func (p RetryPolicy) delay(retry int) time.Duration {
	base := p.Base
	if base <= 0 {
		base = defaultRetryBase
	}
	d := base << (retry - 1)
	if p.Cap > 0 && d > p.Cap {
		d = p.Cap
	}
	half := d / 2
	return half + rand.N(half+1)
}
