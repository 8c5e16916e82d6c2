// Package retry wraps remote operations with bounded exponential backoff.
package retry

import (
	"context"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/smallbiznis/ledgerline/internal/faults"
	obsmetrics "github.com/smallbiznis/ledgerline/internal/observability/metrics"
	"go.uber.org/zap"
)

// Policy retries transient failures with exponential backoff and jitter.
// Auth, validation and conflict failures are never retried.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64

	log *zap.Logger
}

// Default returns the standard policy: 3 attempts, 1s initial delay
// doubling up to 10s.
func Default() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}
}

// WithLogger returns a copy of the policy that logs each retry.
func (p Policy) WithLogger(log *zap.Logger) Policy {
	p.log = log.Named("retry")
	return p
}

// Do runs op, retrying transient failures until the attempt budget is
// exhausted. Each wait is min(MaxDelay, delay) plus jitter in
// [0, delay/4); delays grow by Multiplier and never shrink. The last
// failure is returned once attempts run out. Cancellation during a
// backoff wait returns the context error.
func (p Policy) Do(ctx context.Context, op func(context.Context) error) error {
	policy := p.withDefaults()

	exp := &backoff.ExponentialBackOff{
		InitialInterval:     policy.InitialDelay,
		RandomizationFactor: 0,
		Multiplier:          policy.Multiplier,
		MaxInterval:         policy.MaxDelay,
	}
	exp.Reset()

	var lastErr error
	for attempt := 1; ; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		class := faults.Classify(lastErr)
		if !retryable(class) || attempt >= policy.MaxAttempts {
			return lastErr
		}

		delay := exp.NextBackOff()
		wait := delay + jitter(delay)
		obsmetrics.Sync().IncRetry(string(class))
		if p.log != nil {
			p.log.Warn("retrying remote operation",
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.String("class", string(class)),
				zap.Error(lastErr),
			)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func retryable(class faults.Class) bool {
	switch class {
	case faults.Auth, faults.Validation, faults.Conflict:
		return false
	default:
		return true
	}
}

func jitter(delay time.Duration) time.Duration {
	quarter := int64(delay) / 4
	if quarter <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(quarter))
}

func (p Policy) withDefaults() Policy {
	def := Default()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = def.InitialDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = def.MaxDelay
	}
	if p.Multiplier <= 1 {
		p.Multiplier = def.Multiplier
	}
	return p
}
