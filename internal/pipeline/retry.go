package pipeline

import (
	"context"
	"time"

	"jsonpress/internal/config"
	"jsonpress/internal/services"
)

// RetryPolicy bounds how transient failures are retried.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// PolicyFromConfig builds the retry policy from workflow settings.
func PolicyFromConfig(cfg *config.Config) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  cfg.Workflow.RetryMaxAttempts,
		InitialDelay: time.Duration(cfg.Workflow.RetryInitialMillis) * time.Millisecond,
		MaxDelay:     time.Duration(cfg.Workflow.RetryMaxMillis) * time.Millisecond,
		Multiplier:   2,
	}
}

// Do runs fn, retrying with exponential backoff while the error is
// retryable. Non-retryable errors and context cancellation return
// immediately; the last error is returned once attempts are exhausted.
func (p RetryPolicy) Do(ctx context.Context, fn func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.InitialDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	multiplier := p.Multiplier
	if multiplier < 1 {
		multiplier = 2
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil || !services.IsRetryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * multiplier)
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return err
}
