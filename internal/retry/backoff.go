package retry

import (
	"context"
	"math/rand/v2"
	"time"
)

// Config describes an exponential backoff schedule.
type Config struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	MaxAttempts  int
	Jitter       bool
}

func DefaultConfig() Config {
	return Config{
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		MaxAttempts:  5,
		Jitter:       true,
	}
}

type Backoff struct {
	config Config
}

func NewBackoff(config Config) *Backoff {
	if config.Multiplier < 1 {
		config.Multiplier = 1
	}
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	return &Backoff{config: config}
}

// Retry runs operation until it succeeds, the attempts are exhausted or ctx
// is done. The last operation error is returned on exhaustion.
func (b *Backoff) Retry(ctx context.Context, operation func() error) error {
	return b.RetryIf(ctx, operation, func(error) bool { return true })
}

// RetryIf is Retry that gives up immediately on errors shouldRetry rejects.
func (b *Backoff) RetryIf(ctx context.Context, operation func() error, shouldRetry func(error) bool) error {
	var lastErr error

	for attempt := 1; attempt <= b.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		if !shouldRetry(err) || attempt == b.config.MaxAttempts {
			break
		}

		timer := time.NewTimer(b.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}

// Delay returns the wait after the given (1-based) failed attempt.
func (b *Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := float64(b.config.InitialDelay)
	for i := 1; i < attempt; i++ {
		delay *= b.config.Multiplier
		if delay >= float64(b.config.MaxDelay) {
			break
		}
	}
	if delay > float64(b.config.MaxDelay) {
		delay = float64(b.config.MaxDelay)
	}

	// ±25%, clamped to [InitialDelay, MaxDelay]
	if b.config.Jitter {
		jitter := delay * 0.25
		delay += (rand.Float64() - 0.5) * 2 * jitter
		if delay < float64(b.config.InitialDelay) {
			delay = float64(b.config.InitialDelay)
		}
		if delay > float64(b.config.MaxDelay) {
			delay = float64(b.config.MaxDelay)
		}
	}

	return time.Duration(delay)
}
