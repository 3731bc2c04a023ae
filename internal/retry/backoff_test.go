package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(attempts int) Config {
	return Config{
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
		MaxAttempts:  attempts,
	}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	b := NewBackoff(fastConfig(5))

	calls := 0
	err := b.Retry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_ReturnsLastError(t *testing.T) {
	b := NewBackoff(fastConfig(3))

	calls := 0
	err := b.Retry(context.Background(), func() error {
		calls++
		return errors.New("still down")
	})

	require.EqualError(t, err, "still down")
	assert.Equal(t, 3, calls)
}

func TestRetryIf_StopsOnPermanentError(t *testing.T) {
	b := NewBackoff(fastConfig(5))
	permanent := errors.New("bad credentials")

	calls := 0
	err := b.RetryIf(context.Background(), func() error {
		calls++
		return permanent
	}, func(err error) bool { return !errors.Is(err, permanent) })

	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRetry_ContextCancelled(t *testing.T) {
	b := NewBackoff(Config{InitialDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 1, MaxAttempts: 3})
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- b.Retry(ctx, func() error {
			calls++
			return errors.New("fail")
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Retry did not observe cancellation")
	}
	assert.Equal(t, 1, calls)
}

func TestDelay_Exponential(t *testing.T) {
	b := NewBackoff(Config{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2, MaxAttempts: 10})

	assert.Equal(t, 100*time.Millisecond, b.Delay(1))
	assert.Equal(t, 200*time.Millisecond, b.Delay(2))
	assert.Equal(t, 400*time.Millisecond, b.Delay(3))
	assert.Equal(t, time.Second, b.Delay(5))
	assert.Equal(t, time.Second, b.Delay(50))
}

func TestDelay_JitterBounds(t *testing.T) {
	b := NewBackoff(Config{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2, MaxAttempts: 10, Jitter: true})

	for i := 0; i < 100; i++ {
		d := b.Delay(3)
		assert.GreaterOrEqual(t, d, 300*time.Millisecond)
		assert.LessOrEqual(t, d, 500*time.Millisecond)
	}
}
