package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"remindbot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedFetcher returns one scripted response per call and cancels the
// poller once the script runs out.
type scriptedFetcher struct {
	mu      sync.Mutex
	offsets []int
	script  []func() ([]models.Update, error)
	cancel  context.CancelFunc
}

func (f *scriptedFetcher) GetUpdates(ctx context.Context, offset int, _ time.Duration) ([]models.Update, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.offsets = append(f.offsets, offset)
	if len(f.script) == 0 {
		f.cancel()
		return nil, ctx.Err()
	}
	next := f.script[0]
	f.script = f.script[1:]
	return next()
}

func runPoller(t *testing.T, ctx context.Context, p *Poller) {
	t.Helper()

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestPoller_AdvancesOffset(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan models.InboundMessage, 8)
	fetcher := &scriptedFetcher{
		cancel: cancel,
		script: []func() ([]models.Update, error){
			func() ([]models.Update, error) {
				return []models.Update{messageUpdate(5, 1), {UpdateId: 6}, messageUpdate(7, 2)}, nil
			},
			func() ([]models.Update, error) { return nil, nil },
		},
	}
	p := NewPoller(fetcher, NewDispatcher(out, nil, newTestLogger()), newTestLogger())

	runPoller(t, ctx, p)

	assert.Equal(t, []int{0, 8, 8}, fetcher.offsets)
	assert.Len(t, out, 2)
}

func TestPoller_BacksOffOnError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan models.InboundMessage, 8)
	fetcher := &scriptedFetcher{
		cancel: cancel,
		script: []func() ([]models.Update, error){
			func() ([]models.Update, error) { return nil, errors.New("bad gateway") },
			func() ([]models.Update, error) { return []models.Update{messageUpdate(3, 1)}, nil },
		},
	}
	p := NewPoller(fetcher, NewDispatcher(out, nil, newTestLogger()), newTestLogger())

	start := time.Now()
	runPoller(t, ctx, p)

	assert.GreaterOrEqual(t, time.Since(start), time.Second)
	assert.Equal(t, []int{0, 0, 4}, fetcher.offsets)
	assert.Len(t, out, 1)
}

func TestPoller_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := &scriptedFetcher{cancel: cancel}
	p := NewPoller(fetcher, NewDispatcher(make(chan models.InboundMessage), nil, newTestLogger()), newTestLogger())

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, fetcher.offsets)
}
