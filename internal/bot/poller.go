package bot

import (
	"context"
	"time"

	"remindbot/internal/models"
	"remindbot/internal/retry"

	"github.com/sirupsen/logrus"
)

const defaultLongPollTimeout = 50 * time.Second

type UpdateFetcher interface {
	GetUpdates(ctx context.Context, offset int, timeout time.Duration) ([]models.Update, error)
}

// Poller long-polls getUpdates and hands each update to the dispatcher.
type Poller struct {
	fetcher    UpdateFetcher
	dispatcher *Dispatcher
	timeout    time.Duration
	backoff    *retry.Backoff
	logger     *logrus.Logger
}

func NewPoller(fetcher UpdateFetcher, dispatcher *Dispatcher, logger *logrus.Logger) *Poller {
	return &Poller{
		fetcher:    fetcher,
		dispatcher: dispatcher,
		timeout:    defaultLongPollTimeout,
		backoff: retry.NewBackoff(retry.Config{
			InitialDelay: time.Second,
			MaxDelay:     time.Minute,
			Multiplier:   2,
			MaxAttempts:  1,
			Jitter:       true,
		}),
		logger: logger,
	}
}

// Run polls until ctx is cancelled. Fetch errors back off exponentially and
// never stop the poller.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("Polling Telegram for updates")

	offset := 0
	failures := 0

	for {
		if ctx.Err() != nil {
			p.logger.Info("Poller is exiting")
			return nil
		}

		updates, err := p.fetcher.GetUpdates(ctx, offset, p.timeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			failures++
			delay := p.backoff.Delay(failures)
			p.logger.WithError(err).WithFields(logrus.Fields{
				"attempt": failures,
				"backoff": delay,
			}).Warn("Failed to fetch updates, retrying")

			select {
			case <-ctx.Done():
			case <-time.After(delay):
			}
			continue
		}
		failures = 0

		for _, update := range updates {
			if err := p.dispatcher.Dispatch(ctx, update); err != nil {
				// not acknowledged: the next getUpdates resends from here
				break
			}
			offset = update.UpdateId + 1
		}
	}
}
