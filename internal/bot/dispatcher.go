package bot

import (
	"context"

	"remindbot/internal/cache"
	"remindbot/internal/models"

	"github.com/sirupsen/logrus"
)

// Dispatcher feeds updates from any source into the ingestion channel,
// dropping updates that were already delivered once.
type Dispatcher struct {
	out    chan<- models.InboundMessage
	dedup  cache.Deduper
	logger *logrus.Logger
}

func NewDispatcher(out chan<- models.InboundMessage, dedup cache.Deduper, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{out: out, dedup: dedup, logger: logger}
}

// Dispatch blocks until the message is queued or ctx is done. The returned
// error is ctx's; the update is then forgotten so a redelivery is accepted.
func (d *Dispatcher) Dispatch(ctx context.Context, update models.Update) error {
	log := d.logger.WithField("update_id", update.UpdateId)

	inbound, ok := ToInbound(update)
	if !ok {
		log.Debug("Update carries no message, skipping")
		return nil
	}

	if d.dedup != nil {
		first, err := d.dedup.FirstSeen(ctx, update.UpdateId)
		if err != nil {
			// fall through: a repeat is caught by the duplicate check anyway
			log.WithError(err).Warn("Failed to check update de-duplication")
		} else if !first {
			log.Debug("Update already processed, skipping")
			return nil
		}
	}

	select {
	case d.out <- inbound:
		return nil
	case <-ctx.Done():
		if d.dedup != nil {
			if err := d.dedup.Forget(context.WithoutCancel(ctx), update.UpdateId); err != nil {
				log.WithError(err).Warn("Failed to release update after enqueue failure")
			}
		}
		return ctx.Err()
	}
}
