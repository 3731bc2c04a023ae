package services

import (
	"context"

	"remindbot/internal/models"

	"github.com/sirupsen/logrus"
)

type IngestionLoop struct {
	admission *Admission
	notifier  Notifier
	logger    *logrus.Logger
}

func NewIngestionLoop(admission *Admission, notifier Notifier, logger *logrus.Logger) *IngestionLoop {
	return &IngestionLoop{
		admission: admission,
		notifier:  notifier,
		logger:    logger,
	}
}

// Run consumes messages until ctx is cancelled or the source is closed.
// Failures are contained to the message that caused them.
func (l *IngestionLoop) Run(ctx context.Context, messages <-chan models.InboundMessage) error {
	l.logger.Info("Listening for reminder requests")

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Ingestion loop is exiting")
			return nil
		case msg, ok := <-messages:
			if !ok {
				l.logger.Info("Inbound source closed, ingestion loop is exiting")
				return nil
			}
			l.handle(ctx, msg)
		}
	}
}

func (l *IngestionLoop) handle(ctx context.Context, msg models.InboundMessage) {
	log := l.logger.WithFields(logrus.Fields{
		"message_id": msg.ID,
		"author_id":  msg.AuthorID,
	})

	if !msg.IsReply() {
		log.Debug("Message is not a reply, skipping")
		return
	}

	outcome := l.admission.Admit(ctx, models.ReminderRequest{
		RequesterID: msg.AuthorID,
		TargetID:    msg.ReplyToID,
		RequestedAt: msg.CreatedAt,
		Content:     msg.Content,
	})
	log = log.WithField("outcome", outcome.Kind.String())

	switch outcome.Kind {
	case models.OutcomeCreated:
		if err := l.notifier.NotifyCreated(ctx, msg, outcome.Reminder.RemindAt); err != nil {
			log.WithError(err).Error("Failed to acknowledge reminder creation")
		}
	case models.OutcomeRateLimited:
		log.Info("Requester hit the rate limit")
		if err := l.notifier.NotifyRateLimited(ctx, msg); err != nil {
			log.WithError(err).Error("Failed to send rate limit notice")
		}
	case models.OutcomeDuplicate:
		log.Info("Requester already has a reminder for this target")
	case models.OutcomeError:
		log.WithError(outcome.Err).Error("Failed to admit reminder request")
	default:
		log.Debug("Message is not a reminder request")
	}
}
