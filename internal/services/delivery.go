package services

import (
	"context"
	"errors"
	"time"

	"remindbot/internal/repository"

	"github.com/sirupsen/logrus"
)

const (
	DefaultDeliveryInterval = time.Minute
	markFiredTimeout        = 10 * time.Second
)

type CycleStats struct {
	Due       int
	Delivered int
	Failed    int
}

// DeliveryLoop scans for due reminders and delivers them.
//
// Only one instance may run against a given store: the scan and the
// fired_at update are not exclusive across processes, so two loops would
// deliver the same reminder twice.
type DeliveryLoop struct {
	repo     repository.ReminderRepository
	notifier Notifier
	interval time.Duration
	logger   *logrus.Logger
	now      func() time.Time
}

func NewDeliveryLoop(repo repository.ReminderRepository, notifier Notifier, interval time.Duration, logger *logrus.Logger) *DeliveryLoop {
	if interval <= 0 {
		interval = DefaultDeliveryInterval
	}
	return &DeliveryLoop{
		repo:     repo,
		notifier: notifier,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run scans immediately, then once per interval, until ctx is cancelled.
func (l *DeliveryLoop) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Delivery loop is exiting")
			return nil
		case <-timer.C:
		}

		l.RunOnce(ctx)
		timer.Reset(l.interval)
	}
}

// RunOnce performs a single scan. Each due reminder is notified first and
// marked fired only afterwards, so a failure between the two steps repeats
// the notification on the next cycle rather than losing it.
func (l *DeliveryLoop) RunOnce(ctx context.Context) CycleStats {
	var stats CycleStats

	l.logger.Debug("Checking for due reminders...")

	reminders, err := l.repo.ListDue(ctx, l.now())
	if err != nil {
		l.logger.WithError(err).Error("Failed to fetch due reminders")
		return stats
	}
	stats.Due = len(reminders)

	for _, reminder := range reminders {
		if ctx.Err() != nil {
			break
		}

		log := l.logger.WithFields(logrus.Fields{
			"reminder_id":  reminder.ID,
			"requester_id": reminder.RequesterID,
			"target_id":    reminder.TargetID,
		})

		if err := l.notifier.NotifyDue(ctx, reminder); err != nil {
			log.WithError(err).Error("Failed to send reminder notification")
			stats.Failed++
			continue
		}

		if err := l.markFired(ctx, reminder.ID); err != nil {
			if errors.Is(err, repository.ErrReminderNotPending) {
				log.Warn("Reminder was already marked fired")
			} else {
				log.WithError(err).Error("Failed to mark reminder as fired")
			}
			stats.Failed++
			continue
		}

		stats.Delivered++
		log.Info("Reminder sent successfully")
	}

	if stats.Due > 0 {
		l.logger.WithFields(logrus.Fields{
			"due":       stats.Due,
			"delivered": stats.Delivered,
			"errors":    stats.Failed,
		}).Info("Processed due reminders")
	}

	return stats
}

// markFired outlives cancellation: once the notification went out, losing
// the update would only cause a repeat delivery.
func (l *DeliveryLoop) markFired(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), markFiredTimeout)
	defer cancel()
	return l.repo.MarkFired(ctx, id, l.now())
}
