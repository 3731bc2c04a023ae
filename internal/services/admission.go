package services

import (
	"context"
	"errors"
	"time"

	"remindbot/internal/duration"
	"remindbot/internal/models"
	"remindbot/internal/repository"

	"github.com/sirupsen/logrus"
)

const (
	DefaultRateLimitMax    = 5
	DefaultRateLimitWindow = time.Hour
)

type AdmissionConfig struct {
	RateLimitMax    int
	RateLimitWindow time.Duration
}

// Admission decides whether an inbound reply becomes a reminder.
//
// The rate-limit count, the duplicate check and the insert are separate
// statements. Two concurrent requests from one user may both pass the rate
// limit; two for the same target are settled by the unique index, which
// makes the losing insert fail with repository.ErrDuplicateReminder.
type Admission struct {
	repo    repository.ReminderRepository
	matcher *Matcher
	max     int
	window  time.Duration
	logger  *logrus.Logger
	now     func() time.Time
}

func NewAdmission(repo repository.ReminderRepository, matcher *Matcher, config AdmissionConfig, logger *logrus.Logger) *Admission {
	if config.RateLimitMax <= 0 {
		config.RateLimitMax = DefaultRateLimitMax
	}
	if config.RateLimitWindow <= 0 {
		config.RateLimitWindow = DefaultRateLimitWindow
	}
	return &Admission{
		repo:    repo,
		matcher: matcher,
		max:     config.RateLimitMax,
		window:  config.RateLimitWindow,
		logger:  logger,
		now:     time.Now,
	}
}

func (a *Admission) Admit(ctx context.Context, req models.ReminderRequest) models.Outcome {
	phrase, ok := a.matcher.Extract(req.Content)
	if !ok {
		return models.Outcome{Kind: models.OutcomeIgnored}
	}

	remindIn, err := duration.Parse(phrase)
	if err != nil {
		a.logger.WithFields(logrus.Fields{
			"requester_id": req.RequesterID,
			"phrase":       phrase,
		}).Debug("Ignoring request with invalid duration")
		return models.Outcome{Kind: models.OutcomeIgnored}
	}

	now := a.now()

	count, err := a.repo.CountCreatedSince(ctx, req.RequesterID, now.Add(-a.window))
	if err != nil {
		return models.Outcome{Kind: models.OutcomeError, Err: err}
	}
	if count >= a.max {
		return models.Outcome{Kind: models.OutcomeRateLimited}
	}

	exists, err := a.repo.Exists(ctx, req.TargetID, req.RequesterID)
	if err != nil {
		return models.Outcome{Kind: models.OutcomeError, Err: err}
	}
	if exists {
		return models.Outcome{Kind: models.OutcomeDuplicate}
	}

	// a message stamped ahead of our clock would break remind_at >= created_at
	createdAt := req.RequestedAt
	if createdAt.IsZero() || createdAt.After(now) {
		createdAt = now
	}

	reminder := &models.Reminder{
		TargetID:    req.TargetID,
		RequesterID: req.RequesterID,
		CreatedAt:   createdAt,
		RemindAt:    now.Add(remindIn),
	}
	if err := a.repo.Create(ctx, reminder); err != nil {
		if errors.Is(err, repository.ErrDuplicateReminder) {
			a.logger.WithFields(logrus.Fields{
				"requester_id": req.RequesterID,
				"target_id":    req.TargetID,
			}).Info("Concurrent request for the same target lost the insert")
		}
		return models.Outcome{Kind: models.OutcomeError, Err: err}
	}

	a.logger.WithFields(logrus.Fields{
		"reminder_id":  reminder.ID,
		"requester_id": reminder.RequesterID,
		"target_id":    reminder.TargetID,
		"remind_at":    reminder.RemindAt,
	}).Info("Reminder created successfully")

	return models.Outcome{Kind: models.OutcomeCreated, Reminder: reminder}
}
