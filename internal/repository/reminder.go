package repository

import (
	"context"
	"errors"
	"time"

	"remindbot/internal/models"
)

var (
	// ErrDuplicateReminder is returned by Create when the (target, requester)
	// pair already has a row. The pair is unique for the lifetime of the
	// table, fired or not.
	//
	// TODO: confirm whether a fired reminder should keep blocking new requests
	// for its target. Scoping the unique index to fired_at IS NULL would lift it.
	ErrDuplicateReminder = errors.New("reminder already exists for target and requester")

	// ErrReminderNotPending is returned by MarkFired when the row is missing
	// or already fired.
	ErrReminderNotPending = errors.New("reminder is not pending")
)

// ReminderRepository is the durable reminder table. Every method is a single
// atomic statement; no call spans a transaction with another.
type ReminderRepository interface {
	EnsureSchema(ctx context.Context) error
	CountCreatedSince(ctx context.Context, requesterID string, since time.Time) (int, error)
	Exists(ctx context.Context, targetID, requesterID string) (bool, error)
	Create(ctx context.Context, reminder *models.Reminder) error
	ListDue(ctx context.Context, now time.Time) ([]models.Reminder, error)
	MarkFired(ctx context.Context, id int64, firedAt time.Time) error
}
