package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "remindbot/internal/errors"
	"remindbot/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS reminders (
		id           BIGSERIAL PRIMARY KEY,
		target_id    TEXT NOT NULL,
		requester_id TEXT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL,
		remind_at    TIMESTAMPTZ NOT NULL,
		fired_at     TIMESTAMPTZ
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS reminders_target_requester_idx ON reminders (target_id, requester_id)`,
	`CREATE INDEX IF NOT EXISTS reminders_requester_created_idx ON reminders (requester_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS reminders_due_idx ON reminders (remind_at) WHERE fired_at IS NULL`,
}

// PgxQuerier is the subset of *pgxpool.Pool the repository needs.
type PgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresReminderRepository struct {
	db PgxQuerier
}

func NewPostgresReminderRepository(db PgxQuerier) *PostgresReminderRepository {
	return &PostgresReminderRepository{db: db}
}

func (r *PostgresReminderRepository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "failed to ensure reminders schema")
		}
	}
	return nil
}

func (r *PostgresReminderRepository) CountCreatedSince(ctx context.Context, requesterID string, since time.Time) (int, error) {
	query := `
	SELECT COUNT(*)
	FROM reminders
	WHERE requester_id = $1 AND created_at >= $2
	`

	var count int64
	if err := r.db.QueryRow(ctx, query, requesterID, since.UTC()).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "failed to count recent reminders")
	}
	return int(count), nil
}

func (r *PostgresReminderRepository) Exists(ctx context.Context, targetID, requesterID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM reminders WHERE target_id = $1 AND requester_id = $2)",
		targetID, requesterID,
	).Scan(&exists)
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "failed to check existing reminder")
	}
	return exists, nil
}

func (r *PostgresReminderRepository) Create(ctx context.Context, reminder *models.Reminder) error {
	insertQuery := `
	INSERT INTO reminders (target_id, requester_id, created_at, remind_at)
	VALUES ($1, $2, $3, $4)
	RETURNING id
	`

	err := r.db.QueryRow(ctx, insertQuery,
		reminder.TargetID,
		reminder.RequesterID,
		reminder.CreatedAt.UTC(),
		reminder.RemindAt.UTC(),
	).Scan(&reminder.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return apperrors.Wrap(ErrDuplicateReminder, apperrors.ErrCodeDatabaseQuery, "failed to create reminder")
		}
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "failed to create reminder")
	}
	return nil
}

func (r *PostgresReminderRepository) ListDue(ctx context.Context, now time.Time) ([]models.Reminder, error) {
	query := `
	SELECT id, target_id, requester_id, created_at, remind_at
	FROM reminders
	WHERE fired_at IS NULL AND remind_at <= $1
	ORDER BY remind_at ASC
	`

	rows, err := r.db.Query(ctx, query, now.UTC())
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "failed to query due reminders")
	}
	defer rows.Close()

	var reminders []models.Reminder
	for rows.Next() {
		var reminder models.Reminder
		if err := rows.Scan(&reminder.ID, &reminder.TargetID, &reminder.RequesterID, &reminder.CreatedAt, &reminder.RemindAt); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "failed to scan reminder row")
		}
		reminders = append(reminders, reminder)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "error iterating reminder rows")
	}

	return reminders, nil
}

func (r *PostgresReminderRepository) MarkFired(ctx context.Context, id int64, firedAt time.Time) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE reminders SET fired_at = $2 WHERE id = $1 AND fired_at IS NULL",
		id, firedAt.UTC(),
	)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "failed to mark reminder as fired")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reminder %d: %w", id, ErrReminderNotPending)
	}
	return nil
}
