package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	apperrors "remindbot/internal/errors"
	"remindbot/internal/models"

	"github.com/mattn/go-sqlite3"
)

// Fixed-width UTC layout so text comparison in SQL orders like time.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS reminders (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	target_id    TEXT NOT NULL,
	requester_id TEXT NOT NULL,
	created_at   TEXT NOT NULL,
	remind_at    TEXT NOT NULL,
	fired_at     TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS reminders_target_requester_idx ON reminders(target_id, requester_id);
CREATE INDEX IF NOT EXISTS reminders_requester_created_idx ON reminders(requester_id, created_at);
CREATE INDEX IF NOT EXISTS reminders_due_idx ON reminders(remind_at) WHERE fired_at IS NULL;
`

type SQLiteReminderRepository struct {
	db *sql.DB
}

func NewSQLiteReminderRepository(db *sql.DB) *SQLiteReminderRepository {
	return &SQLiteReminderRepository{db: db}
}

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseSQLiteTime(s string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, s)
}

func (r *SQLiteReminderRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, sqliteSchema); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "failed to ensure reminders schema")
	}
	return nil
}

func (r *SQLiteReminderRepository) CountCreatedSince(ctx context.Context, requesterID string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM reminders WHERE requester_id = ? AND created_at >= ?",
		requesterID, formatSQLiteTime(since),
	).Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "failed to count recent reminders")
	}
	return count, nil
}

func (r *SQLiteReminderRepository) Exists(ctx context.Context, targetID, requesterID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM reminders WHERE target_id = ? AND requester_id = ?)",
		targetID, requesterID,
	).Scan(&exists)
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "failed to check existing reminder")
	}
	return exists, nil
}

func (r *SQLiteReminderRepository) Create(ctx context.Context, reminder *models.Reminder) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO reminders (target_id, requester_id, created_at, remind_at) VALUES (?, ?, ?, ?)",
		reminder.TargetID,
		reminder.RequesterID,
		formatSQLiteTime(reminder.CreatedAt),
		formatSQLiteTime(reminder.RemindAt),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return apperrors.Wrap(ErrDuplicateReminder, apperrors.ErrCodeDatabaseQuery, "failed to create reminder")
		}
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "failed to create reminder")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "failed to read reminder id")
	}
	reminder.ID = id
	return nil
}

func (r *SQLiteReminderRepository) ListDue(ctx context.Context, now time.Time) ([]models.Reminder, error) {
	query := `
		SELECT id, target_id, requester_id, created_at, remind_at
		FROM reminders
		WHERE fired_at IS NULL AND remind_at <= ?
		ORDER BY remind_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, formatSQLiteTime(now))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "failed to query due reminders")
	}
	defer rows.Close()

	var reminders []models.Reminder
	for rows.Next() {
		var (
			reminder         models.Reminder
			createdAt, dueAt string
		)
		if err := rows.Scan(&reminder.ID, &reminder.TargetID, &reminder.RequesterID, &createdAt, &dueAt); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "failed to scan reminder row")
		}
		if reminder.CreatedAt, err = parseSQLiteTime(createdAt); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "invalid created_at")
		}
		if reminder.RemindAt, err = parseSQLiteTime(dueAt); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "invalid remind_at")
		}
		reminders = append(reminders, reminder)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "error iterating reminder rows")
	}

	return reminders, nil
}

func (r *SQLiteReminderRepository) MarkFired(ctx context.Context, id int64, firedAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE reminders SET fired_at = ? WHERE id = ? AND fired_at IS NULL",
		formatSQLiteTime(firedAt), id,
	)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "failed to mark reminder as fired")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "failed to read affected rows")
	}
	if affected == 0 {
		return fmt.Errorf("reminder %d: %w", id, ErrReminderNotPending)
	}
	return nil
}

// Get loads one reminder including fired_at.
func (r *SQLiteReminderRepository) Get(ctx context.Context, id int64) (*models.Reminder, error) {
	var (
		reminder         models.Reminder
		createdAt, dueAt string
		firedAt          sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT id, target_id, requester_id, created_at, remind_at, fired_at FROM reminders WHERE id = ?", id,
	).Scan(&reminder.ID, &reminder.TargetID, &reminder.RequesterID, &createdAt, &dueAt, &firedAt)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "failed to load reminder")
	}

	if reminder.CreatedAt, err = parseSQLiteTime(createdAt); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "invalid created_at")
	}
	if reminder.RemindAt, err = parseSQLiteTime(dueAt); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "invalid remind_at")
	}
	if firedAt.Valid {
		t, err := parseSQLiteTime(firedAt.String)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "invalid fired_at")
		}
		reminder.FiredAt = &t
	}
	return &reminder, nil
}
