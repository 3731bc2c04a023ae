package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"remindbot/internal/database"
	"remindbot/internal/models"
	"remindbot/internal/repository"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) EnsureSchema(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockRepository) CountCreatedSince(ctx context.Context, requesterID string, since time.Time) (int, error) {
	args := m.Called(ctx, requesterID, since)
	return args.Int(0), args.Error(1)
}

func (m *mockRepository) Exists(ctx context.Context, targetID, requesterID string) (bool, error) {
	args := m.Called(ctx, targetID, requesterID)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepository) Create(ctx context.Context, reminder *models.Reminder) error {
	args := m.Called(ctx, reminder)
	return args.Error(0)
}

func (m *mockRepository) ListDue(ctx context.Context, now time.Time) ([]models.Reminder, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Reminder), args.Error(1)
}

func (m *mockRepository) MarkFired(ctx context.Context, id int64, firedAt time.Time) error {
	args := m.Called(ctx, id, firedAt)
	return args.Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifyCreated(ctx context.Context, request models.InboundMessage, remindAt time.Time) error {
	args := m.Called(ctx, request, remindAt)
	return args.Error(0)
}

func (m *mockNotifier) NotifyRateLimited(ctx context.Context, request models.InboundMessage) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *mockNotifier) NotifyDue(ctx context.Context, reminder models.Reminder) error {
	args := m.Called(ctx, reminder)
	return args.Error(0)
}

type mockSender struct {
	mock.Mock
}

func (m *mockSender) SendMessage(ctx context.Context, chatID int64, text string, replyTo int) error {
	args := m.Called(ctx, chatID, text, replyTo)
	return args.Error(0)
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newSQLiteRepository(t *testing.T) *repository.SQLiteReminderRepository {
	t.Helper()

	db, err := database.NewSQLite(context.Background(), filepath.Join(t.TempDir(), "reminders.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := repository.NewSQLiteReminderRepository(db)
	require.NoError(t, repo.EnsureSchema(context.Background()))
	return repo
}

func newTestMatcher(t *testing.T) *Matcher {
	t.Helper()

	m, err := NewMatcher("bot")
	require.NoError(t, err)
	return m
}
