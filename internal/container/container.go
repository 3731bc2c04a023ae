package container

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"remindbot/internal/bot"
	"remindbot/internal/cache"
	"remindbot/internal/config"
	"remindbot/internal/database"
	apperrors "remindbot/internal/errors"
	"remindbot/internal/handlers"
	"remindbot/internal/logger"
	"remindbot/internal/models"
	"remindbot/internal/repository"
	"remindbot/internal/retry"
	"remindbot/internal/services"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	inboundBuffer       = 100
	botDescription      = "Reply to any message with \"@%s in 3 days\" and I will remind you about it."
	botShortDescription = "Simple bot for reminding you about messages"
)

type Container struct {
	Config     *config.Config
	Logger     *logrus.Logger
	Repository repository.ReminderRepository
	Redis      *redis.Client
	Telegram   *services.TelegramClient
	Ingestion  *services.IngestionLoop
	Delivery   *services.DeliveryLoop
	Poller     *bot.Poller
	Inbound    chan models.InboundMessage
	Router     http.Handler

	pool  *pgxpool.Pool
	sqlDB *sql.DB
}

// New connects every dependency and builds the loops. Any error here is a
// startup failure and should abort the process.
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	log := logger.Get()
	c := &Container{Config: cfg, Logger: log}

	backoff := retry.NewBackoff(retry.DefaultConfig())

	if err := c.openRepository(ctx, backoff); err != nil {
		return nil, err
	}
	if err := c.Repository.EnsureSchema(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to prepare schema: %w", err)
	}

	var dedup cache.Deduper = cache.NewMemoryDeduper(0)
	if cfg.RedisHost != "" {
		err := backoff.Retry(ctx, func() error {
			client, err := cache.NewRedis(ctx, cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)
			if err != nil {
				log.WithError(err).Warn("Redis not reachable yet")
				return err
			}
			c.Redis = client
			return nil
		})
		if err != nil {
			c.Close()
			return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseConnection, "failed to initialize redis")
		}
		dedup = cache.NewRedisDeduper(c.Redis, cache.DefaultUpdateTTL)
	}

	c.Telegram = services.NewTelegramClient(services.TelegramConfig{
		BaseURL:        cfg.TelegramAPIURL,
		Token:          cfg.BotToken,
		SendRatePerSec: cfg.SendRatePerSec,
	})

	username, err := c.identify(ctx, backoff)
	if err != nil {
		c.Close()
		return nil, err
	}

	matcher, err := services.NewMatcher(username)
	if err != nil {
		c.Close()
		return nil, err
	}

	notifier := services.NewTelegramNotifier(c.Telegram)
	admission := services.NewAdmission(c.Repository, matcher, services.AdmissionConfig{
		RateLimitMax:    cfg.RateLimitMax,
		RateLimitWindow: cfg.RateLimitWindow,
	}, log)
	c.Ingestion = services.NewIngestionLoop(admission, notifier, log)
	c.Delivery = services.NewDeliveryLoop(c.Repository, notifier, cfg.DeliveryInterval, log)

	c.Inbound = make(chan models.InboundMessage, inboundBuffer)
	dispatcher := bot.NewDispatcher(c.Inbound, dedup, log)

	if err := c.configureSource(ctx, dispatcher); err != nil {
		c.Close()
		return nil, err
	}

	return c, nil
}

func (c *Container) openRepository(ctx context.Context, backoff *retry.Backoff) error {
	driver, dsn, err := database.ParseURL(c.Config.DatabaseURL)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInvalidConfig, "invalid DATABASE_URL")
	}

	switch driver {
	case database.DriverPostgres:
		err = backoff.Retry(ctx, func() error {
			pool, err := database.NewPostgres(ctx, dsn)
			if err != nil {
				c.Logger.WithError(err).Warn("Database not reachable yet")
				return err
			}
			c.pool = pool
			return nil
		})
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeDatabaseConnection, "failed to initialize database")
		}
		c.Repository = repository.NewPostgresReminderRepository(c.pool)
	case database.DriverSQLite:
		db, err := database.NewSQLite(ctx, dsn)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeDatabaseConnection, "failed to initialize database")
		}
		c.sqlDB = db
		c.Repository = repository.NewSQLiteReminderRepository(db)
	}
	return nil
}

// identify checks the token and returns the address requests must mention.
func (c *Container) identify(ctx context.Context, backoff *retry.Backoff) (string, error) {
	var me *models.User
	err := backoff.RetryIf(ctx, func() error {
		var err error
		me, err = c.Telegram.GetMe(ctx)
		return err
	}, apperrors.IsRetryable)
	if err != nil {
		return "", fmt.Errorf("failed to load bot identity: %w", err)
	}

	username := c.Config.BotUsername
	if username == "" {
		username = me.Username
	}
	c.Logger.WithField("username", username).Info("Bot identity loaded")

	if err := c.Telegram.SetMyDescription(ctx, fmt.Sprintf(botDescription, username), botShortDescription); err != nil {
		c.Logger.WithError(err).Warn("Failed to publish bot description")
	}
	return username, nil
}

func (c *Container) configureSource(ctx context.Context, dispatcher *bot.Dispatcher) error {
	var webhook http.Handler
	webhookPath := ""

	switch c.Config.Mode {
	case config.ModeWebhook:
		u, err := url.Parse(c.Config.WebhookURL)
		if err != nil || u.Path == "" {
			return apperrors.New(apperrors.ErrCodeInvalidConfig, "WEBHOOK_URL must be an absolute URL with a path")
		}
		if err := c.Telegram.SetWebhook(ctx, c.Config.WebhookURL, c.Config.WebhookSecret); err != nil {
			return fmt.Errorf("failed to register webhook: %w", err)
		}
		webhookPath = u.Path
		webhook = handlers.WebhookHandler(dispatcher, c.Config.WebhookSecret, c.Logger)
	default:
		if err := c.Telegram.DeleteWebhook(ctx); err != nil {
			return fmt.Errorf("failed to switch to polling: %w", err)
		}
		c.Poller = bot.NewPoller(c.Telegram, dispatcher, c.Logger)
	}

	c.Router = handlers.NewRouter(webhookPath, webhook, handlers.HealthHandler(time.Now()))
	return nil
}

func (c *Container) Close() {
	if c.Redis != nil {
		c.Redis.Close()
		c.Logger.Info("Redis connection closed")
	}
	if c.pool != nil {
		c.pool.Close()
		c.Logger.Info("Database connection closed")
	}
	if c.sqlDB != nil {
		c.sqlDB.Close()
		c.Logger.Info("Database connection closed")
	}
}
