package cache

import (
	"context"
	"fmt"

	"remindbot/internal/logger"

	"github.com/redis/go-redis/v9"
)

func NewRedis(ctx context.Context, host, port, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: password,
		DB:       0,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Get().Info("Connection to Redis successful")
	return client, nil
}
