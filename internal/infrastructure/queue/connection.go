// Package queue adapts Redis Streams into an at-least-once reference queue:
// the ingestion endpoint publishes a pointer to the raw payload it just
// wrote to blob storage, and the transform worker consumes that pointer,
// downloads the payload, and writes the columnar result (§4.4).
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"brokle/internal/config"
)

// Conn wraps a Redis client used for both stream production and consumption.
type Conn struct {
	Client *redis.Client
	logger *logrus.Logger
}

// Connect parses the configured Redis URL and verifies connectivity.
func Connect(cfg *config.Config, logger *logrus.Logger) (*Conn, error) {
	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	opt.MaxRetries = 3
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second
	opt.PoolSize = 10
	opt.PoolTimeout = 30 * time.Second

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	logger.Info("connected to redis task queue")
	return &Conn{Client: client, logger: logger}, nil
}

// Close closes the underlying Redis client.
func (c *Conn) Close() error {
	return c.Client.Close()
}
