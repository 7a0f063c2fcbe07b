// Package clickhouse adapts the columnar store: typed batch inserts into
// traces/spans and FINAL-qualified parameterized reads (§4.2).
package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"

	"brokle/internal/config"
)

// Store wraps the ClickHouse driver connection.
type Store struct {
	conn   driver.Conn
	logger *logrus.Logger
}

func Connect(cfg *config.Config, logger *logrus.Logger) (*Store, error) {
	options, err := clickhouse.ParseDSN(cfg.GetClickHouseURL())
	if err != nil {
		return nil, fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	options.Settings = clickhouse.Settings{
		"max_execution_time": 60,
	}
	options.DialTimeout = 5 * time.Second
	options.Compression = &clickhouse.Compression{Method: clickhouse.CompressionLZ4}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("connect to clickhouse: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	logger.Info("connected to clickhouse")
	return &Store{conn: conn, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}
