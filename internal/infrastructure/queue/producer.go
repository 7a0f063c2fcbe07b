package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// streamTTL bounds how long an unprocessed project stream survives before
// Redis expires it outright, capping storage for abandoned projects.
const streamTTL = 7 * 24 * time.Hour

// Producer publishes ingest task references onto per-project Redis Streams.
type Producer struct {
	conn   *Conn
	logger *logrus.Logger
}

// NewProducer builds a Producer over an established connection.
func NewProducer(conn *Conn, logger *logrus.Logger) *Producer {
	return &Producer{conn: conn, logger: logger}
}

// Publish adds a task reference to its project's stream and returns the
// assigned stream entry ID. The stream's TTL is refreshed on every publish
// so that actively-ingesting projects never see their backlog expire
// mid-flight.
func (p *Producer) Publish(ctx context.Context, task IngestTask) (string, error) {
	if task.ProjectID == "" {
		return "", fmt.Errorf("project id is required")
	}
	if task.BlobKey == "" {
		return "", fmt.Errorf("blob key is required")
	}

	key := streamKey(task.ProjectID)
	id, err := p.conn.Client.XAdd(ctx, &redis.XAddArgs{
		Stream: key,
		Values: map[string]interface{}{
			"project_id": task.ProjectID,
			"blob_key":   task.BlobKey,
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to publish ingest task: %w", err)
	}

	if err := p.conn.Client.Expire(ctx, key, streamTTL).Err(); err != nil {
		p.logger.WithError(err).WithField("stream", key).Warn("failed to refresh stream ttl")
	}

	p.logger.WithFields(logrus.Fields{
		"stream_id":  id,
		"project_id": task.ProjectID,
		"blob_key":   task.BlobKey,
	}).Debug("published ingest task")
	return id, nil
}
