package queue

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"brokle/internal/observability/metrics"
)

const (
	maxDeliveryAttempts = 5
	baseRetryDelay      = 2 * time.Second
	maxRetryDelay       = 10 * time.Minute
	dlqRetention        = 7 * 24 * time.Hour
	dlqMaxLength        = 1000

	// reclaimIdleThreshold is the PEL idle time past which a message is
	// presumed abandoned by a crashed worker rather than merely slow or
	// mid-retry, matching §4.6's "Message invisibility window >= 1 hour":
	// the in-process retry loop below never leaves a message idle this
	// long on its own, so crossing this threshold means the consumer that
	// claimed it is gone.
	reclaimIdleThreshold = 1 * time.Hour
	reclaimInterval      = 5 * time.Minute
	reclaimBatchSize     = 50
)

// Handler processes a single ingest task. A non-nil error is retried
// in-process with backoff (subject to the retry budget above) unless
// wrapped with Fatal, in which case it is dead-lettered immediately.
type Handler func(ctx context.Context, task IngestTask) error

// ConsumerConfig tunes discovery and read behavior.
type ConsumerConfig struct {
	ConsumerID        string
	BatchSize         int64
	BlockDuration     time.Duration
	DiscoveryInterval time.Duration
	MaxStreamsPerRead int
}

func defaultConsumerConfig(consumerID string) ConsumerConfig {
	return ConsumerConfig{
		ConsumerID:        consumerID,
		BatchSize:         20,
		BlockDuration:     time.Second,
		DiscoveryInterval: 15 * time.Second,
		MaxStreamsPerRead: 20,
	}
}

// Consumer pulls ingest tasks off every project stream it discovers and
// dispatches them to a Handler, with retry-with-backoff and dead-lettering
// for tasks that never succeed.
type Consumer struct {
	conn    *Conn
	handler Handler
	logger  *logrus.Logger
	cfg     ConsumerConfig

	mu            sync.RWMutex
	activeStreams map[string]struct{}

	quit chan struct{}
	wg   sync.WaitGroup

	running int64
}

// NewConsumer constructs a Consumer. Pass a nil cfg to use the defaults.
func NewConsumer(conn *Conn, handler Handler, logger *logrus.Logger, cfg *ConsumerConfig) *Consumer {
	resolved := defaultConsumerConfig(fmt.Sprintf("worker-%d", time.Now().UnixNano()))
	if cfg != nil {
		resolved = *cfg
		if resolved.ConsumerID == "" {
			resolved.ConsumerID = fmt.Sprintf("worker-%d", time.Now().UnixNano())
		}
	}

	return &Consumer{
		conn:          conn,
		handler:       handler,
		logger:        logger,
		cfg:           resolved,
		activeStreams: make(map[string]struct{}),
		quit:          make(chan struct{}),
	}
}

// Start launches the discovery, read, and crash-reclaim loops. It returns
// immediately; call Stop to shut down gracefully.
func (c *Consumer) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapInt64(&c.running, 0, 1) {
		return errors.New("consumer already running")
	}

	c.logger.WithFields(logrus.Fields{
		"consumer_id": c.cfg.ConsumerID,
		"batch_size":  c.cfg.BatchSize,
	}).Info("starting ingest task consumer")

	c.wg.Add(3)
	go c.discoveryLoop(ctx)
	go c.readLoop(ctx)
	go c.reclaimLoop(ctx)
	return nil
}

// Stop blocks until all three loops have exited.
func (c *Consumer) Stop() {
	if !atomic.CompareAndSwapInt64(&c.running, 1, 0) {
		return
	}
	close(c.quit)
	c.wg.Wait()
	c.logger.Info("ingest task consumer stopped")
}

func (c *Consumer) discoveryLoop(ctx context.Context) {
	defer c.wg.Done()

	c.discover(ctx)

	ticker := time.NewTicker(c.cfg.DiscoveryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.quit:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.discover(ctx)
		}
	}
}

func (c *Consumer) discover(ctx context.Context) {
	var keys []string
	cursor := uint64(0)
	pattern := streamPrefix + ":*"

	for {
		batch, next, err := c.conn.Client.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			c.logger.WithError(err).Warn("stream discovery scan failed")
			return
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	for _, key := range keys {
		c.mu.RLock()
		_, known := c.activeStreams[key]
		c.mu.RUnlock()
		if known {
			continue
		}

		err := c.conn.Client.XGroupCreateMkStream(ctx, key, consumerGrp, "0").Err()
		if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
			c.logger.WithError(err).WithField("stream", key).Warn("failed to create consumer group")
			continue
		}

		c.mu.Lock()
		c.activeStreams[key] = struct{}{}
		c.mu.Unlock()
	}
}

func (c *Consumer) readLoop(ctx context.Context) {
	defer c.wg.Done()

	for {
		select {
		case <-c.quit:
			return
		case <-ctx.Done():
			return
		default:
			if err := c.readOnce(ctx); err != nil && err != redis.Nil {
				c.logger.WithError(err).Error("ingest task read failed")
				time.Sleep(200 * time.Millisecond)
			}
		}
	}
}

func (c *Consumer) readOnce(ctx context.Context) error {
	c.mu.RLock()
	streams := make([]string, 0, len(c.activeStreams))
	for key := range c.activeStreams {
		streams = append(streams, key)
	}
	c.mu.RUnlock()

	if len(streams) == 0 {
		time.Sleep(200 * time.Millisecond)
		return nil
	}
	if len(streams) > c.cfg.MaxStreamsPerRead {
		streams = streams[:c.cfg.MaxStreamsPerRead]
	}

	args := make([]string, 0, len(streams)*2)
	args = append(args, streams...)
	for range streams {
		args = append(args, ">")
	}

	result, err := c.conn.Client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    consumerGrp,
		Consumer: c.cfg.ConsumerID,
		Streams:  args,
		Count:    c.cfg.BatchSize,
		Block:    c.cfg.BlockDuration,
	}).Result()
	if err != nil {
		return err
	}

	for _, stream := range result {
		for _, msg := range stream.Messages {
			c.handleMessage(ctx, stream.Stream, msg)
		}
	}
	return nil
}

// handleMessage processes one delivered message to completion before
// returning: on a retryable error it retries in-process with exponential
// backoff, the way the teacher's processMessage does (ClickHouse/worker's
// telemetry_stream_consumer.go), rather than relying on Redis to redeliver
// on a timer. A fatal error skips the retry loop entirely. Either way, the
// message is only ever acked after success or after being safely recorded
// in the dead-letter stream (§4.6).
func (c *Consumer) handleMessage(ctx context.Context, streamKey string, msg redis.XMessage) {
	projectID, _ := msg.Values["project_id"].(string)
	blobKey, _ := msg.Values["blob_key"].(string)
	task := IngestTask{ProjectID: projectID, BlobKey: blobKey}

	var lastErr error
	for attempt := int64(1); attempt <= maxDeliveryAttempts; attempt++ {
		if attempt > 1 {
			delay := backoffWithJitter(attempt - 1)
			c.logger.WithError(lastErr).WithFields(logrus.Fields{
				"stream":  streamKey,
				"id":      msg.ID,
				"attempt": attempt,
				"delay":   delay,
			}).Warn("retrying ingest task")
			metrics.WorkerTasksTotal.WithLabelValues("requeued").Inc()
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}
		}

		err := c.handler(ctx, task)
		if err == nil {
			c.ack(ctx, streamKey, msg.ID)
			return
		}
		lastErr = err

		if IsFatal(err) {
			c.logger.WithError(err).WithFields(logrus.Fields{
				"stream": streamKey,
				"id":     msg.ID,
			}).Error("ingest task failed fatally, dead-lettering without retry")
			break
		}
	}

	if dlqErr := c.moveToDLQ(ctx, streamKey, msg, task, lastErr); dlqErr != nil {
		c.logger.WithError(dlqErr).Error("failed to dead-letter ingest task, leaving pending")
		return
	}
	metrics.WorkerTasksTotal.WithLabelValues("dead_lettered").Inc()
	c.ack(ctx, streamKey, msg.ID)
}

func (c *Consumer) ack(ctx context.Context, streamKey, id string) {
	if err := c.conn.Client.XAck(ctx, streamKey, consumerGrp, id).Err(); err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{"stream": streamKey, "id": id}).Warn("failed to ack message")
	}
}

// backoffWithJitter computes an exponential delay capped at maxRetryDelay,
// with full jitter to avoid thundering-herd redelivery after an outage.
func backoffWithJitter(attempt int64) time.Duration {
	exp := math.Pow(2, float64(attempt))
	delay := time.Duration(exp) * baseRetryDelay
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	jitter := time.Duration(rand.Int63n(int64(delay) + 1))
	return jitter
}

// reclaimLoop periodically sweeps every discovered stream for pending
// entries abandoned by a dead consumer, so "worker crashes mid-task, the
// message becomes visible again and is retried by another worker" (§4.6,
// §5) is an actual mechanism and not just an aspiration: handleMessage's
// in-process retry loop above never leaves a message pending for anywhere
// near reclaimIdleThreshold on its own, so anything still pending that long
// got there because the consumer holding it is gone.
func (c *Consumer) reclaimLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(reclaimInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.quit:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.reclaimOnce(ctx)
		}
	}
}

func (c *Consumer) reclaimOnce(ctx context.Context) {
	c.mu.RLock()
	streams := make([]string, 0, len(c.activeStreams))
	for key := range c.activeStreams {
		streams = append(streams, key)
	}
	c.mu.RUnlock()

	for _, stream := range streams {
		c.reclaimStream(ctx, stream)
	}
}

// reclaimStream claims every entry on stream idle for at least
// reclaimIdleThreshold under this consumer's identity and re-dispatches it
// through handleMessage, exactly as if it had just been freshly delivered.
func (c *Consumer) reclaimStream(ctx context.Context, stream string) {
	start := "0-0"
	for {
		messages, cursor, err := c.conn.Client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   stream,
			Group:    consumerGrp,
			Consumer: c.cfg.ConsumerID,
			MinIdle:  reclaimIdleThreshold,
			Start:    start,
			Count:    reclaimBatchSize,
		}).Result()
		if err != nil {
			c.logger.WithError(err).WithField("stream", stream).Warn("reclaim scan failed")
			return
		}

		if len(messages) > 0 {
			c.logger.WithFields(logrus.Fields{
				"stream": stream,
				"count":  len(messages),
			}).Warn("reclaimed ingest tasks abandoned by a dead consumer")
		}
		for _, msg := range messages {
			c.handleMessage(ctx, stream, msg)
		}

		if cursor == "0-0" || len(messages) < reclaimBatchSize {
			return
		}
		start = cursor
	}
}

func (c *Consumer) moveToDLQ(ctx context.Context, streamKey string, msg redis.XMessage, task IngestTask, cause error) error {
	key := dlqKey(task.ProjectID)
	_, err := c.conn.Client.XAdd(ctx, &redis.XAddArgs{
		Stream: key,
		MaxLen: dlqMaxLength,
		Approx: true,
		Values: map[string]interface{}{
			"original_stream": streamKey,
			"original_id":     msg.ID,
			"project_id":      task.ProjectID,
			"blob_key":        task.BlobKey,
			"error":           cause.Error(),
			"failed_at":       time.Now().Unix(),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to write dead-letter entry: %w", err)
	}

	if err := c.conn.Client.Expire(ctx, key, dlqRetention).Err(); err != nil {
		c.logger.WithError(err).WithField("stream", key).Warn("failed to set dlq ttl")
	}

	c.logger.WithFields(logrus.Fields{
		"dlq_stream": key,
		"project_id": task.ProjectID,
		"blob_key":   task.BlobKey,
		"error":      cause.Error(),
	}).Warn("moved ingest task to dead-letter stream")
	return nil
}
