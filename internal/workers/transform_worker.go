// Package workers runs the asynchronous stage of ingestion: consuming
// blob-store references off the task queue, decoding the stored OTLP
// export, and writing the resulting rollups and spans into the columnar
// store (§4.6).
package workers

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	"google.golang.org/protobuf/encoding/protojson"

	coretrace "brokle/internal/core/domain/trace"
	"brokle/internal/core/services/ingest"
	"brokle/internal/infrastructure/blobstore"
	"brokle/internal/infrastructure/queue"
	"brokle/internal/observability/metrics"
)

// TransformWorker wires a queue.Consumer to the pure ingest.Transform
// function, fetching each task's payload from blob storage and batch
// inserting the result into the columnar store.
type TransformWorker struct {
	blobs    *blobstore.Client
	store    coretrace.Store
	consumer *queue.Consumer
	logger   *logrus.Logger
}

func NewTransformWorker(conn *queue.Conn, blobs *blobstore.Client, store coretrace.Store, logger *logrus.Logger) *TransformWorker {
	w := &TransformWorker{blobs: blobs, store: store, logger: logger}
	w.consumer = queue.NewConsumer(conn, w.handle, logger, nil)
	return w
}

// Start launches the underlying consumer's discovery and read loops.
func (w *TransformWorker) Start(ctx context.Context) error {
	return w.consumer.Start(ctx)
}

// Stop blocks until the consumer's loops have exited.
func (w *TransformWorker) Stop() {
	w.consumer.Stop()
}

// handle fetches the blob referenced by task, transforms it, and writes the
// result. A missing blob, or one whose content is not valid OTLP JSON, is
// fatal: retrying can never succeed, so both are routed straight to the
// dead-letter stream via queue.Fatal rather than spending the consumer's
// retry budget (§4.6 "fatal vs retryable").
func (w *TransformWorker) handle(ctx context.Context, task queue.IngestTask) error {
	payload, err := w.blobs.Get(ctx, task.BlobKey)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			w.logger.WithFields(logrus.Fields{
				"project_id": task.ProjectID,
				"blob_key":   task.BlobKey,
			}).Error("ingest task references a missing blob")
			return queue.Fatal(fmt.Errorf("fetch blob %s: %w", task.BlobKey, err))
		}
		return fmt.Errorf("fetch blob %s: %w", task.BlobKey, err)
	}

	req := &coltracepb.ExportTraceServiceRequest{}
	if err := protojson.Unmarshal(payload, req); err != nil {
		w.logger.WithError(err).WithFields(logrus.Fields{
			"project_id": task.ProjectID,
			"blob_key":   task.BlobKey,
		}).Error("stored export payload is not valid OTLP JSON, dead-lettering")
		return queue.Fatal(fmt.Errorf("decode stored export %s: %w", task.BlobKey, err))
	}

	result := ingest.Transform(req, task.ProjectID)

	if err := w.store.InsertTracesBatch(ctx, result.Rollups); err != nil {
		return fmt.Errorf("insert trace rollups: %w", err)
	}
	if err := w.store.InsertSpansBatch(ctx, result.Spans); err != nil {
		return fmt.Errorf("insert spans: %w", err)
	}
	metrics.WorkerBatchRows.WithLabelValues("traces").Observe(float64(len(result.Rollups)))
	metrics.WorkerBatchRows.WithLabelValues("spans").Observe(float64(len(result.Spans)))
	metrics.WorkerTasksTotal.WithLabelValues("acked").Inc()

	w.logger.WithFields(logrus.Fields{
		"project_id": task.ProjectID,
		"blob_key":   task.BlobKey,
		"rollups":    len(result.Rollups),
		"spans":      len(result.Spans),
	}).Debug("transformed ingest task")
	return nil
}
