package queue

import (
	"errors"
	"fmt"
)

// FatalError marks a Handler failure that will never succeed on redelivery
// (a missing blob, a malformed transform input). The consumer routes it
// straight to the dead-letter stream instead of spending the retry budget
// (§4.6: "NotFound -> fatal (no retry)"; "Transformer exceptions -> fatal
// for this message").
type FatalError struct {
	cause error
}

// Fatal wraps err so handleMessage treats it as non-retryable.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{cause: err}
}

func (e *FatalError) Error() string { return e.cause.Error() }
func (e *FatalError) Unwrap() error { return e.cause }

// IsFatal reports whether err (or anything it wraps) was marked Fatal.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// IngestTask references a raw OTLP export body already durably written to
// blob storage. Only the pointer crosses the queue; the worker fetches the
// actual payload on demand, keeping stream entries small regardless of
// batch size.
type IngestTask struct {
	ProjectID string `json:"project_id"`
	BlobKey   string `json:"blob_key"`
}

const (
	streamPrefix = "ingest:events"
	dlqPrefix    = "ingest:dlq"
	consumerGrp  = "ingest-workers"
)

// streamKey returns the per-project stream key so that slow or backlogged
// projects never block delivery for others.
func streamKey(projectID string) string {
	return fmt.Sprintf("%s:%s", streamPrefix, projectID)
}

// dlqKey returns the dead-letter stream key for a project.
func dlqKey(projectID string) string {
	return fmt.Sprintf("%s:%s", dlqPrefix, projectID)
}
