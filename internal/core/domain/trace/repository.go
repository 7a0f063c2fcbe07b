package trace

import "context"

// Store is the columnar store contract consumed by the worker (writes) and
// the trace read API (reads) (§4.2, §4.8).
type Store interface {
	// InsertTracesBatch is a no-op on an empty slice; implementations stamp
	// chCreateTime/chUpdateTime at insert time.
	InsertTracesBatch(ctx context.Context, rows []TraceRollup) error
	// InsertSpansBatch is a no-op on an empty slice.
	InsertSpansBatch(ctx context.Context, rows []Span) error

	// ListTraces returns a page of trace summaries for one project, newest
	// first, deduplicated via FINAL (§4.8).
	ListTraces(ctx context.Context, filter ListFilter) ([]TraceListItem, int64, error)
	// GetTrace returns the rollup and all its spans ordered by start time
	// ascending, or ErrTraceNotFound.
	GetTrace(ctx context.Context, projectID, traceID string) (*TraceDetail, error)
}

// ListFilter narrows a trace listing query (§4.8).
type ListFilter struct {
	ProjectID string
	Name      string
	Page      int
	Limit     int
}
