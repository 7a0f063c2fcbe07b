// Package trace holds the columnar telemetry model: trace rollups and spans,
// keyed by (projectId, traceId[, spanId]) with replace-on-key semantics (§3.2).
package trace

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrTraceNotFound is returned by Store.GetTrace when no rollup exists for
// the given (projectId, traceId) (§4.8).
var ErrTraceNotFound = errors.New("trace not found")

// SpanKind is the OTLP-derived classification of a span's role (§4.4 rule 5).
type SpanKind string

const (
	SpanKindLLM   SpanKind = "LLM"
	SpanKindSpan  SpanKind = "SPAN"
	SpanKindAgent SpanKind = "AGENT"
	SpanKindTool  SpanKind = "TOOL"
)

// IsValidSpanKind reports whether s is one of the four recognized kinds,
// case-insensitively (§4.4 rule 5 "must be one of the four").
func IsValidSpanKind(s string) (SpanKind, bool) {
	switch strings.ToUpper(s) {
	case string(SpanKindLLM):
		return SpanKindLLM, true
	case string(SpanKindSpan):
		return SpanKindSpan, true
	case string(SpanKindAgent):
		return SpanKindAgent, true
	case string(SpanKindTool):
		return SpanKindTool, true
	default:
		return "", false
	}
}

// Status is the coarse OTLP status mapping (§4.4 rule 6); OTLP's UNSET is
// folded into OK since this model only distinguishes success from failure.
type Status string

const (
	StatusOK    Status = "OK"
	StatusError Status = "ERROR"
)

// TraceRollup is the per-trace identity/metadata row (§3.2). Later inserts
// for the same (projectId, traceId) supersede earlier ones at the storage
// layer; the worker converges this row toward the root span's data.
type TraceRollup struct {
	TraceID        string    `json:"trace_id" ch:"trace_id"`
	ProjectID      string    `json:"project_id" ch:"project_id"`
	TraceStartTime time.Time `json:"trace_start_time" ch:"trace_start_time"`
	Name           string    `json:"name" ch:"name"`
	UserID         *string   `json:"user_id,omitempty" ch:"user_id"`
	SessionID      *string   `json:"session_id,omitempty" ch:"session_id"`
	Environment    string    `json:"environment" ch:"environment"`
	Release        *string   `json:"release,omitempty" ch:"release"`
	Input          *string   `json:"input,omitempty" ch:"input"`
	Output         *string   `json:"output,omitempty" ch:"output"`
	ChCreateTime   time.Time `json:"ch_create_time" ch:"ch_create_time"`
	ChUpdateTime   time.Time `json:"ch_update_time" ch:"ch_update_time"`
}

// Span is a single timed unit of work within a trace (§3.2).
type Span struct {
	SpanID         string          `json:"span_id" ch:"span_id"`
	TraceID        string          `json:"trace_id" ch:"trace_id"`
	ParentSpanID   *string         `json:"parent_span_id,omitempty" ch:"parent_span_id"`
	ProjectID      string          `json:"project_id" ch:"project_id"`
	SpanStartTime  time.Time       `json:"span_start_time" ch:"span_start_time"`
	SpanEndTime    *time.Time      `json:"span_end_time,omitempty" ch:"span_end_time"`
	Name           string          `json:"name" ch:"name"`
	SpanKind       SpanKind        `json:"span_kind" ch:"span_kind"`
	Status         Status          `json:"status" ch:"status"`
	StatusMessage  *string         `json:"status_message,omitempty" ch:"status_message"`
	ModelName      *string         `json:"model_name,omitempty" ch:"model_name"`
	Cost           decimal.Decimal `json:"cost,omitempty" ch:"cost"`
	Input          *string         `json:"input,omitempty" ch:"input"`
	Output         *string         `json:"output,omitempty" ch:"output"`
	Environment    string          `json:"environment" ch:"environment"`
	ChCreateTime   time.Time       `json:"ch_create_time" ch:"ch_create_time"`
	ChUpdateTime   time.Time       `json:"ch_update_time" ch:"ch_update_time"`
}

// IsRoot reports whether this span has no parent (§4.4 rule 1, 9).
func (s *Span) IsRoot() bool { return s.ParentSpanID == nil }

// TraceListItem is the read-API projection for a listing row (§4.8).
type TraceListItem struct {
	TraceID        string    `json:"trace_id"`
	ProjectID      string    `json:"project_id"`
	Name           string    `json:"name"`
	TraceStartTime time.Time `json:"trace_start_time"`
	UserID         *string   `json:"user_id,omitempty"`
	SessionID      *string   `json:"session_id,omitempty"`
	SpanCount      int64     `json:"span_count"`
	DurationMs     *int64    `json:"duration_ms,omitempty"`
	Status         string    `json:"status"`
}

// TraceDetail is the read-API projection for a single-trace fetch (§4.8).
type TraceDetail struct {
	TraceRollup
	Spans []Span `json:"spans"`
}
