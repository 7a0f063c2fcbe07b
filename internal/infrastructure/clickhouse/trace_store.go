package clickhouse

import (
	"context"
	"fmt"
	"time"

	"brokle/internal/core/domain/trace"
)

// InsertTracesBatch appends chCreateTime/chUpdateTime = now() to every row
// and inserts into the replacing-merge-tree traces table (§4.2, §3.2).
func (s *Store) InsertTracesBatch(ctx context.Context, rows []trace.TraceRollup) error {
	if len(rows) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO traces (
			trace_id, project_id, trace_start_time, name, user_id, session_id,
			environment, release, input, output, ch_create_time, ch_update_time
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare traces batch: %w", err)
	}

	now := time.Now().UTC()
	for _, row := range rows {
		if err := batch.Append(
			row.TraceID,
			row.ProjectID,
			row.TraceStartTime,
			row.Name,
			row.UserID,
			row.SessionID,
			row.Environment,
			row.Release,
			row.Input,
			row.Output,
			now,
			now,
		); err != nil {
			return fmt.Errorf("append trace row: %w", err)
		}
	}

	return batch.Send()
}

// InsertSpansBatch appends chCreateTime/chUpdateTime = now() to every row and
// inserts into the replacing-merge-tree spans table (§4.2, §3.2).
func (s *Store) InsertSpansBatch(ctx context.Context, rows []trace.Span) error {
	if len(rows) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO spans (
			span_id, trace_id, parent_span_id, project_id, span_start_time,
			span_end_time, name, span_kind, status, status_message, model_name,
			cost, input, output, environment, ch_create_time, ch_update_time
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare spans batch: %w", err)
	}

	now := time.Now().UTC()
	for _, row := range rows {
		if err := batch.Append(
			row.SpanID,
			row.TraceID,
			row.ParentSpanID,
			row.ProjectID,
			row.SpanStartTime,
			row.SpanEndTime,
			row.Name,
			string(row.SpanKind),
			string(row.Status),
			row.StatusMessage,
			row.ModelName,
			row.Cost,
			row.Input,
			row.Output,
			row.Environment,
			now,
			now,
		); err != nil {
			return fmt.Errorf("append span row: %w", err)
		}
	}

	return batch.Send()
}
