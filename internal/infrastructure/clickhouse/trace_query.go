package clickhouse

import (
	"context"
	"fmt"

	"brokle/internal/core/domain/trace"
	"brokle/pkg/pagination"
)

// ListTraces groups spans by (projectId, traceId) with FINAL dedup on both
// tables, computing spanCount/durationMs/status at query time (§4.8). All
// filters are bound parameters; no string interpolation of user values.
func (s *Store) ListTraces(ctx context.Context, filter trace.ListFilter) ([]trace.TraceListItem, int64, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = pagination.DefaultPageSize
	}
	offset := filter.Page * limit

	where := "t.project_id = ?"
	args := []any{filter.ProjectID}
	if filter.Name != "" {
		where += " AND positionCaseInsensitive(t.name, ?) > 0"
		args = append(args, filter.Name)
	}

	countQuery := fmt.Sprintf(`
		SELECT count()
		FROM (SELECT trace_id FROM traces FINAL WHERE %s GROUP BY trace_id) t
	`, where)
	var total uint64
	if err := s.conn.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count traces: %w", err)
	}

	listQuery := fmt.Sprintf(`
		SELECT
			t.trace_id, t.project_id, t.name, t.trace_start_time, t.user_id, t.session_id,
			count(s.span_id) AS span_count,
			if(countIf(s.span_end_time IS NULL) > 0, NULL, dateDiff('ms', min(s.span_start_time), max(s.span_end_time))) AS duration_ms,
			countIf(s.status = 'ERROR') AS error_count
		FROM traces FINAL AS t
		LEFT JOIN spans FINAL AS s ON s.project_id = t.project_id AND s.trace_id = t.trace_id
		WHERE %s
		GROUP BY t.trace_id, t.project_id, t.name, t.trace_start_time, t.user_id, t.session_id
		ORDER BY t.trace_start_time DESC
		LIMIT ? OFFSET ?
	`, where)
	args = append(args, limit, offset)

	rows, err := s.conn.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list traces: %w", err)
	}
	defer rows.Close()

	var items []trace.TraceListItem
	for rows.Next() {
		var item trace.TraceListItem
		var durationMs *int64
		var errorCount uint64
		if err := rows.Scan(
			&item.TraceID, &item.ProjectID, &item.Name, &item.TraceStartTime,
			&item.UserID, &item.SessionID, &item.SpanCount, &durationMs, &errorCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan trace list row: %w", err)
		}
		item.DurationMs = durationMs
		if errorCount > 0 {
			item.Status = "error"
		} else {
			item.Status = "ok"
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return items, int64(total), nil
}

// GetTrace returns the rollup plus all its spans ordered by start time
// ascending (§4.8). FINAL is applied to both tables so a concurrently
// re-ingested row is not returned twice.
func (s *Store) GetTrace(ctx context.Context, projectID, traceID string) (*trace.TraceDetail, error) {
	var rollup trace.TraceRollup
	err := s.conn.QueryRow(ctx, `
		SELECT trace_id, project_id, trace_start_time, name, user_id, session_id,
		       environment, release, input, output, ch_create_time, ch_update_time
		FROM traces FINAL
		WHERE project_id = ? AND trace_id = ?
	`, projectID, traceID).Scan(
		&rollup.TraceID, &rollup.ProjectID, &rollup.TraceStartTime, &rollup.Name,
		&rollup.UserID, &rollup.SessionID, &rollup.Environment, &rollup.Release,
		&rollup.Input, &rollup.Output, &rollup.ChCreateTime, &rollup.ChUpdateTime,
	)
	if err != nil {
		return nil, fmt.Errorf("get trace %s/%s: %w", projectID, traceID, trace.ErrTraceNotFound)
	}

	rows, err := s.conn.Query(ctx, `
		SELECT span_id, trace_id, parent_span_id, project_id, span_start_time,
		       span_end_time, name, span_kind, status, status_message, model_name,
		       cost, input, output, environment, ch_create_time, ch_update_time
		FROM spans FINAL
		WHERE project_id = ? AND trace_id = ?
		ORDER BY span_start_time ASC
	`, projectID, traceID)
	if err != nil {
		return nil, fmt.Errorf("get trace spans: %w", err)
	}
	defer rows.Close()

	var spans []trace.Span
	for rows.Next() {
		var span trace.Span
		var kind, status string
		if err := rows.Scan(
			&span.SpanID, &span.TraceID, &span.ParentSpanID, &span.ProjectID,
			&span.SpanStartTime, &span.SpanEndTime, &span.Name, &kind, &status,
			&span.StatusMessage, &span.ModelName, &span.Cost, &span.Input, &span.Output,
			&span.Environment, &span.ChCreateTime, &span.ChUpdateTime,
		); err != nil {
			return nil, fmt.Errorf("scan span row: %w", err)
		}
		span.SpanKind = trace.SpanKind(kind)
		span.Status = trace.Status(status)
		spans = append(spans, span)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &trace.TraceDetail{TraceRollup: rollup, Spans: spans}, nil
}
