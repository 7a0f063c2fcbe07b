// Package ingest implements the pure OTLP-to-columnar transformer: decode an
// ExportTraceServiceRequest into trace rollups and spans tagged with a
// projectId. The transformer performs no I/O and has no side effects.
package ingest

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	tracepb "go.opentelemetry.io/proto/otlp/trace/v1"

	"brokle/internal/core/domain/trace"
)

// Result is the transformer's output: rollups and spans for one OTLP batch,
// ready for batch insertion (§4.4).
type Result struct {
	Rollups []trace.TraceRollup
	Spans   []trace.Span
}

// Transform decodes one OTLP export request into rollups and spans. Same
// input always yields the same output; malformed spans are skipped, never
// panicking the transformer (§4.4 "pure"). Skipped spans are not logged and
// Result does not report how many were dropped.
func Transform(req *coltracepb.ExportTraceServiceRequest, projectID string) Result {
	rollups := make(map[string]*trace.TraceRollup)
	rollupOrder := make([]string, 0, 8)
	var spans []trace.Span

	for _, rs := range req.GetResourceSpans() {
		resourceAttrs := attrMap(rs.GetResource().GetAttributes())
		environment := resolveEnvironment(resourceAttrs)

		for _, ss := range rs.GetScopeSpans() {
			for _, protoSpan := range ss.GetSpans() {
				span, traceID, ok := convertSpan(protoSpan, projectID, resourceAttrs, environment)
				if !ok {
					continue // rule 2: missing startTimeUnixNano, dropped without a warning
				}
				spans = append(spans, span)

				rollup, exists := rollups[traceID]
				if !exists {
					rollup = provisionalRollup(span, traceID, projectID, environment, protoSpan, resourceAttrs)
					rollups[traceID] = rollup
					rollupOrder = append(rollupOrder, traceID)
				}
				if span.ParentSpanID == nil {
					// rule 9: root span overwrites provisional name/start/input/output
					rollup.Name = span.Name
					rollup.TraceStartTime = span.SpanStartTime
					rollup.Input = span.Input
					rollup.Output = span.Output
				}
			}
		}
	}

	out := Result{Spans: spans, Rollups: make([]trace.TraceRollup, 0, len(rollupOrder))}
	for _, id := range rollupOrder {
		out.Rollups = append(out.Rollups, *rollups[id])
	}
	return out
}

func provisionalRollup(span trace.Span, traceID, projectID, environment string, protoSpan *tracepb.Span, resourceAttrs map[string]any) *trace.TraceRollup {
	spanAttrs := attrMap(protoSpan.GetAttributes())
	userID, sessionID := resolveUserSession(spanAttrs, resourceAttrs)
	return &trace.TraceRollup{
		TraceID:        traceID,
		ProjectID:      projectID,
		TraceStartTime: span.SpanStartTime,
		Name:           span.Name,
		UserID:         userID,
		SessionID:      sessionID,
		Environment:    environment,
		Input:          span.Input,
		Output:         span.Output,
	}
}

// convertSpan applies rules 1, 2, 3, 5, 6, 7, 8 to a single OTLP span.
func convertSpan(protoSpan *tracepb.Span, projectID string, resourceAttrs map[string]any, environment string) (trace.Span, string, bool) {
	traceID, ok := decodeID(protoSpan.GetTraceId(), 16)
	if !ok {
		return trace.Span{}, "", false
	}
	spanID, ok := decodeID(protoSpan.GetSpanId(), 8)
	if !ok {
		return trace.Span{}, "", false
	}

	var parentSpanID *string
	if len(protoSpan.GetParentSpanId()) > 0 {
		if pid, ok := decodeID(protoSpan.GetParentSpanId(), 8); ok && !isAllZero(pid) {
			parentSpanID = &pid
		}
	}

	if protoSpan.GetStartTimeUnixNano() == 0 {
		return trace.Span{}, "", false // rule 2
	}
	startTime := time.Unix(0, int64(protoSpan.GetStartTimeUnixNano())).UTC()

	var endTime *time.Time
	if protoSpan.GetEndTimeUnixNano() != 0 {
		t := time.Unix(0, int64(protoSpan.GetEndTimeUnixNano())).UTC()
		endTime = &t
	}

	attrs := attrMap(protoSpan.GetAttributes())
	kind := resolveSpanKind(attrs)
	status, statusMessage := resolveStatus(protoSpan.GetStatus())
	input := extractBody(attrs, "traceroot.span.input")
	output := extractBody(attrs, "traceroot.span.output")

	var modelName *string
	if kind == trace.SpanKindLLM {
		modelName = resolveModelName(attrs)
	}

	span := trace.Span{
		SpanID:        spanID,
		TraceID:       traceID,
		ParentSpanID:  parentSpanID,
		ProjectID:     projectID,
		SpanStartTime: startTime,
		SpanEndTime:   endTime,
		Name:          protoSpan.GetName(),
		SpanKind:      kind,
		Status:        status,
		StatusMessage: statusMessage,
		ModelName:     modelName,
		Input:         input,
		Output:        output,
		Environment:   environment,
	}
	return span, traceID, true
}

// decodeID emits canonical lowercase hex for a fixed-length id. Protobuf
// always hands these to us as raw bytes, already decoded from whatever the
// SDK sent over the wire.
func decodeID(b []byte, wantLen int) (string, bool) {
	if len(b) != wantLen {
		return "", false
	}
	return hex.EncodeToString(b), true
}

// DecodeIDString decodes a base64 or hex-encoded id string into canonical
// lowercase hex (rule 1). Used by callers that receive ids as JSON strings
// rather than protobuf bytes, e.g. tests constructing fixtures by hand.
func DecodeIDString(s string, wantLen int) (string, bool) {
	if s == "" {
		return "", false
	}
	if raw, err := hex.DecodeString(s); err == nil && len(raw) == wantLen {
		return hex.EncodeToString(raw), true
	}
	if raw, err := base64.StdEncoding.DecodeString(s); err == nil && len(raw) == wantLen {
		return hex.EncodeToString(raw), true
	}
	return "", false
}

func isAllZero(hexStr string) bool {
	for _, c := range hexStr {
		if c != '0' {
			return false
		}
	}
	return true
}

func resolveEnvironment(resourceAttrs map[string]any) string {
	for _, key := range []string{"deployment.environment", "traceroot.environment", "service.environment"} {
		if v, ok := stringAttr(resourceAttrs, key); ok && v != "" {
			return v
		}
	}
	return "default"
}

func resolveSpanKind(attrs map[string]any) trace.SpanKind {
	if v, ok := stringAttr(attrs, "traceroot.span.type"); ok {
		if kind, valid := trace.IsValidSpanKind(v); valid {
			return kind
		}
	}
	if v, ok := stringAttr(attrs, "openinference.span.kind"); ok {
		switch strings.ToUpper(v) {
		case "LLM":
			return trace.SpanKindLLM
		case "AGENT":
			return trace.SpanKindAgent
		case "TOOL":
			return trace.SpanKindTool
		case "CHAIN":
			return trace.SpanKindSpan
		}
	}
	for _, key := range []string{"gen_ai.system", "llm.model_name", "traceroot.llm.model"} {
		if v, ok := stringAttr(attrs, key); ok && v != "" {
			return trace.SpanKindLLM
		}
	}
	return trace.SpanKindSpan
}

func resolveStatus(status *tracepb.Status) (trace.Status, *string) {
	if status == nil {
		return trace.StatusOK, nil
	}
	// OTLP status code 2 is STATUS_CODE_ERROR.
	if status.GetCode() == 2 {
		msg := status.GetMessage()
		return trace.StatusError, &msg
	}
	return trace.StatusOK, nil
}

func resolveModelName(attrs map[string]any) *string {
	for _, key := range []string{"traceroot.llm.model", "gen_ai.request.model", "llm.model_name"} {
		if v, ok := stringAttr(attrs, key); ok && v != "" {
			return &v
		}
	}
	return nil
}

func resolveUserSession(spanAttrs, resourceAttrs map[string]any) (*string, *string) {
	userID := firstNonEmpty(spanAttrs, resourceAttrs, "traceroot.trace.user_id", "user.id", "session.user_id")
	sessionID := firstNonEmpty(spanAttrs, resourceAttrs, "traceroot.trace.session_id", "session.id")
	return userID, sessionID
}

func firstNonEmpty(primary, fallback map[string]any, keys ...string) *string {
	for _, key := range keys {
		if v, ok := stringAttr(primary, key); ok && v != "" {
			return &v
		}
		if v, ok := stringAttr(fallback, key); ok && v != "" {
			return &v
		}
	}
	return nil
}

func extractBody(attrs map[string]any, key string) *string {
	v, ok := attrs[key]
	if !ok || v == nil {
		return nil
	}
	if s, ok := v.(string); ok {
		return &s
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	s := string(encoded)
	return &s
}

func stringAttr(attrs map[string]any, key string) (string, bool) {
	v, ok := attrs[key]
	if !ok || v == nil {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case bool:
		return strconv.FormatBool(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	default:
		return fmt.Sprintf("%v", val), true
	}
}

// attrMap flattens an OTLP KeyValue list into key -> tagged value, applying
// rule 3: primitives pass through as their native Go type, arrays and
// kv-lists recurse (slice / map), preserving structure instead of collapsing
// to strings immediately.
func attrMap(kvs []*commonpb.KeyValue) map[string]any {
	out := make(map[string]any, len(kvs))
	for _, kv := range kvs {
		out[kv.GetKey()] = anyValue(kv.GetValue())
	}
	return out
}

func anyValue(v *commonpb.AnyValue) any {
	if v == nil {
		return nil
	}
	switch val := v.GetValue().(type) {
	case *commonpb.AnyValue_StringValue:
		return val.StringValue
	case *commonpb.AnyValue_BoolValue:
		return val.BoolValue
	case *commonpb.AnyValue_IntValue:
		return val.IntValue
	case *commonpb.AnyValue_DoubleValue:
		return val.DoubleValue
	case *commonpb.AnyValue_BytesValue:
		return hex.EncodeToString(val.BytesValue)
	case *commonpb.AnyValue_ArrayValue:
		if val.ArrayValue == nil {
			return []any{}
		}
		arr := make([]any, len(val.ArrayValue.Values))
		for i, item := range val.ArrayValue.Values {
			arr[i] = anyValue(item)
		}
		return arr
	case *commonpb.AnyValue_KvlistValue:
		if val.KvlistValue == nil {
			return map[string]any{}
		}
		return attrMap(val.KvlistValue.Values)
	default:
		return nil
	}
}
