package ingest

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	resourcepb "go.opentelemetry.io/proto/otlp/resource/v1"
	tracepb "go.opentelemetry.io/proto/otlp/trace/v1"

	"brokle/internal/core/domain/trace"
)

func mustHexBytes(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func strAttr(key, value string) *commonpb.KeyValue {
	return &commonpb.KeyValue{
		Key:   key,
		Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: value}},
	}
}

func newRequest(resourceAttrs []*commonpb.KeyValue, spans []*tracepb.Span) *coltracepb.ExportTraceServiceRequest {
	return &coltracepb.ExportTraceServiceRequest{
		ResourceSpans: []*tracepb.ResourceSpans{
			{
				Resource: &resourcepb.Resource{Attributes: resourceAttrs},
				ScopeSpans: []*tracepb.ScopeSpans{
					{Spans: spans},
				},
			},
		},
	}
}

func TestTransform_HappyPathSingleSpan(t *testing.T) {
	traceID := mustHexBytes(t, "0123456789abcdef0123456789abcdef")
	spanID := mustHexBytes(t, "fedcba9876543210")

	span := &tracepb.Span{
		TraceId:           traceID,
		SpanId:            spanID,
		Name:              "root",
		StartTimeUnixNano: 1_700_000_000_000_000_000,
		EndTimeUnixNano:   1_700_000_001_000_000_000,
	}
	req := newRequest(nil, []*tracepb.Span{span})

	result := Transform(req, "proj-1")

	require.Len(t, result.Spans, 1)
	require.Len(t, result.Rollups, 1)

	gotSpan := result.Spans[0]
	assert.Equal(t, "0123456789abcdef0123456789abcdef", gotSpan.TraceID)
	assert.Equal(t, "fedcba9876543210", gotSpan.SpanID)
	assert.Nil(t, gotSpan.ParentSpanID)
	assert.Equal(t, trace.StatusOK, gotSpan.Status)
	assert.Equal(t, trace.SpanKindSpan, gotSpan.SpanKind)
	require.NotNil(t, gotSpan.SpanEndTime)
	assert.Equal(t, int64(1000), gotSpan.SpanEndTime.Sub(gotSpan.SpanStartTime).Milliseconds())

	rollup := result.Rollups[0]
	assert.Equal(t, "root", rollup.Name)
	assert.Equal(t, gotSpan.SpanStartTime, rollup.TraceStartTime)
	assert.Equal(t, "default", rollup.Environment)
}

func TestTransform_OutOfOrderConvergence(t *testing.T) {
	traceID := mustHexBytes(t, "0123456789abcdef0123456789abcdef")
	rootID := mustHexBytes(t, "aaaaaaaaaaaaaaaa")
	childID := mustHexBytes(t, "bbbbbbbbbbbbbbbb")

	// Blob 1: child only.
	childSpan := &tracepb.Span{
		TraceId:           traceID,
		SpanId:            childID,
		ParentSpanId:      rootID,
		Name:              "child",
		StartTimeUnixNano: 1_700_000_000_500_000_000,
	}
	result1 := Transform(newRequest(nil, []*tracepb.Span{childSpan}), "proj-1")
	require.Len(t, result1.Rollups, 1)
	assert.Equal(t, "child", result1.Rollups[0].Name) // provisional, not yet rooted

	// Blob 2: root only, processed later — same traceId.
	rootSpan := &tracepb.Span{
		TraceId:           traceID,
		SpanId:            rootID,
		Name:              "parent",
		StartTimeUnixNano: 1_700_000_000_000_000_000,
	}
	result2 := Transform(newRequest(nil, []*tracepb.Span{rootSpan}), "proj-1")
	require.Len(t, result2.Rollups, 1)
	assert.Equal(t, "parent", result2.Rollups[0].Name)
	assert.Equal(t, rootSpan.StartTimeUnixNano, uint64(result2.Rollups[0].TraceStartTime.UnixNano()))
}

func TestTransform_ErrorStatusClassification(t *testing.T) {
	traceID := mustHexBytes(t, "0123456789abcdef0123456789abcdef")
	spanID := mustHexBytes(t, "fedcba9876543210")

	span := &tracepb.Span{
		TraceId:           traceID,
		SpanId:            spanID,
		Name:              "boom-span",
		StartTimeUnixNano: 1_700_000_000_000_000_000,
		Status: &tracepb.Status{
			Code:    2,
			Message: "boom",
		},
	}
	result := Transform(newRequest(nil, []*tracepb.Span{span}), "proj-1")

	require.Len(t, result.Spans, 1)
	assert.Equal(t, trace.StatusError, result.Spans[0].Status)
	require.NotNil(t, result.Spans[0].StatusMessage)
	assert.Equal(t, "boom", *result.Spans[0].StatusMessage)
}

func TestTransform_MissingStartTimeSkipped(t *testing.T) {
	traceID := mustHexBytes(t, "0123456789abcdef0123456789abcdef")
	spanID := mustHexBytes(t, "fedcba9876543210")

	span := &tracepb.Span{TraceId: traceID, SpanId: spanID, Name: "no-start"}
	result := Transform(newRequest(nil, []*tracepb.Span{span}), "proj-1")

	assert.Empty(t, result.Spans)
	assert.Empty(t, result.Rollups)
}

func TestTransform_AllZeroParentTreatedAsRoot(t *testing.T) {
	traceID := mustHexBytes(t, "0123456789abcdef0123456789abcdef")
	spanID := mustHexBytes(t, "fedcba9876543210")
	zeroParent := make([]byte, 8)

	span := &tracepb.Span{
		TraceId:           traceID,
		SpanId:            spanID,
		ParentSpanId:      zeroParent,
		Name:              "root-like",
		StartTimeUnixNano: 1_700_000_000_000_000_000,
	}
	result := Transform(newRequest(nil, []*tracepb.Span{span}), "proj-1")

	require.Len(t, result.Spans, 1)
	assert.Nil(t, result.Spans[0].ParentSpanID)
}

func TestTransform_SpanKindResolution(t *testing.T) {
	traceID := mustHexBytes(t, "0123456789abcdef0123456789abcdef")

	cases := []struct {
		name  string
		attrs []*commonpb.KeyValue
		want  trace.SpanKind
	}{
		{"explicit traceroot type", []*commonpb.KeyValue{strAttr("traceroot.span.type", "agent")}, trace.SpanKindAgent},
		{"openinference chain maps to span", []*commonpb.KeyValue{strAttr("openinference.span.kind", "CHAIN")}, trace.SpanKindSpan},
		{"openinference llm", []*commonpb.KeyValue{strAttr("openinference.span.kind", "LLM")}, trace.SpanKindLLM},
		{"gen_ai system implies llm", []*commonpb.KeyValue{strAttr("gen_ai.system", "openai")}, trace.SpanKindLLM},
		{"no hints default span", nil, trace.SpanKindSpan},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			spanID := mustHexBytes(t, "fedcba9876543210")
			span := &tracepb.Span{
				TraceId:           traceID,
				SpanId:            spanID,
				Name:              "s",
				StartTimeUnixNano: 1_700_000_000_000_000_000,
				Attributes:        tc.attrs,
			}
			result := Transform(newRequest(nil, []*tracepb.Span{span}), "proj-1")
			require.Len(t, result.Spans, 1)
			assert.Equal(t, tc.want, result.Spans[0].SpanKind)
		})
	}
}

func TestTransform_EnvironmentPrecedence(t *testing.T) {
	traceID := mustHexBytes(t, "0123456789abcdef0123456789abcdef")
	spanID := mustHexBytes(t, "fedcba9876543210")
	span := &tracepb.Span{
		TraceId:           traceID,
		SpanId:            spanID,
		Name:              "s",
		StartTimeUnixNano: 1_700_000_000_000_000_000,
	}

	resourceAttrs := []*commonpb.KeyValue{
		strAttr("traceroot.environment", "staging"),
		strAttr("service.environment", "prod"),
	}
	result := Transform(newRequest(resourceAttrs, []*tracepb.Span{span}), "proj-1")
	require.Len(t, result.Spans, 1)
	assert.Equal(t, "staging", result.Spans[0].Environment)
}

func TestTransform_PureFunction(t *testing.T) {
	traceID := mustHexBytes(t, "0123456789abcdef0123456789abcdef")
	spanID := mustHexBytes(t, "fedcba9876543210")
	span := &tracepb.Span{
		TraceId:           traceID,
		SpanId:            spanID,
		Name:              "s",
		StartTimeUnixNano: 1_700_000_000_000_000_000,
	}
	req := newRequest(nil, []*tracepb.Span{span})

	r1 := Transform(req, "proj-1")
	r2 := Transform(req, "proj-1")

	require.Len(t, r1.Spans, 1)
	require.Len(t, r2.Spans, 1)
	assert.Equal(t, r1.Spans[0], r2.Spans[0])
	assert.Equal(t, r1.Rollups[0], r2.Rollups[0])
}

func TestDecodeIDString_RoundTrip(t *testing.T) {
	hex16 := "0123456789abcdef0123456789abcdef"
	decoded, ok := DecodeIDString(hex16, 16)
	require.True(t, ok)
	assert.Equal(t, hex16, decoded)

	_, ok = DecodeIDString("not-valid", 16)
	assert.False(t, ok)
}
