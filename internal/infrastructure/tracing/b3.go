package tracing

import (
	"context"
	"net/http"
	"strings"
)

// B3 propagation headers.
const (
	HeaderTraceID      = "X-B3-TraceId"
	HeaderSpanID       = "X-B3-SpanId"
	HeaderParentSpanID = "X-B3-ParentSpanId"
	HeaderSampled      = "X-B3-Sampled"
	HeaderSingle       = "b3"
)

// SpanContext is the part of a span that crosses process boundaries.
type SpanContext struct {
	TraceID  TraceID
	SpanID   SpanID
	ParentID SpanID
	Sampled  bool
}

type spanContextKey struct{}

// WithSpanContext stores sc in ctx.
func WithSpanContext(ctx context.Context, sc SpanContext) context.Context {
	return context.WithValue(ctx, spanContextKey{}, sc)
}

// FromContext returns the span context in ctx, or the zero value.
func FromContext(ctx context.Context) SpanContext {
	sc, _ := ctx.Value(spanContextKey{}).(SpanContext)
	return sc
}

// GetTraceID retrieves the trace ID from context
func GetTraceID(ctx context.Context) TraceID {
	return FromContext(ctx).TraceID
}

// GetSpanID retrieves the span ID from context
func GetSpanID(ctx context.Context) SpanID {
	return FromContext(ctx).SpanID
}

// Extract reads B3 headers. The multi-header form wins over the single
// "b3" header. Sampling defaults to true when unspecified.
func Extract(h http.Header) SpanContext {
	sc := SpanContext{
		TraceID:  TraceID(strings.ToLower(h.Get(HeaderTraceID))),
		SpanID:   SpanID(strings.ToLower(h.Get(HeaderSpanID))),
		ParentID: SpanID(strings.ToLower(h.Get(HeaderParentSpanID))),
		Sampled:  parseSampled(h.Get(HeaderSampled)),
	}
	if sc.TraceID != "" {
		return sc
	}

	// b3: {TraceId}-{SpanId}-{SamplingState}-{ParentSpanId}
	single := h.Get(HeaderSingle)
	if single == "" {
		return SpanContext{Sampled: true}
	}
	parts := strings.Split(strings.ToLower(single), "-")
	if len(parts) == 1 {
		return SpanContext{Sampled: parseSampled(parts[0])}
	}
	sc = SpanContext{TraceID: TraceID(parts[0]), SpanID: SpanID(parts[1]), Sampled: true}
	if len(parts) > 2 {
		sc.Sampled = parseSampled(parts[2])
	}
	if len(parts) > 3 {
		sc.ParentID = SpanID(parts[3])
	}
	return sc
}

// Inject writes sc as multi-header B3.
func Inject(sc SpanContext, h http.Header) {
	if sc.TraceID == "" {
		return
	}
	h.Set(HeaderTraceID, string(sc.TraceID))
	h.Set(HeaderSpanID, string(sc.SpanID))
	if sc.ParentID != "" {
		h.Set(HeaderParentSpanID, string(sc.ParentID))
	}
	if sc.Sampled {
		h.Set(HeaderSampled, "1")
	} else {
		h.Set(HeaderSampled, "0")
	}
}

func parseSampled(v string) bool {
	switch strings.ToLower(v) {
	case "0", "false":
		return false
	default:
		return true
	}
}
