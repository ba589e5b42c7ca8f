package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/scriptengine/internal/infrastructure/logging"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name   string
		header http.Header
		want   SpanContext
	}{
		{
			name:   "none",
			header: http.Header{},
			want:   SpanContext{Sampled: true},
		},
		{
			name: "multi header",
			header: http.Header{
				HeaderTraceID:      []string{"463AC35C9F6413AD48485A3953BB6124"},
				HeaderSpanID:       []string{"a2fb4a1d1a96d312"},
				HeaderParentSpanID: []string{"0020000000000001"},
				HeaderSampled:      []string{"0"},
			},
			want: SpanContext{TraceID: "463ac35c9f6413ad48485a3953bb6124", SpanID: "a2fb4a1d1a96d312", ParentID: "0020000000000001", Sampled: false},
		},
		{
			name:   "single header",
			header: http.Header{"B3": []string{"80f198ee56343ba864fe8b2a57d3eff7-e457b5a2e4d86bd1-1-05e3ac9a4f6e3b90"}},
			want:   SpanContext{TraceID: "80f198ee56343ba864fe8b2a57d3eff7", SpanID: "e457b5a2e4d86bd1", ParentID: "05e3ac9a4f6e3b90", Sampled: true},
		},
		{
			name:   "single header deny",
			header: http.Header{"B3": []string{"0"}},
			want:   SpanContext{Sampled: false},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.header))
		})
	}
}

func TestInjectRoundTrip(t *testing.T) {
	sc := SpanContext{TraceID: "abc", SpanID: "def", ParentID: "012", Sampled: true}
	h := http.Header{}
	Inject(sc, h)
	assert.Equal(t, sc, Extract(h))

	empty := http.Header{}
	Inject(SpanContext{}, empty)
	assert.Empty(t, empty)
}

func TestStartSpan(t *testing.T) {
	tracer := New("test", nil)
	defer tracer.Close()

	root, ctx := tracer.StartSpan(context.Background(), "root")
	assert.Len(t, string(root.TraceID), 32)
	assert.Len(t, string(root.SpanID), 16)
	assert.Empty(t, root.ParentID)
	assert.Equal(t, root.SpanID, GetSpanID(ctx))

	child, childCtx := tracer.StartSpan(ctx, "child")
	assert.Equal(t, root.TraceID, child.TraceID)
	assert.Equal(t, root.SpanID, child.ParentID)
	assert.Equal(t, root.TraceID, GetTraceID(childCtx))
}

func TestSpanError(t *testing.T) {
	tracer := New("test", nil)
	defer tracer.Close()

	span, _ := tracer.StartSpan(context.Background(), "op")
	span.SetError(errors.New("boom"))
	assert.Equal(t, 500, span.StatusCode)

	span.SetTag("k", "v")
	assert.Equal(t, map[string]string{"k": "v"}, span.Tags())
}

func TestHTTPMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.DebugLevel)
	tracer := New("test", zap.New(core))

	var seen SpanContext
	var logged map[string]any
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(logging.WithLogger(c.Request.Context(), zap.New(core)))
		c.Next()
	})
	r.Use(HTTPMiddleware(tracer))
	r.GET("/probe", func(c *gin.Context) {
		seen = FromContext(c.Request.Context())
		logging.FromContext(c.Request.Context(), nil).Info("inside")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set(HeaderTraceID, "463ac35c9f6413ad48485a3953bb6124")
	req.Header.Set(HeaderSpanID, "a2fb4a1d1a96d312")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, TraceID("463ac35c9f6413ad48485a3953bb6124"), seen.TraceID)
	assert.Equal(t, SpanID("a2fb4a1d1a96d312"), seen.ParentID)
	assert.Equal(t, "463ac35c9f6413ad48485a3953bb6124", w.Header().Get(HeaderTraceID))
	assert.Equal(t, string(seen.SpanID), w.Header().Get(HeaderSpanID))

	tracer.Close()
	for _, e := range logs.All() {
		if e.Message == "inside" {
			logged = e.ContextMap()
		}
	}
	require.NotNil(t, logged)
	assert.Equal(t, "463ac35c9f6413ad48485a3953bb6124", logged[logging.FieldTraceID])
}
