package tracing

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/scriptengine/internal/infrastructure/logging"
)

// HTTPMiddleware joins the caller's B3 trace, or starts one, and runs the
// request inside a server span. The span ids are echoed in response headers
// and attached to the request logger.
func HTTPMiddleware(tracer *Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		incoming := Extract(c.Request.Header)

		ctx := c.Request.Context()
		if incoming.TraceID != "" {
			ctx = WithSpanContext(ctx, incoming)
		}

		name := c.FullPath()
		if name == "" {
			name = c.Request.URL.Path
		}
		span, ctx := tracer.StartSpan(ctx, c.Request.Method+" "+name)
		if incoming.TraceID == "" {
			span.Sampled = incoming.Sampled
			ctx = WithSpanContext(ctx, span.Context())
		}
		span.SetTag("http.method", c.Request.Method)
		span.SetTag("http.url", c.Request.URL.String())

		ctx = logging.With(ctx,
			zap.String(logging.FieldTraceID, string(span.TraceID)),
			zap.String(logging.FieldSpanID, string(span.SpanID)),
		)
		c.Request = c.Request.WithContext(ctx)
		Inject(span.Context(), c.Writer.Header())

		c.Next()

		span.SetStatus(c.Writer.Status())
		span.SetTag("http.status", strconv.Itoa(c.Writer.Status()))
		if len(c.Errors) > 0 {
			span.SetError(c.Errors.Last())
		}

		span.Finish()
		tracer.Submit(span)
	}
}
