/*
Package tracing provides lightweight B3 trace propagation.

Incoming X-B3-* headers (or the single b3 header) are honoured so that
script executions join the caller's trace. A request without trace headers
starts a new trace. Finished spans are logged through zap by a buffered
background collector.

# Usage

	tracer := tracing.New("script-engine", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "script.execute")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()
	span.SetTag("script_hash", hash)

# Headers

	X-B3-TraceId       32 or 16 lowercase hex characters
	X-B3-SpanId        16 lowercase hex characters
	X-B3-ParentSpanId  16 lowercase hex characters, absent on root spans
	X-B3-Sampled       1 or 0
*/
package tracing
