/*
Package tracing provides lightweight request tracing.

A span is logged through zap for every HTTP request and every chat stream.
Trace context travels in the X-Trace-ID and X-Span-ID headers and in the
request context.

	tracer := tracing.New("relay", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "chat.stream")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()
*/
package tracing
