/*
Package tracing provides lightweight request tracing.

Every API request gets a trace ID, returned to the caller as X-Request-ID
and X-Trace-ID. Outgoing calls to the tracker device and the weather
service open child spans and forward the same headers, so one log query
follows a command from the HTTP edge to the servo.

# Usage

	tracer := tracing.New("solarsense", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "device.base")
	tracing.Inject(ctx, req.Header)
	err := do(req)
	tracer.End(span, err)

Spans are buffered (1000) and written to the log asynchronously. Spans
with errors log at warn level, the rest at debug.
*/
package tracing
