/*
Package tracing provides lightweight spans for pipeline runs.

A run gets a trace; each stage, export and status request gets a span in it.
Completed spans are logged as structured records by a background collector.

# Usage

	tracer := tracing.New("arch3d", logger)
	defer tracer.Close()

	span, ctx := tracer.StartSpan(ctx, "stage.generate-3d-view")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()
	span.SetTag("bytes", "1024")

# Propagation

Outbound HTTP requests carry the context with two headers:
  - X-Trace-ID: identifier for the whole run
  - X-Span-ID: identifier for the current operation
*/
package tracing
