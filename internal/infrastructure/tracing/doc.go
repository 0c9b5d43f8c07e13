/*
Package tracing times harvester operations as spans and logs them.

Spans share a trace ID through the context, so every repository crawled
and workflow resolved during one run can be correlated in the logs. The
status server continues traces passed in the X-Trace-ID header.

	span, ctx := tracer.StartSpan(ctx, "crawl_repository")
	span.SetTag("url", root)
	defer span.End()
*/
package tracing
