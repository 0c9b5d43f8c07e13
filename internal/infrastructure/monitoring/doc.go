/*
Package monitoring provides Prometheus metrics for the harvester.

# Overview

Collectors are registered on a private registry owned by each Metrics
value, so several crawls (or tests) in one process never collide on
registration. A nil *Metrics is accepted everywhere and records nothing.

# Metrics

- Outbound fetches by host and status, with latency histogram
- Rate limit cooldowns by host
- Folder listings by outcome, parsed tools, skipped files by reason
- Workflow reference outcomes
- Status server requests

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})))
*/
package monitoring
