/*
Package monitoring provides Prometheus metrics for the relay.

# Overview

Metrics are registered on a caller-supplied registry so that several
collectors can coexist in one process (tests create one per case).

# Features

- HTTP request metrics (latency, throughput, size)
- Boundary operation metrics (duration, errors)
- Terminal session lifecycle and output volume
- Chat stream counts, deltas, skipped frames and duration
- Event bus publish counts and subscriber evictions
- WebSocket connection metrics
- Uptime

# Usage

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)

	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	timer := monitoring.NewTimer(metrics, "terminal", "create")
	// ... perform operation ...
	timer.Stop("success")
*/
package monitoring
