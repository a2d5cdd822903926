// Package http serves the aggregated runtime metrics view
// (GET /metrics/summary) alongside the Prometheus exposition.
package http
