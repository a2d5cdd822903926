// Package middleware provides the gin middleware shared by the REST and
// WebSocket routes.
//
//   - CORS: Cross-origin resource sharing via gin-contrib/cors
//   - RateLimit: Per-IP token bucket with idle client eviction
//   - GlobalRateLimit: One bucket for every client
//
// Example Usage:
//
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.FromConfig(cfg.RateLimit)))
package middleware
