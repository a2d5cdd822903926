// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: colored console output
//
// Each relay subsystem gets a named child logger and logs with structured
// fields such as session_id, request_token and provider.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	log := logger.Component("terminal")
//	log.Info("session created", zap.String("session_id", id))
package logging
