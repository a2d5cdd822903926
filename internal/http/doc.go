// Package http provides the REST surface of the session relay.
//
// Every session and chat endpoint calls the matching service.Core operation
// and returns its tagged result ({success, data, error}). Streamed output is
// not available over REST; clients attach to the /stream WebSocket for it.
//
// Endpoints:
//   - Health: / and /health
//   - Services: /services, /services/execute
//   - Sessions: /sessions, /sessions/:id/{input,resize,interrupt,kill}, DELETE /sessions/:id
//   - AI: /ai/config (GET, PUT), /ai/chat, DELETE /ai/chat/:token
//
// Example Usage:
//
//	handlers := http.NewHandlers(core, registry)
//	handlers.Register(router)
package http
