// Command ging-relay runs the terminal session and AI chat relay that backs
// the Ging IDE front end.
//
// Usage:
//
//	ging-relay [--port 8000] [--host 127.0.0.1] [--dev] [--settings file]
package main
