// Package events is the fan-out boundary between the relay's producers
// (terminal sessions, chat streams) and its consumers (websocket
// connections).
package events
