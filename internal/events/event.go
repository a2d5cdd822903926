package events

import "time"

// Kind identifies what an Event carries.
type Kind string

const (
	KindSessionData Kind = "session.data"
	KindSessionExit Kind = "session.exit"
	KindChatDelta   Kind = "chat.delta"
	KindChatEnd     Kind = "chat.end"
)

// Event is one item on the bus. Session events set SessionID; chat events set
// RequestID. Data holds terminal output or a token delta.
type Event struct {
	Kind      Kind
	SessionID string
	RequestID string
	Data      string
	Timestamp time.Time
}

// SessionData builds a terminal output event.
func SessionData(sessionID string, data []byte) Event {
	return Event{Kind: KindSessionData, SessionID: sessionID, Data: string(data), Timestamp: time.Now()}
}

// SessionExit builds a terminal exit event.
func SessionExit(sessionID string) Event {
	return Event{Kind: KindSessionExit, SessionID: sessionID, Timestamp: time.Now()}
}

// ChatDelta builds a token delta event.
func ChatDelta(requestID, content string) Event {
	return Event{Kind: KindChatDelta, RequestID: requestID, Data: content, Timestamp: time.Now()}
}

// ChatEnd builds the end-of-stream event.
func ChatEnd(requestID string) Event {
	return Event{Kind: KindChatEnd, RequestID: requestID, Timestamp: time.Now()}
}

// Publisher accepts events for fan-out. Producers depend on this rather than
// on *Bus.
type Publisher interface {
	Publish(Event)
}
