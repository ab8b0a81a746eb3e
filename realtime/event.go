package realtime

import "time"

type EventType string

const (
	EventSend     EventType = "SEND"
	EventNotify   EventType = "NOTIFY"
	EventPresence EventType = "PRESENCE"
)

// Event is the envelope that travels over a channel. Exactly one of
// the payload fields is set, matching Type.
type Event struct {
	Type     EventType     `msgpack:"type"`
	Message  *MessageData  `msgpack:"message,omitempty"`
	Notify   *NotifyData   `msgpack:"notify,omitempty"`
	Presence *PresenceData `msgpack:"presence,omitempty"`
}

// Payload returns the variant matching Type, shaped for the
// client-facing {type, data} contract.
func (e Event) Payload() any {
	switch e.Type {
	case EventSend:
		return e.Message
	case EventNotify:
		return e.Notify
	case EventPresence:
		return e.Presence
	}
	return nil
}

type MessageData struct {
	Content   string    `json:"content" msgpack:"content"`
	UserID    string    `json:"userId" msgpack:"userId"`
	CreatedAt time.Time `json:"createdAt" msgpack:"createdAt"`
}

type NotifyData struct {
	User    string `json:"user" msgpack:"user"`
	Content string `json:"content" msgpack:"content"`
}

type PresenceKind string

const (
	PresenceJoin   PresenceKind = "join"
	PresenceLeave  PresenceKind = "leave"
	PresenceUpdate PresenceKind = "update"
	// PresenceHeartbeat refreshes a record's liveness without touching
	// its typing state.
	PresenceHeartbeat PresenceKind = "heartbeat"
)

// PresenceData is the per-client presence record attached to a
// channel. SessionID distinguishes devices; UserID is the client
// identifier rosters are keyed by.
type PresenceData struct {
	Kind      PresenceKind `json:"kind" msgpack:"kind"`
	SessionID string       `json:"sessionId" msgpack:"sessionId"`
	UserID    string       `json:"userId" msgpack:"userId"`
	Name      string       `json:"name" msgpack:"name"`
	IsTyping  bool         `json:"isTyping" msgpack:"isTyping"`
}
