package core

import "github.com/tableside/community-server/internal/store"

// EventKind is a notification the realtime layer emits to subscribers.
type EventKind int

const (
	// EventMessageInserted notifies subscribers about a newly persisted message.
	EventMessageInserted EventKind = iota
	// EventMessageUpdated notifies subscribers about a row update, e.g. a
	// read-flag flip from a receipt elsewhere.
	EventMessageUpdated
	// EventPresenceSync delivers the full snapshot of online user IDs.
	// Each sync fully replaces the previous set; deltas are never sent.
	EventPresenceSync
	// EventTyping delivers an ephemeral typing signal. No persistence,
	// no delivery guarantee.
	EventTyping
)

// TypingSignal is a transient broadcast indicating a user is composing.
type TypingSignal struct {
	FromUserID string `json:"user_id"`
	ToUserID   string `json:"-"`
	IsTyping   bool   `json:"is_typing"`
}

// Event is delivered to subscribers to describe what happened.
type Event struct {
	Kind    EventKind
	Message *store.MessageView // for insert/update events
	Online  []string           // for presence sync events
	Typing  *TypingSignal      // for typing events
}
