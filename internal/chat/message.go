package chat

import (
	"time"

	"github.com/tableside/community-server/internal/store"
)

// Status is the delivery state of a message as the engine sees it.
type Status string

const (
	// StatusSending marks an optimistic entry not yet confirmed by the store.
	StatusSending Status = "sending"
	// StatusSent marks an own message confirmed by the store.
	StatusSent Status = "sent"
	// StatusDelivered marks a counterparty message merged from the
	// realtime stream.
	StatusDelivered Status = "delivered"
	// StatusRead marks a message whose read flag is set.
	StatusRead Status = "read"
)

// Message is the engine's view of a direct message. ID holds either the
// server-assigned UUID or, while Status is StatusSending, a temporary
// local identifier. Exactly one of the two is ever authoritative: once
// the server ID arrives the temporary entry is replaced wholesale.
type Message struct {
	ID             string            `json:"id"`
	ConversationID string            `json:"conversation_id"`
	SenderID       string            `json:"sender_id"`
	ReceiverID     string            `json:"receiver_id"`
	SenderName     string            `json:"sender_name"`
	ReceiverName   string            `json:"receiver_name"`
	Body           string            `json:"body"`
	Kind           store.MessageKind `json:"kind"`
	Read           bool              `json:"read"`
	Status         Status            `json:"status"`
	CreatedAt      time.Time         `json:"created_at"`
}

// CounterpartyID returns the other participant relative to selfID:
// the receiver if self sent the message, the sender otherwise.
func (m Message) CounterpartyID(selfID string) string {
	if m.SenderID == selfID {
		return m.ReceiverID
	}
	return m.SenderID
}

// CounterpartyName resolves the display name of the other participant.
func (m Message) CounterpartyName(selfID string) string {
	if m.SenderID == selfID {
		return m.ReceiverName
	}
	return m.SenderName
}

// FromView converts a persisted row into the engine's message model,
// deriving status from the perspective of selfID.
func FromView(v *store.MessageView, selfID string) Message {
	status := StatusDelivered
	if v.SenderID == selfID {
		status = StatusSent
	}
	if v.Read {
		status = StatusRead
	}
	return Message{
		ID:             v.ID,
		ConversationID: v.ConversationID,
		SenderID:       v.SenderID,
		ReceiverID:     v.ReceiverID,
		SenderName:     v.SenderName,
		ReceiverName:   v.ReceiverName,
		Body:           v.Body,
		Kind:           v.Kind,
		Read:           v.Read,
		Status:         status,
		CreatedAt:      v.CreatedAt,
	}
}
