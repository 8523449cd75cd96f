package proto

import "encoding/json"

// Inbound is the envelope for frames coming from the client. Data is a
// raw payload decoded per Type at the boundary; a shape mismatch is
// rejected with an error frame rather than trusted.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeOpen              = "open"
	InboundTypeClose             = "close"
	InboundTypeSend              = "send"
	InboundTypeTyping            = "typing"
	InboundTypeScroll            = "scroll"
	InboundTypeConversations     = "conversations"
	InboundTypeNotifications     = "notifications"
	InboundTypeNotificationsRead = "notifications_read"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventThread        = "thread"
	EventConversations = "conversations"
	EventPresence      = "presence"
	EventTyping        = "typing"
	EventScroll        = "scroll"
	EventSendFailed    = "send_failed"
	EventNotification  = "notification"
	EventNotifications = "notifications"
	EventSound         = "sound"
)

// OpenData requests opening the chat with a counterparty.
type OpenData struct {
	CounterpartyID string `json:"counterparty_id"`
}

// SendData is an outgoing direct message.
type SendData struct {
	ReceiverID string `json:"receiver_id"`
	Body       string `json:"body"`
}

// ScrollData reports the viewport position as distance from the bottom.
type ScrollData struct {
	OffsetFromBottom float64 `json:"offset_from_bottom"`
}

// Outbound is the envelope for frames sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// TypingEvent mirrors a typing signal to the client.
type TypingEvent struct {
	UserID   string `json:"user_id"`
	IsTyping bool   `json:"is_typing"`
}

// PresenceEvent carries the full online snapshot.
type PresenceEvent struct {
	Online []string `json:"online"`
}

// ScrollEvent tells the client viewport what to do.
type ScrollEvent struct {
	Behavior string `json:"behavior"` // "smooth" or "instant"
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
