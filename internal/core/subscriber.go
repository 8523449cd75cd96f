package core

import "github.com/tableside/community-server/internal/store"

// FilterColumn names the single message column a subscription may test.
// The realtime layer deliberately mirrors a row-level filter that can
// only check one equality predicate per subscription, which is why a
// session registers four subscriptions instead of one.
type FilterColumn string

const (
	FilterSender   FilterColumn = "sender_id"
	FilterReceiver FilterColumn = "receiver_id"
)

// Subscription matches one event kind against one column equality.
type Subscription struct {
	Kind   EventKind
	Column FilterColumn
	Value  string
}

func (s Subscription) matches(kind EventKind, msg *store.MessageView) bool {
	if s.Kind != kind || msg == nil {
		return false
	}
	switch s.Column {
	case FilterSender:
		return msg.SenderID == s.Value
	case FilterReceiver:
		return msg.ReceiverID == s.Value
	default:
		return false
	}
}

// Subscriber is one connected client of the realtime layer.
type Subscriber struct {
	ID            string
	UserID        string
	Events        chan *Event
	Subscriptions []Subscription
}

// NewSubscriber constructs a subscriber with an initialized event channel.
// Message subscriptions cover the four classes a chat session needs:
// insert-as-sender, insert-as-receiver, update-as-sender, update-as-receiver.
func NewSubscriber(id, userID string) *Subscriber {
	return &Subscriber{
		ID:     id,
		UserID: userID,
		Events: make(chan *Event, 32),
		Subscriptions: []Subscription{
			{Kind: EventMessageInserted, Column: FilterSender, Value: userID},
			{Kind: EventMessageInserted, Column: FilterReceiver, Value: userID},
			{Kind: EventMessageUpdated, Column: FilterSender, Value: userID},
			{Kind: EventMessageUpdated, Column: FilterReceiver, Value: userID},
		},
	}
}

func (s *Subscriber) wants(kind EventKind, msg *store.MessageView) bool {
	for _, sub := range s.Subscriptions {
		if sub.matches(kind, msg) {
			return true
		}
	}
	return false
}

func (s *Subscriber) deliver(ev *Event) {
	select {
	case s.Events <- ev:
	default:
		// Drop if slow consumer.
	}
}
