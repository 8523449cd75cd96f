package chat

import "sort"

// UnknownCounterpartyName is shown when a counterparty's display name
// cannot be resolved.
const UnknownCounterpartyName = "Unknown Restaurant"

// Conversation is a derived grouping of all messages exchanged with one
// counterparty. It is a pure projection of the flat message list: never
// persisted, never mutated, recomputed from its inputs.
type Conversation struct {
	CounterpartyID   string    `json:"counterparty_id"`
	CounterpartyName string    `json:"counterparty_name"`
	LastMessage      Message   `json:"last_message"`
	Unread           int       `json:"unread"`
	Messages         []Message `json:"messages,omitempty"`
}

// Aggregate groups a flat message list into per-counterparty
// conversations, most-recently-active first.
//
// For each message the counterparty is "receiver if self is sender, else
// sender". The preview is the message with the latest timestamp; the
// unread counter counts messages where self is the receiver and the read
// flag is clear. Pure function of its inputs: safe to call on every
// snapshot without flicker, output is stable for identical input.
func Aggregate(messages []Message, selfID string) []Conversation {
	groups := make(map[string]*Conversation)

	for _, m := range messages {
		cp := m.CounterpartyID(selfID)
		conv, ok := groups[cp]
		if !ok {
			name := m.CounterpartyName(selfID)
			if name == "" {
				name = UnknownCounterpartyName
			}
			conv = &Conversation{
				CounterpartyID:   cp,
				CounterpartyName: name,
				LastMessage:      m,
			}
			groups[cp] = conv
		}

		if m.CreatedAt.After(conv.LastMessage.CreatedAt) {
			conv.LastMessage = m
		}
		if m.ReceiverID == selfID && !m.Read {
			conv.Unread++
		}
		conv.Messages = append(conv.Messages, m)
	}

	out := make([]Conversation, 0, len(groups))
	for _, conv := range groups {
		sort.Slice(conv.Messages, func(i, j int) bool {
			a, b := conv.Messages[i], conv.Messages[j]
			if a.CreatedAt.Equal(b.CreatedAt) {
				return a.ID < b.ID
			}
			return a.CreatedAt.Before(b.CreatedAt)
		})
		out = append(out, *conv)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.LastMessage.CreatedAt.Equal(b.LastMessage.CreatedAt) {
			// Deterministic order for equal timestamps.
			return a.CounterpartyID < b.CounterpartyID
		}
		return a.LastMessage.CreatedAt.After(b.LastMessage.CreatedAt)
	})
	return out
}
