package chat

import (
	"github.com/rs/zerolog"
	"github.com/tableside/community-server/internal/notify"
)

// Pipeline maintains the two views of message state the engine exposes:
// the global flat list (feeding the Aggregator) and the currently-open
// thread (feeding the chat viewport), kept consistent with the realtime
// event stream.
//
// Both lists carry an index keyed by message ID so the idempotent merge
// is O(1): realtime delivery is at-least-once and duplicates must be
// discarded. The pipeline is not goroutine-safe; a single session loop
// owns it.
type Pipeline struct {
	selfID string

	// flat is newest first; thread is oldest first.
	flat      []Message
	flatIdx   map[string]int
	thread    []Message
	threadIdx map[string]int

	// openWith is the counterparty of the open chat, "" when closed.
	openWith string
	sink     notify.Sink
	log      *zerolog.Logger
}

// NewPipeline builds an empty pipeline for the given user.
func NewPipeline(selfID string, sink notify.Sink, logger *zerolog.Logger) *Pipeline {
	return &Pipeline{
		selfID:    selfID,
		flatIdx:   make(map[string]int),
		threadIdx: make(map[string]int),
		sink:      sink,
		log:       logger,
	}
}

// LoadFlat replaces the flat list with fetched history, newest first.
func (p *Pipeline) LoadFlat(messages []Message) {
	p.flat = nil
	p.flatIdx = make(map[string]int)
	for _, m := range messages {
		if _, dup := p.flatIdx[m.ID]; dup {
			continue
		}
		p.flat = append(p.flat, m)
		p.flatIdx[m.ID] = len(p.flat) - 1
	}
}

// OpenThread opens the chat with a counterparty, seeding the thread view
// with fetched history (oldest first). Incoming unread messages are
// flipped read locally; their IDs are returned so the caller can send
// best-effort read receipts.
func (p *Pipeline) OpenThread(counterpartyID string, history []Message) (receiptIDs []string) {
	p.openWith = counterpartyID
	p.thread = nil
	p.threadIdx = make(map[string]int)

	for _, m := range history {
		if _, dup := p.threadIdx[m.ID]; dup {
			continue
		}
		if m.ReceiverID == p.selfID && !m.Read {
			receiptIDs = append(receiptIDs, m.ID)
			m.Read = true
			m.Status = StatusRead
		}
		p.thread = append(p.thread, m)
		p.threadIdx[m.ID] = len(p.thread) - 1
		p.markFlatRead(m.ID)
	}
	return receiptIDs
}

// CloseThread closes the open chat. The flat list is untouched.
func (p *Pipeline) CloseThread() {
	p.openWith = ""
	p.thread = nil
	p.threadIdx = make(map[string]int)
}

// OpenWith returns the counterparty of the open chat, "" when closed.
func (p *Pipeline) OpenWith() string {
	return p.openWith
}

// ApplyInsert merges a realtime insert event. Duplicate IDs are
// discarded. If the message belongs to the open thread it is merged
// there too, the notification sound plays, and an in-app notification is
// emitted unless an unread one with the same counterparty and body
// already exists; the echo of an own send is silent. Returns the IDs to
// acknowledge with read receipts (non-empty only when the open chat made
// the message immediately read).
func (p *Pipeline) ApplyInsert(m Message) (receiptIDs []string) {
	if _, dup := p.flatIdx[m.ID]; !dup {
		// Flat list is newest first.
		p.flat = append([]Message{m}, p.flat...)
		p.reindexFlat()
	}

	if p.openWith == "" || m.CounterpartyID(p.selfID) != p.openWith {
		return nil
	}

	if _, dup := p.threadIdx[m.ID]; !dup {
		merged := m
		if merged.SenderID != p.selfID {
			merged.Status = StatusDelivered
		}
		p.thread = append(p.thread, merged)
		p.threadIdx[merged.ID] = len(p.thread) - 1

		if m.SenderID != p.selfID {
			p.sink.PlaySound()
			p.sink.Add(notify.Notification{
				FromUserID: m.CounterpartyID(p.selfID),
				FromName:   m.CounterpartyName(p.selfID),
				Body:       m.Body,
				Unread:     true,
			})
		}
	}

	// Chat is open and the message is addressed to us: acknowledge it
	// right away. The read flag flips locally once the update event
	// echoes back.
	if m.ReceiverID == p.selfID && !m.Read {
		receiptIDs = append(receiptIDs, m.ID)
	}
	return receiptIDs
}

// ApplyUpdate merges a realtime update event, replacing the matching
// message by ID in both views. An update for an unknown message is
// silently dropped: the subsequent insert, if any, carries final state.
func (p *Pipeline) ApplyUpdate(m Message) {
	i, inFlat := p.flatIdx[m.ID]
	if inFlat {
		p.flat[i] = m
	}
	j, inThread := p.threadIdx[m.ID]
	if inThread {
		p.thread[j] = m
	}
	if !inFlat && !inThread {
		p.log.Debug().Str("message_id", m.ID).Msg("dropped update for unknown message")
	}
}

// AppendOptimistic adds a "sending" entry keyed by its temporary ID to
// the open thread.
func (p *Pipeline) AppendOptimistic(m Message) {
	p.thread = append(p.thread, m)
	p.threadIdx[m.ID] = len(p.thread) - 1
}

// ResolveOptimistic replaces the temporary entry with the persisted
// record. If the realtime echo landed first the temporary entry is
// simply dropped, leaving exactly one entry for the message.
func (p *Pipeline) ResolveOptimistic(tempID string, persisted Message) {
	if _, echoed := p.threadIdx[persisted.ID]; echoed {
		p.DropOptimistic(tempID)
		return
	}
	if i, ok := p.threadIdx[tempID]; ok {
		p.thread[i] = persisted
		delete(p.threadIdx, tempID)
		p.threadIdx[persisted.ID] = i
	}

	if _, dup := p.flatIdx[persisted.ID]; !dup {
		p.flat = append([]Message{persisted}, p.flat...)
		p.reindexFlat()
	}
}

// DropOptimistic removes a temporary entry entirely, used when the send
// fails. The caller re-invokes send to retry.
func (p *Pipeline) DropOptimistic(tempID string) {
	i, ok := p.threadIdx[tempID]
	if !ok {
		return
	}
	p.thread = append(p.thread[:i], p.thread[i+1:]...)
	p.reindexThread()
}

// Thread returns a copy of the open thread, oldest first.
func (p *Pipeline) Thread() []Message {
	out := make([]Message, len(p.thread))
	copy(out, p.thread)
	return out
}

// Flat returns a copy of the flat message list, newest first.
func (p *Pipeline) Flat() []Message {
	out := make([]Message, len(p.flat))
	copy(out, p.flat)
	return out
}

// Conversations projects the flat list into the conversation overview.
func (p *Pipeline) Conversations() []Conversation {
	return Aggregate(p.flat, p.selfID)
}

func (p *Pipeline) markFlatRead(id string) {
	if i, ok := p.flatIdx[id]; ok {
		if p.flat[i].ReceiverID == p.selfID && !p.flat[i].Read {
			p.flat[i].Read = true
			p.flat[i].Status = StatusRead
		}
	}
}

func (p *Pipeline) reindexFlat() {
	p.flatIdx = make(map[string]int, len(p.flat))
	for i, m := range p.flat {
		p.flatIdx[m.ID] = i
	}
}

func (p *Pipeline) reindexThread() {
	p.threadIdx = make(map[string]int, len(p.thread))
	for i, m := range p.thread {
		p.threadIdx[m.ID] = i
	}
}
