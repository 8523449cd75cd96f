package core

import (
	"context"
	"sort"

	"github.com/rs/zerolog"
	"github.com/tableside/community-server/internal/store"
)

// Hub is the realtime fan-out layer. A single goroutine owns all
// subscriber and presence state; every interaction goes through the
// command channel, so no locking is needed.
//
// Delivery is at-least-once from the consumer's point of view: a
// subscriber that resubscribes after a drop may observe an event twice,
// and consumers are expected to deduplicate by message ID.
type Hub struct {
	commands chan hubCommand
	log      *zerolog.Logger
}

type hubCommandKind int

const (
	cmdSubscribe hubCommandKind = iota
	cmdUnsubscribe
	cmdPublish
	cmdTrack
	cmdUntrack
	cmdTyping
)

type hubCommand struct {
	kind       hubCommandKind
	subscriber *Subscriber
	eventKind  EventKind
	message    *store.MessageView
	userID     string
	typing     TypingSignal
}

// NewHub creates a new realtime hub.
func NewHub(logger *zerolog.Logger) *Hub {
	return &Hub{
		commands: make(chan hubCommand, 64),
		log:      logger,
	}
}

// Run processes hub commands until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	subscribers := make(map[*Subscriber]struct{})
	// Presence refcounts: a user with two open connections stays online
	// until both are gone.
	present := make(map[string]int)

	for {
		select {
		case <-ctx.Done():
			h.log.Info().Msg("hub stopped")
			return
		case cmd := <-h.commands:
			switch cmd.kind {
			case cmdSubscribe:
				subscribers[cmd.subscriber] = struct{}{}
				// A fresh subscriber gets the current presence snapshot
				// immediately, the same way a presence channel reports
				// "sync" on join.
				cmd.subscriber.deliver(&Event{Kind: EventPresenceSync, Online: snapshot(present)})
			case cmdUnsubscribe:
				delete(subscribers, cmd.subscriber)
			case cmdPublish:
				for sub := range subscribers {
					if sub.wants(cmd.eventKind, cmd.message) {
						sub.deliver(&Event{Kind: cmd.eventKind, Message: cmd.message})
					}
				}
			case cmdTrack:
				present[cmd.userID]++
				h.syncPresence(subscribers, present)
			case cmdUntrack:
				if present[cmd.userID] > 1 {
					present[cmd.userID]--
				} else {
					delete(present, cmd.userID)
				}
				h.syncPresence(subscribers, present)
			case cmdTyping:
				// Typing signals are scoped to the conversation pair:
				// only the counterparty's connections see them.
				sig := cmd.typing
				for sub := range subscribers {
					if sub.UserID == sig.ToUserID {
						sub.deliver(&Event{Kind: EventTyping, Typing: &sig})
					}
				}
			}
		}
	}
}

// Subscribe registers a subscriber for message, presence, and typing events.
func (h *Hub) Subscribe(sub *Subscriber) {
	h.commands <- hubCommand{kind: cmdSubscribe, subscriber: sub}
}

// Unsubscribe tears down a subscriber. Events already queued on its
// channel remain readable; no new ones arrive.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.commands <- hubCommand{kind: cmdUnsubscribe, subscriber: sub}
}

// PublishInsert fans out a newly persisted message to matching subscribers.
func (h *Hub) PublishInsert(msg *store.MessageView) {
	h.commands <- hubCommand{kind: cmdPublish, eventKind: EventMessageInserted, message: msg}
}

// PublishUpdate fans out a message row update to matching subscribers.
func (h *Hub) PublishUpdate(msg *store.MessageView) {
	h.commands <- hubCommand{kind: cmdPublish, eventKind: EventMessageUpdated, message: msg}
}

// Track marks a user as present. Every subscriber receives a fresh
// full-state sync snapshot.
func (h *Hub) Track(userID string) {
	h.commands <- hubCommand{kind: cmdTrack, userID: userID}
}

// Untrack removes one presence reference for a user.
func (h *Hub) Untrack(userID string) {
	h.commands <- hubCommand{kind: cmdUntrack, userID: userID}
}

// BroadcastTyping delivers a typing signal to the counterparty.
// Fire-and-forget: no retry, no delivery guarantee.
func (h *Hub) BroadcastTyping(sig TypingSignal) {
	h.commands <- hubCommand{kind: cmdTyping, typing: sig}
}

func (h *Hub) syncPresence(subscribers map[*Subscriber]struct{}, present map[string]int) {
	snap := snapshot(present)
	for sub := range subscribers {
		sub.deliver(&Event{Kind: EventPresenceSync, Online: snap})
	}
}

func snapshot(present map[string]int) []string {
	ids := make([]string, 0, len(present))
	for id := range present {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
