package core

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/tableside/community-server/internal/log"
	"github.com/tableside/community-server/internal/store"
)

func testLogger() *zerolog.Logger {
	return log.Discard()
}

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event kind %v", kind)
		}
	}
}

func noEvent(t *testing.T, ch <-chan *Event, kind EventKind) {
	t.Helper()

	timeout := time.After(100 * time.Millisecond)
	for {
		select {
		case ev := <-ch:
			if ev.Kind == kind {
				t.Fatalf("unexpected event kind %v: %+v", kind, ev)
			}
		case <-timeout:
			return
		}
	}
}

func startHub(t *testing.T) *Hub {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(testLogger())
	go hub.Run(ctx)
	return hub
}

func msgBetween(id, sender, receiver string) *store.MessageView {
	return &store.MessageView{
		Message: store.Message{
			ID:             id,
			ConversationID: "conv-1",
			SenderID:       sender,
			ReceiverID:     receiver,
			Body:           "hello",
			Kind:           store.MessageKindText,
			CreatedAt:      time.Now().UTC(),
		},
	}
}

func TestHubDeliversInsertsToBothParticipants(t *testing.T) {
	hub := startHub(t)

	alice := NewSubscriber("sub-a", "alice")
	bob := NewSubscriber("sub-b", "bob")
	carol := NewSubscriber("sub-c", "carol")
	hub.Subscribe(alice)
	hub.Subscribe(bob)
	hub.Subscribe(carol)

	hub.PublishInsert(msgBetween("m1", "alice", "bob"))

	for _, sub := range []*Subscriber{alice, bob} {
		ev := mustEvent(t, sub.Events, EventMessageInserted)
		if ev.Message.ID != "m1" {
			t.Fatalf("subscriber %s got message %q, want m1", sub.ID, ev.Message.ID)
		}
	}

	// Carol is neither sender nor receiver.
	noEvent(t, carol.Events, EventMessageInserted)
}

func TestHubDeliversUpdates(t *testing.T) {
	hub := startHub(t)

	alice := NewSubscriber("sub-a", "alice")
	hub.Subscribe(alice)

	updated := msgBetween("m1", "alice", "bob")
	updated.Read = true
	hub.PublishUpdate(updated)

	ev := mustEvent(t, alice.Events, EventMessageUpdated)
	if !ev.Message.Read {
		t.Fatalf("expected updated message with read flag set")
	}
}

func TestHubUnsubscribeStopsDelivery(t *testing.T) {
	hub := startHub(t)

	alice := NewSubscriber("sub-a", "alice")
	hub.Subscribe(alice)
	mustEvent(t, alice.Events, EventPresenceSync)

	hub.Unsubscribe(alice)

	// Publish after unsubscribe lands on the hub loop strictly after the
	// removal command, so nothing new arrives.
	hub.PublishInsert(msgBetween("m1", "alice", "bob"))
	noEvent(t, alice.Events, EventMessageInserted)
}

func TestHubPresenceSnapshotOnSubscribe(t *testing.T) {
	hub := startHub(t)

	hub.Track("alice")
	hub.Track("bob")

	sub := NewSubscriber("sub-c", "carol")
	hub.Subscribe(sub)

	ev := mustEvent(t, sub.Events, EventPresenceSync)
	if len(ev.Online) != 2 || ev.Online[0] != "alice" || ev.Online[1] != "bob" {
		t.Fatalf("unexpected presence snapshot: %v", ev.Online)
	}
}

func TestHubPresenceRefcounting(t *testing.T) {
	hub := startHub(t)

	sub := NewSubscriber("sub-a", "alice")
	hub.Subscribe(sub)
	mustEvent(t, sub.Events, EventPresenceSync)

	// Two connections for the same user.
	hub.Track("bob")
	hub.Track("bob")

	ev := mustEvent(t, sub.Events, EventPresenceSync)
	if len(ev.Online) != 1 || ev.Online[0] != "bob" {
		t.Fatalf("unexpected snapshot after track: %v", ev.Online)
	}

	// Dropping one connection keeps the user online.
	hub.Untrack("bob")
	ev = mustEvent(t, sub.Events, EventPresenceSync)
	if len(ev.Online) != 1 {
		t.Fatalf("user went offline with a connection still open: %v", ev.Online)
	}

	// Dropping the last one removes the user.
	hub.Untrack("bob")
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-sub.Events:
			if ev.Kind == EventPresenceSync && len(ev.Online) == 0 {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for empty presence snapshot")
		}
	}
}

func TestHubTypingScopedToCounterparty(t *testing.T) {
	hub := startHub(t)

	bob := NewSubscriber("sub-b", "bob")
	carol := NewSubscriber("sub-c", "carol")
	hub.Subscribe(bob)
	hub.Subscribe(carol)

	hub.BroadcastTyping(TypingSignal{FromUserID: "alice", ToUserID: "bob", IsTyping: true})

	ev := mustEvent(t, bob.Events, EventTyping)
	if ev.Typing.FromUserID != "alice" || !ev.Typing.IsTyping {
		t.Fatalf("unexpected typing signal: %+v", ev.Typing)
	}

	noEvent(t, carol.Events, EventTyping)
}

func TestHubSlowSubscriberDoesNotBlockOthers(t *testing.T) {
	hub := startHub(t)

	slow := NewSubscriber("sub-slow", "bob")
	fast := NewSubscriber("sub-fast", "bob")
	hub.Subscribe(slow)
	hub.Subscribe(fast)

	// Saturate the slow subscriber's buffer without reading it.
	for i := 0; i < cap(slow.Events)+8; i++ {
		hub.PublishInsert(msgBetween("m-fill", "alice", "bob"))
	}

	hub.PublishInsert(msgBetween("m-final", "alice", "bob"))

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-fast.Events:
			if ev.Kind == EventMessageInserted && ev.Message.ID == "m-final" {
				return
			}
		case <-deadline:
			t.Fatal("fast subscriber never saw the final message")
		}
	}
}
