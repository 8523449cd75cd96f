package chat

import (
	"sync"
	"time"

	"github.com/tableside/community-server/internal/core"
)

// DefaultTypingIdle is how long after the last keystroke the stop signal
// fires.
const DefaultTypingIdle = 3 * time.Second

// TypingBroadcaster emits ephemeral typing signals. Every keystroke
// broadcasts "typing" and restarts the idle timer; when the timer fires
// with no further keystrokes, a single matching "stopped typing" signal
// goes out. Fire-and-forget: no retry, no delivery guarantee.
//
// Unlike the rest of the engine this type is goroutine-safe, because the
// idle timer fires on its own goroutine.
type TypingBroadcaster struct {
	selfID    string
	idle      time.Duration
	broadcast func(core.TypingSignal)

	mu       sync.Mutex
	timer    *time.Timer
	typingTo string // counterparty of the outstanding "typing" signal
}

// NewTypingBroadcaster builds a broadcaster with the given idle window.
// Zero idle falls back to DefaultTypingIdle.
func NewTypingBroadcaster(selfID string, idle time.Duration, broadcast func(core.TypingSignal)) *TypingBroadcaster {
	if idle <= 0 {
		idle = DefaultTypingIdle
	}
	return &TypingBroadcaster{
		selfID:    selfID,
		idle:      idle,
		broadcast: broadcast,
	}
}

// Keystroke broadcasts a typing signal to the counterparty and restarts
// the idle timer.
func (t *TypingBroadcaster) Keystroke(toUserID string) {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.typingTo = toUserID
	t.timer = time.AfterFunc(t.idle, t.idleExpired)
	t.mu.Unlock()

	t.broadcast(core.TypingSignal{FromUserID: t.selfID, ToUserID: toUserID, IsTyping: true})
}

// Cancel stops the idle timer and, if a typing signal is outstanding,
// emits the stop signal immediately. Used when the chat closes.
func (t *TypingBroadcaster) Cancel() {
	t.mu.Lock()
	to := t.typingTo
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.typingTo = ""
	t.mu.Unlock()

	if to != "" {
		t.broadcast(core.TypingSignal{FromUserID: t.selfID, ToUserID: to, IsTyping: false})
	}
}

func (t *TypingBroadcaster) idleExpired() {
	t.mu.Lock()
	to := t.typingTo
	t.typingTo = ""
	t.timer = nil
	t.mu.Unlock()

	if to != "" {
		t.broadcast(core.TypingSignal{FromUserID: t.selfID, ToUserID: to, IsTyping: false})
	}
}
