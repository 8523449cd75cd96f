package chat

import (
	"sync"
	"testing"
	"time"

	"github.com/tableside/community-server/internal/core"
)

type signalRecorder struct {
	mu      sync.Mutex
	signals []core.TypingSignal
}

func (r *signalRecorder) record(sig core.TypingSignal) {
	r.mu.Lock()
	r.signals = append(r.signals, sig)
	r.mu.Unlock()
}

func (r *signalRecorder) all() []core.TypingSignal {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]core.TypingSignal, len(r.signals))
	copy(out, r.signals)
	return out
}

func (r *signalRecorder) waitFor(t *testing.T, n int) []core.TypingSignal {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sigs := r.all(); len(sigs) >= n {
			return sigs
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d signals, got %d", n, len(r.all()))
	return nil
}

func TestTypingIdleEmitsSingleStop(t *testing.T) {
	rec := &signalRecorder{}
	tb := NewTypingBroadcaster("u1", 30*time.Millisecond, rec.record)

	tb.Keystroke("u2")

	sigs := rec.waitFor(t, 2)
	if !sigs[0].IsTyping || sigs[0].ToUserID != "u2" {
		t.Fatalf("expected typing=true to u2 first, got %+v", sigs[0])
	}
	if sigs[1].IsTyping {
		t.Fatalf("expected stop signal after idle window, got %+v", sigs[1])
	}

	// No further keystrokes: the stop signal fires exactly once.
	time.Sleep(80 * time.Millisecond)
	if got := len(rec.all()); got != 2 {
		t.Fatalf("expected exactly 2 signals, got %d", got)
	}
}

func TestTypingKeystrokeRestartsIdleTimer(t *testing.T) {
	rec := &signalRecorder{}
	tb := NewTypingBroadcaster("u1", 50*time.Millisecond, rec.record)

	tb.Keystroke("u2")
	time.Sleep(25 * time.Millisecond)
	tb.Keystroke("u2")
	time.Sleep(25 * time.Millisecond)

	// The second keystroke reset the window; no stop signal yet.
	for _, sig := range rec.all() {
		if !sig.IsTyping {
			t.Fatalf("stop signal fired before the idle window elapsed")
		}
	}

	sigs := rec.waitFor(t, 3)
	stops := 0
	for _, sig := range sigs {
		if !sig.IsTyping {
			stops++
		}
	}
	if stops != 1 {
		t.Fatalf("expected exactly one stop signal, got %d", stops)
	}
}

func TestTypingCancelEmitsStop(t *testing.T) {
	rec := &signalRecorder{}
	tb := NewTypingBroadcaster("u1", time.Minute, rec.record)

	tb.Keystroke("u2")
	tb.Cancel()

	sigs := rec.all()
	if len(sigs) != 2 || sigs[1].IsTyping {
		t.Fatalf("expected immediate stop on cancel, got %+v", sigs)
	}

	// Cancel without an outstanding signal is a no-op.
	tb.Cancel()
	if got := len(rec.all()); got != 2 {
		t.Fatalf("expected no extra signals, got %d", got)
	}
}
