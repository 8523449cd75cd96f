package notify

import "sync"

// Notification is one entry in the in-app notification list.
type Notification struct {
	FromUserID string `json:"from_user_id"`
	FromName   string `json:"from_name"`
	Body       string `json:"body"`
	Unread     bool   `json:"unread"`
}

// Sink is the notification collaborator the chat engine talks to. It
// presents notifications and plays sounds; the engine does not manage
// its lifecycle.
type Sink interface {
	// Add appends a notification unless an unread one with the same
	// counterparty and body already exists. Returns true if appended.
	Add(n Notification) bool

	// PlaySound triggers the new-message sound, best-effort.
	PlaySound()
}

// List is an in-memory Sink keeping the notification list itself.
type List struct {
	mu    sync.Mutex
	items []Notification
	rang  int // sound trigger count, observable in tests
}

// NewList creates an empty in-memory notification list.
func NewList() *List {
	return &List{}
}

// Add appends a notification, deduplicating by counterparty, body, and
// unread state.
func (l *List) Add(n Notification) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, existing := range l.items {
		if existing.FromUserID == n.FromUserID && existing.Body == n.Body && existing.Unread == n.Unread {
			return false
		}
	}
	l.items = append(l.items, n)
	return true
}

// PlaySound records a sound trigger.
func (l *List) PlaySound() {
	l.mu.Lock()
	l.rang++
	l.mu.Unlock()
}

// Items returns a copy of the current notification list.
func (l *List) Items() []Notification {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Notification, len(l.items))
	copy(out, l.items)
	return out
}

// SoundCount returns how many times PlaySound fired.
func (l *List) SoundCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rang
}

// MarkAllRead flips every notification to read.
func (l *List) MarkAllRead() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.items {
		l.items[i].Unread = false
	}
}
