package chat

// Presence tracks which counterparties are currently online. The set is
// rebuilt from every full-state sync snapshot rather than patched
// incrementally, so a missed join/leave cannot cause drift. Ephemeral:
// no history is retained. Owned by the session loop, not goroutine-safe.
type Presence struct {
	online map[string]struct{}
}

// NewPresence builds an empty presence set.
func NewPresence() *Presence {
	return &Presence{online: make(map[string]struct{})}
}

// ApplySync replaces the online set with a snapshot.
func (p *Presence) ApplySync(ids []string) {
	next := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		next[id] = struct{}{}
	}
	p.online = next
}

// Online reports whether a user is in the current online set.
func (p *Presence) Online(userID string) bool {
	_, ok := p.online[userID]
	return ok
}

// Snapshot returns the current online set as a slice.
func (p *Presence) Snapshot() []string {
	out := make([]string, 0, len(p.online))
	for id := range p.online {
		out = append(out, id)
	}
	return out
}
