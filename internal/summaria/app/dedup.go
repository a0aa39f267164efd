package app

import "sync"

// defaultDedupCapacity bounds the remembered event-ID set. Matrix redelivers
// events after reconnects, so the window needs to cover a few sync gaps but
// must not grow without bound.
const defaultDedupCapacity = 2048

// deduper remembers recently seen event IDs. Seen reports whether an ID was
// already observed and records it either way. When the set is full the oldest
// entry is evicted first. Safe for concurrent use.
type deduper struct {
	mu    sync.Mutex
	seen  map[string]struct{}
	order []string
	cap   int
	next  int
}

func newDeduper(capacity int) *deduper {
	if capacity <= 0 {
		capacity = defaultDedupCapacity
	}
	return &deduper{
		seen:  make(map[string]struct{}, capacity),
		order: make([]string, capacity),
		cap:   capacity,
	}
}

// Seen returns true when eventID was already recorded. A new ID is recorded
// and false is returned.
func (d *deduper) Seen(eventID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[eventID]; ok {
		return true
	}

	// Evict the slot we are about to reuse.
	if old := d.order[d.next]; old != "" {
		delete(d.seen, old)
	}
	d.order[d.next] = eventID
	d.next = (d.next + 1) % d.cap
	d.seen[eventID] = struct{}{}
	return false
}
