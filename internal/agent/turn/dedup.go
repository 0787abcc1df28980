package turn

import (
	"sync"
	"time"
)

// dedupSet is a bounded, TTL-evicted record of provider message ids.
// Eviction is explicit: expired entries are swept on insert, and when the
// set is still over capacity the oldest entries go first.
type dedupSet struct {
	mu    sync.Mutex
	ttl   time.Duration
	max   int
	seen  map[string]time.Time
	order []string // insertion order for capacity eviction
}

func newDedupSet(ttl time.Duration, max int) *dedupSet {
	return &dedupSet{
		ttl:  ttl,
		max:  max,
		seen: make(map[string]time.Time),
	}
}

// markSeen records id at time now and reports whether it was new. A
// repeated id within the TTL window reports false.
func (d *dedupSet) markSeen(id string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	at, ok := d.seen[id]
	if ok && now.Sub(at) < d.ttl {
		return false
	}

	d.seen[id] = now
	if !ok {
		d.order = append(d.order, id)
	}

	if len(d.seen) > d.max {
		d.sweep(now)
	}
	return true
}

// sweep drops expired entries, then the oldest until under capacity.
// Caller holds the lock.
func (d *dedupSet) sweep(now time.Time) {
	kept := d.order[:0]
	for _, id := range d.order {
		at, ok := d.seen[id]
		if !ok {
			continue
		}
		if now.Sub(at) >= d.ttl {
			delete(d.seen, id)
			continue
		}
		kept = append(kept, id)
	}
	d.order = kept

	for len(d.seen) > d.max && len(d.order) > 0 {
		oldest := d.order[0]
		d.order = d.order[1:]
		delete(d.seen, oldest)
	}
}

// len reports the current entry count, for tests.
func (d *dedupSet) size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
