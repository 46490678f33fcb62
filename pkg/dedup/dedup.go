// Package dedup drops duplicate MQTT payloads, typically QoS-1 redeliveries.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Deduper remembers payload hashes for a TTL window. Seen reports whether an
// identical payload was already processed inside the window.
type Deduper struct {
	mu   sync.Mutex
	ttl  time.Duration
	max  int
	seen map[string]time.Time
}

func New(ttl time.Duration, max int) *Deduper {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if max <= 0 {
		max = 1024
	}
	return &Deduper{ttl: ttl, max: max, seen: make(map[string]time.Time, max)}
}

// Seen hashes the payload and records it. It returns true when the same
// payload was seen within the TTL window.
func (d *Deduper) Seen(payload []byte) bool {
	h := sha256.Sum256(payload)
	id := hex.EncodeToString(h[:])
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if exp, ok := d.seen[id]; ok && now.Before(exp) {
		return true
	}
	d.seen[id] = now.Add(d.ttl)
	if len(d.seen) > d.max {
		d.sweep(now)
	}
	return false
}

// sweep removes expired entries; caller holds the lock.
func (d *Deduper) sweep(now time.Time) {
	for id, exp := range d.seen {
		if now.After(exp) {
			delete(d.seen, id)
		}
	}
}
