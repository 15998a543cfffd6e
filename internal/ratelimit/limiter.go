// Package ratelimit provides an in-process fixed-window admission
// controller keyed by client identity. State lives only in memory; a
// restart resets all windows.
package ratelimit

import (
	"hash/fnv"
	"sync"
	"time"
)

const (
	// DefaultLimit is the number of requests admitted per window.
	DefaultLimit = 10
	// DefaultWindow is the fixed window length.
	DefaultWindow = time.Second
	// shardCount stripes the identity map so distinct identities do
	// not contend on one mutex. Must be a power of two.
	shardCount = 64
)

// entry tracks one identity's current window.
type entry struct {
	windowStart time.Time
	count       int
}

// shard is an independently locked slice of the identity map.
type shard struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// Limiter admits up to limit requests per identity per fixed window.
// Windows do not slide: a burst straddling a boundary can pass up to
// twice the nominal rate, which is accepted behavior.
type Limiter struct {
	limit  int
	window time.Duration
	shards [shardCount]*shard
}

// New creates a Limiter. Non-positive arguments fall back to the
// defaults (10 requests per 1s window).
func New(limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}

	l := &Limiter{limit: limit, window: window}
	for i := range l.shards {
		l.shards[i] = &shard{entries: make(map[string]*entry)}
	}
	return l
}

// Admit counts one request for identity at time now and reports
// whether it is admitted. The read-modify-write of the identity's
// window state is a single critical section on its shard.
func (l *Limiter) Admit(identity string, now time.Time) bool {
	s := l.shardFor(identity)

	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entries[identity]
	if e == nil {
		e = &entry{}
		s.entries[identity] = e
	}

	if now.Sub(e.windowStart) > l.window {
		e.windowStart = now
		e.count = 0
	}

	e.count++
	return e.count <= l.limit
}

// SweepStale evicts identities whose window ended more than staleAfter
// before now. Returns the number of entries removed.
func (l *Limiter) SweepStale(now time.Time, staleAfter time.Duration) int {
	removed := 0
	for _, s := range l.shards {
		s.mu.Lock()
		for identity, e := range s.entries {
			if now.Sub(e.windowStart) > l.window+staleAfter {
				delete(s.entries, identity)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// Tracked returns the number of identities currently held in memory.
func (l *Limiter) Tracked() int {
	total := 0
	for _, s := range l.shards {
		s.mu.Lock()
		total += len(s.entries)
		s.mu.Unlock()
	}
	return total
}

// shardFor hashes identity onto its shard.
func (l *Limiter) shardFor(identity string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(identity))
	return l.shards[h.Sum32()&(shardCount-1)]
}
