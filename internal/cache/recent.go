// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

package cache

import (
	"sync"
	"time"

	"github.com/seckc/mhn-relay/internal/event"
	"github.com/seckc/mhn-relay/internal/metrics"
)

// Recent-event cache defaults.
const (
	DefaultCapacity  = 100
	DefaultRetention = 300 * time.Second

	// CachedAtLayout formats CachedEvent.CachedAt.
	CachedAtLayout = "2006-01-02 15:04:05"
)

// CachedEvent is an event plus the moment it entered the cache.
type CachedEvent struct {
	Event     event.Event `json:"event"`
	Timestamp float64     `json:"timestamp"`
	CachedAt  string      `json:"cached_at"`
}

// Status summarizes the cache for the status endpoint.
type Status struct {
	TotalCount       int     `json:"cached_events"`
	ValidCount       int     `json:"valid_events"`
	RetentionSeconds int     `json:"retention_seconds"`
	ServerTime       float64 `json:"server_time"`
}

// RecentEvents is a fixed-size FIFO of the latest events. Entries older
// than the retention window stay in the buffer until pushed out by newer
// ones but are hidden from Query and from Status.ValidCount.
//
// Complexity:
//   - Put: O(1)
//   - Query, Status: O(capacity)
type RecentEvents struct {
	mu        sync.Mutex
	buf       []CachedEvent // circular, oldest at head
	head      int
	size      int
	retention time.Duration
	now       func() time.Time
	sanitizer *event.Sanitizer
}

// Option configures a RecentEvents.
type Option func(*RecentEvents)

// WithCapacity sets the buffer size. Values below 1 are ignored.
func WithCapacity(n int) Option {
	return func(r *RecentEvents) {
		if n > 0 {
			r.buf = make([]CachedEvent, n)
		}
	}
}

// WithRetention sets the age after which entries are hidden.
func WithRetention(d time.Duration) Option {
	return func(r *RecentEvents) {
		if d > 0 {
			r.retention = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *RecentEvents) {
		if now != nil {
			r.now = now
		}
	}
}

// WithSanitizer sets the redaction applied to unauthenticated queries.
func WithSanitizer(s *event.Sanitizer) Option {
	return func(r *RecentEvents) {
		if s != nil {
			r.sanitizer = s
		}
	}
}

// NewRecentEvents creates an empty cache of DefaultCapacity entries with
// DefaultRetention unless overridden.
func NewRecentEvents(opts ...Option) *RecentEvents {
	r := &RecentEvents{
		buf:       make([]CachedEvent, DefaultCapacity),
		retention: DefaultRetention,
		now:       time.Now,
		sanitizer: event.DefaultSanitizer,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Capacity returns the maximum number of entries held.
func (r *RecentEvents) Capacity() int {
	return len(r.buf)
}

// Retention returns the visibility window.
func (r *RecentEvents) Retention() time.Duration {
	return r.retention
}

// Put records ev at the current time, evicting the oldest entry when full.
func (r *RecentEvents) Put(ev event.Event) {
	r.PutAt(ev, r.now())
}

// PutAt records ev as cached at t.
func (r *RecentEvents) PutAt(ev event.Event, t time.Time) {
	entry := CachedEvent{
		Event:     ev,
		Timestamp: event.EpochSeconds(t),
		CachedAt:  t.UTC().Format(CachedAtLayout),
	}

	r.mu.Lock()
	capacity := len(r.buf)
	if r.size < capacity {
		r.buf[(r.head+r.size)%capacity] = entry
		r.size++
	} else {
		r.buf[r.head] = entry
		r.head = (r.head + 1) % capacity
		metrics.CacheEvictions.Inc()
	}
	size := r.size
	r.mu.Unlock()

	metrics.CacheEvents.Set(float64(size))
}

// Query returns the entries younger than the retention window and newer
// than since (strictly), oldest first. Unauthenticated callers get
// sanitized copies. A nil since means no lower bound.
func (r *RecentEvents) Query(authenticated bool, since *float64) []CachedEvent {
	r.mu.Lock()
	now := event.EpochSeconds(r.now())
	cutoff := now - r.retention.Seconds()
	out := make([]CachedEvent, 0, r.size)
	capacity := len(r.buf)
	for i := 0; i < r.size; i++ {
		entry := r.buf[(r.head+i)%capacity]
		if entry.Timestamp < cutoff {
			continue
		}
		if since != nil && entry.Timestamp <= *since {
			continue
		}
		out = append(out, entry)
	}
	r.mu.Unlock()

	if !authenticated {
		for i := range out {
			out[i].Event = r.sanitizer.Event(out[i].Event)
		}
	}
	return out
}

// Status reports total and visible entry counts.
func (r *RecentEvents) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := event.EpochSeconds(r.now())
	cutoff := now - r.retention.Seconds()
	valid := 0
	capacity := len(r.buf)
	for i := 0; i < r.size; i++ {
		if r.buf[(r.head+i)%capacity].Timestamp >= cutoff {
			valid++
		}
	}
	return Status{
		TotalCount:       r.size,
		ValidCount:       valid,
		RetentionSeconds: int(r.retention / time.Second),
		ServerTime:       now,
	}
}

// Len returns the number of entries held, expired ones included.
func (r *RecentEvents) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}
