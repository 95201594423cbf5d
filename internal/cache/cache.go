package cache

import (
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/poly4/fpl-analsyer-sub000/internal/metrics"
)

// defaultRetentionGrace is how long expired entries stay readable through
// GetStaleOrNull before the sweep reclaims them.
const defaultRetentionGrace = 10 * time.Minute

type entry struct {
	value     []byte
	class     DataClass
	cachedAt  time.Time
	expiresAt time.Time
}

// Store is the process-wide request cache. Entries carry the TTL of their
// data class; expired entries are retained (serving only the stale-fallback
// path) until the background sweep reclaims them.
type Store struct {
	mu             sync.RWMutex
	entries        map[string]*entry
	clock          clockwork.Clock
	retentionGrace time.Duration
}

// Stats describes the store for operational visibility.
type Stats struct {
	ValidEntries int   `json:"valid_entries"`
	StaleEntries int   `json:"stale_entries"`
	ApproxBytes  int64 `json:"approx_bytes"`
}

// Option configures a Store.
type Option func(*Store)

// WithRetentionGrace overrides how long expired entries outlive their TTL.
func WithRetentionGrace(grace time.Duration) Option {
	return func(s *Store) { s.retentionGrace = grace }
}

// NewStore creates an empty store. One instance is constructed at startup
// and injected into every consumer; there is no package-level singleton.
func NewStore(clock clockwork.Clock, opts ...Option) *Store {
	s := &Store{
		entries:        make(map[string]*entry),
		clock:          clock,
		retentionGrace: defaultRetentionGrace,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the cached value for key if it is still valid. Expired and
// absent entries are both misses; callers wanting expired data must opt in
// via GetStaleOrNull.
func (s *Store) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok {
		metrics.CacheMisses.WithLabelValues(string(ClassDefault)).Inc()
		return nil, false
	}
	if s.clock.Now().After(e.expiresAt) {
		// Expired entry, treated as a miss on the normal read path.
		// Not deleted here (read lock only); the sweep reclaims it.
		metrics.CacheMisses.WithLabelValues(string(e.class)).Inc()
		return nil, false
	}

	metrics.CacheHits.WithLabelValues(string(e.class)).Inc()
	return e.value, true
}

// GetStaleOrNull returns the cached value even past expiry, along with the
// time it was cached, or ok=false if the key was never cached (or already
// swept). This is the stale-fallback path: callers use it only after a
// refresh has failed.
func (s *Store) GetStaleOrNull(key string) ([]byte, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, time.Time{}, false
	}
	if s.clock.Now().After(e.expiresAt) {
		metrics.CacheStaleReads.Inc()
	}
	return e.value, e.cachedAt, true
}

// Set unconditionally overwrites the entry for key. The expiry is derived
// from the data class TTL table.
func (s *Store) Set(key string, value []byte, class DataClass) {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = &entry{
		value:     value,
		class:     class,
		cachedAt:  now,
		expiresAt: now.Add(class.TTL()),
	}
	metrics.CacheEntries.Set(float64(len(s.entries)))
}

// Invalidate removes a single entry.
func (s *Store) Invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; ok {
		delete(s.entries, key)
		metrics.CacheInvalidations.WithLabelValues("single").Inc()
		metrics.CacheEntries.Set(float64(len(s.entries)))
	}
}

// InvalidatePattern removes every entry whose key matches the pattern and
// returns how many were removed. Used when a live update signals that a
// whole family of cached reads must be recomputed.
func (s *Store) InvalidatePattern(pattern *regexp.Regexp) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key := range s.entries {
		if pattern.MatchString(key) {
			delete(s.entries, key)
			removed++
		}
	}
	if removed > 0 {
		metrics.CacheInvalidations.WithLabelValues("pattern").Add(float64(removed))
		metrics.CacheEntries.Set(float64(len(s.entries)))
	}
	return removed
}

// Stats reports valid vs. stale-but-retained entry counts and approximate
// payload bytes.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.clock.Now()
	var st Stats
	for _, e := range s.entries {
		if now.After(e.expiresAt) {
			st.StaleEntries++
		} else {
			st.ValidEntries++
		}
		st.ApproxBytes += int64(len(e.value))
	}
	metrics.CacheBytes.Set(float64(st.ApproxBytes))
	return st
}

// Size returns the current number of entries, expired ones included.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear removes all entries. Useful for tests and manual flushes.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*entry)
	metrics.CacheEntries.Set(0)
}

// Sweep removes every entry whose expiry is older than the retention grace
// and returns the count reclaimed. Expired-but-within-grace entries survive
// to serve GetStaleOrNull.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.clock.Now().Add(-s.retentionGrace)
	removed := 0
	for key, e := range s.entries {
		if e.expiresAt.Before(cutoff) {
			delete(s.entries, key)
			removed++
		}
	}
	if removed > 0 {
		metrics.CacheEvictions.Add(float64(removed))
		metrics.CacheEntries.Set(float64(len(s.entries)))
	}
	return removed
}

// StartSweep runs Sweep on the given interval in the background and returns
// a stop function. Shutdown calls the stop function so no ticker goroutine
// outlives the process teardown.
func (s *Store) StartSweep(interval time.Duration) func() {
	ticker := s.clock.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.Chan():
				if removed := s.Sweep(); removed > 0 {
					slog.Debug("Swept expired cache entries",
						"removed", removed,
						"remaining", s.Size(),
					)
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() {
		close(done)
	}
}
