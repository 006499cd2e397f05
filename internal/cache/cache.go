// Package cache provides a TTL key-value store with per-data-class expiry
// policies. Cached values are derived, re-computable data, so a failed or
// expired read is always reported as a miss so callers can recompute.
package cache

import (
	"encoding/json"
	"sync"
	"time"
)

// Per-data-class default TTLs.
const (
	TTLPlayerStats = 24 * time.Hour // game logs and identities
	TTLForecast    = 24 * time.Hour // keyed by game-log fingerprint
	TTLLines       = 1 * time.Hour  // betting lines move fast
	TTLNextGame    = 6 * time.Hour
	TTLImageMeta   = 7 * 24 * time.Hour
)

// Store is the minimal cache contract. Implementations must be safe for
// concurrent use and must never surface backend failures: a failed Get is
// a miss, a failed Set is a no-op.
type Store interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
}

type entry struct {
	data      []byte
	expiresAt time.Time
}

// Memory is a thread-safe in-memory TTL store. Expired entries behave as
// misses on read; the periodic sweep is an optimization only.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	enabled bool
	now     func() time.Time
}

// NewMemory creates an in-memory store. Pass enabled=false for a no-op
// cache (every read misses, every write is dropped).
func NewMemory(enabled bool) *Memory {
	return &Memory{
		entries: make(map[string]entry),
		enabled: enabled,
		now:     time.Now,
	}
}

// NewMemoryWithClock creates an in-memory store with an injected clock.
func NewMemoryWithClock(clock func() time.Time) *Memory {
	m := NewMemory(true)
	m.now = clock
	return m
}

// Get retrieves a cached value, treating expired entries as misses.
func (m *Memory) Get(key string) ([]byte, bool) {
	if !m.enabled {
		return nil, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok || m.now().After(e.expiresAt) {
		return nil, false
	}
	return e.data, true
}

// Set stores a value, overwriting any previous entry for the key.
func (m *Memory) Set(key string, value []byte, ttl time.Duration) {
	if !m.enabled {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry{data: value, expiresAt: m.now().Add(ttl)}
}

// StartSweep launches a background goroutine that evicts expired entries
// every interval. Lazy expiry on read already guarantees correctness; this
// only bounds memory. The goroutine exits when stop is closed.
func (m *Memory) StartSweep(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.evict()
			case <-stop:
				return
			}
		}
	}()
}

func (m *Memory) evict() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for key, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, key)
		}
	}
}

// Stats returns entry counts for diagnostics.
func (m *Memory) Stats() (total, active int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := m.now()
	for _, e := range m.entries {
		if now.Before(e.expiresAt) {
			active++
		}
	}
	return len(m.entries), active
}

// GetJSON reads key from s and unmarshals it into v. A decode failure is a
// miss: stale or foreign bytes must never poison a caller.
func GetJSON(s Store, key string, v any) bool {
	data, ok := s.Get(key)
	if !ok {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

// SetJSON marshals v and stores it under key. Marshal failures are dropped.
func SetJSON(s Store, key string, v any, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	s.Set(key, data, ttl)
}
