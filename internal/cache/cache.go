package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/pulsedash/pulsedash/internal/metrics"
)

type entry struct {
	value     any
	expiresAt time.Time
}

// Store is an in-process expiring key/value map. Entries are evicted lazily:
// a read past expiresAt removes the entry and reports a miss. Operations
// never fail; the store is best-effort acceleration only.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func New() *Store {
	return &Store{entries: make(map[string]entry), now: time.Now}
}

// NewWithClock builds a store on a caller-supplied clock. Tests use this to
// step time without sleeping.
func NewWithClock(now func() time.Time) *Store {
	return &Store{entries: make(map[string]entry), now: now}
}

// Get returns the live value for key. A stale entry is removed under the same
// lock, so no concurrent Get observes it afterwards.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if s.now().After(e.expiresAt) {
		delete(s.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set stores value until now+ttl, overwriting unconditionally. Non-positive
// ttl is a caller bug; the value is not stored.
func (s *Store) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry{value: value, expiresAt: s.now().Add(ttl)}
}

// Delete removes key unconditionally. Used by explicit refresh requests.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Len reports the number of physically present entries, stale included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Scope extracts the namespace prefix of a cache key ("sheets:abc" -> "sheets").
// Keys are namespaced per collaborator so unrelated sessions never collide.
func Scope(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return "other"
}

func observeHit(key string)  { metrics.CacheHits.WithLabelValues(Scope(key)).Inc() }
func observeMiss(key string) { metrics.CacheMisses.WithLabelValues(Scope(key)).Inc() }
