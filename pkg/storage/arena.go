package storage

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/agilira/go-timecache"
)

// DefaultArenaTTL is how long an ArenaStorage keeps an entry.
const DefaultArenaTTL = 30 * time.Minute

type arenaEntry struct {
	value   any
	expires int64
}

// ArenaStorage keeps each entry for a fixed time after it was last set.
// Expired entries are invisible to reads and are removed by Sweep, either
// called explicitly or periodically by Reap.
type ArenaStorage struct {
	mu      sync.Mutex
	entries map[string]arenaEntry
	ttl     time.Duration
	now     func() int64
}

var _ Storage = (*ArenaStorage)(nil)

// ArenaOption configures an ArenaStorage.
type ArenaOption func(*ArenaStorage)

// WithTTL sets how long entries are kept.
func WithTTL(ttl time.Duration) ArenaOption {
	return func(s *ArenaStorage) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock replaces the nanosecond clock, which defaults to the cached
// process clock.
func WithClock(now func() int64) ArenaOption {
	return func(s *ArenaStorage) {
		s.now = now
	}
}

// NewArenaStorage creates an empty ArenaStorage.
func NewArenaStorage(opts ...ArenaOption) *ArenaStorage {
	s := &ArenaStorage{
		entries: make(map[string]arenaEntry),
		ttl:     DefaultArenaTTL,
		now:     timecache.CachedTimeNano,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ArenaStorage) live(key string) (arenaEntry, bool) {
	e, ok := s.entries[key]
	if !ok || s.now() > e.expires {
		return arenaEntry{}, false
	}
	return e, true
}

func (s *ArenaStorage) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.live(key)
	return ok
}

func (s *ArenaStorage) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	if !ok {
		delete(s.entries, key)
		return nil, false
	}
	return e.value, true
}

func (s *ArenaStorage) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = arenaEntry{value: value, expires: s.now() + int64(s.ttl)}
	return nil
}

func (s *ArenaStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *ArenaStorage) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.entries)
	return nil
}

// Keys returns the keys of live entries in sorted order.
func (s *ArenaStorage) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		if _, ok := s.live(k); ok {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

// Size returns the number of live entries.
func (s *ArenaStorage) Size() int {
	return len(s.Keys())
}

// Sweep removes expired entries and returns how many were removed.
func (s *ArenaStorage) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for k, e := range s.entries {
		if now > e.expires {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

// Reap sweeps the arena every interval until ctx is done.
func (s *ArenaStorage) Reap(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
