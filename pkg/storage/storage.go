// Package storage provides the key-value stores backing the cache and the
// cookie jar.
//
// MapStorage is a plain map. ArenaStorage keeps entries for a bounded time
// and sweeps expired ones. BoltStorage persists entries in a bbolt file.
// CookieStorage mirrors request cookies and emits Set-Cookie headers.
package storage

import (
	"slices"
	"sync"
)

// Storage is a key-value store.
type Storage interface {
	Has(key string) bool
	Get(key string) (any, bool)
	Set(key string, value any) error
	Delete(key string) error
	Clear() error
	Keys() []string
	Size() int
}

// MapStorage is an in-memory Storage. It is safe for concurrent use.
type MapStorage struct {
	mu   sync.RWMutex
	data map[string]any
}

var _ Storage = (*MapStorage)(nil)

// NewMapStorage creates an empty MapStorage.
func NewMapStorage() *MapStorage {
	return &MapStorage{data: make(map[string]any)}
}

func (s *MapStorage) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[key]
	return ok
}

func (s *MapStorage) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *MapStorage) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *MapStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *MapStorage) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.data)
	return nil
}

// Keys returns the keys in sorted order.
func (s *MapStorage) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (s *MapStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
