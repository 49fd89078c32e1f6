// Package cache implements the application cache: values with a time to
// live, stored in a storage.Storage, serializable so the server can hand
// its cache to the client in the revival payload.
package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/agilira/go-timecache"

	"github.com/imago-dev/imago/pkg/storage"
)

// DefaultTTL is the time to live of entries set without one.
const DefaultTTL = 30 * time.Minute

// Cache stores values with a time to live. Expiry is checked lazily when
// an entry is read. A disabled cache reports every key as missing and
// ignores writes.
type Cache struct {
	storage storage.Storage
	ttl     time.Duration
	enabled atomic.Bool
	now     func() int64
	logger  *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithDefaultTTL sets the time to live of entries set without one.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock replaces the nanosecond clock, which defaults to the cached
// process clock.
func WithClock(now func() int64) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithLogger sets the logger used to report unreadable entries.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// New creates an enabled cache backed by s.
func New(s storage.Storage, opts ...Option) *Cache {
	c := &Cache{
		storage: s,
		ttl:     DefaultTTL,
		now:     timecache.CachedTimeNano,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.enabled.Store(true)
	return c
}

// Enable turns the cache on.
func (c *Cache) Enable() { c.enabled.Store(true) }

// Disable turns the cache off. Stored entries are kept.
func (c *Cache) Disable() { c.enabled.Store(false) }

// Enabled reports whether the cache is on.
func (c *Cache) Enabled() bool { return c.enabled.Load() }

// Has reports whether a live entry exists for key.
func (c *Cache) Has(key string) bool {
	_, ok := c.entry(key)
	return ok
}

// Get returns the value stored for key.
func (c *Cache) Get(key string) (any, bool) {
	e, ok := c.entry(key)
	if !ok {
		return nil, false
	}
	return e.Value, true
}

// Set stores value under key. A ttl of zero uses the default time to live.
func (c *Cache) Set(key string, value any, ttl time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	return c.storage.Set(key, &Entry{Value: value, TTL: ttl, Created: c.now()})
}

// Delete removes the entry for key.
func (c *Cache) Delete(key string) error {
	return c.storage.Delete(key)
}

// Clear removes every entry.
func (c *Cache) Clear() error {
	return c.storage.Clear()
}

// Serialize encodes the live entries as a JSON object of
// {"key": {"value": ..., "ttl": ms}}.
func (c *Cache) Serialize() (string, error) {
	out := make(map[string]entryJSON)
	for _, key := range c.storage.Keys() {
		e, ok := c.entry(key)
		if !ok {
			continue
		}
		out[key] = entryJSON{Value: e.Value, TTL: e.TTL.Milliseconds()}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("cache: serialize: %w", err)
	}
	return string(data), nil
}

// Deserialize stores the entries of a Serialize output. Their time to
// live starts again now.
func (c *Cache) Deserialize(data string) error {
	var in map[string]entryJSON
	if err := json.Unmarshal([]byte(data), &in); err != nil {
		return fmt.Errorf("cache: deserialize: %w", err)
	}
	for key, e := range in {
		if err := c.Set(key, e.Value, time.Duration(e.TTL)*time.Millisecond); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cache) entry(key string) (*Entry, bool) {
	if !c.Enabled() {
		return nil, false
	}
	raw, ok := c.storage.Get(key)
	if !ok {
		return nil, false
	}

	var e *Entry
	switch v := raw.(type) {
	case *Entry:
		e = v
	case json.RawMessage:
		e = new(Entry)
		if err := json.Unmarshal(v, e); err != nil {
			c.logger.Warn("cache: unreadable entry", "key", key, "error", err)
			return nil, false
		}
	default:
		return nil, false
	}

	if e.IsExpired(c.now()) {
		_ = c.storage.Delete(key)
		return nil, false
	}
	return e, true
}
