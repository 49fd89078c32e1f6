package cache

import (
	"encoding/json"
	"time"
)

// Entry is a cached value with its time to live.
type Entry struct {
	Value   any
	TTL     time.Duration
	Created int64 // unix nanoseconds
}

// IsExpired reports whether the entry's time to live has passed at now
// (unix nanoseconds).
func (e *Entry) IsExpired(now int64) bool {
	return now > e.Created+int64(e.TTL)
}

// entryJSON is the wire form of an Entry. TTL is in milliseconds.
type entryJSON struct {
	Value   any   `json:"value"`
	TTL     int64 `json:"ttl"`
	Created int64 `json:"created,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (e *Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(entryJSON{
		Value:   e.Value,
		TTL:     e.TTL.Milliseconds(),
		Created: e.Created,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var w entryJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	e.Value = w.Value
	e.TTL = time.Duration(w.TTL) * time.Millisecond
	e.Created = w.Created
	return nil
}
