package storage

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// DefaultBucket is the bucket BoltStorage uses unless told otherwise.
const DefaultBucket = "imago"

// BoltStorage persists entries in a bbolt database, one key per entry.
// Values are stored JSON-encoded; Get returns them as json.RawMessage.
type BoltStorage struct {
	db     *bolt.DB
	bucket []byte
}

var _ Storage = (*BoltStorage)(nil)

// OpenBolt opens (creating if needed) the database file at path and makes
// sure the bucket exists.
func OpenBolt(path, bucket string) (*BoltStorage, error) {
	if bucket == "" {
		bucket = DefaultBucket
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	s := &BoltStorage{db: db, bucket: []byte(bucket)}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(s.bucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *BoltStorage) Close() error {
	return s.db.Close()
}

func (s *BoltStorage) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

func (s *BoltStorage) Get(key string) (any, bool) {
	var value json.RawMessage
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(s.bucket).Get([]byte(key)); v != nil {
			// Bytes returned by bbolt are only valid inside the transaction.
			value = append(json.RawMessage(nil), v...)
		}
		return nil
	})
	if err != nil || value == nil {
		return nil, false
	}
	return value, true
}

func (s *BoltStorage) Set(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("storage: encode %q: %w", key, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(key), data)
	})
}

func (s *BoltStorage) Delete(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(key))
	})
}

func (s *BoltStorage) Clear() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(s.bucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(s.bucket)
		return err
	})
}

// Keys returns all keys in byte order.
func (s *BoltStorage) Keys() []string {
	var keys []string
	_ = s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys
}

func (s *BoltStorage) Size() int {
	n := 0
	_ = s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(s.bucket).Stats().KeyN
		return nil
	})
	return n
}
