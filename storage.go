package wanikache

import (
	"fmt"
	"sync"

	bolt "go.etcd.io/bbolt"
)

// MemoryStore is an in-memory Store with byte-quota accounting. It mirrors
// the quota behavior of a browser key/value store: writes that would push the
// total past MaxBytes fail with ErrQuotaExceeded instead of growing unbounded.
type MemoryStore struct {
	mu       sync.RWMutex
	values   map[string][]byte
	used     int64
	maxBytes int64
}

// NewMemoryStore creates a memory-backed store. maxBytes of zero disables the
// quota.
func NewMemoryStore(maxBytes int64) *MemoryStore {
	return &MemoryStore{
		values:   make(map[string][]byte),
		maxBytes: maxBytes,
	}
}

func (s *MemoryStore) Read(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	return value, true, nil
}

func (s *MemoryStore) Write(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.used - int64(len(s.values[key])) + int64(len(value))
	if s.maxBytes > 0 && next > s.maxBytes {
		return ErrQuotaExceeded
	}

	s.values[key] = value
	s.used = next
	return nil
}

func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.values[key]; ok {
		s.used -= int64(len(old))
		delete(s.values, key)
	}
	return nil
}

func (s *MemoryStore) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values = make(map[string][]byte)
	s.used = 0
	return nil
}

// UsedBytes returns the current accounted size.
func (s *MemoryStore) UsedBytes() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.used
}

var boltBucket = []byte("entries")

// BoltStore is a durable Store backed by a bbolt database file. The byte
// quota is tracked with an in-memory counter seeded from the bucket at open,
// keeping quota checks off the write transaction's critical path.
type BoltStore struct {
	db       *bolt.DB
	mu       sync.Mutex
	used     int64
	maxBytes int64
}

// OpenBoltStore opens (creating if needed) a bbolt-backed store at path.
// maxBytes of zero disables the quota.
func OpenBoltStore(path string, maxBytes int64) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bolt store: %w", err)
	}

	var used int64
	err = db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(boltBucket)
		if err != nil {
			return err
		}
		return b.ForEach(func(k, v []byte) error {
			used += int64(len(v))
			return nil
		})
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init bolt store: %w", err)
	}

	return &BoltStore{db: db, used: used, maxBytes: maxBytes}, nil
}

// Close releases the underlying database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Read(key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(boltBucket).Get([]byte(key))
		if v != nil {
			value = make([]byte, len(v))
			copy(value, v)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return value, value != nil, nil
}

func (s *BoltStore) Write(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var old int
	err := s.db.View(func(tx *bolt.Tx) error {
		old = len(tx.Bucket(boltBucket).Get([]byte(key)))
		return nil
	})
	if err != nil {
		return err
	}

	next := s.used - int64(old) + int64(len(value))
	if s.maxBytes > 0 && next > s.maxBytes {
		return ErrQuotaExceeded
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put([]byte(key), value)
	})
	if err != nil {
		return err
	}
	s.used = next
	return nil
}

func (s *BoltStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var old int
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(boltBucket)
		old = len(b.Get([]byte(key)))
		return b.Delete([]byte(key))
	})
	if err != nil {
		return err
	}
	s.used -= int64(old)
	return nil
}

func (s *BoltStore) Keys() ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).ForEach(func(k, v []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *BoltStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(boltBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(boltBucket)
		return err
	})
	if err != nil {
		return err
	}
	s.used = 0
	return nil
}
