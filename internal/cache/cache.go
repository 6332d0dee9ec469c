package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Store is a persistent partitioned response cache backed by Bolt.
// Each partition is a top-level bucket.
// It is safe for concurrent use by multiple goroutines.
type Store struct {
	db *bolt.DB
	mu sync.RWMutex
}

type Options struct {
	// Timeout bounds how long Open waits for the file lock. Defaults to 1s.
	Timeout time.Duration
}

var (
	ErrNotFound     = errors.New("cache: not found")
	ErrNotCacheable = errors.New("cache: request not cacheable")
)

// Open initializes or opens a Store at the given path.
func Open(path string, opts Options) (*Store, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 1 * time.Second
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put stores e under key in partition, replacing any previous entry.
func (s *Store) Put(partition, key string, e *Entry) error {
	return s.PutAll(partition, map[string]*Entry{key: e})
}

// PutAll writes every entry in one Bolt transaction.
func (s *Store) PutAll(partition string, entries map[string]*Entry) error {
	if partition == "" {
		return errors.New("cache: empty partition name")
	}
	encoded := make(map[string][]byte, len(entries))
	for key, e := range entries {
		if !isCacheableKey(key) {
			return fmt.Errorf("%w: %s", ErrNotCacheable, key)
		}
		b, err := json.Marshal(e)
		if err != nil {
			return err
		}
		encoded[key] = b
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(partition))
		if err != nil {
			return err
		}
		for key, v := range encoded {
			if err := b.Put([]byte(key), v); err != nil {
				return err
			}
		}
		return nil
	})
}

// Match returns the entry for key in partition.
func (s *Store) Match(partition, key string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var raw []byte
	if err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(partition))
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrNotFound
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("cache: decode %s: %w", key, err)
	}
	return &e, nil
}

// Keys lists the keys stored in partition.
func (s *Store) Keys(partition string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(partition))
		if b == nil {
			return ErrNotFound
		}
		return b.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

// Partitions lists the names of all partitions.
func (s *Store) Partitions() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var names []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			names = append(names, string(name))
			return nil
		})
	})
	sort.Strings(names)
	return names, err
}

// DeletePartition removes a partition and everything in it.
func (s *Store) DeletePartition(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existed := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		err := tx.DeleteBucket([]byte(name))
		if errors.Is(err, bolt.ErrBucketNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		existed = true
		return nil
	})
	return existed, err
}
