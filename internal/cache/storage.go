package cache

import "errors"

// Storage defines the partitioned response cache contract.
// A partition is a named key-value store of responses; keys come from Key.
// Implementations must be safe for concurrent use by multiple goroutines.
type Storage interface {
	// Match returns the entry stored under key in partition, or ErrNotFound.
	Match(partition, key string) (*Entry, error)
	// Put stores e under key, creating the partition if needed and
	// overwriting any previous entry.
	Put(partition, key string, e *Entry) error
	// PutAll stores every entry in a single transaction: either all entries
	// are written or none are.
	PutAll(partition string, entries map[string]*Entry) error
	// Keys lists the keys stored in partition, or ErrNotFound when the
	// partition does not exist.
	Keys(partition string) ([]string, error)
	// Partitions lists partition names in sorted order.
	Partitions() ([]string, error)
	// DeletePartition removes a partition and reports whether it existed.
	DeletePartition(name string) (bool, error)
}

// MatchAny looks key up in each partition in order and returns the first hit.
func MatchAny(s Storage, key string, partitions ...string) (*Entry, error) {
	for _, p := range partitions {
		e, err := s.Match(p, key)
		if err == nil {
			return e, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}
