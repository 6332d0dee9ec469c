// Package queue durably holds form submissions whose delivery could not be
// confirmed and replays them when a sync signal names their queue.
package queue

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/leonardcser/web-offline/internal/logger"
	"github.com/leonardcser/web-offline/internal/metrics"
)

// Queue names.
const (
	Contact      = "contact"
	Registration = "registration"
)

var (
	ErrUnknownQueue = errors.New("queue: unknown queue")
	ErrUnknownTag   = errors.New("queue: unknown sync tag")
)

// queues maps a queue name to its bucket and sync tag.
var queues = map[string]struct{ bucket, tag string }{
	Contact:      {bucket: "contact-forms", tag: "contact-form-sync"},
	Registration: {bucket: "registration-forms", tag: "registration-form-sync"},
}

// Names lists the known queues.
func Names() []string { return []string{Contact, Registration} }

// SyncTag returns the sync tag that replays the named queue.
func SyncTag(name string) (string, error) {
	q, ok := queues[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownQueue, name)
	}
	return q.tag, nil
}

// TagQueue maps a sync tag to the queue it replays.
func TagQueue(tag string) (string, error) {
	for name, q := range queues {
		if q.tag == tag {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownTag, tag)
}

// Submission is one deferred form post.
type Submission struct {
	ID       uint64            `json:"id"`
	Queue    string            `json:"queue"`
	Fields   map[string]string `json:"fields"`
	QueuedAt time.Time         `json:"queued_at"`
}

// Deliverer sends a submission to its final destination.
type Deliverer interface {
	Deliver(ctx context.Context, s Submission) error
}

// DeliverFunc adapts a function to Deliverer.
type DeliverFunc func(ctx context.Context, s Submission) error

func (f DeliverFunc) Deliver(ctx context.Context, s Submission) error { return f(ctx, s) }

// Store is the Bolt-backed submission store. Every operation runs in its own
// short transaction.
type Store struct {
	db *bolt.DB
}

// Open initializes or opens a Store at the given path and creates one bucket
// per queue.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, q := range queues {
			if _, err := tx.CreateBucketIfNotExists([]byte(q.bucket)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
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

func bucketOf(name string) ([]byte, error) {
	q, ok := queues[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownQueue, name)
	}
	return []byte(q.bucket), nil
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// Enqueue stores fields under the named queue with the next id.
func (s *Store) Enqueue(ctx context.Context, name string, fields map[string]string) (Submission, error) {
	if err := ctx.Err(); err != nil {
		return Submission{}, err
	}
	bucket, err := bucketOf(name)
	if err != nil {
		return Submission{}, err
	}
	sub := Submission{Queue: name, Fields: fields, QueuedAt: time.Now().UTC()}
	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		id, err := b.NextSequence()
		if err != nil {
			return err
		}
		sub.ID = id
		buf, err := json.Marshal(sub)
		if err != nil {
			return err
		}
		return b.Put(itob(id), buf)
	})
	if err != nil {
		return Submission{}, fmt.Errorf("enqueue %s: %w", name, err)
	}
	metrics.QueuedSubmissions.WithLabelValues(name).Inc()
	return sub, nil
}

// List returns the named queue in id order.
func (s *Store) List(ctx context.Context, name string) ([]Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bucket, err := bucketOf(name)
	if err != nil {
		return nil, err
	}
	var out []Submission
	err = s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).ForEach(func(_, v []byte) error {
			var sub Submission
			if err := json.Unmarshal(v, &sub); err != nil {
				return err
			}
			out = append(out, sub)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", name, err)
	}
	return out, nil
}

// Remove deletes one submission. Removing a missing id is not an error.
func (s *Store) Remove(ctx context.Context, name string, id uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	bucket, err := bucketOf(name)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Delete(itob(id))
	})
}

// ReplayResult counts the outcome of one replay pass.
type ReplayResult struct {
	Queue     string `json:"queue"`
	Delivered int    `json:"delivered"`
	Failed    int    `json:"failed"`
}

// Replay attempts delivery of every submission in the named queue. Delivered
// submissions are removed; failures are logged and left queued for the next
// sync signal. One failure never stops the rest of the pass.
func (s *Store) Replay(ctx context.Context, name string, d Deliverer) (ReplayResult, error) {
	res := ReplayResult{Queue: name}
	subs, err := s.List(ctx, name)
	if err != nil {
		return res, err
	}
	for _, sub := range subs {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		if err := d.Deliver(ctx, sub); err != nil {
			res.Failed++
			metrics.ReplayedSubmissions.WithLabelValues(name, "failed").Inc()
			logger.Errorf("Failed to sync %s form %d: %v", name, sub.ID, err)
			continue
		}
		if err := s.Remove(ctx, name, sub.ID); err != nil {
			// Delivered but still stored; it will be sent again next time.
			res.Failed++
			metrics.ReplayedSubmissions.WithLabelValues(name, "remove_failed").Inc()
			logger.Errorf("Synced %s form %d but could not remove it: %v", name, sub.ID, err)
			continue
		}
		res.Delivered++
		metrics.ReplayedSubmissions.WithLabelValues(name, "delivered").Inc()
	}
	return res, nil
}

// Sync handles a sync signal: it replays the queue the tag names.
func (s *Store) Sync(ctx context.Context, tag string, d Deliverer) (ReplayResult, error) {
	logger.Infof("Background sync triggered: %s", tag)
	name, err := TagQueue(tag)
	if err != nil {
		return ReplayResult{}, err
	}
	return s.Replay(ctx, name, d)
}
