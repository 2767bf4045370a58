// Package bolt stores key-value pairs in a single bbolt file.
package bolt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	bbolt "go.etcd.io/bbolt"
	bberrors "go.etcd.io/bbolt/errors"
)

// DefaultBucket is the bucket keys are stored in unless WithBucket says otherwise.
const DefaultBucket = "dedup"

const openTimeout = time.Second

var (
	// ErrClosed is returned by calls made after Close.
	ErrClosed = errors.New("bolt store closed")
	// ErrInvalidKey is returned for empty or oversized keys.
	ErrInvalidKey = errors.New("bolt: invalid key")
)

// Store keeps every key in one bucket of a bbolt file.
type Store struct {
	db     *bbolt.DB
	bucket []byte
}

// Option configures Open.
type Option func(*Store)

// WithBucket stores keys in the named bucket.
func WithBucket(name string) Option {
	return func(s *Store) {
		s.bucket = []byte(name)
	}
}

// Open opens or creates the database file at path. The file is locked for
// the lifetime of the store; a second Open of the same path waits up to a
// second and then fails.
func Open(path string, opts ...Option) (*Store, error) {
	store := &Store{bucket: []byte(DefaultBucket)}

	for _, opt := range opts {
		opt(store)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: openTimeout}) //nolint:mnd
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(store.bucket)

		return err //nolint:wrapcheck
	})
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("creating bucket %s: %w", store.bucket, err)
	}

	store.db = db

	return store, nil
}

// Get returns a copy of the value under key. Every call is its own read
// transaction.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	var (
		value []byte
		found bool
	)

	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(s.bucket).Get([]byte(key))
		if raw != nil {
			// Values are only valid for the life of the transaction.
			value = bytes.Clone(raw)
			found = true
		}

		return nil
	})
	if err != nil {
		return nil, false, translate(err)
	}

	return value, found, nil
}

// Insert writes value and returns the value it replaced, both inside one
// read-write transaction, so the pair is atomic.
func (s *Store) Insert(ctx context.Context, key string, value []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var previous []byte

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(s.bucket)

		if raw := bucket.Get([]byte(key)); raw != nil {
			previous = bytes.Clone(raw)
		}

		return bucket.Put([]byte(key), value)
	})
	if err != nil {
		return nil, translate(err)
	}

	return previous, nil
}

// Close flushes and unlocks the database file.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing bolt store: %w", err)
	}

	return nil
}

func translate(err error) error {
	switch {
	case errors.Is(err, bberrors.ErrDatabaseNotOpen):
		return ErrClosed
	case errors.Is(err, bberrors.ErrKeyRequired), errors.Is(err, bberrors.ErrKeyTooLarge):
		return fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}

	return fmt.Errorf("bolt: %w", err)
}
