// Package natskv stores key-value pairs in a NATS JetStream key-value bucket.
package natskv

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// DefaultBucket is used when Config.Bucket is empty.
const DefaultBucket = "farcaster"

const (
	maxReconnects = 3
	insertRetries = 16
)

var (
	// ErrConflict is returned when other writers keep winning the
	// compare-and-set on a key.
	ErrConflict = errors.New("concurrent update")
	// ErrInvalidKey is returned for keys that are not valid NATS subjects.
	ErrInvalidKey = errors.New("nats: invalid key")
)

// Config names the server and the bucket.
type Config struct {
	URL    string
	Bucket string
}

// Store is a kv.Store over one JetStream key-value bucket.
type Store struct {
	nc *nats.Conn
	kv jetstream.KeyValue
}

// Open connects to the server and creates the bucket if it does not exist.
// The bucket is file backed and keeps one revision per key.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}

	if cfg.Bucket == "" {
		cfg.Bucket = DefaultBucket
	}

	nc, err := nats.Connect(cfg.URL, nats.MaxReconnects(maxReconnects))
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", cfg.URL, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()

		return nil, fmt.Errorf("jetstream: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:  cfg.Bucket,
		Storage: jetstream.FileStorage,
		History: 1,
	})
	if err != nil {
		nc.Close()

		return nil, fmt.Errorf("creating bucket %s: %w", cfg.Bucket, err)
	}

	return &Store{nc: nc, kv: kv}, nil
}

// Get returns the latest value under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, false, nil
		}

		if errors.Is(err, jetstream.ErrInvalidKey) {
			return nil, false, fmt.Errorf("%w %q", ErrInvalidKey, key)
		}

		return nil, false, fmt.Errorf("getting %s: %w", key, err)
	}

	return entry.Value(), true, nil
}

// Insert writes value with a compare-and-set on the key's revision, so the
// returned previous value is exactly the one that was replaced.
func (s *Store) Insert(ctx context.Context, key string, value []byte) ([]byte, error) {
	for range insertRetries {
		entry, err := s.kv.Get(ctx, key)

		switch {
		case errors.Is(err, jetstream.ErrKeyNotFound):
			_, err = s.kv.Create(ctx, key, value)
			if errors.Is(err, jetstream.ErrKeyExists) {
				continue
			}

			if err != nil {
				return nil, fmt.Errorf("creating %s: %w", key, err)
			}

			return nil, nil
		case errors.Is(err, jetstream.ErrInvalidKey):
			return nil, fmt.Errorf("%w %q", ErrInvalidKey, key)
		case err != nil:
			return nil, fmt.Errorf("getting %s: %w", key, err)
		}

		_, err = s.kv.Update(ctx, key, value, entry.Revision())
		if err != nil {
			if isWrongRevision(err) {
				continue
			}

			return nil, fmt.Errorf("updating %s: %w", key, err)
		}

		return entry.Value(), nil
	}

	return nil, fmt.Errorf("%w on %s", ErrConflict, key)
}

func isWrongRevision(err error) bool {
	var apiErr *jetstream.APIError

	return errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
}

// Close drains the connection, flushing pending writes.
func (s *Store) Close() error {
	if err := s.nc.Drain(); err != nil {
		return fmt.Errorf("draining nats connection: %w", err)
	}

	return nil
}
