// Package kv is the durable key-value layer the sink keeps its
// processing records in.
package kv

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/SatoshiAndKin/chandelier-or-not/kv/bolt"
	"github.com/SatoshiAndKin/chandelier-or-not/kv/natskv"
)

var (
	// ErrClosed is returned by calls made after Close.
	ErrClosed = errors.New("store closed")
	// ErrUnsupportedURL is returned by Open for URLs it cannot map to a backend.
	ErrUnsupportedURL = errors.New("unsupported store url")
)

// Store is a byte-oriented key-value store. Implementations persist each
// Insert before returning.
type Store interface {
	// Get returns the value stored under key, and whether there was one.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// Insert stores value under key and returns the value it replaced,
	// or nil if the key was absent.
	Insert(ctx context.Context, key string, value []byte) (previous []byte, err error)
	// Close releases the store. Calls after Close fail.
	Close() error
}

// Open opens the store a URL names:
//
//	farcaster.db, bolt:///var/lib/chandelier/farcaster.db   a local bbolt file
//	nats://host:4222/bucket                                  a JetStream key-value bucket
//	mem://                                                   an in-memory store
func Open(ctx context.Context, rawURL string) (Store, error) { //nolint:ireturn
	if !strings.Contains(rawURL, "://") {
		return openBolt(rawURL)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedURL, err)
	}

	switch parsed.Scheme {
	case "bolt", "file":
		path := parsed.Path
		if parsed.Host != "" {
			path = parsed.Host + path
		}

		return openBolt(path)
	case "nats", "tls":
		bucket := strings.Trim(parsed.Path, "/")
		parsed.Path = ""

		store, err := natskv.Open(ctx, natskv.Config{
			URL:    parsed.String(),
			Bucket: bucket,
		})
		if err != nil {
			return nil, fmt.Errorf("opening nats store: %w", err)
		}

		return store, nil
	case "mem":
		return NewMemStore(), nil
	default:
		return nil, fmt.Errorf("%w: scheme %q", ErrUnsupportedURL, parsed.Scheme)
	}
}

func openBolt(path string) (Store, error) { //nolint:ireturn
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrUnsupportedURL)
	}

	store, err := bolt.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening bolt store: %w", err)
	}

	return store, nil
}
