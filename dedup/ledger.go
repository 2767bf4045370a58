// Package dedup records which items have had their side effect run, so
// that delivering the same item again does nothing.
//
// Each item moves through Unseen, InProgress and Done. The InProgress
// record is written before the side effect starts and replaced with Done
// once it succeeds, so a crash in between leaves a visible trace. Such
// items are reported as interrupted and never retried automatically.
package dedup

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/SatoshiAndKin/chandelier-or-not/kv"
	"github.com/SatoshiAndKin/chandelier-or-not/logger"
)

var (
	// ErrStore wraps failures of the underlying store.
	ErrStore = errors.New("dedup store failure")
	// ErrEffect wraps failures of the side effect. The item is left InProgress.
	ErrEffect = errors.New("side effect failed")
	// ErrInvalidKey means the item's key cannot be recorded. The store is
	// not touched.
	ErrInvalidKey = errors.New("invalid dedup key")
)

// Outcome says what Run did with an item.
type Outcome int

const (
	// OutcomeExecuted means the side effect ran and the item is now Done.
	OutcomeExecuted Outcome = iota
	// OutcomeAlreadyDone means the item was Done before; nothing ran.
	OutcomeAlreadyDone
	// OutcomeInterrupted means an earlier attempt never finished; nothing ran.
	OutcomeInterrupted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeExecuted:
		return "executed"
	case OutcomeAlreadyDone:
		return "already_done"
	case OutcomeInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// Effect is the work guarded by the ledger.
type Effect func(ctx context.Context) error

// Ledger runs effects at most once per key against a kv.Store.
type Ledger struct {
	store kv.Store
	locks keyLocks
}

// NewLedger returns a ledger recording into store. The caller keeps
// ownership of store.
func NewLedger(store kv.Store) *Ledger {
	return &Ledger{
		store: store,
		locks: keyLocks{locks: map[string]*keyLock{}},
	}
}

// State returns the recorded state of key.
func (l *Ledger) State(ctx context.Context, key string) (State, error) {
	if err := validateKey(key); err != nil {
		return Unseen, err
	}

	raw, found, err := l.store.Get(ctx, key)
	if err != nil {
		return Unseen, fmt.Errorf("%w: reading %s: %w", ErrStore, key, err)
	}

	if !found {
		return Unseen, nil
	}

	state, err := Decode(raw)
	if err != nil {
		return Unseen, logger.AnnotateError(err, "key", key)
	}

	return state, nil
}

// Run executes effect if key is Unseen, recording InProgress before and
// Done after. Concurrent calls for the same key are serialized, so the
// effect runs at most once.
func (l *Ledger) Run(ctx context.Context, key string, effect Effect) (Outcome, error) {
	if err := validateKey(key); err != nil {
		return OutcomeExecuted, err
	}

	unlock := l.locks.lock(key)
	defer unlock()

	state, err := l.State(ctx, key)
	if err != nil {
		return OutcomeExecuted, err
	}

	switch state {
	case Done:
		return OutcomeAlreadyDone, nil
	case InProgress:
		return OutcomeInterrupted, nil
	case Unseen:
	}

	if err := l.advance(ctx, key, Unseen, InProgress); err != nil {
		return OutcomeExecuted, err
	}

	if err := effect(ctx); err != nil {
		return OutcomeExecuted, logger.AnnotateError(fmt.Errorf("%w: %w", ErrEffect, err), "key", key)
	}

	if err := l.advance(ctx, key, InProgress, Done); err != nil {
		return OutcomeExecuted, err
	}

	return OutcomeExecuted, nil
}

func validateKey(key string) error {
	if err := kv.ValidateKey(key); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}

	return nil
}

// advance writes to and checks that the record it replaced was from.
// Another writer on the same store shows up as an illegal transition.
func (l *Ledger) advance(ctx context.Context, key string, from, to State) error {
	if err := Transition(from, to); err != nil {
		return err
	}

	encoded, err := to.Encode()
	if err != nil {
		return err
	}

	previous, err := l.store.Insert(ctx, key, encoded)
	if err != nil {
		return fmt.Errorf("%w: writing %s for %s: %w", ErrStore, to, key, err)
	}

	replaced, err := Decode(previous)
	if err != nil {
		return logger.AnnotateError(err, "key", key)
	}

	if replaced != from {
		return logger.AnnotateError(
			fmt.Errorf("%w: %s was %s, expected %s", ErrIllegalTransition, key, replaced, from),
			"key", key)
	}

	return nil
}

type keyLock struct {
	sync.Mutex
	refs int
}

// keyLocks hands out one mutex per key and forgets it when unused.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

func (k *keyLocks) lock(key string) func() {
	k.mu.Lock()

	entry, ok := k.locks[key]
	if !ok {
		entry = &keyLock{}
		k.locks[key] = entry
	}

	entry.refs++
	k.mu.Unlock()

	entry.Lock()

	return func() {
		entry.Unlock()

		k.mu.Lock()
		defer k.mu.Unlock()

		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
	}
}
