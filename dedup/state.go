package dedup

import (
	"errors"
	"fmt"
)

var (
	// ErrCorruptRecord is returned when a stored record is not one of the
	// values this package writes.
	ErrCorruptRecord = errors.New("corrupt dedup record")
	// ErrIllegalTransition is returned for any move other than
	// Unseen to InProgress or InProgress to Done.
	ErrIllegalTransition = errors.New("illegal dedup transition")
)

// State is the processing state of one item.
type State int

const (
	// Unseen items have no record.
	Unseen State = iota
	// InProgress items had their side effect started but not confirmed.
	InProgress
	// Done items had their side effect completed.
	Done
)

const (
	encodedInProgress = "in_progress"
	encodedDone       = "done"

	// Earlier databases stored booleans: false while in progress, true when done.
	legacyInProgress = "false"
	legacyDone       = "true"
)

func (s State) String() string {
	switch s {
	case Unseen:
		return "unseen"
	case InProgress:
		return encodedInProgress
	case Done:
		return encodedDone
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Encode returns the stored form of s. Unseen has none.
func (s State) Encode() ([]byte, error) {
	switch s {
	case InProgress:
		return []byte(encodedInProgress), nil
	case Done:
		return []byte(encodedDone), nil
	case Unseen:
		return nil, fmt.Errorf("%w: unseen is never stored", ErrIllegalTransition)
	default:
		return nil, fmt.Errorf("%w: unknown state %d", ErrIllegalTransition, int(s))
	}
}

// Decode parses a stored record. A nil record is Unseen.
func Decode(raw []byte) (State, error) {
	if raw == nil {
		return Unseen, nil
	}

	switch string(raw) {
	case encodedInProgress, legacyInProgress:
		return InProgress, nil
	case encodedDone, legacyDone:
		return Done, nil
	default:
		return Unseen, fmt.Errorf("%w: %q", ErrCorruptRecord, raw)
	}
}

// Transition checks that moving from one state to the next is allowed.
func Transition(from, to State) error {
	if (from == Unseen && to == InProgress) || (from == InProgress && to == Done) {
		return nil
	}

	return fmt.Errorf("%w: %s to %s", ErrIllegalTransition, from, to)
}
