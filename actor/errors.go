package actor

import (
	"errors"
	"fmt"
)

var (
	// ErrMailboxClosed is returned to callers of an actor that has stopped
	// taking work, either because it is draining or because it is gone.
	ErrMailboxClosed = errors.New("actor mailbox closed")
	// ErrActorPanic is returned when a processor panics while handling a request.
	ErrActorPanic = errors.New("panic in actor")
)

// fatalError marks an error that must stop the actor that produced it.
type fatalError struct {
	err error
}

func (f *fatalError) Error() string {
	return f.err.Error()
}

func (f *fatalError) Unwrap() error {
	return f.err
}

// Fatal marks err as fatal to the actor whose processor returns it. The
// caller still receives err; afterwards the actor drains and stops, and
// err becomes its task result. Fatal(nil) is nil.
func Fatal(err error) error {
	if err == nil {
		return nil
	}

	if IsFatal(err) {
		return err
	}

	return &fatalError{err: err}
}

// IsFatal reports whether err, or anything it wraps, was marked with Fatal.
func IsFatal(err error) bool {
	var fe *fatalError

	return errors.As(err, &fe)
}

func getPanicErr(name string, err any) error {
	if e, ok := err.(error); ok {
		return fmt.Errorf("%w %s: %w", ErrActorPanic, name, e)
	}

	return fmt.Errorf("%w %s: %v", ErrActorPanic, name, err)
}
