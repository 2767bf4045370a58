package envutil

import (
	"errors"
	"fmt"
)

var ErrNotPositive = errors.New("value must be positive")

// Option modifies a Reader. It lets callers of String, Int and friends
// provide defaults, missing errors, fallbacks and validation.
type Option[T any] func(Reader[T]) Reader[T]

// Default provides a default value for the Reader.
func Default[T any](dfl T) Option[T] {
	return func(rdr Reader[T]) Reader[T] {
		return rdr.WithDefault(dfl)
	}
}

// IfMissing provides an error to return if the Reader is missing a value.
func IfMissing[T any](err error) Option[T] {
	return func(rdr Reader[T]) Reader[T] {
		return rdr.WithErrorIfMissing(err)
	}
}

// Fallback provides a Reader to use if this Reader is missing a value.
func Fallback[T any](f Reader[T]) Option[T] {
	return func(rdr Reader[T]) Reader[T] {
		return rdr.WithFallback(f)
	}
}

// Validate runs f on the Reader's value. If f fails, the Reader
// carries that error.
func Validate[T any](f func(T) error) Option[T] {
	return func(rdr Reader[T]) Reader[T] {
		return rdr.Map(func(val T) (T, error) {
			return val, f(val)
		})
	}
}

// Positive rejects zero and negative values.
func Positive[T Integer]() Option[T] {
	return Validate(func(val T) error {
		if val <= 0 {
			return fmt.Errorf("%w: got %d", ErrNotPositive, val)
		}

		return nil
	})
}
