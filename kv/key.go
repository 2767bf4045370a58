package kv

import (
	"errors"
	"fmt"
	"regexp"
)

// MaxKeyLen bounds keys so every backend can hold them.
const MaxKeyLen = 255

// ErrInvalidKey is returned for keys some backend cannot store.
var ErrInvalidKey = errors.New("invalid key")

// keyPattern is the subset of keys that bbolt and JetStream KV both accept:
// dot-separated tokens, no empty token.
var keyPattern = regexp.MustCompile(`^[-/_=A-Za-z0-9]+(\.[-/_=A-Za-z0-9]+)*$`)

// ValidateKey reports whether key can be stored in every backend.
func ValidateKey(key string) error {
	switch {
	case key == "":
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	case len(key) > MaxKeyLen:
		return fmt.Errorf("%w: %d bytes, limit is %d", ErrInvalidKey, len(key), MaxKeyLen)
	case !keyPattern.MatchString(key):
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	return nil
}
