// Package envutil reads typed configuration values from the environment.
//
// Every reader takes a context first: values attached with WithEnvOverride
// win over the process environment, which keeps tests hermetic.
package envutil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/SatoshiAndKin/chandelier-or-not/envtypes"
)

var ErrInvalidLogLevel = errors.New("invalid log level")

// Integer is the set of integer types Int can produce.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

func lookup(ctx context.Context, key string) (string, bool) {
	if value, ok := getEnvOverride(ctx, key); ok {
		return value, true
	}

	return os.LookupEnv(key)
}

func apply[T any](rdr Reader[T], opts []Option[T]) Reader[T] {
	for _, opt := range opts {
		rdr = opt(rdr)
	}

	return rdr
}

// String reads key as a trimmed string. An empty value counts as missing.
func String(ctx context.Context, key string, opts ...Option[string]) Reader[string] {
	value, ok := lookup(ctx, key)
	value = strings.TrimSpace(value)

	rdr := Reader[string]{
		key:     key,
		present: ok && value != "",
		value:   value,
	}

	return apply(rdr, opts)
}

// Bool reads key with strconv.ParseBool.
func Bool(ctx context.Context, key string, opts ...Option[bool]) Reader[bool] {
	return apply(Map(String(ctx, key), strconv.ParseBool), opts)
}

// Int reads key as a base-10 integer of type T.
func Int[T Integer](ctx context.Context, key string, opts ...Option[T]) Reader[T] {
	rdr := Map(String(ctx, key), func(value string) (T, error) {
		var zero T

		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return zero, err
		}

		if int64(T(parsed)) != parsed {
			return zero, fmt.Errorf("%w: %d overflows", strconv.ErrRange, parsed)
		}

		return T(parsed), nil
	})

	return apply(rdr, opts)
}

// Duration reads key with time.ParseDuration.
func Duration(ctx context.Context, key string, opts ...Option[time.Duration]) Reader[time.Duration] {
	return apply(Map(String(ctx, key), time.ParseDuration), opts)
}

// URL reads key with url.Parse.
func URL(ctx context.Context, key string, opts ...Option[*url.URL]) Reader[*url.URL] {
	return apply(Map(String(ctx, key), url.Parse), opts)
}

// SlogLevel reads key as one of debug, info, warn or error.
func SlogLevel(ctx context.Context, key string, opts ...Option[slog.Level]) Reader[slog.Level] {
	return apply(Map(String(ctx, key), ParseSlogLevel), opts)
}

// ParseSlogLevel maps a case-insensitive level name onto a slog.Level.
func ParseSlogLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, value)
	}
}

// HostPort reads key as a host:port address.
func HostPort(ctx context.Context, key string, opts ...Option[envtypes.HostPort]) Reader[envtypes.HostPort] {
	return apply(Map(String(ctx, key), envtypes.ParseHostPort), opts)
}

// File reads key as the path of an existing regular file.
func File(ctx context.Context, key string, opts ...Option[envtypes.LocalPath]) Reader[envtypes.LocalPath] {
	return apply(Map(String(ctx, key), envtypes.StatFile), opts)
}
