package envutil

import (
	"context"
)

type envContextKey string

// WithEnvOverride returns a context in which key reads as value,
// regardless of the process environment.
func WithEnvOverride(ctx context.Context, key string, value string) context.Context {
	return context.WithValue(ctx, envContextKey(key), value)
}

func getEnvOverride(ctx context.Context, key string) (string, bool) {
	if ctx == nil {
		return "", false
	}

	value, ok := ctx.Value(envContextKey(key)).(string)

	return value, ok
}
