// Package stage names the deployment environment a process runs in,
// taken from RUNNING_ENV.
package stage

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/SatoshiAndKin/chandelier-or-not/envutil"
)

// Stage represents a deployment environment.
type Stage string

// ErrUnrecognizedStage is returned when RUNNING_ENV holds an unknown value.
var ErrUnrecognizedStage = errors.New("unrecognized stage")

const (
	Local   Stage = "local"
	Test    Stage = "test"
	Dev     Stage = "dev"
	Staging Stage = "staging"
	Prod    Stage = "prod"
)

// Key is the environment variable the stage is read from.
const Key = "RUNNING_ENV"

// Parse validates a stage name.
func Parse(value string) (Stage, error) {
	switch s := Stage(value); s {
	case Local, Test, Dev, Staging, Prod:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnrecognizedStage, value)
	}
}

// Current returns the stage configured in ctx's environment. An unset
// RUNNING_ENV means Test under go test and Local otherwise.
func Current(ctx context.Context) (Stage, error) {
	fallback := Local
	if flag.Lookup("test.v") != nil {
		fallback = Test
	}

	return envutil.Map(envutil.String(ctx, Key), Parse).
		WithDefault(fallback).
		Value()
}

// IsDeployed reports whether s is a shared environment rather than a
// developer machine or a test run.
func (s Stage) IsDeployed() bool {
	return s == Dev || s == Staging || s == Prod
}
