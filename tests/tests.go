// Package tests holds helpers shared by the test suites of other packages.
package tests

import (
	"strings"
	"testing"

	"github.com/SatoshiAndKin/chandelier-or-not/envutil"
	"github.com/google/uuid"
)

// UniqueName returns a name derived from the test name that no other test
// run will produce. It is safe to use as a bucket, key or file name.
func UniqueName(t *testing.T) string {
	t.Helper()

	replacer := strings.NewReplacer("/", "-", " ", "-", "#", "-")

	return strings.ToLower(replacer.Replace(t.Name())) + "-" + uuid.NewString()[:8]
}

// RequireContainers skips the test unless RUN_CONTAINER_TESTS is true.
// Container tests need a working docker daemon.
func RequireContainers(t *testing.T) {
	t.Helper()

	if !envutil.Bool(t.Context(), "RUN_CONTAINER_TESTS", envutil.Default(false)).ValueOrElse(false) {
		t.Skip("set RUN_CONTAINER_TESTS=true to run container tests")
	}
}
