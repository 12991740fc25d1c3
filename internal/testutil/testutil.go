// Package testutil provides test helpers shared across packages:
//   - agronomic dataset fixtures (fixtures.go)
//   - Miniredis helpers for Redis-backed unit tests (miniredis.go)
package testutil

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Logger returns a logger that discards output.
func Logger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)

	return log
}
