package btest

import (
	"log/slog"
	"testing"

	"github.com/neilotoole/slogt"
)

// NewLogger returns a *slog.Logger associated with t,
// so that engine internals log through the test's own output,
// interleaved correctly and hidden unless the test fails or -v is set.
func NewLogger(t testing.TB) *slog.Logger {
	return slogt.New(t, slogt.Text())
}
