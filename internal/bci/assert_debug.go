//go:build debug

package bci

import (
	"log/slog"
	"os"

	"github.com/braid-engine/braid/bassert"
)

// assertEnvFromOS builds the assertion environment from the
// BRAID_ASSERT environment variable. Failed assertions are logged
// rather than panicking, since this is a long-running node.
func assertEnvFromOS(log *slog.Logger) bassert.Env {
	v := os.Getenv("BRAID_ASSERT")
	if v == "" {
		return nil
	}

	env, err := bassert.EnvironmentFromString(v)
	if err != nil {
		log.Warn("Ignoring invalid BRAID_ASSERT value", "err", err)
		return nil
	}

	env.UseCaching()
	env.OnlyLogFailures(log.With("sys", "assert"))
	return env
}
