//go:build !debug

package basserttest

import "github.com/braid-engine/braid/bassert"

// DefaultEnv returns the only environment a non-debug build has,
// the no-op one.
func DefaultEnv() bassert.Env {
	return bassert.Env{}
}

// NopEnv returns an environment with every check disabled.
func NopEnv() bassert.Env {
	return bassert.Env{}
}
