//go:build debug

package basserttest

import "github.com/braid-engine/braid/bassert"

// DefaultEnv returns an assertion environment with all checks enabled.
func DefaultEnv() bassert.Env {
	env, err := bassert.EnvironmentFromString("*")
	if err != nil {
		panic(err)
	}
	env.UseCaching()
	return env
}

// NopEnv returns an assertion environment with all checks disabled.
// Generally prefer DefaultEnv; NopEnv exists for already expensive tests.
func NopEnv() bassert.Env {
	env, err := bassert.EnvironmentFromString("")
	if err != nil {
		panic(err)
	}
	env.UseCaching()
	return env
}
