//go:build !debug

package bassert

// Env carries the set of enabled assertions through the engine.
//
// Under the debug build tag, Env aliases *Environment and a nil Env
// disables every assertion. In this non-debug build it is an empty,
// method-free struct, so assertion plumbing costs nothing.
//
// Any code touching the assertion environment beyond passing it along
// must live behind the "debug" tag, with "!debug" no-op counterparts
// so both builds compile.
type Env struct{}
