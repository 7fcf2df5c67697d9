//go:build !debug

package bconsensus

// No-op counterpart to the debug-only invariant checks,
// so non-debug builds compile without the assertion environment.
func (g *blockGraph) invariantGraphShape() {}
