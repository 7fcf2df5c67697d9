// Package bassert (braid assert) provides functionality around runtime assertions.
//
// Validating every graph and clock invariant at every function entrypoint
// is assumed to be prohibitively expensive in production.
// But when unexpected behavior is observed,
// enabling invariant checks may immediately reveal the problem.
//
// Enabling invariant checks is a two-step process.
// First, assertion functionality is not compiled into braid code by default;
// build with the "debug" build tag, i.e. "go build -tags debug" or "go test -tags debug".
// Second, enable some set of assertions by producing an [Env]
// via [EnvironmentFromString] or [ParseEnvironment]
// (both only available in debug builds).
//
// Rule behavior:
//   - Components call [*Environment.Enabled] with a dot-separated path
//     naming the assertion they may make, such as "consensus.graph.parents".
//   - No rules are enabled by default.
//   - A top level rule of "*" enables all assertions.
//   - The "*" wildcard may only occur as the last segment of a rule,
//     so "consensus.graph.*" is valid but "consensus.*.graph" is not.
//   - A rule with a leading "!" excludes an exact path from a wildcard rule,
//     so "consensus.*,!consensus.clock" matches "consensus.graph" but not "consensus.clock".
//   - Exact rules match only their own path, not any extension of it.
//   - Rule segments are expected to be plain ASCII words,
//     possibly with dashes or underscores.
//   - [EnvironmentFromString] takes a comma-separated list of rules.
//   - [ParseEnvironment] reads rules from an [io.Reader], one per line,
//     skipping blank lines and comment lines starting with "#".
package bassert
