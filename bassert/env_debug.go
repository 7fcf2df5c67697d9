//go:build debug

package bassert

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// Env is how consumers hold an assertion environment:
// an empty struct in non-debug builds,
// and under the debug tag an alias for *Environment.
//
// A nil Env is valid and has every assertion disabled.
type Env = *Environment

// Environment holds the set of rules deciding
// whether to perform particular assertions at runtime.
//
// Environment methods may be called concurrently,
// except UseCaching and OnlyLogFailures,
// which must run before any other use, if called at all.
type Environment struct {
	// Set when the bare * rule is present.
	matchAll bool

	// Wildcard rules minus their trailing .* section.
	// A path matches when it continues one of these
	// past at least one more dot.
	prefixes []string

	// Full paths of exact rules and of exclusions.
	exacts   map[string]bool
	excludes map[string]bool

	// Nil cache means caching is disabled.
	mu    sync.RWMutex
	cache map[string]bool

	// Nil means assertion failures panic;
	// otherwise they are logged here at Error level.
	log *slog.Logger
}

// EnvironmentFromString parses a comma-separated string of enable rules.
func EnvironmentFromString(in string) (*Environment, error) {
	e := new(Environment)
	if in == "" {
		// Splitting the empty string would yield one empty rule,
		// which the parser rejects.
		// Treat it as a valid environment with nothing enabled.
		return e, nil
	}

	for _, rule := range strings.Split(in, ",") {
		if err := e.addRule(rule); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// ParseEnvironment parses rules from r, one line at a time.
// Unlike [EnvironmentFromString], ParseEnvironment allows
// comment and blank lines.
func ParseEnvironment(r io.Reader) (*Environment, error) {
	e := new(Environment)

	scanner := bufio.NewScanner(r)
	// The default scanner buffer is 64k;
	// no rule should come anywhere near that.
	scanner.Buffer(make([]byte, 0, 512), 512)

	const errLimit = 5
	var errs []error
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if err := e.addRule(line); err != nil {
			errs = append(errs, err)
			if len(errs) >= errLimit {
				errs = append(errs, fmt.Errorf("stopped parsing after %d errors", len(errs)))
				break
			}
		}
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, fmt.Errorf("reading rules: %w", err))
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return e, nil
}

// addRule parses a single rule and merges it into the environment.
func (e *Environment) addRule(rule string) error {
	if rule == "" {
		return errors.New("received empty rule")
	}
	if strings.Contains(rule, "..") {
		return fmt.Errorf("invalid rule %q: empty dot-separated section", rule)
	}

	if ex, isExclusion := strings.CutPrefix(rule, "!"); isExclusion {
		if strings.ContainsAny(ex, "!*") {
			return fmt.Errorf("invalid rule %q: an exclusion is ! followed by a plain dot-separated path", rule)
		}
		if e.excludes == nil {
			e.excludes = map[string]bool{}
		}
		e.excludes[ex] = true
		return nil
	}
	if strings.Contains(rule, "!") {
		return fmt.Errorf("invalid rule %q: ! is only valid as the leading exclusion marker", rule)
	}

	if rule == "*" {
		e.matchAll = true
		return nil
	}
	if strings.Contains(rule, "*") {
		p, ok := strings.CutSuffix(rule, ".*")
		if !ok || strings.Contains(p, "*") {
			return fmt.Errorf("invalid rule %q: * may only be the final dot-separated section", rule)
		}
		e.prefixes = append(e.prefixes, p)
		return nil
	}

	if e.exacts == nil {
		e.exacts = map[string]bool{}
	}
	e.exacts[rule] = true
	return nil
}

// UseCaching configures e to memoize results of Enabled.
//
// Call UseCaching before e sees any concurrent use.
// Once caching is enabled, it may not be disabled.
func (e *Environment) UseCaching() {
	if e.cache != nil {
		panic(errors.New("BUG: UseCaching called twice"))
	}
	e.cache = map[string]bool{}
}

// OnlyLogFailures configures e to log assertion failures
// at Error level to the given logger,
// instead of the default behavior of panicking.
//
// OnlyLogFailures must be called before any concurrent use of e.
func (e *Environment) OnlyLogFailures(log *slog.Logger) {
	e.log = log
}

// HandleAssertionFailure reports the given error as an assertion failure.
// The default behavior is to panic,
// but if e.OnlyLogFailures was called, the error is only logged.
//
// A nil error panics regardless.
func (e *Environment) HandleAssertionFailure(err error) {
	if err == nil {
		panic(errors.New("BUG: HandleAssertionFailure called with nil error"))
	}

	if e == nil || e.log == nil {
		panic(fmt.Errorf("assertion failure: %w", err))
	}

	e.log.Error("Assertion failure", "err", err)
}

// Enabled reports whether the assertion at the given path should run.
// A wildcard rule covering the path wins
// unless the exact path is excluded;
// absent a covering wildcard, only an exact rule enables the path.
//
// Enabled on a nil Environment always reports false.
func (e *Environment) Enabled(path string) bool {
	if e == nil {
		return false
	}

	if e.cache == nil {
		return e.match(path)
	}

	e.mu.RLock()
	v, ok := e.cache[path]
	e.mu.RUnlock()
	if ok {
		return v
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Another goroutine may have stored the same path
	// between the read unlock and the write lock.
	if v, ok := e.cache[path]; ok {
		return v
	}

	v = e.match(path)
	e.cache[path] = v
	return v
}

// match evaluates path against the rule set,
// without consulting the cache.
func (e *Environment) match(path string) bool {
	wild := e.matchAll
	if !wild {
		for _, p := range e.prefixes {
			// The path has to continue past the prefix,
			// so a.b.* does not match a.b itself.
			if strings.HasPrefix(path, p+".") {
				wild = true
				break
			}
		}
	}

	if wild {
		return !e.excludes[path]
	}
	return e.exacts[path]
}
