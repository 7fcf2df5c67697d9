package btest

import (
	"time"
)

// WaitMatch receives values from ch until match yields a projection,
// returning that projection and true.
//
// Values that do not match are discarded while searching and cannot be
// observed by later calls; exactly one matching value is consumed per
// successful call. If no match arrives within timeout of call entry,
// WaitMatch returns the zero R and false, never before the full timeout
// has elapsed. A closed ch reports no match immediately.
//
// Unlike [ReceiveOrTimeout], a miss is not fatal;
// callers decide whether an absent value fails the test.
func WaitMatch[C, R any](ch <-chan C, timeout ScaledDuration, match func(C) (R, bool)) (R, bool) {
	timer := time.NewTimer(time.Duration(timeout))
	defer timer.Stop()

	var zero R
	for {
		select {
		case <-timer.C:
			return zero, false
		case c, ok := <-ch:
			if !ok {
				return zero, false
			}
			if r, matched := match(c); matched {
				return r, true
			}
		}
	}
}
