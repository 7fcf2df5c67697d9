package btest

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// ScaledDuration is a duration already multiplied by [TimeFactor].
//
// Helpers such as [SendOrTimeout] and [ReceiveOrTimeout] accept this type
// rather than a plain time.Duration,
// steering callers away from literal timeouts
// that turn flaky on slower machines.
type ScaledDuration time.Duration

// Std converts d back to a plain time.Duration
// for APIs outside this package.
func (d ScaledDuration) Std() time.Duration {
	return time.Duration(d)
}

// TimeFactor multiplies every scaled timeout.
// It is controlled by the BRAID_TEST_TIME_FACTOR environment variable.
//
// A flat 100ms timer usually suffices on a workstation,
// but may not on a contended CI machine.
// Rather than editing tests to use longer timeouts,
// the operator can set e.g. BRAID_TEST_TIME_FACTOR=3
// to triple every scaled timeout.
//
// Exported so a TestMain can override it without the environment.
var TimeFactor = timeFactorFromEnv()

func timeFactorFromEnv() ScaledDuration {
	f := os.Getenv("BRAID_TEST_TIME_FACTOR")
	if f == "" {
		return 1
	}

	n, err := strconv.Atoi(f)
	if err != nil {
		panic(fmt.Errorf("BRAID_TEST_TIME_FACTOR (%q) is not an integer: %w", f, err))
	}
	if n <= 0 {
		panic(fmt.Errorf("BRAID_TEST_TIME_FACTOR must be positive, got %d", n))
	}

	return ScaledDuration(n)
}

// ScaleMs returns ms in milliseconds, multiplied by [TimeFactor].
func ScaleMs(ms int64) ScaledDuration {
	return TimeFactor * ScaledDuration(ms) * ScaledDuration(time.Millisecond)
}

// ScaledDur converts a plain duration into a ScaledDuration
// multiplied by [TimeFactor].
func ScaledDur(d time.Duration) ScaledDuration {
	return TimeFactor * ScaledDuration(d)
}

// Sleep is [time.Sleep] for scaled durations.
func Sleep(dur ScaledDuration) {
	time.Sleep(time.Duration(dur))
}
