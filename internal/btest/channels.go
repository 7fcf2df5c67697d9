package btest

import (
	"time"
)

// TestingFatalHelper is the part of [testing.TB] the channel helpers
// rely on. Depending on this narrow interface instead of testing.TB
// lets the helpers themselves be tested against a fake.
type TestingFatalHelper interface {
	Helper()

	Fatalf(format string, args ...any)
}

// fatalf fails the test through tb and then panics.
// A real *testing.T never returns from Fatalf,
// so the panic only fires under this package's own tests,
// which pass a fake tb to observe the failure.
func fatalf(tb TestingFatalHelper, format string, args ...any) {
	tb.Helper()
	tb.Fatalf(format, args...)
	panic("unreachable")
}

// ReceiveSoon receives a value from ch,
// failing the test if nothing arrives within the default scaled window.
func ReceiveSoon[T any](tb TestingFatalHelper, ch <-chan T) T {
	tb.Helper()
	return ReceiveOrTimeout(tb, ch, ScaleMs(100))
}

// ReceiveOrTimeout receives a value from ch,
// failing the test if nothing arrives within timeout.
// Build the timeout with [ScaleMs] so a loaded machine can stretch it
// through BRAID_TEST_TIME_FACTOR instead of test edits.
//
// Prefer [ReceiveSoon] unless the test needs a particular window.
func ReceiveOrTimeout[T any](tb TestingFatalHelper, ch <-chan T, timeout ScaledDuration) T {
	tb.Helper()

	if ch == nil {
		fatalf(tb, "receive from nil %T would block forever", ch)
	}

	timer := time.NewTimer(time.Duration(timeout))
	defer timer.Stop()

	select {
	case x := <-ch:
		return x
	case <-timer.C:
		fatalf(
			tb,
			"receive from %T still blocked after %s; if only some machines see this, raise BRAID_TEST_TIME_FACTOR above %d",
			ch, time.Duration(timeout), TimeFactor,
		)
		var zero T
		return zero
	}
}

// SendSoon sends x to ch,
// failing the test if the send is still blocked after the default scaled window.
func SendSoon[T any](tb TestingFatalHelper, ch chan<- T, x T) {
	tb.Helper()
	SendOrTimeout(tb, ch, x, ScaleMs(100))
}

// SendOrTimeout sends x to ch,
// failing the test if the send is still blocked after timeout.
// Build the timeout with [ScaleMs].
//
// Prefer [SendSoon] unless the test needs a particular window.
func SendOrTimeout[T any](tb TestingFatalHelper, ch chan<- T, x T, timeout ScaledDuration) {
	tb.Helper()

	if ch == nil {
		fatalf(tb, "send to nil %T would block forever", ch)
	}

	timer := time.NewTimer(time.Duration(timeout))
	defer timer.Stop()

	select {
	case ch <- x:
	case <-timer.C:
		fatalf(
			tb,
			"send to %T still blocked after %s; if only some machines see this, raise BRAID_TEST_TIME_FACTOR above %d",
			ch, time.Duration(timeout), TimeFactor,
		)
	}
}

// NotSending asserts that no value is currently ready on ch.
// The check is instantaneous; it does not wait for a quiet period.
func NotSending[T any](tb TestingFatalHelper, ch <-chan T) {
	tb.Helper()

	if ch == nil {
		fatalf(tb, "cannot check a nil %T for readiness", ch)
	}

	select {
	case x := <-ch:
		fatalf(tb, "%T was supposed to stay quiet but sent %v", ch, x)
	default:
	}
}

// IsSending asserts that ch has a value ready right now and returns it.
func IsSending[T any](tb TestingFatalHelper, ch <-chan T) T {
	tb.Helper()

	if ch == nil {
		fatalf(tb, "nil %T can never have a value ready", ch)
	}

	select {
	case x := <-ch:
		return x
	default:
		fatalf(tb, "wanted a value ready on %T but the receive would have blocked", ch)
		var zero T
		return zero
	}
}

// NotSendingSoon asserts that ch stays quiet for a short scaled window.
// It blocks the test for that window,
// so prefer [NotSending] when another synchronization point exists.
func NotSendingSoon[T any](tb TestingFatalHelper, ch <-chan T) {
	tb.Helper()

	if ch == nil {
		fatalf(tb, "cannot check a nil %T for readiness", ch)
	}

	timer := time.NewTimer(time.Duration(ScaleMs(75)))
	defer timer.Stop()

	select {
	case x := <-ch:
		fatalf(tb, "%T was supposed to stay quiet but sent %v", ch, x)
	case <-timer.C:
	}
}
