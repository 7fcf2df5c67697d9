package bwatchdog

import (
	"context"
	"errors"
	"fmt"
)

// IsTermination reports whether the context was canceled by the watchdog.
func IsTermination(ctx context.Context) bool {
	cause := context.Cause(ctx)
	if cause == nil {
		return false
	}

	var ftr FailureToRespondError
	var ft ForcedTerminationError
	return errors.As(cause, &ftr) || errors.As(cause, &ft)
}

// FailureToRespondError indicates that a subsystem failed to respond
// to its monitor within the configured response timeout.
type FailureToRespondError struct {
	SubsystemName string
}

func (e FailureToRespondError) Error() string {
	return fmt.Sprintf("subsystem %s did not respond to its watchdog poll in time", e.SubsystemName)
}

// ForcedTerminationError is the cancellation cause set by [*Watchdog.Terminate].
type ForcedTerminationError struct {
	Reason string
}

func (e ForcedTerminationError) Error() string {
	return "watchdog termination requested: " + e.Reason
}
