// Package btime provides the millisecond-precision wall clock time type
// used for genesis timestamps and slot scheduling.
package btime

import (
	"fmt"
	"time"
)

// Time is a count of milliseconds since the Unix epoch, UTC.
// Slot boundaries and genesis timestamps are expressed in this type
// so that configuration files and the wire representation
// agree on millisecond precision.
type Time uint64

// Now returns the current wall time truncated to milliseconds.
func Now() Time {
	return Time(time.Now().UnixMilli())
}

// FromMillis returns the Time for a raw millisecond count.
func FromMillis(ms uint64) Time {
	return Time(ms)
}

// FromTime converts a standard library time to a Time.
// Times before the epoch are clamped to zero.
func FromTime(t time.Time) Time {
	ms := t.UnixMilli()
	if ms < 0 {
		return 0
	}
	return Time(ms)
}

// Millis returns the raw millisecond count.
func (t Time) Millis() uint64 {
	return uint64(t)
}

// AsTime converts t to a standard library time in UTC.
func (t Time) AsTime() time.Time {
	return time.UnixMilli(int64(t)).UTC()
}

// Add returns t shifted by d.
// Negative shifts saturate at zero rather than wrapping.
func (t Time) Add(d time.Duration) Time {
	ms := d.Milliseconds()
	if ms < 0 {
		back := uint64(-ms)
		if back > uint64(t) {
			return 0
		}
		return t - Time(back)
	}
	return t + Time(ms)
}

// SaturatingSub returns the duration from o to t,
// or zero if o is after t.
func (t Time) SaturatingSub(o Time) time.Duration {
	if o > t {
		return 0
	}
	return time.Duration(t-o) * time.Millisecond
}

// Until returns the duration from now until t.
// The result is negative if t is in the past.
func (t Time) Until() time.Duration {
	return time.Until(t.AsTime())
}

// Before reports whether t is strictly earlier than o.
func (t Time) Before(o Time) bool {
	return t < o
}

// After reports whether t is strictly later than o.
func (t Time) After(o Time) bool {
	return t > o
}

func (t Time) String() string {
	return fmt.Sprintf("%s (%d)", t.AsTime().Format(time.RFC3339Nano), uint64(t))
}

// MarshalText renders t as RFC 3339 with millisecond precision,
// the format used in configuration files.
func (t Time) MarshalText() ([]byte, error) {
	return []byte(t.AsTime().Format("2006-01-02T15:04:05.000Z07:00")), nil
}

func (t *Time) UnmarshalText(text []byte) error {
	parsed, err := time.Parse(time.RFC3339, string(text))
	if err != nil {
		return fmt.Errorf("parse time %q: %w", text, err)
	}
	*t = FromTime(parsed)
	return nil
}
