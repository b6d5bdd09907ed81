// Package clock supplies the injectable source of "now" that the attendance,
// request and dashboard services consume. It is not the only time source:
// handlers, repositories, middleware, report jobs and metrics call time.Now
// directly for their timestamps and durations.
package clock

import "time"

// trinidadOffset is the fixed wall-clock offset the whole system assumes;
// spec.md rules out timezone flexibility, so there is exactly one constant
// here rather than a location lookup.
const trinidadOffset = -4 * time.Hour

// Clock returns the current naive local time (UTC-4, no DST).
type Clock interface {
	Now() time.Time
}

// realClock reads the OS clock and offsets it.
type realClock struct{}

// Real returns the production Clock implementation.
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now().UTC().Add(trinidadOffset)
}

// ToUTC converts a naive local time produced by this clock back to UTC,
// for persistence audit fields. Not load-bearing for scheduling logic.
func ToUTC(local time.Time) time.Time {
	return local.Add(-trinidadOffset).UTC()
}

// FromUTC converts a UTC time into this clock's naive local representation.
func FromUTC(utc time.Time) time.Time {
	return utc.UTC().Add(trinidadOffset)
}

// Fixed returns a Clock that always reports t, for deterministic tests.
func Fixed(t time.Time) Clock {
	return fixedClock{t: t}
}

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time {
	return f.t
}
