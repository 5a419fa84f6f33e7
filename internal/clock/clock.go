package clock

import "time"

// NowFunc returns current time. Override in tests for determinism.
var NowFunc = time.Now

// Now is a thin wrapper around NowFunc.
func Now() time.Time { return NowFunc() }

// Stub replaces NowFunc with a fixed-step clock starting at base and returns
// a restore function so change ordering becomes deterministic in tests.
func Stub(base time.Time, step time.Duration) func() {
	previous := NowFunc
	current := base
	NowFunc = func() time.Time {
		t := current
		current = current.Add(step)
		return t
	}
	return func() { NowFunc = previous }
}
