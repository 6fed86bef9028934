package edits

import "time"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the platform clock.
//
// Readings are anchored to the wall time at construction and advanced with
// the process's monotonic clock, so they never run backwards even if the
// wall clock is stepped.
//
// Thread-safety: SystemClock is immutable after construction and safe for
// concurrent use.
type SystemClock struct {
	base time.Time
}

// NewSystemClock creates a clock anchored at the current time.
func NewSystemClock() *SystemClock {
	return &SystemClock{base: time.Now()}
}

// Now returns the current time.
func (c *SystemClock) Now() time.Time {
	return c.base.Add(time.Since(c.base))
}

// UnixNanos returns the current time of clock as Unix nanoseconds.
func UnixNanos(clock Clock) int64 {
	return clock.Now().UnixNano()
}
