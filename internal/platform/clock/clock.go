package clock

import "time"

// Clock abstracts time to keep trial timing deterministic in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock keeps the monotonic reading so reaction times are immune to
// wall-clock adjustments.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// ElapsedMS reports the milliseconds between start and c.Now().
func ElapsedMS(c Clock, start time.Time) float64 {
	return float64(c.Now().Sub(start).Microseconds()) / 1000
}
