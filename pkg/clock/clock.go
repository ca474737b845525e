package clock

import "time"

// Clock abstracts wall-clock reads so scheduling and date selection
// can be driven deterministically in tests.
type Clock interface {
	Now() time.Time
}

// System reads the real wall clock.
type System struct{}

func (System) Now() time.Time {
	return time.Now()
}
