package clock

import "time"

// Clock abstracts time reads so derived values (overdue flags, timestamps)
// stay deterministic under test.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
