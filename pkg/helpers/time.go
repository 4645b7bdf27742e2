package helpers

import "time"

// Clock supplies the current instant and the current calendar date.
type Clock interface {
	Now() time.Time
	Today() time.Time
}

// SystemClock reads the wall clock; Today is computed in Location.
type SystemClock struct {
	Location *time.Location
}

func NewSystemClock(loc *time.Location) SystemClock {
	if loc == nil {
		loc = time.UTC
	}
	return SystemClock{Location: loc}
}

func (c SystemClock) Now() time.Time { return time.Now().UTC() }

func (c SystemClock) Today() time.Time { return DateOf(time.Now(), c.Location) }

// DateOf returns the civil date of t in loc as midnight UTC, the value a
// Postgres DATE column scans into.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
