package task

import "time"

// Clock supplies the current time to components that stamp lifecycle fields.
//
// Passing a Clock explicitly (instead of calling time.Now at each site)
// keeps collection passes deterministic under test and ensures every record
// touched in one pass carries the same timestamp.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// SystemClock returns a Clock backed by the wall clock, in UTC.
func SystemClock() Clock {
	return systemClock{}
}
