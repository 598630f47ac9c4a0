// Package clock abstracts time for services that stamp lifecycle transitions.
package clock

import "time"

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Fixed always returns the same instant. Intended for tests and cutoff replay.
type Fixed struct {
	At time.Time
}

func (f Fixed) Now() time.Time { return f.At }
