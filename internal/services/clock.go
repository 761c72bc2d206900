package services

import "time"

// Clock abstracts time.Now so due-date and expiry logic stays deterministic
// under test
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// NewClock returns a Clock backed by the system time
func NewClock() Clock {
	return realClock{}
}

// FixedClock always reports the same instant
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }
