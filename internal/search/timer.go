package search

import "time"

type Clock func() time.Time

// Timer measures wall-clock time from a single beginning timestamp.
type Timer struct {
	now   Clock
	begin time.Time
}

func StartTimer(now Clock) Timer {
	if now == nil {
		now = time.Now
	}
	return Timer{now: now, begin: now()}
}

func (t Timer) Elapsed() time.Duration {
	return t.now().Sub(t.begin)
}
