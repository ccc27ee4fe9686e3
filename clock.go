package main

import "time"

// Timer is a cancellable pending callback. *time.Timer satisfies it.
type Timer interface {
	Stop() bool
}

// Clock schedules the delayed continuations of a match: fuses, the
// waiting tick, the countdown and the post-game reset
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// timerSlot holds one armed timer. The sequence number lets a callback
// that already fired but lost the race for the game lock detect that it
// was cancelled or superseded.
type timerSlot struct {
	t   Timer
	seq uint64
}

func (s *timerSlot) active() bool {
	return s.t != nil
}
