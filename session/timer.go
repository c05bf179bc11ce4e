package session

import "time"

// TimerHandle is a scheduled callback that can be stopped. *time.Timer
// satisfies it.
type TimerHandle interface {
	Stop() bool
}

// TimerFactory schedules fn to run once after d. Injectable so tests can
// drive the expiry scheduler without real time passing.
type TimerFactory func(d time.Duration, fn func()) TimerHandle

func defaultTimerFactory(d time.Duration, fn func()) TimerHandle {
	return time.AfterFunc(d, fn)
}
