package session

import "time"

// schedule is a one-shot timer that the caller re-arms after handling each tick, so a
// new tick can never fire while the previous one is still being processed.
type schedule struct {
	interval time.Duration
	timer    *time.Timer
}

func newSchedule(interval time.Duration) *schedule {
	return &schedule{interval: interval, timer: time.NewTimer(interval)}
}

// C delivers the next tick.
func (s *schedule) C() <-chan time.Time {
	return s.timer.C
}

// rearm schedules the next tick one interval from now.
func (s *schedule) rearm() {
	s.timer.Reset(s.interval)
}

// stop cancels any pending tick.
func (s *schedule) stop() {
	s.timer.Stop()
}
