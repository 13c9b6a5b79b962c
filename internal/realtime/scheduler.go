package realtime

import "time"

// Timer is a pending scheduled callback.
type Timer interface {
	// Stop prevents the callback from running. It reports false if the
	// callback already ran or was already stopped.
	Stop() bool
}

// Scheduler runs callbacks after a delay.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// SystemScheduler schedules on the wall clock via time.AfterFunc.
type SystemScheduler struct{}

func (SystemScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// timerSlot owns at most one live timer for one purpose.
//
// Every arm bumps the generation and the callback receives the generation it
// was armed with; a callback whose generation no longer matches belongs to a
// superseded timer and must do nothing. Callers hold the manager lock.
type timerSlot struct {
	timer Timer
	gen   uint64
}

func (s *timerSlot) arm(sched Scheduler, d time.Duration, fn func(gen uint64)) {
	s.stop()
	gen := s.gen
	s.timer = sched.AfterFunc(d, func() { fn(gen) })
}

func (s *timerSlot) stop() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

// fire claims the slot for a callback armed at gen.
func (s *timerSlot) fire(gen uint64) bool {
	if s.timer == nil || s.gen != gen {
		return false
	}
	s.timer = nil
	s.gen++
	return true
}
