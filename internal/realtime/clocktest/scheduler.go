// Package clocktest provides a virtual-time realtime.Scheduler for tests.
package clocktest

import (
	"sort"
	"sync"
	"time"

	"github.com/rovshanmuradov/orderdesk/internal/realtime"
)

// Scheduler fires callbacks only when Advance moves virtual time past their
// deadline. Callbacks run on the goroutine calling Advance, in deadline order
// and, for equal deadlines, in scheduling order.
type Scheduler struct {
	mu      sync.Mutex
	now     time.Duration
	seq     uint64
	pending []*timer
}

type timer struct {
	s       *Scheduler
	at      time.Duration
	seq     uint64
	fn      func()
	stopped bool
	fired   bool
}

// New returns a scheduler at virtual time zero.
func New() *Scheduler {
	return &Scheduler{}
}

// AfterFunc implements realtime.Scheduler.
func (s *Scheduler) AfterFunc(d time.Duration, fn func()) realtime.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d < 0 {
		d = 0
	}
	s.seq++
	t := &timer{s: s, at: s.now + d, seq: s.seq, fn: fn}
	s.pending = append(s.pending, t)
	return t
}

// Advance moves virtual time forward by d, running every callback that
// becomes due, including ones scheduled by callbacks along the way.
func (s *Scheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d

	for {
		t := s.nextDueLocked(target)
		if t == nil {
			break
		}
		s.now = t.at
		t.fired = true
		s.mu.Unlock()

		t.fn()

		s.mu.Lock()
	}

	s.now = target
	s.mu.Unlock()
}

// Elapsed returns the virtual time since creation.
func (s *Scheduler) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Pending returns the number of callbacks still waiting to run.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// NextDeadline returns the remaining time until the earliest pending callback.
func (s *Scheduler) NextDeadline() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return 0, false
	}
	s.sortLocked()
	return s.pending[0].at - s.now, true
}

func (s *Scheduler) nextDueLocked(target time.Duration) *timer {
	if len(s.pending) == 0 {
		return nil
	}
	s.sortLocked()
	t := s.pending[0]
	if t.at > target {
		return nil
	}
	s.pending = s.pending[1:]
	return t
}

func (s *Scheduler) sortLocked() {
	sort.SliceStable(s.pending, func(i, j int) bool {
		if s.pending[i].at != s.pending[j].at {
			return s.pending[i].at < s.pending[j].at
		}
		return s.pending[i].seq < s.pending[j].seq
	})
}

func (s *Scheduler) remove(t *timer) {
	for i, p := range s.pending {
		if p == t {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}
	}
}

// Stop implements realtime.Timer.
func (t *timer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	t.s.remove(t)
	return true
}
