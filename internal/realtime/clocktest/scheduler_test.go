package clocktest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_FiresInDeadlineOrder(t *testing.T) {
	s := New()

	var got []string
	s.AfterFunc(300*time.Millisecond, func() { got = append(got, "c") })
	s.AfterFunc(100*time.Millisecond, func() { got = append(got, "a") })
	s.AfterFunc(100*time.Millisecond, func() { got = append(got, "b") })

	s.Advance(99 * time.Millisecond)
	assert.Empty(t, got)

	s.Advance(time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, got)

	s.Advance(time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, 1100*time.Millisecond, s.Elapsed())
}

func TestScheduler_StopPreventsCallback(t *testing.T) {
	s := New()

	fired := false
	tm := s.AfterFunc(time.Second, func() { fired = true })

	require.True(t, tm.Stop())
	assert.False(t, tm.Stop())

	s.Advance(2 * time.Second)
	assert.False(t, fired)
	assert.Equal(t, 0, s.Pending())
}

func TestScheduler_StopAfterFire(t *testing.T) {
	s := New()

	tm := s.AfterFunc(time.Second, func() {})
	s.Advance(time.Second)

	assert.False(t, tm.Stop())
}

func TestScheduler_ChainedCallbacksWithinOneAdvance(t *testing.T) {
	s := New()

	var at []time.Duration
	var tick func()
	tick = func() {
		at = append(at, s.Elapsed())
		if len(at) < 3 {
			s.AfterFunc(time.Second, tick)
		}
	}
	s.AfterFunc(time.Second, tick)

	s.Advance(10 * time.Second)

	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}, at)
}

func TestScheduler_NextDeadline(t *testing.T) {
	s := New()

	_, ok := s.NextDeadline()
	assert.False(t, ok)

	s.AfterFunc(5*time.Second, func() {})
	s.AfterFunc(2*time.Second, func() {})
	s.Advance(time.Second)

	d, ok := s.NextDeadline()
	require.True(t, ok)
	assert.Equal(t, time.Second, d)
}
