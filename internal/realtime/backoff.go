package realtime

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// reconnectSchedule holds the backoff series for one Timing. delays[n] is
// the wait after n failed cycles; the last entry repeats forever.
type reconnectSchedule struct {
	delays []time.Duration
}

// newReconnectSchedule walks an un-randomized ExponentialBackOff until it
// stops growing, so lookups afterwards are constant time.
func newReconnectSchedule(t Timing) reconnectSchedule {
	t = t.withDefaults()

	b := &backoff.ExponentialBackOff{
		InitialInterval:     t.InitialReconnectDelay,
		RandomizationFactor: 0,
		Multiplier:          t.BackoffMultiplier,
		MaxInterval:         t.MaxReconnectDelay,
	}
	b.Reset()

	var delays []time.Duration
	for {
		d := min(b.NextBackOff(), t.MaxReconnectDelay)
		if n := len(delays); n > 0 && d <= delays[n-1] {
			break
		}
		delays = append(delays, d)
		if d == t.MaxReconnectDelay {
			break
		}
	}
	return reconnectSchedule{delays: delays}
}

func (s reconnectSchedule) at(attempts int) time.Duration {
	attempts = min(max(attempts, 0), len(s.delays)-1)
	return s.delays[attempts]
}

// ReconnectDelay returns the wait before the reconnect that follows
// attempts failed cycles: min(initial * multiplier^attempts, max).
func ReconnectDelay(attempts int, t Timing) time.Duration {
	return newReconnectSchedule(t).at(attempts)
}
