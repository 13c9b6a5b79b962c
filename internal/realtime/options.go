package realtime

import (
	"math/rand/v2"
	"time"

	"github.com/rovshanmuradov/orderdesk/internal/mockdata"
	"go.uber.org/zap"
)

const (
	DefaultConnectDelay                = 500 * time.Millisecond
	DefaultInitialReconnectDelay       = 1 * time.Second
	DefaultBackoffMultiplier           = 2.0
	DefaultMaxReconnectDelay           = 30 * time.Second
	DefaultMinMessageInterval          = 3 * time.Second
	DefaultMaxMessageInterval          = 5 * time.Second
	DefaultRandomDisconnectProbability = 0.05
)

// Timing groups the delays that drive the connection lifecycle.
type Timing struct {
	ConnectDelay          time.Duration // Simulated handshake latency
	InitialReconnectDelay time.Duration // Backoff for the first reconnect
	BackoffMultiplier     float64       // Growth factor per failed cycle
	MaxReconnectDelay     time.Duration // Backoff ceiling
	MinMessageInterval    time.Duration // Lower bound of the emission interval
	MaxMessageInterval    time.Duration // Upper bound of the emission interval
}

// DefaultTiming returns the standard dashboard timings.
func DefaultTiming() Timing {
	return Timing{
		ConnectDelay:          DefaultConnectDelay,
		InitialReconnectDelay: DefaultInitialReconnectDelay,
		BackoffMultiplier:     DefaultBackoffMultiplier,
		MaxReconnectDelay:     DefaultMaxReconnectDelay,
		MinMessageInterval:    DefaultMinMessageInterval,
		MaxMessageInterval:    DefaultMaxMessageInterval,
	}
}

func (t Timing) withDefaults() Timing {
	d := DefaultTiming()
	if t.ConnectDelay <= 0 {
		t.ConnectDelay = d.ConnectDelay
	}
	if t.InitialReconnectDelay <= 0 {
		t.InitialReconnectDelay = d.InitialReconnectDelay
	}
	if t.BackoffMultiplier < 1 {
		t.BackoffMultiplier = d.BackoffMultiplier
	}
	if t.MaxReconnectDelay <= 0 {
		t.MaxReconnectDelay = d.MaxReconnectDelay
	}
	if t.InitialReconnectDelay > t.MaxReconnectDelay {
		t.InitialReconnectDelay = t.MaxReconnectDelay
	}
	if t.MinMessageInterval <= 0 {
		t.MinMessageInterval = d.MinMessageInterval
	}
	if t.MaxMessageInterval <= 0 {
		t.MaxMessageInterval = d.MaxMessageInterval
	}
	if t.MinMessageInterval > t.MaxMessageInterval {
		t.MinMessageInterval, t.MaxMessageInterval = t.MaxMessageInterval, t.MinMessageInterval
	}
	return t
}

// Options configures a Manager. The zero value is usable.
type Options struct {
	// EnableRandomDisconnect makes each emission cycle drop the connection
	// with RandomDisconnectProbability.
	EnableRandomDisconnect bool
	// RandomDisconnectProbability is clamped to [0,1]; nil selects
	// DefaultRandomDisconnectProbability. Zero never drops.
	RandomDisconnectProbability *float64

	Timing Timing

	Scheduler Scheduler  // nil selects SystemScheduler
	Rand      *rand.Rand // nil selects a randomly seeded source
	Generator Generator  // nil selects mockdata.Generator sharing Rand
	Logger    *zap.Logger
}

// DefaultOptions returns options with the default timings and probability.
func DefaultOptions() Options {
	return Options{
		RandomDisconnectProbability: Probability(DefaultRandomDisconnectProbability),
		Timing:                      DefaultTiming(),
	}
}

// Probability returns p as an option value.
func Probability(p float64) *float64 {
	return &p
}

func (o Options) withDefaults() Options {
	p := DefaultRandomDisconnectProbability
	if o.RandomDisconnectProbability != nil {
		p = min(max(*o.RandomDisconnectProbability, 0), 1)
	}
	o.RandomDisconnectProbability = Probability(p)
	o.Timing = o.Timing.withDefaults()
	if o.Scheduler == nil {
		o.Scheduler = SystemScheduler{}
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if o.Generator == nil {
		o.Generator = mockdata.New(mockdata.Config{Rand: o.Rand})
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}
