package realtime

import (
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/rovshanmuradov/orderdesk/internal/events"
	"github.com/rovshanmuradov/orderdesk/internal/order"
	"go.uber.org/zap"
)

// Manager simulates a real-time order feed.
//
// It is safe for concurrent use. Status and message handlers run without the
// manager lock held and may call back into the manager; notifications are
// delivered in the order the transitions happened. After Destroy returns no
// handler is invoked again.
type Manager struct {
	opts   Options
	sched  Scheduler
	gen    Generator
	rng    *rand.Rand
	logger *zap.Logger
	delays reconnectSchedule

	statusSubs  *events.Observers[Status]
	messageSubs *events.Observers[Event]

	mu        sync.Mutex
	status    Status
	attempts  int
	snapshot  []order.Order
	destroyed bool

	// statusSeq numbers transitions; statusSeen holds the last one each
	// status subscriber was given.
	statusSeq  int64
	statusSeen map[string]int64

	// At most one timer per purpose; see timerSlot.
	connectTimer   timerSlot
	messageTimer   timerSlot
	reconnectTimer timerSlot

	// Pending notifications, drained by a single dispatcher outside mu.
	outbox      []func()
	dispatching bool
}

// NewManager creates a disconnected manager over a copy of initial.
func NewManager(initial []order.Order, opts Options) *Manager {
	opts = opts.withDefaults()
	logger := opts.Logger.Named("realtime")

	return &Manager{
		opts:        opts,
		sched:       opts.Scheduler,
		gen:         opts.Generator,
		rng:         opts.Rand,
		logger:      logger,
		delays:      newReconnectSchedule(opts.Timing),
		statusSubs:  events.NewObservers[Status]("status_subscribers", logger),
		messageSubs: events.NewObservers[Event]("message_subscribers", logger),
		status:      Disconnected,
		snapshot:    slices.Clone(initial),
		statusSeen:  make(map[string]int64),
	}
}

// Connect starts the handshake. It does nothing unless the manager is disconnected.
func (m *Manager) Connect() {
	m.mu.Lock()
	if m.destroyed || m.status != Disconnected {
		m.mu.Unlock()
		return
	}
	m.setStatusLocked(Reconnecting)
	m.beginHandshakeLocked()
	m.mu.Unlock()

	m.flush()
}

// Disconnect closes the connection without scheduling a reconnect.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if m.destroyed || m.status == Disconnected {
		m.mu.Unlock()
		return
	}
	m.stopTimersLocked()
	m.attempts = 0
	m.setStatusLocked(Disconnected)
	m.mu.Unlock()

	m.logger.Info("Disconnected by host")
	m.flush()
}

// SimulateDisconnect drops the connection as if the peer went away, then
// schedules a reconnect with backoff.
func (m *Manager) SimulateDisconnect() {
	m.mu.Lock()
	if m.destroyed || m.status == Disconnected {
		m.mu.Unlock()
		return
	}
	m.dropLocked("simulated")
	m.mu.Unlock()

	m.flush()
}

// UpdateSnapshot replaces the records used to synthesize events.
func (m *Manager) UpdateSnapshot(records []order.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.destroyed {
		return
	}
	m.snapshot = slices.Clone(records)
}

// OnStatusChange registers handler for every status transition. The handler
// is called before OnStatusChange returns with the current status, also when
// subscribing from inside another handler. Transitions queued before the
// subscription are not replayed to it.
func (m *Manager) OnStatusChange(handler func(Status)) events.Subscription {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return events.Nop()
	}
	sub := m.statusSubs.Subscribe(handler)
	seq, current := m.statusSeq, m.status
	m.statusSeen[sub.ID()] = seq - 1
	m.mu.Unlock()

	m.deliverStatus(sub.ID(), seq, current)
	return &statusSubscription{Subscription: sub, m: m}
}

// statusSubscription forgets the delivery record on unsubscribe.
type statusSubscription struct {
	events.Subscription
	m *Manager
}

func (s *statusSubscription) Unsubscribe() {
	s.Subscription.Unsubscribe()

	s.m.mu.Lock()
	delete(s.m.statusSeen, s.ID())
	s.m.mu.Unlock()
}

// OnMessage registers handler for every synthesized event.
func (m *Manager) OnMessage(handler func(Event)) events.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.destroyed {
		return events.Nop()
	}
	return m.messageSubs.Subscribe(handler)
}

// Status returns the current lifecycle state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// ReconnectAttempts returns the number of reconnect cycles since the last
// successful connection.
func (m *Manager) ReconnectAttempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// CurrentReconnectDelay returns the backoff for the current attempt count.
func (m *Manager) CurrentReconnectDelay() time.Duration {
	return m.delays.at(m.ReconnectAttempts())
}

// Destroy cancels every timer and drops every subscriber. The manager is
// unusable afterwards; further calls are no-ops.
func (m *Manager) Destroy() {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return
	}
	m.destroyed = true
	m.stopTimersLocked()
	m.outbox = nil
	clear(m.statusSeen)
	m.mu.Unlock()

	m.statusSubs.Clear()
	m.messageSubs.Clear()

	m.logger.Info("Manager destroyed")
}

func (m *Manager) beginHandshakeLocked() {
	m.connectTimer.arm(m.sched, m.opts.Timing.ConnectDelay, m.onHandshakeDone)
	m.logger.Debug("Handshake started", zap.Duration("delay", m.opts.Timing.ConnectDelay))
}

func (m *Manager) onHandshakeDone(gen uint64) {
	m.mu.Lock()
	if m.destroyed || !m.connectTimer.fire(gen) || m.status != Reconnecting {
		m.mu.Unlock()
		return
	}
	m.attempts = 0
	m.setStatusLocked(Connected)
	m.scheduleMessageLocked()
	m.mu.Unlock()

	m.flush()
}

// dropLocked moves to Disconnected and immediately schedules a reconnect.
func (m *Manager) dropLocked(reason string) {
	m.stopTimersLocked()
	m.setStatusLocked(Disconnected)

	delay := m.delays.at(m.attempts)
	m.setStatusLocked(Reconnecting)
	m.reconnectTimer.arm(m.sched, delay, m.onReconnectDue)

	m.logger.Info("Connection lost, reconnect scheduled",
		zap.String("reason", reason),
		zap.Int("reconnect_attempts", m.attempts),
		zap.Duration("delay", delay))
}

func (m *Manager) onReconnectDue(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.destroyed || !m.reconnectTimer.fire(gen) || m.status != Reconnecting {
		return
	}
	m.attempts++
	m.beginHandshakeLocked()
}

func (m *Manager) scheduleMessageLocked() {
	m.messageTimer.arm(m.sched, m.messageIntervalLocked(), m.onMessageDue)
}

// messageIntervalLocked draws a whole-millisecond interval uniformly from
// [MinMessageInterval, MaxMessageInterval].
func (m *Manager) messageIntervalLocked() time.Duration {
	lo := m.opts.Timing.MinMessageInterval
	span := int64((m.opts.Timing.MaxMessageInterval - lo) / time.Millisecond)
	return lo + time.Duration(m.rng.Int64N(span+1))*time.Millisecond
}

func (m *Manager) onMessageDue(gen uint64) {
	m.mu.Lock()
	if m.destroyed || !m.messageTimer.fire(gen) || m.status != Connected {
		m.mu.Unlock()
		return
	}

	if p := *m.opts.RandomDisconnectProbability; m.opts.EnableRandomDisconnect && m.rng.Float64() < p {
		m.logger.Warn("Random disconnect triggered", zap.Float64("probability", p))
		m.dropLocked("random")
		m.mu.Unlock()
		m.flush()
		return
	}

	ev := m.synthesizeLocked()
	m.applyLocked(ev)
	m.enqueueLocked(func() { m.messageSubs.Notify(ev) })
	m.scheduleMessageLocked()
	m.mu.Unlock()

	m.flush()
}

// synthesizeLocked picks new order or status update with equal odds, falling
// back to a new order when nothing can change status.
func (m *Manager) synthesizeLocked() Event {
	if m.rng.IntN(2) == 1 {
		if upd, ok := m.gen.StatusUpdate(m.snapshot); ok {
			return OrderUpdatedEvent(upd)
		}
	}
	return NewOrderEvent(m.gen.NewOrder(m.snapshot))
}

func (m *Manager) applyLocked(ev Event) {
	switch ev.Kind {
	case NewOrder:
		m.snapshot = append(m.snapshot, ev.Order)
	case OrderUpdated:
		if i := order.IndexOf(m.snapshot, ev.Update.ID); i >= 0 {
			m.snapshot[i] = ev.Update.Apply(m.snapshot[i])
		}
	}
	m.logger.Debug("Event synthesized",
		zap.Stringer("kind", ev.Kind),
		zap.Int("snapshot_size", len(m.snapshot)))
}

func (m *Manager) stopTimersLocked() {
	m.connectTimer.stop()
	m.messageTimer.stop()
	m.reconnectTimer.stop()
}

func (m *Manager) setStatusLocked(s Status) {
	if m.status == s {
		return
	}
	prev := m.status
	m.status = s
	m.statusSeq++
	seq := m.statusSeq
	m.enqueueLocked(func() {
		for _, id := range m.statusSubs.IDs() {
			m.deliverStatus(id, seq, s)
		}
	})

	m.logger.Info("Connection status changed",
		zap.Stringer("from", prev),
		zap.Stringer("to", s),
		zap.Int("reconnect_attempts", m.attempts))
}

// deliverStatus calls subscriber id with transition seq unless it already
// saw that transition or a later one.
func (m *Manager) deliverStatus(id string, seq int64, s Status) {
	m.mu.Lock()
	last, ok := m.statusSeen[id]
	if m.destroyed || !ok || seq <= last {
		m.mu.Unlock()
		return
	}
	m.statusSeen[id] = seq
	m.mu.Unlock()

	m.statusSubs.NotifyOne(id, s)
}

func (m *Manager) enqueueLocked(fn func()) {
	m.outbox = append(m.outbox, fn)
}

// flush delivers queued notifications. Only one goroutine drains at a time;
// a re-entrant call from inside a handler returns and leaves its
// notifications to the active dispatcher.
func (m *Manager) flush() {
	m.mu.Lock()
	if m.dispatching {
		m.mu.Unlock()
		return
	}
	m.dispatching = true
	m.mu.Unlock()

	drained := false
	defer func() {
		if !drained {
			m.mu.Lock()
			m.dispatching = false
			m.mu.Unlock()
		}
	}()

	for {
		m.mu.Lock()
		if len(m.outbox) == 0 || m.destroyed {
			m.outbox = nil
			m.dispatching = false
			drained = true
			m.mu.Unlock()
			return
		}
		next := m.outbox[0]
		m.outbox = m.outbox[1:]
		m.mu.Unlock()

		next()
	}
}
