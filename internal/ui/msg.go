package ui

import (
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rovshanmuradov/orderdesk/internal/events"
	"github.com/rovshanmuradov/orderdesk/internal/realtime"
	"go.uber.org/zap"
)

// StatusMsg carries a connection status change.
type StatusMsg struct {
	Status    realtime.Status
	Attempts  int
	NextDelay time.Duration
}

// EventMsg carries an event delivered by the connection.
type EventMsg struct {
	Event realtime.Event
	At    time.Time
}

// ExportedMsg reports the result of an export.
type ExportedMsg struct {
	Path string
	Err  error
}

// TickMsg refreshes time-dependent parts of the view.
type TickMsg time.Time

// Source is the connection surface the bridge listens to.
type Source interface {
	OnStatusChange(handler func(realtime.Status)) events.Subscription
	OnMessage(handler func(realtime.Event)) events.Subscription
	ReconnectAttempts() int
	CurrentReconnectDelay() time.Duration
}

// Bridge forwards connection callbacks to the bubbletea program without ever
// blocking the caller. Messages that do not fit in the buffer are dropped and
// counted.
type Bridge struct {
	ch      chan tea.Msg
	sent    atomic.Uint64
	dropped atomic.Uint64
	logger  *zap.Logger
}

// NewBridge creates a bridge with room for size pending messages.
func NewBridge(size int, logger *zap.Logger) *Bridge {
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{ch: make(chan tea.Msg, size), logger: logger.Named("bridge")}
}

// Send queues msg, dropping it if the buffer is full.
func (b *Bridge) Send(msg tea.Msg) {
	select {
	case b.ch <- msg:
		b.sent.Add(1)
	default:
		if b.dropped.Add(1)%100 == 1 {
			b.logger.Warn("UI update dropped",
				zap.Uint64("sent", b.sent.Load()),
				zap.Uint64("dropped", b.dropped.Load()))
		}
	}
}

// Stats returns how many messages were queued and dropped.
func (b *Bridge) Stats() (sent, dropped uint64) {
	return b.sent.Load(), b.dropped.Load()
}

// Listen returns a command that waits for the next queued message.
func (b *Bridge) Listen() tea.Cmd {
	return func() tea.Msg {
		return <-b.ch
	}
}

// Attach subscribes to src and returns a function that removes both
// subscriptions.
func (b *Bridge) Attach(src Source) func() {
	statusSub := src.OnStatusChange(func(s realtime.Status) {
		b.Send(StatusMsg{
			Status:    s,
			Attempts:  src.ReconnectAttempts(),
			NextDelay: src.CurrentReconnectDelay(),
		})
	})
	msgSub := src.OnMessage(func(ev realtime.Event) {
		b.Send(EventMsg{Event: ev, At: time.Now()})
	})
	return func() {
		statusSub.Unsubscribe()
		msgSub.Unsubscribe()
	}
}
