// internal/store/store.go
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rovshanmuradov/orderdesk/internal/events"
	"github.com/rovshanmuradov/orderdesk/internal/order"
	"github.com/rovshanmuradov/orderdesk/internal/realtime"
	"go.uber.org/zap"
)

// ErrNotFound is returned when no order has the requested id.
var ErrNotFound = errors.New("order not found")

// DefaultLatency mimics the round trip of the dashboard's backend.
const DefaultLatency = 500 * time.Millisecond

// Config configures a Store.
type Config struct {
	Latency time.Duration    // Simulated delay of List, Get and UpdateStatus; zero disables it
	Now     func() time.Time // nil selects time.Now
	Logger  *zap.Logger
}

// Store holds the orders shown on the dashboard. Newest orders come first.
type Store struct {
	mu      sync.RWMutex
	orders  []order.Order
	latency time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// MessageSource delivers realtime events; *realtime.Manager implements it.
type MessageSource interface {
	OnMessage(handler func(realtime.Event)) events.Subscription
}

// New creates a store over a copy of seed.
func New(seed []order.Order, cfg Config) *Store {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Store{
		orders:  slices.Clone(seed),
		latency: cfg.Latency,
		now:     cfg.Now,
		logger:  cfg.Logger.Named("store"),
	}
}

// List returns a copy of all orders.
func (s *Store) List(ctx context.Context) ([]order.Order, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return s.Snapshot(), nil
}

// Get returns the order with the given id.
func (s *Store) Get(ctx context.Context, id string) (order.Order, error) {
	if err := s.wait(ctx); err != nil {
		return order.Order{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	i := order.IndexOf(s.orders, id)
	if i < 0 {
		return order.Order{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return s.orders[i], nil
}

// UpdateStatus sets the status of an order and stamps UpdatedAt.
func (s *Store) UpdateStatus(ctx context.Context, id string, status order.Status) (order.Order, error) {
	if !status.Valid() {
		return order.Order{}, fmt.Errorf("update %s: %w: %q", id, order.ErrInvalidStatus, status)
	}
	if err := s.wait(ctx); err != nil {
		return order.Order{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := order.IndexOf(s.orders, id)
	if i < 0 {
		return order.Order{}, fmt.Errorf("update %s: %w", id, ErrNotFound)
	}

	upd := order.StatusUpdate{ID: id, Status: status, UpdatedAt: s.now().UTC()}
	s.orders[i] = upd.Apply(s.orders[i])

	s.logger.Info("Order status updated",
		zap.String("order_id", id),
		zap.String("status", string(status)))
	return s.orders[i], nil
}

// Snapshot returns a copy of all orders without simulated latency.
func (s *Store) Snapshot() []order.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.orders)
}

// Len returns the number of stored orders.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}

// Add prepends o. It reports false if an order with the same id exists.
func (s *Store) Add(o order.Order) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if order.IndexOf(s.orders, o.ID) >= 0 {
		s.logger.Debug("Duplicate order ignored", zap.String("order_id", o.ID))
		return false
	}
	s.orders = slices.Insert(s.orders, 0, o)
	return true
}

// ApplyUpdate applies u to the matching order. Unknown ids are ignored.
func (s *Store) ApplyUpdate(u order.StatusUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := order.IndexOf(s.orders, u.ID)
	if i < 0 {
		s.logger.Debug("Update for unknown order ignored", zap.String("order_id", u.ID))
		return false
	}
	s.orders[i] = u.Apply(s.orders[i])
	return true
}

// Apply folds a realtime event into the store.
func (s *Store) Apply(ev realtime.Event) {
	switch ev.Kind {
	case realtime.NewOrder:
		s.Add(ev.Order)
	case realtime.OrderUpdated:
		s.ApplyUpdate(ev.Update)
	}
}

// Attach keeps the store in sync with src until the subscription is cancelled.
func (s *Store) Attach(src MessageSource) events.Subscription {
	return src.OnMessage(s.Apply)
}

func (s *Store) wait(ctx context.Context) error {
	if s.latency <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(s.latency)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
