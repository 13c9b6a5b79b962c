// internal/events/observers.go
package events

import (
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Observers is a synchronous fan-out list of handlers for values of type T.
//
// Handlers are invoked on the caller's goroutine, without any lock held, so a
// handler may subscribe, unsubscribe or notify again. A handler removed while a
// notification is in progress is not called for the remainder of it.
type Observers[T any] struct {
	mu       sync.RWMutex
	handlers map[string]func(T)
	order    []string
	logger   *zap.Logger
}

// NewObservers creates an empty observer list.
func NewObservers[T any](name string, logger *zap.Logger) *Observers[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Observers[T]{
		handlers: make(map[string]func(T)),
		logger:   logger.Named(name),
	}
}

// Subscribe registers fn and returns the capability to remove it.
func (o *Observers[T]) Subscribe(fn func(T)) Subscription {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := uuid.New().String()
	o.handlers[id] = fn
	o.order = append(o.order, id)

	o.logger.Debug("Handler subscribed", zap.String("subscription_id", id))

	return &subscription{id: id, remove: o.unsubscribe}
}

// Notify calls every current handler once with v and returns how many were called.
func (o *Observers[T]) Notify(v T) int {
	called := 0
	for _, id := range o.IDs() {
		if o.NotifyOne(id, v) {
			called++
		}
	}
	return called
}

// NotifyOne calls a single handler if it is still subscribed.
func (o *Observers[T]) NotifyOne(id string, v T) bool {
	o.mu.RLock()
	fn, ok := o.handlers[id]
	o.mu.RUnlock()

	if !ok {
		return false
	}
	fn(v)
	return true
}

// IDs returns the ids of the subscribed handlers in subscription order.
func (o *Observers[T]) IDs() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return slices.Clone(o.order)
}

// Len returns the number of subscribed handlers.
func (o *Observers[T]) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.handlers)
}

// Clear removes every handler.
func (o *Observers[T]) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.handlers = make(map[string]func(T))
	o.order = nil
}

func (o *Observers[T]) unsubscribe(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.handlers[id]; !ok {
		return
	}
	delete(o.handlers, id)
	for i, existing := range o.order {
		if existing == id {
			o.order = append(o.order[:i:i], o.order[i+1:]...)
			break
		}
	}

	o.logger.Debug("Handler unsubscribed", zap.String("subscription_id", id))
}
