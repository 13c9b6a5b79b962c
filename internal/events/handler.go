// internal/events/handler.go
package events

// Subscription represents a registered handler.
type Subscription interface {
	// ID identifies the subscription within its observer list.
	ID() string
	// Unsubscribe removes the handler. Calling it more than once is harmless.
	Unsubscribe()
}

// subscription is the internal implementation of Subscription.
type subscription struct {
	id     string
	remove func(id string)
}

func (s *subscription) ID() string {
	return s.id
}

// Unsubscribe removes this subscription from its observer list.
func (s *subscription) Unsubscribe() {
	s.remove(s.id)
}

type nopSubscription struct{}

func (nopSubscription) ID() string   { return "" }
func (nopSubscription) Unsubscribe() {}

// Nop returns a Subscription that is not attached to anything.
func Nop() Subscription {
	return nopSubscription{}
}
