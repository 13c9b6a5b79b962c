package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/rovshanmuradov/orderdesk/internal/order"
)

// Status is the lifecycle state of the connection.
type Status int

const (
	Disconnected Status = iota
	Reconnecting
	Connected
)

// String returns the wire name of the status.
func (s Status) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Reconnecting:
		return "reconnecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "disconnected":
		*s = Disconnected
	case "reconnecting":
		*s = Reconnecting
	case "connected":
		*s = Connected
	default:
		return fmt.Errorf("unknown connection status %q", b)
	}
	return nil
}

// EventKind tags the payload carried by an Event.
type EventKind int

const (
	NewOrder EventKind = iota + 1
	OrderUpdated
)

func (k EventKind) String() string {
	switch k {
	case NewOrder:
		return "NEW_ORDER"
	case OrderUpdated:
		return "ORDER_UPDATE"
	default:
		return "UNKNOWN"
	}
}

// Event is a domain event delivered to message subscribers.
// Order is set for NewOrder, Update for OrderUpdated.
type Event struct {
	Kind   EventKind
	Order  order.Order
	Update order.StatusUpdate
}

// NewOrderEvent wraps a freshly created order.
func NewOrderEvent(o order.Order) Event {
	return Event{Kind: NewOrder, Order: o}
}

// OrderUpdatedEvent wraps a status change.
func OrderUpdatedEvent(u order.StatusUpdate) Event {
	return Event{Kind: OrderUpdated, Update: u}
}

type wireEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// MarshalJSON encodes the event as {"type": ..., "payload": ...}.
func (e Event) MarshalJSON() ([]byte, error) {
	var (
		payload []byte
		err     error
	)
	switch e.Kind {
	case NewOrder:
		payload, err = json.Marshal(e.Order)
	case OrderUpdated:
		payload, err = json.Marshal(e.Update)
	default:
		return nil, fmt.Errorf("marshal event: unknown kind %d", e.Kind)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireEvent{Type: e.Kind.String(), Payload: payload})
}

// UnmarshalJSON decodes the {"type": ..., "payload": ...} form.
func (e *Event) UnmarshalJSON(b []byte) error {
	var w wireEvent
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	switch w.Type {
	case NewOrder.String():
		e.Kind = NewOrder
		return json.Unmarshal(w.Payload, &e.Order)
	case OrderUpdated.String():
		e.Kind = OrderUpdated
		return json.Unmarshal(w.Payload, &e.Update)
	default:
		return fmt.Errorf("unmarshal event: unknown type %q", w.Type)
	}
}

// Generator synthesizes plausible events from the current snapshot.
type Generator interface {
	// NewOrder returns an order that does not collide with existing ids.
	NewOrder(existing []order.Order) order.Order
	// StatusUpdate picks an order eligible for a status change. It reports
	// false when no order can change.
	StatusUpdate(existing []order.Order) (order.StatusUpdate, bool)
}
