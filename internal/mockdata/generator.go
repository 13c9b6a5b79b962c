// internal/mockdata/generator.go
package mockdata

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/rovshanmuradov/orderdesk/internal/order"
	"github.com/shopspring/decimal"
)

const (
	MinOrders        = 50
	MaxOrders        = 100
	MinItemsPerOrder = 1
	MaxItemsPerOrder = 5

	createdWindow = 30 * 24 * time.Hour
	updatedWindow = 5 * 24 * time.Hour
)

// Config configures a Generator.
type Config struct {
	Rand *rand.Rand       // nil selects a randomly seeded source
	Now  func() time.Time // nil selects time.Now
}

// Generator produces plausible orders and status changes. It satisfies
// realtime.Generator.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// New creates a generator.
func New(cfg Config) *Generator {
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Generator{rng: cfg.Rand, now: cfg.Now}
}

// NewSeeded creates a deterministic generator.
func NewSeeded(seed uint64) *Generator {
	return New(Config{Rand: rand.New(rand.NewPCG(seed, seed))})
}

// Orders generates n orders with ids ORD-00001..n.
func (g *Generator) Orders(n int) []order.Order {
	g.mu.Lock()
	defer g.mu.Unlock()

	orders := make([]order.Order, 0, n)
	for i := 0; i < n; i++ {
		orders = append(orders, g.orderLocked(i+1))
	}
	return orders
}

// RandomOrders generates between MinOrders and MaxOrders orders.
func (g *Generator) RandomOrders() []order.Order {
	g.mu.Lock()
	n := g.intn(MinOrders, MaxOrders)
	g.mu.Unlock()
	return g.Orders(n)
}

// NewOrder returns a pending order numbered after the highest existing id.
func (g *Generator) NewOrder(existing []order.Order) order.Order {
	g.mu.Lock()
	defer g.mu.Unlock()

	maxSeq := 0
	for _, o := range existing {
		if n, ok := order.Sequence(o.ID); ok && n > maxSeq {
			maxSeq = n
		}
	}

	o := g.orderLocked(maxSeq + 1)
	o.Status = order.StatusPending
	o.CreatedAt = g.now().UTC()
	o.UpdatedAt = o.CreatedAt
	return o
}

// StatusUpdate advances a random non-terminal order along its progression.
func (g *Generator) StatusUpdate(existing []order.Order) (order.StatusUpdate, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var candidates []int
	for i, o := range existing {
		if !o.Status.Terminal() {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return order.StatusUpdate{}, false
	}

	target := existing[candidates[g.rng.IntN(len(candidates))]]
	next := target.Status.Next()
	if len(next) == 0 {
		return order.StatusUpdate{}, false
	}

	return order.StatusUpdate{
		ID:        target.ID,
		Status:    next[g.rng.IntN(len(next))],
		UpdatedAt: g.now().UTC(),
	}, true
}

func (g *Generator) orderLocked(seq int) order.Order {
	first := pick(g.rng, firstNames)
	last := pick(g.rng, lastNames)

	itemCount := g.intn(MinItemsPerOrder, MaxItemsPerOrder)
	items := make([]order.Item, 0, itemCount)
	for i := 0; i < itemCount; i++ {
		items = append(items, g.itemLocked(i))
	}

	now := g.now().UTC()
	created := now.Add(-time.Duration(g.rng.Int64N(int64(createdWindow))))
	updated := created.Add(time.Duration(g.rng.Int64N(int64(updatedWindow))))

	return order.Order{
		ID:            order.FormatID(seq),
		CustomerName:  first + " " + last,
		CustomerEmail: fmt.Sprintf("%s.%s@%s", strings.ToLower(first), strings.ToLower(last), pick(g.rng, emailDomains)),
		Status:        pick(g.rng, order.Statuses),
		Items:         items,
		TotalAmount:   order.Total(items),
		Currency:      pick(g.rng, currencies),
		CreatedAt:     created,
		UpdatedAt:     updated,
		ShippingAddress: order.Address{
			Street:     fmt.Sprintf("%d %s", g.intn(1, 9999), pick(g.rng, streets)),
			City:       pick(g.rng, cities),
			Country:    pick(g.rng, countries),
			PostalCode: fmt.Sprintf("%05d", g.intn(10000, 99999)),
		},
	}
}

func (g *Generator) itemLocked(index int) order.Item {
	price := decimal.NewFromFloat(g.rng.Float64()*200 + 10).Round(2)
	return order.Item{
		ID:          fmt.Sprintf("ITEM-%04d", index+1),
		ProductName: pick(g.rng, productNames),
		Quantity:    g.intn(1, 5),
		Price:       price,
	}
}

// intn returns a uniform integer in [lo, hi].
func (g *Generator) intn(lo, hi int) int {
	return lo + g.rng.IntN(hi-lo+1)
}

func pick[T any](rng *rand.Rand, values []T) T {
	return values[rng.IntN(len(values))]
}
