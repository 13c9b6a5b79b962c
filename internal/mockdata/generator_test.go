package mockdata

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/rovshanmuradov/orderdesk/internal/order"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}

func newTestGenerator(seed uint64) *Generator {
	return New(Config{Rand: rand.New(rand.NewPCG(seed, seed)), Now: fixedNow})
}

func TestOrders_Shape(t *testing.T) {
	g := newTestGenerator(1)

	orders := g.Orders(20)
	require.Len(t, orders, 20)

	for i, o := range orders {
		assert.Equal(t, order.FormatID(i+1), o.ID)
		assert.True(t, o.Status.Valid())
		assert.GreaterOrEqual(t, len(o.Items), MinItemsPerOrder)
		assert.LessOrEqual(t, len(o.Items), MaxItemsPerOrder)
		assert.True(t, o.TotalAmount.Equal(order.Total(o.Items)))
		assert.False(t, o.CreatedAt.After(fixedNow()))
		assert.False(t, o.UpdatedAt.Before(o.CreatedAt))
		assert.Contains(t, o.CustomerEmail, "@")
		for _, it := range o.Items {
			assert.GreaterOrEqual(t, it.Quantity, 1)
			assert.LessOrEqual(t, it.Quantity, 5)
			assert.True(t, it.Price.GreaterThanOrEqual(decimal.NewFromInt(10)))
			assert.True(t, it.Price.LessThanOrEqual(decimal.NewFromInt(210)))
		}
	}
}

func TestRandomOrders_CountInRange(t *testing.T) {
	g := newTestGenerator(2)

	n := len(g.RandomOrders())
	assert.GreaterOrEqual(t, n, MinOrders)
	assert.LessOrEqual(t, n, MaxOrders)
}

func TestNewOrder_FollowsHighestID(t *testing.T) {
	g := newTestGenerator(3)
	existing := []order.Order{{ID: "ORD-00007"}, {ID: "ORD-00003"}, {ID: "bogus"}}

	o := g.NewOrder(existing)

	assert.Equal(t, "ORD-00008", o.ID)
	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, fixedNow(), o.CreatedAt)
	assert.Equal(t, o.CreatedAt, o.UpdatedAt)
}

func TestNewOrder_EmptySnapshot(t *testing.T) {
	g := newTestGenerator(4)
	assert.Equal(t, "ORD-00001", g.NewOrder(nil).ID)
}

func TestStatusUpdate_FollowsProgression(t *testing.T) {
	g := newTestGenerator(5)
	existing := []order.Order{
		{ID: "ORD-00001", Status: order.StatusDelivered},
		{ID: "ORD-00002", Status: order.StatusShipped},
		{ID: "ORD-00003", Status: order.StatusCancelled},
	}

	for i := 0; i < 10; i++ {
		upd, ok := g.StatusUpdate(existing)
		require.True(t, ok)
		assert.Equal(t, "ORD-00002", upd.ID)
		assert.Equal(t, order.StatusDelivered, upd.Status)
		assert.Equal(t, fixedNow(), upd.UpdatedAt)
	}
}

func TestStatusUpdate_NoEligibleOrders(t *testing.T) {
	g := newTestGenerator(6)
	existing := []order.Order{
		{ID: "ORD-00001", Status: order.StatusDelivered},
		{ID: "ORD-00002", Status: order.StatusCancelled},
	}

	_, ok := g.StatusUpdate(existing)
	assert.False(t, ok)

	_, ok = g.StatusUpdate(nil)
	assert.False(t, ok)
}

func TestSeededGeneratorsAgree(t *testing.T) {
	a := NewSeeded(42).Orders(5)
	b := NewSeeded(42).Orders(5)

	for i := range a {
		assert.Equal(t, a[i].CustomerName, b[i].CustomerName)
		assert.Equal(t, a[i].Status, b[i].Status)
		assert.True(t, a[i].TotalAmount.Equal(b[i].TotalAmount))
	}
}
