package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rovshanmuradov/orderdesk/internal/events"
	"github.com/rovshanmuradov/orderdesk/internal/order"
	"github.com/rovshanmuradov/orderdesk/internal/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, seed ...order.Order) *Store {
	t.Helper()
	return New(seed, Config{
		Now:    func() time.Time { return testNow },
		Logger: zaptest.NewLogger(t),
	})
}

func TestStore_ListReturnsCopy(t *testing.T) {
	s := newTestStore(t, order.Order{ID: "ORD-00001", Status: order.StatusPending})

	list, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)

	list[0].Status = order.StatusCancelled

	got, err := s.Get(context.Background(), "ORD-00001")
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, got.Status)
}

func TestStore_SeedIsCopied(t *testing.T) {
	seed := []order.Order{{ID: "ORD-00001"}}
	s := New(seed, Config{})

	seed[0].ID = "changed"

	_, err := s.Get(context.Background(), "ORD-00001")
	assert.NoError(t, err)
}

func TestStore_GetNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "ORD-99999")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStore_UpdateStatus(t *testing.T) {
	s := newTestStore(t, order.Order{ID: "ORD-00001", Status: order.StatusPending})

	got, err := s.UpdateStatus(context.Background(), "ORD-00001", order.StatusShipped)
	require.NoError(t, err)
	assert.Equal(t, order.StatusShipped, got.Status)
	assert.Equal(t, testNow, got.UpdatedAt)

	_, err = s.UpdateStatus(context.Background(), "ORD-00002", order.StatusShipped)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.UpdateStatus(context.Background(), "ORD-00001", order.Status("lost"))
	assert.ErrorIs(t, err, order.ErrInvalidStatus)
}

func TestStore_AddPrependsAndIgnoresDuplicates(t *testing.T) {
	s := newTestStore(t, order.Order{ID: "ORD-00001"})

	assert.True(t, s.Add(order.Order{ID: "ORD-00002"}))
	assert.False(t, s.Add(order.Order{ID: "ORD-00001", CustomerName: "dup"}))

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "ORD-00002", snap[0].ID)
	assert.Empty(t, snap[1].CustomerName)
}

func TestStore_ApplyUpdate(t *testing.T) {
	s := newTestStore(t, order.Order{ID: "ORD-00001", Status: order.StatusPending})

	upd := order.StatusUpdate{ID: "ORD-00001", Status: order.StatusProcessing, UpdatedAt: testNow}
	assert.True(t, s.ApplyUpdate(upd))
	assert.False(t, s.ApplyUpdate(order.StatusUpdate{ID: "ORD-00404", Status: order.StatusShipped}))

	got, err := s.Get(context.Background(), "ORD-00001")
	require.NoError(t, err)
	assert.Equal(t, order.StatusProcessing, got.Status)
	assert.Equal(t, 1, s.Len())
}

func TestStore_ApplyEvents(t *testing.T) {
	s := newTestStore(t, order.Order{ID: "ORD-00001", Status: order.StatusPending})

	s.Apply(realtime.NewOrderEvent(order.Order{ID: "ORD-00002", Status: order.StatusPending}))
	s.Apply(realtime.OrderUpdatedEvent(order.StatusUpdate{ID: "ORD-00001", Status: order.StatusCancelled}))

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "ORD-00002", snap[0].ID)
	assert.Equal(t, order.StatusCancelled, snap[1].Status)
}

type fakeSource struct {
	obs *events.Observers[realtime.Event]
}

func (f *fakeSource) OnMessage(h func(realtime.Event)) events.Subscription {
	return f.obs.Subscribe(h)
}

func TestStore_Attach(t *testing.T) {
	s := newTestStore(t)
	src := &fakeSource{obs: events.NewObservers[realtime.Event]("test", nil)}

	sub := s.Attach(src)
	src.obs.Notify(realtime.NewOrderEvent(order.Order{ID: "ORD-00001"}))
	sub.Unsubscribe()
	src.obs.Notify(realtime.NewOrderEvent(order.Order{ID: "ORD-00002"}))

	assert.Equal(t, 1, s.Len())
}

func TestStore_LatencyHonoursContext(t *testing.T) {
	s := New(nil, Config{Latency: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = s.UpdateStatus(ctx, "ORD-00001", order.StatusShipped)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_Latency(t *testing.T) {
	s := New([]order.Order{{ID: "ORD-00001"}}, Config{Latency: 20 * time.Millisecond})

	start := time.Now()
	_, err := s.Get(context.Background(), "ORD-00001")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := order.FormatID(i + 1)
			s.Add(order.Order{ID: id, Status: order.StatusPending})
			s.ApplyUpdate(order.StatusUpdate{ID: id, Status: order.StatusProcessing})
			_ = s.Snapshot()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, s.Len())
}
