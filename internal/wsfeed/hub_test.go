package wsfeed

import (
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rovshanmuradov/orderdesk/internal/order"
	"github.com/rovshanmuradov/orderdesk/internal/realtime"
	"github.com/rovshanmuradov/orderdesk/internal/realtime/clocktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func startHub(t *testing.T, cfg Config) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(cfg, zaptest.NewLogger(t))
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		_ = hub.Close()
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return data
}

func readStatus(t *testing.T, conn *websocket.Conn) realtime.Status {
	t.Helper()
	var f Frame
	require.NoError(t, json.Unmarshal(readFrame(t, conn), &f))
	require.Equal(t, StatusFrameType, f.Type)

	var s realtime.Status
	require.NoError(t, json.Unmarshal(f.Payload, &s))
	return s
}

func TestHub_NewClientGetsCurrentStatus(t *testing.T) {
	hub, srv := startHub(t, Config{})
	require.NoError(t, hub.PublishStatus(realtime.Connected))

	conn := dial(t, srv)

	assert.Equal(t, realtime.Connected, readStatus(t, conn))
	assert.Equal(t, 1, hub.Clients())
}

func TestHub_StatusFrameFormat(t *testing.T) {
	_, srv := startHub(t, Config{})
	conn := dial(t, srv)

	assert.JSONEq(t, `{"type":"STATUS","payload":"disconnected"}`, string(readFrame(t, conn)))
}

func TestHub_BroadcastsEvents(t *testing.T) {
	hub, srv := startHub(t, Config{})
	a, b := dial(t, srv), dial(t, srv)
	readStatus(t, a)
	readStatus(t, b)

	ev := realtime.OrderUpdatedEvent(order.StatusUpdate{ID: "ORD-00007", Status: order.StatusShipped})
	require.NoError(t, hub.PublishEvent(ev))

	for _, conn := range []*websocket.Conn{a, b} {
		var got realtime.Event
		require.NoError(t, json.Unmarshal(readFrame(t, conn), &got))
		assert.Equal(t, realtime.OrderUpdated, got.Kind)
		assert.Equal(t, "ORD-00007", got.Update.ID)
	}
}

func TestHub_RelaysManager(t *testing.T) {
	hub, srv := startHub(t, Config{})

	clock := clocktest.New()
	m := realtime.NewManager(nil, realtime.Options{
		Scheduler: clock,
		Rand:      rand.New(rand.NewPCG(9, 9)),
		Logger:    zaptest.NewLogger(t),
	})
	defer m.Destroy()

	detach := hub.Attach(m)
	defer detach()

	conn := dial(t, srv)
	require.Equal(t, realtime.Disconnected, readStatus(t, conn))

	m.Connect()
	clock.Advance(realtime.DefaultConnectDelay)
	assert.Equal(t, realtime.Reconnecting, readStatus(t, conn))
	assert.Equal(t, realtime.Connected, readStatus(t, conn))

	clock.Advance(realtime.DefaultMaxMessageInterval)
	var ev realtime.Event
	require.NoError(t, json.Unmarshal(readFrame(t, conn), &ev))
	assert.Contains(t, []realtime.EventKind{realtime.NewOrder, realtime.OrderUpdated}, ev.Kind)
}

func TestHub_ClientLeaves(t *testing.T) {
	hub, srv := startHub(t, Config{})

	var mu sync.Mutex
	var counts []int
	hub.OnClientsChange(func(n int) {
		mu.Lock()
		counts = append(counts, n)
		mu.Unlock()
	})

	conn := dial(t, srv)
	readStatus(t, conn)
	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 5*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 0}, counts)
}

func TestHub_Close(t *testing.T) {
	hub, srv := startHub(t, Config{})
	conn := dial(t, srv)
	readStatus(t, conn)

	require.NoError(t, hub.Close())
	require.NoError(t, hub.Close())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	assert.ErrorIs(t, hub.PublishStatus(realtime.Connected), ErrHubClosed)
	assert.ErrorIs(t, hub.PublishEvent(realtime.NewOrderEvent(order.Order{ID: "ORD-00001"})), ErrHubClosed)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := NewHub(Config{BufferSize: 1}, zaptest.NewLogger(t))

	c := &client{id: "slow", send: make(chan []byte, 1), done: make(chan struct{})}
	hub.clients[c.id] = c

	hub.broadcast([]byte("one"))
	assert.Equal(t, 1, hub.Clients())

	hub.broadcast([]byte("two"))
	assert.Equal(t, 0, hub.Clients())

	select {
	case <-c.done:
	default:
		t.Fatal("slow client not closed")
	}
}

func TestHub_UnencodableEvent(t *testing.T) {
	hub := NewHub(Config{}, nil)
	assert.Error(t, hub.PublishEvent(realtime.Event{}))
}
