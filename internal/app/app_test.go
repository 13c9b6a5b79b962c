package app

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rovshanmuradov/orderdesk/internal/config"
	"github.com/rovshanmuradov/orderdesk/internal/order"
	"github.com/rovshanmuradov/orderdesk/internal/realtime"
	"github.com/rovshanmuradov/orderdesk/internal/realtime/clocktest"
	"github.com/rovshanmuradov/orderdesk/internal/wsfeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Seed = 7
	cfg.SeedOrders = 20
	cfg.Store.Latency = 0
	cfg.Realtime.RandomDisconnect = false
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) (*App, *clocktest.Scheduler) {
	t.Helper()
	sched := clocktest.New()
	a, err := New(cfg, zaptest.NewLogger(t), WithScheduler(sched))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a, sched
}

func get(t *testing.T, url string) string {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestNew_SeedsStoreAndManager(t *testing.T) {
	a, sched := newTestApp(t, testConfig(t))

	assert.Equal(t, 20, a.Store().Len())
	assert.Equal(t, realtime.Disconnected, a.Manager().Status())
	assert.Zero(t, sched.Pending(), "nothing scheduled before Start")
}

func TestNew_SameSeedSameOrders(t *testing.T) {
	a, _ := newTestApp(t, testConfig(t))
	b, _ := newTestApp(t, testConfig(t))

	sa, sb := a.Store().Snapshot(), b.Store().Snapshot()
	require.Len(t, sb, len(sa))
	for i := range sa {
		assert.Equal(t, sa[i].ID, sb[i].ID)
		assert.Equal(t, sa[i].CustomerName, sb[i].CustomerName)
		assert.True(t, sa[i].TotalAmount.Equal(sb[i].TotalAmount))
	}
}

func TestNew_NilConfig(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)
}

func TestStart_ConnectsAndFeedsStore(t *testing.T) {
	a, sched := newTestApp(t, testConfig(t))

	var (
		mu   sync.Mutex
		seen []realtime.Event
	)
	a.Manager().OnMessage(func(ev realtime.Event) {
		mu.Lock()
		seen = append(seen, ev)
		mu.Unlock()
	})

	a.Start()
	assert.Equal(t, realtime.Reconnecting, a.Manager().Status())

	sched.Advance(realtime.DefaultConnectDelay)
	require.Equal(t, realtime.Connected, a.Manager().Status())

	sched.Advance(3 * realtime.DefaultMaxMessageInterval)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)

	snap := a.Store().Snapshot()
	for _, ev := range seen {
		switch ev.Kind {
		case realtime.NewOrder:
			assert.GreaterOrEqual(t, order.IndexOf(snap, ev.Order.ID), 0, "new order stored")
		case realtime.OrderUpdated:
			assert.GreaterOrEqual(t, order.IndexOf(snap, ev.Update.ID), 0, "updated order exists")
		}
	}
}

func TestStart_AutoConnectOff(t *testing.T) {
	cfg := testConfig(t)
	cfg.Realtime.AutoConnect = false
	a, sched := newTestApp(t, cfg)

	a.Start()
	assert.Equal(t, realtime.Disconnected, a.Manager().Status())
	assert.Zero(t, sched.Pending())
}

func TestHandler_HealthAndMetrics(t *testing.T) {
	a, sched := newTestApp(t, testConfig(t))
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	a.Start()
	sched.Advance(realtime.DefaultConnectDelay)

	var health map[string]any
	require.NoError(t, json.Unmarshal([]byte(get(t, srv.URL+"/healthz")), &health))
	assert.Equal(t, "connected", health["status"])
	assert.EqualValues(t, 20, health["orders"])

	body := get(t, srv.URL+"/metrics")
	assert.Contains(t, body, `orderdesk_connection_status{status="connected"} 1`)
	assert.Contains(t, body, "go_goroutines")

	assert.Contains(t, get(t, srv.URL+"/api/orders?page_size=all"), `"total":20`)
}

func TestHandler_StatusEditReachesFeed(t *testing.T) {
	a, _ := newTestApp(t, testConfig(t))
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	readFrame := func() wsfeed.Frame {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var f wsfeed.Frame
		require.NoError(t, conn.ReadJSON(&f))
		return f
	}
	assert.Equal(t, wsfeed.StatusFrameType, readFrame().Type)

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/api/orders/ORD-00003/status",
		strings.NewReader(`{"status":"cancelled"}`))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	f := readFrame()
	assert.Equal(t, "ORDER_UPDATE", f.Type)
	var u order.StatusUpdate
	require.NoError(t, json.Unmarshal(f.Payload, &u))
	assert.Equal(t, "ORD-00003", u.ID)
	assert.Equal(t, order.StatusCancelled, u.Status)
}

func TestClose_Idempotent(t *testing.T) {
	a, sched := newTestApp(t, testConfig(t))
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	require.NoError(t, a.Close(context.Background()))
	require.NoError(t, a.Close(context.Background()))

	a.Manager().Connect()
	assert.Equal(t, realtime.Disconnected, a.Manager().Status(), "destroyed manager ignores Connect")
	assert.Zero(t, sched.Pending())

	resp, err := http.Get(srv.URL + "/ws")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestServeListener_StopsOnCancel(t *testing.T) {
	a, _ := newTestApp(t, testConfig(t))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- a.ServeListener(ctx, ln) }()

	assert.Contains(t, get(t, "http://"+ln.Addr().String()+"/healthz"), "disconnected")

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
