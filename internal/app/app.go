// Package app assembles the order store, the simulated connection and the
// surfaces that observe it.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rovshanmuradov/orderdesk/internal/api"
	"github.com/rovshanmuradov/orderdesk/internal/config"
	"github.com/rovshanmuradov/orderdesk/internal/metrics"
	"github.com/rovshanmuradov/orderdesk/internal/mockdata"
	"github.com/rovshanmuradov/orderdesk/internal/order"
	"github.com/rovshanmuradov/orderdesk/internal/realtime"
	"github.com/rovshanmuradov/orderdesk/internal/store"
	"github.com/rovshanmuradov/orderdesk/internal/wsfeed"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const readHeaderTimeout = 5 * time.Second

// Option customizes an App.
type Option func(*settings)

type settings struct {
	scheduler realtime.Scheduler
	registry  *prometheus.Registry
}

// WithScheduler replaces the wall-clock scheduler of the manager.
func WithScheduler(s realtime.Scheduler) Option {
	return func(st *settings) { st.scheduler = s }
}

// WithRegistry registers metrics into reg instead of a fresh registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(st *settings) { st.registry = reg }
}

// App owns every long-lived component. Create it with New, call Start to
// open the connection and Close to tear everything down.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	store    *store.Store
	manager  *realtime.Manager
	registry *prometheus.Registry
	metrics  *metrics.Collector
	hub      *wsfeed.Hub
	api      *api.Handler

	shutdown *ShutdownHandler
}

// New seeds the store and wires the manager to the store, metrics and
// websocket feed. The connection stays closed until Start.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var st settings
	for _, opt := range opts {
		opt(&st)
	}

	gen, rng := generator(cfg.Seed)
	var seed []order.Order
	if cfg.SeedOrders > 0 {
		seed = gen.Orders(cfg.SeedOrders)
	} else {
		seed = gen.RandomOrders()
	}

	a := &App{
		cfg:      cfg,
		logger:   logger.Named("app"),
		registry: st.registry,
		shutdown: NewShutdownHandler(logger, DefaultShutdownTimeout),
	}
	a.store = store.New(seed, store.Config{Latency: cfg.StoreLatency(), Logger: logger})

	rtOpts := cfg.RealtimeOptions()
	rtOpts.Generator = gen
	rtOpts.Rand = rng
	rtOpts.Scheduler = st.scheduler
	rtOpts.Logger = logger
	a.manager = realtime.NewManager(a.store.Snapshot(), rtOpts)
	a.shutdown.AddFunc("manager", func() error {
		a.manager.Destroy()
		return nil
	})

	storeSub := a.store.Attach(a.manager)
	a.shutdown.AddFunc("store", func() error {
		storeSub.Unsubscribe()
		return nil
	})

	if a.registry == nil {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	collector, err := metrics.New(a.registry)
	if err != nil {
		a.manager.Destroy()
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}
	a.metrics = collector
	detachMetrics := collector.Attach(a.manager)
	a.shutdown.AddFunc("metrics", func() error {
		detachMetrics()
		return nil
	})

	a.hub = wsfeed.NewHub(cfg.HubConfig(), logger)
	a.hub.OnClientsChange(collector.SetFeedClients)
	detachHub := a.hub.Attach(a.manager)
	a.shutdown.AddFunc("feed", func() error {
		detachHub()
		return a.hub.Close()
	})

	a.api = api.NewHandler(a.store, collector, logger)
	a.api.OnStatusUpdated = a.statusUpdated

	a.logger.Info("Application assembled",
		zap.Int("orders", a.store.Len()),
		zap.Bool("auto_connect", cfg.Realtime.AutoConnect),
		zap.Bool("random_disconnect", cfg.Realtime.RandomDisconnect))

	return a, nil
}

// generator returns the mock generator and the manager's random source.
// A zero seed selects random sources for both.
func generator(seed uint64) (*mockdata.Generator, *rand.Rand) {
	if seed == 0 {
		return mockdata.New(mockdata.Config{}), nil
	}
	return mockdata.NewSeeded(seed), rand.New(rand.NewPCG(seed, ^seed))
}

// Store returns the order store.
func (a *App) Store() *store.Store { return a.store }

// Manager returns the connection manager.
func (a *App) Manager() *realtime.Manager { return a.manager }

// Start opens the connection when auto_connect is set.
func (a *App) Start() {
	if a.cfg.Realtime.AutoConnect {
		a.manager.Connect()
	}
}

// statusUpdated keeps the manager's snapshot and the feed in step with an
// edit made through the API.
func (a *App) statusUpdated(o order.Order) {
	a.manager.UpdateSnapshot(a.store.Snapshot())

	ev := realtime.OrderUpdatedEvent(order.StatusUpdate{ID: o.ID, Status: o.Status, UpdatedAt: o.UpdatedAt})
	if err := a.hub.PublishEvent(ev); err != nil && !errors.Is(err, wsfeed.ErrHubClosed) {
		a.logger.Warn("Failed to publish status edit", zap.String("order_id", o.ID), zap.Error(err))
	}
}

// Handler returns the HTTP surface: the websocket feed, metrics, the order
// API and a health probe.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", a.hub)
	mux.Handle("/metrics", metrics.Handler(a.registry))
	mux.Handle("/api/", a.api)
	mux.HandleFunc("GET /healthz", a.health)
	return mux
}

func (a *App) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":            a.manager.Status(),
		"reconnectAttempts": a.manager.ReconnectAttempts(),
		"orders":            a.store.Len(),
		"feedClients":       a.hub.Clients(),
	})
}

// Serve listens on the configured address until ctx is cancelled, then
// shuts the server down gracefully.
func (a *App) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.cfg.HTTPAddr, err)
	}
	return a.ServeListener(ctx, ln)
}

// ServeListener is Serve on an existing listener.
func (a *App) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("HTTP server listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		// Open websocket connections are hijacked; the hub closes them.
		if err := a.hub.Close(); err != nil {
			a.logger.Warn("Feed close failed", zap.Error(err))
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		a.logger.Info("HTTP server stopped")
		return nil
	})
	return g.Wait()
}

// Close stops the feed, detaches every observer and destroys the manager.
// It is safe to call more than once.
func (a *App) Close(ctx context.Context) error {
	return a.shutdown.Shutdown(ctx)
}
