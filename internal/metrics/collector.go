// internal/metrics/collector.go
package metrics

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rovshanmuradov/orderdesk/internal/events"
	"github.com/rovshanmuradov/orderdesk/internal/realtime"
)

const namespace = "orderdesk"

// MetricType names a metric held by the Collector.
type MetricType string

const (
	ConnectionStatusType  MetricType = "connection_status"
	StatusTransitionsType MetricType = "status_transitions"
	MessagesType          MetricType = "messages"
	ReconnectAttemptsType MetricType = "reconnect_attempts"
	FeedClientsType       MetricType = "feed_clients"
	RequestDurationType   MetricType = "request_duration"
)

var statuses = []realtime.Status{realtime.Disconnected, realtime.Reconnecting, realtime.Connected}

// Source is the part of realtime.Manager the collector observes.
type Source interface {
	OnStatusChange(handler func(realtime.Status)) events.Subscription
	OnMessage(handler func(realtime.Event)) events.Subscription
	ReconnectAttempts() int
}

// Collector owns the dashboard's Prometheus metrics.
type Collector struct {
	metrics sync.Map

	connectionStatus  *prometheus.GaugeVec
	statusTransitions *prometheus.CounterVec
	messages          *prometheus.CounterVec
	reconnectAttempts prometheus.Gauge
	feedClients       prometheus.Gauge
	requestDuration   *prometheus.HistogramVec
}

// New creates a collector and registers its metrics with reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		connectionStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "connection_status",
				Help:      "1 for the current connection status, 0 otherwise",
			},
			[]string{"status"},
		),
		statusTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "status_transitions_total",
				Help:      "Connection status transitions by target status",
			},
			[]string{"status"},
		),
		messages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_total",
				Help:      "Realtime events delivered by type",
			},
			[]string{"type"},
		),
		reconnectAttempts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reconnect_attempts",
			Help:      "Reconnect cycles since the last successful connection",
		}),
		feedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_clients",
			Help:      "Number of connected websocket feed clients",
		}),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Order API request duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
			},
			[]string{"op", "code"},
		),
	}

	metricsMap := map[MetricType]prometheus.Collector{
		ConnectionStatusType:  c.connectionStatus,
		StatusTransitionsType: c.statusTransitions,
		MessagesType:          c.messages,
		ReconnectAttemptsType: c.reconnectAttempts,
		FeedClientsType:       c.feedClients,
		RequestDurationType:   c.requestDuration,
	}
	for metricType, metric := range metricsMap {
		if err := reg.Register(metric); err != nil {
			return nil, fmt.Errorf("register %s: %w", metricType, err)
		}
		c.metrics.Store(metricType, metric)
	}

	c.setStatus(realtime.Disconnected)
	return c, nil
}

// Attach records status changes and events from src. The returned func
// detaches the collector.
func (c *Collector) Attach(src Source) func() {
	var primed atomic.Bool

	statusSub := src.OnStatusChange(func(s realtime.Status) {
		c.setStatus(s)
		c.reconnectAttempts.Set(float64(src.ReconnectAttempts()))
		// The first call reports the current state, not a transition.
		if primed.Swap(true) {
			c.statusTransitions.WithLabelValues(s.String()).Inc()
		}
	})
	messageSub := src.OnMessage(func(ev realtime.Event) {
		c.messages.WithLabelValues(ev.Kind.String()).Inc()
	})

	return func() {
		statusSub.Unsubscribe()
		messageSub.Unsubscribe()
	}
}

// SetFeedClients records the number of websocket feed clients.
func (c *Collector) SetFeedClients(n int) {
	c.feedClients.Set(float64(n))
}

// ObserveRequest records the duration of an API request.
func (c *Collector) ObserveRequest(op string, code int, d time.Duration) {
	c.requestDuration.WithLabelValues(op, fmt.Sprint(code)).Observe(d.Seconds())
}

// Reset clears all vector metrics (useful for tests).
func (c *Collector) Reset() {
	c.metrics.Range(func(_, value any) bool {
		switch m := value.(type) {
		case *prometheus.CounterVec:
			m.Reset()
		case *prometheus.GaugeVec:
			m.Reset()
		case *prometheus.HistogramVec:
			m.Reset()
		case prometheus.Gauge:
			m.Set(0)
		}
		return true
	})
}

func (c *Collector) setStatus(current realtime.Status) {
	for _, s := range statuses {
		v := 0.0
		if s == current {
			v = 1
		}
		c.connectionStatus.WithLabelValues(s.String()).Set(v)
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
