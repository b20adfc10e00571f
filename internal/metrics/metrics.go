package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry wraps the Prometheus collectors used by the relay.
type Registry struct {
	prom *prometheus.Registry

	Connections connectionGauges
	Pushes      pushCounters
	System      systemGauges
}

type connectionGauges struct {
	ActiveConnections prometheus.Gauge
	ConnectedUsers    prometheus.Gauge
	AuthFailures      prometheus.Counter
	UpgradeErrors     prometheus.Counter
}

type pushCounters struct {
	PushRequests    prometheus.Counter
	EventsDelivered prometheus.Counter
	EventsDropped   prometheus.Counter
	OfflinePushes   prometheus.Counter
}

type systemGauges struct {
	CPUPercent   prometheus.Gauge
	HeapAllocMB  prometheus.Gauge
	GoroutineNum prometheus.Gauge
}

// NewRegistry creates relay metrics collectors on a private Prometheus registry.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Registry{
		prom: reg,
		Connections: connectionGauges{
			ActiveConnections: factory.NewGauge(prometheus.GaugeOpts{
				Name: "relay_connections_active",
				Help: "Number of active WebSocket connections held by the relay",
			}),
			ConnectedUsers: factory.NewGauge(prometheus.GaugeOpts{
				Name: "relay_connected_users",
				Help: "Number of distinct users with at least one open connection",
			}),
			AuthFailures: factory.NewCounter(prometheus.CounterOpts{
				Name: "relay_auth_failures_total",
				Help: "Total number of connection attempts rejected during authentication",
			}),
			UpgradeErrors: factory.NewCounter(prometheus.CounterOpts{
				Name: "relay_upgrade_errors_total",
				Help: "Total number of failed WebSocket upgrade attempts",
			}),
		},
		Pushes: pushCounters{
			PushRequests: factory.NewCounter(prometheus.CounterOpts{
				Name: "relay_push_requests_total",
				Help: "Total number of push requests accepted from the backend",
			}),
			EventsDelivered: factory.NewCounter(prometheus.CounterOpts{
				Name: "relay_events_delivered_total",
				Help: "Total number of events accepted by a connection send queue",
			}),
			EventsDropped: factory.NewCounter(prometheus.CounterOpts{
				Name: "relay_events_dropped_total",
				Help: "Total number of events dropped because a connection was closing or backed up",
			}),
			OfflinePushes: factory.NewCounter(prometheus.CounterOpts{
				Name: "relay_offline_pushes_total",
				Help: "Total number of push requests for users with no open connection",
			}),
		},
		System: systemGauges{
			CPUPercent: factory.NewGauge(prometheus.GaugeOpts{
				Name: "relay_cpu_percent",
				Help: "Smoothed host CPU usage percentage",
			}),
			HeapAllocMB: factory.NewGauge(prometheus.GaugeOpts{
				Name: "relay_heap_alloc_mb",
				Help: "Process heap allocation in megabytes",
			}),
			GoroutineNum: factory.NewGauge(prometheus.GaugeOpts{
				Name: "relay_goroutines",
				Help: "Number of live goroutines",
			}),
		},
	}
}

// Handler returns an HTTP handler exposing the relay's Prometheus metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.prom, promhttp.HandlerOpts{})
}
