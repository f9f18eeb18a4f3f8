package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "textsync"

// Metrics holds the collectors shared by the server components.
type Metrics struct {
	registry *prometheus.Registry

	ActiveSessions      prometheus.Gauge
	RefusedConnections  prometheus.Counter
	EventsReceived      *prometheus.CounterVec // event
	MalformedFrames     *prometheus.CounterVec // reason
	FramesSent          *prometheus.CounterVec // event
	SlowConsumers       prometheus.Counter
	Truncations         prometheus.Counter
	PersistDuration     *prometheus.HistogramVec // backend
	PersistErrors       *prometheus.CounterVec   // backend
	Notebooks           prometheus.Gauge
	NotebookRejections  *prometheus.CounterVec // reason
	EventHandleDuration *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry.
// Runtime and process collectors are registered alongside.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "active_sessions",
			Help:      "Number of admitted real-time sessions",
		}),
		RefusedConnections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "refused_connections_total",
			Help:      "Connections closed because the connection cap was reached",
		}),
		EventsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "events_received_total",
			Help:      "Inbound events processed, by event name",
		}, []string{"event"}),
		MalformedFrames: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "malformed_frames_total",
			Help:      "Inbound frames dropped before processing",
		}, []string{"reason"}),
		FramesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "frames_sent_total",
			Help:      "Outbound frames queued to sessions, by event name",
		}, []string{"event"}),
		SlowConsumers: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "slow_consumers_total",
			Help:      "Sessions closed because their outbound queue overflowed",
		}),
		Truncations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "truncations_total",
			Help:      "Writes clipped to the maximum text size",
		}),
		PersistDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "persist_duration_seconds",
			Help:      "Synchronous whole-record persistence latency",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"backend"}),
		PersistErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "persist_errors_total",
			Help:      "Failed persistence operations",
		}, []string{"backend"}),
		Notebooks: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "notebooks",
			Help:      "Number of known notebooks",
		}),
		NotebookRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "notebook_rejections_total",
			Help:      "Rejected create_notebook requests",
		}, []string{"reason"}),
		EventHandleDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "event_handle_duration_seconds",
			Help:      "Time spent handling one inbound event, including persistence and fan-out",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
