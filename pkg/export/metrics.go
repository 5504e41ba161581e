package export

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the preview's Prometheus collectors. Each preview has its
// own registry so several can run in one process.
type Metrics struct {
	registry *prometheus.Registry

	Frames        prometheus.Counter
	FrameDuration prometheus.Histogram
	Energy        prometheus.Gauge
	Pointer       *prometheus.CounterVec
	Dropped       prometheus.Counter
	Reloads       prometheus.Counter
}

// NewMetrics creates the collectors. clients reports the live SSE client
// count at scrape time.
func NewMetrics(namespace string, clients func() int) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Frames composed by the preview loop",
		}),
		FrameDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_duration_seconds",
			Help:      "Time to step physics and compose one frame",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}),
		Energy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "kinetic_energy",
			Help:      "Sum of squared node speeds after the last step",
		}),
		Pointer: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pointer_events_total",
			Help:      "Pointer events applied, by type and transport",
		}, []string{"type", "transport"}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pointer_moves_dropped_total",
			Help:      "Pointer moves discarded by the per-connection rate limit",
		}),
		Reloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_reloads_total",
			Help:      "Sessions replaced after a topology change",
		}),
	}
	m.registry.MustRegister(m.Frames, m.FrameDuration, m.Energy, m.Pointer, m.Dropped, m.Reloads)
	if clients != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sse_clients",
			Help:      "Connected live-reload clients",
		}, func() float64 { return float64(clients()) }))
	}
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
