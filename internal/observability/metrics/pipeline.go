package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineMetrics tracks query outcomes, per-stage latency and
// degradations. It implements ports.PipelineObserver.
type PipelineMetrics struct {
	registry *prometheus.Registry

	queryTotal    *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	degradedTotal *prometheus.CounterVec
	poolInFlight  prometheus.Gauge
}

func NewPipelineMetrics(service string) *PipelineMetrics {
	registry := prometheus.NewRegistry()

	queryTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rre",
			Subsystem: "pipeline",
			Name:      "query_total",
			Help:      "Total answered queries by outcome.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
		[]string{"status"},
	)
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rre",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage latency in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
		[]string{"stage"},
	)
	degradedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rre",
			Subsystem: "pipeline",
			Name:      "degraded_total",
			Help:      "Degradation flags raised on completed queries.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
		[]string{"flag"},
	)
	poolInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "rre",
			Subsystem: "pipeline",
			Name:      "scoring_pool_in_flight",
			Help:      "Model-scoring calls currently running on the bounded pool.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(queryTotal, stageDuration, degradedTotal, poolInFlight)

	return &PipelineMetrics{
		registry:      registry,
		queryTotal:    queryTotal,
		stageDuration: stageDuration,
		degradedTotal: degradedTotal,
		poolInFlight:  poolInFlight,
	}
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) ObserveStage(stage string, seconds float64) {
	m.stageDuration.WithLabelValues(stage).Observe(seconds)
}

func (m *PipelineMetrics) QueryCompleted(status string, flags []string) {
	m.queryTotal.WithLabelValues(status).Inc()
	for _, flag := range flags {
		m.degradedTotal.WithLabelValues(flag).Inc()
	}
}

func (m *PipelineMetrics) SetPoolInFlight(n int64) {
	m.poolInFlight.Set(float64(n))
}
