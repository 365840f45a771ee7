package foreman

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "foreman"
	metricsSubsystem = "pool"
)

// PrometheusMetrics is a Metrics implementation backed by prometheus
// collectors. Build one per pool; sharing one across pools double-counts.
type PrometheusMetrics struct {
	submitted prometheus.Counter
	executed  prometheus.Counter
	rejected  prometheus.Counter
	signals   *prometheus.CounterVec
	active    prometheus.Gauge
}

// NewPrometheusMetrics builds the pool collectors and registers them on
// reg. Registration failures panic, same as prometheus.MustRegister.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		submitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "jobs_submitted_total",
			Help:      "Jobs accepted into the queue.",
		}),
		executed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "jobs_executed_total",
			Help:      "Jobs run to completion by a worker.",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "jobs_rejected_total",
			Help:      "Submissions dropped: dead pool, nil job, or failed send.",
		}),
		signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "signals_total",
			Help:      "Signals recorded by the supervisor, by severity.",
		}, []string{"severity"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "active_workers",
			Help:      "Workers currently executing a job.",
		}),
	}
	reg.MustRegister(m.submitted, m.executed, m.rejected, m.signals, m.active)
	return m
}

func (m *PrometheusMetrics) IncSubmitted() { m.submitted.Inc() }
func (m *PrometheusMetrics) IncExecuted()  { m.executed.Inc() }
func (m *PrometheusMetrics) IncRejected()  { m.rejected.Inc() }
func (m *PrometheusMetrics) IncActive()    { m.active.Inc() }
func (m *PrometheusMetrics) DecActive()    { m.active.Dec() }

func (m *PrometheusMetrics) IncSignal(sev Severity) {
	m.signals.WithLabelValues(sev.String()).Inc()
}
