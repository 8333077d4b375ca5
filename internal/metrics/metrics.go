package metrics

import (
	"errors"
	"net/http"

	"github.com/harun/aphelion/pkg/agent"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the agent
type Metrics struct {
	registry *prometheus.Registry

	// Cycle metrics
	CyclesTotal      *prometheus.CounterVec
	CycleDuration    prometheus.Histogram
	CycleErrorsTotal *prometheus.CounterVec
	UnexpectedErrors prometheus.Counter
	LastCycleSuccess prometheus.Gauge
	ToolsFoundLast   prometheus.Gauge

	// Tool metrics
	ToolExecutionsTotal prometheus.Counter

	// Checkpoint metrics
	CheckpointsTotal *prometheus.CounterVec

	// Session metrics
	SessionsCreated prometheus.Counter
}

// NewMetrics creates and registers all metrics
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		// Cycle metrics
		CyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aphelion_cycles_total",
				Help: "Total number of agent cycles",
			},
			[]string{"status"},
		),
		CycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "aphelion_cycle_duration_seconds",
				Help:    "Duration of agent cycles in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		CycleErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aphelion_cycle_errors_total",
				Help: "Total number of failed cycles by step",
			},
			[]string{"step"},
		),
		UnexpectedErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "aphelion_unexpected_errors_total",
				Help: "Total number of unexpected loop errors",
			},
		),
		LastCycleSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "aphelion_last_cycle_success",
				Help: "1 if the most recent cycle succeeded, 0 otherwise",
			},
		),
		ToolsFoundLast: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "aphelion_tools_found",
				Help: "Number of tools returned by the most recent search",
			},
		),

		// Tool metrics
		ToolExecutionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "aphelion_tool_executions_total",
				Help: "Total number of successful tool executions",
			},
		),

		// Checkpoint metrics
		CheckpointsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aphelion_checkpoints_total",
				Help: "Total number of memory checkpoints attempted",
			},
			[]string{"result"},
		),

		// Session metrics
		SessionsCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "aphelion_sessions_created_total",
				Help: "Total number of session ids created",
			},
		),
	}

	// Register all metrics
	m.registerMetrics()

	return m
}

// registerMetrics registers all metrics with the registry
func (m *Metrics) registerMetrics() {
	m.registry.MustRegister(m.CyclesTotal)
	m.registry.MustRegister(m.CycleDuration)
	m.registry.MustRegister(m.CycleErrorsTotal)
	m.registry.MustRegister(m.UnexpectedErrors)
	m.registry.MustRegister(m.LastCycleSuccess)
	m.registry.MustRegister(m.ToolsFoundLast)
	m.registry.MustRegister(m.ToolExecutionsTotal)
	m.registry.MustRegister(m.CheckpointsTotal)
	m.registry.MustRegister(m.SessionsCreated)
}

// RecordCycle implements agent.Recorder
func (m *Metrics) RecordCycle(result agent.CycleResult) {
	m.CycleDuration.Observe(result.Duration.Seconds())
	m.ToolsFoundLast.Set(float64(result.ToolsFound))

	if result.ToolExecuted {
		m.ToolExecutionsTotal.Inc()
	}

	if result.CheckpointDue {
		if result.Checkpointed {
			m.CheckpointsTotal.WithLabelValues("saved").Inc()
		} else {
			m.CheckpointsTotal.WithLabelValues("failed").Inc()
		}
	}

	if result.Succeeded() {
		m.CyclesTotal.WithLabelValues("success").Inc()
		m.LastCycleSuccess.Set(1)
		return
	}

	m.CyclesTotal.WithLabelValues("error").Inc()
	m.LastCycleSuccess.Set(0)

	step := "unknown"
	var cycleErr *agent.CycleError
	if errors.As(result.Err, &cycleErr) {
		step = string(cycleErr.Step)
	}
	m.CycleErrorsTotal.WithLabelValues(step).Inc()
}

// RecordUnexpected implements agent.Recorder
func (m *Metrics) RecordUnexpected() {
	m.UnexpectedErrors.Inc()
	m.LastCycleSuccess.Set(0)
}

// RecordSessionCreated counts a freshly generated session id
func (m *Metrics) RecordSessionCreated() {
	m.SessionsCreated.Inc()
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
