// Package observability exposes prometheus metrics for the world loop and
// its external calls. All methods are nil-safe so metrics stay optional.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the simulation collectors.
type Metrics struct {
	tickDuration  prometheus.Histogram
	entitiesAlive prometheus.Gauge
	llmCalls      *prometheus.CounterVec
	sandboxRuns   *prometheus.CounterVec
	events        *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "genesis",
			Name:      "tick_duration_seconds",
			Help:      "Wall-clock duration of one world tick.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		entitiesAlive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "genesis",
			Name:      "entities_alive",
			Help:      "Number of living entities.",
		}),
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "genesis",
			Name:      "llm_calls_total",
			Help:      "LLM invocations by purpose and status.",
		}, []string{"purpose", "status"}),
		sandboxRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "genesis",
			Name:      "sandbox_runs_total",
			Help:      "Sandbox executions by result kind.",
		}, []string{"kind"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "genesis",
			Name:      "events_total",
			Help:      "World events appended, by type.",
		}, []string{"type"}),
	}
	if reg != nil {
		reg.MustRegister(m.tickDuration, m.entitiesAlive, m.llmCalls, m.sandboxRuns, m.events)
	}
	return m
}

// ObserveTick records one world-tick duration.
func (m *Metrics) ObserveTick(d time.Duration) {
	if m == nil {
		return
	}
	m.tickDuration.Observe(d.Seconds())
}

// SetEntitiesAlive updates the population gauge.
func (m *Metrics) SetEntitiesAlive(n int) {
	if m == nil {
		return
	}
	m.entitiesAlive.Set(float64(n))
}

// CountLLMCall records one model invocation.
func (m *Metrics) CountLLMCall(purpose string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.llmCalls.WithLabelValues(purpose, status).Inc()
}

// CountSandboxRun records one sandbox execution by result kind.
func (m *Metrics) CountSandboxRun(kind string) {
	if m == nil {
		return
	}
	m.sandboxRuns.WithLabelValues(kind).Inc()
}

// CountEvent records one appended world event.
func (m *Metrics) CountEvent(eventType string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(eventType).Inc()
}
