// Package telemetry exposes prometheus metrics for the agent backend.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects counters for turns, tool calls, artifacts and sockets.
// A nil *Metrics is valid and records nothing, so wiring stays optional.
type Metrics struct {
	turnsTotal       *prometheus.CounterVec
	turnDuration     prometheus.Histogram
	toolInvocations  *prometheus.CounterVec
	artifactsCreated *prometheus.CounterVec
	tokensUsed       *prometheus.CounterVec
	wsConnections    prometheus.Gauge
}

// New registers the metric set on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		turnsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "atlas_turns_total",
			Help: "Completed agent turns by outcome.",
		}, []string{"success"}),
		turnDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "atlas_turn_duration_seconds",
			Help:    "Wall-clock duration of agent turns.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		toolInvocations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "atlas_tool_invocations_total",
			Help: "Tool operations invoked by the model.",
		}, []string{"operation"}),
		artifactsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "atlas_artifacts_created_total",
			Help: "Artifacts extracted from agent output by kind.",
		}, []string{"kind"}),
		tokensUsed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "atlas_tokens_total",
			Help: "Model tokens consumed by direction.",
		}, []string{"direction"}),
		wsConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "atlas_websocket_connections",
			Help: "Currently open websocket connections.",
		}),
	}
}

func (m *Metrics) ObserveTurn(success bool, d time.Duration) {
	if m == nil {
		return
	}
	label := "false"
	if success {
		label = "true"
	}
	m.turnsTotal.WithLabelValues(label).Inc()
	m.turnDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveToolInvocation(operation string) {
	if m == nil {
		return
	}
	m.toolInvocations.WithLabelValues(operation).Inc()
}

func (m *Metrics) ObserveArtifact(kind string) {
	if m == nil {
		return
	}
	m.artifactsCreated.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveTokens(prompt, completion int) {
	if m == nil {
		return
	}
	m.tokensUsed.WithLabelValues("prompt").Add(float64(prompt))
	m.tokensUsed.WithLabelValues("completion").Add(float64(completion))
}

func (m *Metrics) WSConnected() {
	if m == nil {
		return
	}
	m.wsConnections.Inc()
}

func (m *Metrics) WSDisconnected() {
	if m == nil {
		return
	}
	m.wsConnections.Dec()
}
