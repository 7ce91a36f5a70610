package telemetry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	contractx "github.com/tanpawarit/vizta/agent/contract"
)

// PrometheusSink turns events into pass, agent and tool counters plus a
// latency histogram.
type PrometheusSink struct {
	passes  *prometheus.CounterVec
	agents  *prometheus.CounterVec
	tools   *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	factory := promauto.With(reg)
	return &PrometheusSink{
		passes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vizta",
			Subsystem: "orchestrator",
			Name:      "passes_total",
			Help:      "Orchestration passes by intent and outcome.",
		}, []string{"intent", "success"}),
		agents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vizta",
			Subsystem: "orchestrator",
			Name:      "agent_selections_total",
			Help:      "Specialist agents selected per pass.",
		}, []string{"agent"}),
		tools: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vizta",
			Subsystem: "orchestrator",
			Name:      "tool_uses_total",
			Help:      "Tools used per pass.",
		}, []string{"tool"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vizta",
			Subsystem: "orchestrator",
			Name:      "pass_duration_seconds",
			Help:      "End-to-end orchestration latency.",
			Buckets:   []float64{0.05, 0.25, 1, 2.5, 5, 10, 20, 40, 80},
		}, []string{"intent"}),
	}
}

func (s *PrometheusSink) Emit(_ context.Context, ev contractx.TelemetryEvent) error {
	success := "false"
	if ev.Success {
		success = "true"
	}
	intent := string(ev.Intent)
	if intent == "" {
		intent = "unknown"
	}
	s.passes.WithLabelValues(intent, success).Inc()
	s.latency.WithLabelValues(intent).Observe(ev.Latency.Seconds())
	for _, a := range ev.Agents {
		s.agents.WithLabelValues(string(a)).Inc()
	}
	for _, t := range ev.Tools {
		s.tools.WithLabelValues(string(t)).Inc()
	}
	return nil
}
