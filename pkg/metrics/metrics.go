// Package metrics records router outcomes with Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder receives one observation per routed request.
type Recorder interface {
	ObserveRoute(agent, outcome string, duration time.Duration)
	SetAgents(n int)
}

// Nop discards observations.
type Nop struct{}

func (Nop) ObserveRoute(string, string, time.Duration) {}
func (Nop) SetAgents(int)                              {}

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	routeTotal    *prometheus.CounterVec
	routeDuration *prometheus.HistogramVec
	agents        prometheus.Gauge
}

// NewPrometheusRecorder registers the router metrics on reg. A nil reg uses
// the default registerer.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		routeTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_route_total",
				Help: "Total number of routed agent requests by agent and outcome",
			},
			[]string{"agent", "outcome"},
		),
		routeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agent_route_duration_seconds",
				Help:    "Duration of routed agent requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"agent"},
		),
		agents: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "agent_registered",
				Help: "Number of agents registered with the router",
			},
		),
	}
}

// ObserveRoute records the outcome ("ok" or an error kind) and latency.
func (p *PrometheusRecorder) ObserveRoute(agent, outcome string, duration time.Duration) {
	p.routeTotal.WithLabelValues(agent, outcome).Inc()
	p.routeDuration.WithLabelValues(agent).Observe(duration.Seconds())
}

func (p *PrometheusRecorder) SetAgents(n int) {
	p.agents.Set(float64(n))
}
