// Package metrics exposes live simulation metrics to Prometheus and the
// liveness/readiness endpoints.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"trafficgen/internal/core"
)

const namespace = "trafficgen"

// Recorder is an EventSink that turns session events into Prometheus
// metrics on a private registry.
type Recorder struct {
	registry    *prometheus.Registry
	events      *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	transitions *prometheus.CounterVec
	sessions    *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Events emitted by simulated users.",
		}, []string{"kind", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_duration_seconds",
			Help:      "Latency of API calls made by simulated users.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind", "action"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "top_level_transitions_total",
			Help:      "Committed top-level state transitions.",
		}, []string{"from", "to"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_completed_total",
			Help:      "Finished sessions by stop reason.",
		}, []string{"reason", "final_state"}),
	}
	r.registry.MustRegister(r.events, r.latency, r.transitions, r.sessions)
	return r
}

// Registry returns the registry the metrics live on.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Gauge registers a gauge sampled from fn at scrape time.
func (r *Recorder) Gauge(name, help string, fn func() float64) {
	r.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn))
}

func (r *Recorder) Emit(e core.Event) {
	status, _ := e.Details["status"].(string)
	r.events.WithLabelValues(e.Kind, status).Inc()

	switch e.Kind {
	case core.KindTopTransition:
		from, _ := e.Details["from"].(string)
		to, _ := e.Details["to"].(string)
		r.transitions.WithLabelValues(from, to).Inc()
	case core.KindComplete:
		reason, _ := e.Details["reason"].(string)
		final, _ := e.Details["final_state"].(string)
		r.sessions.WithLabelValues(reason, final).Inc()
	}

	if ms, ok := e.Details["elapsed_ms"].(float64); ok {
		action, _ := e.Details["action"].(string)
		if action == "" {
			action = e.Kind
		}
		r.latency.WithLabelValues(e.Kind, action).Observe(ms / 1000)
	}
}
