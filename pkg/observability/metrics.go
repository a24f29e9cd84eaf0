package observability

import (
	"context"

	"github.com/aretw0/relay/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "relay"

// Metrics holds the router's Prometheus collectors.
type Metrics struct {
	Turns            *prometheus.CounterVec
	Handoffs         *prometheus.CounterVec
	Releases         *prometheus.CounterVec
	Resets           *prometheus.CounterVec
	ClassifyDuration *prometheus.HistogramVec
	ProcessDuration  *prometheus.HistogramVec
	OwnedSessions    prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg leaves them unregistered, which is handy in tests.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "turns_total",
				Help:      "Turns handled, by outcome (ok or an error kind).",
			},
			[]string{"outcome"},
		),
		Handoffs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "handoffs_total",
				Help:      "Control handoffs from the classifier to a component.",
			},
			[]string{"component"},
		),
		Releases: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "releases_total",
				Help:      "Control releases by components back to the classifier.",
			},
			[]string{"component"},
		),
		Resets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resets_total",
				Help:      "Sessions reset, by the component that owned them (empty when Unowned).",
			},
			[]string{"component"},
		),
		ClassifyDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "classify_duration_seconds",
				Help:      "Latency of classifier calls.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		ProcessDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "process_duration_seconds",
				Help:      "Latency of component turn processing.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"component", "status"},
		),
		OwnedSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "owned_sessions",
			Help:      "Sessions currently owned by a component, as seen by this replica.",
		}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{
			m.Turns, m.Handoffs, m.Releases, m.Resets, m.ClassifyDuration, m.ProcessDuration, m.OwnedSessions,
		} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Hooks returns lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnClassify: func(_ context.Context, e *domain.ClassifyEvent) {
			m.ClassifyDuration.WithLabelValues(status(e.Err)).Observe(e.Duration.Seconds())
		},
		OnDelegate: func(_ context.Context, e *domain.DelegateEvent) {
			m.ProcessDuration.WithLabelValues(e.ComponentID, status(e.Err)).Observe(e.Duration.Seconds())
		},
		OnHandoff: func(_ context.Context, e *domain.TransitionEvent) {
			m.Handoffs.WithLabelValues(e.ComponentID).Inc()
			m.OwnedSessions.Inc()
		},
		OnRelease: func(_ context.Context, e *domain.TransitionEvent) {
			m.Releases.WithLabelValues(e.ComponentID).Inc()
			m.OwnedSessions.Dec()
		},
		OnReset: func(_ context.Context, e *domain.ResetEvent) {
			m.Resets.WithLabelValues(e.Owner).Inc()
			if e.Owner != "" {
				m.OwnedSessions.Dec()
			}
		},
		OnTurn: func(_ context.Context, _ *domain.TurnEvent) {
			m.Turns.WithLabelValues("ok").Inc()
		},
		OnTurnError: func(_ context.Context, e *domain.TurnErrorEvent) {
			m.Turns.WithLabelValues(e.Kind).Inc()
		},
	}
}
