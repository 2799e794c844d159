package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// initEngineMetrics initializes actor engine metrics.
func (m *Manager) initEngineMetrics(cfg Config) {
	m.engineMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_messages_total",
			Help: "Total number of messages handled by actors",
		},
		[]string{"kind"},
	)

	m.engineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "engine_handler_duration_seconds",
			Help:    "Message handler duration in seconds",
			Buckets: cfg.HandlerDurationBuckets,
		},
		[]string{"kind"},
	)

	m.engineErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_handler_errors_total",
			Help: "Total number of handler errors and panics",
		},
		[]string{"kind"},
	)

	m.engineActors = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "engine_actors",
			Help: "Current number of live actors",
		},
	)

	m.engineQueued = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "engine_queued_messages",
			Help: "Current number of queued messages across all mailboxes",
		},
	)

	m.enginePoisoned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "engine_poisoned_total",
			Help: "Total number of poisoned actors",
		},
	)

	m.registry.MustRegister(m.engineMessages)
	m.registry.MustRegister(m.engineDuration)
	m.registry.MustRegister(m.engineErrors)
	m.registry.MustRegister(m.engineActors)
	m.registry.MustRegister(m.engineQueued)
	m.registry.MustRegister(m.enginePoisoned)
}

// RecordMessage records a handled message and its duration.
func (m *Manager) RecordMessage(kind string, duration time.Duration) {
	if !m.enabled {
		return
	}
	m.engineMessages.WithLabelValues(kind).Inc()
	m.engineDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordHandlerError records a handler error or panic.
func (m *Manager) RecordHandlerError(kind string) {
	if !m.enabled {
		return
	}
	m.engineErrors.WithLabelValues(kind).Inc()
}

// SetLiveActors sets the live actor gauge.
func (m *Manager) SetLiveActors(n int) {
	if !m.enabled {
		return
	}
	m.engineActors.Set(float64(n))
}

// SetQueuedMessages sets the queued message gauge.
func (m *Manager) SetQueuedMessages(n int) {
	if !m.enabled {
		return
	}
	m.engineQueued.Set(float64(n))
}

// IncPoisoned increments the poisoned actor counter.
func (m *Manager) IncPoisoned() {
	if !m.enabled {
		return
	}
	m.enginePoisoned.Inc()
}
