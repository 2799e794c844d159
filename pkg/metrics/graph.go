package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// initGraphMetrics initializes knowledge graph metrics.
func (m *Manager) initGraphMetrics(cfg Config) {
	m.graphConcepts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "graph_concepts",
			Help: "Current number of live concepts",
		},
	)

	m.graphActivations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "graph_activations_total",
			Help: "Total number of direct concept activations",
		},
	)

	m.graphPropagations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "graph_propagations_total",
			Help: "Total number of activation messages spread between concepts",
		},
	)

	m.graphRelations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "graph_relation_upserts_total",
			Help: "Total number of relation upserts issued",
		},
	)

	m.graphFlags = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graph_lifecycle_flags_total",
			Help: "Total number of advisory lifecycle flags",
		},
		[]string{"condition"},
	)

	m.graphRetired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "graph_concepts_retired_total",
			Help: "Total number of concepts retired by death checks",
		},
	)

	m.registry.MustRegister(m.graphConcepts)
	m.registry.MustRegister(m.graphActivations)
	m.registry.MustRegister(m.graphPropagations)
	m.registry.MustRegister(m.graphRelations)
	m.registry.MustRegister(m.graphFlags)
	m.registry.MustRegister(m.graphRetired)
}

// SetConcepts sets the live concept gauge.
func (m *Manager) SetConcepts(n int) {
	if !m.enabled {
		return
	}
	m.graphConcepts.Set(float64(n))
}

// IncActivations increments the direct activation counter.
func (m *Manager) IncActivations() {
	if !m.enabled {
		return
	}
	m.graphActivations.Inc()
}

// IncPropagations increments the spread activation counter.
func (m *Manager) IncPropagations() {
	if !m.enabled {
		return
	}
	m.graphPropagations.Inc()
}

// IncRelations increments the relation upsert counter.
func (m *Manager) IncRelations() {
	if !m.enabled {
		return
	}
	m.graphRelations.Inc()
}

// IncLifecycleFlag increments the flag counter for a condition.
func (m *Manager) IncLifecycleFlag(condition string) {
	if !m.enabled {
		return
	}
	m.graphFlags.WithLabelValues(condition).Inc()
}

// IncRetired increments the retired concept counter.
func (m *Manager) IncRetired() {
	if !m.enabled {
		return
	}
	m.graphRetired.Inc()
}
