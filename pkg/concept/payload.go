package concept

import (
	"github.com/mindmesh/mindmesh/pkg/actor"
)

// Activation carries reduced activation from a propagating neighbor.
// Receipt never triggers the target's own propagation.
type Activation struct {
	Strength float64
}

// Kind implements actor.Payload.
func (Activation) Kind() string { return "activation" }

// Clone implements actor.Payload.
func (a Activation) Clone() actor.Payload { return a }

// Dispose implements actor.Payload.
func (Activation) Dispose() {}

// AddRelation upserts a typed weighted edge on the receiving concept.
type AddRelation struct {
	Target   uint64
	Relation RelationKind
	Weight   float64
}

// Kind implements actor.Payload.
func (AddRelation) Kind() string { return "add_relation" }

// Clone implements actor.Payload.
func (r AddRelation) Clone() actor.Payload { return r }

// Dispose implements actor.Payload.
func (AddRelation) Dispose() {}
