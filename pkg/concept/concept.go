// Package concept implements the domain actor of the knowledge graph: a
// term with numeric state (activation, energy, stability, complexity) and
// weighted typed relations, evolved by spreading activation, learning,
// decay, and lifecycle checks.
package concept

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mindmesh/mindmesh/pkg/actor"
)

// Hard bounds on concept state. Activation may briefly exceed MaxActivation
// by one ActivationBoost: the activate handler does not clamp the upper side,
// only propagation receipt does.
const (
	MaxActivation = 2.0
	MaxEnergy     = 2.0
	MinWeight     = 0.1
	MaxWeight     = 1.0
)

// Params are the tunable rates and thresholds of concept behavior.
type Params struct {
	// ActivationBoost is added to activation on each direct activation.
	ActivationBoost float64

	// EnergyBoost is added to energy on each direct activation.
	EnergyBoost float64

	// PropagationThreshold is the activation above which a direct
	// activation spreads to related concepts.
	PropagationThreshold float64

	// MinActivation is the floor below which propagation is skipped and
	// the minimum strength worth sending to a neighbor.
	MinActivation float64

	// SpreadFactor scales the activation passed along a relation.
	SpreadFactor float64

	// DecayRate is the multiplicative activation decay.
	DecayRate float64

	// EnergyDecayRate is the multiplicative energy decay.
	EnergyDecayRate float64

	// ReinforceFactor and WeakenFactor adjust relation weights during
	// learning, for edges used within RecentWindow or idle beyond
	// StaleWindow respectively.
	ReinforceFactor float64
	WeakenFactor    float64
	RecentWindow    time.Duration
	StaleWindow     time.Duration

	// Lifecycle thresholds.
	MergeStability  float64
	MergeComplexity float64
	SplitComplexity float64
	SplitRelations  int
	DeathAge        time.Duration
	DeathIdle       time.Duration
	DeathEnergy     float64
	DeathStability  float64
}

// DefaultParams returns the standard concept parameters.
func DefaultParams() Params {
	return Params{
		ActivationBoost:      0.1,
		EnergyBoost:          0.5,
		PropagationThreshold: 0.3,
		MinActivation:        0.1,
		SpreadFactor:         0.5,
		DecayRate:            0.95,
		EnergyDecayRate:      0.99,
		ReinforceFactor:      1.05,
		WeakenFactor:         0.95,
		RecentWindow:         time.Hour,
		StaleWindow:          24 * time.Hour,
		MergeStability:       0.3,
		MergeComplexity:      0.2,
		SplitComplexity:      0.8,
		SplitRelations:       20,
		DeathAge:             24 * time.Hour,
		DeathIdle:            time.Hour,
		DeathEnergy:          0.1,
		DeathStability:       0.1,
	}
}

// Mailer is the slice of the knowledge facade a concept uses to reach the
// rest of the graph. It is a non-owning back-reference: the facade outlives
// every concept actor.
type Mailer interface {
	// SendActivation delivers reduced activation to another concept.
	SendActivation(conceptID uint64, strength float64)

	// Retire poisons the concept's actor and removes its registrations.
	Retire(conceptID uint64)

	// Flag reports an advisory lifecycle condition ("merge", "split").
	Flag(condition string, snapshot Stats)
}

// Stats is an eventually-consistent snapshot of a concept's state.
type Stats struct {
	ID         uint64  `json:"id"`
	Term       string  `json:"term"`
	Activation float64 `json:"activation"`
	Energy     float64 `json:"energy"`
	Stability  float64 `json:"stability"`
	Complexity float64 `json:"complexity"`
	Relations  int     `json:"relations"`
}

// atomicFloat64 is a float64 with sequentially consistent loads and stores.
type atomicFloat64 struct {
	bits atomic.Uint64
}

func (f *atomicFloat64) Load() float64   { return math.Float64frombits(f.bits.Load()) }
func (f *atomicFloat64) Store(v float64) { f.bits.Store(math.Float64bits(v)) }

// Concept is one node of the knowledge graph, run as an actor. Numeric
// fields are atomic so stats snapshots never block message handling; the
// relation list has its own mutex.
type Concept struct {
	id     uint64
	term   string
	params Params

	activation atomicFloat64
	energy     atomicFloat64
	stability  atomicFloat64
	complexity atomicFloat64

	birth          time.Time
	lastActivation atomic.Int64 // unix seconds
	accessCount    atomic.Uint64

	relMu     sync.Mutex
	relations []Relation

	mailer Mailer
	now    func() time.Time
}

// ConceptOption is a functional option for configuring a Concept.
type ConceptOption func(*Concept)

// WithParams overrides the default parameters.
func WithParams(p Params) ConceptOption {
	return func(c *Concept) { c.params = p }
}

// WithClock overrides the wall clock, for deterministic tests.
func WithClock(now func() time.Time) ConceptOption {
	return func(c *Concept) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a concept for the given term. The mailer back-reference must
// be valid for the concept's entire lifetime.
func New(id uint64, term string, mailer Mailer, opts ...ConceptOption) *Concept {
	c := &Concept{
		id:     id,
		term:   term,
		params: DefaultParams(),
		mailer: mailer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.birth = c.now()
	c.lastActivation.Store(c.birth.Unix())
	c.energy.Store(1.0)
	return c
}

// ID returns the concept's external identifier.
func (c *Concept) ID() uint64 { return c.id }

// Term returns the concept's term.
func (c *Concept) Term() string { return c.term }

// Stats returns a snapshot of the concept's numeric state. Fields are read
// individually from atomics; the snapshot is eventually consistent with
// concurrent handlers.
func (c *Concept) Stats() Stats {
	c.relMu.Lock()
	relations := len(c.relations)
	c.relMu.Unlock()

	return Stats{
		ID:         c.id,
		Term:       c.term,
		Activation: c.activation.Load(),
		Energy:     c.energy.Load(),
		Stability:  c.stability.Load(),
		Complexity: c.complexity.Load(),
		Relations:  relations,
	}
}

// Relations returns a copy of the relation list.
func (c *Concept) Relations() []Relation {
	c.relMu.Lock()
	defer c.relMu.Unlock()
	out := make([]Relation, len(c.relations))
	copy(out, c.relations)
	return out
}

// Receive dispatches one message. It runs serialized by the actor's busy
// mutex; only stats readers observe the concept concurrently.
func (c *Concept) Receive(msg actor.Message) error {
	switch p := msg.Payload.(type) {
	case actor.Command:
		return c.command(p)
	case Activation:
		c.receiveActivation(p.Strength)
		return nil
	case AddRelation:
		c.upsertRelation(p.Target, p.Relation, p.Weight)
		return nil
	default:
		return fmt.Errorf("concept %d: unhandled payload kind %q", c.id, msg.Payload.Kind())
	}
}

func (c *Concept) command(cmd actor.Command) error {
	switch cmd {
	case actor.CmdActivate:
		c.activate()
	case actor.CmdPropagate:
		c.propagate()
	case actor.CmdLearn:
		c.learn()
	case actor.CmdDecay:
		c.decay()
	case actor.CmdMergeCheck:
		c.mergeCheck()
	case actor.CmdSplitCheck:
		c.splitCheck()
	case actor.CmdDeathCheck:
		c.deathCheck()
	default:
		return fmt.Errorf("concept %d: unknown command %q", c.id, cmd)
	}
	return nil
}
