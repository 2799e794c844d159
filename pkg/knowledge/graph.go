// Package knowledge provides the external-facing facade of the graph: it
// translates concept ids and terms into actor handles and issues messages
// through the engine. All asynchronous effects are best-effort; only
// synchronous bookkeeping reports errors.
package knowledge

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mindmesh/mindmesh/pkg/actor"
	"github.com/mindmesh/mindmesh/pkg/cmap"
	"github.com/mindmesh/mindmesh/pkg/concept"
	"github.com/mindmesh/mindmesh/pkg/eventbus"
)

const tracerName = "github.com/mindmesh/mindmesh/pkg/knowledge"

// Config holds the configuration for a Graph.
type Config struct {
	// Workers is the engine worker pool size.
	Workers int

	// InitialCapacity sizes the registries (shard count is derived).
	InitialCapacity int

	// MailboxCapacity is the per-actor mailbox size.
	MailboxCapacity int

	// MaintenanceInterval gates RunMaintenance; calls inside the window
	// are no-ops.
	MaintenanceInterval time.Duration

	// LearnEvery runs learning and merge/split checks on every Nth
	// maintenance cycle.
	LearnEvery int

	// Concept holds the concept behavior parameters.
	Concept concept.Params
}

// DefaultConfig returns a Config with standard settings.
func DefaultConfig() Config {
	return Config{
		Workers:             4,
		InitialCapacity:     1024,
		MailboxCapacity:     actor.DefaultMailboxCapacity,
		MaintenanceInterval: time.Minute,
		LearnEvery:          5,
		Concept:             concept.DefaultParams(),
	}
}

// Validate validates the graph configuration.
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("graph workers must be positive, got %d", c.Workers)
	}
	if c.LearnEvery <= 0 {
		return fmt.Errorf("learn cadence must be positive, got %d", c.LearnEvery)
	}
	return nil
}

// graphLogger is the minimal logger interface used by the Graph.
type graphLogger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type nopGraphLogger struct{}

func (nopGraphLogger) Debug(msg string, args ...any) {}
func (nopGraphLogger) Info(msg string, args ...any)  {}
func (nopGraphLogger) Warn(msg string, args ...any)  {}

// MetricsRecorder defines the interface for recording graph metrics.
type MetricsRecorder interface {
	SetConcepts(n int)
	IncActivations()
	IncPropagations()
	IncRelations()
	IncLifecycleFlag(condition string)
	IncRetired()
}

type nopGraphMetrics struct{}

func (nopGraphMetrics) SetConcepts(int)         {}
func (nopGraphMetrics) IncActivations()         {}
func (nopGraphMetrics) IncPropagations()        {}
func (nopGraphMetrics) IncRelations()           {}
func (nopGraphMetrics) IncLifecycleFlag(string) {}
func (nopGraphMetrics) IncRetired()             {}

// Graph is the knowledge facade. It owns the engine and the two registries:
// concept id -> actor handle and term hash -> concept id.
type Graph struct {
	cfg    Config
	engine *actor.Engine

	conceptActors *cmap.Map[uint64] // concept id -> actor handle
	termToConcept *cmap.Map[uint64] // term hash  -> concept id

	nextConceptID   atomic.Uint64
	lastMaintenance atomic.Int64
	cycles          atomic.Uint64

	// Hot-reloadable maintenance settings, adjusted via Tune.
	maintenanceEvery atomic.Int64 // seconds
	learnEvery       atomic.Int64

	logger     graphLogger
	metrics    MetricsRecorder
	bus        *eventbus.Bus
	tracer     trace.Tracer
	now        func() time.Time
	engineOpts []actor.Option
}

// Option is a functional option for configuring the Graph.
type Option func(*Graph)

// WithLogger sets the graph logger.
func WithLogger(l graphLogger) Option {
	return func(g *Graph) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(g *Graph) {
		if m != nil {
			g.metrics = m
		}
	}
}

// WithEventBus sets the lifecycle event bus.
func WithEventBus(b *eventbus.Bus) Option {
	return func(g *Graph) {
		if b != nil {
			g.bus = b
		}
	}
}

// WithClock overrides the wall clock, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(g *Graph) {
		if now != nil {
			g.now = now
		}
	}
}

// WithEngineOptions forwards options to the underlying engine.
func WithEngineOptions(opts ...actor.Option) Option {
	return func(g *Graph) {
		g.engineOpts = append(g.engineOpts, opts...)
	}
}

// New creates a Graph and starts its engine.
func New(cfg Config, opts ...Option) (*Graph, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if cfg.MaintenanceInterval <= 0 {
		cfg.MaintenanceInterval = time.Minute
	}
	if cfg.LearnEvery == 0 {
		cfg.LearnEvery = DefaultConfig().LearnEvery
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	shards := shardsFor(cfg.InitialCapacity)
	g := &Graph{
		cfg:           cfg,
		conceptActors: cmap.New[uint64](shards),
		termToConcept: cmap.New[uint64](shards),
		logger:        nopGraphLogger{},
		metrics:       nopGraphMetrics{},
		tracer:        otel.Tracer(tracerName),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}

	g.maintenanceEvery.Store(int64(cfg.MaintenanceInterval.Seconds()))
	g.learnEvery.Store(int64(cfg.LearnEvery))

	engine, err := actor.NewEngine(actor.Config{
		Workers:         cfg.Workers,
		MailboxCapacity: cfg.MailboxCapacity,
		TableShards:     shards,
	}, g.engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}
	g.engine = engine
	return g, nil
}

// shardsFor derives a shard count from the expected entry count.
func shardsFor(capacity int) int {
	switch {
	case capacity <= 0:
		return cmap.DefaultShards
	case capacity < 512:
		return 16
	case capacity < 8192:
		return 32
	default:
		return 64
	}
}

// Tune applies hot-reloadable maintenance settings. Non-positive values
// leave the current setting untouched.
func (g *Graph) Tune(interval time.Duration, learnEvery int) {
	if interval > 0 {
		g.maintenanceEvery.Store(int64(interval.Seconds()))
	}
	if learnEvery > 0 {
		g.learnEvery.Store(int64(learnEvery))
	}
	g.logger.Debug("maintenance tuned",
		"interval", time.Duration(g.maintenanceEvery.Load())*time.Second,
		"learn_every", g.learnEvery.Load(),
	)
}

// Engine exposes the underlying engine for stats reads and tests.
func (g *Graph) Engine() *actor.Engine { return g.engine }

// ConceptCount returns the number of live concepts.
func (g *Graph) ConceptCount() int { return g.conceptActors.Count() }

// hashTerm is the stable term hash. FNV-1a collisions silently alias
// concepts; accepted for the expected corpus sizes.
func hashTerm(term string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(term))
	return h.Sum64()
}

// CreateConcept returns the id of the concept for term, spawning its actor
// if the term is new. Concurrent creates of the same term return the same
// id; the loser's actor is poisoned before it ever receives a message.
func (g *Graph) CreateConcept(term string) (uint64, error) {
	ctx, span := g.tracer.Start(context.Background(), "knowledge.CreateConcept",
		trace.WithAttributes(attribute.String("concept.term", term)))
	defer span.End()

	key := hashTerm(term)
	if id, ok := g.termToConcept.Get(key); ok {
		return id, nil
	}

	id := g.nextConceptID.Add(1)
	c := concept.New(id, term, g,
		concept.WithParams(g.cfg.Concept),
		concept.WithClock(g.now),
	)
	handle, err := g.engine.Spawn(c)
	if err != nil {
		return 0, fmt.Errorf("spawn concept actor: %w", err)
	}

	// conceptActors goes first: any id learned through termToConcept must
	// already resolve to a live actor.
	g.conceptActors.Put(id, handle)
	winner, stored := g.termToConcept.PutIfAbsent(key, id)
	if !stored {
		// Lost an in-flight duplicate create.
		g.conceptActors.Remove(id)
		_ = g.engine.Poison(handle)
		return winner, nil
	}

	g.metrics.SetConcepts(g.conceptActors.Count())
	g.publish(ctx, eventbus.EventConceptCreated, id, term, nil)
	g.logger.Debug("concept created", "id", id, "term", term)
	return id, nil
}

// FindConcept returns the id for term without side effects.
func (g *Graph) FindConcept(term string) (uint64, bool) {
	return g.termToConcept.Get(hashTerm(term))
}

// Query returns the id for term and, when found, activates the concept.
func (g *Graph) Query(term string) (uint64, bool) {
	_, span := g.tracer.Start(context.Background(), "knowledge.Query",
		trace.WithAttributes(attribute.String("concept.term", term)))
	defer span.End()

	id, ok := g.FindConcept(term)
	if !ok {
		return 0, false
	}
	g.ActivateConcept(id)
	return id, true
}

// ActivateConcept sends an activate command to the concept. Unknown ids are
// silent no-ops.
func (g *Graph) ActivateConcept(id uint64) {
	if g.send(id, actor.CmdActivate) {
		g.metrics.IncActivations()
	}
}

// SendActivation delivers reduced activation to the concept. Unknown ids
// are silent no-ops. It also serves as the concepts' propagation path.
func (g *Graph) SendActivation(id uint64, strength float64) {
	if g.send(id, concept.Activation{Strength: strength}) {
		g.metrics.IncPropagations()
	}
}

// AddRelation sends an upsert for the (target, kind) edge to the source
// concept. Unknown source ids are silent no-ops.
func (g *Graph) AddRelation(source, target uint64, kind concept.RelationKind, weight float64) {
	if g.send(source, concept.AddRelation{Target: target, Relation: kind, Weight: weight}) {
		g.metrics.IncRelations()
	}
}

// Stats returns an eventually-consistent snapshot of the concept's state.
func (g *Graph) Stats(id uint64) (concept.Stats, bool) {
	c, ok := g.lookup(id)
	if !ok {
		return concept.Stats{}, false
	}
	return c.Stats(), true
}

// WaitAll blocks until every mailbox is drained and no handler is running.
func (g *Graph) WaitAll() {
	g.engine.WaitAll()
}

// Shutdown stops the engine; queued messages are dropped.
func (g *Graph) Shutdown() {
	g.engine.Shutdown()
	g.logger.Info("knowledge graph shut down", "concepts", g.conceptActors.Count())
}

// send looks up the concept's handle and enqueues the payload. Send errors
// are best-effort by design: gone actors and unknown ids report false.
func (g *Graph) send(id uint64, payload actor.Payload) bool {
	handle, ok := g.conceptActors.Get(id)
	if !ok {
		return false
	}
	if err := g.engine.Send(handle, actor.Message{Payload: payload}); err != nil {
		if !actor.IsActorGone(err) && !actor.IsUnknownHandle(err) {
			g.logger.Warn("send failed", "concept", id, "kind", payload.Kind(), "error", err)
		}
		return false
	}
	return true
}

// lookup resolves a concept id to its receiver.
func (g *Graph) lookup(id uint64) (*concept.Concept, bool) {
	handle, ok := g.conceptActors.Get(id)
	if !ok {
		return nil, false
	}
	r, ok := g.engine.Receiver(handle)
	if !ok {
		return nil, false
	}
	c, ok := r.(*concept.Concept)
	return c, ok
}

// Retire implements concept.Mailer: poison the actor and drop both
// registrations. Called by a concept's own death check.
func (g *Graph) Retire(id uint64) {
	handle, ok := g.conceptActors.Get(id)
	if !ok {
		return
	}

	var term string
	if c, ok := g.lookup(id); ok {
		term = c.Term()
	}

	g.conceptActors.Remove(id)
	if term != "" {
		key := hashTerm(term)
		// Only drop the term mapping if it still points at this concept;
		// a hash collision may have aliased it to a survivor.
		if mapped, ok := g.termToConcept.Get(key); ok && mapped == id {
			g.termToConcept.Remove(key)
		}
	}
	_ = g.engine.Poison(handle)

	g.metrics.IncRetired()
	g.metrics.SetConcepts(g.conceptActors.Count())
	g.publish(context.Background(), eventbus.EventConceptDied, id, term, nil)
	g.logger.Info("concept retired", "id", id, "term", term)
}

// Flag implements concept.Mailer: surface an advisory lifecycle condition.
func (g *Graph) Flag(condition string, snapshot concept.Stats) {
	g.metrics.IncLifecycleFlag(condition)

	event := eventbus.EventConceptMergeFlagged
	if condition == "split" {
		event = eventbus.EventConceptSplitFlagged
	}
	g.publish(context.Background(), event, snapshot.ID, snapshot.Term, snapshot)
	g.logger.Debug("lifecycle flag",
		"condition", condition,
		"id", snapshot.ID,
		"term", snapshot.Term,
		"stability", snapshot.Stability,
		"complexity", snapshot.Complexity,
	)
}

// publish emits a lifecycle event when a bus is attached.
func (g *Graph) publish(ctx context.Context, eventType string, id uint64, term string, payload any) {
	if g.bus == nil {
		return
	}
	env, err := eventbus.BuildEnvelope(eventType, id, term, payload)
	if err != nil {
		g.logger.Warn("build lifecycle event", "event", eventType, "error", err)
		return
	}
	data, err := env.Encode()
	if err != nil {
		g.logger.Warn("encode lifecycle event", "event", eventType, "error", err)
		return
	}
	if err := g.bus.Publish(ctx, eventbus.Subject(eventType), data); err != nil {
		g.logger.Warn("publish lifecycle event", "event", eventType, "error", err)
	}
}
