package concept

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindmesh/mindmesh/pkg/actor"
)

// fakeClock is a settable wall clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeMailer records every call a concept makes back into the graph.
type fakeMailer struct {
	mu          sync.Mutex
	activations map[uint64][]float64
	retired     []uint64
	flags       []string
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{activations: make(map[uint64][]float64)}
}

func (m *fakeMailer) SendActivation(id uint64, strength float64) {
	m.mu.Lock()
	m.activations[id] = append(m.activations[id], strength)
	m.mu.Unlock()
}

func (m *fakeMailer) Retire(id uint64) {
	m.mu.Lock()
	m.retired = append(m.retired, id)
	m.mu.Unlock()
}

func (m *fakeMailer) Flag(condition string, _ Stats) {
	m.mu.Lock()
	m.flags = append(m.flags, condition)
	m.mu.Unlock()
}

func (m *fakeMailer) sentTo(id uint64) []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.activations[id]...)
}

func newTestConcept(t *testing.T) (*Concept, *fakeMailer, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	mailer := newFakeMailer()
	c := New(1, "test", mailer, WithClock(clock.Now))
	return c, mailer, clock
}

func activate(t *testing.T, c *Concept, times int) {
	t.Helper()
	for i := 0; i < times; i++ {
		require.NoError(t, c.Receive(actor.Message{Payload: actor.CmdActivate}))
	}
}

func TestConcept_InitialState(t *testing.T) {
	c, _, _ := newTestConcept(t)
	stats := c.Stats()

	assert.Equal(t, uint64(1), stats.ID)
	assert.Equal(t, "test", stats.Term)
	assert.Equal(t, 0.0, stats.Activation)
	assert.Equal(t, 1.0, stats.Energy)
	assert.Equal(t, 0.0, stats.Complexity)
	assert.Equal(t, 0, stats.Relations)
}

func TestConcept_ActivateBoosts(t *testing.T) {
	c, _, _ := newTestConcept(t)

	activate(t, c, 1)
	stats := c.Stats()

	assert.InDelta(t, 0.1, stats.Activation, 1e-9)
	assert.InDelta(t, 1.5, stats.Energy, 1e-9)
}

func TestConcept_EnergyCapped(t *testing.T) {
	c, _, _ := newTestConcept(t)

	activate(t, c, 10)
	assert.LessOrEqual(t, c.Stats().Energy, MaxEnergy)
}

func TestConcept_ActivationUpperBoundLoose(t *testing.T) {
	c, _, _ := newTestConcept(t)

	// Direct activation does not clamp the upper side, but the overshoot
	// can never exceed one boost past the cap.
	for i := 0; i < 100; i++ {
		require.NoError(t, c.Receive(actor.Message{Payload: Activation{Strength: 1.5}}))
		activate(t, c, 1)
	}
	assert.LessOrEqual(t, c.Stats().Activation, MaxActivation+0.1+1e-9)
}

func TestConcept_PropagationNeedsThreshold(t *testing.T) {
	c, mailer, _ := newTestConcept(t)
	c.Receive(actor.Message{Payload: AddRelation{Target: 2, Relation: AssociatedWith, Weight: 1.0}})

	// Three activations leave activation at the threshold, not above it.
	activate(t, c, 3)
	assert.Empty(t, mailer.sentTo(2))

	// The fourth crosses it.
	activate(t, c, 1)
	sent := mailer.sentTo(2)
	require.Len(t, sent, 1)
	assert.InDelta(t, 0.4*1.0*0.5, sent[0], 1e-9)
}

func TestConcept_PropagateDecaysSource(t *testing.T) {
	c, _, _ := newTestConcept(t)
	c.Receive(actor.Message{Payload: AddRelation{Target: 2, Relation: AssociatedWith, Weight: 1.0}})

	activate(t, c, 4)
	// 0.4 after the boosts, then one propagation decay.
	assert.InDelta(t, 0.4*0.95, c.Stats().Activation, 1e-9)
}

func TestConcept_WeakRelationsNotPropagated(t *testing.T) {
	c, mailer, _ := newTestConcept(t)
	c.Receive(actor.Message{Payload: AddRelation{Target: 2, Relation: AssociatedWith, Weight: 0.1}})

	activate(t, c, 4)
	// strength = 0.4 * 0.1 * 0.5 = 0.02 < 0.1
	assert.Empty(t, mailer.sentTo(2))
}

func TestConcept_ReceiveActivationClampsAndIsolates(t *testing.T) {
	c, mailer, _ := newTestConcept(t)
	c.Receive(actor.Message{Payload: AddRelation{Target: 2, Relation: AssociatedWith, Weight: 1.0}})

	require.NoError(t, c.Receive(actor.Message{Payload: Activation{Strength: 1.2}}))
	require.NoError(t, c.Receive(actor.Message{Payload: Activation{Strength: 1.2}}))

	assert.Equal(t, MaxActivation, c.Stats().Activation)
	// Receipt never chains into the receiver's own propagation.
	assert.Empty(t, mailer.sentTo(2))
}

func TestConcept_RelationUpsert(t *testing.T) {
	c, _, _ := newTestConcept(t)

	c.Receive(actor.Message{Payload: AddRelation{Target: 2, Relation: AssociatedWith, Weight: 0.5}})
	c.Receive(actor.Message{Payload: AddRelation{Target: 2, Relation: AssociatedWith, Weight: 0.3}})

	rels := c.Relations()
	require.Len(t, rels, 1)
	assert.Equal(t, 0.5, rels[0].Weight)

	// A different kind to the same target is a distinct relation.
	c.Receive(actor.Message{Payload: AddRelation{Target: 2, Relation: IsA, Weight: 0.4}})
	assert.Len(t, c.Relations(), 2)
}

func TestConcept_RelationWeightClamped(t *testing.T) {
	c, _, _ := newTestConcept(t)

	c.Receive(actor.Message{Payload: AddRelation{Target: 2, Relation: Causes, Weight: 7.0}})
	c.Receive(actor.Message{Payload: AddRelation{Target: 3, Relation: Causes, Weight: 0.0001}})

	rels := c.Relations()
	require.Len(t, rels, 2)
	for _, r := range rels {
		assert.GreaterOrEqual(t, r.Weight, MinWeight)
		assert.LessOrEqual(t, r.Weight, MaxWeight)
	}
}

func TestConcept_ComplexityIsMeanWeight(t *testing.T) {
	c, _, _ := newTestConcept(t)

	c.Receive(actor.Message{Payload: AddRelation{Target: 2, Relation: Causes, Weight: 0.4}})
	c.Receive(actor.Message{Payload: AddRelation{Target: 3, Relation: IsA, Weight: 0.8}})

	assert.InDelta(t, 0.6, c.Stats().Complexity, 1e-9)
}

func TestConcept_LearnReinforcesRecent(t *testing.T) {
	c, _, clock := newTestConcept(t)
	c.Receive(actor.Message{Payload: AddRelation{Target: 2, Relation: AssociatedWith, Weight: 0.5}})

	// Accessed just now: within the recent window.
	clock.Advance(10 * time.Minute)
	require.NoError(t, c.Receive(actor.Message{Payload: actor.CmdLearn}))

	rels := c.Relations()
	require.Len(t, rels, 1)
	assert.InDelta(t, 0.5*1.05, rels[0].Weight, 1e-9)
}

func TestConcept_LearnWeakensStale(t *testing.T) {
	c, _, clock := newTestConcept(t)
	c.Receive(actor.Message{Payload: AddRelation{Target: 2, Relation: AssociatedWith, Weight: 0.5}})

	clock.Advance(48 * time.Hour)
	require.NoError(t, c.Receive(actor.Message{Payload: actor.CmdLearn}))

	rels := c.Relations()
	require.Len(t, rels, 1)
	assert.InDelta(t, 0.5*0.95, rels[0].Weight, 1e-9)
}

func TestConcept_LearnLeavesMiddleAlone(t *testing.T) {
	c, _, clock := newTestConcept(t)
	c.Receive(actor.Message{Payload: AddRelation{Target: 2, Relation: AssociatedWith, Weight: 0.5}})

	clock.Advance(6 * time.Hour)
	require.NoError(t, c.Receive(actor.Message{Payload: actor.CmdLearn}))

	assert.Equal(t, 0.5, c.Relations()[0].Weight)
}

func TestConcept_LearnWeightFloor(t *testing.T) {
	c, _, clock := newTestConcept(t)
	c.Receive(actor.Message{Payload: AddRelation{Target: 2, Relation: AssociatedWith, Weight: 0.11}})

	for i := 0; i < 50; i++ {
		clock.Advance(48 * time.Hour)
		require.NoError(t, c.Receive(actor.Message{Payload: actor.CmdLearn}))
	}
	assert.InDelta(t, MinWeight, c.Relations()[0].Weight, 1e-9)
}

func TestConcept_DecayMonotonic(t *testing.T) {
	c, _, _ := newTestConcept(t)
	activate(t, c, 2)

	before := c.Stats()
	require.NoError(t, c.Receive(actor.Message{Payload: actor.CmdDecay}))
	after := c.Stats()

	assert.LessOrEqual(t, after.Activation, before.Activation)
	assert.LessOrEqual(t, after.Energy, before.Energy)
	assert.InDelta(t, before.Activation*0.95, after.Activation, 1e-9)
	assert.InDelta(t, before.Energy*0.99, after.Energy, 1e-9)
}

func TestConcept_StabilityFromAccessRate(t *testing.T) {
	c, _, clock := newTestConcept(t)

	// 10 accesses in 10 minutes: one per minute, clamped at 1.
	for i := 0; i < 10; i++ {
		clock.Advance(time.Minute)
		activate(t, c, 1)
	}
	assert.InDelta(t, 1.0, c.Stats().Stability, 1e-9)

	// Long quiet stretch then one access: rate collapses.
	clock.Advance(24 * time.Hour)
	activate(t, c, 1)
	assert.Less(t, c.Stats().Stability, 0.05)
}

func TestConcept_MergeFlag(t *testing.T) {
	c, mailer, clock := newTestConcept(t)

	// Old, rarely accessed, few weak relations: low stability and
	// complexity.
	c.Receive(actor.Message{Payload: AddRelation{Target: 2, Relation: AssociatedWith, Weight: 0.1}})
	clock.Advance(2 * time.Hour)
	activate(t, c, 1)

	require.NoError(t, c.Receive(actor.Message{Payload: actor.CmdMergeCheck}))
	assert.Equal(t, []string{"merge"}, mailer.flags)
}

func TestConcept_MergeFlagNotRaisedWhenStable(t *testing.T) {
	c, mailer, _ := newTestConcept(t)

	activate(t, c, 5) // young concept, high access rate
	require.NoError(t, c.Receive(actor.Message{Payload: actor.CmdMergeCheck}))
	assert.Empty(t, mailer.flags)
}

func TestConcept_SplitFlag(t *testing.T) {
	c, mailer, _ := newTestConcept(t)

	for i := uint64(0); i < 25; i++ {
		c.Receive(actor.Message{Payload: AddRelation{Target: 100 + i, Relation: AssociatedWith, Weight: 0.9}})
	}

	require.NoError(t, c.Receive(actor.Message{Payload: actor.CmdSplitCheck}))
	assert.Equal(t, []string{"split"}, mailer.flags)
}

func TestConcept_DeathCheck(t *testing.T) {
	c, mailer, clock := newTestConcept(t)

	// Too young: nothing happens even with zero energy.
	for i := 0; i < 300; i++ {
		c.Receive(actor.Message{Payload: actor.CmdDecay})
	}
	require.NoError(t, c.Receive(actor.Message{Payload: actor.CmdDeathCheck}))
	assert.Empty(t, mailer.retired)

	// Old, idle, exhausted, unstable: retired.
	clock.Advance(48 * time.Hour)
	require.NoError(t, c.Receive(actor.Message{Payload: actor.CmdDeathCheck}))
	assert.Equal(t, []uint64{1}, mailer.retired)
}

func TestConcept_DeathCheckSparedByRecentActivity(t *testing.T) {
	c, mailer, clock := newTestConcept(t)

	for i := 0; i < 300; i++ {
		c.Receive(actor.Message{Payload: actor.CmdDecay})
	}
	clock.Advance(48 * time.Hour)
	activate(t, c, 1) // refreshes last activation and energy

	require.NoError(t, c.Receive(actor.Message{Payload: actor.CmdDeathCheck}))
	assert.Empty(t, mailer.retired)
}

func TestConcept_UnknownCommand(t *testing.T) {
	c, _, _ := newTestConcept(t)
	err := c.Receive(actor.Message{Payload: actor.Command("frobnicate")})
	assert.Error(t, err)
}

func TestConcept_UnknownPayload(t *testing.T) {
	c, _, _ := newTestConcept(t)
	err := c.Receive(actor.Message{Payload: &actor.Closure{Name: "raw"}})
	assert.Error(t, err)
}

func TestRelationKind_String(t *testing.T) {
	tests := []struct {
		kind RelationKind
		want string
	}{
		{Causes, "causes"},
		{IsA, "is_a"},
		{PartOf, "part_of"},
		{Synonym, "synonym"},
		{Antonym, "antonym"},
		{AssociatedWith, "associated_with"},
		{Custom, "custom"},
		{RelationKind(99), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.kind.String())
	}
}
