package concept

import (
	"math"
)

// thresholdEpsilon absorbs accumulated floating-point error in the
// propagation threshold comparison: three 0.1 boosts sum to
// 0.30000000000000004, which reaches a 0.3 threshold without exceeding it.
const thresholdEpsilon = 1e-9

// activate handles a direct activation: boost activation and energy, refresh
// access bookkeeping, and spread to neighbors when above the propagation
// threshold. The upper side of activation is deliberately left unclamped
// here; propagation receipt clamps.
func (c *Concept) activate() {
	now := c.now()

	c.activation.Store(c.activation.Load() + c.params.ActivationBoost)
	c.lastActivation.Store(now.Unix())
	c.accessCount.Add(1)
	c.energy.Store(math.Min(MaxEnergy, c.energy.Load()+c.params.EnergyBoost))
	c.updateStability()

	if c.activation.Load() > c.params.PropagationThreshold+thresholdEpsilon {
		c.propagate()
	}
}

// propagate sends reduced activation along every relation, then decays the
// source. Receipt at the target never chains into another propagation, so
// cyclic graphs cannot generate unbounded traffic.
func (c *Concept) propagate() {
	activation := c.activation.Load()
	if activation < c.params.MinActivation {
		return
	}
	now := c.now().Unix()

	c.relMu.Lock()
	for i := range c.relations {
		r := &c.relations[i]
		strength := activation * r.Weight * c.params.SpreadFactor
		if strength > c.params.MinActivation {
			c.mailer.SendActivation(r.Target, strength)
		}
		r.LastAccessed = now
	}
	c.relMu.Unlock()

	c.activation.Store(activation * c.params.DecayRate)
}

// receiveActivation handles activation arriving from a propagating neighbor.
func (c *Concept) receiveActivation(strength float64) {
	c.activation.Store(math.Min(MaxActivation, c.activation.Load()+strength))
	c.lastActivation.Store(c.now().Unix())
	c.accessCount.Add(1)
}

// learn adjusts relation weights by recency of use: recently used edges are
// reinforced, long-idle edges weaken toward the floor.
func (c *Concept) learn() {
	now := c.now().Unix()
	recent := int64(c.params.RecentWindow.Seconds())
	stale := int64(c.params.StaleWindow.Seconds())

	c.relMu.Lock()
	for i := range c.relations {
		r := &c.relations[i]
		delta := now - r.LastAccessed
		switch {
		case delta < recent:
			r.Weight = math.Min(MaxWeight, r.Weight*c.params.ReinforceFactor)
		case delta > stale:
			r.Weight = math.Max(MinWeight, r.Weight*c.params.WeakenFactor)
		}
	}
	c.relMu.Unlock()

	c.updateComplexity()
}

// decay multiplicatively reduces activation and energy.
func (c *Concept) decay() {
	c.activation.Store(math.Max(0, c.activation.Load()*c.params.DecayRate))
	c.energy.Store(math.Max(0, c.energy.Load()*c.params.EnergyDecayRate))
}

// upsertRelation inserts the (target, kind) edge or upgrades an existing one
// to the maximum of the two weights, refreshing its access time.
func (c *Concept) upsertRelation(target uint64, kind RelationKind, weight float64) {
	weight = math.Min(MaxWeight, math.Max(MinWeight, weight))
	now := c.now().Unix()

	c.relMu.Lock()
	found := false
	for i := range c.relations {
		r := &c.relations[i]
		if r.Target == target && r.Kind == kind {
			r.Weight = math.Max(r.Weight, weight)
			r.LastAccessed = now
			found = true
			break
		}
	}
	if !found {
		c.relations = append(c.relations, Relation{
			Target:       target,
			Kind:         kind,
			Weight:       weight,
			LastAccessed: now,
		})
	}
	c.relMu.Unlock()

	c.updateComplexity()
}

// updateStability recomputes stability as accesses per minute of age,
// clamped to 1.
func (c *Concept) updateStability() {
	ageMinutes := c.now().Sub(c.birth).Seconds() / 60
	if ageMinutes < 1 {
		ageMinutes = 1
	}
	c.stability.Store(math.Min(1.0, float64(c.accessCount.Load())/ageMinutes))
}

// updateComplexity recomputes complexity as the mean relation weight.
func (c *Concept) updateComplexity() {
	c.relMu.Lock()
	total := 0.0
	n := len(c.relations)
	for i := range c.relations {
		total += c.relations[i].Weight
	}
	c.relMu.Unlock()

	if n == 0 {
		c.complexity.Store(0)
		return
	}
	c.complexity.Store(total / float64(n))
}
