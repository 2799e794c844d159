package concept

// Lifecycle checks are advisory except death: merge and split only flag the
// condition through the mailer, death retires the actor.

func (c *Concept) mergeCheck() {
	if c.stability.Load() < c.params.MergeStability && c.complexity.Load() < c.params.MergeComplexity {
		c.mailer.Flag("merge", c.Stats())
	}
}

func (c *Concept) splitCheck() {
	c.relMu.Lock()
	relations := len(c.relations)
	c.relMu.Unlock()

	if c.complexity.Load() > c.params.SplitComplexity && relations > c.params.SplitRelations {
		c.mailer.Flag("split", c.Stats())
	}
}

// deathCheck retires concepts that are old, idle, exhausted, and unstable.
func (c *Concept) deathCheck() {
	now := c.now()

	age := now.Sub(c.birth)
	if age <= c.params.DeathAge {
		return
	}
	idle := now.Unix() - c.lastActivation.Load()
	if idle <= int64(c.params.DeathIdle.Seconds()) {
		return
	}
	if c.energy.Load() >= c.params.DeathEnergy {
		return
	}
	if c.stability.Load() >= c.params.DeathStability {
		return
	}

	c.mailer.Retire(c.id)
}
