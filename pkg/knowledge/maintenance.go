package knowledge

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/mindmesh/mindmesh/pkg/actor"
	"github.com/mindmesh/mindmesh/pkg/eventbus"
)

// maintenanceReport is the payload of a maintenance.completed event.
type maintenanceReport struct {
	Cycle    uint64 `json:"cycle"`
	Concepts int    `json:"concepts"`
	Learned  bool   `json:"learned"`
}

// RunMaintenance sends decay and death-check commands to every concept, and
// on every Nth cycle also learning and merge/split checks. Calls within the
// configured interval of the previous run are no-ops. Sends to actors dying
// concurrently are swallowed.
func (g *Graph) RunMaintenance() {
	now := g.now().Unix()
	last := g.lastMaintenance.Load()
	if now-last < g.maintenanceEvery.Load() {
		return
	}
	if !g.lastMaintenance.CompareAndSwap(last, now) {
		// Another caller won this cycle.
		return
	}

	ctx, span := g.tracer.Start(context.Background(), "knowledge.RunMaintenance")
	defer span.End()

	cycle := g.cycles.Add(1)
	learn := cycle%uint64(g.learnEvery.Load()) == 0

	commands := []actor.Command{actor.CmdDecay, actor.CmdDeathCheck}
	if learn {
		commands = append(commands, actor.CmdLearn, actor.CmdMergeCheck, actor.CmdSplitCheck)
	}

	visited := 0
	g.conceptActors.Range(func(id uint64, handle uint64) bool {
		for _, cmd := range commands {
			if err := g.engine.Send(handle, actor.Message{Payload: cmd}); err != nil {
				// Gone or unknown actors are expected during retirement.
				break
			}
		}
		visited++
		return true
	})

	span.SetAttributes(
		attribute.Int("maintenance.concepts", visited),
		attribute.Bool("maintenance.learn", learn),
	)
	g.publish(ctx, eventbus.EventMaintenanceCompleted, 0, "", maintenanceReport{
		Cycle:    cycle,
		Concepts: visited,
		Learned:  learn,
	})
	g.logger.Debug("maintenance cycle", "cycle", cycle, "concepts", visited, "learn", learn)
}
