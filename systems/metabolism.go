package systems

import (
	"github.com/pthm-cable/petri/components"
)

// Metabolize drains energy by the cost curve at the agent's current speed and
// ages it. live carries the cost curve re-read from parameters this substep;
// it replaces the agent's copy so tuning takes effect immediately.
func Metabolize(a *Agent, live components.Metabolism, dt float64) {
	*a.Meta = live
	a.Energy.Value = a.Meta.ClampEnergy(a.Energy.Value - a.Meta.Cost(a.Speed())*dt)
	a.Energy.Age += dt
}

// PrepareReproduction halves the agent's energy and returns the child's share.
func PrepareReproduction(a *Agent) float64 {
	child := a.Energy.Value / 2
	a.Energy.Value -= child
	return child
}
