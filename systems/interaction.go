package systems

import (
	"math"

	"github.com/pthm-cable/petri/components"
	"github.com/pthm-cable/petri/traits"
)

// PredationEfficiency is the share of a bacterium's energy a predator gains.
const PredationEfficiency = 0.7

// Interact lets bacteria eat food and predators eat bacteria. Each agent eats
// at most once per substep. Eaten food and prey are flagged, not removed.
func Interact(s *State) (foodEaten, preyEaten int) {
	var buf []Entry

	for i := range s.Agents {
		a := &s.Agents[i]
		if a.Dead || a.Org.Kind != components.KindBacteria {
			continue
		}
		buf = s.near(a.Pos.X, a.Pos.Y, a.Body.Radius, buf[:0])
		for _, e := range buf {
			if e.Kind != components.KindFood {
				continue
			}
			f := &s.Foods[e.Index]
			if f.Eaten {
				continue
			}
			if math.Hypot(a.Pos.X-f.Pos.X, a.Pos.Y-f.Pos.Y) <= a.Body.Radius+f.Body.Radius {
				a.Energy.Value = a.Meta.ClampEnergy(a.Energy.Value + f.Item.Energy)
				f.Eaten = true
				foodEaten++
				break
			}
		}
	}

	minBacteria, _ := traits.Bacteria.Limits(s.Params)
	alive := s.Count(components.KindBacteria)

	for i := range s.Agents {
		p := &s.Agents[i]
		if p.Dead || p.Org.Kind != components.KindPredator {
			continue
		}
		if alive <= minBacteria {
			break
		}
		buf = s.near(p.Pos.X, p.Pos.Y, p.Body.Radius, buf[:0])
		for _, e := range buf {
			if e.Kind != components.KindBacteria {
				continue
			}
			b := &s.Agents[e.Index]
			if b.Dead {
				continue
			}
			if math.Hypot(p.Pos.X-b.Pos.X, p.Pos.Y-b.Pos.Y) > p.Body.Radius+b.Body.Radius {
				continue
			}
			// Another predator may have taken the last bacterium above the floor.
			if alive <= minBacteria {
				break
			}
			p.Energy.Value = p.Meta.ClampEnergy(p.Energy.Value + b.Energy.Value*PredationEfficiency)
			b.Dead = true
			alive--
			preyEaten++
			break
		}
	}
	return foodEaten, preyEaten
}
