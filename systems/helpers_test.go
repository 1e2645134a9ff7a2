package systems

import (
	"math/rand"
	"testing"

	"github.com/pthm-cable/petri/components"
	"github.com/pthm-cable/petri/config"
	"github.com/pthm-cable/petri/traits"
	"github.com/pthm-cable/petri/world"
)

func newTestState(t *testing.T, useHash bool) *State {
	t.Helper()
	w := world.New(1000, 700, world.Rectangular, 400)
	s := &State{
		World:  w,
		Params: config.Defaults(),
		Rng:    rand.New(rand.NewSource(42)),
	}
	if useHash {
		minX, minY, maxX, maxY := w.Bounds()
		s.Hash = NewSpatialHash(minX, minY, maxX, maxY, 24)
	}
	return s
}

// addAgent appends an agent view and returns its index. Pointers into
// s.Agents are invalidated by later appends.
func addAgent(t *testing.T, s *State, kind components.Kind, id uint32, x, y, r, energy float64) int {
	t.Helper()
	tr := traits.For(kind)
	brain, err := tr.BuildController(s.Params, s.Rng)
	if err != nil {
		t.Fatal(err)
	}
	body := components.NewBody(r)
	loco := tr.BuildLocomotion(s.Params)
	meta := tr.BuildMetabolism(s.Params)
	s.Agents = append(s.Agents, Agent{
		Org:    &components.Organism{ID: id, Kind: kind, Color: tr.Color()},
		Pos:    &components.Position{X: x, Y: y},
		Vel:    &components.Velocity{},
		Rot:    &components.Rotation{},
		Body:   &body,
		Energy: &components.Energy{Value: energy},
		Loco:   &loco,
		Meta:   &meta,
		Brain:  brain,
		Sensor: tr.BuildSensor(s.Params),
	})
	return len(s.Agents) - 1
}

func addFood(s *State, id uint32, x, y, r, energy float64) int {
	body := components.NewBody(r)
	s.Foods = append(s.Foods, Food{
		ID:   id,
		Pos:  &components.Position{X: x, Y: y},
		Body: &body,
		Item: &components.Food{Energy: energy},
	})
	return len(s.Foods) - 1
}
