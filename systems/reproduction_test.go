package systems

import (
	"math"
	"testing"

	"github.com/pthm-cable/petri/components"
	"github.com/pthm-cable/petri/config"
)

func TestReproductionConservesEnergy(t *testing.T) {
	s := newTestState(t, false)
	pi := addAgent(t, s, components.KindBacteria, 1, 500, 350, 8, 200)
	s.Agents[pi].Org.Color = components.Color{R: 1, G: 2, B: 3}
	before := s.Agents[pi].Energy.Value
	parentVersion := s.Agents[pi].Brain.Version()

	if born, _ := Reproduce(s); born != 1 {
		t.Fatalf("born: got %d, want 1", born)
	}
	child := s.Births[0]
	after := s.Agents[pi].Energy.Value
	if math.Abs(child.Energy+after-before) > 1e-9 {
		t.Errorf("child %v + parent %v != %v", child.Energy, after, before)
	}
	if child.Color != (components.Color{R: 1, G: 2, B: 3}) {
		t.Errorf("child color: got %v", child.Color)
	}
	if child.Brain == s.Agents[pi].Brain {
		t.Error("child shares the parent's controller")
	}
	if s.Agents[pi].Brain.Version() != parentVersion {
		t.Error("parent controller changed")
	}
	if child.Brain.InputSize() != child.Sensor.Size() {
		t.Errorf("child controller input %d != sensor %d", child.Brain.InputSize(), child.Sensor.Size())
	}
	if !s.World.IsInside(child.Pos.X, child.Pos.Y, child.Body.Radius) {
		t.Errorf("child placed outside the world: %+v", child.Pos)
	}
}

func TestReproductionBelowThresholdDoesNothing(t *testing.T) {
	s := newTestState(t, false)
	addAgent(t, s, components.KindBacteria, 1, 500, 350, 8, 149)
	if born, _ := Reproduce(s); born != 0 {
		t.Errorf("born: got %d, want 0", born)
	}
}

func TestReproductionRespectsCap(t *testing.T) {
	s := newTestState(t, false)
	s.Params.(*config.Params).Set("bacteria_max_limit", 4)
	for i := 0; i < 3; i++ {
		addAgent(t, s, components.KindBacteria, uint32(i+1), float64(100*i+50), 350, 8, 300)
	}

	if born, _ := Reproduce(s); born != 1 {
		t.Fatalf("born: got %d, want 1", born)
	}
	if born, _ := Reproduce(s); born != 0 {
		t.Errorf("second pass born %d with queued child at cap", born)
	}
	// the two agents that did not split keep their energy
	full := 0
	for _, a := range s.Agents {
		if a.Energy.Value == 300 {
			full++
		}
	}
	if full != 2 {
		t.Errorf("agents still at 300: got %d, want 2", full)
	}
}

func TestReproductionSkipsAgentWithoutController(t *testing.T) {
	s := newTestState(t, false)
	bad := addAgent(t, s, components.KindBacteria, 1, 100, 350, 8, 300)
	addAgent(t, s, components.KindBacteria, 2, 600, 350, 8, 300)
	s.Agents[bad].Brain = nil

	if born, failed := Reproduce(s); born != 1 || failed != 1 {
		t.Fatalf("born %d failed %d, want 1 and 1", born, failed)
	}
	if s.Births[0].Parent != 2 {
		t.Errorf("parent: got %d, want 2", s.Births[0].Parent)
	}
	if s.Agents[bad].Energy.Value != 300 {
		t.Errorf("failed parent lost energy: %v", s.Agents[bad].Energy.Value)
	}
}
