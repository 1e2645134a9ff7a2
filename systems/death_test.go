package systems

import (
	"testing"

	"github.com/pthm-cable/petri/components"
	"github.com/pthm-cable/petri/config"
)

func TestDeathRateLimited(t *testing.T) {
	s := newTestState(t, false)
	// 15 bacteria (floor 10), five starving with distinct energy
	for i := 0; i < 15; i++ {
		e := 100.0
		if i < 5 {
			e = -float64(i)
		}
		addAgent(t, s, components.KindBacteria, uint32(i+1), float64(50*i+20), 100, 8, e)
	}

	deaths := ApplyDeaths(s, 2)
	if deaths[components.KindBacteria] != 2 {
		t.Fatalf("deaths: got %d, want 2", deaths[components.KindBacteria])
	}
	// lowest energy first: energies -4 and -3
	for i, a := range s.Agents[:5] {
		wantDead := i >= 3
		if a.Dead != wantDead {
			t.Errorf("agent %d dead=%v, want %v", i, a.Dead, wantDead)
		}
		if !a.Dead && a.Energy.Value != 10 {
			t.Errorf("spared agent %d energy: got %v, want floor 10", i, a.Energy.Value)
		}
	}
}

func TestDeathRespectsFloor(t *testing.T) {
	s := newTestState(t, false)
	for i := 0; i < 12; i++ {
		addAgent(t, s, components.KindBacteria, uint32(i+1), float64(60*i+20), 100, 8, 0)
	}

	deaths := ApplyDeaths(s, 5)
	if deaths[components.KindBacteria] != 2 {
		t.Errorf("deaths: got %d, want 2", deaths[components.KindBacteria])
	}
	if got := s.Count(components.KindBacteria); got != 10 {
		t.Errorf("population: got %d, want 10", got)
	}
}

func TestNoDeathsAtFloor(t *testing.T) {
	s := newTestState(t, false)
	s.Params.(*config.Params).Set("bacteria_survival_margin", 25)
	for i := 0; i < 10; i++ {
		addAgent(t, s, components.KindBacteria, uint32(i+1), float64(60*i+20), 100, 8, 0)
	}

	deaths := ApplyDeaths(s, 5)
	if deaths[components.KindBacteria] != 0 {
		t.Errorf("deaths: got %d, want 0", deaths[components.KindBacteria])
	}
	for i, a := range s.Agents {
		if a.Energy.Value != 25 {
			t.Errorf("agent %d energy: got %v, want 25", i, a.Energy.Value)
		}
	}
}

func TestQueuedBirthsCountTowardFloor(t *testing.T) {
	s := newTestState(t, false)
	for i := 0; i < 10; i++ {
		e := 100.0
		if i < 2 {
			e = 0
		}
		addAgent(t, s, components.KindBacteria, uint32(i+1), float64(60*i+20), 100, 8, e)
	}
	s.Births = append(s.Births,
		Birth{Kind: components.KindBacteria},
		Birth{Kind: components.KindPredator},
	)

	deaths := ApplyDeaths(s, 5)
	if deaths[components.KindBacteria] != 1 {
		t.Errorf("deaths: got %d, want 1", deaths[components.KindBacteria])
	}
	if got := s.Count(components.KindBacteria); got != 9 {
		t.Errorf("alive: got %d, want 9", got)
	}
}

func TestDeathsPerSpecies(t *testing.T) {
	s := newTestState(t, false)
	for i := 0; i < 12; i++ {
		addAgent(t, s, components.KindBacteria, uint32(i+1), float64(60*i+20), 100, 8, 50)
	}
	addAgent(t, s, components.KindPredator, 100, 500, 500, 12, 0)
	addAgent(t, s, components.KindPredator, 101, 600, 500, 12, 0)

	deaths := ApplyDeaths(s, 1)
	if deaths[components.KindBacteria] != 0 {
		t.Errorf("bacteria deaths: got %d, want 0", deaths[components.KindBacteria])
	}
	if deaths[components.KindPredator] != 1 {
		t.Errorf("predator deaths: got %d, want 1", deaths[components.KindPredator])
	}
}
