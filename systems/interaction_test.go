package systems

import (
	"math"
	"testing"

	"github.com/pthm-cable/petri/components"
	"github.com/pthm-cable/petri/config"
)

func TestBacteriumEatsOverlappingFood(t *testing.T) {
	for _, useHash := range []bool{true, false} {
		name := "brute force"
		if useHash {
			name = "spatial hash"
		}
		t.Run(name, func(t *testing.T) {
			s := newTestState(t, useHash)
			fi := addFood(s, 1, 500, 350, 5, 25)
			bi := addAgent(t, s, components.KindBacteria, 1, 513, 350, 8, 100)
			s.Rebuild()

			food, _ := Interact(s)
			if food != 1 {
				t.Fatalf("food eaten: got %d, want 1", food)
			}
			if !s.Foods[fi].Eaten {
				t.Error("food not flagged as eaten")
			}
			if got := s.Agents[bi].Energy.Value; got != 125 {
				t.Errorf("energy: got %v, want 125", got)
			}
		})
	}
}

func TestBacteriumOutOfReachDoesNotEat(t *testing.T) {
	s := newTestState(t, true)
	addFood(s, 1, 500, 350, 5, 25)
	bi := addAgent(t, s, components.KindBacteria, 1, 513.5, 350, 8, 100)
	s.Rebuild()

	if food, _ := Interact(s); food != 0 {
		t.Errorf("food eaten: got %d, want 0", food)
	}
	if got := s.Agents[bi].Energy.Value; got != 100 {
		t.Errorf("energy: got %v, want 100", got)
	}
}

func TestBacteriumEatsOnePelletPerStep(t *testing.T) {
	s := newTestState(t, false)
	addFood(s, 1, 500, 350, 5, 25)
	addFood(s, 2, 505, 350, 5, 25)
	bi := addAgent(t, s, components.KindBacteria, 1, 502, 350, 8, 100)
	s.Rebuild()

	if food, _ := Interact(s); food != 1 {
		t.Errorf("food eaten: got %d, want 1", food)
	}
	if got := s.Agents[bi].Energy.Value; got != 125 {
		t.Errorf("energy: got %v, want 125", got)
	}
}

func TestPredationRespectsBacteriaFloor(t *testing.T) {
	s := newTestState(t, true)
	s.Params.(*config.Params).Set("bacteria_min_limit", 2)

	// Three bacteria, two predators each touching a different one.
	addAgent(t, s, components.KindBacteria, 1, 100, 100, 8, 100)
	addAgent(t, s, components.KindBacteria, 2, 300, 100, 8, 100)
	addAgent(t, s, components.KindBacteria, 3, 900, 600, 8, 100)
	p1 := addAgent(t, s, components.KindPredator, 4, 110, 100, 10, 150)
	p2 := addAgent(t, s, components.KindPredator, 5, 310, 100, 10, 150)
	s.Rebuild()

	_, prey := Interact(s)
	if prey != 1 {
		t.Fatalf("prey eaten: got %d, want 1", prey)
	}
	if got := s.Count(components.KindBacteria); got != 2 {
		t.Errorf("bacteria alive: got %d, want 2", got)
	}
	gained := s.Agents[p1].Energy.Value + s.Agents[p2].Energy.Value - 300
	if math.Abs(gained-100*PredationEfficiency) > 1e-9 {
		t.Errorf("predator energy gained: got %v, want %v", gained, 100*PredationEfficiency)
	}
}
