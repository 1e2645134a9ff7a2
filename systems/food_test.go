package systems

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pthm-cable/petri/components"
	"github.com/pthm-cable/petri/config"
	"github.com/pthm-cable/petri/neural"
	"github.com/pthm-cable/petri/world"
)

func TestFoodControllerApproachesTarget(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	w := world.New(1000, 700, world.Rectangular, 400)
	fp := ReadFoodParams(config.Defaults())
	fc := &FoodController{}

	var existing []Circle
	for step := 0; step < 600; step++ {
		for _, f := range fc.Update(rng, w, fp, existing, 1.0/60) {
			existing = append(existing, Circle{f.X, f.Y, f.R})
			if f.Energy != FoodEnergy(f.R, fp.EnergyPerArea) {
				t.Fatalf("pellet energy %v for radius %v", f.Energy, f.R)
			}
		}
	}
	if len(existing) < fp.Target*9/10 || len(existing) > fp.Target {
		t.Errorf("food count after 10s: got %d, want close to %d", len(existing), fp.Target)
	}
}

func TestFoodControllerNoDebtAtTarget(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	w := world.New(1000, 700, world.Rectangular, 400)
	fp := FoodParams{Target: 2, MinR: 5, MaxR: 5, EnergyPerArea: 1, ReplenishSeconds: 0.1}
	fc := &FoodController{}

	existing := []Circle{{100, 100, 5}, {200, 200, 5}}
	if out := fc.Update(rng, w, fp, existing, 1); len(out) != 0 {
		t.Errorf("spawned %d pellets at target", len(out))
	}
	if fc.Debt != 0 {
		t.Errorf("debt: got %v, want 0", fc.Debt)
	}
}

func TestPlaceAvoidsOverlap(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	w := world.New(200, 200, world.Circular, 90)
	var placed []Circle
	for i := 0; i < 30; i++ {
		x, y, r, ok := Place(rng, w, 4, 6, placed, 2, 50)
		if !ok {
			continue
		}
		if !w.IsInside(x, y, r) {
			t.Fatalf("pellet outside world: (%v, %v) r=%v", x, y, r)
		}
		for _, c := range placed {
			if math.Hypot(c.X-x, c.Y-y) < c.R+r+2 {
				t.Fatalf("pellet overlaps an existing one")
			}
		}
		placed = append(placed, Circle{x, y, r})
	}
	if len(placed) == 0 {
		t.Error("nothing placed")
	}
}

func TestSceneQueryFiltersRemoved(t *testing.T) {
	s := newTestState(t, true)
	f := addFood(s, 1, 540, 350, 5, 25)
	addFood(s, 2, 560, 350, 5, 25)
	bi := addAgent(t, s, components.KindBacteria, 1, 500, 350, 8, 100)
	s.Rebuild()
	s.Foods[f].Eaten = true

	sq := NewSceneQuery(s)
	cands := sq.Candidates(508, 350, 120, nil)
	ids := map[uint32]bool{}
	for _, c := range cands {
		if c.Kind == components.KindFood {
			ids[c.ID] = true
		}
	}
	if ids[1] || !ids[2] {
		t.Errorf("food candidates: got %v, want only pellet 2", ids)
	}

	// The retina sees pellet 2 at distance 60 - 8 - 5 = 47 from the eye.
	r := neural.NewRetina(neural.RetinaConfig{Count: 1, VisionRadius: 100, FOVDegrees: 30, SeeFood: true})
	out := r.Sense(s.Agents[bi].Viewer(), sq)
	if math.Abs(out[0]-0.53) > 1e-9 {
		t.Errorf("activation: got %v, want 0.53", out[0])
	}
}
