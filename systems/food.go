package systems

import (
	"math"
	"math/rand"

	"github.com/pthm-cable/petri/world"
)

const (
	foodDebtDecay     = 0.99
	foodPlaceAttempts = 50
	foodPlaceMargin   = 2.0
	spawnAttempts     = 300
)

// Circle is a placed object used for overlap checks during placement.
type Circle struct {
	X, Y, R float64
}

// FoodSpawn is a pellet to be created.
type FoodSpawn struct {
	X, Y, R float64
	Energy  float64
}

// FoodEnergy returns the energy of a pellet of radius r.
func FoodEnergy(r, perArea float64) float64 {
	return perArea * r * r
}

// FoodController tops food up toward a target count. The shortfall accrues
// as debt over time so food appears gradually instead of all at once.
type FoodController struct {
	Debt float64
}

// FoodParams are the live food settings.
type FoodParams struct {
	Target           int
	MinR, MaxR       float64
	EnergyPerArea    float64
	ReplenishSeconds float64
}

// ReadFoodParams reads the food settings from p.
func ReadFoodParams(p interface {
	Float(string, float64) float64
	Int(string, int) int
}) FoodParams {
	minR := math.Max(p.Float("food_min_r", 4.5), 0.5)
	return FoodParams{
		Target:           max(p.Int("food_target", 50), 0),
		MinR:             minR,
		MaxR:             math.Max(p.Float("food_max_r", 5.0), minR),
		EnergyPerArea:    p.Float("food_energy_per_area", 1.0),
		ReplenishSeconds: math.Max(p.Float("food_replenish_interval", 0.1), 1e-3),
	}
}

// Update accrues debt for this substep and returns the pellets to create.
// existing holds the current food so new pellets avoid overlapping it.
func (fc *FoodController) Update(rng *rand.Rand, w *world.World, fp FoodParams, existing []Circle, dt float64) []FoodSpawn {
	fc.Debt += float64(fp.Target-len(existing)) * dt / fp.ReplenishSeconds

	var out []FoodSpawn
	existing = existing[:len(existing):len(existing)]
	for fc.Debt >= 1 {
		x, y, r, ok := Place(rng, w, fp.MinR, fp.MaxR, existing, foodPlaceMargin, foodPlaceAttempts)
		if !ok {
			break
		}
		existing = append(existing, Circle{x, y, r})
		out = append(out, FoodSpawn{X: x, Y: y, R: r, Energy: FoodEnergy(r, fp.EnergyPerArea)})
		fc.Debt--
	}
	fc.Debt = math.Max(0, fc.Debt*foodDebtDecay)
	return out
}

// Place samples a radius in [minR, maxR] and a position inside w that keeps
// margin clear of every circle in occupied. ok is false after attempts misses.
func Place(rng *rand.Rand, w *world.World, minR, maxR float64, occupied []Circle, margin float64, attempts int) (x, y, r float64, ok bool) {
	for range attempts {
		r = minR + rng.Float64()*(maxR-minR)
		x, y = w.RandomPoint(rng, r)
		if !overlapsAny(x, y, r, occupied, margin) {
			return x, y, r, true
		}
	}
	return 0, 0, 0, false
}

// PlaceOrFallback is Place with the spawn attempt budget, falling back to an
// unchecked random position so population init always succeeds.
func PlaceOrFallback(rng *rand.Rand, w *world.World, minR, maxR float64, occupied []Circle) (x, y, r float64) {
	if x, y, r, ok := Place(rng, w, minR, maxR, occupied, 0, spawnAttempts); ok {
		return x, y, r
	}
	r = minR + rng.Float64()*(maxR-minR)
	x, y = w.RandomPoint(rng, r)
	return x, y, r
}

func overlapsAny(x, y, r float64, occupied []Circle, margin float64) bool {
	for _, c := range occupied {
		if math.Hypot(c.X-x, c.Y-y) < c.R+r+margin {
			return true
		}
	}
	return false
}
