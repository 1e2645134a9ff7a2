package engine

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/petri/components"
	"github.com/pthm-cable/petri/systems"
	"github.com/pthm-cable/petri/traits"
)

// spawnAgent creates an agent entity from b and returns its ID.
func (e *Engine) spawnAgent(b systems.Birth, age float64) uint32 {
	e.nextID++
	id := e.nextID

	org := components.Organism{ID: id, Kind: b.Kind, Color: b.Color}
	pos := b.Pos
	vel := b.Vel
	rot := components.Rotation{Heading: b.Heading}
	body := b.Body
	energy := components.Energy{Value: b.Meta.ClampEnergy(b.Energy), Age: age}
	loco := b.Loco
	meta := b.Meta
	e.agentMap.NewEntity(&org, &pos, &vel, &rot, &body, &energy, &loco, &meta)

	e.minds[id] = &mind{brain: b.Brain, sensor: b.Sensor}
	return id
}

// spawnFood creates a pellet and returns its ID.
func (e *Engine) spawnFood(x, y, r, energy float64) uint32 {
	e.nextFoodID++
	pos := components.Position{X: x, Y: y}
	body := components.NewBody(r)
	item := components.Food{ID: e.nextFoodID, Energy: energy}
	e.foodMap.NewEntity(&pos, &body, &item)
	return item.ID
}

// newAgent builds a fresh agent of tr's species at (x, y) with a random
// heading, a radius drawn from the species range and a new controller.
func (e *Engine) newAgent(tr traits.SpeciesTraits, x, y float64) (systems.Birth, error) {
	p := e.params
	lo, hi := tr.RadiusRange(p)
	r := lo + e.rng.Float64()*(hi-lo)

	sensor := tr.BuildSensor(p)
	brain, err := tr.BuildController(p, e.rng)
	if err != nil {
		return systems.Birth{}, fmt.Errorf("new %s: %w", tr.Kind(), err)
	}
	if err := brain.ResizeInput(e.rng, sensor.Size()); err != nil {
		return systems.Birth{}, fmt.Errorf("new %s: %w", tr.Kind(), err)
	}

	x, y = e.world.Clamp(x, y, r)
	return systems.Birth{
		Kind:    tr.Kind(),
		Pos:     components.Position{X: x, Y: y},
		Heading: (e.rng.Float64()*2 - 1) * math.Pi,
		Body:    components.NewBody(r),
		Energy:  tr.InitialEnergy(p),
		Color:   tr.Color(),
		Loco:    tr.BuildLocomotion(p),
		Meta:    tr.BuildMetabolism(p),
		Brain:   brain,
		Sensor:  sensor,
	}, nil
}

// addAgentAt spawns a fresh agent at (x, y) and returns its ID.
func (e *Engine) addAgentAt(tr traits.SpeciesTraits, x, y float64) (uint32, error) {
	b, err := e.newAgent(tr, x, y)
	if err != nil {
		return 0, err
	}
	return e.spawnAgent(b, 0), nil
}

// clearEntities removes every agent and pellet.
func (e *Engine) clearEntities() {
	var agents, foods []ecs.Entity
	query := e.agentFilter.Query()
	for query.Next() {
		agents = append(agents, query.Entity())
	}
	fq := e.foodFilter.Query()
	for fq.Next() {
		foods = append(foods, fq.Entity())
	}
	for _, entity := range agents {
		e.agentMap.Remove(entity)
	}
	for _, entity := range foods {
		e.foodMap.Remove(entity)
	}
	clear(e.minds)
	e.state.Reset()
	e.state.Hash = nil
	e.batch.Clear()
	e.food = systems.FoodController{}
	e.selected = 0
}

// resetPopulation replaces the world contents with a fresh population:
// food up to the target, then bacteria and, when enabled, predators at
// random non-overlapping positions.
func (e *Engine) resetPopulation() {
	e.clearEntities()
	p := e.params

	fp := systems.ReadFoodParams(p)
	var occupied []systems.Circle
	for range fp.Target {
		x, y, r := systems.PlaceOrFallback(e.rng, e.world, fp.MinR, fp.MaxR, occupied)
		occupied = append(occupied, systems.Circle{X: x, Y: y, R: r})
		e.spawnFood(x, y, r, systems.FoodEnergy(r, fp.EnergyPerArea))
	}

	counts := map[components.Kind]int{
		components.KindBacteria: min(max(traits.Bacteria.InitialCount(p), 0), maxInitialBacteria),
	}
	if p.Bool("predators_enabled", false) {
		counts[components.KindPredator] = min(max(traits.Predator.InitialCount(p), 0), maxInitialPredators)
	}

	for _, tr := range species {
		lo, hi := tr.RadiusRange(p)
		for range counts[tr.Kind()] {
			x, y, _ := systems.PlaceOrFallback(e.rng, e.world, hi, hi, occupied)
			b, err := e.newAgent(tr, x, y)
			if err != nil {
				slog.Error("spawn_failed", "kind", tr.Kind().String(), "error", err)
				break
			}
			// newAgent drew the radius; keep the placement clear for it
			occupied = append(occupied, systems.Circle{X: b.Pos.X, Y: b.Pos.Y, R: max(b.Body.Radius, lo)})
			e.spawnAgent(b, 0)
		}
	}

	slog.Info("population_reset",
		"bacteria", counts[components.KindBacteria],
		"predators", counts[components.KindPredator],
		"food", fp.Target,
	)
}
