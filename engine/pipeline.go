package engine

import (
	"log/slog"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/petri/components"
	"github.com/pthm-cable/petri/neural"
	"github.com/pthm-cable/petri/systems"
	"github.com/pthm-cable/petri/telemetry"
	"github.com/pthm-cable/petri/traits"
)

// species lists the agent traits in processing order.
var species = []traits.SpeciesTraits{traits.Bacteria, traits.Predator}

// replenishFood tops food up toward the target.
func (e *Engine) replenishFood(dt float64) {
	fp := systems.ReadFoodParams(e.params)
	existing := e.foodCircles()
	spawns := e.food.Update(e.rng, e.world, fp, existing, dt)
	for _, f := range spawns {
		e.spawnFood(f.X, f.Y, f.R, f.Energy)
	}
	e.collector.RecordFoodSpawned(len(spawns))
}

func (e *Engine) foodCircles() []systems.Circle {
	var out []systems.Circle
	query := e.foodFilter.Query()
	for query.Next() {
		pos, body, _ := query.Get()
		out = append(out, systems.Circle{X: pos.X, Y: pos.Y, R: body.Radius})
	}
	return out
}

// gather rebuilds the substep views from ECS storage.
func (e *Engine) gather() {
	s := &e.state
	s.Reset()

	query := e.agentFilter.Query()
	for query.Next() {
		org, pos, vel, rot, body, energy, loco, meta := query.Get()
		m := e.minds[org.ID]
		a := systems.Agent{
			E: query.Entity(), Org: org, Pos: pos, Vel: vel, Rot: rot,
			Body: body, Energy: energy, Loco: loco, Meta: meta,
		}
		if m != nil {
			a.Brain, a.Sensor, a.Output = m.brain, m.sensor, m.output
		}
		s.Agents = append(s.Agents, a)
	}

	fq := e.foodFilter.Query()
	for fq.Next() {
		pos, body, item := fq.Get()
		s.Foods = append(s.Foods, systems.Food{E: fq.Entity(), ID: item.ID, Pos: pos, Body: body, Item: item})
	}
}

// liveSpecies is one species' configuration re-read from params this substep.
type liveSpecies struct {
	sensor neural.RetinaConfig
	loco   components.Locomotion
	meta   components.Metabolism
}

// group is a set of agents sharing species and controller architecture.
type group struct {
	agents  []int
	retinas []*neural.Retina
	viewers []neural.Viewer
	inputs  [][]float64
}

type groupKey struct {
	kind components.Kind
	arch string
}

// think senses for every agent, runs one batched forward pass per group and
// applies the outputs. All sensing happens before anyone moves.
func (e *Engine) think(dt float64) {
	s := &e.state
	p := e.params

	var live [components.NumKinds]liveSpecies
	for _, tr := range species {
		live[tr.Kind()] = liveSpecies{
			sensor: tr.SensorConfig(p),
			loco:   tr.BuildLocomotion(p),
			meta:   tr.BuildMetabolism(p),
		}
	}

	groups := make(map[groupKey]*group)
	var order []groupKey
	for i := range s.Agents {
		a := &s.Agents[i]
		if a.Brain == nil || a.Sensor == nil {
			continue
		}
		ls := live[a.Org.Kind]
		*a.Loco = ls.loco
		a.Sensor.Reconfigure(ls.sensor)
		if a.Brain.InputSize() != a.Sensor.Size() {
			if err := a.Brain.ResizeInput(e.rng, a.Sensor.Size()); err != nil {
				slog.Warn("controller_resize_failed", "id", a.Org.ID, "error", err)
				continue
			}
		}

		k := groupKey{kind: a.Org.Kind, arch: a.Brain.ArchKey()}
		g := groups[k]
		if g == nil {
			g = &group{}
			groups[k] = g
			order = append(order, k)
		}
		g.agents = append(g.agents, i)
		g.retinas = append(g.retinas, a.Sensor)
		g.viewers = append(g.viewers, a.Viewer())
	}

	scene := systems.NewSceneQuery(s)
	for _, k := range order {
		g := groups[k]
		g.inputs = neural.SenseBatch(g.retinas, g.viewers, scene)
	}

	for _, k := range order {
		g := groups[k]
		ctrls := make([]*neural.Controller, len(g.agents))
		for j, i := range g.agents {
			ctrls[j] = s.Agents[i].Brain
		}
		outputs := e.batch.ForwardMany(ctrls, g.inputs)
		for j, i := range g.agents {
			a := &s.Agents[i]
			a.Output = outputs[j]
			if m := e.minds[a.Org.ID]; m != nil {
				m.output = outputs[j]
			}
			systems.Locomote(a, a.Output, dt, e.world)
			systems.Metabolize(a, live[a.Org.Kind].meta, dt)
		}
	}
}

// commit applies the substep's removals and births to ECS storage.
func (e *Engine) commit() {
	s := &e.state

	var deadAgents, eatenFood []ecs.Entity
	for i := range s.Agents {
		a := &s.Agents[i]
		if !a.Dead {
			continue
		}
		deadAgents = append(deadAgents, a.E)
		delete(e.minds, a.Org.ID)
		if e.selected == a.Org.ID {
			e.selected = 0
		}
	}
	for i := range s.Foods {
		if s.Foods[i].Eaten {
			eatenFood = append(eatenFood, s.Foods[i].E)
		}
	}
	// views hold pointers into storage, so they go before anything moves
	births := append([]systems.Birth(nil), s.Births...)
	s.Reset()

	for _, entity := range deadAgents {
		e.agentMap.Remove(entity)
	}
	for _, entity := range eatenFood {
		e.foodMap.Remove(entity)
	}
	for _, b := range births {
		e.spawnAgent(b, 0)
		e.collector.RecordBirths(b.Kind, 1)
	}
}

// population samples the state a stats window closes on.
func (e *Engine) population() telemetry.Population {
	var pop telemetry.Population
	query := e.agentFilter.Query()
	for query.Next() {
		org, _, _, _, _, energy, _, _ := query.Get()
		pop.Counts[org.Kind]++
		pop.Energies[org.Kind] = append(pop.Energies[org.Kind], energy.Value)
		pop.Ages = append(pop.Ages, energy.Age)
	}
	fq := e.foodFilter.Query()
	for fq.Next() {
		_, _, item := fq.Get()
		pop.Counts[components.KindFood]++
		pop.FoodEnergy += item.Energy
	}
	return pop
}
