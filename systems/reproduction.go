package systems

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/pthm-cable/petri/components"
	"github.com/pthm-cable/petri/traits"
	"github.com/pthm-cable/petri/world"
)

// ErrNoController is returned when an agent without a controller tries to reproduce.
var ErrNoController = errors.New("systems: agent has no controller")

// Reproduce queues one child for every agent able to split while its species
// is below the population cap. The cap counts living agents plus children
// already queued this substep. A failing agent is logged, skipped and counted
// in failed.
func Reproduce(s *State) (born, failed int) {
	counts := [components.NumKinds]int{}
	for i := range s.Agents {
		if !s.Agents[i].Dead {
			counts[s.Agents[i].Org.Kind]++
		}
	}
	for i := range s.Births {
		counts[s.Births[i].Kind]++
	}

	for i := range s.Agents {
		a := &s.Agents[i]
		if a.Dead || !a.Meta.CanReproduce(a.Energy.Value) {
			continue
		}
		tr := traits.For(a.Org.Kind)
		if tr == nil {
			continue
		}
		_, maxLimit := tr.Limits(s.Params)
		if counts[a.Org.Kind] >= maxLimit {
			continue
		}

		b, err := SpawnChild(s, a, tr)
		if err != nil {
			slog.Warn("reproduction_failed", "id", a.Org.ID, "kind", a.Org.Kind.String(), "error", err)
			failed++
			continue
		}
		s.Births = append(s.Births, b)
		counts[a.Org.Kind]++
		born++
	}
	return born, failed
}

// SpawnChild splits the parent's energy and builds the child: a mutated copy
// of the parent's controller, fresh species components and the parent's color,
// placed half a radius ahead along a jittered heading.
func SpawnChild(s *State, a *Agent, tr traits.SpeciesTraits) (Birth, error) {
	if a.Brain == nil {
		return Birth{}, ErrNoController
	}

	brain := a.Brain.Copy()
	brain.Mutate(s.Rng, tr.MutationRate(s.Params), tr.MutationStrength(s.Params), tr.StructuralJitter(s.Params))
	sensor := tr.BuildSensor(s.Params)
	if err := brain.ResizeInput(s.Rng, sensor.Size()); err != nil {
		return Birth{}, fmt.Errorf("child controller: %w", err)
	}

	heading := world.NormalizeAngle(a.Rot.Heading + (s.Rng.Float64()*2-1)*0.5)
	speed := a.Speed()*0.5 + (s.Rng.Float64()*2-1)*30
	r := a.Body.Radius
	x := a.Pos.X + math.Cos(heading)*r*0.5
	y := a.Pos.Y + math.Sin(heading)*r*0.5
	if s.World != nil {
		x, y = s.World.Clamp(x, y, r)
	}

	meta := tr.BuildMetabolism(s.Params)
	energy := meta.ClampEnergy(PrepareReproduction(a))

	return Birth{
		Kind:    a.Org.Kind,
		Parent:  a.Org.ID,
		Pos:     components.Position{X: x, Y: y},
		Vel:     components.Velocity{X: math.Cos(heading) * speed, Y: math.Sin(heading) * speed},
		Heading: heading,
		Body:    *a.Body,
		Energy:  energy,
		Color:   a.Org.Color,
		Loco:    tr.BuildLocomotion(s.Params),
		Meta:    meta,
		Brain:   brain,
		Sensor:  sensor,
	}, nil
}
