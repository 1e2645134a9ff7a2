package systems

import (
	"sort"

	"github.com/pthm-cable/petri/components"
	"github.com/pthm-cable/petri/traits"
)

// ApplyDeaths kills starving agents, at most maxPerStep per species and never
// below the species floor. Candidates that are spared are lifted to the
// survival floor: death energy plus the species margin.
func ApplyDeaths(s *State, maxPerStep int) (deaths [components.NumKinds]int) {
	for _, tr := range []traits.SpeciesTraits{traits.Bacteria, traits.Predator} {
		deaths[tr.Kind()] = applyDeaths(s, tr, maxPerStep)
	}
	return deaths
}

func applyDeaths(s *State, tr traits.SpeciesTraits, maxPerStep int) int {
	kind := tr.Kind()
	var candidates []*Agent
	population := 0
	for i := range s.Agents {
		a := &s.Agents[i]
		if a.Dead || a.Org.Kind != kind {
			continue
		}
		population++
		if a.Meta.ShouldDie(a.Energy.Value) {
			candidates = append(candidates, a)
		}
	}
	if len(candidates) == 0 {
		return 0
	}
	// queued children already count toward the floor
	for _, b := range s.Births {
		if b.Kind == kind {
			population++
		}
	}

	minLimit, _ := tr.Limits(s.Params)
	margin := tr.SurvivalMargin(s.Params)

	kill := 0
	if population > minLimit {
		kill = min(population-minLimit, max(maxPerStep, 0), len(candidates))
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Energy.Value < candidates[j].Energy.Value
	})
	for _, a := range candidates[:kill] {
		a.Dead = true
	}
	for _, a := range candidates[kill:] {
		floor := a.Meta.ClampEnergy(a.Meta.DeathEnergy + margin)
		a.Energy.Value = max(a.Energy.Value, floor)
	}
	return kill
}
