// Package telemetry provides section timing, window statistics, bookmarks,
// agent records and world snapshots.
package telemetry

import "github.com/pthm-cable/petri/components"

// Population is the state sampled when a window closes.
type Population struct {
	Counts     [components.NumKinds]int
	Energies   [components.NumKinds][]float64
	Ages       []float64
	FoodEnergy float64
}

// Collector accumulates events within windows of simulated time and
// produces WindowStats.
type Collector struct {
	windowSec   float64
	windowStart float64

	substeps      int
	births        [components.NumKinds]int
	deaths        [components.NumKinds]int
	foodEaten     int
	preyEaten     int
	foodSpawned   int
	reproFailures int
}

// NewCollector creates a collector with windows of windowSec simulated seconds.
func NewCollector(windowSec float64) *Collector {
	if windowSec <= 0 {
		windowSec = 10
	}
	return &Collector{windowSec: windowSec}
}

// Reset discards the open window and starts a new one at simTime.
func (c *Collector) Reset(simTime float64) {
	*c = Collector{windowSec: c.windowSec, windowStart: simTime}
}

// RecordSubstep counts one simulated substep.
func (c *Collector) RecordSubstep() {
	c.substeps++
}

// RecordBirths records n births of kind.
func (c *Collector) RecordBirths(kind components.Kind, n int) {
	c.births[kind] += n
}

// RecordDeaths records n starvation deaths of kind.
func (c *Collector) RecordDeaths(kind components.Kind, n int) {
	c.deaths[kind] += n
}

// RecordFeeding records pellets eaten by bacteria and prey eaten by predators.
// Eaten prey also count as bacteria deaths.
func (c *Collector) RecordFeeding(food, prey int) {
	c.foodEaten += food
	c.preyEaten += prey
	c.deaths[components.KindBacteria] += prey
}

// RecordFoodSpawned records pellets placed by the food controller.
func (c *Collector) RecordFoodSpawned(n int) {
	c.foodSpawned += n
}

// RecordReproFailure records a reproduction that was skipped after an error.
func (c *Collector) RecordReproFailure() {
	c.reproFailures++
}

// ShouldFlush reports whether the window ending at simTime is complete.
func (c *Collector) ShouldFlush(simTime float64) bool {
	return simTime-c.windowStart >= c.windowSec
}

// Flush produces WindowStats for the window ending at simTime and resets
// the counters.
func (c *Collector) Flush(simTime float64, pop Population) WindowStats {
	bact := SummarizeEnergy(pop.Energies[components.KindBacteria])
	pred := SummarizeEnergy(pop.Energies[components.KindPredator])
	ages := SummarizeEnergy(pop.Ages)

	stats := WindowStats{
		WindowStart: c.windowStart,
		WindowEnd:   simTime,
		Substeps:    c.substeps,

		Bacteria:  pop.Counts[components.KindBacteria],
		Predators: pop.Counts[components.KindPredator],
		Food:      pop.Counts[components.KindFood],

		BacteriaBirths: c.births[components.KindBacteria],
		PredatorBirths: c.births[components.KindPredator],
		BacteriaDeaths: c.deaths[components.KindBacteria],
		PredatorDeaths: c.deaths[components.KindPredator],
		FoodEaten:      c.foodEaten,
		PreyEaten:      c.preyEaten,
		FoodSpawned:    c.foodSpawned,
		ReproFailures:  c.reproFailures,

		BacteriaEnergyMean: bact.Mean,
		BacteriaEnergyStd:  bact.Std,
		BacteriaEnergyP10:  bact.P10,
		BacteriaEnergyP50:  bact.P50,
		BacteriaEnergyP90:  bact.P90,

		PredatorEnergyMean: pred.Mean,
		PredatorEnergyStd:  pred.Std,
		PredatorEnergyP10:  pred.P10,
		PredatorEnergyP50:  pred.P50,
		PredatorEnergyP90:  pred.P90,

		AgentEnergy: bact.Total + pred.Total,
		FoodEnergy:  pop.FoodEnergy,
		MeanAge:     ages.Mean,
	}

	c.Reset(simTime)
	return stats
}
