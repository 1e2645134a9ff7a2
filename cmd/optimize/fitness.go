package main

import (
	"log/slog"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/petri/config"
	"github.com/pthm-cable/petri/engine"
	"github.com/pthm-cable/petri/telemetry"
)

// FitnessEvaluator fans one parameter vector out over several seeded
// headless engines and scores how long both species coexist.
type FitnessEvaluator struct {
	params      *ParamVector
	maxSimSec   float64
	seeds       []int64
	base        *config.Params
	statsWindow float64

	mu   sync.Mutex
	best bestRun
}

// bestRun is the single seed run behind the lowest average fitness so far.
type bestRun struct {
	fitness  float64
	windows  []telemetry.WindowStats
	snapshot *telemetry.WorldSnapshot
}

// evaluation is the seed-averaged score of one parameter vector.
type evaluation struct {
	Fitness     float64
	SurvivalSec float64
	Quality     float64
	Failed      int
}

// NewFitnessEvaluator creates an evaluator. Every run starts from a copy of
// base with predators enabled and stops after maxSimSec simulated seconds.
func NewFitnessEvaluator(params *ParamVector, maxSimSec float64, seeds []int64, base *config.Params) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		maxSimSec:   maxSimSec,
		seeds:       seeds,
		base:        base,
		statsWindow: 10.0,
		best:        bestRun{fitness: math.Inf(1)},
	}
}

// Best returns the window stats and final world of the best run so far.
func (fe *FitnessEvaluator) Best() ([]telemetry.WindowStats, *telemetry.WorldSnapshot) {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.best.windows, fe.best.snapshot
}

// If either species stays below minViablePop for extinctionGraceSec it
// counts as functionally extinct.
const (
	minViablePop       = 3
	extinctionGraceSec = 30.0
	warmupSec          = 5.0
)

// runResult holds the results from a single simulation run.
type runResult struct {
	survivalSec float64
	windowStats []telemetry.WindowStats
	snapshot    *telemetry.WorldSnapshot
	bacteriaCap float64
	predatorCap float64
}

// Evaluate scores raw parameter values on every seed concurrently and
// returns the averages. Lower fitness is better. A failed seed scores zero.
func (fe *FitnessEvaluator) Evaluate(x []float64) evaluation {
	results := make([]*runResult, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := fe.runSimulation(x, seed)
			if err != nil {
				slog.Warn("run_failed", "seed", seed, "error", err)
				return
			}
			results[i] = r
		}()
	}
	wg.Wait()

	var ev evaluation
	var best *runResult
	bestFitness := math.Inf(1)
	for _, r := range results {
		if r == nil {
			ev.Failed++
			continue
		}
		q := computeQuality(r)
		f := computeFitness(r.survivalSec, q)
		ev.Fitness += f
		ev.SurvivalSec += r.survivalSec
		ev.Quality += q
		if f < bestFitness {
			bestFitness, best = f, r
		}
	}
	n := float64(len(fe.seeds))
	ev.Fitness /= n
	ev.SurvivalSec /= n
	ev.Quality /= n

	if best != nil {
		fe.mu.Lock()
		if ev.Fitness < fe.best.fitness {
			fe.best = bestRun{fitness: ev.Fitness, windows: best.windowStats, snapshot: best.snapshot}
		}
		fe.mu.Unlock()
	}
	return ev
}

// runSimulation steps one engine at the base rate until functional
// extinction or maxSimSec, whichever comes first.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) (*runResult, error) {
	p := fe.base.Copy()
	p.SetRaw("predators_enabled", true)
	p.SetRaw("stats_window", fe.statsWindow)
	if err := fe.params.Apply(p, x); err != nil {
		return nil, err
	}

	result := &runResult{
		bacteriaCap: p.Float("bacteria_energy_cap", 400),
		predatorCap: p.Float("predator_energy_cap", 600),
	}
	e := engine.New(p, engine.Options{
		Seed: seed,
		OnWindow: func(stats telemetry.WindowStats) {
			result.windowStats = append(result.windowStats, stats)
		},
	})
	e.Start()
	defer e.Stop()

	dt := engine.BaseDT
	maxTicks := int(fe.maxSimSec / dt)
	graceTicks := int(extinctionGraceSec / dt)
	warmupTicks := int(warmupSec / dt)
	var bactBelow, predBelow int

	tick := 1
	for ; tick <= maxTicks; tick++ {
		e.Step(dt)
		if tick < warmupTicks {
			continue
		}
		info := e.Frame().Info
		if info.Bacteria == 0 || info.Predators == 0 {
			break
		}
		bactBelow = belowCount(info.Bacteria, bactBelow)
		predBelow = belowCount(info.Predators, predBelow)
		if bactBelow >= graceTicks || predBelow >= graceTicks {
			break
		}
	}
	result.survivalSec = float64(min(tick, maxTicks)) * dt
	result.snapshot = e.Snapshot()
	return result, nil
}

func belowCount(pop, below int) int {
	if pop < minViablePop {
		return below + 1
	}
	return 0
}

// computeFitness is -(survivalSec * (1 + qualityBonus*quality)): survival
// dominates and quality separates runs that last about as long.
func computeFitness(survivalSec, quality float64) float64 {
	return -survivalSec * (1 + qualityBonus*quality)
}

// qualityBonus is the largest share quality can add to survival.
const qualityBonus = 0.2

// Quality component weights.
const (
	qualityWeightRatio     = 0.30
	qualityWeightStability = 0.25
	qualityWeightEnergy    = 0.25
	qualityWeightHunting   = 0.20

	qualityWarmupWindows = 3 // skip first N windows
	qualityMinPop        = 3 // exclude windows where either species < this
)

// computeQuality computes ecosystem quality in [0, 1] from window stats.
func computeQuality(r *runResult) float64 {
	windows := r.windowStats
	if len(windows) <= qualityWarmupWindows {
		return 0
	}
	valid := windows[qualityWarmupWindows:]

	var ratioSum, energySum, huntSum float64
	var count, huntCount int
	bactCounts := make([]float64, 0, len(valid))
	predCounts := make([]float64, 0, len(valid))

	for _, w := range valid {
		if w.Bacteria < qualityMinPop || w.Predators < qualityMinPop {
			continue
		}
		bactCounts = append(bactCounts, float64(w.Bacteria))
		predCounts = append(predCounts, float64(w.Predators))

		// Population ratio near 10:1
		logErr := math.Log(float64(w.Bacteria) / float64(w.Predators) / 10.0)
		ratioSum += math.Exp(-logErr * logErr)

		// Median energy near 40% of capacity
		bactH := math.Exp(-math.Pow((w.BacteriaEnergyP50/r.bacteriaCap-0.40)/0.20, 2))
		predH := math.Exp(-math.Pow((w.PredatorEnergyP50/r.predatorCap-0.40)/0.20, 2))
		energySum += (bactH + predH) / 2.0
		count++

		if w.PreyEaten > 0 {
			perPred := float64(w.PreyEaten) / float64(w.Predators)
			huntSum += 1.0 - math.Exp(-perPred/3.0)
			huntCount++
		}
	}
	if count == 0 {
		return 0
	}

	stability := 0.0
	if len(bactCounts) >= 2 {
		cb, cp := cv(bactCounts), cv(predCounts)
		stability = math.Exp(-(cb*cb + cp*cp))
	}
	hunting := 0.0
	if huntCount > 0 {
		hunting = huntSum / float64(huntCount)
	}

	quality := qualityWeightRatio*ratioSum/float64(count) +
		qualityWeightStability*stability +
		qualityWeightEnergy*energySum/float64(count) +
		qualityWeightHunting*hunting
	return min(max(quality, 0), 1)
}

// cv computes the coefficient of variation (std/mean).
func cv(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean, std := stat.PopMeanStdDev(values, nil)
	if mean == 0 {
		return 0
	}
	return std / mean
}
