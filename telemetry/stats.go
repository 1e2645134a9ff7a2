package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for one window of simulated time.
type WindowStats struct {
	WindowStart float64 `csv:"-"`
	WindowEnd   float64 `csv:"sim_time"`
	Substeps    int     `csv:"substeps"`

	// Population at window end
	Bacteria  int `csv:"bacteria"`
	Predators int `csv:"predators"`
	Food      int `csv:"food"`

	// Events during the window
	BacteriaBirths int `csv:"bacteria_births"`
	PredatorBirths int `csv:"predator_births"`
	BacteriaDeaths int `csv:"bacteria_deaths"`
	PredatorDeaths int `csv:"predator_deaths"`
	FoodEaten      int `csv:"food_eaten"`
	PreyEaten      int `csv:"prey_eaten"`
	FoodSpawned    int `csv:"food_spawned"`
	ReproFailures  int `csv:"repro_failures"`

	// Energy distribution at window end
	BacteriaEnergyMean float64 `csv:"bacteria_energy_mean"`
	BacteriaEnergyStd  float64 `csv:"bacteria_energy_std"`
	BacteriaEnergyP10  float64 `csv:"bacteria_energy_p10"`
	BacteriaEnergyP50  float64 `csv:"bacteria_energy_p50"`
	BacteriaEnergyP90  float64 `csv:"bacteria_energy_p90"`

	PredatorEnergyMean float64 `csv:"predator_energy_mean"`
	PredatorEnergyStd  float64 `csv:"predator_energy_std"`
	PredatorEnergyP10  float64 `csv:"predator_energy_p10"`
	PredatorEnergyP50  float64 `csv:"predator_energy_p50"`
	PredatorEnergyP90  float64 `csv:"predator_energy_p90"`

	// Energy pools
	AgentEnergy float64 `csv:"agent_energy"`
	FoodEnergy  float64 `csv:"food_energy"`

	MeanAge float64 `csv:"mean_age"`
}

// EnergySummary is the distribution of one species' energy.
type EnergySummary struct {
	Mean, Std     float64
	P10, P50, P90 float64
	Total         float64
}

// Percentile calculates the p-th percentile of a sorted slice by linear
// interpolation. p should be in [0, 1]. Returns 0 if the slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// SummarizeEnergy computes the mean, population standard deviation, total
// and percentiles of values. values is not modified.
func SummarizeEnergy(values []float64) EnergySummary {
	if len(values) == 0 {
		return EnergySummary{}
	}
	mean, std := stat.PopMeanStdDev(values, nil)

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return EnergySummary{
		Mean:  mean,
		Std:   std,
		P10:   Percentile(sorted, 0.10),
		P50:   Percentile(sorted, 0.50),
		P90:   Percentile(sorted, 0.90),
		Total: floats.Sum(values),
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("window_start", s.WindowStart),
		slog.Float64("sim_time", s.WindowEnd),
		slog.Int("substeps", s.Substeps),
		slog.Int("bacteria", s.Bacteria),
		slog.Int("predators", s.Predators),
		slog.Int("food", s.Food),
		slog.Int("bacteria_births", s.BacteriaBirths),
		slog.Int("predator_births", s.PredatorBirths),
		slog.Int("bacteria_deaths", s.BacteriaDeaths),
		slog.Int("predator_deaths", s.PredatorDeaths),
		slog.Int("food_eaten", s.FoodEaten),
		slog.Int("prey_eaten", s.PreyEaten),
		slog.Int("food_spawned", s.FoodSpawned),
		slog.Int("repro_failures", s.ReproFailures),
		slog.Float64("bacteria_energy_mean", s.BacteriaEnergyMean),
		slog.Float64("bacteria_energy_p50", s.BacteriaEnergyP50),
		slog.Float64("predator_energy_mean", s.PredatorEnergyMean),
		slog.Float64("predator_energy_p50", s.PredatorEnergyP50),
		slog.Float64("agent_energy", s.AgentEnergy),
		slog.Float64("food_energy", s.FoodEnergy),
		slog.Float64("mean_age", s.MeanAge),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"sim_time", s.WindowEnd,
		"bacteria", s.Bacteria,
		"predators", s.Predators,
		"food", s.Food,
		"bacteria_births", s.BacteriaBirths,
		"predator_births", s.PredatorBirths,
		"bacteria_deaths", s.BacteriaDeaths,
		"predator_deaths", s.PredatorDeaths,
		"food_eaten", s.FoodEaten,
		"prey_eaten", s.PreyEaten,
		"bacteria_energy_mean", s.BacteriaEnergyMean,
		"bacteria_energy_p10", s.BacteriaEnergyP10,
		"bacteria_energy_p90", s.BacteriaEnergyP90,
		"predator_energy_mean", s.PredatorEnergyMean,
		"agent_energy", s.AgentEnergy,
		"food_energy", s.FoodEnergy,
	)
}
