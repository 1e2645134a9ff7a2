package telemetry

import (
	"math"
	"testing"

	"github.com/pthm-cable/petri/components"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"empty slice", []float64{}, 0.5, 0},
		{"single element", []float64{5.0}, 0.5, 5.0},
		{"p0", []float64{1, 2, 3, 4, 5}, 0.0, 1.0},
		{"p100", []float64{1, 2, 3, 4, 5}, 1.0, 5.0},
		{"p50 odd", []float64{1, 2, 3, 4, 5}, 0.5, 3.0},
		{"p50 even", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"p10", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.1, 1.9},
		{"p90", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.9, 9.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentile(tt.sorted, tt.p)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Percentile(%v, %v) = %v, want %v", tt.sorted, tt.p, got, tt.want)
			}
		})
	}
}

func TestSummarizeEnergy(t *testing.T) {
	values := []float64{1.0, 0.1, 0.9, 0.2, 0.8, 0.3, 0.7, 0.4, 0.6, 0.5}
	s := SummarizeEnergy(values)

	checks := []struct {
		name      string
		got, want float64
	}{
		{"mean", s.Mean, 0.55},
		{"std", s.Std, 0.28723},
		{"p10", s.P10, 0.19},
		{"p50", s.P50, 0.55},
		{"p90", s.P90, 0.91},
		{"total", s.Total, 5.5},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > 0.001 {
			t.Errorf("%s: got %v, want %v", c.name, c.got, c.want)
		}
	}
	if values[0] != 1.0 {
		t.Error("input slice was reordered")
	}
}

func TestSummarizeEnergyEmpty(t *testing.T) {
	if s := SummarizeEnergy(nil); s != (EnergySummary{}) {
		t.Errorf("got %+v, want zero summary", s)
	}
}

func TestCollectorFlush(t *testing.T) {
	c := NewCollector(10)

	c.RecordSubstep()
	c.RecordSubstep()
	c.RecordBirths(components.KindBacteria, 3)
	c.RecordBirths(components.KindPredator, 1)
	c.RecordDeaths(components.KindBacteria, 1)
	c.RecordFeeding(4, 2)
	c.RecordFoodSpawned(5)
	c.RecordReproFailure()

	if c.ShouldFlush(9.9) {
		t.Error("window flushed early")
	}
	if !c.ShouldFlush(10) {
		t.Fatal("window not flushed at 10s")
	}

	var pop Population
	pop.Counts[components.KindBacteria] = 2
	pop.Counts[components.KindFood] = 7
	pop.Energies[components.KindBacteria] = []float64{100, 200}
	pop.Ages = []float64{1, 3}
	pop.FoodEnergy = 175

	s := c.Flush(10, pop)
	if s.Substeps != 2 || s.BacteriaBirths != 3 || s.PredatorBirths != 1 {
		t.Errorf("counters: got %+v", s)
	}
	// one starvation death plus two eaten prey
	if s.BacteriaDeaths != 3 {
		t.Errorf("bacteria deaths: got %d, want 3", s.BacteriaDeaths)
	}
	if s.FoodEaten != 4 || s.PreyEaten != 2 || s.FoodSpawned != 5 || s.ReproFailures != 1 {
		t.Errorf("feeding: got %+v", s)
	}
	if s.Bacteria != 2 || s.Food != 7 || s.BacteriaEnergyMean != 150 || s.AgentEnergy != 300 {
		t.Errorf("population: got %+v", s)
	}
	if s.MeanAge != 2 || s.FoodEnergy != 175 {
		t.Errorf("age/food: got %v %v", s.MeanAge, s.FoodEnergy)
	}

	next := c.Flush(15, Population{})
	if next.WindowStart != 10 || next.BacteriaBirths != 0 || next.Substeps != 0 {
		t.Errorf("counters not reset: %+v", next)
	}
	if c.ShouldFlush(19) || !c.ShouldFlush(25) {
		t.Error("window start not advanced to the last flush")
	}
}
