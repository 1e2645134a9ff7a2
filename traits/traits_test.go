package traits

import (
	"math/rand"
	"testing"

	"github.com/pthm-cable/petri/components"
	"github.com/pthm-cable/petri/config"
)

func TestForKind(t *testing.T) {
	if For(components.KindBacteria) != Bacteria {
		t.Error("bacteria traits not returned")
	}
	if For(components.KindPredator) != Predator {
		t.Error("predator traits not returned")
	}
	if For(components.KindFood) != nil {
		t.Error("food should have no traits")
	}
}

func TestControllerMatchesSensor(t *testing.T) {
	p := config.Defaults()
	p.Set("bacteria_retina_count", 12)
	p.Set("bacteria_hidden_layers", 2)
	p.Set("bacteria_neurons_layer_1", 7)
	p.Set("bacteria_neurons_layer_2", 5)

	c, err := Bacteria.BuildController(p, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatal(err)
	}
	want := []int{12, 7, 5, 2}
	if len(c.Sizes) != len(want) {
		t.Fatalf("got sizes %v, want %v", c.Sizes, want)
	}
	for i := range want {
		if c.Sizes[i] != want[i] {
			t.Errorf("got sizes %v, want %v", c.Sizes, want)
			break
		}
	}
	if Bacteria.BuildSensor(p).Size() != 12 {
		t.Error("sensor size does not match controller input")
	}
}

func TestSensorConfigFromParams(t *testing.T) {
	p := config.Defaults()
	p.Set("retina_skip", 3)
	p.Set("retina_vision_mode", "single")

	cfg := Predator.SensorConfig(p)
	if !cfg.SeeFood || !cfg.SeeBacteria || cfg.SeePredators {
		t.Errorf("predator visibility: got %+v", cfg)
	}
	if cfg.Skip != 3 {
		t.Errorf("skip: got %d, want 3", cfg.Skip)
	}
	if cfg.Mode.String() != "single" {
		t.Errorf("mode: got %v, want single", cfg.Mode)
	}
	if b := Bacteria.SensorConfig(p); b.SeeBacteria || b.SeePredators {
		t.Errorf("bacteria visibility: got %+v", b)
	}
}

func TestMetabolismDefaults(t *testing.T) {
	p := config.Defaults()
	m := Bacteria.BuildMetabolism(p)
	if m.V0Cost != 0.5 || m.VmaxCost != 8 || m.EnergyCap != 400 {
		t.Errorf("bacteria metabolism: got %+v", m)
	}
	if m.VmaxRef != 300 {
		t.Errorf("VmaxRef should follow max speed: got %v", m.VmaxRef)
	}
	if pm := Predator.BuildMetabolism(p); pm.EnergyCap != 600 || pm.VmaxCost != 15 {
		t.Errorf("predator metabolism: got %+v", pm)
	}
}

func TestMutationRateClamped(t *testing.T) {
	p := config.Defaults()
	p.SetRaw("bacteria_mutation_rate", 3.0)
	if got := Bacteria.MutationRate(p); got != 1 {
		t.Errorf("got %v, want 1", got)
	}
	if Bacteria.StructuralJitter(p) {
		t.Error("structural jitter should be off by default")
	}
}

func TestLimits(t *testing.T) {
	p := config.Defaults()
	lo, hi := Bacteria.Limits(p)
	if lo != 10 || hi != 300 {
		t.Errorf("bacteria limits: got %d/%d, want 10/300", lo, hi)
	}
	rlo, rhi := Predator.RadiusRange(p)
	if rlo != 10 || rhi != 18 {
		t.Errorf("predator radius: got %v-%v, want 10-18", rlo, rhi)
	}
}
