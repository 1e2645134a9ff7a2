package telemetry

import (
	"bytes"
	"errors"
	"math/rand"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/floats"

	"github.com/pthm-cable/petri/components"
	"github.com/pthm-cable/petri/config"
	"github.com/pthm-cable/petri/neural"
	"github.com/pthm-cable/petri/traits"
)

func testAgent(t *testing.T, rng *rand.Rand) AgentState {
	t.Helper()
	p := config.Defaults()
	tr := traits.Predator
	brain, err := tr.BuildController(p, rng)
	if err != nil {
		t.Fatal(err)
	}
	return AgentState{
		Kind:    components.KindPredator,
		X:       120.25,
		Y:       333.5,
		Radius:  14,
		Heading: -1.25,
		VX:      3,
		VY:      -4,
		Energy:  210.125,
		Age:     7.5,
		Color:   components.Color{R: 10, G: 20, B: 30},
		Brain:   brain,
		Sensor:  tr.SensorConfig(p),
		Loco:    tr.BuildLocomotion(p),
		Meta:    tr.BuildMetabolism(p),
	}
}

func TestAgentRecordRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	want := testAgent(t, rng)

	var buf bytes.Buffer
	if err := EncodeAgent(want).WriteCSV(&buf); err != nil {
		t.Fatal(err)
	}
	rec, err := ReadAgentCSV(&buf)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeAgent(rec, config.Defaults(), rng)
	if err != nil {
		t.Fatal(err)
	}

	if got.Kind != want.Kind || got.X != want.X || got.Y != want.Y || got.Radius != want.Radius {
		t.Errorf("pose: got %+v", got)
	}
	if got.Heading != want.Heading || got.VX != want.VX || got.VY != want.VY {
		t.Errorf("motion: got %v (%v, %v)", got.Heading, got.VX, got.VY)
	}
	if got.Energy != want.Energy || got.Age != want.Age || got.Color != want.Color {
		t.Errorf("state: got energy %v age %v color %v", got.Energy, got.Age, got.Color)
	}
	if got.Sensor != want.Sensor || got.Loco != want.Loco || got.Meta != want.Meta {
		t.Errorf("species components differ: %+v %+v %+v", got.Sensor, got.Loco, got.Meta)
	}
	if !floats.Equal(got.Brain.Flatten(), want.Brain.Flatten()) {
		t.Error("controller weights changed")
	}
}

func TestAgentRecordKeysInOrder(t *testing.T) {
	rec := EncodeAgent(testAgent(t, rand.New(rand.NewSource(1))))
	keys := rec.Keys()
	if keys[0] != "type" || keys[1] != "x" {
		t.Errorf("first keys: got %v", keys[:2])
	}
	for _, k := range []string{"brain_sizes", "brain_weight_0", "brain_bias_2", "sensor_mode", "locomotion_max_turn", "energy_split"} {
		if !rec.Has(k) {
			t.Errorf("missing key %s", k)
		}
	}
}

func TestDecodeAgentUsesSpeciesDefaults(t *testing.T) {
	p := config.Defaults()
	rec := NewAgentRecord()
	rec.Set("type", "predator")
	rec.Set("x", 50.0)

	got, err := DecodeAgent(rec, p, rand.New(rand.NewSource(2)))
	if err != nil {
		t.Fatal(err)
	}
	if got.X != 50 || got.Energy != 150 || got.Radius != 14 {
		t.Errorf("defaults: got x %v energy %v r %v", got.X, got.Energy, got.Radius)
	}
	if got.Color != components.ColorPredator {
		t.Errorf("color: got %v", got.Color)
	}
	if got.Brain.InputSize() != got.Sensor.Count || got.Brain.OutputSize() != neural.NumOutputs {
		t.Errorf("fresh controller %v does not fit sensor %d", got.Brain.Sizes, got.Sensor.Count)
	}
}

func TestDecodeAgentReplacesBrokenBrain(t *testing.T) {
	rec := NewAgentRecord()
	rec.Set("type", "bacteria")
	rec.Set("brain_sizes", "18 4 2")
	rec.Set("brain_weight_0", []float64{1, 2, 3})
	rec.Set("brain_bias_0", []float64{0, 0, 0, 0})

	got, err := DecodeAgent(rec, config.Defaults(), rand.New(rand.NewSource(3)))
	if err != nil {
		t.Fatal(err)
	}
	want := []int{18, 20, 20, 20, 20, 2}
	if len(got.Brain.Sizes) != len(want) {
		t.Fatalf("sizes: got %v, want %v", got.Brain.Sizes, want)
	}
	for i := range want {
		if got.Brain.Sizes[i] != want[i] {
			t.Fatalf("sizes: got %v, want %v", got.Brain.Sizes, want)
		}
	}
}

func TestDecodeAgentMatchesControllerToSensor(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	a := testAgent(t, rng)
	a.Sensor.Count = 7
	rec := EncodeAgent(a)

	got, err := DecodeAgent(rec, config.Defaults(), rng)
	if err != nil {
		t.Fatal(err)
	}
	if got.Sensor.Count != 7 || got.Brain.InputSize() != 7 {
		t.Errorf("sensor %d, controller input %d, want 7", got.Sensor.Count, got.Brain.InputSize())
	}
}

func TestDecodeAgentClampsEnergy(t *testing.T) {
	rec := NewAgentRecord()
	rec.Set("type", "bacteria")
	rec.Set("energy", 1e6)
	got, err := DecodeAgent(rec, config.Defaults(), rand.New(rand.NewSource(5)))
	if err != nil {
		t.Fatal(err)
	}
	if got.Energy != got.Meta.EnergyCap {
		t.Errorf("energy: got %v, want cap %v", got.Energy, got.Meta.EnergyCap)
	}
}

func TestDecodeAgentClampsSensorCount(t *testing.T) {
	tests := []struct {
		count float64
		want  int
	}{
		{1e9, MaxSensorCount},
		{-3, 1},
		{12, 12},
	}
	for _, tt := range tests {
		rec := NewAgentRecord()
		rec.Set("type", "bacteria")
		rec.Set("sensor_count", tt.count)
		got, err := DecodeAgent(rec, config.Defaults(), rand.New(rand.NewSource(8)))
		if err != nil {
			t.Fatal(err)
		}
		if got.Sensor.Count != tt.want {
			t.Errorf("sensor_count %v: got %d, want %d", tt.count, got.Sensor.Count, tt.want)
		}
	}
}

func TestDecodeAgentErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	p := config.Defaults()

	if _, err := DecodeAgent(NewAgentRecord(), p, rng); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("missing type: got %v, want ErrUnknownKey", err)
	}
	for _, typ := range []string{"food", "virus"} {
		rec := NewAgentRecord()
		rec.Set("type", typ)
		if _, err := DecodeAgent(rec, p, rng); !errors.Is(err, ErrUnknownKind) {
			t.Errorf("type %q: got %v, want ErrUnknownKind", typ, err)
		}
	}
}

func TestAgentFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.csv")
	rec := EncodeAgent(testAgent(t, rand.New(rand.NewSource(7))))
	if err := SaveAgentFile(path, rec); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadAgentFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Keys()) != len(rec.Keys()) {
		t.Errorf("keys: got %d, want %d", len(loaded.Keys()), len(rec.Keys()))
	}
	for _, k := range rec.Keys() {
		a, _ := rec.String(k)
		b, _ := loaded.String(k)
		if a != b {
			t.Errorf("key %s: got %q, want %q", k, b, a)
		}
	}
}
