package components

import (
	"math"
	"testing"
)

func TestMetabolismCostCurve(t *testing.T) {
	m := Metabolism{V0Cost: 0.5, VmaxCost: 8, VmaxRef: 300}

	tests := []struct {
		name  string
		speed float64
		want  float64
	}{
		{"rest", 0, 0.5},
		{"negative clamps", -10, 0.5},
		{"half", 150, 4.25},
		{"max", 300, 8},
		{"above max clamps", 900, 8},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := m.Cost(tc.speed); math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("Cost(%f) = %f, want %f", tc.speed, got, tc.want)
			}
		})
	}
}

func TestShouldDieBoundary(t *testing.T) {
	m := Metabolism{DeathEnergy: 0}

	if !m.ShouldDie(0) {
		t.Error("energy 0 should die")
	}
	if m.ShouldDie(0.0001) {
		t.Error("energy 0.0001 should live")
	}
}

func TestCanReproduce(t *testing.T) {
	m := Metabolism{SplitEnergy: 150}
	if !m.CanReproduce(150) {
		t.Error("energy at split threshold should reproduce")
	}
	if m.CanReproduce(149.9) {
		t.Error("energy below split threshold should not reproduce")
	}
}

func TestClampEnergy(t *testing.T) {
	m := Metabolism{EnergyCap: 400}
	if got := m.ClampEnergy(-3); got != 0 {
		t.Errorf("got %f, want 0", got)
	}
	if got := m.ClampEnergy(500); got != 400 {
		t.Errorf("got %f, want 400", got)
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{KindFood, KindBacteria, KindPredator} {
		got, ok := ParseKind(k.String())
		if !ok || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), got, ok)
		}
	}
	if _, ok := ParseKind("virus"); ok {
		t.Error("unknown tag should not parse")
	}
}
