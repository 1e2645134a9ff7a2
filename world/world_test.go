package world

import (
	"math"
	"math/rand"
	"testing"
)

func TestRectangularClamp(t *testing.T) {
	w := New(1000, 700, Rectangular, 400)

	tests := []struct {
		name         string
		x, y, r      float64
		wantX, wantY float64
	}{
		{"inside", 500, 350, 8, 500, 350},
		{"left", -20, 350, 8, 8, 350},
		{"bottom right", 1200, 900, 8, 992, 692},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			x, y := w.Clamp(tc.x, tc.y, tc.r)
			if x != tc.wantX || y != tc.wantY {
				t.Errorf("got (%f, %f), want (%f, %f)", x, y, tc.wantX, tc.wantY)
			}
			if !w.IsInside(x, y, tc.r) {
				t.Errorf("clamped point (%f, %f) reported outside", x, y)
			}
		})
	}
}

func TestCircularClamp(t *testing.T) {
	w := New(1000, 700, Circular, 300)

	x, y := w.Clamp(w.CX+1000, w.CY, 10)
	if math.Abs(x-(w.CX+290)) > 1e-9 || math.Abs(y-w.CY) > 1e-9 {
		t.Errorf("got (%f, %f), want (%f, %f)", x, y, w.CX+290, w.CY)
	}
	if !w.IsInside(x, y, 10) {
		t.Error("clamped point should be inside")
	}
}

func TestWrap(t *testing.T) {
	w := New(100, 50, Rectangular, 400)
	x, y := w.Wrap(-10, 120)
	if x != 90 || y != 20 {
		t.Errorf("got (%f, %f), want (90, 20)", x, y)
	}
}

func TestDistanceToWall(t *testing.T) {
	rect := New(100, 50, Rectangular, 400)
	if d := rect.DistanceToWall(10, 20); d != 10 {
		t.Errorf("rect: got %f, want 10", d)
	}
	circ := New(1000, 1000, Circular, 200)
	if d := circ.DistanceToWall(500, 400); math.Abs(d-100) > 1e-9 {
		t.Errorf("circle: got %f, want 100", d)
	}
}

func TestRandomPointInside(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, shape := range []Shape{Rectangular, Circular} {
		w := New(1000, 700, shape, 300)
		for i := 0; i < 500; i++ {
			x, y := w.RandomPoint(rng, 12)
			if !w.IsInside(x, y, 12) {
				t.Fatalf("%s: sample (%f, %f) outside", shape, x, y)
			}
		}
	}
}

func TestConfigureMinimums(t *testing.T) {
	w := New(1000, 700, Rectangular, 400)
	w.Configure(Circular, 2, 0, 0)
	if w.Radius != 10 {
		t.Errorf("radius: got %f, want 10", w.Radius)
	}
	if w.Width != 1000 || w.Height != 700 {
		t.Errorf("dimensions should be kept, got %fx%f", w.Width, w.Height)
	}
}
