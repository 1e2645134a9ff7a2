package systems

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pthm-cable/petri/components"
)

func TestQueryBallSupersetOfBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	h := NewSpatialHash(0, 0, 1000, 700, 24)

	entries := make([]Entry, 500)
	for i := range entries {
		entries[i] = Entry{
			Kind:  components.Kind(rng.Intn(components.NumKinds)),
			Index: i,
			X:     rng.Float64() * 1000,
			Y:     rng.Float64() * 700,
			R:     1 + rng.Float64()*11,
		}
		h.Insert(entries[i])
	}

	var got []Entry
	for q := 0; q < 200; q++ {
		x, y := rng.Float64()*1100-50, rng.Float64()*800-50
		r := rng.Float64() * 60

		got = h.QueryBall(x, y, r, got[:0])
		seen := make(map[int]int, len(got))
		for _, e := range got {
			seen[e.Index]++
		}
		for idx, n := range seen {
			if n != 1 {
				t.Fatalf("entry %d returned %d times", idx, n)
			}
		}
		for _, e := range entries {
			if math.Hypot(e.X-x, e.Y-y) <= r+e.R && seen[e.Index] == 0 {
				t.Fatalf("query (%.1f, %.1f, %.1f) missed entry %d", x, y, r, e.Index)
			}
		}
	}
}

func TestSpatialHashClearKeepsGeometry(t *testing.T) {
	h := NewSpatialHash(0, 0, 100, 100, 10)
	h.Insert(Entry{X: 50, Y: 50, R: 15})
	if h.Len() != 1 {
		t.Fatalf("got %d entries, want 1", h.Len())
	}
	if s := h.Stats(); s.OccupiedCells != 16 {
		t.Errorf("a radius-15 circle at a cell corner spans 4x4 cells, got %d", s.OccupiedCells)
	}

	h.Clear()
	if h.Len() != 0 || h.Stats().OccupiedCells != 0 {
		t.Error("Clear left entries behind")
	}
	if !h.Matches(0, 0, 100, 100, 10) {
		t.Error("geometry changed after Clear")
	}
	if h.Matches(0, 0, 200, 100, 10) {
		t.Error("Matches ignored width")
	}
}

func TestQueryRectOutsideGridClamps(t *testing.T) {
	h := NewSpatialHash(0, 0, 100, 100, 10)
	h.Insert(Entry{Index: 1, X: 1, Y: 1, R: 1})
	got := h.QueryRect(-500, -500, -400, -400, nil)
	if len(got) != 1 {
		t.Errorf("got %d entries, want the corner entry", len(got))
	}
}

func BenchmarkQueryBall(b *testing.B) {
	rng := rand.New(rand.NewSource(42))
	h := NewSpatialHash(0, 0, 1000, 700, 24)
	for i := 0; i < 1000; i++ {
		h.Insert(Entry{Index: i, X: rng.Float64() * 1000, Y: rng.Float64() * 700, R: 8})
	}
	var buf []Entry
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf = h.QueryBall(500, 350, 132, buf[:0])
	}
}
