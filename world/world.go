// Package world describes the bounded substrate agents live in.
package world

import (
	"math"
	"math/rand"
)

// Shape selects the substrate boundary.
type Shape uint8

const (
	Rectangular Shape = iota
	Circular
)

// ParseShape maps a parameter value to a Shape. Unknown names are rectangular.
func ParseShape(s string) Shape {
	if s == "circular" || s == "circle" {
		return Circular
	}
	return Rectangular
}

// String returns the parameter name of the shape.
func (s Shape) String() string {
	if s == Circular {
		return "circular"
	}
	return "rectangular"
}

// World is the bounded 2-D space. For a circular world the disc is centred
// on the rectangle's centre.
type World struct {
	Shape  Shape
	Width  float64
	Height float64
	Radius float64
	CX, CY float64
}

// New creates a world with the given geometry.
func New(width, height float64, shape Shape, radius float64) *World {
	w := &World{}
	w.Configure(shape, radius, width, height)
	return w
}

// Configure changes the geometry in place. Zero width or height keeps the current value.
func (w *World) Configure(shape Shape, radius, width, height float64) {
	w.Shape = shape
	w.Radius = math.Max(10, radius)
	if width > 0 && height > 0 {
		w.Width = math.Max(1, width)
		w.Height = math.Max(1, height)
	}
	w.CX = w.Width / 2
	w.CY = w.Height / 2
}

// IsInside reports whether a circle of radius r at (x, y) fits entirely inside.
func (w *World) IsInside(x, y, r float64) bool {
	if w.Shape == Circular {
		dx, dy := x-w.CX, y-w.CY
		lim := w.Radius - r
		return dx*dx+dy*dy <= lim*lim
	}
	return x >= r && x <= w.Width-r && y >= r && y <= w.Height-r
}

// Clamp moves (x, y) to the nearest position where a circle of radius r fits.
func (w *World) Clamp(x, y, r float64) (float64, float64) {
	if w.Shape == Circular {
		dx, dy := x-w.CX, y-w.CY
		dist := math.Hypot(dx, dy)
		maxDist := math.Max(1e-6, w.Radius-r)
		if dist > maxDist {
			s := maxDist / dist
			return w.CX + dx*s, w.CY + dy*s
		}
		return x, y
	}
	return clamp(x, r, w.Width-r), clamp(y, r, w.Height-r)
}

// Wrap applies periodic wrapping for rectangles; circular worlds clamp instead.
func (w *World) Wrap(x, y float64) (float64, float64) {
	if w.Shape == Circular {
		return w.Clamp(x, y, 0)
	}
	return mod(x, w.Width), mod(y, w.Height)
}

// DistanceToWall returns the distance from (x, y) to the nearest boundary.
// Negative values mean the point is outside.
func (w *World) DistanceToWall(x, y float64) float64 {
	if w.Shape == Circular {
		return w.Radius - math.Hypot(x-w.CX, y-w.CY)
	}
	return math.Min(math.Min(x, y), math.Min(w.Width-x, w.Height-y))
}

// RandomPoint samples a position where a circle of radius r fits,
// uniform over the rectangle or the disc.
func (w *World) RandomPoint(rng *rand.Rand, r float64) (float64, float64) {
	if w.Shape == Circular {
		lim := math.Max(0, w.Radius-r)
		// sqrt for uniform area density
		d := lim * math.Sqrt(rng.Float64())
		a := rng.Float64() * 2 * math.Pi
		return w.CX + d*math.Cos(a), w.CY + d*math.Sin(a)
	}
	lo, hiX, hiY := r, w.Width-r, w.Height-r
	if hiX < lo {
		hiX = lo
	}
	if hiY < lo {
		hiY = lo
	}
	return lo + rng.Float64()*(hiX-lo), lo + rng.Float64()*(hiY-lo)
}

// Bounds returns the axis-aligned extent that contains every valid position.
func (w *World) Bounds() (minX, minY, maxX, maxY float64) {
	if w.Shape == Circular {
		return w.CX - w.Radius, w.CY - w.Radius, w.CX + w.Radius, w.CY + w.Radius
	}
	return 0, 0, w.Width, w.Height
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		return (lo + hi) / 2
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func mod(x, m float64) float64 {
	r := math.Mod(x, m)
	if r < 0 {
		r += m
	}
	return r
}

// NormalizeAngle maps a to (-pi, pi].
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a <= 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}
