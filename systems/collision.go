package systems

import (
	"math"
)

// Collide separates every overlapping pair of living agents once and applies
// an elastic impulse along the contact normal. Inertial mass is Body.Mass.
func Collide(s *State) int {
	resolved := 0
	if s.Hash == nil {
		for i := range s.Agents {
			if s.Agents[i].Dead {
				continue
			}
			for j := i + 1; j < len(s.Agents); j++ {
				if !s.Agents[j].Dead && resolvePair(&s.Agents[i], &s.Agents[j]) {
					s.keepInside(&s.Agents[i], &s.Agents[j])
					resolved++
				}
			}
		}
		return resolved
	}

	var buf []Entry
	for i := range s.Agents {
		a := &s.Agents[i]
		if a.Dead {
			continue
		}
		buf = s.near(a.Pos.X, a.Pos.Y, a.Body.Radius, buf[:0])
		for _, e := range buf {
			// the lower index owns the pair
			if !e.Kind.IsAgent() || e.Index <= i {
				continue
			}
			b := &s.Agents[e.Index]
			if !b.Dead && resolvePair(a, b) {
				s.keepInside(a, b)
				resolved++
			}
		}
	}
	return resolved
}

// resolvePair reports whether the agents overlapped.
func resolvePair(a, b *Agent) bool {
	dx := a.Pos.X - b.Pos.X
	dy := a.Pos.Y - b.Pos.Y
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		dist, dx, dy = 0.01, 0.01, 0
	}

	overlap := a.Body.Radius + b.Body.Radius - dist
	if overlap <= 0 {
		return false
	}

	nx, ny := dx/dist, dy/dist
	ma, mb := a.Body.Mass, b.Body.Mass
	total := ma + mb
	if total == 0 {
		total = 1
	}

	// heavier agents move less
	a.Pos.X += nx * overlap * mb / total
	a.Pos.Y += ny * overlap * mb / total
	b.Pos.X -= nx * overlap * ma / total
	b.Pos.Y -= ny * overlap * ma / total

	vn := (a.Vel.X-b.Vel.X)*nx + (a.Vel.Y-b.Vel.Y)*ny
	if vn > 0 {
		return true
	}
	impulse := 2 * vn / total
	a.Vel.X -= impulse * nx * mb
	a.Vel.Y -= impulse * ny * mb
	b.Vel.X += impulse * nx * ma
	b.Vel.Y += impulse * ny * ma
	return true
}

// keepInside clamps agents pushed past the boundary by separation.
func (s *State) keepInside(agents ...*Agent) {
	if s.World == nil {
		return
	}
	for _, a := range agents {
		a.Pos.X, a.Pos.Y = s.World.Clamp(a.Pos.X, a.Pos.Y, a.Body.Radius)
	}
}
