package systems

import (
	"math"

	"github.com/pthm-cable/petri/neural"
	"github.com/pthm-cable/petri/world"
)

const (
	// circleRestitution scales the reflected radial velocity at a circular wall.
	circleRestitution = 1.5
	// wallDamping scales the inverted velocity axis at a rectangular wall.
	wallDamping = 0.5
)

// Locomote turns controller outputs into motion for one agent.
// out[0] drives speed through a sigmoid, out[1] drives steering through tanh.
// An agent with fewer than two outputs does not move.
func Locomote(a *Agent, out []float64, dt float64, w *world.World) {
	if len(out) < 2 {
		return
	}

	speed := neural.Sigmoid(out[0]) * a.Loco.MaxSpeed
	steer := math.Tanh(out[1])

	a.Rot.Heading = world.NormalizeAngle(a.Rot.Heading + steer*a.Loco.MaxTurn*dt)
	a.Vel.X = math.Cos(a.Rot.Heading) * speed
	a.Vel.Y = math.Sin(a.Rot.Heading) * speed
	a.Pos.X += a.Vel.X * dt
	a.Pos.Y += a.Vel.Y * dt

	Confine(a, w)
}

// Confine keeps an agent inside the world, bouncing it off the boundary.
func Confine(a *Agent, w *world.World) {
	r := a.Body.Radius
	if w.Shape == world.Circular {
		dx, dy := a.Pos.X-w.CX, a.Pos.Y-w.CY
		dist := math.Hypot(dx, dy)
		lim := w.Radius - r
		if dist <= lim || dist == 0 {
			return
		}
		nx, ny := dx/dist, dy/dist
		a.Pos.X, a.Pos.Y = w.Clamp(a.Pos.X, a.Pos.Y, r)
		vn := a.Vel.X*nx + a.Vel.Y*ny
		a.Vel.X -= circleRestitution * vn * nx
		a.Vel.Y -= circleRestitution * vn * ny
		return
	}

	if a.Pos.X < r {
		a.Pos.X = r
		a.Vel.X = -a.Vel.X * wallDamping
	} else if a.Pos.X > w.Width-r {
		a.Pos.X = w.Width - r
		a.Vel.X = -a.Vel.X * wallDamping
	}
	if a.Pos.Y < r {
		a.Pos.Y = r
		a.Vel.Y = -a.Vel.Y * wallDamping
	} else if a.Pos.Y > w.Height-r {
		a.Pos.Y = w.Height - r
		a.Vel.Y = -a.Vel.Y * wallDamping
	}
}
