package renderer

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/petri/camera"
	"github.com/pthm-cable/petri/components"
	"github.com/pthm-cable/petri/engine"
	"github.com/pthm-cable/petri/world"
)

// Strategy draws the world contents of a frame.
type Strategy interface {
	Name() string
	Draw(f *engine.Frame, cam *camera.Camera)
}

// Names of the built-in strategies.
const (
	StrategyCircles = "circles"
	StrategyVision  = engine.RendererVision
)

// StrategyFor returns the strategy called name, falling back to circles.
func StrategyFor(name string) Strategy {
	if name == StrategyVision {
		return visionStrategy{}
	}
	return circleStrategy{}
}

// NextStrategy returns the name the renderer toggle switches to.
func NextStrategy(name string) string {
	if name == StrategyVision {
		return StrategyCircles
	}
	return StrategyVision
}

var (
	colorBackground = rl.Color{R: 12, G: 14, B: 18, A: 255}
	colorSubstrate  = rl.Color{R: 22, G: 26, B: 32, A: 255}
	colorBoundary   = rl.Color{R: 70, G: 80, B: 95, A: 255}
	colorSelection  = rl.Yellow
)

// circleStrategy draws agents as filled circles with a heading tick.
type circleStrategy struct{}

func (circleStrategy) Name() string { return StrategyCircles }

func (circleStrategy) Draw(f *engine.Frame, cam *camera.Camera) {
	drawSubstrate(&f.World, cam)
	drawFood(f, cam)
	for i := range f.Agents {
		drawAgent(&f.Agents[i], cam)
	}
	drawSelection(f, cam)
}

// visionStrategy adds each agent's retina fan on top of the circles.
type visionStrategy struct{}

func (visionStrategy) Name() string { return StrategyVision }

func (visionStrategy) Draw(f *engine.Frame, cam *camera.Camera) {
	drawSubstrate(&f.World, cam)
	drawFood(f, cam)
	for i := range f.Agents {
		drawRays(&f.Agents[i], cam)
	}
	for i := range f.Agents {
		drawAgent(&f.Agents[i], cam)
	}
	drawSelection(f, cam)
}

func drawSubstrate(w *world.World, cam *camera.Camera) {
	rl.ClearBackground(colorBackground)
	if w.Shape == world.Circular {
		cx, cy := cam.WorldToScreen(float32(w.CX), float32(w.CY))
		r := float32(w.Radius) * cam.Zoom
		rl.DrawCircleV(rl.Vector2{X: cx, Y: cy}, r, colorSubstrate)
		rl.DrawCircleLinesV(rl.Vector2{X: cx, Y: cy}, r, colorBoundary)
		return
	}
	x0, y0 := cam.WorldToScreen(0, 0)
	rect := rl.Rectangle{X: x0, Y: y0, Width: float32(w.Width) * cam.Zoom, Height: float32(w.Height) * cam.Zoom}
	rl.DrawRectangleRec(rect, colorSubstrate)
	rl.DrawRectangleLinesEx(rect, 1, colorBoundary)
}

func drawFood(f *engine.Frame, cam *camera.Camera) {
	c := toRaylib(components.ColorFood, 255)
	for _, food := range f.Foods {
		if !cam.IsVisible(float32(food.X), float32(food.Y), float32(food.R)) {
			continue
		}
		sx, sy := cam.WorldToScreen(float32(food.X), float32(food.Y))
		rl.DrawCircleV(rl.Vector2{X: sx, Y: sy}, max(float32(food.R)*cam.Zoom, 1), c)
	}
}

func drawAgent(a *engine.AgentView, cam *camera.Camera) {
	if !cam.IsVisible(float32(a.X), float32(a.Y), float32(a.R)) {
		return
	}
	sx, sy := cam.WorldToScreen(float32(a.X), float32(a.Y))
	r := max(float32(a.R)*cam.Zoom, 1.5)
	center := rl.Vector2{X: sx, Y: sy}

	rl.DrawCircleV(center, r, toRaylib(a.Color, energyAlpha(a.Energy)))
	rl.DrawCircleLinesV(center, r, rl.Color{R: 0, G: 0, B: 0, A: 120})

	cos, sin := float32(math.Cos(a.Heading)), float32(math.Sin(a.Heading))
	rl.DrawLineV(center, rl.Vector2{X: sx + cos*r, Y: sy + sin*r}, rl.White)
}

func drawRays(a *engine.AgentView, cam *camera.Camera) {
	for _, ray := range a.Rays {
		ex, ey := cam.WorldToScreen(float32(ray.EyeX), float32(ray.EyeY))
		tx, ty := cam.WorldToScreen(float32(ray.EndX), float32(ray.EndY))
		rl.DrawLineV(rl.Vector2{X: ex, Y: ey}, rl.Vector2{X: tx, Y: ty}, rayColor(ray.Activation))
	}
}

func drawSelection(f *engine.Frame, cam *camera.Camera) {
	sel := f.Selected
	if sel == nil {
		return
	}
	sx, sy := cam.WorldToScreen(float32(sel.X), float32(sel.Y))
	rl.DrawCircleLinesV(rl.Vector2{X: sx, Y: sy}, float32(sel.R)*cam.Zoom+4, colorSelection)
}

// energyAlpha maps stored energy to an opacity: dim when starving, opaque
// from 150 up.
func energyAlpha(energy float64) uint8 {
	return uint8(100 + min(max(energy/150, 0), 1)*155)
}

// rayColor fades from faint grey for misses to bright green for close hits.
func rayColor(activation float64) rl.Color {
	t := min(max(activation, 0), 1)
	return rl.Color{
		R: uint8(90 - t*40),
		G: uint8(90 + t*165),
		B: uint8(90 - t*40),
		A: uint8(40 + t*160),
	}
}

func toRaylib(c components.Color, alpha uint8) rl.Color {
	return rl.Color{R: c.R, G: c.G, B: c.B, A: alpha}
}
