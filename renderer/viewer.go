package renderer

import (
	"context"
	"fmt"
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/petri/camera"
	"github.com/pthm-cable/petri/config"
	"github.com/pthm-cable/petri/engine"
	"github.com/pthm-cable/petri/traits"
)

// Sim is the engine surface the viewer uses. Every method is safe to call
// while another goroutine steps the engine.
type Sim interface {
	Frame() *engine.Frame
	Params() *config.Params
	SendCommand(engine.Command) error
}

// Options configures the viewer window.
type Options struct {
	Width, Height int32
	Title         string
	FPS           int32
}

// Viewer owns the window, a local camera and the panels.
type Viewer struct {
	sim      Sim
	opts     Options
	cam      *camera.Camera
	hud      *HUD
	controls *ControlsPanel

	showPerf  bool
	camSynced bool
}

// NewViewer creates a viewer; the window opens in Run.
func NewViewer(sim Sim, opts Options) *Viewer {
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = 1280, 800
	}
	if opts.Title == "" {
		opts.Title = "petri"
	}
	if opts.FPS <= 0 {
		opts.FPS = 60
	}
	return &Viewer{
		sim:      sim,
		opts:     opts,
		cam:      camera.New(float32(opts.Width), float32(opts.Height)),
		hud:      NewHUD(),
		controls: NewControlsPanel(10, 100, 340),
	}
}

// Run opens the window and draws frames until the window closes or ctx is
// done. It must run on the main OS thread.
func (v *Viewer) Run(ctx context.Context) error {
	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagMsaa4xHint)
	rl.InitWindow(v.opts.Width, v.opts.Height, v.opts.Title)
	defer rl.CloseWindow()
	rl.SetTargetFPS(v.opts.FPS)
	slog.Info("window_opened", "width", v.opts.Width, "height", v.opts.Height)

	for !rl.WindowShouldClose() {
		if err := ctx.Err(); err != nil {
			return err
		}
		f := v.sim.Frame()
		if f == nil {
			rl.BeginDrawing()
			rl.ClearBackground(colorBackground)
			rl.EndDrawing()
			continue
		}
		if !v.camSynced {
			v.fitCamera(f)
		}
		v.handleInput(f)
		v.draw(f)
	}
	return nil
}

// fitCamera adopts the engine's camera transform at the current viewport.
func (v *Viewer) fitCamera(f *engine.Frame) {
	v.cam.X, v.cam.Y = f.Camera.X, f.Camera.Y
	v.cam.FitWorld(&f.World, 0.1)
	v.camSynced = true
}

func (v *Viewer) draw(f *engine.Frame) {
	rl.BeginDrawing()
	StrategyFor(f.Info.Renderer).Draw(f, v.cam)

	v.hud.Draw(f.Info)
	if v.showPerf {
		v.hud.DrawPerf(f.Perf, int32(rl.GetScreenWidth()))
	}
	if f.Selected != nil {
		energyCap := traits.For(f.Selected.Kind).BuildMetabolism(v.sim.Params()).EnergyCap
		v.hud.DrawInspector(f.Selected, energyCap, int32(rl.GetScreenWidth()), int32(rl.GetScreenHeight()))
	}
	v.controls.Draw(v.sim.Params(), v.sim)
	v.hud.DrawControls(int32(rl.GetScreenHeight()))
	rl.EndDrawing()
}

// handleInput processes keyboard and mouse input.
func (v *Viewer) handleInput(f *engine.Frame) {
	v.handleResize()
	p := v.sim.Params()

	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}
	if rl.IsKeyPressed(rl.KeySpace) {
		setParam(p, "paused", !p.Bool("paused", false))
	}
	if rl.IsKeyPressed(rl.KeyComma) {
		setParam(p, "time_scale", p.Float("time_scale", 1)/2)
	}
	if rl.IsKeyPressed(rl.KeyPeriod) {
		setParam(p, "time_scale", min(p.Float("time_scale", 1)*2, 16))
	}
	if rl.IsKeyPressed(rl.KeyV) {
		send(v.sim, engine.ChangeRenderer{Name: NextStrategy(f.Info.Renderer)})
	}
	if rl.IsKeyPressed(rl.KeyTab) {
		v.controls.Toggle()
	}
	if rl.IsKeyPressed(rl.KeyF3) {
		v.showPerf = !v.showPerf
	}
	if rl.IsKeyPressed(rl.KeyE) && f.Selected != nil {
		send(v.sim, engine.ExportSelected{Path: fmt.Sprintf("agent_%d.csv", f.Selected.ID)})
	}
	if rl.IsKeyPressed(rl.KeyR) && rl.IsKeyDown(rl.KeyLeftControl) {
		send(v.sim, engine.ResetPopulation{})
	}

	v.handleCameraInput(f)
	v.handleMouse()
}

// handleResize propagates window size changes to the camera.
func (v *Viewer) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	v.cam.Resize(float32(rl.GetScreenWidth()), float32(rl.GetScreenHeight()))
}

// handleCameraInput processes camera pan/zoom controls.
func (v *Viewer) handleCameraInput(f *engine.Frame) {
	moved := false
	panSpeed := float32(8.0) / v.cam.Zoom

	if rl.IsKeyDown(rl.KeyRight) {
		v.cam.Pan(panSpeed, 0)
		moved = true
	}
	if rl.IsKeyDown(rl.KeyLeft) {
		v.cam.Pan(-panSpeed, 0)
		moved = true
	}
	if rl.IsKeyDown(rl.KeyDown) {
		v.cam.Pan(0, panSpeed)
		moved = true
	}
	if rl.IsKeyDown(rl.KeyUp) {
		v.cam.Pan(0, -panSpeed)
		moved = true
	}

	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		mouse := rl.GetMousePosition()
		v.cam.ZoomAt(mouse.X, mouse.Y, 1+wheel*0.1)
		moved = true
	}
	if rl.IsKeyPressed(rl.KeyEqual) || rl.IsKeyPressed(rl.KeyKpAdd) {
		v.cam.ZoomBy(1.25)
		moved = true
	}
	if rl.IsKeyPressed(rl.KeyMinus) || rl.IsKeyPressed(rl.KeyKpSubtract) {
		v.cam.ZoomBy(0.8)
		moved = true
	}
	if rl.IsKeyPressed(rl.KeyHome) {
		v.cam.FitWorld(&f.World, 0.1)
		moved = true
	}

	// the engine keeps the camera for snapshots
	if moved {
		send(v.sim, engine.MoveCamera{X: float64(v.cam.X), Y: float64(v.cam.Y), Zoom: float64(v.cam.Zoom)})
	}
}

// handleMouse turns clicks into world commands.
func (v *Viewer) handleMouse() {
	mouse := rl.GetMousePosition()
	if v.controls.Contains(mouse.X, mouse.Y) {
		return
	}
	wx, wy := v.cam.ScreenToWorld(mouse.X, mouse.Y)
	x, y := float64(wx), float64(wy)

	switch {
	case rl.IsMouseButtonPressed(rl.MouseButtonLeft) && rl.IsKeyDown(rl.KeyLeftShift):
		send(v.sim, engine.AddBacterium{X: x, Y: y})
	case rl.IsMouseButtonPressed(rl.MouseButtonLeft):
		send(v.sim, engine.SelectAgent{X: x, Y: y})
	case rl.IsMouseButtonPressed(rl.MouseButtonRight):
		send(v.sim, engine.AddFood{X: x, Y: y})
	case rl.IsKeyPressed(rl.KeyP):
		send(v.sim, engine.SpawnPrototype{X: x, Y: y})
	}
}
