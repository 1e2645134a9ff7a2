package engine

import (
	"github.com/pthm-cable/petri/camera"
	"github.com/pthm-cable/petri/components"
	"github.com/pthm-cable/petri/neural"
	"github.com/pthm-cable/petri/telemetry"
	"github.com/pthm-cable/petri/world"
)

// RendererVision is the renderer name that asks frames to carry retina rays.
const RendererVision = "vision"

// FoodView is a pellet as drawn.
type FoodView struct {
	X, Y, R float64
	Energy  float64
}

// AgentView is an agent as drawn.
type AgentView struct {
	ID      uint32
	Kind    components.Kind
	X, Y    float64
	R       float64
	Heading float64
	Energy  float64
	Color   components.Color
	Rays    []neural.RayInfo // only with the vision renderer
}

// AgentDetail describes the selected agent for inspection.
type AgentDetail struct {
	AgentView
	Age         float64
	Sizes       []int
	Version     uint64
	Inputs      []float64
	Activations [][]float64
	Output      []float64
}

// Info is the frame's summary line.
type Info struct {
	Bacteria  int
	Predators int
	Food      int
	FPS       float64
	SimTime   float64
	Selected  uint32
	Renderer  string
	Running   bool
	Paused    bool
	TimeScale float64
}

// Frame is an immutable picture of the world published at the end of each
// Step. Readers must not modify it.
type Frame struct {
	Foods    []FoodView
	Agents   []AgentView
	Selected *AgentDetail
	Camera   camera.Camera
	World    world.World
	Info     Info
	Perf     telemetry.PerfStats // refreshed every perfEvery publishes
}

const perfEvery = 30

// Frame returns the most recently published frame. It is safe to call from
// any goroutine.
func (e *Engine) Frame() *Frame {
	return e.frame.Load()
}

// publish builds and swaps in a new frame.
func (e *Engine) publish() {
	p := e.params
	f := &Frame{
		Camera: *e.camera,
		World:  *e.world,
		Info: Info{
			FPS:       e.fps,
			SimTime:   e.simTime,
			Selected:  e.selected,
			Renderer:  e.renderer,
			Running:   e.running.Load(),
			Paused:    p.Bool("paused", false),
			TimeScale: p.Float("time_scale", 1),
		},
	}
	if e.published%perfEvery == 0 {
		e.lastPerf = e.PerfStats()
	}
	e.published++
	f.Perf = e.lastPerf
	rays := e.renderer == RendererVision

	fq := e.foodFilter.Query()
	for fq.Next() {
		pos, body, item := fq.Get()
		f.Foods = append(f.Foods, FoodView{X: pos.X, Y: pos.Y, R: body.Radius, Energy: item.Energy})
	}
	f.Info.Food = len(f.Foods)

	query := e.agentFilter.Query()
	for query.Next() {
		org, pos, _, rot, body, energy, _, _ := query.Get()
		v := AgentView{
			ID: org.ID, Kind: org.Kind, X: pos.X, Y: pos.Y, R: body.Radius,
			Heading: rot.Heading, Energy: energy.Value, Color: org.Color,
		}
		m := e.minds[org.ID]
		if rays && m != nil && m.sensor != nil {
			v.Rays = m.sensor.Rays(neural.Viewer{
				ID: org.ID, Kind: org.Kind, X: pos.X, Y: pos.Y, Heading: rot.Heading, Radius: body.Radius,
			})
		}
		switch org.Kind {
		case components.KindBacteria:
			f.Info.Bacteria++
		case components.KindPredator:
			f.Info.Predators++
		}
		if org.ID == e.selected {
			f.Selected = e.detail(v, energy.Age, m)
		}
		f.Agents = append(f.Agents, v)
	}

	e.frame.Store(f)
}

func (e *Engine) detail(v AgentView, age float64, m *mind) *AgentDetail {
	d := &AgentDetail{AgentView: v, Age: age}
	if m == nil || m.brain == nil {
		return d
	}
	d.Sizes = append([]int(nil), m.brain.Sizes...)
	d.Version = m.brain.Version()
	d.Output = append([]float64(nil), m.output...)
	if m.sensor != nil && m.sensor.Last() != nil {
		d.Inputs = append([]float64(nil), m.sensor.Last()...)
		d.Activations = m.brain.Activations(d.Inputs)
	}
	return d
}
