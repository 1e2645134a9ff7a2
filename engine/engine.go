// Package engine runs the simulation: it owns the ECS world, steps the systems
// pipeline on a fixed timestep, applies queued commands and publishes frames.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/petri/camera"
	"github.com/pthm-cable/petri/components"
	"github.com/pthm-cable/petri/config"
	"github.com/pthm-cable/petri/neural"
	"github.com/pthm-cable/petri/systems"
	"github.com/pthm-cable/petri/telemetry"
	"github.com/pthm-cable/petri/world"
)

// Timestep constants.
const (
	BaseDT      = 1.0 / 60
	MaxSubsteps = 8
)

// Population caps applied at initialization.
const (
	maxInitialBacteria  = 10000
	maxInitialPredators = 1000
)

var (
	// ErrStopped is returned when a command is sent to a stopped engine.
	ErrStopped = errors.New("engine: stopped")
	// ErrQueueFull is returned by SendCommand when the command queue is full.
	ErrQueueFull = errors.New("engine: command queue full")
	// ErrNoPrototype is returned by SpawnPrototype before LoadPrototype.
	ErrNoPrototype = errors.New("engine: no prototype loaded")
	// ErrAgentNotFound is returned when no living agent has the requested ID.
	ErrAgentNotFound = errors.New("engine: agent not found")
)

// Options configures an Engine.
type Options struct {
	Seed int64

	// Viewport size of the published camera.
	ViewportW, ViewportH float32

	// OnWindow, if set, receives each completed stats window. It runs on the
	// stepping goroutine.
	OnWindow func(telemetry.WindowStats)
}

// mind is the per-agent state that does not live in the ECS.
type mind struct {
	brain  *neural.Controller
	sensor *neural.Retina
	output []float64
}

// Engine is the simulation. Step, GetAgentAtPosition, Snapshot and Restore
// must be called from a single goroutine. SendCommand, LoadPrototype and
// Frame are safe from any goroutine.
type Engine struct {
	params *config.Params
	rng    *rand.Rand
	world  *world.World
	camera *camera.Camera
	opts   Options

	agentMap *ecs.Map8[
		components.Organism,
		components.Position,
		components.Velocity,
		components.Rotation,
		components.Body,
		components.Energy,
		components.Locomotion,
		components.Metabolism,
	]
	agentFilter *ecs.Filter8[
		components.Organism,
		components.Position,
		components.Velocity,
		components.Rotation,
		components.Body,
		components.Energy,
		components.Locomotion,
		components.Metabolism,
	]
	foodMap    *ecs.Map3[components.Position, components.Body, components.Food]
	foodFilter *ecs.Filter3[components.Position, components.Body, components.Food]

	minds map[uint32]*mind
	batch *neural.Batch
	state systems.State
	food  systems.FoodController

	perf      *telemetry.PerfCollector
	collector *telemetry.Collector

	commands  chan Command
	running   atomic.Bool
	frame     atomic.Pointer[Frame]
	prototype atomic.Pointer[telemetry.AgentRecord]

	simTime    float64
	fps        float64
	nextID     uint32
	nextFoodID uint32
	selected   uint32
	renderer   string
	published  int
	lastPerf   telemetry.PerfStats
}

// New creates a stopped engine over p.
func New(p *config.Params, opts Options) *Engine {
	if opts.ViewportW <= 0 || opts.ViewportH <= 0 {
		opts.ViewportW, opts.ViewportH = 1280, 800
	}
	w := ecs.NewWorld()
	e := &Engine{
		params: p,
		rng:    rand.New(rand.NewSource(opts.Seed)),
		world:  world.New(1000, 700, world.Rectangular, 400),
		camera: camera.New(opts.ViewportW, opts.ViewportH),
		opts:   opts,
		agentMap: ecs.NewMap8[
			components.Organism,
			components.Position,
			components.Velocity,
			components.Rotation,
			components.Body,
			components.Energy,
			components.Locomotion,
			components.Metabolism,
		](w),
		agentFilter: ecs.NewFilter8[
			components.Organism,
			components.Position,
			components.Velocity,
			components.Rotation,
			components.Body,
			components.Energy,
			components.Locomotion,
			components.Metabolism,
		](w),
		foodMap:    ecs.NewMap3[components.Position, components.Body, components.Food](w),
		foodFilter: ecs.NewFilter3[components.Position, components.Body, components.Food](w),
		minds:      make(map[uint32]*mind),
		batch:      neural.NewBatch(cacheConfig(p)),
		perf:       telemetry.NewPerfCollector(p.Int("perf_window", 60)),
		collector:  telemetry.NewCollector(p.Float("stats_window", 10)),
		commands:   make(chan Command, max(p.Int("command_queue_size", 256), 1)),
		renderer:   p.String("renderer", "circles"),
	}
	e.state.World = e.world
	e.state.Params = p
	e.state.Rng = e.rng
	e.configureWorld()
	e.publish()
	return e
}

func cacheConfig(p *config.Params) neural.CacheConfig {
	def := neural.DefaultCacheConfig()
	return neural.CacheConfig{
		Enabled:    p.Bool("brain_cache_enabled", def.Enabled),
		MaxEntries: max(p.Int("brain_cache_max_entries", def.MaxEntries), 1),
		MaxBytes:   int64(max(p.Float("brain_cache_max_bytes", float64(def.MaxBytes)), 1)),
	}
}

// configureWorld applies the substrate parameters and refits the camera.
func (e *Engine) configureWorld() {
	p := e.params
	e.world.Configure(
		world.ParseShape(p.String("substrate_shape", "rectangular")),
		p.Float("substrate_radius", 400),
		p.Float("world_w", 1000),
		p.Float("world_h", 700),
	)
	e.camera.FitWorld(e.world, 0.1)
}

// Start initializes the population and begins accepting steps and commands.
// Starting a running engine does nothing.
func (e *Engine) Start() {
	if e.running.Load() {
		return
	}
	e.configureWorld()
	e.resetPopulation()
	e.simTime = 0
	e.collector.Reset(0)
	e.running.Store(true)
	e.publish()
	slog.Info("engine_started", "seed", e.opts.Seed)
}

// Stop halts stepping. Queued commands stay queued until the next Start.
func (e *Engine) Stop() {
	if e.running.Swap(false) {
		e.publish()
		slog.Info("engine_stopped", "sim_time", e.simTime)
	}
}

// Running reports whether the engine is started.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Params returns the live parameter set.
func (e *Engine) Params() *config.Params {
	return e.params
}

// World returns the substrate geometry.
func (e *Engine) World() *world.World {
	return e.world
}

// SimTime returns the simulated seconds since Start.
func (e *Engine) SimTime() float64 {
	return e.simTime
}

// Substeps splits a physical timestep into fixed substeps. Timesteps shorter
// than half a base step run once at their own length; long ones are capped
// at MaxSubsteps equal parts.
func Substeps(dt float64) (n int, sub float64) {
	n = int(math.Round(dt / BaseDT))
	switch {
	case n == 0:
		return 1, dt
	case n > MaxSubsteps:
		return MaxSubsteps, dt / MaxSubsteps
	}
	return n, BaseDT
}

// Step advances the simulation by realDT wall-clock seconds. It does nothing
// while the engine is stopped.
func (e *Engine) Step(realDT float64) {
	if !e.running.Load() {
		return
	}
	p := e.params

	e.perf.StartTick()
	e.perf.StartPhase(telemetry.PhaseCommands)
	e.drainCommands()

	dt := realDT * p.Float("time_scale", 1)
	if !p.Bool("paused", false) && dt > 0 {
		e.batch.Configure(cacheConfig(p))
		n, sub := Substeps(dt)
		for range n {
			e.substep(sub)
		}
	}

	e.perf.StartPhase(telemetry.PhaseFrame)
	if realDT > 0 {
		if e.fps == 0 {
			e.fps = 1 / realDT
		} else {
			e.fps = 0.9*e.fps + 0.1/realDT
		}
	}
	if e.collector.ShouldFlush(e.simTime) {
		stats := e.collector.Flush(e.simTime, e.population())
		if e.opts.OnWindow != nil {
			e.opts.OnWindow(stats)
		}
	}
	e.publish()
	e.perf.EndTick()
}

// Run steps the engine in real time at the fps parameter until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	fps := max(e.params.Float("fps", 60), 0.1)
	ticker := time.NewTicker(time.Duration(float64(time.Second) / fps))
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			e.Step(now.Sub(last).Seconds())
			last = now
		}
	}
}

// PerfStats returns section timings with a memory sample. Call it from the
// stepping goroutine; other goroutines read Frame().Perf.
func (e *Engine) PerfStats() telemetry.PerfStats {
	s := e.perf.Stats()
	var agents, foods int
	if f := e.Frame(); f != nil {
		agents, foods = len(f.Agents), len(f.Foods)
	}
	s.Memory = telemetry.SampleMemory(agents, foods)
	s.FPS = e.fps
	return s
}

// CacheStats returns the batched inference cache counters.
func (e *Engine) CacheStats() neural.CacheStats {
	return e.batch.Stats()
}

// substep runs one fixed step of the pipeline.
func (e *Engine) substep(dt float64) {
	p := e.params
	s := &e.state

	// Food spawns before gather so the views and the hash hold every food
	// entity of this substep; spawning after gather could move ECS storage
	// under the gathered component pointers.
	e.perf.StartPhase(telemetry.PhaseFood)
	e.replenishFood(dt)

	e.perf.StartPhase(telemetry.PhaseSpatialHash)
	e.gather()
	e.prepareHash()
	s.Rebuild()
	s.Slack = e.querySlack(dt)

	e.perf.StartPhase(telemetry.PhaseSenseInfer)
	e.think(dt)

	e.perf.StartPhase(telemetry.PhaseInteraction)
	food, prey := systems.Interact(s)
	e.collector.RecordFeeding(food, prey)

	e.perf.StartPhase(telemetry.PhaseReproduction)
	_, failed := systems.Reproduce(s)
	for range failed {
		e.collector.RecordReproFailure()
	}

	e.perf.StartPhase(telemetry.PhaseDeath)
	deaths := systems.ApplyDeaths(s, max(p.Int("max_deaths_per_step", 1), 0))
	for k, n := range deaths {
		e.collector.RecordDeaths(components.Kind(k), n)
	}

	e.perf.StartPhase(telemetry.PhaseCollision)
	systems.Collide(s)

	e.perf.StartPhase(telemetry.PhaseCommit)
	e.commit()

	e.simTime += dt
	e.collector.RecordSubstep()
}

// prepareHash points the state at a spatial hash sized for the current
// radii, reusing the previous one when its geometry still fits.
func (e *Engine) prepareHash() {
	p := e.params
	if !p.Bool("use_spatial", true) {
		e.state.Hash = nil
		return
	}
	maxR := p.Float("food_max_r", 5)
	for _, a := range e.state.Agents {
		maxR = max(maxR, a.Body.Radius)
	}
	cell := 2 * max(maxR, 0.5)
	minX, minY, maxX, maxY := e.world.Bounds()
	if h := e.state.Hash; h != nil && p.Bool("reuse_spatial_grid", true) && h.Matches(minX, minY, maxX, maxY, cell) {
		return
	}
	e.state.Hash = systems.NewSpatialHash(minX, minY, maxX, maxY, cell)
}

// querySlack bounds how far any agent can drift from its hashed position
// during the substep. Speeds come from the live params that think applies,
// and one extra max radius covers collision pushes.
func (e *Engine) querySlack(dt float64) float64 {
	v := 0.0
	for _, a := range e.state.Agents {
		v = max(v, a.Loco.MaxSpeed)
	}
	for _, tr := range species {
		v = max(v, tr.BuildLocomotion(e.params).MaxSpeed)
	}
	return v*dt + e.state.MaxRadius
}
