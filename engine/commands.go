package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pthm-cable/petri/systems"
	"github.com/pthm-cable/petri/telemetry"
	"github.com/pthm-cable/petri/traits"
)

// Command is a request applied at the start of the next Step. The set is
// closed: only the types in this package implement it.
type Command interface {
	command()
}

// SelectAgent selects the agent under a world position, or clears the
// selection when there is none.
type SelectAgent struct{ X, Y float64 }

// AddFood places a pellet at a world position.
type AddFood struct{ X, Y float64 }

// AddBacterium places a fresh bacterium at a world position.
type AddBacterium struct{ X, Y float64 }

// ResetPopulation replaces all agents and food with a fresh population.
type ResetPopulation struct{}

// ChangeRenderer switches the renderer named in published frames.
type ChangeRenderer struct{ Name string }

// SpawnPrototype places a copy of the loaded prototype at a world position.
type SpawnPrototype struct{ X, Y float64 }

// MoveCamera sets the published camera center and zoom. Zoom <= 0 keeps the
// current zoom.
type MoveCamera struct{ X, Y, Zoom float64 }

// ExportSelected writes the selected agent's record to Path and makes it the
// prototype. An empty Path only sets the prototype.
type ExportSelected struct{ Path string }

func (SelectAgent) command()     {}
func (AddFood) command()         {}
func (AddBacterium) command()    {}
func (ResetPopulation) command() {}
func (ChangeRenderer) command()  {}
func (SpawnPrototype) command()  {}
func (MoveCamera) command()      {}
func (ExportSelected) command()  {}

// SendCommand queues c without blocking.
func (e *Engine) SendCommand(c Command) error {
	if !e.running.Load() {
		return ErrStopped
	}
	select {
	case e.commands <- c:
		return nil
	default:
		return ErrQueueFull
	}
}

// SendCommandContext queues c, waiting for room until ctx is done.
func (e *Engine) SendCommandContext(ctx context.Context, c Command) error {
	if !e.running.Load() {
		return ErrStopped
	}
	select {
	case e.commands <- c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// drainCommands applies everything queued so far, in order.
func (e *Engine) drainCommands() {
	for {
		select {
		case c := <-e.commands:
			if err := e.apply(c); err != nil {
				slog.Warn("command_failed", "command", fmt.Sprintf("%T", c), "error", err)
			}
		default:
			return
		}
	}
}

func (e *Engine) apply(c Command) error {
	switch c := c.(type) {
	case SelectAgent:
		e.selected = e.GetAgentAtPosition(c.X, c.Y)
	case AddFood:
		fp := systems.ReadFoodParams(e.params)
		r := fp.MinR + e.rng.Float64()*(fp.MaxR-fp.MinR)
		x, y := e.world.Clamp(c.X, c.Y, r)
		e.spawnFood(x, y, r, systems.FoodEnergy(r, fp.EnergyPerArea))
		e.collector.RecordFoodSpawned(1)
	case AddBacterium:
		if _, err := e.addAgentAt(traits.Bacteria, c.X, c.Y); err != nil {
			return err
		}
	case ResetPopulation:
		e.resetPopulation()
	case ChangeRenderer:
		e.renderer = c.Name
		e.params.SetRaw("renderer", c.Name)
	case SpawnPrototype:
		rec := e.prototype.Load()
		if rec == nil {
			return ErrNoPrototype
		}
		st, err := e.decodeRecord(rec)
		if err != nil {
			return err
		}
		st.X, st.Y = c.X, c.Y
		e.spawnState(st)
	case MoveCamera:
		e.camera.X, e.camera.Y = float32(c.X), float32(c.Y)
		if c.Zoom > 0 {
			e.camera.SetZoom(float32(c.Zoom))
		}
	case ExportSelected:
		rec, err := e.ExportAgent(e.selected)
		if err != nil {
			return err
		}
		e.LoadPrototype(rec)
		if c.Path != "" {
			if err := telemetry.SaveAgentFile(c.Path, rec); err != nil {
				return err
			}
			slog.Info("agent_exported", "id", e.selected, "path", c.Path)
		}
	default:
		slog.Warn("unknown_command", "command", fmt.Sprintf("%T", c))
	}
	return nil
}

// LoadPrototype stores rec for later SpawnPrototype commands.
func (e *Engine) LoadPrototype(rec *telemetry.AgentRecord) {
	e.prototype.Store(rec)
}
