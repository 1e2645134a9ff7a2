package engine

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/pthm-cable/petri/components"
	"github.com/pthm-cable/petri/systems"
	"github.com/pthm-cable/petri/telemetry"
	"github.com/pthm-cable/petri/traits"
	"github.com/pthm-cable/petri/world"
)

// GetAgentAtPosition returns the ID of the agent whose body contains (x, y),
// preferring the most recently created one. It returns 0 when there is none.
func (e *Engine) GetAgentAtPosition(x, y float64) uint32 {
	var best uint32
	query := e.agentFilter.Query()
	for query.Next() {
		org, pos, _, _, body, _, _, _ := query.Get()
		if org.ID > best && math.Hypot(pos.X-x, pos.Y-y) <= body.Radius {
			best = org.ID
		}
	}
	return best
}

// Selected returns the selected agent ID, or 0.
func (e *Engine) Selected() uint32 {
	return e.selected
}

// agentState captures one agent from its components and mind.
func (e *Engine) agentState(
	org *components.Organism,
	pos *components.Position,
	vel *components.Velocity,
	rot *components.Rotation,
	body *components.Body,
	energy *components.Energy,
	loco *components.Locomotion,
	meta *components.Metabolism,
) telemetry.AgentState {
	st := telemetry.AgentState{
		Kind: org.Kind, X: pos.X, Y: pos.Y, Radius: body.Radius,
		Heading: rot.Heading, VX: vel.X, VY: vel.Y,
		Energy: energy.Value, Age: energy.Age, Color: org.Color,
		Loco: *loco, Meta: *meta,
	}
	if m := e.minds[org.ID]; m != nil {
		st.Brain = m.brain
		if m.sensor != nil {
			st.Sensor = m.sensor.Config()
		}
	}
	return st
}

// agentStates captures every agent accepted by keep, in storage order.
func (e *Engine) agentStates(keep func(id uint32) bool) []telemetry.AgentState {
	var out []telemetry.AgentState
	query := e.agentFilter.Query()
	for query.Next() {
		org, pos, vel, rot, body, energy, loco, meta := query.Get()
		if keep(org.ID) {
			out = append(out, e.agentState(org, pos, vel, rot, body, energy, loco, meta))
		}
	}
	return out
}

// ExportAgent encodes the living agent with the given ID.
func (e *Engine) ExportAgent(id uint32) (*telemetry.AgentRecord, error) {
	states := e.agentStates(func(got uint32) bool { return got == id })
	if len(states) == 0 {
		return nil, fmt.Errorf("%w: %d", ErrAgentNotFound, id)
	}
	return telemetry.EncodeAgent(states[0]), nil
}

// decodeRecord decodes rec against the live parameters.
func (e *Engine) decodeRecord(rec *telemetry.AgentRecord) (telemetry.AgentState, error) {
	st, err := telemetry.DecodeAgent(rec, e.params, e.rng)
	if err != nil {
		return telemetry.AgentState{}, fmt.Errorf("decode agent: %w", err)
	}
	return st, nil
}

// spawnState creates an agent from a decoded record. The sensor is rebuilt
// from the species parameters, which override the recorded sensor anyway.
func (e *Engine) spawnState(st telemetry.AgentState) uint32 {
	x, y := e.world.Clamp(st.X, st.Y, st.Radius)
	return e.spawnAgent(systems.Birth{
		Kind:    st.Kind,
		Pos:     components.Position{X: x, Y: y},
		Vel:     components.Velocity{X: st.VX, Y: st.VY},
		Heading: world.NormalizeAngle(st.Heading),
		Body:    components.NewBody(st.Radius),
		Energy:  st.Energy,
		Color:   st.Color,
		Loco:    st.Loco,
		Meta:    st.Meta,
		Brain:   st.Brain,
		Sensor:  traits.For(st.Kind).BuildSensor(e.params),
	}, st.Age)
}

// Snapshot captures the world: parameters, geometry, camera, food and every
// agent.
func (e *Engine) Snapshot() *telemetry.WorldSnapshot {
	snap := &telemetry.WorldSnapshot{
		Version:   telemetry.SnapshotVersion,
		Timestamp: time.Now().UTC(),
		Params:    e.params.Snapshot(),
		World: telemetry.WorldState{
			Shape:  e.world.Shape.String(),
			Width:  e.world.Width,
			Height: e.world.Height,
			Radius: e.world.Radius,
		},
		Camera: telemetry.CameraState{
			X:    float64(e.camera.X),
			Y:    float64(e.camera.Y),
			Zoom: float64(e.camera.Zoom),
		},
		SimTime:    e.simTime,
		FoodTarget: systems.ReadFoodParams(e.params).Target,
	}

	fq := e.foodFilter.Query()
	for fq.Next() {
		pos, body, item := fq.Get()
		snap.Foods = append(snap.Foods, telemetry.FoodState{X: pos.X, Y: pos.Y, R: body.Radius, Energy: item.Energy})
	}
	snap.FoodCount = len(snap.Foods)

	for _, st := range e.agentStates(func(uint32) bool { return true }) {
		snap.Agents = append(snap.Agents, telemetry.EncodeAgent(st))
	}
	return snap
}

// Restore replaces the world with snap. Call it after Start; Start resets
// the population. Parameters are validated one by one;
// invalid values are logged and skipped, as are undecodable agents.
func (e *Engine) Restore(snap *telemetry.WorldSnapshot) error {
	if snap == nil {
		return fmt.Errorf("restore: nil snapshot")
	}
	if snap.Version > telemetry.SnapshotVersion {
		return fmt.Errorf("restore: %w: %d", telemetry.ErrSnapshotVersion, snap.Version)
	}

	for k, v := range snap.Params {
		if _, err := e.params.Set(k, v); err != nil {
			slog.Warn("restore_param_skipped", "key", k, "error", err)
		}
	}
	e.world.Configure(world.ParseShape(snap.World.Shape), snap.World.Radius, snap.World.Width, snap.World.Height)
	e.camera.X, e.camera.Y = float32(snap.Camera.X), float32(snap.Camera.Y)
	if snap.Camera.Zoom > 0 {
		e.camera.SetZoom(float32(snap.Camera.Zoom))
	}
	e.renderer = e.params.String("renderer", e.renderer)

	e.clearEntities()
	for _, f := range snap.Foods {
		x, y := e.world.Clamp(f.X, f.Y, f.R)
		e.spawnFood(x, y, f.R, f.Energy)
	}
	skipped := 0
	for _, rec := range snap.Agents {
		st, err := e.decodeRecord(rec)
		if err != nil {
			slog.Warn("restore_agent_skipped", "error", err)
			skipped++
			continue
		}
		e.spawnState(st)
	}

	e.simTime = snap.SimTime
	e.collector.Reset(e.simTime)
	e.publish()
	slog.Info("snapshot_restored",
		"sim_time", snap.SimTime,
		"agents", len(snap.Agents)-skipped,
		"food", len(snap.Foods),
		"skipped", skipped,
	)
	return nil
}
