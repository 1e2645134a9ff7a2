package systems

import (
	"math"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/petri/components"
	"github.com/pthm-cable/petri/neural"
	"github.com/pthm-cable/petri/traits"
	"github.com/pthm-cable/petri/world"
)

// Agent is a substep view over one agent entity. The component pointers
// refer to ECS storage and stay valid until the next structural change.
type Agent struct {
	E      ecs.Entity
	Org    *components.Organism
	Pos    *components.Position
	Vel    *components.Velocity
	Rot    *components.Rotation
	Body   *components.Body
	Energy *components.Energy
	Loco   *components.Locomotion
	Meta   *components.Metabolism

	Brain  *neural.Controller
	Sensor *neural.Retina
	Output []float64

	Dead bool
}

// Kind returns the agent species.
func (a *Agent) Kind() components.Kind {
	return a.Org.Kind
}

// Speed returns the velocity magnitude.
func (a *Agent) Speed() float64 {
	return math.Hypot(a.Vel.X, a.Vel.Y)
}

// Viewer returns the retina pose.
func (a *Agent) Viewer() neural.Viewer {
	return neural.Viewer{
		ID:      a.Org.ID,
		Kind:    a.Org.Kind,
		X:       a.Pos.X,
		Y:       a.Pos.Y,
		Heading: a.Rot.Heading,
		Radius:  a.Body.Radius,
	}
}

// Food is a substep view over one food entity.
type Food struct {
	E     ecs.Entity
	ID    uint32
	Pos   *components.Position
	Body  *components.Body
	Item  *components.Food
	Eaten bool
}

// Birth describes an agent to be created when the substep commits.
type Birth struct {
	Kind    components.Kind
	Parent  uint32
	Pos     components.Position
	Vel     components.Velocity
	Heading float64
	Body    components.Body
	Energy  float64
	Color   components.Color
	Loco    components.Locomotion
	Meta    components.Metabolism
	Brain   *neural.Controller
	Sensor  *neural.Retina
}

// State is everything a substep's systems read and write. Removals are
// flagged on the views and births are queued; nothing structural happens
// until the engine commits.
type State struct {
	World  *world.World
	Params traits.Params
	Rng    *rand.Rand

	Agents []Agent
	Foods  []Food
	Hash   *SpatialHash // nil selects brute force

	Births []Birth

	// MaxRadius is the largest body radius among indexed kinds.
	MaxRadius float64
	// Slack widens hash queries by how far agents may have moved since Rebuild.
	Slack float64
}

// Reset clears the per-substep slices, keeping capacity.
func (s *State) Reset() {
	clear(s.Agents)
	s.Agents = s.Agents[:0]
	clear(s.Foods)
	s.Foods = s.Foods[:0]
	clear(s.Births)
	s.Births = s.Births[:0]
}

// Rebuild recomputes MaxRadius and repopulates the hash from the views.
func (s *State) Rebuild() {
	s.MaxRadius = 0
	for i := range s.Agents {
		s.MaxRadius = math.Max(s.MaxRadius, s.Agents[i].Body.Radius)
	}
	for i := range s.Foods {
		s.MaxRadius = math.Max(s.MaxRadius, s.Foods[i].Body.Radius)
	}
	if s.Hash == nil {
		return
	}
	s.Hash.Clear()
	for i := range s.Agents {
		a := &s.Agents[i]
		s.Hash.Insert(Entry{Kind: a.Org.Kind, Index: i, ID: a.Org.ID, X: a.Pos.X, Y: a.Pos.Y, R: a.Body.Radius})
	}
	for i := range s.Foods {
		f := &s.Foods[i]
		s.Hash.Insert(Entry{Kind: components.KindFood, Index: i, ID: f.ID, X: f.Pos.X, Y: f.Pos.Y, R: f.Body.Radius})
	}
}

// Count returns the living agents of kind k, excluding queued births.
func (s *State) Count(k components.Kind) int {
	n := 0
	for i := range s.Agents {
		if s.Agents[i].Org.Kind == k && !s.Agents[i].Dead {
			n++
		}
	}
	return n
}

// near appends the entries around (x, y) within radius plus the largest
// body radius. Without a hash every agent and food is returned.
func (s *State) near(x, y, radius float64, dst []Entry) []Entry {
	if s.Hash != nil {
		return s.Hash.QueryBall(x, y, radius+s.MaxRadius+s.Slack, dst)
	}
	for i := range s.Agents {
		a := &s.Agents[i]
		dst = append(dst, Entry{Kind: a.Org.Kind, Index: i, ID: a.Org.ID, X: a.Pos.X, Y: a.Pos.Y, R: a.Body.Radius})
	}
	for i := range s.Foods {
		f := &s.Foods[i]
		dst = append(dst, Entry{Kind: components.KindFood, Index: i, ID: f.ID, X: f.Pos.X, Y: f.Pos.Y, R: f.Body.Radius})
	}
	return dst
}

// entryPos returns the current position of the object behind an entry.
// Hash entries are a snapshot from Rebuild; agents may have moved since.
func (s *State) entryPos(e Entry) (x, y float64) {
	if e.Kind == components.KindFood {
		f := &s.Foods[e.Index]
		return f.Pos.X, f.Pos.Y
	}
	a := &s.Agents[e.Index]
	return a.Pos.X, a.Pos.Y
}
