package systems

import (
	"github.com/pthm-cable/petri/neural"
)

// SceneQuery adapts the substep state to the retina's candidate source.
type SceneQuery struct {
	s   *State
	buf []Entry
}

var _ neural.Scene = (*SceneQuery)(nil)

// NewSceneQuery creates a scene over s.
func NewSceneQuery(s *State) *SceneQuery {
	return &SceneQuery{s: s}
}

// Candidates appends every live object whose circle may reach within radius
// of (x, y).
func (q *SceneQuery) Candidates(x, y, radius float64, dst []neural.Candidate) []neural.Candidate {
	q.buf = q.s.near(x, y, radius, q.buf[:0])
	for _, e := range q.buf {
		if e.Kind.IsAgent() {
			a := &q.s.Agents[e.Index]
			if a.Dead {
				continue
			}
			dst = append(dst, neural.Candidate{Kind: e.Kind, ID: e.ID, X: a.Pos.X, Y: a.Pos.Y, R: a.Body.Radius})
			continue
		}
		f := &q.s.Foods[e.Index]
		if f.Eaten {
			continue
		}
		dst = append(dst, neural.Candidate{Kind: e.Kind, ID: e.ID, X: f.Pos.X, Y: f.Pos.Y, R: f.Body.Radius})
	}
	return dst
}
