package neural

import (
	"math"

	"github.com/pthm-cable/petri/components"
	"github.com/pthm-cable/petri/world"
)

// VisionMode selects how candidates are resolved onto rays.
type VisionMode uint8

const (
	// VisionFullBody intersects every ray with every candidate circle.
	VisionFullBody VisionMode = iota
	// VisionSingle bins each candidate onto the ray nearest its centroid.
	VisionSingle
)

// ParseVisionMode maps "single" to VisionSingle and anything else to VisionFullBody.
func ParseVisionMode(s string) VisionMode {
	if s == "single" {
		return VisionSingle
	}
	return VisionFullBody
}

func (m VisionMode) String() string {
	if m == VisionSingle {
		return "single"
	}
	return "fullbody"
}

// RetinaConfig is the live configuration of a retina.
type RetinaConfig struct {
	Count        int
	VisionRadius float64
	FOVDegrees   float64
	Skip         int
	SeeFood      bool
	SeeBacteria  bool
	SeePredators bool
	Mode         VisionMode
}

// Sees reports whether objects of kind k are visible. Unknown kinds never are.
func (c RetinaConfig) Sees(k components.Kind) bool {
	switch k {
	case components.KindFood:
		return c.SeeFood
	case components.KindBacteria:
		return c.SeeBacteria
	case components.KindPredator:
		return c.SeePredators
	}
	return false
}

// Candidate is an object a ray may hit.
type Candidate struct {
	Kind components.Kind
	ID   uint32
	X, Y float64
	R    float64
}

// Scene supplies candidates near a point. Implementations may return extra
// objects but must not omit any whose circle reaches within radius of (x, y).
type Scene interface {
	Candidates(x, y, radius float64, dst []Candidate) []Candidate
}

// Viewer is the pose of the agent a retina belongs to.
type Viewer struct {
	ID      uint32
	Kind    components.Kind
	X, Y    float64
	Heading float64
	Radius  float64
}

// Eye returns the ray origin, offset one body radius along the heading.
func (v Viewer) Eye() (float64, float64) {
	return v.X + v.Radius*math.Cos(v.Heading), v.Y + v.Radius*math.Sin(v.Heading)
}

// RayInfo describes one ray for drawing.
type RayInfo struct {
	EyeX, EyeY float64
	EndX, EndY float64
	Activation float64
}

// Retina is a fan of rays producing one activation per ray in [0, 1].
type Retina struct {
	cfg       RetinaConfig
	last      []float64
	countdown int

	cands []Candidate
}

// NewRetina creates a retina; its first Sense always computes.
func NewRetina(cfg RetinaConfig) *Retina {
	return &Retina{cfg: cfg}
}

// Config returns the current configuration.
func (r *Retina) Config() RetinaConfig {
	return r.cfg
}

// Size is the output vector length.
func (r *Retina) Size() int {
	return max(r.cfg.Count, 0)
}

// Last returns the most recent activations (nil before the first Sense).
func (r *Retina) Last() []float64 {
	return r.last
}

// Reconfigure applies a live configuration. Any change drops the cached
// output so the next Sense recomputes. Returns whether anything changed.
func (r *Retina) Reconfigure(cfg RetinaConfig) bool {
	if cfg == r.cfg {
		return false
	}
	r.cfg = cfg
	r.last = nil
	r.countdown = 0
	return true
}

// Sense returns the activations for viewer v, reusing the previous output
// while the skip countdown runs.
func (r *Retina) Sense(v Viewer, scene Scene) []float64 {
	if r.countdown > 0 && r.last != nil {
		r.countdown--
		return r.last
	}
	ex, ey := v.Eye()
	r.cands = r.gather(v, scene, ex, ey, r.cands[:0])
	r.last = r.compute(v, ex, ey, r.cands)
	r.countdown = r.cfg.Skip
	return r.last
}

// gather collects visible candidates other than the viewer itself.
func (r *Retina) gather(v Viewer, scene Scene, ex, ey float64, dst []Candidate) []Candidate {
	if scene == nil || r.cfg.VisionRadius <= 0 {
		return dst
	}
	all := scene.Candidates(ex, ey, r.cfg.VisionRadius, dst)
	n := 0
	for _, c := range all {
		if !r.cfg.Sees(c.Kind) || (c.Kind == v.Kind && c.ID == v.ID) {
			continue
		}
		all[n] = c
		n++
	}
	return all[:n]
}

func (r *Retina) compute(v Viewer, ex, ey float64, cands []Candidate) []float64 {
	n := r.Size()
	out := make([]float64, n)
	vr := r.cfg.VisionRadius
	if n == 0 || vr <= 0 {
		return out
	}
	switch r.cfg.Mode {
	case VisionSingle:
		r.computeSingle(v, ex, ey, cands, out)
	default:
		r.computeFullBody(v, ex, ey, cands, out)
	}
	return out
}

func (r *Retina) halfFOV() float64 {
	return r.cfg.FOVDegrees * math.Pi / 360
}

// rayAngle is the offset of ray i from the heading.
func (r *Retina) rayAngle(i int) float64 {
	n := r.Size()
	if n <= 1 {
		return 0
	}
	half := r.halfFOV()
	return -half + float64(i)/float64(n-1)*2*half
}

func (r *Retina) computeFullBody(v Viewer, ex, ey float64, cands []Candidate, out []float64) {
	vr := r.cfg.VisionRadius
	for i := range out {
		a := v.Heading + r.rayAngle(i)
		dx, dy := math.Cos(a), math.Sin(a)
		best := math.Inf(1)
		for _, c := range cands {
			if t, ok := RayCircle(ex, ey, dx, dy, c.X, c.Y, c.R); ok && t <= vr && t < best {
				best = t
			}
		}
		if !math.IsInf(best, 1) {
			out[i] = activation(best, vr)
		}
	}
}

func (r *Retina) computeSingle(v Viewer, ex, ey float64, cands []Candidate, out []float64) {
	vr := r.cfg.VisionRadius
	n := len(out)
	half := r.halfFOV()
	best := make([]float64, n)
	for i := range best {
		best[i] = math.Inf(1)
	}
	for _, c := range cands {
		dx, dy := c.X-ex, c.Y-ey
		dist := math.Hypot(dx, dy)
		eff := max(dist-c.R, 0)
		if eff > vr {
			continue
		}
		rel := 0.0
		span := math.Pi / 2
		if dist > 1e-9 {
			rel = world.NormalizeAngle(math.Atan2(dy, dx) - v.Heading)
			span = math.Asin(min(1, c.R/dist))
		}
		if math.Abs(rel) > half+span {
			continue
		}
		idx := 0
		if n > 1 && half > 0 {
			idx = int(math.Round((rel + half) / (2 * half) * float64(n-1)))
			idx = min(max(idx, 0), n-1)
		}
		if eff < best[idx] {
			best[idx] = eff
		}
	}
	for i, d := range best {
		if !math.IsInf(d, 1) {
			out[i] = activation(d, vr)
		}
	}
}

func activation(d, vr float64) float64 {
	return min(max((vr-d)/vr, 0), 1)
}

// Rays returns the geometry of the last output for drawing. Each ray ends at
// the hit point, or at full vision radius when nothing was seen.
func (r *Retina) Rays(v Viewer) []RayInfo {
	if r.last == nil {
		return nil
	}
	ex, ey := v.Eye()
	vr := r.cfg.VisionRadius
	rays := make([]RayInfo, len(r.last))
	for i, act := range r.last {
		a := v.Heading + r.rayAngle(i)
		length := (1 - act) * vr
		rays[i] = RayInfo{
			EyeX:       ex,
			EyeY:       ey,
			EndX:       ex + math.Cos(a)*length,
			EndY:       ey + math.Sin(a)*length,
			Activation: act,
		}
	}
	return rays
}

// SenseBatch runs Sense for every retina, sharing one candidate buffer.
// Viewers whose countdown is still running skip candidate gathering entirely.
func SenseBatch(retinas []*Retina, viewers []Viewer, scene Scene) [][]float64 {
	out := make([][]float64, len(retinas))
	var buf []Candidate
	for i, r := range retinas {
		if r.countdown > 0 && r.last != nil {
			r.countdown--
			out[i] = r.last
			continue
		}
		v := viewers[i]
		ex, ey := v.Eye()
		buf = r.gather(v, scene, ex, ey, buf[:0])
		r.last = r.compute(v, ex, ey, buf)
		r.countdown = r.cfg.Skip
		out[i] = r.last
	}
	return out
}

// RayCircle intersects the ray p + t*d (d unit length) with a circle and
// returns the smallest t >= 0.
func RayCircle(px, py, dx, dy, cx, cy, r float64) (float64, bool) {
	ox, oy := px-cx, py-cy
	b := dx*ox + dy*oy
	c := ox*ox + oy*oy - r*r
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	sq := math.Sqrt(disc)
	if t := -b - sq; t >= 0 {
		return t, true
	}
	if t := -b + sq; t >= 0 {
		return t, true
	}
	return 0, false
}
