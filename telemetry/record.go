package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/petri/components"
	"github.com/pthm-cable/petri/neural"
	"github.com/pthm-cable/petri/traits"
)

// MaxSensorCount caps the retina size an imported record may ask for.
const MaxSensorCount = 4096

var (
	// ErrUnknownKey is returned when a record has no value for a key.
	ErrUnknownKey = errors.New("telemetry: unknown key")
	// ErrUnknownKind is returned when a record's type is not an agent kind.
	ErrUnknownKind = errors.New("telemetry: unknown agent kind")
)

// RecordRow is one line of an agent record file.
type RecordRow struct {
	Key   string `csv:"key"`
	Value string `csv:"value"`
}

// AgentRecord is a flat key/value description of one agent. Keys keep their
// insertion order so exported files are stable.
type AgentRecord struct {
	keys   []string
	values map[string]string
}

// NewAgentRecord returns an empty record.
func NewAgentRecord() *AgentRecord {
	return &AgentRecord{values: make(map[string]string)}
}

// Set stores v under key, formatting numbers without loss.
func (r *AgentRecord) Set(key string, v any) {
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case float64:
		s = strconv.FormatFloat(x, 'g', -1, 64)
	case int:
		s = strconv.Itoa(x)
	case uint64:
		s = strconv.FormatUint(x, 10)
	case bool:
		s = strconv.FormatBool(x)
	case []float64:
		s = joinFloats(x)
	default:
		s = fmt.Sprint(x)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = s
}

// Has reports whether key is present.
func (r *AgentRecord) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// String returns the raw value for key.
func (r *AgentRecord) String(key string) (string, error) {
	v, ok := r.values[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return v, nil
}

// Float parses the value for key.
func (r *AgentRecord) Float(key string) (float64, error) {
	s, err := r.String(key)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("key %s: %w", key, err)
	}
	return f, nil
}

// Floats parses a space separated list of numbers.
func (r *AgentRecord) Floats(key string) ([]float64, error) {
	s, err := r.String(key)
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(s)
	out := make([]float64, len(fields))
	for i, f := range fields {
		if out[i], err = strconv.ParseFloat(f, 64); err != nil {
			return nil, fmt.Errorf("key %s item %d: %w", key, i, err)
		}
	}
	return out, nil
}

// floatOr returns the value for key, or def when missing or malformed.
func (r *AgentRecord) floatOr(key string, def float64) float64 {
	if f, err := r.Float(key); err == nil {
		return f
	}
	return def
}

func (r *AgentRecord) boolOr(key string, def bool) bool {
	s, err := r.String(key)
	if err != nil {
		return def
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}

// Keys returns the keys in insertion order.
func (r *AgentRecord) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Rows returns the record as key/value rows.
func (r *AgentRecord) Rows() []RecordRow {
	rows := make([]RecordRow, len(r.keys))
	for i, k := range r.keys {
		rows[i] = RecordRow{Key: k, Value: r.values[k]}
	}
	return rows
}

// MarshalJSON encodes the record as a JSON object.
func (r *AgentRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.values)
}

// UnmarshalJSON decodes a JSON object. Keys are ordered alphabetically since
// objects carry no order.
func (r *AgentRecord) UnmarshalJSON(data []byte) error {
	values := make(map[string]string)
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	r.values = values
	r.keys = make([]string, 0, len(values))
	for k := range values {
		r.keys = append(r.keys, k)
	}
	sort.Strings(r.keys)
	return nil
}

// WriteCSV writes the record as key,value rows with a header.
func (r *AgentRecord) WriteCSV(w io.Writer) error {
	rows := r.Rows()
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("writing agent record: %w", err)
	}
	return nil
}

// ReadAgentCSV parses key,value rows. Later duplicates win.
func ReadAgentCSV(rd io.Reader) (*AgentRecord, error) {
	var rows []RecordRow
	if err := gocsv.Unmarshal(rd, &rows); err != nil {
		return nil, fmt.Errorf("reading agent record: %w", err)
	}
	r := NewAgentRecord()
	for _, row := range rows {
		r.Set(strings.TrimSpace(row.Key), row.Value)
	}
	return r, nil
}

// SaveAgentFile writes r to path.
func SaveAgentFile(path string, r *AgentRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating agent file: %w", err)
	}
	if err := r.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadAgentFile reads a record from path.
func LoadAgentFile(path string) (*AgentRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening agent file: %w", err)
	}
	defer f.Close()
	return ReadAgentCSV(f)
}

// AgentState is the decoded form of an agent record.
type AgentState struct {
	Kind    components.Kind
	X, Y    float64
	Radius  float64
	Heading float64
	VX, VY  float64
	Energy  float64
	Age     float64
	Color   components.Color

	Brain  *neural.Controller
	Sensor neural.RetinaConfig
	Loco   components.Locomotion
	Meta   components.Metabolism
}

// EncodeAgent builds the record for s.
func EncodeAgent(s AgentState) *AgentRecord {
	r := NewAgentRecord()
	r.Set("type", s.Kind.String())
	r.Set("x", s.X)
	r.Set("y", s.Y)
	r.Set("r", s.Radius)
	r.Set("angle", s.Heading)
	r.Set("vx", s.VX)
	r.Set("vy", s.VY)
	r.Set("energy", s.Energy)
	r.Set("age", s.Age)
	r.Set("color", fmt.Sprintf("%d %d %d", s.Color.R, s.Color.G, s.Color.B))

	if s.Brain != nil {
		sizes := make([]string, len(s.Brain.Sizes))
		for i, n := range s.Brain.Sizes {
			sizes[i] = strconv.Itoa(n)
		}
		r.Set("brain_sizes", strings.Join(sizes, " "))
		r.Set("brain_version", s.Brain.Version())
		for l := range s.Brain.Weights {
			r.Set(fmt.Sprintf("brain_weight_%d", l), s.Brain.Weights[l])
			r.Set(fmt.Sprintf("brain_bias_%d", l), s.Brain.Biases[l])
		}
	}

	r.Set("sensor_count", s.Sensor.Count)
	r.Set("sensor_vision_radius", s.Sensor.VisionRadius)
	r.Set("sensor_fov_degrees", s.Sensor.FOVDegrees)
	r.Set("sensor_skip", s.Sensor.Skip)
	r.Set("sensor_see_food", s.Sensor.SeeFood)
	r.Set("sensor_see_bacteria", s.Sensor.SeeBacteria)
	r.Set("sensor_see_predators", s.Sensor.SeePredators)
	r.Set("sensor_mode", s.Sensor.Mode.String())

	r.Set("locomotion_max_speed", s.Loco.MaxSpeed)
	r.Set("locomotion_max_turn", s.Loco.MaxTurn)

	r.Set("energy_v0_cost", s.Meta.V0Cost)
	r.Set("energy_vmax_cost", s.Meta.VmaxCost)
	r.Set("energy_vmax_ref", s.Meta.VmaxRef)
	r.Set("energy_cap", s.Meta.EnergyCap)
	r.Set("energy_death", s.Meta.DeathEnergy)
	r.Set("energy_split", s.Meta.SplitEnergy)
	return r
}

// DecodeAgent rebuilds an agent from r. Missing fields take species
// defaults from p. A brain that is absent or does not fit its declared sizes
// is replaced by a fresh controller. The controller input always matches the
// sensor.
func DecodeAgent(r *AgentRecord, p traits.Params, rng *rand.Rand) (AgentState, error) {
	typ, err := r.String("type")
	if err != nil {
		return AgentState{}, err
	}
	kind, ok := components.ParseKind(typ)
	tr := traits.For(kind)
	if !ok || tr == nil {
		return AgentState{}, fmt.Errorf("%w: %q", ErrUnknownKind, typ)
	}

	lo, hi := tr.RadiusRange(p)
	s := AgentState{
		Kind:    kind,
		X:       r.floatOr("x", 0),
		Y:       r.floatOr("y", 0),
		Radius:  max(r.floatOr("r", (lo+hi)/2), 0.5),
		Heading: r.floatOr("angle", 0),
		VX:      r.floatOr("vx", 0),
		VY:      r.floatOr("vy", 0),
		Age:     max(r.floatOr("age", 0), 0),
		Color:   decodeColor(r, tr.Color()),
	}

	sc := tr.SensorConfig(p)
	s.Sensor = neural.RetinaConfig{
		Count:        int(min(max(r.floatOr("sensor_count", float64(sc.Count)), 1), MaxSensorCount)),
		VisionRadius: max(r.floatOr("sensor_vision_radius", sc.VisionRadius), 0),
		FOVDegrees:   min(max(r.floatOr("sensor_fov_degrees", sc.FOVDegrees), 1), 360),
		Skip:         max(int(r.floatOr("sensor_skip", float64(sc.Skip))), 0),
		SeeFood:      r.boolOr("sensor_see_food", sc.SeeFood),
		SeeBacteria:  r.boolOr("sensor_see_bacteria", sc.SeeBacteria),
		SeePredators: r.boolOr("sensor_see_predators", sc.SeePredators),
		Mode:         sc.Mode,
	}
	if m, err := r.String("sensor_mode"); err == nil {
		s.Sensor.Mode = neural.ParseVisionMode(m)
	}

	loco := tr.BuildLocomotion(p)
	s.Loco = components.Locomotion{
		MaxSpeed: max(r.floatOr("locomotion_max_speed", loco.MaxSpeed), 0),
		MaxTurn:  max(r.floatOr("locomotion_max_turn", loco.MaxTurn), 0),
	}

	meta := tr.BuildMetabolism(p)
	s.Meta = components.Metabolism{
		V0Cost:      r.floatOr("energy_v0_cost", meta.V0Cost),
		VmaxCost:    r.floatOr("energy_vmax_cost", meta.VmaxCost),
		VmaxRef:     r.floatOr("energy_vmax_ref", meta.VmaxRef),
		EnergyCap:   r.floatOr("energy_cap", meta.EnergyCap),
		DeathEnergy: r.floatOr("energy_death", meta.DeathEnergy),
		SplitEnergy: r.floatOr("energy_split", meta.SplitEnergy),
	}
	s.Energy = s.Meta.ClampEnergy(r.floatOr("energy", tr.InitialEnergy(p)))

	brain, err := decodeBrain(r)
	if err != nil {
		if r.Has("brain_sizes") {
			slog.Warn("agent_brain_replaced", "type", typ, "error", err)
		}
		if brain, err = tr.BuildController(p, rng); err != nil {
			return AgentState{}, err
		}
	}
	if err := brain.ResizeInput(rng, s.Sensor.Count); err != nil {
		return AgentState{}, err
	}
	s.Brain = brain
	return s, nil
}

func decodeBrain(r *AgentRecord) (*neural.Controller, error) {
	raw, err := r.String("brain_sizes")
	if err != nil {
		return nil, err
	}
	var sizes []int
	for _, f := range strings.Fields(strings.ReplaceAll(raw, ",", " ")) {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("brain_sizes: %w", err)
		}
		sizes = append(sizes, n)
	}
	if len(sizes) == 0 || sizes[len(sizes)-1] != neural.NumOutputs {
		return nil, fmt.Errorf("%w: sizes %v", neural.ErrArchitectureMismatch, sizes)
	}
	weights := make([][]float64, len(sizes)-1)
	biases := make([][]float64, len(sizes)-1)
	for l := range weights {
		if weights[l], err = r.Floats(fmt.Sprintf("brain_weight_%d", l)); err != nil {
			return nil, err
		}
		if biases[l], err = r.Floats(fmt.Sprintf("brain_bias_%d", l)); err != nil {
			return nil, err
		}
	}
	return neural.FromLayers(sizes, weights, biases)
}

func decodeColor(r *AgentRecord, def components.Color) components.Color {
	s, err := r.String("color")
	if err != nil {
		return def
	}
	fields := strings.Fields(strings.ReplaceAll(s, ",", " "))
	if len(fields) != 3 {
		return def
	}
	var rgb [3]uint8
	for i, f := range fields {
		n, err := strconv.ParseUint(f, 10, 8)
		if err != nil {
			return def
		}
		rgb[i] = uint8(n)
	}
	return components.Color{R: rgb[0], G: rgb[1], B: rgb[2]}
}

func joinFloats(xs []float64) string {
	var b strings.Builder
	for i, x := range xs {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
	}
	return b.String()
}
