// Package traits holds the per-species parameter tables that build an agent's
// controller, retina, locomotion and metabolism from live parameters.
package traits

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/pthm-cable/petri/components"
	"github.com/pthm-cable/petri/neural"
)

// Params is the read side of the named-parameter map.
type Params interface {
	Float(name string, def float64) float64
	Int(name string, def int) int
	Bool(name string, def bool) bool
	String(name string, def string) string
}

// SpeciesTraits is everything that differs between species.
type SpeciesTraits interface {
	Kind() components.Kind
	Prefix() string
	Color() components.Color

	MutationRate(p Params) float64
	MutationStrength(p Params) float64
	StructuralJitter(p Params) bool

	SensorConfig(p Params) neural.RetinaConfig
	BuildSensor(p Params) *neural.Retina
	BuildLocomotion(p Params) components.Locomotion
	BuildMetabolism(p Params) components.Metabolism
	BuildController(p Params, rng *rand.Rand) (*neural.Controller, error)

	RadiusRange(p Params) (lo, hi float64)
	InitialEnergy(p Params) float64
	Limits(p Params) (lo, hi int)
	SurvivalMargin(p Params) float64
	InitialCount(p Params) int
}

// maxHiddenLayers is the number of neurons_layer_N keys consulted.
const maxHiddenLayers = 5

// table holds the fallback values used when a key is missing from Params.
type table struct {
	kind   components.Kind
	prefix string
	color  components.Color

	count         int
	minR, maxR    float64
	minLimit      int
	maxLimit      int
	initialEnergy float64

	v0Cost, vmaxCost float64
	energyCap        float64
	splitEnergy      float64

	seeFood, seeBacteria, seePredators bool
	hidden                             []int
}

func (t table) key(name string) string {
	return t.prefix + "_" + name
}

func (t table) Kind() components.Kind   { return t.kind }
func (t table) Prefix() string          { return t.prefix }
func (t table) Color() components.Color { return t.color }

func (t table) MutationRate(p Params) float64 {
	return min(max(p.Float(t.key("mutation_rate"), 0.05), 0), 1)
}

func (t table) MutationStrength(p Params) float64 {
	return max(p.Float(t.key("mutation_strength"), 0.08), 0)
}

func (t table) StructuralJitter(p Params) bool {
	return p.Float(t.key("structural_jitter"), 0) > 0
}

// SensorConfig reads the retina parameters. The skip count and resolution
// mode are shared by both species.
func (t table) SensorConfig(p Params) neural.RetinaConfig {
	return neural.RetinaConfig{
		Count:        max(p.Int(t.key("retina_count"), 18), 1),
		VisionRadius: max(p.Float(t.key("vision_radius"), 120), 0),
		FOVDegrees:   min(max(p.Float(t.key("retina_fov_degrees"), 180), 1), 360),
		Skip:         max(p.Int("retina_skip", 0), 0),
		SeeFood:      p.Bool(t.key("retina_see_food"), t.seeFood),
		SeeBacteria:  p.Bool(t.key("retina_see_bacteria"), t.seeBacteria),
		SeePredators: p.Bool(t.key("retina_see_predators"), t.seePredators),
		Mode:         neural.ParseVisionMode(p.String("retina_vision_mode", "fullbody")),
	}
}

func (t table) BuildSensor(p Params) *neural.Retina {
	return neural.NewRetina(t.SensorConfig(p))
}

func (t table) BuildLocomotion(p Params) components.Locomotion {
	return components.Locomotion{
		MaxSpeed: max(p.Float(t.key("max_speed"), 300), 0),
		MaxTurn:  max(p.Float(t.key("max_turn"), math.Pi), 0),
	}
}

// BuildMetabolism reads the cost curve. The reference speed defaults to the
// species max speed.
func (t table) BuildMetabolism(p Params) components.Metabolism {
	return components.Metabolism{
		V0Cost:      p.Float(t.key("metab_v0_cost"), t.v0Cost),
		VmaxCost:    p.Float(t.key("metab_vmax_cost"), t.vmaxCost),
		VmaxRef:     p.Float(t.key("metab_vmax_ref"), t.BuildLocomotion(p).MaxSpeed),
		EnergyCap:   p.Float(t.key("energy_cap"), t.energyCap),
		DeathEnergy: p.Float(t.key("death_energy"), 0),
		SplitEnergy: p.Float(t.key("split_energy"), t.splitEnergy),
	}
}

// HiddenSizes returns the configured hidden layer widths.
func (t table) HiddenSizes(p Params) []int {
	n := min(max(p.Int(t.key("hidden_layers"), len(t.hidden)), 0), maxHiddenLayers)
	sizes := make([]int, n)
	for i := range sizes {
		def := t.hidden[len(t.hidden)-1]
		if i < len(t.hidden) {
			def = t.hidden[i]
		}
		sizes[i] = max(p.Int(fmt.Sprintf("%s_neurons_layer_%d", t.prefix, i+1), def), 1)
	}
	return sizes
}

// BuildController creates a fresh controller whose input matches the retina.
func (t table) BuildController(p Params, rng *rand.Rand) (*neural.Controller, error) {
	sizes := []int{t.SensorConfig(p).Count}
	sizes = append(sizes, t.HiddenSizes(p)...)
	sizes = append(sizes, neural.NumOutputs)
	c, err := neural.NewController(rng, sizes, 1.0)
	if err != nil {
		return nil, fmt.Errorf("%s controller: %w", t.prefix, err)
	}
	return c, nil
}

func (t table) RadiusRange(p Params) (float64, float64) {
	lo := max(p.Float(t.key("min_r"), t.minR), 0.5)
	hi := max(p.Float(t.key("max_r"), t.maxR), lo)
	return lo, hi
}

func (t table) InitialEnergy(p Params) float64 {
	return p.Float(t.key("initial_energy"), t.initialEnergy)
}

func (t table) Limits(p Params) (int, int) {
	lo := max(p.Int(t.key("min_limit"), t.minLimit), 0)
	hi := max(p.Int(t.key("max_limit"), t.maxLimit), lo)
	return lo, hi
}

func (t table) SurvivalMargin(p Params) float64 {
	return max(p.Float(t.key("survival_margin"), 10), 0)
}

func (t table) InitialCount(p Params) int {
	return max(p.Int(t.key("count"), t.count), 0)
}

type bacteria struct{ table }

type predator struct{ table }

var (
	_ SpeciesTraits = (*bacteria)(nil)
	_ SpeciesTraits = (*predator)(nil)
)

// Bacteria grazes on food.
var Bacteria SpeciesTraits = &bacteria{table{
	kind:          components.KindBacteria,
	prefix:        "bacteria",
	color:         components.ColorBacteria,
	count:         150,
	minR:          6,
	maxR:          12,
	minLimit:      10,
	maxLimit:      300,
	initialEnergy: 100,
	v0Cost:        0.5,
	vmaxCost:      8,
	energyCap:     400,
	splitEnergy:   150,
	seeFood:       true,
	hidden:        []int{20, 20, 20, 20},
}}

// Predator hunts bacteria.
var Predator SpeciesTraits = &predator{table{
	kind:          components.KindPredator,
	prefix:        "predator",
	color:         components.ColorPredator,
	count:         10,
	minR:          10,
	maxR:          18,
	minLimit:      0,
	maxLimit:      100,
	initialEnergy: 150,
	v0Cost:        1,
	vmaxCost:      15,
	energyCap:     600,
	splitEnergy:   300,
	seeFood:       true,
	seeBacteria:   true,
	hidden:        []int{16, 8},
}}

// For returns the traits of an agent kind, or nil for non-agents.
func For(k components.Kind) SpeciesTraits {
	switch k {
	case components.KindBacteria:
		return Bacteria
	case components.KindPredator:
		return Predator
	}
	return nil
}
