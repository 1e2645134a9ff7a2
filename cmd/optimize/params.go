package main

import (
	"fmt"

	"github.com/pthm-cable/petri/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // parameter key
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
	Integer bool    // rounded before applying
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Metabolism - Bacteria
			{Name: "bacteria_metab_v0_cost", Min: 0.1, Max: 2.0, Default: 0.5},
			{Name: "bacteria_metab_vmax_cost", Min: 2.0, Max: 20.0, Default: 8.0},
			{Name: "bacteria_split_energy", Min: 80, Max: 350, Default: 150},
			{Name: "bacteria_max_speed", Min: 80, Max: 400, Default: 300},
			// Metabolism - Predator
			{Name: "predator_metab_v0_cost", Min: 0.2, Max: 4.0, Default: 1.0},
			{Name: "predator_metab_vmax_cost", Min: 4.0, Max: 30.0, Default: 15.0},
			{Name: "predator_split_energy", Min: 150, Max: 550, Default: 300},
			{Name: "predator_max_speed", Min: 80, Max: 400, Default: 300},
			// Food
			{Name: "food_target", Min: 20, Max: 300, Default: 50, Integer: true},
			{Name: "food_energy_per_area", Min: 0.3, Max: 3.0, Default: 1.0},
			// Population
			{Name: "bacteria_max_limit", Min: 100, Max: 1000, Default: 300, Integer: true},
			{Name: "predator_max_limit", Min: 20, Max: 300, Default: 100, Integer: true},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// Overrides maps every parameter name to its clamped value, rounded for
// integer parameters.
func (pv *ParamVector) Overrides(values []float64) map[string]any {
	out := make(map[string]any, len(pv.Specs))
	for i, v := range pv.Clamp(values) {
		spec := pv.Specs[i]
		if spec.Integer {
			out[spec.Name] = int(v + 0.5)
		} else {
			out[spec.Name] = v
		}
	}
	return out
}

// Apply sets the clamped values on p through validation.
func (pv *ParamVector) Apply(p *config.Params, values []float64) error {
	overrides := pv.Overrides(values)
	for _, spec := range pv.Specs {
		if _, err := p.Set(spec.Name, overrides[spec.Name]); err != nil {
			return fmt.Errorf("apply %s: %w", spec.Name, err)
		}
	}
	return nil
}

// Extract reads the current values of every spec from p.
func (pv *ParamVector) Extract(p *config.Params) []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = p.Float(spec.Name, spec.Default)
	}
	return v
}
