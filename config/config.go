// Package config provides the named-parameter map shared by the engine and its
// control surfaces.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

//go:embed profiles.yaml
var profilesYAML []byte

var (
	// ErrInvalidValue is returned when a value cannot be coerced to the type
	// implied by its parameter name.
	ErrInvalidValue = errors.New("config: invalid value")

	// ErrUnknownProfile is returned by ApplyProfile for an unregistered name.
	ErrUnknownProfile = errors.New("config: unknown profile")
)

// Params is a flat map of named simulation parameters.
// It is safe for concurrent use: the control surface writes while the engine reads.
type Params struct {
	mu   sync.RWMutex
	data map[string]any
}

// global holds the loaded parameters.
var global *Params

// Init loads parameters from path (empty = defaults only) into the global instance.
func Init(path string) error {
	p, err := Load(path)
	if err != nil {
		return err
	}
	global = p
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global parameters. Panics if Init was not called.
func Cfg() *Params {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Defaults returns a fresh Params holding only the embedded defaults.
func Defaults() *Params {
	p, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return p
}

// Load reads a YAML parameter file, merging it over the embedded defaults.
// Values from the file pass through the same validation as Set.
func Load(path string) (*Params, error) {
	data := make(map[string]any)
	if err := yaml.Unmarshal(defaultsYAML, &data); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	p := &Params{data: data}

	if path == "" {
		return p, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	user := make(map[string]any)
	if err := yaml.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	for k, v := range user {
		if _, err := p.Set(k, v); err != nil {
			return nil, fmt.Errorf("config file key %q: %w", k, err)
		}
	}
	return p, nil
}

// Get returns the raw value for name, or def when absent.
func (p *Params) Get(name string, def any) any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if v, ok := p.data[name]; ok {
		return v
	}
	return def
}

// Float returns name as a float64, or def when absent or not numeric.
func (p *Params) Float(name string, def float64) float64 {
	if f, ok := toFloat(p.Get(name, nil)); ok {
		return f
	}
	return def
}

// Int returns name as an int, or def when absent or not numeric.
func (p *Params) Int(name string, def int) int {
	if f, ok := toFloat(p.Get(name, nil)); ok {
		return int(f)
	}
	return def
}

// Bool returns name as a bool, or def when absent or not boolean.
func (p *Params) Bool(name string, def bool) bool {
	switch v := p.Get(name, nil).(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// String returns name as a string, or def when absent.
func (p *Params) String(name string, def string) string {
	switch v := p.Get(name, nil).(type) {
	case string:
		return v
	case nil:
		return def
	default:
		return fmt.Sprint(v)
	}
}

// Set validates value by naming convention and stores it.
// It returns the value actually stored (after coercion and clamping).
func (p *Params) Set(name string, value any) (any, error) {
	v, err := Validate(name, value)
	if err != nil {
		return nil, err
	}
	p.SetRaw(name, v)
	return v, nil
}

// SetRaw stores value without validation. Used when restoring snapshots.
func (p *Params) SetRaw(name string, value any) {
	p.mu.Lock()
	p.data[name] = value
	p.mu.Unlock()
}

// Keys returns all parameter names in sorted order.
func (p *Params) Keys() []string {
	p.mu.RLock()
	keys := make([]string, 0, len(p.data))
	for k := range p.data {
		keys = append(keys, k)
	}
	p.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Snapshot returns a shallow copy of the parameter map.
func (p *Params) Snapshot() map[string]any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]any, len(p.data))
	for k, v := range p.data {
		out[k] = v
	}
	return out
}

// Copy returns an independent Params with the same values.
func (p *Params) Copy() *Params {
	return &Params{data: p.Snapshot()}
}

// Profiles returns the names of the embedded profiles.
func Profiles() []string {
	profiles, err := loadProfiles()
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyProfile overlays a named profile onto p.
func (p *Params) ApplyProfile(name string) error {
	profiles, err := loadProfiles()
	if err != nil {
		return err
	}
	overrides, ok := profiles[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProfile, name)
	}
	for k, v := range overrides {
		p.SetRaw(k, v)
	}
	return nil
}

// ApplyProfileFile overlays the named profile from a profiles YAML file,
// such as one written by WriteProfile.
func (p *Params) ApplyProfileFile(path, name string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading profiles file: %w", err)
	}
	profiles, err := parseProfiles(data)
	if err != nil {
		return err
	}
	overrides, ok := profiles[name]
	if !ok {
		return fmt.Errorf("%w: %s in %s", ErrUnknownProfile, name, path)
	}
	for k, v := range overrides {
		if _, err := p.Set(k, v); err != nil {
			return fmt.Errorf("profile %s: %w", name, err)
		}
	}
	return nil
}

// WriteProfile saves overrides as a single named profile in the same layout
// as the embedded profiles.
func WriteProfile(path, name string, overrides map[string]any) error {
	data, err := yaml.Marshal(map[string]map[string]any{name: overrides})
	if err != nil {
		return fmt.Errorf("marshaling profile: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing profile file: %w", err)
	}
	return nil
}

func loadProfiles() (map[string]map[string]any, error) {
	profiles, err := parseProfiles(profilesYAML)
	if err != nil {
		return nil, fmt.Errorf("embedded: %w", err)
	}
	return profiles, nil
}

func parseProfiles(data []byte) (map[string]map[string]any, error) {
	profiles := make(map[string]map[string]any)
	if err := yaml.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("parsing profiles: %w", err)
	}
	return profiles, nil
}

// WriteYAML saves the parameter map to a YAML file.
func (p *Params) WriteYAML(path string) error {
	data, err := yaml.Marshal(p.Snapshot())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate coerces value according to the convention implied by name:
//
//	*count*, *limit*      non-negative integer
//	*mass*, *radius*, *_r non-negative float
//	*mutation*rate*       float clamped to [0, 1]
//	time_scale, fps       float >= 0.1
//	*_fov_degrees         float clamped to [1, 360]
//
// Other names are stored unchanged.
func Validate(name string, value any) (any, error) {
	switch {
	case strings.Contains(name, "count") || strings.Contains(name, "limit"):
		f, ok := toFloat(value)
		if !ok {
			return nil, fmt.Errorf("%w: %s=%v", ErrInvalidValue, name, value)
		}
		return max(0, int(f)), nil
	case strings.Contains(name, "mass") || strings.Contains(name, "radius") || strings.HasSuffix(name, "_r"):
		f, ok := toFloat(value)
		if !ok {
			return nil, fmt.Errorf("%w: %s=%v", ErrInvalidValue, name, value)
		}
		return max(0.0, f), nil
	case strings.Contains(name, "rate") && strings.Contains(name, "mutation"):
		f, ok := toFloat(value)
		if !ok {
			return nil, fmt.Errorf("%w: %s=%v", ErrInvalidValue, name, value)
		}
		return min(1.0, max(0.0, f)), nil
	case name == "time_scale" || name == "fps":
		f, ok := toFloat(value)
		if !ok {
			return nil, fmt.Errorf("%w: %s=%v", ErrInvalidValue, name, value)
		}
		return max(0.1, f), nil
	case strings.HasSuffix(name, "_fov_degrees"):
		f, ok := toFloat(value)
		if !ok {
			return nil, fmt.Errorf("%w: %s=%v", ErrInvalidValue, name, value)
		}
		return min(360.0, max(1.0, f)), nil
	}
	return value, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}
