package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsLoad(t *testing.T) {
	p := Defaults()

	if got := p.Int("bacteria_count", -1); got != 150 {
		t.Errorf("bacteria_count: got %d, want 150", got)
	}
	if got := p.Float("world_w", 0); got != 1000 {
		t.Errorf("world_w: got %f, want 1000", got)
	}
	if got := p.String("substrate_shape", ""); got != "rectangular" {
		t.Errorf("substrate_shape: got %q, want rectangular", got)
	}
	if p.Bool("predators_enabled", true) {
		t.Error("predators should be disabled by default")
	}
}

func TestGetMissingReturnsDefault(t *testing.T) {
	p := Defaults()

	if got := p.Get("no_such_key", 7); got != 7 {
		t.Errorf("got %v, want 7", got)
	}
	if got := p.Float("no_such_key", 2.5); got != 2.5 {
		t.Errorf("got %f, want 2.5", got)
	}
	if got := p.String("no_such_key", "x"); got != "x" {
		t.Errorf("got %q, want x", got)
	}
}

func TestValidateByName(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
		want  any
	}{
		{"count negative", "bacteria_count", -5, 0},
		{"count float truncates", "food_count", 12.7, 12},
		{"limit string", "bacteria_max_limit", "40", 40},
		{"mass negative", "bacteria_initial_mass", -1.0, 0.0},
		{"radius int", "substrate_radius", 300, 300.0},
		{"suffix r", "food_max_r", -3, 0.0},
		{"mutation rate high", "bacteria_mutation_rate", 1.7, 1.0},
		{"mutation rate low", "predator_mutation_rate", -0.2, 0.0},
		{"time scale floor", "time_scale", 0.0, 0.1},
		{"fps floor", "fps", 0.01, 0.1},
		{"fov high", "bacteria_retina_fov_degrees", 720, 360.0},
		{"fov low", "predator_retina_fov_degrees", 0, 1.0},
		{"passthrough", "substrate_shape", "circular", "circular"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Validate(tc.key, tc.value)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("Validate(%q, %v) = %v (%T), want %v (%T)", tc.key, tc.value, got, got, tc.want, tc.want)
			}
		})
	}
}

func TestValidateRejectsNonNumeric(t *testing.T) {
	_, err := Validate("bacteria_count", "many")
	if !errors.Is(err, ErrInvalidValue) {
		t.Errorf("got %v, want ErrInvalidValue", err)
	}
}

func TestSetStoresCoercedValue(t *testing.T) {
	p := Defaults()

	stored, err := p.Set("bacteria_count", 3.9)
	if err != nil {
		t.Fatal(err)
	}
	if stored != 3 {
		t.Errorf("stored %v, want 3", stored)
	}
	if got := p.Int("bacteria_count", 0); got != 3 {
		t.Errorf("got %d, want 3", got)
	}
}

func TestLoadMergesUserFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "params.yaml")
	content := "bacteria_count: 20\nsubstrate_shape: circular\ntime_scale: 0\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := p.Int("bacteria_count", 0); got != 20 {
		t.Errorf("bacteria_count: got %d, want 20", got)
	}
	if got := p.String("substrate_shape", ""); got != "circular" {
		t.Errorf("substrate_shape: got %q", got)
	}
	if got := p.Float("time_scale", 0); got != 0.1 {
		t.Errorf("time_scale should be clamped: got %f", got)
	}
	// untouched keys keep their defaults
	if got := p.Int("food_target", 0); got != 50 {
		t.Errorf("food_target: got %d, want 50", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	p := Defaults()
	p.Set("bacteria_count", 77)

	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := p.WriteYAML(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := loaded.Int("bacteria_count", 0); got != 77 {
		t.Errorf("got %d, want 77", got)
	}
}

func TestApplyProfile(t *testing.T) {
	p := Defaults()
	if err := p.ApplyProfile("performance"); err != nil {
		t.Fatal(err)
	}
	if got := p.Int("retina_skip", 0); got != 2 {
		t.Errorf("retina_skip: got %d, want 2", got)
	}
	if err := p.ApplyProfile("turbo"); !errors.Is(err, ErrUnknownProfile) {
		t.Errorf("got %v, want ErrUnknownProfile", err)
	}
}

func TestWriteProfileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	overrides := map[string]any{"bacteria_max_limit": 310.6, "bacteria_split_energy": 180.5}
	if err := WriteProfile(path, "tuned", overrides); err != nil {
		t.Fatal(err)
	}

	p := Defaults()
	if err := p.ApplyProfileFile(path, "tuned"); err != nil {
		t.Fatal(err)
	}
	// overrides pass through validation, so counts come back as integers
	if got := p.Get("bacteria_max_limit", nil); got != 310 {
		t.Errorf("bacteria_max_limit: got %v (%T), want 310", got, got)
	}
	if got := p.Float("bacteria_split_energy", 0); got != 180.5 {
		t.Errorf("bacteria_split_energy: got %v, want 180.5", got)
	}
	if err := p.ApplyProfileFile(path, "missing"); !errors.Is(err, ErrUnknownProfile) {
		t.Errorf("got %v, want ErrUnknownProfile", err)
	}
	if err := p.ApplyProfileFile(filepath.Join(t.TempDir(), "none.yaml"), "tuned"); err == nil {
		t.Error("missing file: want error")
	}
}

func TestCopyIsIndependent(t *testing.T) {
	p := Defaults()
	c := p.Copy()
	c.Set("bacteria_count", 1)

	if got := p.Int("bacteria_count", 0); got != 150 {
		t.Errorf("original changed: got %d", got)
	}
}
