package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 2

// ErrSnapshotVersion is returned when loading a snapshot from a newer format.
var ErrSnapshotVersion = errors.New("telemetry: unsupported snapshot version")

// WorldState describes the substrate.
type WorldState struct {
	Shape  string  `json:"shape"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Radius float64 `json:"radius"`
}

// CameraState is the saved view.
type CameraState struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// FoodState is one saved pellet.
type FoodState struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	R      float64 `json:"r"`
	Energy float64 `json:"energy"`
}

// WorldSnapshot holds everything needed to restore a running world.
type WorldSnapshot struct {
	ID        string    `json:"id,omitempty"`
	Version   int       `json:"version"`
	Timestamp time.Time `json:"timestamp"`

	Params map[string]any `json:"params"`
	World  WorldState     `json:"world"`
	Camera CameraState    `json:"camera"`

	SimTime    float64 `json:"simulation_time"`
	FoodCount  int     `json:"food_count"`
	FoodTarget int     `json:"food_target"`

	Foods  []FoodState    `json:"foods"`
	Agents []*AgentRecord `json:"agents"`

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// SnapshotInfo is the listing entry for a stored snapshot.
type SnapshotInfo struct {
	ID        string
	Timestamp time.Time
	SimTime   float64
	Agents    int
}

// Info returns the listing entry for s.
func (s *WorldSnapshot) Info() SnapshotInfo {
	return SnapshotInfo{ID: s.ID, Timestamp: s.Timestamp, SimTime: s.SimTime, Agents: len(s.Agents)}
}

// MarshalSnapshot encodes s as indented JSON.
func MarshalSnapshot(s *WorldSnapshot) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}

// UnmarshalSnapshot decodes and version-checks a snapshot.
func UnmarshalSnapshot(data []byte) (*WorldSnapshot, error) {
	var s WorldSnapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if s.Version > SnapshotVersion {
		return nil, fmt.Errorf("%w: %d", ErrSnapshotVersion, s.Version)
	}
	return &s, nil
}

// SnapshotFilename names a snapshot file by simulated time and bookmark.
func SnapshotFilename(s *WorldSnapshot) string {
	name := fmt.Sprintf("snapshot_%.0f", s.SimTime)
	if s.Bookmark != nil {
		name += "_" + strings.ReplaceAll(string(s.Bookmark.Type), " ", "_")
	}
	return name + ".json"
}

// SaveSnapshot writes a snapshot into dir and returns its path.
func SaveSnapshot(s *WorldSnapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}
	data, err := MarshalSnapshot(s)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, SnapshotFilename(s))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*WorldSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return UnmarshalSnapshot(data)
}
