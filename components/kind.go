// Package components defines ECS components for the simulation.
package components

// Kind tags every entity that can appear in the spatial index or a sensor.
type Kind uint8

const (
	KindFood Kind = iota
	KindBacteria
	KindPredator
	kindCount
)

// NumKinds is the number of entity kinds.
const NumKinds = int(kindCount)

// String returns the record name for the kind.
func (k Kind) String() string {
	switch k {
	case KindFood:
		return "food"
	case KindBacteria:
		return "bacteria"
	case KindPredator:
		return "predator"
	default:
		return "unknown"
	}
}

// IsAgent reports whether the kind is a living agent species.
func (k Kind) IsAgent() bool {
	return k == KindBacteria || k == KindPredator
}

// ParseKind maps a record type tag to a Kind. ok is false for unknown tags.
func ParseKind(s string) (k Kind, ok bool) {
	switch s {
	case "food":
		return KindFood, true
	case "bacteria":
		return KindBacteria, true
	case "predator":
		return KindPredator, true
	}
	return 0, false
}
