package components

// Position represents an entity's world position.
type Position struct {
	X, Y float64
}

// Velocity represents an entity's velocity in world units per second.
type Velocity struct {
	X, Y float64
}

// Rotation represents an entity's heading.
type Rotation struct {
	Heading float64 // radians, (-pi, pi]
}
