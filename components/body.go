package components

// Body holds the fixed physical size of an entity.
type Body struct {
	Radius float64
	Mass   float64 // inertial mass used by collisions
}

// NewBody returns a body whose inertial mass is proportional to its area.
func NewBody(radius float64) Body {
	return Body{Radius: radius, Mass: radius * radius}
}
