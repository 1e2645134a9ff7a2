package components

// Color is a display color carried from parent to child.
type Color struct {
	R, G, B uint8
}

// Default species colors.
var (
	ColorBacteria = Color{220, 220, 220}
	ColorPredator = Color{80, 120, 220}
	ColorFood     = Color{220, 30, 30}
)

// Organism identifies an agent.
type Organism struct {
	ID    uint32
	Kind  Kind
	Color Color
}

// Energy tracks an agent's stored energy and lifetime.
type Energy struct {
	Value float64
	Age   float64 // seconds
}

// Food is a consumable pellet.
type Food struct {
	ID     uint32
	Energy float64
}
