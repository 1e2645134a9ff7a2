package components

// Locomotion bounds how an agent turns controller outputs into motion.
type Locomotion struct {
	MaxSpeed float64 // world units per second
	MaxTurn  float64 // radians per second
}

// Metabolism holds the cost curve and energy thresholds of an agent.
type Metabolism struct {
	V0Cost      float64 // energy per second at rest
	VmaxCost    float64 // energy per second at VmaxRef
	VmaxRef     float64 // reference speed for the cost curve
	EnergyCap   float64
	DeathEnergy float64
	SplitEnergy float64
}

// Cost returns the energy drained per second at the given speed.
func (m Metabolism) Cost(speed float64) float64 {
	if m.VmaxRef <= 0 {
		return m.V0Cost
	}
	v := speed
	if v < 0 {
		v = 0
	} else if v > m.VmaxRef {
		v = m.VmaxRef
	}
	return m.V0Cost + v/m.VmaxRef*(m.VmaxCost-m.V0Cost)
}

// ShouldDie reports whether energy has fallen to the death threshold.
func (m Metabolism) ShouldDie(energy float64) bool {
	return energy <= m.DeathEnergy
}

// CanReproduce reports whether energy has reached the split threshold.
func (m Metabolism) CanReproduce(energy float64) bool {
	return energy >= m.SplitEnergy
}

// ClampEnergy bounds energy to [0, EnergyCap].
func (m Metabolism) ClampEnergy(energy float64) float64 {
	if energy < 0 {
		return 0
	}
	if m.EnergyCap > 0 && energy > m.EnergyCap {
		return m.EnergyCap
	}
	return energy
}
