package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/petri/engine"
)

// Output labels for the controller's two outputs.
var OutputLabels = []string{"Speed", "Steer"}

// Network diagram colors.
var (
	ColorNodePositive = rl.Color{R: 255, G: 100, B: 100, A: 255}
	ColorNodeNegative = rl.Color{R: 100, G: 100, B: 255, A: 255}
	ColorLabelDim     = rl.Color{R: 120, G: 120, B: 120, A: 255}
)

// maxDrawnNodes caps nodes per column; wider layers are sampled evenly.
const maxDrawnNodes = 24

// networkLayout positions the drawn nodes of each layer inside the box.
// Columns are spread evenly across the width and each column is centred
// vertically. Layers wider than maxDrawnNodes are drawn with maxDrawnNodes.
func networkLayout(sizes []int, x, y, width, height float32) [][]rl.Vector2 {
	if len(sizes) == 0 {
		return nil
	}
	cols := float32(len(sizes))
	colWidth := width / cols
	out := make([][]rl.Vector2, len(sizes))
	for l, n := range sizes {
		n = min(n, maxDrawnNodes)
		cx := x + colWidth*(float32(l)+0.5)
		spacing := height / float32(maxDrawnNodes)
		top := y + (height-spacing*float32(n-1))/2
		nodes := make([]rl.Vector2, n)
		for i := range nodes {
			nodes[i] = rl.Vector2{X: cx, Y: top + float32(i)*spacing}
		}
		out[l] = nodes
	}
	return out
}

// sampleIndex maps drawn node i of drawn to a unit index in a layer of size n.
func sampleIndex(i, drawn, n int) int {
	if drawn >= n || drawn <= 1 {
		return i
	}
	return i * (n - 1) / (drawn - 1)
}

// activationColor returns a color for an activation: negative blue, zero
// grey, positive red.
func activationColor(activation float32) rl.Color {
	if activation > 0 {
		t := min(activation, 1)
		return rl.Color{R: uint8(60 + t*195), G: uint8(60 - t*30), B: uint8(60 - t*30), A: 255}
	}
	t := min(-activation, 1)
	return rl.Color{R: uint8(60 - t*30), G: uint8(60 - t*30), B: uint8(60 + t*195), A: 255}
}

// DrawNetworkDiagram renders the selected agent's controller with the
// activations of its last input. The first column is the retina.
func DrawNetworkDiagram(x, y, width, height int32, d *engine.AgentDetail) {
	if d == nil || len(d.Sizes) == 0 || len(d.Activations) == 0 {
		rl.DrawText("No network data", x+10, y+10, 14, ColorLabelDim)
		return
	}

	layout := networkLayout(d.Sizes, float32(x), float32(y)+6, float32(width), float32(height)-12)
	values := append([][]float64{d.Inputs}, d.Activations...)
	nodeRadius := float32(4)

	for l := 1; l < len(layout); l++ {
		for _, to := range layout[l] {
			for _, from := range layout[l-1] {
				rl.DrawLineV(from, to, rl.Color{R: 90, G: 90, B: 90, A: 25})
			}
		}
	}

	for l, nodes := range layout {
		for i, pos := range nodes {
			var act float32
			if l < len(values) {
				if k := sampleIndex(i, len(nodes), d.Sizes[l]); k < len(values[l]) {
					act = float32(values[l][k])
				}
			}
			r := nodeRadius
			if l == len(layout)-1 {
				r += 2
				if i < len(OutputLabels) {
					rl.DrawText(OutputLabels[i], int32(pos.X+r+6), int32(pos.Y)-5, 10, ColorLabelDim)
				}
			}
			rl.DrawCircleV(pos, r, activationColor(act))
			rl.DrawCircleLinesV(pos, r, rl.Color{R: 100, G: 100, B: 100, A: 255})
		}
	}
}
