package renderer

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/petri/engine"
	"github.com/pthm-cable/petri/telemetry"
)

// HUD renders the summary line, the perf panel and the inspector.
type HUD struct {
	painter *Painter
}

// NewHUD creates a HUD.
func NewHUD() *HUD {
	return &HUD{painter: NewPainter()}
}

// Draw renders the frame summary in the top-left corner.
func (h *HUD) Draw(info engine.Info) {
	rl.DrawText("petri", 10, 10, 20, rl.White)
	rl.DrawText(
		fmt.Sprintf("Bacteria: %d | Predators: %d | Food: %d", info.Bacteria, info.Predators, info.Food),
		10, 35, 16, rl.LightGray,
	)
	rl.DrawText(
		fmt.Sprintf("Time: %.1fs | Speed: %.2fx | FPS: %.0f | View: %s", info.SimTime, info.TimeScale, info.FPS, info.Renderer),
		10, 55, 16, rl.LightGray,
	)
	if info.Paused {
		rl.DrawText("PAUSED", 10, 75, 16, rl.Yellow)
	}
}

// DrawControls renders the key legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32) {
	rl.DrawText(
		"[Space] pause  [,/.] speed  [V] view  [Click] select  [RClick] food  [Shift+Click] bacterium  [E] export  [P] prototype  [Tab] panel  [F3] perf",
		10, screenHeight-25, 14, rl.Gray,
	)
}

// DrawPerf renders phase timings in the top-right corner.
func (h *HUD) DrawPerf(stats telemetry.PerfStats, screenWidth int32) {
	x := screenWidth - 260
	y := int32(10)
	h.painter.DrawPanel(x-10, y-5, 260, int32(len(telemetry.Phases))*14+50)

	rl.DrawText("Performance", x, y, 16, rl.White)
	y += 20
	rl.DrawText(fmt.Sprintf("Tick: %s  TPS: %.0f", stats.AvgTickDuration.Round(time.Microsecond), stats.TicksPerSecond), x, y, 12, rl.Yellow)
	y += 16

	for _, phase := range telemetry.Phases {
		pct := stats.PhasePct[phase]
		color := rl.LightGray
		if pct > 20 {
			color = rl.Red
		} else if pct > 10 {
			color = rl.Orange
		}
		rl.DrawText(
			fmt.Sprintf("%-16s %8s %5.1f%%", phase, stats.PhaseAvg[phase].Round(time.Microsecond), pct),
			x, y, 12, color,
		)
		y += 14
	}
}

// DrawInspector renders the selected agent panel.
func (h *HUD) DrawInspector(d *engine.AgentDetail, energyCap float64, screenWidth, screenHeight int32) {
	if d == nil {
		return
	}
	p := h.painter
	width := int32(300)
	height := int32(380)
	x := screenWidth - width - 10
	y := screenHeight - height - 40
	p.DrawPanel(x, y, width, height)

	cx := x + p.Theme.Padding
	cw := width - 2*p.Theme.Padding
	cy := y + p.Theme.Padding

	cy = p.DrawSectionHeader(cx, cy, fmt.Sprintf("%s #%d", d.Kind, d.ID))
	cy = p.DrawEnergyBar(cx, cy, "Energy", float32(d.Energy), float32(energyCap), cw)
	cy = p.DrawLabelValue(cx, cy, "Age", fmt.Sprintf("%.1fs", d.Age))
	cy = p.DrawLabelValue(cx, cy, "Radius", fmt.Sprintf("%.1f", d.R))
	cy = p.DrawLabelValue(cx, cy, "Layers", fmt.Sprint(d.Sizes))
	cy = p.DrawLabelValue(cx, cy, "Version", fmt.Sprint(d.Version))
	for i, v := range d.Output {
		if i < len(OutputLabels) {
			cy = p.DrawCenteredBar(cx, cy, OutputLabels[i], float32(v), 3, cw)
		}
	}
	cy += 4
	DrawNetworkDiagram(cx, cy, cw-40, y+height-cy-p.Theme.Padding, d)
}
