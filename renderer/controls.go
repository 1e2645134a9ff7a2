package renderer

import (
	"fmt"
	"log/slog"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/petri/config"
	"github.com/pthm-cable/petri/engine"
)

// slider is a float parameter exposed on the control panel.
type slider struct {
	key      string
	label    string
	min, max float32
	format   string
}

// checkbox is a boolean parameter exposed on the control panel.
type checkbox struct {
	key   string
	label string
}

var panelSliders = []slider{
	{"time_scale", "Time scale", 0.1, 8, "%.2f"},
	{"food_target", "Food target", 0, 500, "%.0f"},
	{"food_replenish_interval", "Food interval", 0.01, 2, "%.2f"},
	{"max_deaths_per_step", "Deaths/step", 0, 20, "%.0f"},
	{"retina_skip", "Retina skip", 0, 10, "%.0f"},
	{"bacteria_mutation_rate", "Bact. mut. rate", 0, 0.5, "%.3f"},
	{"bacteria_split_energy", "Bact. split", 50, 400, "%.0f"},
	{"predator_split_energy", "Pred. split", 50, 600, "%.0f"},
}

var panelCheckboxes = []checkbox{
	{"paused", "Paused"},
	{"use_spatial", "Spatial hash"},
	{"predators_enabled", "Predators (on reset)"},
	{"bacteria_retina_see_bacteria", "Bacteria see kin"},
	{"predator_retina_see_predators", "Predators see kin"},
}

// ControlsPanel renders the raygui parameter panel on the left side.
type ControlsPanel struct {
	painter *Painter
	x, y    int32
	width   int32
	visible bool
}

// NewControlsPanel creates a hidden controls panel.
func NewControlsPanel(x, y, width int32) *ControlsPanel {
	return &ControlsPanel{painter: NewPainter(), x: x, y: y, width: width}
}

// Toggle switches panel visibility.
func (c *ControlsPanel) Toggle() bool {
	c.visible = !c.visible
	return c.visible
}

// Visible reports whether the panel is shown.
func (c *ControlsPanel) Visible() bool {
	return c.visible
}

// Contains reports whether a screen point is over the panel, so clicks there
// are not forwarded to the world.
func (c *ControlsPanel) Contains(sx, sy float32) bool {
	if !c.visible {
		return false
	}
	return sx >= float32(c.x) && sx <= float32(c.x+c.width) && sy >= float32(c.y) && sy <= float32(c.y+c.height())
}

func (c *ControlsPanel) height() int32 {
	return int32(len(panelSliders))*26 + int32(len(panelCheckboxes))*22 + 110
}

// Draw renders the panel and applies any edits to p. Buttons queue commands
// on sim.
func (c *ControlsPanel) Draw(p *config.Params, sim Sim) {
	if !c.visible {
		return
	}
	pad := c.painter.Theme.Padding
	c.painter.DrawPanel(c.x, c.y, c.width, c.height())

	x := float32(c.x + pad)
	y := float32(c.y + pad)
	w := float32(c.width - 2*pad)
	rl.DrawText("Parameters", int32(x), int32(y), 16, rl.White)
	y += 24

	for _, s := range panelSliders {
		cur := float32(p.Float(s.key, float64(s.min)))
		rl.DrawText(s.label, int32(x), int32(y)+4, 12, rl.LightGray)
		next := gui.SliderBar(rl.Rectangle{X: x + 110, Y: y, Width: w - 170, Height: 18}, "", "", cur, s.min, s.max)
		rl.DrawText(fmt.Sprintf(s.format, next), int32(x+w-52), int32(y)+4, 12, rl.LightGray)
		if next != cur {
			setParam(p, s.key, float64(next))
		}
		y += 26
	}

	for _, cb := range panelCheckboxes {
		cur := p.Bool(cb.key, false)
		if next := gui.CheckBox(rl.Rectangle{X: x, Y: y, Width: 14, Height: 14}, cb.label, cur); next != cur {
			setParam(p, cb.key, next)
		}
		y += 22
	}

	y += 6
	if gui.Button(rl.Rectangle{X: x, Y: y, Width: (w - 10) / 2, Height: 26}, "Reset population") {
		send(sim, engine.ResetPopulation{})
	}
	view := NextStrategy(p.String("renderer", StrategyCircles))
	if gui.Button(rl.Rectangle{X: x + (w+10)/2, Y: y, Width: (w - 10) / 2, Height: 26}, "View: "+view) {
		send(sim, engine.ChangeRenderer{Name: view})
	}
}

func setParam(p *config.Params, key string, value any) {
	if _, err := p.Set(key, value); err != nil {
		slog.Warn("param_rejected", "key", key, "value", value, "error", err)
	}
}

func send(sim Sim, c engine.Command) {
	if err := sim.SendCommand(c); err != nil {
		slog.Warn("command_dropped", "command", fmt.Sprintf("%T", c), "error", err)
	}
}
