// Package renderer draws published engine frames with raylib and hosts the
// raygui control panel. It never touches engine state directly: it reads
// frames, sets parameters and sends commands.
package renderer

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Theme holds UI styling constants.
type Theme struct {
	PanelBg         rl.Color
	PanelBorder     rl.Color
	SectionHeader   rl.Color
	LabelColor      rl.Color
	ValueColor      rl.Color
	BarBg           rl.Color
	BarFill         rl.Color
	BarFillLow      rl.Color
	BarFillMedium   rl.Color
	BarFillHigh     rl.Color
	BarFillNegative rl.Color
	BarFillPositive rl.Color
	Padding         int32
	LineHeight      int32
	LabelWidth      int32
	BarHeight       int32
	FontSize        int32
	HeaderFontSize  int32
}

// DefaultTheme returns the default UI theme.
func DefaultTheme() Theme {
	return Theme{
		PanelBg:         rl.Color{R: 20, G: 25, B: 30, A: 240},
		PanelBorder:     rl.Color{R: 60, G: 70, B: 80, A: 255},
		SectionHeader:   rl.Yellow,
		LabelColor:      rl.LightGray,
		ValueColor:      rl.LightGray,
		BarBg:           rl.Color{R: 40, G: 40, B: 40, A: 255},
		BarFill:         rl.Color{R: 100, G: 150, B: 200, A: 255},
		BarFillLow:      rl.Color{R: 200, G: 100, B: 100, A: 255},
		BarFillMedium:   rl.Color{R: 200, G: 180, B: 100, A: 255},
		BarFillHigh:     rl.Color{R: 100, G: 200, B: 100, A: 255},
		BarFillNegative: rl.Color{R: 200, G: 100, B: 100, A: 255},
		BarFillPositive: rl.Color{R: 100, G: 200, B: 100, A: 255},
		Padding:         10,
		LineHeight:      16,
		LabelWidth:      70,
		BarHeight:       12,
		FontSize:        12,
		HeaderFontSize:  14,
	}
}

// Painter draws panel widgets with a consistent theme.
type Painter struct {
	Theme Theme
}

// NewPainter creates a painter with the default theme.
func NewPainter() *Painter {
	return &Painter{Theme: DefaultTheme()}
}

// DrawPanel draws a panel background with border.
func (p *Painter) DrawPanel(x, y, width, height int32) {
	rl.DrawRectangle(x, y, width, height, p.Theme.PanelBg)
	rl.DrawRectangleLines(x, y, width, height, p.Theme.PanelBorder)
}

// DrawSectionHeader draws a section header and returns the new Y position.
func (p *Painter) DrawSectionHeader(x, y int32, title string) int32 {
	rl.DrawText(title, x, y, p.Theme.HeaderFontSize, p.Theme.SectionHeader)
	return y + p.Theme.LineHeight
}

// DrawLabelValue draws a label and value on the same line.
func (p *Painter) DrawLabelValue(x, y int32, label, value string) int32 {
	rl.DrawText(label+":", x, y, p.Theme.FontSize, p.Theme.LabelColor)
	rl.DrawText(value, x+p.Theme.LabelWidth, y, p.Theme.FontSize, p.Theme.ValueColor)
	return y + p.Theme.LineHeight
}

// DrawEnergyBar draws an energy bar with color thresholds.
func (p *Painter) DrawEnergyBar(x, y int32, label string, current, capacity float32, width int32) int32 {
	ratio := barRatio(current, capacity)

	barX := x + p.Theme.LabelWidth
	barWidth := width - p.Theme.LabelWidth - 80

	rl.DrawText(label+":", x, y, p.Theme.FontSize, p.Theme.LabelColor)
	rl.DrawRectangle(barX, y+2, barWidth, p.Theme.BarHeight, p.Theme.BarBg)

	barColor := p.Theme.BarFillHigh
	if ratio < 0.3 {
		barColor = p.Theme.BarFillLow
	} else if ratio < 0.6 {
		barColor = p.Theme.BarFillMedium
	}
	rl.DrawRectangle(barX, y+2, int32(float32(barWidth)*ratio), p.Theme.BarHeight, barColor)
	rl.DrawText(fmt.Sprintf("%.0f/%.0f", current, capacity), barX+barWidth+5, y, p.Theme.FontSize, p.Theme.ValueColor)

	return y + p.Theme.LineHeight + 2
}

// DrawCenteredBar draws a bar centered at 0 for values in [-limit, limit].
func (p *Painter) DrawCenteredBar(x, y int32, label string, value, limit float32, width int32) int32 {
	barX := x + p.Theme.LabelWidth
	barWidth := width - p.Theme.LabelWidth - 50

	rl.DrawText(label+":", x, y, p.Theme.FontSize, p.Theme.LabelColor)
	rl.DrawRectangle(barX, y+2, barWidth, p.Theme.BarHeight, p.Theme.BarBg)

	centerX := barX + barWidth/2
	rl.DrawLine(centerX, y+2, centerX, y+2+p.Theme.BarHeight, rl.Color{R: 80, G: 80, B: 80, A: 255})

	fillWidth := int32(float32(barWidth/2) * barRatio(absf(value), limit))
	fillX := centerX
	barColor := p.Theme.BarFillPositive
	if value < 0 {
		fillX = centerX - fillWidth
		barColor = p.Theme.BarFillNegative
	}
	rl.DrawRectangle(fillX, y+2, fillWidth, p.Theme.BarHeight, barColor)
	rl.DrawText(fmt.Sprintf("%+.2f", value), barX+barWidth+5, y, p.Theme.FontSize, p.Theme.ValueColor)

	return y + p.Theme.LineHeight + 2
}

// barRatio returns v/limit clamped to [0, 1]; zero when limit is not positive.
func barRatio(v, limit float32) float32 {
	if limit <= 0 {
		return 0
	}
	return min(max(v/limit, 0), 1)
}

func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
