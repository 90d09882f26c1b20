package seatmap

import "math"

// DefaultGridSpacing is the model-space distance between grid lines
const DefaultGridSpacing = 20.0

// maxGridLines caps a single axis so a tiny spacing cannot explode a frame
const maxGridLines = 4096

// Axis tells which way a grid line runs
type Axis string

const (
	AxisVertical   Axis = "vertical"
	AxisHorizontal Axis = "horizontal"
)

// Line is one grid line segment in screen space
type Line struct {
	Axis Axis  `json:"axis"`
	From Point `json:"from"`
	To   Point `json:"to"`
}

// GridOffset returns translate mod spacing, always in [0, spacing)
func GridOffset(translate, spacing float64) float64 {
	if spacing <= 0 {
		return 0
	}
	off := math.Mod(translate, spacing)
	if off < 0 {
		off += spacing
	}
	if off >= spacing {
		off = 0
	}
	return off
}

// GridLines draws the reference grid for the current transform.
// The result depends only on the transform and the viewport, never on seats.
func GridLines(vp Viewport, viewport Size, spacingModel float64) []Line {
	spacing := spacingModel * vp.Scale
	if spacing <= 0 || viewport.Width <= 0 || viewport.Height <= 0 ||
		math.IsNaN(spacing) || math.IsInf(spacing, 0) {
		return nil
	}

	capacity := math.Min(viewport.Width/spacing, maxGridLines) + math.Min(viewport.Height/spacing, maxGridLines)
	lines := make([]Line, 0, int(capacity)+2)

	n := 0
	for x := GridOffset(vp.TranslateX, spacing); x < viewport.Width && n < maxGridLines; x += spacing {
		lines = append(lines, Line{
			Axis: AxisVertical,
			From: Point{X: x, Y: 0},
			To:   Point{X: x, Y: viewport.Height},
		})
		n++
	}

	n = 0
	for y := GridOffset(vp.TranslateY, spacing); y < viewport.Height && n < maxGridLines; y += spacing {
		lines = append(lines, Line{
			Axis: AxisHorizontal,
			From: Point{X: 0, Y: y},
			To:   Point{X: viewport.Width, Y: y},
		})
		n++
	}
	return lines
}
