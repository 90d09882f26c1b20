package seatmap

import "math"

// Default viewport limits
const (
	DefaultMinScale = 0.5
	DefaultMaxScale = 3.0
	DefaultZoomStep = 0.2
)

// ViewportLimits bounds the zoom range and sets the discrete zoom step
type ViewportLimits struct {
	MinScale float64
	MaxScale float64
	ZoomStep float64
}

// DefaultViewportLimits returns the 0.5x-3.0x range with a 0.2 step
func DefaultViewportLimits() ViewportLimits {
	return ViewportLimits{
		MinScale: DefaultMinScale,
		MaxScale: DefaultMaxScale,
		ZoomStep: DefaultZoomStep,
	}
}

// normalized fills zero or inverted values with defaults
func (l ViewportLimits) normalized() ViewportLimits {
	if l.MinScale <= 0 {
		l.MinScale = DefaultMinScale
	}
	if l.MaxScale <= 0 {
		l.MaxScale = DefaultMaxScale
	}
	if l.MaxScale < l.MinScale {
		l.MinScale, l.MaxScale = l.MaxScale, l.MinScale
	}
	if l.ZoomStep <= 0 {
		l.ZoomStep = DefaultZoomStep
	}
	return l
}

// Clamp limits s to [MinScale, MaxScale]
func (l ViewportLimits) Clamp(s float64) float64 {
	if math.IsNaN(s) {
		return l.MinScale
	}
	return math.Max(l.MinScale, math.Min(l.MaxScale, s))
}

// Viewport maps model space to screen space: screen = model*Scale + Translate.
// Scale always stays inside Limits; translation is unbounded.
type Viewport struct {
	Scale      float64 `json:"scale"`
	TranslateX float64 `json:"translate_x"`
	TranslateY float64 `json:"translate_y"`

	limits ViewportLimits
}

// NewViewport creates an identity viewport with the given limits
func NewViewport(limits ViewportLimits) Viewport {
	limits = limits.normalized()
	return Viewport{
		Scale:  limits.Clamp(1),
		limits: limits,
	}
}

// Limits returns the viewport's zoom limits
func (v *Viewport) Limits() ViewportLimits {
	return v.limits
}

// ApplyGesture applies one pinch/pan frame.
// The zoom is anchored at centroid first, then pan is added, so a pinch that
// also drifts does not jump.
func (v *Viewport) ApplyGesture(centroid, pan Point, zoom float64) {
	if zoom <= 0 || math.IsNaN(zoom) || math.IsInf(zoom, 0) {
		zoom = 1
	}
	v.ensureLimits()
	oldScale := v.Scale
	if oldScale <= 0 {
		oldScale = v.limits.Clamp(1)
	}
	newScale := v.limits.Clamp(oldScale * zoom)
	ratio := newScale / oldScale

	v.TranslateX = (v.TranslateX-centroid.X)*ratio + centroid.X + pan.X
	v.TranslateY = (v.TranslateY-centroid.Y)*ratio + centroid.Y + pan.Y
	v.Scale = newScale
}

// SetScale sets the scale directly, clamped. Translation is left unchanged.
func (v *Viewport) SetScale(scale float64) {
	v.ensureLimits()
	v.Scale = v.limits.Clamp(scale)
}

// ensureLimits makes a zero Viewport usable
func (v *Viewport) ensureLimits() {
	if v.limits.MaxScale == 0 {
		v.limits = DefaultViewportLimits()
	}
}

// ZoomIn raises the scale by one step
func (v *Viewport) ZoomIn() {
	v.ensureLimits()
	v.SetScale(v.Scale + v.limits.ZoomStep)
}

// ZoomOut lowers the scale by one step
func (v *Viewport) ZoomOut() {
	v.ensureLimits()
	v.SetScale(v.Scale - v.limits.ZoomStep)
}

// Reset restores scale 1 at the origin
func (v *Viewport) Reset() {
	v.ensureLimits()
	v.Scale = v.limits.Clamp(1)
	v.TranslateX = 0
	v.TranslateY = 0
}

// ToScreen maps a model-space point to screen space
func (v Viewport) ToScreen(p Point) Point {
	return Point{
		X: p.X*v.Scale + v.TranslateX,
		Y: p.Y*v.Scale + v.TranslateY,
	}
}

// ToModel maps a screen-space point back to model space
func (v Viewport) ToModel(p Point) Point {
	return Point{
		X: (p.X - v.TranslateX) / v.Scale,
		Y: (p.Y - v.TranslateY) / v.Scale,
	}
}

// ScreenRect returns the on-screen rectangle of a model-space box
func (v Viewport) ScreenRect(pos Point, size Size) Rect {
	origin := v.ToScreen(pos)
	return Rect{
		X:      origin.X,
		Y:      origin.Y,
		Width:  size.Width * v.Scale,
		Height: size.Height * v.Scale,
	}
}
