package glide

import "math"

// Integrator eases a displayed offset toward the native scroll offset.
// It owns the scroll state; nothing else writes Target or Current.
type Integrator struct {
	ease      float64
	snap      float64
	precision float64

	target  float64
	current float64
}

// NewIntegrator creates an Integrator with the tuning from cfg.
func NewIntegrator(cfg Config) *Integrator {
	return &Integrator{
		ease:      cfg.Ease,
		snap:      cfg.Snap,
		precision: math.Pow(10, float64(cfg.Precision)),
	}
}

// Target returns the last native offset fed to Step.
func (in *Integrator) Target() float64 { return in.target }

// Current returns the displayed offset.
func (in *Integrator) Current() float64 { return in.current }

// Step advances the displayed offset one frame toward target and clamps it to
// [0, maxScroll]. Returns the new displayed offset.
func (in *Integrator) Step(target, maxScroll float64) float64 {
	in.target = target

	next := in.current + (target-in.current)*in.ease
	next = math.Round(next*in.precision) / in.precision
	// Rounding may step past a target that is off the rounding grid.
	next = math.Max(math.Min(in.current, target), math.Min(next, math.Max(in.current, target)))

	// Rounding alone parks the value a fraction of a pixel short of the
	// target forever; close the last gap explicitly.
	if math.Abs(target-next) < in.snap {
		next = target
	}

	in.current = clampOffset(next, maxScroll)
	return in.current
}

// Reset places the displayed offset at y without easing.
func (in *Integrator) Reset(y float64) {
	in.target = y
	in.current = y
}

// maxScroll returns the upper scroll bound for a document of the given height
// viewed through a viewport of the given height. Never negative.
func maxScroll(docHeight, viewportHeight float64) float64 {
	return math.Max(0, docHeight-viewportHeight)
}

// clampOffset restricts y to [0, limit].
func clampOffset(y, limit float64) float64 {
	if limit < 0 {
		limit = 0
	}
	return math.Max(0, math.Min(y, limit))
}
