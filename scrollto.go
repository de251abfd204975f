package glide

import (
	"fmt"
	"time"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
	"go.uber.org/zap"
)

// scrollTween drives the native scroll offset toward a destination, one step
// per frame. The integrator then eases the displayed offset behind it.
type scrollTween struct {
	scroller Scroller
	tween    *gween.Tween
	to       float64
}

// ScrollTo animates the native scroll offset to y over d using easeFn
// (ease.OutQuart when nil). The destination is clamped to the scrollable
// range. A non-positive d jumps immediately. Starting a new ScrollTo replaces
// any running one.
func (e *Engine) ScrollTo(y float64, d time.Duration, easeFn ease.TweenFunc) error {
	switch e.state {
	case StateStopped:
		return ErrStopped
	case StateUninitialized:
		return ErrInactive
	}
	sc, ok := e.doc.(Scroller)
	if !ok {
		return ErrScrollUnsupported
	}

	from, err := e.doc.ScrollY()
	if err != nil {
		return fmt.Errorf("glide: read scroll offset: %w", err)
	}
	if viewport, err := e.doc.ViewportHeight(); err == nil {
		y = clampOffset(y, maxScroll(e.height.Height(), viewport))
	}

	if d <= 0 {
		e.scroll = nil
		if err := sc.SetScrollY(y); err != nil {
			return fmt.Errorf("glide: set scroll offset: %w", err)
		}
		return nil
	}
	if easeFn == nil {
		easeFn = ease.OutQuart
	}
	e.scroll = &scrollTween{
		scroller: sc,
		tween:    gween.New(float32(from), float32(y), float32(d.Seconds()), easeFn),
		to:       y,
	}
	return nil
}

// Scrolling reports whether a ScrollTo animation is running.
func (e *Engine) Scrolling() bool { return e.scroll != nil }

// CancelScroll stops a running ScrollTo where it is.
func (e *Engine) CancelScroll() { e.scroll = nil }

// stepScroll advances a running ScrollTo by dt.
func (e *Engine) stepScroll(dt time.Duration) {
	if e.scroll == nil {
		return
	}
	val, done := e.scroll.tween.Update(float32(dt.Seconds()))
	y := float64(val)
	if done {
		y = e.scroll.to
	}
	if err := e.scroll.scroller.SetScrollY(y); err != nil {
		e.log.Debug("Scroll animation aborted.", zap.Error(err))
		e.scroll = nil
		return
	}
	if done {
		e.scroll = nil
	}
}
