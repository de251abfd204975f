package glide

import (
	"fmt"
	"math"

	"go.uber.org/zap"
)

// HeightTracker republishes the container's rendered height as the
// document's logical scrollable height. It owns the height state; the
// integrator only reads it through Height.
type HeightTracker struct {
	container Container
	doc       Document
	triggers  TriggerRegistry
	log       *zap.Logger

	threshold float64
	lastKnown float64
	published bool
	anomalies int
}

// NewHeightTracker creates a tracker. Its first valid measurement is always
// published, whatever the threshold.
func NewHeightTracker(container Container, doc Document, triggers TriggerRegistry, threshold float64, log *zap.Logger) *HeightTracker {
	if triggers == nil {
		triggers = nopTriggers{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &HeightTracker{
		container: container,
		doc:       doc,
		triggers:  triggers,
		log:       log,
		threshold: threshold,
	}
}

// Height returns the last height published to the document.
func (h *HeightTracker) Height() float64 { return h.lastKnown }

// Anomalies returns how many measurements were discarded as layout anomalies.
func (h *HeightTracker) Anomalies() int { return h.anomalies }

// Measure reads the container's current rendered height.
func (h *HeightTracker) Measure() (float64, error) {
	v, err := h.container.Height()
	if err != nil {
		return 0, fmt.Errorf("measure container: %w", err)
	}
	return v, nil
}

// Sync measures the container and, if the height moved by more than the
// threshold, publishes it and refreshes the trigger registry. Reports whether
// an update was published. A failed measurement leaves the state untouched.
//
// Negative, NaN and infinite heights are anomalies, and so is a collapse to
// zero once a positive height is known: publishing it would clamp the native
// scroll offset to the top. Anomalies are counted and skipped.
func (h *HeightTracker) Sync() (bool, error) {
	v, err := h.Measure()
	if err != nil {
		return false, err
	}
	if h.anomalous(v) {
		h.anomalies++
		h.log.Debug("Discarding height anomaly.",
			zap.Float64("measured", v),
			zap.Float64("last_known", h.lastKnown))
		return false, nil
	}
	if h.published && math.Abs(v-h.lastKnown) <= h.threshold {
		return false, nil
	}
	if err := h.doc.SetScrollHeight(v); err != nil {
		return false, fmt.Errorf("set scroll height: %w", err)
	}

	h.log.Debug("Document height updated.",
		zap.Float64("from", h.lastKnown),
		zap.Float64("to", v))
	h.lastKnown = v
	h.published = true
	h.triggers.Refresh()
	return true, nil
}

func (h *HeightTracker) anomalous(v float64) bool {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return true
	}
	return v == 0 && h.lastKnown > 0
}
