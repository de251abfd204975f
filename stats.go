package glide

import (
	"fmt"

	"go.uber.org/zap"
)

// Stats counts what the engine has done since it was created.
type Stats struct {
	Frames    int // integrator steps run
	Syncs     int // height syncs attempted
	Updates   int // height syncs that published a new height
	Skipped   int // frame steps and syncs skipped after a host error
	PollTicks int // fallback poll ticks fired
	Rechecks  int // post-load re-checks fired
}

func (s Stats) String() string {
	return fmt.Sprintf("frames=%d syncs=%d updates=%d skipped=%d poll=%d rechecks=%d",
		s.Frames, s.Syncs, s.Updates, s.Skipped, s.PollTicks, s.Rechecks)
}

func (s Stats) fields() []zap.Field {
	return []zap.Field{
		zap.Int("frames", s.Frames),
		zap.Int("syncs", s.Syncs),
		zap.Int("updates", s.Updates),
		zap.Int("skipped", s.Skipped),
		zap.Int("poll_ticks", s.PollTicks),
		zap.Int("rechecks", s.Rechecks),
	}
}

// debugLog writes the per-frame scroll state. Only called in debug mode.
func (e *Engine) debugLog(viewport float64) {
	e.log.Debug("Frame.",
		zap.Int("frame", e.stats.Frames),
		zap.Float64("target", e.integ.Target()),
		zap.Float64("current", e.integ.Current()),
		zap.Float64("height", e.height.Height()),
		zap.Float64("viewport", viewport),
		zap.Bool("scrolling", e.scroll != nil))
}
