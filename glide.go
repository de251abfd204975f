package glide

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoContainer is returned when the scroll container is missing. The
	// engine has nothing to animate without it.
	ErrNoContainer = errors.New("glide: scroll container not found")
	// ErrNoDocument is returned when New is called without a Document.
	ErrNoDocument = errors.New("glide: document is nil")
	// ErrScrollUnsupported is returned by ScrollTo when the document cannot
	// set its native scroll offset.
	ErrScrollUnsupported = errors.New("glide: document does not support programmatic scrolling")
	// ErrStopped is returned when starting an engine that was already stopped.
	ErrStopped = errors.New("glide: engine stopped")
	// ErrInactive is returned by operations that need a running frame loop.
	ErrInactive = errors.New("glide: engine not active")
)

// Default tuning values.
const (
	DefaultEase            = 0.07
	DefaultChangeThreshold = 10.0
	DefaultPrecision       = 2
	DefaultSnap            = 0.1
	DefaultPollInterval    = 500 * time.Millisecond
	DefaultPollTicks       = 10
	DefaultFrameInterval   = 16 * time.Millisecond
)

// DefaultLoadRechecks is the delay schedule of height re-checks after the
// load signal. Catches assets that finish after the load event itself.
var DefaultLoadRechecks = []time.Duration{
	100 * time.Millisecond,
	500 * time.Millisecond,
	1000 * time.Millisecond,
	2000 * time.Millisecond,
}

// Config holds the engine's tuning values.
type Config struct {
	// Ease is the fraction of the remaining gap closed each frame, in (0, 1].
	Ease float64 `mapstructure:"ease" yaml:"ease"`
	// ChangeThreshold is the minimum height change, in pixels, that is
	// republished to the document. Smaller changes are layout jitter.
	ChangeThreshold float64 `mapstructure:"change_threshold" yaml:"change_threshold"`
	// Precision is the number of decimals the displayed offset is rounded to.
	Precision int `mapstructure:"precision" yaml:"precision"`
	// Snap is the distance below which the displayed offset jumps to the
	// target. Zero disables snapping.
	Snap float64 `mapstructure:"snap" yaml:"snap"`
	// PollInterval and PollTicks bound the fallback height poll.
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	PollTicks    int           `mapstructure:"poll_ticks" yaml:"poll_ticks"`
	// LoadRechecks are the delays after the load signal at which the height
	// is measured again.
	LoadRechecks []time.Duration `mapstructure:"load_rechecks" yaml:"load_rechecks"`
	// FrameInterval is the frame period used by Runner and by the first
	// frame's tween step.
	FrameInterval time.Duration `mapstructure:"frame_interval" yaml:"frame_interval"`
}

// DefaultConfig returns the tuning the engine was designed around.
func DefaultConfig() Config {
	return Config{
		Ease:            DefaultEase,
		ChangeThreshold: DefaultChangeThreshold,
		Precision:       DefaultPrecision,
		Snap:            DefaultSnap,
		PollInterval:    DefaultPollInterval,
		PollTicks:       DefaultPollTicks,
		LoadRechecks:    append([]time.Duration(nil), DefaultLoadRechecks...),
		FrameInterval:   DefaultFrameInterval,
	}
}

// Validate checks the configuration for sane values.
func (c Config) Validate() error {
	if c.Ease <= 0 || c.Ease > 1 {
		return fmt.Errorf("glide: ease must be in (0, 1], got %v", c.Ease)
	}
	if c.ChangeThreshold < 0 {
		return fmt.Errorf("glide: change_threshold must not be negative, got %v", c.ChangeThreshold)
	}
	if c.Precision < 0 || c.Precision > 6 {
		return fmt.Errorf("glide: precision must be in [0, 6], got %d", c.Precision)
	}
	if c.Snap < 0 {
		return fmt.Errorf("glide: snap must not be negative, got %v", c.Snap)
	}
	if c.PollTicks < 0 {
		return fmt.Errorf("glide: poll_ticks must not be negative, got %d", c.PollTicks)
	}
	if c.PollTicks > 0 && c.PollInterval <= 0 {
		return fmt.Errorf("glide: poll_interval must be positive when polling, got %v", c.PollInterval)
	}
	for i, d := range c.LoadRechecks {
		if d < 0 {
			return fmt.Errorf("glide: load_rechecks[%d] must not be negative, got %v", i, d)
		}
	}
	if c.FrameInterval <= 0 {
		return fmt.Errorf("glide: frame_interval must be positive, got %v", c.FrameInterval)
	}
	return nil
}

// State is the engine's lifecycle state.
type State uint8

const (
	StateUninitialized State = iota // waiting for the document to become ready
	StateActive                     // frame loop and height triggers running
	StateStopped                    // torn down; terminal
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateActive:
		return "active"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Signal identifies an external event that may change the page height.
// Signals are bit flags so that pending ones coalesce.
type Signal uint32

const (
	SignalReady         Signal = 1 << iota // document became interactive
	SignalLoad                             // load event fired
	SignalResize                           // window resized
	SignalContentResize                    // container size changed
)

func (s Signal) String() string {
	switch s {
	case SignalReady:
		return "ready"
	case SignalLoad:
		return "load"
	case SignalResize:
		return "resize"
	case SignalContentResize:
		return "content-resize"
	default:
		return fmt.Sprintf("signal(%#x)", uint32(s))
	}
}

// ParseSignal converts a signal name as produced by Signal.String.
func ParseSignal(name string) (Signal, bool) {
	switch name {
	case "ready":
		return SignalReady, true
	case "load":
		return SignalLoad, true
	case "resize":
		return SignalResize, true
	case "content-resize":
		return SignalContentResize, true
	default:
		return 0, false
	}
}
