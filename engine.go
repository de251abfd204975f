package glide

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Engine is the smooth-scroll engine: it owns the height tracker, the
// position integrator and the timers that re-measure the page.
//
// An Engine has a single owner. Start, Pump, Frame, ScrollTo and Stop must be
// called from the owner's goroutine; Post, Wake and ID are safe from anywhere.
type Engine struct {
	id    uuid.UUID
	cfg   Config
	log   *zap.Logger
	debug bool

	doc       Document
	container Container
	triggers  TriggerRegistry

	height *HeightTracker
	integ  *Integrator
	sched  schedule

	state      State
	started    bool
	loadSeen   bool
	pollCount  int
	disconnect func()
	lastFrame  time.Time
	scroll     *scrollTween

	pending atomic.Uint32
	wake    chan struct{}

	stats Stats
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithTriggers sets the scroll-trigger registry refreshed on height changes.
func WithTriggers(t TriggerRegistry) Option {
	return func(e *Engine) {
		if t != nil {
			e.triggers = t
		}
	}
}

// WithDebug enables per-frame debug logging of the engine state.
func WithDebug(enabled bool) Option {
	return func(e *Engine) { e.debug = enabled }
}

// New creates an engine for the given document and container. A nil
// container is a configuration error: the engine has nothing to animate.
func New(doc Document, container Container, cfg Config, opts ...Option) (*Engine, error) {
	if doc == nil {
		return nil, ErrNoDocument
	}
	if container == nil {
		return nil, ErrNoContainer
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.LoadRechecks = append([]time.Duration(nil), cfg.LoadRechecks...)

	e := &Engine{
		id:        uuid.New(),
		cfg:       cfg,
		log:       zap.NewNop(),
		doc:       doc,
		container: container,
		triggers:  nopTriggers{},
		wake:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.Named("engine").With(zap.String("engine", e.id.String()))
	e.height = NewHeightTracker(container, doc, e.triggers, cfg.ChangeThreshold, e.log)
	e.integ = NewIntegrator(cfg)
	return e, nil
}

// ID returns the engine's identity, used to tell instances apart in logs.
func (e *Engine) ID() uuid.UUID { return e.id }

// Config returns the engine's tuning.
func (e *Engine) Config() Config { return e.cfg }

// State returns the lifecycle state.
func (e *Engine) State() State { return e.state }

// Offset returns the displayed (eased) offset.
func (e *Engine) Offset() float64 { return e.integ.Current() }

// Target returns the native offset read on the last frame.
func (e *Engine) Target() float64 { return e.integ.Target() }

// Height returns the logical document height last published.
func (e *Engine) Height() float64 { return e.height.Height() }

// Stats returns the engine's counters.
func (e *Engine) Stats() Stats { return e.stats }

// Start begins the engine's lifecycle. If the document is still loading, the
// engine waits for SignalReady; otherwise it activates immediately: the
// container is pinned, the height is synced once and the poll is scheduled.
// An error means the engine cannot run.
func (e *Engine) Start(now time.Time) error {
	switch e.state {
	case StateStopped:
		return ErrStopped
	case StateActive:
		return nil
	}
	e.started = true

	rs, err := e.doc.ReadyState()
	if err != nil {
		return fmt.Errorf("glide: read ready state: %w", err)
	}
	if rs == ReadyLoading {
		e.log.Debug("Document still loading, deferring start.")
		return nil
	}
	return e.activate(now, rs == ReadyComplete)
}

// activate moves the engine from Uninitialized to Active.
func (e *Engine) activate(now time.Time, loaded bool) error {
	if err := e.container.Pin(); err != nil {
		return fmt.Errorf("glide: pin container: %w", err)
	}
	e.sync("init")
	if e.cfg.PollTicks > 0 {
		e.sched.add(now.Add(e.cfg.PollInterval), timerPoll)
	}
	e.observe()
	e.state = StateActive
	e.log.Info("Engine active.",
		zap.Float64("height", e.height.Height()),
		zap.Float64("ease", e.cfg.Ease))

	if loaded || e.loadSeen {
		// The init sync above already measured the loaded page.
		e.loadSeen = true
		e.scheduleRechecks(now)
	}
	return nil
}

// observe attaches the container's size observer when it has one.
func (e *Engine) observe() {
	so, ok := e.container.(SizeObserver)
	if !ok {
		e.log.Info("Size observation unavailable, relying on poll and load triggers.")
		return
	}
	disconnect, err := so.ObserveSize(func() { e.Post(SignalContentResize) })
	if err != nil {
		if errors.Is(err, errors.ErrUnsupported) {
			e.log.Info("Size observation unsupported, relying on poll and load triggers.")
		} else {
			e.log.Warn("Failed to observe container size.", zap.Error(err))
		}
		return
	}
	e.disconnect = disconnect
}

// onLoad syncs the height and schedules the post-load re-checks.
func (e *Engine) onLoad(now time.Time) {
	e.loadSeen = true
	e.sync("load")
	e.scheduleRechecks(now)
}

func (e *Engine) scheduleRechecks(now time.Time) {
	for _, d := range e.cfg.LoadRechecks {
		e.sched.add(now.Add(d), timerRecheck)
	}
}

// Post delivers a signal to the engine. Safe for concurrent use; never
// blocks. Pending signals coalesce until the owner calls Pump.
func (e *Engine) Post(s Signal) {
	e.pending.Or(uint32(s))
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// Wake returns a channel that receives after Post. Owners select on it to
// know when to call Pump.
func (e *Engine) Wake() <-chan struct{} { return e.wake }

// NextDeadline returns when the next timer is due, if one is pending.
func (e *Engine) NextDeadline() (time.Time, bool) {
	if e.state == StateStopped {
		return time.Time{}, false
	}
	return e.sched.next()
}

// Pump handles pending signals and fires every timer due at now. The only
// error is a failed activation after SignalReady.
func (e *Engine) Pump(now time.Time) error {
	if e.state == StateStopped {
		e.pending.Store(0)
		return nil
	}
	if !e.started {
		return nil
	}

	bits := Signal(e.pending.Swap(0))
	if bits&SignalLoad != 0 && e.state == StateUninitialized {
		e.loadSeen = true
		bits &^= SignalLoad
	}
	if bits&SignalReady != 0 && e.state == StateUninitialized {
		if err := e.activate(now, false); err != nil {
			return err
		}
	}
	if bits&SignalLoad != 0 && e.state == StateActive {
		e.onLoad(now)
	}
	if e.state == StateActive {
		switch {
		case bits&SignalResize != 0:
			e.sync("resize")
		case bits&SignalContentResize != 0:
			e.sync("observer")
		}
	}

	for e.state == StateActive {
		t, ok := e.sched.popDue(now)
		if !ok {
			break
		}
		e.fire(t)
	}
	return nil
}

// fire runs a due timer.
func (e *Engine) fire(t timer) {
	switch t.kind {
	case timerRecheck:
		e.stats.Rechecks++
		e.sync("recheck")
	case timerPoll:
		e.pollCount++
		e.stats.PollTicks++
		e.sync("poll")
		if e.pollCount < e.cfg.PollTicks {
			e.sched.add(t.due.Add(e.cfg.PollInterval), timerPoll)
		} else {
			e.log.Debug("Height poll finished.", zap.Int("ticks", e.pollCount))
		}
	}
}

// sync runs one height sync. Failures skip the cycle; the next trigger
// retries.
func (e *Engine) sync(trigger string) {
	e.stats.Syncs++
	anomalies := e.height.Anomalies()
	updated, err := e.height.Sync()
	if e.height.Anomalies() != anomalies {
		e.stats.Skipped++
		e.log.Debug("Height sync skipped.", zap.String("trigger", trigger), zap.String("reason", "anomaly"))
		return
	}
	if err != nil {
		e.stats.Skipped++
		e.log.Debug("Height sync skipped.", zap.String("trigger", trigger), zap.Error(err))
		return
	}
	if updated {
		e.stats.Updates++
	}
}

// Frame runs one step of the position integrator and reports whether the
// owner should keep calling Frame. Before activation it does nothing and
// returns true; after Stop it returns false.
func (e *Engine) Frame(now time.Time) bool {
	switch e.state {
	case StateStopped:
		return false
	case StateUninitialized:
		return true
	}

	dt := e.cfg.FrameInterval
	if !e.lastFrame.IsZero() && now.After(e.lastFrame) {
		dt = now.Sub(e.lastFrame)
	}
	e.lastFrame = now
	e.stats.Frames++

	e.stepScroll(dt)

	target, err := e.doc.ScrollY()
	if err != nil {
		e.skipFrame("read scroll offset", err)
		return true
	}
	viewport, err := e.doc.ViewportHeight()
	if err != nil {
		e.skipFrame("read viewport height", err)
		return true
	}

	current := e.integ.Step(target, maxScroll(e.height.Height(), viewport))
	if err := e.container.Translate(current); err != nil {
		e.skipFrame("translate container", err)
		return true
	}
	e.triggers.Update()

	if e.debug {
		e.debugLog(viewport)
	}
	return true
}

func (e *Engine) skipFrame(op string, err error) {
	e.stats.Skipped++
	e.log.Debug("Frame step skipped.", zap.String("op", op), zap.Error(err))
}

// Stop tears the engine down: no more frames, every timer cleared, the size
// observer disconnected. Calling Stop again is a no-op.
func (e *Engine) Stop() {
	if e.state == StateStopped {
		return
	}
	e.state = StateStopped
	e.sched.clear()
	e.scroll = nil
	if e.disconnect != nil {
		e.disconnect()
		e.disconnect = nil
	}
	e.pending.Store(0)
	e.log.Info("Engine stopped.", e.stats.fields()...)
}
