package glide

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// Runner owns an Engine and drives it from real time on the calling
// goroutine: a frame ticker, the engine's timer deadlines and wake-ups from
// Post.
type Runner struct {
	engine   *Engine
	interval time.Duration
	running  atomic.Bool
	calls    chan call
}

type call struct {
	fn   func(*Engine) error
	done chan error
}

// NewRunner creates a Runner that steps e once per configured frame interval.
func NewRunner(e *Engine) *Runner {
	return &Runner{
		engine:   e,
		interval: e.cfg.FrameInterval,
		calls:    make(chan call),
	}
}

// Engine returns the driven engine.
func (r *Runner) Engine() *Engine { return r.engine }

// Exec runs fn on the goroutine driving the engine and returns its error.
// It blocks until Run picks the call up or ctx is done.
func (r *Runner) Exec(ctx context.Context, fn func(*Engine) error) error {
	c := call{fn: fn, done: make(chan error, 1)}
	select {
	case r.calls <- c:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-c.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the engine and drives it until ctx is cancelled or activation
// fails. The engine is stopped before Run returns.
func (r *Runner) Run(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return errors.New("glide: runner already running")
	}
	defer r.running.Store(false)

	e := r.engine
	defer e.Stop()

	if err := e.Start(time.Now()); err != nil {
		return err
	}

	frames := time.NewTicker(r.interval)
	defer frames.Stop()

	deadline := time.NewTimer(time.Hour)
	deadline.Stop()
	defer deadline.Stop()

	for {
		var timerC <-chan time.Time
		if due, ok := e.NextDeadline(); ok {
			deadline.Reset(time.Until(due))
			timerC = deadline.C
		} else {
			deadline.Stop()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case c := <-r.calls:
			c.done <- c.fn(e)
		case <-e.Wake():
			if err := e.Pump(time.Now()); err != nil {
				return err
			}
		case now := <-timerC:
			if err := e.Pump(now); err != nil {
				return err
			}
		case now := <-frames.C:
			if err := e.Pump(now); err != nil {
				return err
			}
			if !e.Frame(now) {
				return nil
			}
		}
	}
}
