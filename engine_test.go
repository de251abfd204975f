package glide

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanema/gween/ease"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func at(ms int) time.Time { return t0.Add(time.Duration(ms) * time.Millisecond) }

func newTestEngine(t *testing.T, page *MemoryPage, cfg Config) *Engine {
	t.Helper()
	eng, err := New(page, page, cfg, WithTriggers(page))
	require.NoError(t, err)
	t.Cleanup(eng.Stop)
	return eng
}

func startedEngine(t *testing.T, page *MemoryPage) *Engine {
	t.Helper()
	eng := newTestEngine(t, page, DefaultConfig())
	require.NoError(t, eng.Start(t0))
	require.Equal(t, StateActive, eng.State())
	return eng
}

// runFrames steps the engine n frames of 16ms starting after from.
func runFrames(eng *Engine, from time.Time, n int) time.Time {
	now := from
	for i := 0; i < n; i++ {
		now = now.Add(DefaultFrameInterval)
		_ = eng.Pump(now)
		eng.Frame(now)
	}
	return now
}

func TestNewRequiresContainer(t *testing.T) {
	page := NewMemoryPage(1000, 800)
	_, err := New(page, nil, DefaultConfig())
	assert.ErrorIs(t, err, ErrNoContainer)

	_, err = New(nil, page, DefaultConfig())
	assert.ErrorIs(t, err, ErrNoDocument)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	page := NewMemoryPage(1000, 800)
	cfg := DefaultConfig()
	cfg.Ease = 0
	_, err := New(page, page, cfg)
	assert.Error(t, err)
}

func TestNewGivesEachEngineAnIdentity(t *testing.T) {
	page := NewMemoryPage(1000, 800)
	a := newTestEngine(t, page, DefaultConfig())
	b := newTestEngine(t, page, DefaultConfig())
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestStartDefersUntilReady(t *testing.T) {
	page := NewMemoryPage(1000, 800)
	page.SetReadyState(ReadyLoading)
	eng := newTestEngine(t, page, DefaultConfig())

	require.NoError(t, eng.Start(t0))
	assert.Equal(t, StateUninitialized, eng.State())

	// Frames and timers before ready must not touch the page.
	runFrames(eng, t0, 10)
	require.NoError(t, eng.Pump(at(2000)))
	snap := page.Snapshot()
	assert.Zero(t, snap.Measures)
	assert.False(t, snap.Pinned)
	assert.Zero(t, snap.Translates)

	page.SetReadyState(ReadyInteractive)
	eng.Post(SignalReady)
	require.NoError(t, eng.Pump(at(2000)))

	assert.Equal(t, StateActive, eng.State())
	snap = page.Snapshot()
	assert.Equal(t, 1, snap.Measures, "exactly one sync before the first frame")
	assert.True(t, snap.Pinned)
	assert.Equal(t, []float64{1000}, snap.DocWrites)
	assert.Zero(t, snap.Translates)

	assert.True(t, eng.Frame(at(2016)))
	assert.Equal(t, 1, page.Snapshot().Translates)
}

func TestSignalsBeforeStartWait(t *testing.T) {
	page := NewMemoryPage(1000, 800)
	page.SetReadyState(ReadyLoading)
	eng := newTestEngine(t, page, DefaultConfig())

	eng.Post(SignalReady)
	require.NoError(t, eng.Pump(t0))
	assert.Equal(t, StateUninitialized, eng.State())

	require.NoError(t, eng.Start(t0))
	require.NoError(t, eng.Pump(t0))
	assert.Equal(t, StateActive, eng.State())
}

func TestStartInteractiveActivatesImmediately(t *testing.T) {
	page := NewMemoryPage(1000, 800)
	eng := startedEngine(t, page)

	snap := page.Snapshot()
	assert.Equal(t, 1, snap.Measures)
	assert.True(t, snap.Pinned)
	assert.Equal(t, 1000.0, eng.Height())
	assert.Equal(t, 1, snap.Observers)
	assert.Zero(t, eng.sched.count(timerRecheck))
	assert.Equal(t, 1, eng.sched.count(timerPoll))
}

func TestStartCompleteRunsLoadSequence(t *testing.T) {
	page := NewMemoryPage(1000, 800)
	page.SetReadyState(ReadyComplete)
	eng := startedEngine(t, page)

	assert.Equal(t, 1, page.Snapshot().Measures, "the init sync covers the load")
	assert.Equal(t, 4, eng.sched.count(timerRecheck))
}

func TestReadyAndLoadTogetherSyncOnce(t *testing.T) {
	page := NewMemoryPage(1000, 800)
	page.SetReadyState(ReadyLoading)
	eng := newTestEngine(t, page, DefaultConfig())
	require.NoError(t, eng.Start(t0))

	page.SetReadyState(ReadyComplete)
	eng.Post(SignalReady)
	eng.Post(SignalLoad)
	require.NoError(t, eng.Pump(t0))

	assert.Equal(t, StateActive, eng.State())
	assert.Equal(t, 1, page.Snapshot().Measures, "exactly one sync before the first frame")
	assert.Equal(t, 4, eng.sched.count(timerRecheck))
}

func TestHeightCollapseKeepsScrollPosition(t *testing.T) {
	page := NewMemoryPage(5000, 800)
	eng := startedEngine(t, page)
	require.NoError(t, page.SetScrollY(3000))
	now := runFrames(eng, t0, 300)
	require.Equal(t, 3000.0, eng.Offset())

	page.SetContentHeight(0)
	eng.Post(SignalResize)
	require.NoError(t, eng.Pump(now))
	assert.Equal(t, 5000.0, eng.Height())
	assert.Equal(t, 1, eng.Stats().Skipped)

	page.SetContentHeight(5000)
	eng.Post(SignalResize)
	require.NoError(t, eng.Pump(now))
	runFrames(eng, now, 300)

	snap := page.Snapshot()
	assert.Equal(t, 3000.0, snap.ScrollY)
	assert.Equal(t, 3000.0, eng.Offset())
	assert.Equal(t, 5000.0, snap.DocHeight)
}

func TestLoadBeforeReadyIsRemembered(t *testing.T) {
	page := NewMemoryPage(1000, 800)
	page.SetReadyState(ReadyLoading)
	eng := newTestEngine(t, page, DefaultConfig())
	require.NoError(t, eng.Start(t0))

	eng.Post(SignalLoad)
	require.NoError(t, eng.Pump(t0))
	assert.Equal(t, StateUninitialized, eng.State())
	assert.Zero(t, page.Snapshot().Measures)

	eng.Post(SignalReady)
	require.NoError(t, eng.Pump(at(10)))
	assert.Equal(t, StateActive, eng.State())
	assert.Equal(t, 4, eng.sched.count(timerRecheck))
}

func TestStartFailsWhenPinFails(t *testing.T) {
	page := NewMemoryPage(1000, 800)
	c := &stubContainer{h: 1000, pinErr: errors.New("detached")}
	eng, err := New(page, c, DefaultConfig())
	require.NoError(t, err)

	err = eng.Start(t0)
	require.Error(t, err)
	assert.Equal(t, StateUninitialized, eng.State())
}

func TestLoadRecheckSchedule(t *testing.T) {
	page := NewMemoryPage(1000, 800)
	page.SetObservable(false)
	eng := startedEngine(t, page)

	eng.Post(SignalLoad)
	require.NoError(t, eng.Pump(t0))

	checks := []struct {
		ms       int
		rechecks int
	}{
		{99, 0},
		{100, 1},
		{499, 1},
		{500, 2},
		{999, 2},
		{1000, 3},
		{1999, 3},
		{2000, 4},
		{10000, 4},
	}
	for _, c := range checks {
		require.NoError(t, eng.Pump(at(c.ms)))
		assert.Equal(t, c.rechecks, eng.Stats().Rechecks, "rechecks at +%dms", c.ms)
	}
}

func TestLoadRecheckCatchesLateContent(t *testing.T) {
	page := NewMemoryPage(1000, 800)
	page.SetObservable(false)
	cfg := DefaultConfig()
	cfg.PollTicks = 0
	eng := newTestEngine(t, page, cfg)
	require.NoError(t, eng.Start(t0))

	eng.Post(SignalLoad)
	require.NoError(t, eng.Pump(t0))

	page.SetContentHeight(3200) // an image decoded after load
	require.NoError(t, eng.Pump(at(400)))
	assert.Equal(t, 3200.0, eng.Height())
}

func TestBoundedPollTerminates(t *testing.T) {
	page := NewMemoryPage(1000, 800)
	page.SetObservable(false)
	eng := startedEngine(t, page)

	for ms := 100; ms <= 20000; ms += 100 {
		page.SetContentHeight(1000 + float64(ms))
		require.NoError(t, eng.Pump(at(ms)))
	}

	assert.Equal(t, DefaultPollTicks, eng.Stats().PollTicks)
	assert.Zero(t, eng.sched.count(timerPoll))
	// The last tick ran at +5s; later growth is not picked up by the poll.
	assert.Equal(t, 6000.0, eng.Height())
	_, pending := eng.NextDeadline()
	assert.False(t, pending)
}

func TestObserverTriggersSync(t *testing.T) {
	page := NewMemoryPage(1000, 800)
	eng := startedEngine(t, page)

	page.SetContentHeight(1500)
	select {
	case <-eng.Wake():
	default:
		t.Fatal("observer notification did not wake the engine")
	}
	require.NoError(t, eng.Pump(at(1)))
	assert.Equal(t, 1500.0, eng.Height())
	assert.Equal(t, 2, page.Snapshot().Refreshes)
}

func TestObserverUnavailableDegrades(t *testing.T) {
	page := NewMemoryPage(1000, 800)
	page.SetObservable(false)
	eng := startedEngine(t, page)

	assert.Zero(t, page.Snapshot().Observers)
	page.SetContentHeight(2000)
	require.NoError(t, eng.Pump(at(1)))
	assert.Equal(t, 1000.0, eng.Height(), "no observer, no signal")

	require.NoError(t, eng.Pump(at(500)))
	assert.Equal(t, 2000.0, eng.Height(), "poll picks it up")
}

func TestResizeSignalSyncs(t *testing.T) {
	page := NewMemoryPage(1000, 800)
	page.SetObservable(false)
	eng := startedEngine(t, page)

	page.SetContentHeight(2000)
	eng.Post(SignalResize)
	require.NoError(t, eng.Pump(at(1)))
	assert.Equal(t, 2000.0, eng.Height())
}

func TestPostCoalesces(t *testing.T) {
	page := NewMemoryPage(1000, 800)
	eng := startedEngine(t, page)
	before := eng.Stats().Syncs

	eng.Post(SignalResize)
	eng.Post(SignalResize)
	eng.Post(SignalContentResize)
	require.NoError(t, eng.Pump(at(1)))

	assert.Equal(t, before+1, eng.Stats().Syncs)
	require.NoError(t, eng.Pump(at(2)))
	assert.Equal(t, before+1, eng.Stats().Syncs, "signals are consumed once")
}

func TestFrameEasesTowardNativeOffset(t *testing.T) {
	page := NewMemoryPage(5000, 800)
	eng := startedEngine(t, page)
	require.NoError(t, page.SetScrollY(1000))

	require.True(t, eng.Frame(at(16)))
	assert.Equal(t, 1000.0, eng.Target())
	assert.Equal(t, 70.0, eng.Offset())
	snap := page.Snapshot()
	assert.Equal(t, 70.0, snap.Translate)
	assert.Equal(t, 1, snap.Updates, "trigger registry updated every frame")

	runFrames(eng, at(16), 300)
	assert.Equal(t, 1000.0, eng.Offset())
	assert.Equal(t, 1000.0, page.Snapshot().Translate)
}

func TestFrameClampsWhenDocumentShrinks(t *testing.T) {
	page := NewMemoryPage(5000, 800)
	eng := startedEngine(t, page)
	require.NoError(t, page.SetScrollY(4000))
	now := runFrames(eng, t0, 300)
	require.Equal(t, 4000.0, eng.Offset())

	page.SetContentHeight(2000)
	now = runFrames(eng, now, 1)

	assert.Equal(t, 2000.0, eng.Height())
	assert.Equal(t, 1200.0, eng.Offset())
	assert.Equal(t, 1200.0, page.Snapshot().Translate)

	runFrames(eng, now, 50)
	assert.LessOrEqual(t, eng.Offset(), 1200.0)
}

func TestMeasurementFailureDoesNotStopFrames(t *testing.T) {
	page := NewMemoryPage(1000, 800)
	page.SetObservable(false)
	page.FailMeasurements(3)
	eng := startedEngine(t, page)

	assert.Zero(t, eng.Height())
	assert.True(t, eng.Frame(at(16)))
	require.NoError(t, eng.Pump(at(500)))
	require.NoError(t, eng.Pump(at(1000)))
	assert.Zero(t, eng.Height())
	assert.True(t, eng.Frame(at(1016)))

	require.NoError(t, eng.Pump(at(1500)))
	assert.Equal(t, 1000.0, eng.Height())
	assert.Equal(t, 3, eng.Stats().Skipped)
}

func TestStopTearsDown(t *testing.T) {
	page := NewMemoryPage(1000, 800)
	eng := startedEngine(t, page)
	eng.Post(SignalLoad)
	require.NoError(t, eng.Pump(t0))
	_, pending := eng.NextDeadline()
	require.True(t, pending)

	eng.Stop()
	eng.Stop()

	assert.Equal(t, StateStopped, eng.State())
	_, pending = eng.NextDeadline()
	assert.False(t, pending)
	assert.False(t, eng.Frame(at(16)))
	assert.Zero(t, page.Snapshot().Observers)
	assert.ErrorIs(t, eng.Start(at(20)), ErrStopped)

	measures := page.Snapshot().Measures
	page.SetContentHeight(4000)
	eng.Post(SignalResize)
	require.NoError(t, eng.Pump(at(5000)))
	assert.Equal(t, measures, page.Snapshot().Measures)
}

func TestScrollToReachesDestination(t *testing.T) {
	page := NewMemoryPage(5000, 800)
	eng := startedEngine(t, page)

	require.NoError(t, eng.ScrollTo(3000, 500*time.Millisecond, ease.Linear))
	assert.True(t, eng.Scrolling())

	now := runFrames(eng, t0, 5)
	y, _ := page.ScrollY()
	assert.Greater(t, y, 0.0)
	assert.Less(t, y, 3000.0)

	now = runFrames(eng, now, 40)
	y, _ = page.ScrollY()
	assert.Equal(t, 3000.0, y)
	assert.False(t, eng.Scrolling())

	runFrames(eng, now, 300)
	assert.Equal(t, 3000.0, eng.Offset())
}

func TestScrollToClampsDestination(t *testing.T) {
	page := NewMemoryPage(5000, 800)
	eng := startedEngine(t, page)

	require.NoError(t, eng.ScrollTo(99999, 0, nil))
	y, _ := page.ScrollY()
	assert.Equal(t, 4200.0, y)
}

func TestCancelScroll(t *testing.T) {
	page := NewMemoryPage(5000, 800)
	eng := startedEngine(t, page)

	require.NoError(t, eng.ScrollTo(4000, time.Second, nil))
	runFrames(eng, t0, 3)
	eng.CancelScroll()
	y, _ := page.ScrollY()
	runFrames(eng, at(48), 10)
	y2, _ := page.ScrollY()
	assert.Equal(t, y, y2)
}

func TestScrollToErrors(t *testing.T) {
	page := NewMemoryPage(5000, 800)
	page.SetReadyState(ReadyLoading)
	eng := newTestEngine(t, page, DefaultConfig())
	require.NoError(t, eng.Start(t0))
	assert.ErrorIs(t, eng.ScrollTo(100, time.Second, nil), ErrInactive)

	ro, err := New(docOnly{page}, page, DefaultConfig())
	require.NoError(t, err)
	page.SetReadyState(ReadyInteractive)
	require.NoError(t, ro.Start(t0))
	assert.ErrorIs(t, ro.ScrollTo(100, time.Second, nil), ErrScrollUnsupported)

	ro.Stop()
	assert.ErrorIs(t, ro.ScrollTo(100, time.Second, nil), ErrStopped)
}
