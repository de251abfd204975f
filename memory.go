package glide

import (
	"errors"
	"fmt"
	"sync"
)

// MemoryPage is an in-memory page implementing Document, Scroller,
// Container, SizeObserver and TriggerRegistry. It behaves like a browser
// page with a pinned container: the native scroll offset is limited by the
// logical document height, and content height changes notify observers.
// Safe for concurrent use.
type MemoryPage struct {
	mu sync.Mutex

	ready     ReadyState
	scrollY   float64
	viewportH float64
	contentH  float64
	docH      float64
	translate float64
	pinned    bool

	observable bool
	observers  map[int]func()
	nextObs    int

	failMeasures int

	measures   int
	docWrites  []float64
	refreshes  int
	updates    int
	translates int
}

// PageSnapshot is a copy of a MemoryPage's state and counters.
type PageSnapshot struct {
	Ready          ReadyState
	ScrollY        float64
	ViewportHeight float64
	ContentHeight  float64
	DocHeight      float64
	Translate      float64
	Pinned         bool
	Observers      int

	Measures   int       // Height calls
	DocWrites  []float64 // every SetScrollHeight value, in order
	Refreshes  int       // TriggerRegistry.Refresh calls
	Updates    int       // TriggerRegistry.Update calls
	Translates int       // Translate calls
}

// NewMemoryPage creates an interactive page with the given content and
// viewport heights. Size observation is supported.
func NewMemoryPage(contentHeight, viewportHeight float64) *MemoryPage {
	return &MemoryPage{
		ready:      ReadyInteractive,
		viewportH:  viewportHeight,
		contentH:   contentHeight,
		observable: true,
		observers:  make(map[int]func()),
	}
}

// SetReadyState sets the document loading state.
func (p *MemoryPage) SetReadyState(rs ReadyState) {
	p.mu.Lock()
	p.ready = rs
	p.mu.Unlock()
}

// SetObservable toggles size observation support. Must be set before the
// engine starts to simulate an environment without it.
func (p *MemoryPage) SetObservable(ok bool) {
	p.mu.Lock()
	p.observable = ok
	p.mu.Unlock()
}

// FailMeasurements makes the next n Height calls return an error.
func (p *MemoryPage) FailMeasurements(n int) {
	p.mu.Lock()
	p.failMeasures = n
	p.mu.Unlock()
}

// SetContentHeight changes the rendered container height and notifies size
// observers when it actually changed.
func (p *MemoryPage) SetContentHeight(h float64) {
	p.mu.Lock()
	changed := h != p.contentH
	p.contentH = h
	var notify []func()
	if changed {
		for _, fn := range p.observers {
			notify = append(notify, fn)
		}
	}
	p.mu.Unlock()

	for _, fn := range notify {
		fn()
	}
}

// SetViewportHeight changes the viewport height and re-clamps the native
// scroll offset.
func (p *MemoryPage) SetViewportHeight(h float64) {
	p.mu.Lock()
	p.viewportH = h
	p.scrollY = p.clampScrollLocked(p.scrollY)
	p.mu.Unlock()
}

// ScrollBy moves the native scroll offset by dy, as a wheel would.
func (p *MemoryPage) ScrollBy(dy float64) {
	p.mu.Lock()
	p.scrollY = p.clampScrollLocked(p.scrollY + dy)
	p.mu.Unlock()
}

// Snapshot returns a copy of the page state.
func (p *MemoryPage) Snapshot() PageSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PageSnapshot{
		Ready:          p.ready,
		ScrollY:        p.scrollY,
		ViewportHeight: p.viewportH,
		ContentHeight:  p.contentH,
		DocHeight:      p.docH,
		Translate:      p.translate,
		Pinned:         p.pinned,
		Observers:      len(p.observers),
		Measures:       p.measures,
		DocWrites:      append([]float64(nil), p.docWrites...),
		Refreshes:      p.refreshes,
		Updates:        p.updates,
		Translates:     p.translates,
	}
}

// clampScrollLocked limits y to the native scroll range. The range comes
// from the logical document height, not the content, exactly as a browser
// bounds scrolling of a page whose content is pinned.
func (p *MemoryPage) clampScrollLocked(y float64) float64 {
	return clampOffset(y, maxScroll(p.docH, p.viewportH))
}

// ---- Document ---------------------------------------------------------------

func (p *MemoryPage) ReadyState() (ReadyState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready, nil
}

func (p *MemoryPage) ScrollY() (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scrollY, nil
}

func (p *MemoryPage) ViewportHeight() (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewportH, nil
}

func (p *MemoryPage) SetScrollHeight(h float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.docH = h
	p.docWrites = append(p.docWrites, h)
	p.scrollY = p.clampScrollLocked(p.scrollY)
	return nil
}

func (p *MemoryPage) SetScrollY(y float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scrollY = p.clampScrollLocked(y)
	return nil
}

// ---- Container --------------------------------------------------------------

func (p *MemoryPage) Height() (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.measures++
	if p.failMeasures > 0 {
		p.failMeasures--
		return 0, errors.New("memory page: layout unavailable")
	}
	return p.contentH, nil
}

func (p *MemoryPage) Pin() error {
	p.mu.Lock()
	p.pinned = true
	p.mu.Unlock()
	return nil
}

func (p *MemoryPage) Translate(y float64) error {
	p.mu.Lock()
	p.translate = y
	p.translates++
	p.mu.Unlock()
	return nil
}

func (p *MemoryPage) ObserveSize(notify func()) (func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.observable {
		return nil, fmt.Errorf("memory page: size observation: %w", errors.ErrUnsupported)
	}
	id := p.nextObs
	p.nextObs++
	p.observers[id] = notify
	return func() {
		p.mu.Lock()
		delete(p.observers, id)
		p.mu.Unlock()
	}, nil
}

// ---- TriggerRegistry --------------------------------------------------------

func (p *MemoryPage) Refresh() {
	p.mu.Lock()
	p.refreshes++
	p.mu.Unlock()
}

func (p *MemoryPage) Update() {
	p.mu.Lock()
	p.updates++
	p.mu.Unlock()
}
