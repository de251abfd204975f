package glide

// ReadyState mirrors the document loading states of a page.
type ReadyState uint8

const (
	ReadyLoading     ReadyState = iota // document is still being parsed
	ReadyInteractive                   // parsed; subresources may still be loading
	ReadyComplete                      // load event has fired
)

// String returns the DOM spelling of the state.
func (s ReadyState) String() string {
	switch s {
	case ReadyLoading:
		return "loading"
	case ReadyInteractive:
		return "interactive"
	case ReadyComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// ParseReadyState converts a DOM readyState string. Unknown values map to
// ReadyLoading so that an unrecognized page defers initialization.
func ParseReadyState(s string) ReadyState {
	switch s {
	case "interactive":
		return ReadyInteractive
	case "complete":
		return ReadyComplete
	default:
		return ReadyLoading
	}
}

// Document is the page hosting the scroll container.
type Document interface {
	// ReadyState reports how far the document has loaded.
	ReadyState() (ReadyState, error)
	// ScrollY returns the native vertical scroll offset.
	ScrollY() (float64, error)
	// ViewportHeight returns the height of the visible area.
	ViewportHeight() (float64, error)
	// SetScrollHeight sets the document's logical scrollable height.
	SetScrollHeight(h float64) error
}

// Scroller is implemented by documents whose native scroll offset can be set
// programmatically. Required by Engine.ScrollTo.
type Scroller interface {
	SetScrollY(y float64) error
}

// Container is the content element whose visual position the engine owns.
type Container interface {
	// Height returns the rendered height of the container.
	Height() (float64, error)
	// Pin takes the container out of normal layout flow so that native
	// scrolling no longer moves it.
	Pin() error
	// Translate applies the displayed offset as an upward translation.
	Translate(y float64) error
}

// SizeObserver is implemented by containers that can report their own size
// changes. notify may be called from any goroutine. Returning an error that
// wraps errors.ErrUnsupported means the capability is absent.
type SizeObserver interface {
	ObserveSize(notify func()) (disconnect func(), err error)
}

// TriggerRegistry is the scroll-trigger bookkeeping that lives outside the
// engine. Refresh is called once per accepted height update; Update once per
// frame.
type TriggerRegistry interface {
	Refresh()
	Update()
}

type nopTriggers struct{}

func (nopTriggers) Refresh() {}
func (nopTriggers) Update()  {}
