// Package cdp hosts a glide engine in a real Chromium page over the Chrome
// DevTools Protocol. The Page type implements every glide host interface by
// evaluating small expressions in the page, and forwards DOM events back to
// the engine through a runtime binding.
package cdp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
	"github.com/phanxgames/glide"
	"go.uber.org/zap"
)

// bindingName is the page function that delivers events to Go.
const bindingName = "__glide"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// signalScript reports document lifecycle and window resizes. It runs on
// every new document and is idempotent.
const signalScript = `(function () {
  if (window.__glideSignals) return;
  window.__glideSignals = true;
  var send = function (name) { try { window.` + bindingName + `(name); } catch (e) {} };
  document.addEventListener("readystatechange", function () {
    if (document.readyState === "interactive") send("ready");
  });
  window.addEventListener("load", function () { send("load"); });
  window.addEventListener("resize", function () { send("resize"); });
})();`

// Page is a Chromium tab driven through chromedp.
type Page struct {
	ctx      context.Context
	selector string // JSON-quoted CSS selector
	log      *zap.Logger

	mu        sync.Mutex
	forward   func(glide.Signal)
	observers map[int]func()
	nextObs   int
}

// Install exposes the event binding and registers the signal script for
// every document loaded in ctx from now on. Call it before navigating so
// that the ready and load events of the first document are seen.
func Install(ctx context.Context) error {
	return chromedp.Run(ctx,
		runtime.AddBinding(bindingName),
		chromedp.ActionFunc(func(c context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(signalScript).Do(c)
			return err
		}),
	)
}

// Attach binds a Page to the tab in ctx. The element matched by selector
// becomes the engine's container. Returns an error wrapping
// glide.ErrNoContainer when nothing matches.
func Attach(ctx context.Context, selector string, log *zap.Logger) (*Page, error) {
	if log == nil {
		log = zap.NewNop()
	}
	quoted, err := quote(selector)
	if err != nil {
		return nil, err
	}
	p := &Page{
		ctx:       ctx,
		selector:  quoted,
		log:       log.Named("cdp"),
		observers: make(map[int]func()),
	}

	var found bool
	if err := chromedp.Run(ctx, chromedp.Evaluate(existsExpr(quoted), &found)); err != nil {
		return nil, fmt.Errorf("cdp: query %s: %w", selector, err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", glide.ErrNoContainer, selector)
	}

	chromedp.ListenTarget(ctx, func(ev interface{}) {
		if b, ok := ev.(*runtime.EventBindingCalled); ok && b.Name == bindingName {
			p.dispatch(b.Payload)
		}
	})
	// The signal script only runs on new documents; cover the current one.
	if err := chromedp.Run(ctx, chromedp.Evaluate(signalScript, nil)); err != nil {
		p.log.Debug("Signal script not installed on current document.", zap.Error(err))
	}
	return p, nil
}

// Forward routes page signals (ready, load, resize) to post, typically
// Engine.Post. Content size changes go to ObserveSize callbacks instead.
func (p *Page) Forward(post func(glide.Signal)) {
	p.mu.Lock()
	p.forward = post
	p.mu.Unlock()
}

// dispatch handles one binding payload. Runs on the chromedp event goroutine
// and must not block.
func (p *Page) dispatch(payload string) {
	sig, ok := glide.ParseSignal(payload)
	if !ok {
		p.log.Debug("Ignoring unknown page event.", zap.String("payload", payload))
		return
	}

	p.mu.Lock()
	var targets []func()
	if sig == glide.SignalContentResize {
		for _, fn := range p.observers {
			targets = append(targets, fn)
		}
	} else if p.forward != nil {
		post := p.forward
		targets = append(targets, func() { post(sig) })
	}
	p.mu.Unlock()

	for _, fn := range targets {
		fn()
	}
}

func (p *Page) eval(expr string, res interface{}) error {
	return chromedp.Run(p.ctx, chromedp.Evaluate(expr, res))
}

// ReadyState implements glide.Document.
func (p *Page) ReadyState() (glide.ReadyState, error) {
	var s string
	if err := p.eval("document.readyState", &s); err != nil {
		return glide.ReadyLoading, err
	}
	return glide.ParseReadyState(s), nil
}

// ScrollY implements glide.Document.
func (p *Page) ScrollY() (float64, error) {
	var y float64
	err := p.eval("window.scrollY", &y)
	return y, err
}

// ViewportHeight implements glide.Document.
func (p *Page) ViewportHeight() (float64, error) {
	var h float64
	err := p.eval("window.innerHeight", &h)
	return h, err
}

// SetScrollHeight implements glide.Document by sizing the body, which the
// pinned container no longer contributes to.
func (p *Page) SetScrollHeight(h float64) error {
	return p.eval(scrollHeightExpr(h), nil)
}

// SetScrollY implements glide.Scroller.
func (p *Page) SetScrollY(y float64) error {
	return p.eval("window.scrollTo(0, "+px(y)+")", nil)
}

// Height implements glide.Container.
func (p *Page) Height() (float64, error) {
	var h float64
	err := p.eval(heightExpr(p.selector), &h)
	return h, err
}

// Pin implements glide.Container.
func (p *Page) Pin() error {
	return p.eval(pinExpr(p.selector), nil)
}

// Translate implements glide.Container.
func (p *Page) Translate(y float64) error {
	return p.eval(translateExpr(p.selector, y), nil)
}

// ObserveSize implements glide.SizeObserver with a ResizeObserver on the
// container. Pages without ResizeObserver report errors.ErrUnsupported.
func (p *Page) ObserveSize(notify func()) (func(), error) {
	var ok bool
	if err := p.eval(observeExpr(p.selector), &ok); err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("cdp: ResizeObserver: %w", errors.ErrUnsupported)
	}

	p.mu.Lock()
	id := p.nextObs
	p.nextObs++
	p.observers[id] = notify
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.observers, id)
		last := len(p.observers) == 0
		p.mu.Unlock()
		if !last {
			return
		}
		if err := p.eval(disconnectExpr, nil); err != nil {
			p.log.Debug("ResizeObserver disconnect failed.", zap.Error(err))
		}
	}, nil
}

// Refresh implements glide.TriggerRegistry for pages using GSAP's
// ScrollTrigger. Pages without it are left alone.
func (p *Page) Refresh() {
	if err := p.eval(triggerExpr("refresh"), nil); err != nil {
		p.log.Debug("ScrollTrigger refresh failed.", zap.Error(err))
	}
}

// Update implements glide.TriggerRegistry.
func (p *Page) Update() {
	if err := p.eval(triggerExpr("update"), nil); err != nil {
		p.log.Debug("ScrollTrigger update failed.", zap.Error(err))
	}
}

func quote(selector string) (string, error) {
	if selector == "" {
		return "", fmt.Errorf("cdp: empty selector")
	}
	s, err := json.MarshalToString(selector)
	if err != nil {
		return "", fmt.Errorf("cdp: quote selector: %w", err)
	}
	return s, nil
}

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func elem(quoted string) string {
	return "document.querySelector(" + quoted + ")"
}

func existsExpr(quoted string) string {
	return elem(quoted) + " !== null"
}

func heightExpr(quoted string) string {
	return elem(quoted) + ".getBoundingClientRect().height"
}

func scrollHeightExpr(h float64) string {
	return `void (document.body.style.height = "` + px(h) + `px")`
}

func pinExpr(quoted string) string {
	return `void (function (s) {
  s.position = "fixed";
  s.top = "0";
  s.left = "0";
  s.width = "100%";
  s.willChange = "transform";
})(` + elem(quoted) + `.style)`
}

func translateExpr(quoted string, y float64) string {
	return `void (` + elem(quoted) + `.style.transform = "translate3d(0, ` + px(-y) + `px, 0)")`
}

func observeExpr(quoted string) string {
	return `(function (el) {
  if (typeof ResizeObserver === "undefined" || !el) return false;
  if (window.__glideObserver) window.__glideObserver.disconnect();
  window.__glideObserver = new ResizeObserver(function () {
    try { window.` + bindingName + `("content-resize"); } catch (e) {}
  });
  window.__glideObserver.observe(el);
  return true;
})(` + elem(quoted) + `)`
}

const disconnectExpr = `void (window.__glideObserver && window.__glideObserver.disconnect())`

func triggerExpr(method string) string {
	return `void (window.ScrollTrigger && window.ScrollTrigger.` + method + `())`
}
