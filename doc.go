// Package glide is a momentum smooth-scrolling engine for long pages.
//
// Glide decouples a page's native scroll offset from the visual offset of its
// content container. The native offset is only read as a target; the displayed
// offset eases toward it every frame and is applied to the container as a
// vertical translation. A height tracker keeps the document's logical
// scrollable height equal to the container's rendered height, so the native
// scroll range stays correct while images and fonts finish loading.
//
// # Quick start
//
// The simplest way to get started is [Runner], which drives an [Engine] from
// real time on the calling goroutine. Other goroutines reach the engine
// through [Runner.Exec]:
//
//	eng, err := glide.New(doc, container, glide.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	return glide.NewRunner(eng).Run(ctx)
//
// For full control, own the engine yourself and call [Engine.Pump] and
// [Engine.Frame] from your frame callback:
//
//	func (g *Game) Update() error {
//		now := time.Now()
//		g.engine.Pump(now)
//		g.engine.Frame(now)
//		return nil
//	}
//
// # Hosts
//
// The engine reaches the page through small interfaces: [Document],
// [Container], and optionally [Scroller], [SizeObserver] and
// [TriggerRegistry]. [MemoryPage] implements all of them in memory and is
// what the tests, the scenario runner and the ebiten viewer use. Package
// glide/cdp implements them against a real Chromium page.
//
// # Signals
//
// Anything that can change the page height from outside the engine (the
// document becoming ready, the load event, a window resize, a size observer
// callback) is delivered with [Engine.Post]. Post is safe from any goroutine;
// the engine only acts on signals when its owner calls [Engine.Pump].
package glide
