package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/phanxgames/glide"
	"github.com/phanxgames/glide/cdp"
	"github.com/phanxgames/glide/internal/observability"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newDriveCmd() *cobra.Command {
	var (
		scrollTo  float64
		scrollDur time.Duration
	)

	cmd := &cobra.Command{
		Use:   "drive [url]",
		Short: "Attach the engine to a page in Chromium and run until interrupted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			url := cfg.Browser.URL
			if len(args) == 1 {
				url = args[0]
			}
			if url == "" {
				return fmt.Errorf("no url given and browser.url is empty")
			}
			log := observability.GetLogger()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts := append(chromedp.DefaultExecAllocatorOptions[:],
				chromedp.Flag("headless", cfg.Browser.Headless),
				chromedp.WindowSize(cfg.Browser.WindowWidth, cfg.Browser.WindowHeight),
			)
			allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
			defer cancelAlloc()
			tabCtx, cancelTab := chromedp.NewContext(allocCtx)
			defer cancelTab()

			setupCtx, cancelSetup := context.WithTimeout(tabCtx, cfg.Browser.Timeout)
			defer cancelSetup()
			if err := cdp.Install(setupCtx); err != nil {
				return fmt.Errorf("install page hooks: %w", err)
			}
			if err := chromedp.Run(setupCtx, chromedp.Navigate(url)); err != nil {
				return fmt.Errorf("navigate %s: %w", url, err)
			}

			page, err := cdp.Attach(tabCtx, cfg.Browser.Selector, log)
			if err != nil {
				return err
			}
			eng, err := glide.New(page, page, cfg.Engine,
				glide.WithLogger(log),
				glide.WithTriggers(page),
				glide.WithDebug(debugEnabled(cmd)))
			if err != nil {
				return err
			}
			page.Forward(eng.Post)
			runner := glide.NewRunner(eng)

			log.Info("Driving page.", zap.String("url", url), zap.String("engine", eng.ID().String()))

			g, gctx := errgroup.WithContext(tabCtx)
			g.Go(func() error {
				return runner.Run(gctx)
			})
			if cmd.Flags().Changed("scroll-to") {
				g.Go(func() error {
					return scrollWhenActive(gctx, runner, scrollTo, scrollDur)
				})
			}

			err = g.Wait()
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().Float64Var(&scrollTo, "scroll-to", 0, "animate to this offset once the engine is active")
	cmd.Flags().DurationVar(&scrollDur, "scroll-duration", time.Second, "duration of the --scroll-to animation")
	return cmd
}

// scrollWhenActive retries ScrollTo until the engine has activated.
func scrollWhenActive(ctx context.Context, r *glide.Runner, y float64, d time.Duration) error {
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		err := r.Exec(ctx, func(e *glide.Engine) error {
			return e.ScrollTo(y, d, nil)
		})
		if !errors.Is(err, glide.ErrInactive) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
}
