package crawler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"sjsage522/storyworker/config"
	"sjsage522/storyworker/logger"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
)

// ChromePage implements Page with a single headless Chrome tab
type ChromePage struct {
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
}

// BrowserFlags translates the browser toggles into Chrome command line flags
func BrowserFlags(cfg config.BrowserConfig) map[string]interface{} {
	flags := map[string]interface{}{
		"headless": cfg.Headless,
	}
	if cfg.Headless {
		flags["disable-gpu"] = true
	}
	if cfg.Incognito {
		flags["incognito"] = true
	}
	if cfg.DisableSandbox {
		flags["no-sandbox"] = true
	}
	if cfg.DisableExtensions {
		flags["disable-extensions"] = true
	}
	if cfg.DisableNotifications {
		flags["disable-notifications"] = true
	}
	if cfg.DisableDevShmUsage {
		flags["disable-dev-shm-usage"] = true
	}
	return flags
}

// NewChromePage starts Chrome and opens one tab. The browser lives until
// Close is called, independent of ctx.
func NewChromePage(ctx context.Context, cfg config.BrowserConfig) (*ChromePage, error) {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	for name, value := range BrowserFlags(cfg) {
		opts = append(opts, chromedp.Flag(name, value))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	log := logger.ForComponent("chrome")
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...interface{}) {
		log.Debug().Msgf(format, args...)
	}))

	// Launch the browser now so a missing binary fails at startup
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start chrome: %w", err)
	}

	log.Info().Interface("flags", BrowserFlags(cfg)).Msg("Chrome started")

	return &ChromePage{
		allocCancel: allocCancel,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
	}, nil
}

// run executes actions on the tab, bounded by ctx's deadline and cancellation
func (p *ChromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.tabCtx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Navigate loads url and waits for the load event
func (p *ChromePage) Navigate(ctx context.Context, url string) error {
	return p.run(ctx, chromedp.Navigate(url))
}

// WaitFor blocks until selector is present in the DOM
func (p *ChromePage) WaitFor(ctx context.Context, selector string) error {
	return p.run(ctx, chromedp.WaitReady(selector, chromedp.ByQuery))
}

// Document snapshots the rendered HTML
func (p *ChromePage) Document(ctx context.Context) (*goquery.Document, error) {
	var html string
	if err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("HTML parsing error: %w", err)
	}
	return doc, nil
}

// Click clicks the first visible element matching selector
func (p *ChromePage) Click(ctx context.Context, selector string) error {
	return p.run(ctx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

// Drag presses the left button on the element center, moves dx pixels right and releases
func (p *ChromePage) Drag(ctx context.Context, selector string, dx float64) error {
	var center []float64
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) { return []; }
		const r = el.getBoundingClientRect();
		return [r.left + r.width / 2, r.top + r.height / 2];
	})()`, strconv.Quote(selector))

	if err := p.run(ctx, chromedp.Evaluate(script, &center)); err != nil {
		return err
	}
	if len(center) != 2 {
		return fmt.Errorf("%s not found", selector)
	}
	x, y := center[0], center[1]

	return p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := input.DispatchMouseEvent(input.MousePressed, x, y).
			WithButton(input.Left).WithClickCount(1).Do(ctx); err != nil {
			return err
		}
		if err := input.DispatchMouseEvent(input.MouseMoved, x+dx, y).
			WithButton(input.Left).Do(ctx); err != nil {
			return err
		}
		return input.DispatchMouseEvent(input.MouseReleased, x+dx, y).
			WithButton(input.Left).WithClickCount(1).Do(ctx)
	}))
}

// Close shuts the tab and the browser
func (p *ChromePage) Close() error {
	p.tabCancel()
	p.allocCancel()
	return nil
}
