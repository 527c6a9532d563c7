package chromedp_engine

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/VritantaNextgen/moolyamitra-scraper/internal/browser"
)

const defaultUserAgent = `Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36`

// Options configures the Chrome processes the launcher starts.
type Options struct {
	// ExecPath points at the Chrome binary. Empty uses chromedp's lookup.
	ExecPath  string
	UserAgent string
}

// NewLauncher returns a browser.LaunchFunc that starts one headless Chrome
// per call. Each engine owns its own exec allocator, so retiring a session
// kills the whole process tree.
func NewLauncher(opts Options) browser.LaunchFunc {
	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	return func(ctx context.Context) (browser.Engine, error) {
		allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(ua),
		)
		if opts.ExecPath != "" {
			allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
		}

		allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
		browserCtx, browserCancel := chromedp.NewContext(allocCtx)

		e := &Engine{
			browserCtx:    browserCtx,
			browserCancel: browserCancel,
			allocCancel:   allocCancel,
		}
		e.listenForStatus()

		// Running an empty task list forces the process to start now, so a
		// missing binary fails the launch instead of the first action.
		if err := e.run(ctx, network.Enable()); err != nil {
			e.Close()
			return nil, err
		}
		return e, nil
	}
}

// Engine drives one headless Chrome process through chromedp.
type Engine struct {
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc

	lastStatus atomic.Int64
	closed     atomic.Bool
}

var _ browser.Engine = (*Engine)(nil)

// listenForStatus records the HTTP status of main-document responses.
func (e *Engine) listenForStatus() {
	chromedp.ListenTarget(e.browserCtx, func(ev interface{}) {
		if resp, ok := ev.(*network.EventResponseReceived); ok {
			if resp.Type == network.ResourceTypeDocument {
				e.lastStatus.Store(int64(resp.Response.Status))
			}
		}
	})
}

// run executes chromedp actions against the engine's browser context while
// honoring the caller's deadline. chromedp requires its own context chain,
// so the caller's cancellation is propagated instead of passed through.
func (e *Engine) run(ctx context.Context, actions ...chromedp.Action) error {
	if e.closed.Load() {
		return errors.New("browser engine closed")
	}
	runCtx, cancel := context.WithCancel(e.browserCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (e *Engine) Navigate(ctx context.Context, url string) error {
	return e.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (e *Engine) WaitVisible(ctx context.Context, selector string) error {
	return e.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (e *Engine) Click(ctx context.Context, selector string) error {
	return e.run(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

func (e *Engine) Fill(ctx context.Context, selector, value string) error {
	return e.run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
}

func (e *Engine) Text(ctx context.Context, selector string) (string, error) {
	var out string
	err := e.run(ctx, chromedp.Text(selector, &out, chromedp.ByQuery, chromedp.NodeVisible))
	return out, err
}

func (e *Engine) HTML(ctx context.Context, selector string) (string, error) {
	var out string
	err := e.run(ctx, chromedp.OuterHTML(selector, &out, chromedp.ByQuery))
	return out, err
}

func (e *Engine) Attribute(ctx context.Context, selector, name string) (string, bool, error) {
	var value string
	var ok bool
	err := e.run(ctx, chromedp.AttributeValue(selector, name, &value, &ok, chromedp.ByQuery))
	return value, ok, err
}

func (e *Engine) Screenshot(ctx context.Context, selector string, fullPage bool) ([]byte, error) {
	var buf []byte
	var action chromedp.Action
	switch {
	case selector != "":
		action = chromedp.Screenshot(selector, &buf, chromedp.NodeVisible, chromedp.ByQuery)
	case fullPage:
		action = chromedp.FullScreenshot(&buf, 90)
	default:
		action = chromedp.CaptureScreenshot(&buf)
	}
	if err := e.run(ctx, action); err != nil {
		return nil, err
	}
	return buf, nil
}

func (e *Engine) Title(ctx context.Context) (string, error) {
	var title string
	err := e.run(ctx, chromedp.Title(&title))
	return title, err
}

func (e *Engine) LastStatusCode() int {
	return int(e.lastStatus.Load())
}

// Healthy evaluates a trivial expression in the page; a dead or wedged
// process fails the round trip.
func (e *Engine) Healthy(ctx context.Context) bool {
	if e.closed.Load() || e.browserCtx.Err() != nil {
		return false
	}
	var one int
	if err := e.run(ctx, chromedp.Evaluate("1", &one)); err != nil {
		return false
	}
	return one == 1
}

func (e *Engine) Close() error {
	if e.closed.Swap(true) {
		return nil
	}
	// Cancel the browser context first so chromedp tears the process down,
	// then the allocator to reap it.
	e.browserCancel()
	e.allocCancel()
	return nil
}
