package browser

import "context"

// Engine is the driver for one live headless-browser instance. The pool and
// the executor are written against this contract so they can be exercised
// without a real Chrome process; the production implementation lives in
// internal/adapter/chromedp_engine.
type Engine interface {
	// Navigate loads the URL and waits for the document to be ready.
	Navigate(ctx context.Context, url string) error
	// WaitVisible blocks until the selector matches a visible element.
	WaitVisible(ctx context.Context, selector string) error
	// Click clicks the first element matched by the selector.
	Click(ctx context.Context, selector string) error
	// Fill focuses the matched element and types the value into it.
	Fill(ctx context.Context, selector, value string) error
	// Text returns the inner text of the first matched element.
	Text(ctx context.Context, selector string) (string, error)
	// HTML returns the outer HTML of the first matched element. The selector
	// "html" yields the whole document.
	HTML(ctx context.Context, selector string) (string, error)
	// Attribute returns the named attribute of the first matched element.
	// ok is false when the attribute is absent.
	Attribute(ctx context.Context, selector, name string) (value string, ok bool, err error)
	// Screenshot captures the viewport, the full page, or a single element
	// when selector is non-empty.
	Screenshot(ctx context.Context, selector string, fullPage bool) ([]byte, error)
	// Title returns the current document title.
	Title(ctx context.Context) (string, error)
	// LastStatusCode returns the HTTP status of the most recent main-document
	// response, or zero if none was observed.
	LastStatusCode() int
	// Healthy probes the underlying process with a trivial evaluation.
	Healthy(ctx context.Context) bool
	// Close terminates the browser process. Idempotent.
	Close() error
}

// LaunchFunc starts a fresh browser instance. Failures are wrapped by the
// pool into *LaunchError.
type LaunchFunc func(ctx context.Context) (Engine, error)
