// Package capture takes PNG snapshots of the rendered week page with a
// headless Chromium.
package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"weekcal/internal/config"
	appLog "weekcal/internal/log"
)

// Default capture parameters. They match the week grid at the default
// 48px per hour: 24 hours plus the header and toolbar.
const (
	DefaultWidth   = 1280
	DefaultHeight  = 1400
	DefaultTimeout = 30 * time.Second

	// readySelector is set by the /calendar page once the grid is rendered.
	readySelector = `[data-ready="true"]`
)

// Options defines a snapshot.
type Options struct {
	// URL to capture, e.g. "http://127.0.0.1:8080/calendar?date=2026-10-19".
	URL string

	// Width and Height are the viewport in pixels; zero means the defaults.
	Width  int
	Height int

	// Timeout bounds the whole capture; zero means DefaultTimeout.
	Timeout time.Duration
}

func (o *Options) normalize() error {
	if o.URL == "" {
		return errors.New("capture: URL is required")
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return nil
}

// Snapshot navigates to opts.URL, waits for the page to mark itself ready
// and returns a full-page PNG.
func Snapshot(parentCtx context.Context, opts Options) ([]byte, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	started := time.Now()
	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(readySelector, chromedp.ByQuery),
		// Let the final paint land.
		chromedp.Sleep(300 * time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	}
	if err := chromedp.Run(ctx, tasks); err != nil {
		return nil, fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	appLog.Debug("capture done", "bytes", len(png), "elapsed", time.Since(started))
	return png, nil
}

// SnapshotToFile captures opts.URL and writes the PNG to path atomically.
func SnapshotToFile(ctx context.Context, opts Options, path string) error {
	if path == "" {
		return errors.New("capture: output path is required")
	}
	png, err := Snapshot(ctx, opts)
	if err != nil {
		return err
	}
	if err := config.WriteFileAtomic(path, png, ".weekcal-preview-*.png"); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}
	appLog.Info("preview written", "path", path, "bytes", len(png))
	return nil
}
