// Package capture renders the widget page to a PNG via headless Chromium.
package capture

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/chromedp"
)

// Defaults match the widget's initial window geometry.
const (
	DefaultWidth   = 1100
	DefaultHeight  = 700
	DefaultTimeout = 30 * time.Second
)

// Options defines parameters for a widget snapshot.
type Options struct {
	// URL of the widget page, e.g. "http://127.0.0.1:8080/".
	URL string

	// OutputPath is where the PNG will be written.
	OutputPath string

	// Width / Height are the viewport dimensions in pixels; zero means
	// the defaults above.
	Width  int
	Height int

	// Timeout bounds the whole capture. Zero means DefaultTimeout.
	Timeout time.Duration
}

// WidgetPNG navigates a headless Chromium to the widget page, waits for the
// page to mark itself rendered via data-ready="true", and writes a PNG
// screenshot to opts.OutputPath.
func WidgetPNG(parentCtx context.Context, opts Options) error {
	if opts.URL == "" {
		return fmt.Errorf("capture: URL is required")
	}
	if opts.OutputPath == "" {
		return fmt.Errorf("capture: OutputPath is required")
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(`[data-ready="true"]`, chromedp.ByQuery),
		// Small extra delay to allow final paints.
		chromedp.Sleep(500 * time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := os.WriteFile(opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}
	return nil
}
