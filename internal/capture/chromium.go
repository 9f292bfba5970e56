// Package capture renders a URL in headless Chromium and returns a
// screenshot sized to the panel.
package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"time"

	"github.com/chromedp/chromedp"

	"epdpaint/internal/epd"
	"epdpaint/internal/imageio"
)

// DefaultTimeout bounds the whole capture operation when the caller
// does not set one.
const DefaultTimeout = 30 * time.Second

// Options defines parameters for a Chromium-based screenshot capture.
type Options struct {
	// URL to capture.
	URL string

	// Timeout bounds the entire capture operation. Zero uses
	// DefaultTimeout.
	Timeout time.Duration
}

// Screenshot launches a headless Chromium via chromedp, navigates to
// opts.URL with a viewport of exactly the panel resolution, and returns
// the decoded screenshot. The result is dimension-checked so it can be
// fed straight into the dithering pipeline.
func Screenshot(parentCtx context.Context, opts Options) (image.Image, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("capture: URL is required")
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
		chromedp.EmulateViewport(int64(epd.Width), int64(epd.Height)),
		chromedp.Navigate(opts.URL),
		// Small delay to let final paints land before the shot.
		chromedp.Sleep(500 * time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return nil, fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	img, err := imageio.Decode(bytes.NewReader(png), epd.Width, epd.Height)
	if err != nil {
		return nil, fmt.Errorf("capture: screenshot: %w", err)
	}
	return img, nil
}
