package render

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/mohammad-safakhou/slidegen/internal/job"
)

// ChromeRenderer renders a slide by navigating a headless Chrome tab to
// the HTML (as a data URL) and capturing a full-page screenshot sized
// to the aspect's canvas. The underlying browser process is started
// lazily on first render and reused, behind a single mutex, for every
// render after that; each call opens a fresh tab so slides never share
// document state.
type ChromeRenderer struct {
	mu         sync.Mutex
	browserCtx context.Context
	cancel     context.CancelFunc
	started    bool
}

// NewChromeRenderer returns a ChromeRenderer with no browser started yet.
func NewChromeRenderer() *ChromeRenderer {
	return &ChromeRenderer{}
}

func (r *ChromeRenderer) ensureStarted() error {
	if r.started {
		return nil
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.UserAgent("slidegen-renderer/1.0"),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return fmt.Errorf("start headless browser: %w", err)
	}
	r.browserCtx = browserCtx
	r.cancel = func() { cancelBrowser(); cancelAlloc() }
	r.started = true
	return nil
}

// Render implements Renderer.
func (r *ChromeRenderer) Render(ctx context.Context, html string, aspect job.Aspect) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureStarted(); err != nil {
		return nil, err
	}
	canvas := job.CanvasFor(aspect)

	tabCtx, cancelTab := chromedp.NewContext(r.browserCtx)
	defer cancelTab()
	runCtx, cancelTimeout := context.WithTimeout(tabCtx, 30*time.Second)
	defer cancelTimeout()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			cancelTimeout()
		case <-done:
		}
	}()

	var png []byte
	err := chromedp.Run(runCtx,
		chromedp.EmulateViewport(int64(canvas.WidthPx), int64(canvas.HeightPx)),
		chromedp.Navigate("data:text/html;charset=utf-8,"+url.PathEscape(html)),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.FullScreenshot(&png, 100),
	)
	if err != nil {
		return nil, fmt.Errorf("render slide: %w", err)
	}
	return png, nil
}

// Close releases the headless browser process, if one was started.
func (r *ChromeRenderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started && r.cancel != nil {
		r.cancel()
		r.started = false
	}
}
