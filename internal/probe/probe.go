// Package probe loads the served timeline page in headless Chromium after a
// render pass and logs anything that looks wrong. It only observes; it never
// changes a pass or the page.
package probe

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/chromedp/chromedp"

	appLog "chronoview/internal/log"
	"chronoview/internal/timeline"
)

// Default probe parameters.
const (
	DefaultWidth      = 1280
	DefaultHeight     = 720
	DefaultTimeoutSec = 30
	DefaultDelaySec   = 3
)

// Options defines parameters for a Chromium-based probe.
type Options struct {
	// URL of the timeline page, e.g. "http://127.0.0.1:8080/timeline".
	URL string

	// ScreenshotPath, if set, receives a PNG of the probed page.
	ScreenshotPath string

	// Delay is the fixed wait between a served pass and the probe.
	Delay time.Duration

	// Width and Height are the viewport dimensions in pixels.
	Width  int
	Height int

	// Timeout bounds a single browser session.
	Timeout time.Duration
}

// Observation is what the page reports about itself once drawn.
type Observation struct {
	Ready     bool   `json:"ready"`
	ItemCount int    `json:"item_count"`
	PassID    string `json:"pass_id"`
	Error     string `json:"error"`
}

// observeScript reads the data attributes the timeline page sets when done.
const observeScript = `(() => {
  const el = document.getElementById("timeline");
  if (!el) { return {ready: false, item_count: 0, pass_id: "", error: "timeline element missing"}; }
  return {
    ready: el.dataset.ready === "true",
    item_count: Number(el.dataset.itemCount || 0),
    pass_id: el.dataset.passId || "",
    error: el.dataset.error || "",
  };
})()`

// Prober runs at most one probe at a time. Passes served while a probe is
// in flight are not probed.
type Prober struct {
	opts     Options
	log      *appLog.Logger
	inFlight atomic.Bool

	// observe is replaced in tests.
	observe func(ctx context.Context, opts Options) (Observation, error)
}

// New returns a Prober with defaults filled in.
func New(opts Options, logger *appLog.Logger) *Prober {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}
	if opts.Delay < 0 {
		opts.Delay = time.Duration(DefaultDelaySec) * time.Second
	}
	return &Prober{opts: opts, log: logger, observe: observeChromium}
}

// Schedule probes the page in the background after the configured delay.
// It returns immediately. It reports whether a probe was started.
func (p *Prober) Schedule(ctx context.Context, pass timeline.Pass) bool {
	if p == nil || p.opts.URL == "" {
		return false
	}
	if !p.inFlight.CompareAndSwap(false, true) {
		return false
	}
	go func() {
		defer p.inFlight.Store(false)
		defer func() {
			if rec := recover(); rec != nil {
				p.log.Error("probe panicked", fmt.Errorf("%v", rec), "pass", pass.ID)
			}
		}()

		timer := time.NewTimer(p.opts.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		obs, err := p.observe(ctx, p.opts)
		if err != nil {
			p.log.Warn("probe failed", "pass", pass.ID, "err", err)
			return
		}
		for _, a := range Check(pass, obs) {
			p.log.Warn("probe anomaly", "pass", pass.ID, "page_pass", obs.PassID, "anomaly", a)
		}
		p.log.Debug("probe done", "pass", pass.ID, "items", obs.ItemCount)
	}()
	return true
}

// Check compares what the page reports with the pass that triggered the
// probe. The page loads its own pass, so the item count may legitimately
// differ after a source refresh.
func Check(pass timeline.Pass, obs Observation) []string {
	var out []string
	if !obs.Ready {
		out = append(out, "page never signalled ready")
	}
	if obs.Error != "" {
		out = append(out, "page error: "+obs.Error)
	}
	if obs.Ready && obs.Error == "" && obs.ItemCount != len(pass.Items) {
		out = append(out, fmt.Sprintf("page shows %d items, pass had %d", obs.ItemCount, len(pass.Items)))
	}
	return out
}

// observeChromium launches headless Chromium via chromedp, navigates to
// opts.URL, waits for `[data-ready="true"]` and reads the page's data
// attributes. A screenshot is written when ScreenshotPath is set.
func observeChromium(parentCtx context.Context, opts Options) (Observation, error) {
	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var (
		obs Observation
		png []byte
	)
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(`[data-ready="true"]`, chromedp.ByQuery),
		chromedp.Evaluate(observeScript, &obs),
	}
	if opts.ScreenshotPath != "" {
		tasks = append(tasks, chromedp.FullScreenshot(&png, 90))
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return obs, fmt.Errorf("probe: chromedp run failed: %w", err)
	}

	if opts.ScreenshotPath != "" {
		if err := os.WriteFile(opts.ScreenshotPath, png, 0o644); err != nil {
			return obs, fmt.Errorf("probe: failed to write PNG: %w", err)
		}
	}
	return obs, nil
}
