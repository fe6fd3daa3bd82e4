// internal/browser/chromedp.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// ChromeSession implements Session using chromedp. One allocator and one tab
// per session; the allocator lives as long as the session so worker restarts
// never share browser state.
type ChromeSession struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	config      *Config
	stats       *Stats
	closeOnce   sync.Once
}

// NewChromeSession starts a Chrome instance and returns a ready session.
func NewChromeSession(config *Config) (*ChromeSession, error) {
	if config == nil {
		config = DefaultConfig()
	}

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox, // Required for Docker environments
	}

	if config.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(config.UserAgent))
	}
	if config.DisableImages {
		opts = append(opts, chromedp.Flag("blink-settings", "imagesEnabled=false"))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	s := &ChromeSession{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		config:      config,
		stats:       &Stats{},
	}

	if err := chromedp.Run(tabCtx,
		chromedp.EmulateViewport(int64(config.ViewportWidth), int64(config.ViewportHeight)),
	); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to initialize browser: %w", err)
	}

	return s, nil
}

// FetchHTML navigates to a URL and returns the rendered HTML once the
// configured selector appears (bounded by the session timeout).
func (s *ChromeSession) FetchHTML(ctx context.Context, url string) (string, error) {
	runCtx, cancel := s.boundedCtx(ctx)
	defer cancel()

	start := time.Now()

	tasks := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	}
	if s.config.WaitSelector != "" {
		tasks = append(tasks, chromedp.WaitVisible(s.config.WaitSelector))
	}
	if s.config.WaitDelay > 0 {
		tasks = append(tasks, chromedp.Sleep(s.config.WaitDelay))
	}

	var html string
	tasks = append(tasks, chromedp.OuterHTML("html", &html))

	if err := chromedp.Run(runCtx, tasks...); err != nil {
		s.stats.Errors++
		if runCtx.Err() == context.DeadlineExceeded {
			s.stats.TimeoutsOccurred++
		}
		return "", fmt.Errorf("render fetch failed: %w", err)
	}

	s.recordLoad(time.Since(start))
	return html, nil
}

// CollectLinks scrolls a catalog page and clicks its "load more" control
// until limit matching links are visible or link count stalls for three
// consecutive rounds.
func (s *ChromeSession) CollectLinks(ctx context.Context, url, hrefPattern string, limit int) ([]string, error) {
	runCtx, cancel := s.boundedCtx(ctx)
	defer cancel()

	if err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	); err != nil {
		s.stats.Errors++
		return nil, fmt.Errorf("catalog navigation failed: %w", err)
	}

	collect := fmt.Sprintf(
		`Array.from(document.querySelectorAll('a[href*=%q]')).map(a => a.href)`,
		hrefPattern,
	)

	var hrefs []string
	stalls := 0
	lastCount := -1

	for {
		if err := chromedp.Run(runCtx, chromedp.Evaluate(collect, &hrefs)); err != nil {
			s.stats.Errors++
			return nil, fmt.Errorf("link extraction failed: %w", err)
		}

		unique := dedupeLinks(hrefs)
		if len(unique) >= limit {
			s.recordLoad(0)
			return unique[:limit], nil
		}

		if len(unique) == lastCount {
			stalls++
			if stalls >= 3 {
				// Source exhausted before limit; return what we found.
				return unique, nil
			}
		} else {
			stalls = 0
			lastCount = len(unique)
		}

		// Scroll to the bottom and click a "load more" control if present.
		// Failures here are part of stall detection, not errors.
		_ = chromedp.Run(runCtx,
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
			chromedp.Sleep(400*time.Millisecond),
			chromedp.Evaluate(loadMoreClick, nil),
			chromedp.Sleep(600*time.Millisecond),
		)

		select {
		case <-runCtx.Done():
			return dedupeLinks(hrefs), runCtx.Err()
		default:
		}
	}
}

// loadMoreClick clicks the first visible button whose label suggests it
// expands the list. Evaluated in page context on every scroll round.
const loadMoreClick = `(() => {
	const labels = ['load more', 'show more', 'see more', '50 more'];
	for (const b of document.querySelectorAll('button, a.load-more')) {
		const t = (b.textContent || '').trim().toLowerCase();
		if (labels.some(l => t.includes(l))) { b.click(); return true; }
	}
	return false;
})()`

// Close releases the tab and the browser process.
func (s *ChromeSession) Close() error {
	s.closeOnce.Do(func() {
		if s.cancelTab != nil {
			s.cancelTab()
		}
		if s.cancelAlloc != nil {
			s.cancelAlloc()
		}
	})
	return nil
}

// GetStats returns session statistics.
func (s *ChromeSession) GetStats() *Stats {
	return s.stats
}

// boundedCtx derives a run context honoring both the caller's deadline and
// the session timeout. chromedp actions must run on the tab context, so the
// caller context is bridged by cancellation.
func (s *ChromeSession) boundedCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx := s.ctx
	var cancels []context.CancelFunc

	if s.config.Timeout > 0 {
		var c context.CancelFunc
		runCtx, c = context.WithTimeout(runCtx, s.config.Timeout)
		cancels = append(cancels, c)
	}

	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			for _, c := range cancels {
				c()
			}
		case <-stop:
		}
	}()

	return runCtx, func() {
		close(stop)
		for _, c := range cancels {
			c()
		}
	}
}

func dedupeLinks(hrefs []string) []string {
	seen := make(map[string]struct{}, len(hrefs))
	out := make([]string, 0, len(hrefs))
	for _, h := range hrefs {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}

// recordLoad updates rolling load statistics.
func (s *ChromeSession) recordLoad(d time.Duration) {
	s.stats.PagesLoaded++
	if d == 0 {
		return
	}
	if s.stats.PagesLoaded == 1 {
		s.stats.AverageLoadTime = d
	} else {
		s.stats.AverageLoadTime = (s.stats.AverageLoadTime + d) / 2
	}
}

// NewFactory returns a Factory producing independent Chrome sessions with a
// shared configuration.
func NewFactory(config *Config) Factory {
	return func() (Session, error) {
		return NewChromeSession(config)
	}
}
