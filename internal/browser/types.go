// internal/browser/types.go
package browser

import (
	"context"
	"time"
)

// Config defines browser automation settings for render-tier fetching and
// browser-driven link collection.
type Config struct {
	Headless       bool          `yaml:"headless" json:"headless"`
	Timeout        time.Duration `yaml:"timeout" json:"timeout"`
	ViewportWidth  int           `yaml:"viewport_width" json:"viewport_width"`
	ViewportHeight int           `yaml:"viewport_height" json:"viewport_height"`
	WaitSelector   string        `yaml:"wait_selector,omitempty" json:"wait_selector,omitempty"`
	WaitDelay      time.Duration `yaml:"wait_delay,omitempty" json:"wait_delay,omitempty"`
	UserAgent      string        `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`
	DisableImages  bool          `yaml:"disable_images" json:"disable_images"`
}

// DefaultConfig returns default browser configuration.
func DefaultConfig() *Config {
	return &Config{
		Headless:       true,
		Timeout:        30 * time.Second,
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		WaitDelay:      500 * time.Millisecond,
		DisableImages:  true,
	}
}

// Session is one browser instance. Sessions are not safe to share: each
// orchestrator worker opens its own session and closes it on exit.
type Session interface {
	// FetchHTML navigates to a URL, waits for the configured selector, and
	// returns the rendered page HTML.
	FetchHTML(ctx context.Context, url string) (string, error)

	// CollectLinks drives infinite scroll / "load more" on a catalog page
	// until at least limit anchors matching hrefPattern are visible or the
	// page stops growing, then returns the matching hrefs in DOM order.
	CollectLinks(ctx context.Context, url, hrefPattern string, limit int) ([]string, error)

	// Close releases the underlying browser. Safe to call more than once.
	Close() error
}

// Factory opens sessions. The orchestrator holds a factory rather than a
// session so each worker can own its instance.
type Factory func() (Session, error)

// Stats counts session activity for diagnostics.
type Stats struct {
	PagesLoaded      int           `json:"pages_loaded"`
	AverageLoadTime  time.Duration `json:"average_load_time"`
	Errors           int           `json:"errors"`
	TimeoutsOccurred int           `json:"timeouts_occurred"`
}
