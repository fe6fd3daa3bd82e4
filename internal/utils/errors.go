// Package utils provides logging and error classification utilities shared
// across the acquisition and processing stages.
package utils

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// ErrorClass partitions failures by how the orchestrator must react to them.
type ErrorClass int

const (
	// ClassTransient errors (timeouts, 5xx, browser crashes) are retried
	// with backoff.
	ClassTransient ErrorClass = iota
	// ClassPermanent errors (404, exhausted tier chain) are recorded
	// immediately with no retry.
	ClassPermanent
	// ClassFatal errors (bad configuration, unreachable source) abort the
	// run before any fetch starts.
	ClassFatal
)

// String returns the string representation of an error class.
func (c ErrorClass) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassPermanent:
		return "permanent"
	case ClassFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// StatusError carries an HTTP status code through the retry machinery.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

// TierError records the failure of a single acquisition tier. Tier failures
// never propagate past the fetcher; they only select the next tier.
type TierError struct {
	Tier  string
	URL   string
	Cause error
}

func (e *TierError) Error() string {
	return fmt.Sprintf("tier %s failed for %s: %v", e.Tier, e.URL, e.Cause)
}

func (e *TierError) Unwrap() error { return e.Cause }

// FetchError is the terminal failure for one URL after every tier has been
// attempted. It keeps the last error per tier for diagnostics.
type FetchError struct {
	URL        string
	TierErrors []*TierError
}

func (e *FetchError) Error() string {
	parts := make([]string, 0, len(e.TierErrors))
	for _, te := range e.TierErrors {
		parts = append(parts, te.Error())
	}
	return fmt.Sprintf("all tiers exhausted for %s: %s", e.URL, strings.Join(parts, "; "))
}

// Reasons returns one diagnostic string per failed tier.
func (e *FetchError) Reasons() []string {
	out := make([]string, 0, len(e.TierErrors))
	for _, te := range e.TierErrors {
		out = append(out, fmt.Sprintf("%s: %v", te.Tier, te.Cause))
	}
	return out
}

// Classify maps an error onto the retry taxonomy. Unknown errors are treated
// as transient so a flaky source gets the benefit of the backoff budget.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassPermanent
	}

	// Tier exhaustion is permanent only when the tiers themselves failed to
	// extract. If the shared transport failed transiently (5xx, timeout),
	// the whole fetch is worth retrying.
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		for _, te := range fetchErr.TierErrors {
			var inner *FetchError
			if errors.As(te.Cause, &inner) {
				continue // never recurse into nested fetch errors
			}
			if transportTransient(te.Cause) {
				return ClassTransient
			}
		}
		return ClassPermanent
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode >= 500:
			return ClassTransient
		case statusErr.StatusCode == 429:
			return ClassTransient
		default:
			return ClassPermanent
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTransient
	}
	if errors.Is(err, context.Canceled) {
		return ClassPermanent
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ClassTransient
		}
		return ClassTransient
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"timeout", "connection reset", "connection refused", "browser", "chrome", "temporarily"} {
		if strings.Contains(msg, marker) {
			return ClassTransient
		}
	}

	return ClassTransient
}

// transportTransient reports whether a single tier cause looks like a
// recoverable transport failure. Extraction failures (unparsable markup,
// missing structured data) are not transient: the same page would fail the
// same way again.
func transportTransient(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500 || statusErr.StatusCode == 429
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"timeout", "connection reset", "connection refused", "browser", "chrome", "temporarily"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Backoff computes the exponential retry delay for a given attempt: the base
// delay doubles each attempt and is capped at max.
func Backoff(attempt int, base, max time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		d = max
	}
	return d
}
