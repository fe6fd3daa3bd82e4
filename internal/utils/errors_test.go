// internal/utils/errors_test.go
package utils

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"server error", &StatusError{StatusCode: 503, URL: "u"}, ClassTransient},
		{"rate limited", &StatusError{StatusCode: 429, URL: "u"}, ClassTransient},
		{"not found", &StatusError{StatusCode: 404, URL: "u"}, ClassPermanent},
		{"gone", &StatusError{StatusCode: 410, URL: "u"}, ClassPermanent},
		{"deadline", context.DeadlineExceeded, ClassTransient},
		{"cancellation", context.Canceled, ClassPermanent},
		{"wrapped status", fmt.Errorf("get: %w", &StatusError{StatusCode: 500, URL: "u"}), ClassTransient},
		{"browser crash", errors.New("chrome process exited unexpectedly"), ClassTransient},
		{"unknown", errors.New("something odd"), ClassTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}

func TestClassifyTierExhaustion(t *testing.T) {
	extraction := &FetchError{
		URL: "u",
		TierErrors: []*TierError{
			{Tier: "jsonld", URL: "u", Cause: errors.New("no usable structured-data block")},
			{Tier: "regex", URL: "u", Cause: errors.New("record below minimum-field policy")},
		},
	}
	if Classify(extraction) != ClassPermanent {
		t.Error("extraction-only exhaustion must be permanent")
	}

	transport := &FetchError{
		URL: "u",
		TierErrors: []*TierError{
			{Tier: "http", URL: "u", Cause: &StatusError{StatusCode: 502, URL: "u"}},
		},
	}
	if Classify(transport) != ClassTransient {
		t.Error("transport failure under exhaustion must stay retryable")
	}
}

func TestFetchErrorReasons(t *testing.T) {
	err := &FetchError{
		URL: "u",
		TierErrors: []*TierError{
			{Tier: "render", URL: "u", Cause: errors.New("browser crashed")},
			{Tier: "http", URL: "u", Cause: &StatusError{StatusCode: 404, URL: "u"}},
		},
	}

	reasons := err.Reasons()
	if len(reasons) != 2 {
		t.Fatalf("reasons = %v, want one per tier", reasons)
	}
	if reasons[0] != "render: browser crashed" {
		t.Errorf("reasons[0] = %q", reasons[0])
	}
}

func TestTierErrorUnwrap(t *testing.T) {
	cause := &StatusError{StatusCode: 500, URL: "u"}
	te := &TierError{Tier: "http", URL: "u", Cause: cause}

	var got *StatusError
	if !errors.As(te, &got) || got.StatusCode != 500 {
		t.Error("TierError must unwrap to its cause")
	}
}

func TestBackoff(t *testing.T) {
	base := 500 * time.Millisecond
	max := 8 * time.Second

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 500 * time.Millisecond},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{10, 8 * time.Second}, // capped
		{-1, 500 * time.Millisecond},
	}

	for _, tt := range tests {
		if got := Backoff(tt.attempt, base, max); got != tt.want {
			t.Errorf("Backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}
