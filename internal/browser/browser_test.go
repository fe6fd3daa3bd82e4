// internal/browser/browser_test.go
package browser

import "testing"

func TestDedupeLinks(t *testing.T) {
	in := []string{
		"https://www.imdb.com/title/tt0000001/",
		"https://www.imdb.com/title/tt0000002/",
		"https://www.imdb.com/title/tt0000001/",
		"",
		"https://www.imdb.com/title/tt0000003/",
	}

	out := dedupeLinks(in)
	want := []string{
		"https://www.imdb.com/title/tt0000001/",
		"https://www.imdb.com/title/tt0000002/",
		"https://www.imdb.com/title/tt0000003/",
	}

	if len(out) != len(want) {
		t.Fatalf("dedupeLinks = %v, want %v", out, want)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %q, want %q (first-seen order)", i, out[i], want[i])
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.Headless {
		t.Error("default must be headless")
	}
	if cfg.Timeout <= 0 {
		t.Error("default timeout must be positive")
	}
}
