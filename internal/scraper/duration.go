// internal/scraper/duration.go
package scraper

import (
	"regexp"
	"strconv"
	"strings"
)

// MaxPlausibleMinutes is the upper bound for a single title's runtime.
// Values above it (e.g. a whole-series total) are discarded, not clamped.
const MaxPlausibleMinutes = 600

var (
	isoDurationRe   = regexp.MustCompile(`(?i)pt\s*(?:(\d+)h)?\s*(?:(\d+)m)?\s*(?:(\d+)s)?`)
	minutesOnlyRe   = regexp.MustCompile(`(?i)(\d+)\s*min`)
	hoursMinutesRe  = regexp.MustCompile(`(?i)(\d+)\s*h(?:ours?)?\s*(?:(\d+)\s*m(?:in)?)?`)
	bareNumberRe    = regexp.MustCompile(`^(\d{2,3})$`)
	votesNumberRe   = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*([kmKM]?)`)
	nonDigitVotesRe = regexp.MustCompile(`[^\dkmKM.]`)
	yearRe          = regexp.MustCompile(`\b(18|19|20)\d{2}\b`)
	metascoreRe     = regexp.MustCompile(`\d{1,3}`)
)

// ParseDurationMinutes converts runtime strings to integer minutes. It
// accepts ISO-8601 durations ("PT2H22M"), minute counts ("150 min"), and
// hour/minute pairs ("2h 30m"). Unparsable or implausible input yields
// (0, false); callers treat that as absent, never as zero minutes.
func ParseDurationMinutes(s string) (int, bool) {
	text := strings.ToLower(strings.TrimSpace(s))
	if text == "" {
		return 0, false
	}

	if m := isoDurationRe.FindStringSubmatch(text); m != nil {
		h := atoiDefault(m[1], 0)
		mm := atoiDefault(m[2], 0)
		// Seconds (m[3]) are below minute precision and ignored.
		if h > 0 || mm > 0 {
			return plausible(h*60 + mm)
		}
	}

	if m := minutesOnlyRe.FindStringSubmatch(text); m != nil {
		return plausible(atoiDefault(m[1], 0))
	}

	if m := hoursMinutesRe.FindStringSubmatch(text); m != nil {
		h := atoiDefault(m[1], 0)
		mm := atoiDefault(m[2], 0)
		return plausible(h*60 + mm)
	}

	// A bare 2-3 digit string is accepted only when it is the whole value:
	// "142" is a runtime, "2010" is a year and "PG-13" a certification.
	if m := bareNumberRe.FindStringSubmatch(text); m != nil {
		return plausible(atoiDefault(m[1], 0))
	}

	return 0, false
}

// plausible enforces the runtime upper bound.
func plausible(minutes int) (int, bool) {
	if minutes <= 0 || minutes > MaxPlausibleMinutes {
		return 0, false
	}
	return minutes, true
}

// ParseVotes converts vote-count strings to an integer. It accepts grouped
// digits ("1,234,567") and magnitude suffixes ("2.1M", "856K").
func ParseVotes(s string) (int, bool) {
	text := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	text = nonDigitVotesRe.ReplaceAllString(text, "")
	if text == "" {
		return 0, false
	}

	m := votesNumberRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}

	val, err := strconv.ParseFloat(m[1], 64)
	if err != nil || val < 0 {
		return 0, false
	}

	switch strings.ToLower(m[2]) {
	case "k":
		val *= 1_000
	case "m":
		val *= 1_000_000
	}

	return int(val), true
}

// ParseRating converts a rating string ("9.2", "9.2/10") to a float in the
// 0-10 domain.
func ParseRating(s string) (float64, bool) {
	text := strings.TrimSpace(s)
	if i := strings.Index(text, "/"); i >= 0 {
		text = strings.TrimSpace(text[:i])
	}
	val, err := strconv.ParseFloat(text, 64)
	if err != nil || val < 0 || val > 10 {
		return 0, false
	}
	return val, true
}

// ParseYear extracts a plausible release year.
func ParseYear(s string) (int, bool) {
	m := yearRe.FindString(s)
	if m == "" {
		return 0, false
	}
	y, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return y, true
}

// ParseMetascore extracts a 0-100 metascore.
func ParseMetascore(s string) (int, bool) {
	m := metascoreRe.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.Atoi(m)
	if err != nil || v < 0 || v > 100 {
		return 0, false
	}
	return v, true
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
