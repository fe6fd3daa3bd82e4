// internal/dataset/record.go
package dataset

import (
	"time"
)

// Category labels the kind of catalog entry a record describes.
type Category string

const (
	CategoryMovie Category = "movie"
	CategoryTV    Category = "tv"
)

// Tier identifies which acquisition strategy produced a record.
type Tier string

const (
	TierRender Tier = "render"
	TierHTTP   Tier = "http"
	TierJSONLD Tier = "jsonld"
	TierRegex  Tier = "regex"
	TierNone   Tier = "none"
)

// FetchStatus describes the terminal outcome of fetching one record.
type FetchStatus string

const (
	StatusOK      FetchStatus = "ok"
	StatusPartial FetchStatus = "partial"
	StatusFailed  FetchStatus = "failed"
)

// Record is one scraped catalog entry. The canonical source URL is its
// identity and never changes after creation. Numeric fields are either a
// valid value in their domain range or nil, never a sentinel.
type Record struct {
	URL         string      `json:"url"`
	Title       string      `json:"title"`
	Category    Category    `json:"category"`
	Year        *int        `json:"year"`
	Rating      *float64    `json:"rating"`
	Votes       *int        `json:"votes"`
	Metascore   *int        `json:"metascore"`
	DurationMin *int        `json:"duration_min"`
	RawDuration string      `json:"raw_duration,omitempty"`
	Genres      []string    `json:"genres"`
	Tier        Tier        `json:"tier"`
	Status      FetchStatus `json:"status"`
	Flags       []string    `json:"flags,omitempty"`
	FlagReasons []string    `json:"flag_reasons,omitempty"`
	Errors      []string    `json:"errors,omitempty"`
	FetchedAt   time.Time   `json:"fetched_at"`
}

// NewRecord creates a record for the given canonical URL.
func NewRecord(url string, category Category) *Record {
	return &Record{
		URL:      url,
		Category: category,
		Tier:     TierNone,
		Status:   StatusFailed,
		Genres:   []string{},
	}
}

// NewFailureRecord creates the terminal record for a URL whose fetch could
// not produce any usable data. Per-tier errors are retained for diagnostics.
func NewFailureRecord(url string, category Category, errs []string) *Record {
	r := NewRecord(url, category)
	r.Errors = errs
	r.FetchedAt = time.Now()
	return r
}

// Sufficient reports whether the record meets the minimum-field policy:
// a title plus at least one of rating or year.
func (r *Record) Sufficient() bool {
	if r == nil || r.Title == "" {
		return false
	}
	return r.Rating != nil || r.Year != nil
}

// MarkStatus derives the fetch status from field completeness. A record with
// every numeric field present is ok; one meeting only the minimum policy is
// partial.
func (r *Record) MarkStatus() {
	if !r.Sufficient() {
		r.Status = StatusFailed
		return
	}
	if r.Rating != nil && r.Year != nil && r.Votes != nil &&
		r.Metascore != nil && r.DurationMin != nil && len(r.Genres) > 0 {
		r.Status = StatusOK
		return
	}
	r.Status = StatusPartial
}

// HasFlag reports whether the named anomaly flag is attached.
func (r *Record) HasFlag(name string) bool {
	for _, f := range r.Flags {
		if f == name {
			return true
		}
	}
	return false
}

// AddFlag attaches a named anomaly flag with a human-readable reason.
// Adding the same flag twice is a no-op, which keeps detection idempotent.
func (r *Record) AddFlag(name, reason string) {
	if r.HasFlag(name) {
		return
	}
	r.Flags = append(r.Flags, name)
	r.FlagReasons = append(r.FlagReasons, reason)
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := *r
	c.Year = clonePtr(r.Year)
	c.Votes = clonePtr(r.Votes)
	c.Metascore = clonePtr(r.Metascore)
	c.DurationMin = clonePtr(r.DurationMin)
	if r.Rating != nil {
		v := *r.Rating
		c.Rating = &v
	}
	c.Genres = append([]string(nil), r.Genres...)
	c.Flags = append([]string(nil), r.Flags...)
	c.FlagReasons = append([]string(nil), r.FlagReasons...)
	c.Errors = append([]string(nil), r.Errors...)
	return &c
}

func clonePtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// IntPtr returns a pointer to v. Convenience for building records.
func IntPtr(v int) *int { return &v }

// FloatPtr returns a pointer to v.
func FloatPtr(v float64) *float64 { return &v }
