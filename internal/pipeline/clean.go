// internal/pipeline/clean.go
package pipeline

import (
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/valpere/ChartMiner/internal/config"
	"github.com/valpere/ChartMiner/internal/dataset"
	"github.com/valpere/ChartMiner/internal/scraper"
	"github.com/valpere/ChartMiner/internal/utils"
)

// CleanReport tallies what the cleaning stage changed.
type CleanReport struct {
	DurationsParsed    int            `json:"durations_parsed"`
	DurationsDiscarded int            `json:"durations_discarded"`
	GenresNormalized   int            `json:"genres_normalized"`
	Imputed            map[string]int `json:"imputed"`
}

// Cleaner normalizes records in place. Cleaning is idempotent: running it
// twice over the same dataset changes nothing the second time.
type Cleaner struct {
	cfg    config.CleaningConfig
	logger utils.Logger

	titleCaser cases.Caser
	foldCaser  cases.Caser
}

// NewCleaner builds a cleaner around the configured limits.
func NewCleaner(cfg config.CleaningConfig, logger utils.Logger) *Cleaner {
	if logger == nil {
		logger = utils.NewComponentLogger("clean")
	}
	return &Cleaner{
		cfg:        cfg,
		logger:     logger,
		titleCaser: cases.Title(language.English),
		foldCaser:  cases.Fold(),
	}
}

// Clean normalizes every record and then imputes missing numeric fields with
// per-category medians. Failed records are carried through untouched.
func (c *Cleaner) Clean(records []*dataset.Record) *CleanReport {
	report := &CleanReport{Imputed: make(map[string]int)}

	for _, rec := range usable(records) {
		c.normalizeDuration(rec, report)
		c.normalizeGenres(rec, report)
		c.normalizeRating(rec)
	}

	c.impute(records, report)

	c.logger.Infof("cleaning done: %d durations parsed, %d discarded, %d imputations",
		report.DurationsParsed, report.DurationsDiscarded, sumCounts(report.Imputed))
	return report
}

// normalizeDuration fills DurationMin from the raw string when extraction
// could not, and discards values beyond the plausible runtime ceiling.
func (c *Cleaner) normalizeDuration(rec *dataset.Record, report *CleanReport) {
	if rec.DurationMin == nil && rec.RawDuration != "" {
		if min, ok := scraper.ParseDurationMinutes(rec.RawDuration); ok {
			rec.DurationMin = dataset.IntPtr(min)
			report.DurationsParsed++
		}
	}

	maxDur := c.cfg.MaxDurationMin
	if maxDur <= 0 {
		maxDur = scraper.MaxPlausibleMinutes
	}
	if rec.DurationMin != nil && (*rec.DurationMin <= 0 || *rec.DurationMin > maxDur) {
		c.logger.Debugf("%s: discarding implausible duration %d min", rec.URL, *rec.DurationMin)
		rec.DurationMin = nil
		report.DurationsDiscarded++
	}
}

// normalizeGenres trims, canonicalizes case, and deduplicates genre names
// while keeping first-seen order.
func (c *Cleaner) normalizeGenres(rec *dataset.Record, report *CleanReport) {
	if len(rec.Genres) == 0 {
		return
	}

	seen := make(map[string]struct{}, len(rec.Genres))
	out := make([]string, 0, len(rec.Genres))
	changed := false
	for _, g := range rec.Genres {
		name := c.titleCaser.String(strings.TrimSpace(g))
		if name == "" {
			changed = true
			continue
		}
		key := c.foldCaser.String(name)
		if _, dup := seen[key]; dup {
			changed = true
			continue
		}
		seen[key] = struct{}{}
		if name != g {
			changed = true
		}
		out = append(out, name)
	}

	rec.Genres = out
	if changed {
		report.GenresNormalized++
	}
}

// normalizeRating clamps float noise like 9.200000001 back onto one decimal.
func (c *Cleaner) normalizeRating(rec *dataset.Record) {
	if rec.Rating == nil {
		return
	}
	r := math.Round(*rec.Rating*10) / 10
	if r < 0 || r > 10 {
		rec.Rating = nil
		return
	}
	rec.Rating = dataset.FloatPtr(r)
}

// impute fills configured missing numeric fields with the median of the
// record's own category. Categories with no observed values for a field are
// left alone, so a sparse category never borrows another's distribution.
func (c *Cleaner) impute(records []*dataset.Record, report *CleanReport) {
	byCategory := dataset.GroupByCategory(usable(records))

	for _, field := range c.cfg.ImputeFields {
		access, ok := numericFields[field]
		if !ok {
			c.logger.Warnf("unknown impute field %q, skipping", field)
			continue
		}

		for _, group := range byCategory {
			var present []float64
			for _, rec := range group {
				if v, ok := access.get(rec); ok {
					present = append(present, v)
				}
			}
			median, ok := Median(present)
			if !ok {
				continue
			}

			for _, rec := range group {
				if _, ok := access.get(rec); ok {
					continue
				}
				access.set(rec, median)
				report.Imputed[field]++
			}
		}
	}
}

// fieldAccess reads and writes one nullable numeric field as float64.
type fieldAccess struct {
	get func(*dataset.Record) (float64, bool)
	set func(*dataset.Record, float64)
}

var numericFields = map[string]fieldAccess{
	"rating": {
		get: func(r *dataset.Record) (float64, bool) {
			if r.Rating == nil {
				return 0, false
			}
			return *r.Rating, true
		},
		set: func(r *dataset.Record, v float64) {
			r.Rating = dataset.FloatPtr(math.Round(v*10) / 10)
		},
	},
	"metascore": {
		get: func(r *dataset.Record) (float64, bool) {
			if r.Metascore == nil {
				return 0, false
			}
			return float64(*r.Metascore), true
		},
		set: func(r *dataset.Record, v float64) {
			r.Metascore = dataset.IntPtr(int(math.Round(v)))
		},
	},
	"votes": {
		get: func(r *dataset.Record) (float64, bool) {
			if r.Votes == nil {
				return 0, false
			}
			return float64(*r.Votes), true
		},
		set: func(r *dataset.Record, v float64) {
			r.Votes = dataset.IntPtr(int(math.Round(v)))
		},
	},
	"duration_min": {
		get: func(r *dataset.Record) (float64, bool) {
			if r.DurationMin == nil {
				return 0, false
			}
			return float64(*r.DurationMin), true
		},
		set: func(r *dataset.Record, v float64) {
			r.DurationMin = dataset.IntPtr(int(math.Round(v)))
		},
	},
	"year": {
		get: func(r *dataset.Record) (float64, bool) {
			if r.Year == nil {
				return 0, false
			}
			return float64(*r.Year), true
		},
		set: func(r *dataset.Record, v float64) {
			r.Year = dataset.IntPtr(int(math.Round(v)))
		},
	},
}

// usable drops failed records: they carry no extracted fields to clean and
// must never receive imputed values or flags.
func usable(records []*dataset.Record) []*dataset.Record {
	out := make([]*dataset.Record, 0, len(records))
	for _, rec := range records {
		if rec.Status == dataset.StatusFailed {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func sumCounts(m map[string]int) int {
	total := 0
	for _, n := range m {
		total += n
	}
	return total
}
