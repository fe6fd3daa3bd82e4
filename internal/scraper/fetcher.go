// internal/scraper/fetcher.go
package scraper

import (
	"context"

	"github.com/valpere/ChartMiner/internal/dataset"
	"github.com/valpere/ChartMiner/internal/utils"
)

// Fetcher walks an ordered tier chain for one URL. The first tier whose
// record meets the minimum-field policy wins; tier failures never propagate,
// they only select the next tier. When every tier fails, Fetch returns a
// FetchError carrying the last error per tier.
type Fetcher struct {
	tiers  []Tier
	logger utils.Logger
}

// NewFetcher builds a fetcher over the given chain. The chain order is the
// fallback order.
func NewFetcher(tiers []Tier, logger utils.Logger) *Fetcher {
	if logger == nil {
		logger = utils.NewComponentLogger("fetcher")
	}
	return &Fetcher{tiers: tiers, logger: logger}
}

// NewTierChain assembles the standard chain. A nil render tier (fast mode)
// omits browser rendering; the remaining tiers share one paced GET per URL
// through the page cache.
func NewTierChain(client *HTTPClient, render Tier) []Tier {
	pages := newPageCache(client)
	chain := make([]Tier, 0, 4)
	if render != nil {
		chain = append(chain, render)
	}
	chain = append(chain, NewHTTPTier(pages), NewJSONLDTier(pages), NewRegexTier(pages))
	return chain
}

// Fetch resolves one URL to a record or a terminal FetchError.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*dataset.Record, error) {
	var tierErrs []*utils.TierError
	var best *dataset.Record

	for _, tier := range f.tiers {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		rec, err := tier.Attempt(ctx, url)
		if err != nil {
			f.logger.Debugf("tier %s failed for %s: %v", tier.Name(), url, err)
			tierErrs = append(tierErrs, &utils.TierError{
				Tier:  string(tier.Name()),
				URL:   url,
				Cause: err,
			})
			continue
		}

		if rec.Sufficient() {
			rec.MarkStatus()
			return rec, nil
		}

		// Insufficient output counts as a tier failure, but remember the
		// fullest partial in case a later tier can top it up.
		tierErrs = append(tierErrs, &utils.TierError{
			Tier:  string(tier.Name()),
			URL:   url,
			Cause: errInsufficient,
		})
		if best == nil {
			best = rec
		} else {
			mergeRecords(best, rec)
			if best.Sufficient() {
				best.MarkStatus()
				return best, nil
			}
		}
	}

	return nil, &utils.FetchError{URL: url, TierErrors: tierErrs}
}

// errInsufficient marks a tier that returned a record below the minimum
// field policy.
var errInsufficient = insufficientError{}

type insufficientError struct{}

func (insufficientError) Error() string {
	return "record below minimum-field policy (title plus rating or year)"
}

// mergeRecords fills absent fields of dst from src without overwriting
// anything already present. Tier attribution stays with dst, the earlier
// (higher-priority) tier.
func mergeRecords(dst, src *dataset.Record) {
	if dst.Title == "" {
		dst.Title = src.Title
	}
	if dst.Year == nil {
		dst.Year = src.Year
	}
	if dst.Rating == nil {
		dst.Rating = src.Rating
	}
	if dst.Votes == nil {
		dst.Votes = src.Votes
	}
	if dst.Metascore == nil {
		dst.Metascore = src.Metascore
	}
	if dst.DurationMin == nil {
		dst.DurationMin = src.DurationMin
		dst.RawDuration = src.RawDuration
	}
	if len(dst.Genres) == 0 {
		dst.Genres = src.Genres
	}
}
