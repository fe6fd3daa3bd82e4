// internal/pipeline/anomaly.go
package pipeline

import (
	"fmt"
	"math"
	"sort"

	"github.com/valpere/ChartMiner/internal/config"
	"github.com/valpere/ChartMiner/internal/dataset"
	"github.com/valpere/ChartMiner/internal/monitoring"
	"github.com/valpere/ChartMiner/internal/utils"
)

// Anomaly flag names. Each flag carries a reason string explaining the
// specific values that triggered it.
const (
	FlagRatingIQR      = "rating-iqr-outlier"
	FlagMetascoreIQR   = "metascore-iqr-outlier"
	FlagVotesIQR       = "votes-iqr-outlier"
	FlagDurationIQR    = "duration-iqr-outlier"
	FlagResidual       = "regression-residual-outlier"
	FlagHighRatingMeta = "high-rating-low-metascore"
	FlagLowVotesRating = "low-votes-high-rating"
)

// iqrFields maps flag names to the fields they fence.
var iqrFields = []struct {
	flag  string
	field string
}{
	{FlagRatingIQR, "rating"},
	{FlagMetascoreIQR, "metascore"},
	{FlagVotesIQR, "votes"},
	{FlagDurationIQR, "duration_min"},
}

// GroupStatistics describes the fitted model for one category, kept in the
// final report so flags can be audited against the numbers that produced
// them.
type GroupStatistics struct {
	Category   dataset.Category   `json:"category"`
	Size       int                `json:"size"`
	Fences     map[string]Fences  `json:"fences,omitempty"`
	Medians    map[string]float64 `json:"medians,omitempty"`
	Regression *Regression        `json:"regression,omitempty"`
	Gaps       []string           `json:"gaps,omitempty"`
}

// AnomalyReport is the detection stage's output: per-category statistics
// plus a tally of every flag applied.
type AnomalyReport struct {
	Groups  []GroupStatistics `json:"groups"`
	Flagged map[string]int    `json:"flagged"`
}

// Detector applies per-category IQR fences, a rating~log(votes+1) residual
// test, and composite heuristics. Detection only ever adds flags; record
// values are never modified, so running it after Clean twice is a no-op.
type Detector struct {
	cfg     config.AnomalyConfig
	metrics *monitoring.Metrics
	logger  utils.Logger
}

// NewDetector builds a detector with the configured thresholds.
func NewDetector(cfg config.AnomalyConfig, metrics *monitoring.Metrics, logger utils.Logger) *Detector {
	if logger == nil {
		logger = utils.NewComponentLogger("anomaly")
	}
	return &Detector{cfg: cfg, metrics: metrics, logger: logger}
}

// Detect flags anomalies in place and returns the audit report. Categories
// smaller than the configured minimum are skipped for the statistical tests
// and recorded as coverage gaps; the composite heuristics still run because
// they do not depend on group size.
func (d *Detector) Detect(records []*dataset.Record) *AnomalyReport {
	report := &AnomalyReport{Flagged: make(map[string]int)}

	byCategory := dataset.GroupByCategory(usable(records))

	categories := make([]dataset.Category, 0, len(byCategory))
	for cat := range byCategory {
		categories = append(categories, cat)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })

	for _, cat := range categories {
		group := byCategory[cat]
		gs := GroupStatistics{
			Category: cat,
			Size:     len(group),
			Fences:   make(map[string]Fences),
			Medians:  make(map[string]float64),
		}

		if len(group) < d.cfg.MinGroupSize {
			gs.Gaps = append(gs.Gaps, fmt.Sprintf("group too small for statistical tests (%d < %d)", len(group), d.cfg.MinGroupSize))
			d.logger.Warnf("category %s: %s", cat, gs.Gaps[0])
		} else {
			d.applyIQR(group, &gs, report)
			d.applyResidual(group, &gs, report)
		}

		d.applyHeuristics(group, &gs, report)
		report.Groups = append(report.Groups, gs)
	}

	d.logger.Infof("anomaly detection done: %d flags across %d categories", sumCounts(report.Flagged), len(report.Groups))
	return report
}

// applyIQR fences each numeric field within the group.
func (d *Detector) applyIQR(group []*dataset.Record, gs *GroupStatistics, report *AnomalyReport) {
	for _, fd := range iqrFields {
		access := numericFields[fd.field]

		var values []float64
		for _, rec := range group {
			if v, ok := access.get(rec); ok {
				values = append(values, v)
			}
		}

		fences, ok := IQRFences(values, d.cfg.IQRMultiplier)
		if !ok {
			gs.Gaps = append(gs.Gaps, fmt.Sprintf("%s: too few values for IQR fences (%d)", fd.field, len(values)))
			continue
		}
		gs.Fences[fd.field] = fences

		for _, rec := range group {
			v, ok := access.get(rec)
			if !ok {
				continue
			}
			if v < fences.Lower || v > fences.Upper {
				d.flag(rec, fd.flag, fmt.Sprintf("%s %.2f outside [%.2f, %.2f]", fd.field, v, fences.Lower, fences.Upper), report)
			}
		}
	}
}

// applyResidual fits rating against log(votes+1) within the group and flags
// records whose residual exceeds the configured multiple of the residual
// standard deviation.
func (d *Detector) applyResidual(group []*dataset.Record, gs *GroupStatistics, report *AnomalyReport) {
	var complete []*dataset.Record
	var x, y []float64
	for _, rec := range group {
		if rec.Rating == nil || rec.Votes == nil {
			continue
		}
		complete = append(complete, rec)
		x = append(x, math.Log(float64(*rec.Votes)+1))
		y = append(y, *rec.Rating)
	}

	if len(complete) < d.cfg.MinGroupSize {
		gs.Gaps = append(gs.Gaps, fmt.Sprintf("regression: too few complete rating/votes pairs (%d)", len(complete)))
		return
	}

	line, ok := FitLine(x, y)
	if !ok || line.ResidualStd == 0 {
		gs.Gaps = append(gs.Gaps, "regression: degenerate fit")
		return
	}
	gs.Regression = &line

	threshold := d.cfg.ResidualMultiplier * line.ResidualStd
	for i, rec := range complete {
		res := line.Residual(x[i], y[i])
		if math.Abs(res) > threshold {
			d.flag(rec, FlagResidual,
				fmt.Sprintf("rating %.1f deviates %.2f from votes trend (threshold %.2f)", y[i], res, threshold), report)
		}
	}
}

// applyHeuristics runs the composite rules that encode domain knowledge
// rather than distribution shape.
func (d *Detector) applyHeuristics(group []*dataset.Record, gs *GroupStatistics, report *AnomalyReport) {
	var metascores []float64
	for _, rec := range group {
		if rec.Metascore != nil {
			metascores = append(metascores, float64(*rec.Metascore))
		}
	}
	metaMedian, haveMeta := Median(metascores)
	if haveMeta {
		gs.Medians["metascore"] = metaMedian
	}

	for _, rec := range group {
		if rec.Rating == nil || *rec.Rating < d.cfg.HighRating {
			continue
		}

		if rec.Votes != nil && *rec.Votes < d.cfg.LowVotes {
			d.flag(rec, FlagLowVotesRating,
				fmt.Sprintf("rating %.1f on only %d votes", *rec.Rating, *rec.Votes), report)
		}

		if haveMeta && rec.Metascore != nil && float64(*rec.Metascore) < metaMedian-float64(d.cfg.MetascoreGap) {
			d.flag(rec, FlagHighRatingMeta,
				fmt.Sprintf("rating %.1f but metascore %d is more than %.0f below the category median %.0f",
					*rec.Rating, *rec.Metascore, d.cfg.MetascoreGap, metaMedian), report)
		}
	}
}

func (d *Detector) flag(rec *dataset.Record, name, reason string, report *AnomalyReport) {
	if rec.HasFlag(name) {
		return
	}
	rec.AddFlag(name, reason)
	report.Flagged[name]++
	d.metrics.RecordFlagged(name)
	d.logger.Debugf("%s: flagged %s (%s)", rec.URL, name, reason)
}
