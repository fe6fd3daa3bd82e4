// Package pipeline cleans fetched records and flags statistical anomalies.
package pipeline

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
)

// Fences holds the quartile-based bounds for one numeric field.
type Fences struct {
	Q1    float64 `json:"q1"`
	Q3    float64 `json:"q3"`
	IQR   float64 `json:"iqr"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// IQRFences computes quartile fences with the given multiplier. Quartiles
// use linear interpolation between order statistics, matching how the
// upstream analysis defined its cutoffs, rather than Tukey hinges. It
// returns ok=false when fewer than four samples are available, since
// quartiles are not meaningful below that.
func IQRFences(values []float64, multiplier float64) (Fences, bool) {
	if len(values) < 4 {
		return Fences{}, false
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	q1 := interpolatedQuantile(sorted, 0.25)
	q3 := interpolatedQuantile(sorted, 0.75)

	iqr := q3 - q1
	return Fences{
		Q1:    q1,
		Q3:    q3,
		IQR:   iqr,
		Lower: q1 - multiplier*iqr,
		Upper: q3 + multiplier*iqr,
	}, true
}

// interpolatedQuantile evaluates the q-th quantile of sorted data by linear
// interpolation: position h = (n-1)q, value = x[floor(h)] + frac(h) * (x
// [floor(h)+1] - x[floor(h)]).
func interpolatedQuantile(sorted []float64, q float64) float64 {
	h := float64(len(sorted)-1) * q
	lo := int(math.Floor(h))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// Median returns the median, with ok=false on an empty slice.
func Median(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	m, err := stats.Median(values)
	if err != nil {
		return 0, false
	}
	return m, true
}

// Regression is a fitted least-squares line y = Intercept + Slope*x with the
// standard deviation of its residuals.
type Regression struct {
	Slope       float64 `json:"slope"`
	Intercept   float64 `json:"intercept"`
	ResidualStd float64 `json:"residual_std"`
	N           int     `json:"n"`
}

// FitLine fits an ordinary least squares line through (x[i], y[i]). It
// returns ok=false when there are fewer than three points or x has no
// variance, both of which make the residual test meaningless.
func FitLine(x, y []float64) (Regression, bool) {
	if len(x) != len(y) || len(x) < 3 {
		return Regression{}, false
	}

	series := make(stats.Series, len(x))
	var minX, maxX float64 = x[0], x[0]
	for i := range x {
		series[i] = stats.Coordinate{X: x[i], Y: y[i]}
		minX = math.Min(minX, x[i])
		maxX = math.Max(maxX, x[i])
	}
	if minX == maxX {
		return Regression{}, false
	}

	fitted, err := stats.LinearRegression(series)
	if err != nil {
		return Regression{}, false
	}

	// Recover the line from two fitted points with distinct x.
	var i, j int
	for j = 1; j < len(x) && x[j] == x[i]; j++ {
	}
	slope := (fitted[j].Y - fitted[i].Y) / (x[j] - x[i])
	intercept := fitted[i].Y - slope*x[i]

	var ssRes float64
	for i := range x {
		r := y[i] - fitted[i].Y
		ssRes += r * r
	}

	return Regression{
		Slope:       slope,
		Intercept:   intercept,
		ResidualStd: math.Sqrt(ssRes / float64(len(x))),
		N:           len(x),
	}, true
}

// Residual returns the signed distance of (x, y) from the fitted line.
func (r Regression) Residual(x, y float64) float64 {
	return y - (r.Intercept + r.Slope*x)
}
