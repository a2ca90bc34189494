package analysis

import (
	"encoding/json"
	"math"

	"github.com/KaramelBytes/tabstat/internal/frame"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Trend classifies the direction of a series.
type Trend string

const (
	Increasing Trend = "increasing"
	Decreasing Trend = "decreasing"
	Stable     Trend = "stable"
	Volatile   Trend = "volatile"
)

const (
	minTrendPoints = 3
	// flatSlopeRatio: |slope| below this fraction of the mean counts as flat.
	// The mean is signed, so a series with a mean <= 0 is never flat.
	flatSlopeRatio = 0.01
	// minTrendFit: a fit with R² below this is volatile whatever the slope.
	minTrendFit = 0.3
	// minSeasonalPoints is the shortest series searched for a period.
	minSeasonalPoints = 8
	minPeriod         = 2
)

// Seasonality reports a repeating period found in the detrended series.
type Seasonality struct {
	Detected bool
	Period   int
	// Strength is the autocorrelation at Period, clamped to [0, 1].
	Strength float64
}

// TrendAnalysis is the linear-trend classification of a column.
type TrendAnalysis struct {
	Column    string
	Trend     Trend
	Slope     float64
	Intercept float64
	RSquared  float64
	// N is the number of valid points; Sufficient is false below three,
	// in which case the trend is stable with zero slope and R².
	N           int
	Sufficient  bool
	Seasonality *Seasonality
}

// TrendOptions tunes the optional seasonality search.
type TrendOptions struct {
	Seasonality bool
	// MinAutocorrelation is the autocorrelation a lag needs to count as a period.
	MinAutocorrelation float64
	// MaxPeriod caps the lags searched; 0 means n/2.
	MaxPeriod int
}

func DefaultTrendOptions() TrendOptions {
	return TrendOptions{Seasonality: true, MinAutocorrelation: 0.5}
}

// AnalyzeTrend fits value against 0-based position with default options.
func AnalyzeTrend(column string, values []frame.Value) TrendAnalysis {
	return AnalyzeTrendWith(column, values, DefaultTrendOptions())
}

// AnalyzeTrendWith fits value = intercept + slope*i by least squares over
// the valid values, in order, and classifies the result:
//  1. fewer than three points: stable
//  2. |slope| < 0.01*mean: stable
//  3. R² < 0.3: volatile
//  4. otherwise increasing or decreasing by the sign of the slope
func AnalyzeTrendWith(column string, values []frame.Value, opt TrendOptions) TrendAnalysis {
	ys := frame.Extract(values).Values
	res := TrendAnalysis{Column: column, Trend: Stable, N: len(ys)}
	if len(ys) < minTrendPoints {
		return res
	}
	res.Sufficient = true

	xs := make([]float64, len(ys))
	floats.Span(xs, 0, float64(len(ys)-1))
	var alpha, beta, r2 float64
	if constant(ys) {
		// a constant series has zero slope and no explained variance
		alpha = ys[0]
	} else {
		alpha, beta = stat.LinearRegression(xs, ys, nil, false)
		r2 = stat.RSquared(xs, ys, nil, alpha, beta)
		if math.IsNaN(r2) {
			r2 = 0
		}
	}
	res.Intercept, res.Slope, res.RSquared = alpha, beta, math.Max(0, math.Min(1, r2))

	mean := stat.Mean(ys, nil)
	switch {
	case math.Abs(beta) < flatSlopeRatio*mean:
		res.Trend = Stable
	case res.RSquared < minTrendFit:
		res.Trend = Volatile
	case beta > 0:
		res.Trend = Increasing
	default:
		res.Trend = Decreasing
	}

	if opt.Seasonality {
		res.Seasonality = detectSeasonality(ys, alpha, beta, res.RSquared, opt)
	}
	return res
}

// detectSeasonality looks for the lag with the highest autocorrelation in
// the residuals of the fitted line.
func detectSeasonality(ys []float64, alpha, beta, r2 float64, opt TrendOptions) *Seasonality {
	n := len(ys)
	// an exact line leaves only rounding noise in the residuals
	if n < minSeasonalPoints || 1-r2 < 1e-9 {
		return &Seasonality{}
	}
	resid := make([]float64, n)
	for i, y := range ys {
		resid[i] = y - (alpha + beta*float64(i))
	}
	maxLag := n / 2
	if opt.MaxPeriod > 0 && opt.MaxPeriod < maxLag {
		maxLag = opt.MaxPeriod
	}
	acf := autocorrelation(resid, maxLag)
	if len(acf) <= minPeriod {
		return &Seasonality{}
	}
	period := minPeriod + floats.MaxIdx(acf[minPeriod:])
	best := acf[period]
	if best < opt.MinAutocorrelation {
		return &Seasonality{}
	}
	return &Seasonality{Detected: true, Period: period, Strength: math.Max(0, math.Min(1, best))}
}

// autocorrelation returns the sample ACF for lags 0..maxLag, or nil for a
// constant series.
func autocorrelation(xs []float64, maxLag int) []float64 {
	n := len(xs)
	if maxLag >= n {
		maxLag = n - 1
	}
	if maxLag < 0 {
		return nil
	}
	mean := stat.Mean(xs, nil)
	var variance float64
	for _, v := range xs {
		d := v - mean
		variance += d * d
	}
	if variance == 0 {
		return nil
	}
	acf := make([]float64, maxLag+1)
	for k := 0; k <= maxLag; k++ {
		var sum float64
		for i := k; i < n; i++ {
			sum += (xs[i] - mean) * (xs[i-k] - mean)
		}
		acf[k] = sum / variance
	}
	return acf
}

// AnalyzeColumnTrend runs AnalyzeTrendWith on a named column; the column must exist.
func AnalyzeColumnTrend(df *frame.DataFrame, column string, opt TrendOptions) (TrendAnalysis, error) {
	col, err := lookupColumn(df, column)
	if err != nil {
		return TrendAnalysis{}, err
	}
	return AnalyzeTrendWith(column, col, opt), nil
}

type seasonalityJSON struct {
	Detected bool       `json:"detected" yaml:"detected"`
	Period   int        `json:"period,omitempty" yaml:"period,omitempty"`
	Strength *jsonFloat `json:"strength,omitempty" yaml:"strength,omitempty"`
}

type trendJSON struct {
	Column      string           `json:"column" yaml:"column"`
	Trend       Trend            `json:"trend" yaml:"trend"`
	Slope       jsonFloat        `json:"slope" yaml:"slope"`
	Intercept   jsonFloat        `json:"intercept" yaml:"intercept"`
	RSquared    jsonFloat        `json:"rSquared" yaml:"rSquared"`
	N           int              `json:"n" yaml:"n"`
	Sufficient  bool             `json:"sufficient" yaml:"sufficient"`
	Seasonality *seasonalityJSON `json:"seasonality,omitempty" yaml:"seasonality,omitempty"`
}

func (t TrendAnalysis) wire() trendJSON {
	w := trendJSON{
		Column: t.Column, Trend: t.Trend,
		Slope: jsonFloat(t.Slope), Intercept: jsonFloat(t.Intercept), RSquared: jsonFloat(t.RSquared),
		N: t.N, Sufficient: t.Sufficient,
	}
	if s := t.Seasonality; s != nil {
		w.Seasonality = &seasonalityJSON{Detected: s.Detected}
		if s.Detected {
			strength := jsonFloat(s.Strength)
			w.Seasonality.Period, w.Seasonality.Strength = s.Period, &strength
		}
	}
	return w
}

func (t TrendAnalysis) MarshalJSON() ([]byte, error) { return json.Marshal(t.wire()) }

func (t TrendAnalysis) MarshalYAML() (any, error) { return t.wire(), nil }

func (t *TrendAnalysis) UnmarshalJSON(b []byte) error {
	var w trendJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*t = TrendAnalysis{
		Column: w.Column, Trend: w.Trend,
		Slope: float64(w.Slope), Intercept: float64(w.Intercept), RSquared: float64(w.RSquared),
		N: w.N, Sufficient: w.Sufficient,
	}
	if s := w.Seasonality; s != nil {
		t.Seasonality = &Seasonality{Detected: s.Detected, Period: s.Period}
		if s.Strength != nil {
			t.Seasonality.Strength = float64(*s.Strength)
		}
	}
	return nil
}
