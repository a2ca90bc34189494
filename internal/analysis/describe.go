package analysis

import (
	"context"
	"encoding/json"
	"math"

	"github.com/KaramelBytes/tabstat/internal/frame"
)

// DescriptiveStats summarizes the numeric content of one column.
type DescriptiveStats struct {
	Column string
	// Count is the number of finite numeric observations.
	Count  int
	Mean   float64
	Median float64
	// Std and Variance are population figures (divide by n).
	Std      float64
	Variance float64
	Min      float64
	Max      float64
	Range    float64
	Sum      float64
	Q1       float64
	Q3       float64
	IQR      float64
	// CV is Std/|Mean|; NaN when the mean is zero.
	CV       float64
	Skewness Estimate
	Kurtosis Estimate
	// NullCount counts every cell that did not yield a number; InvalidCount
	// is the non-null part of it (text, booleans, dates, NaN, Inf).
	NullCount    int
	InvalidCount int
	NullPercent  float64
}

// Describe computes descriptive statistics over the finite numbers of values.
// An empty or all-invalid column yields Count 0 and NaN figures.
func Describe(column string, values []frame.Value) DescriptiveStats {
	vec := frame.Extract(values)
	s := DescriptiveStats{
		Column:       column,
		Count:        vec.Len(),
		NullCount:    vec.Missing(),
		InvalidCount: vec.Invalid,
	}
	if vec.Total > 0 {
		s.NullPercent = float64(s.NullCount) * 100 / float64(vec.Total)
	}
	if s.Count == 0 {
		nan := math.NaN()
		s.Mean, s.Median, s.Std, s.Variance = nan, nan, nan, nan
		s.Min, s.Max, s.Range, s.Sum = nan, nan, nan, nan
		s.Q1, s.Q3, s.IQR, s.CV = nan, nan, nan, nan
		s.Skewness, s.Kurtosis = undefined(nan), undefined(nan)
		return s
	}

	xs := vec.Values
	sorted := sortedCopy(xs)
	s.Sum = reduce(OpSum, xs)
	s.Mean, s.Std = meanStd(xs)
	s.Variance = s.Std * s.Std
	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	s.Range = s.Max - s.Min
	s.Median = quantile(sorted, 0.5)
	s.Q1 = quantile(sorted, 0.25)
	s.Q3 = quantile(sorted, 0.75)
	s.IQR = s.Q3 - s.Q1
	s.CV = math.NaN()
	if s.Mean != 0 {
		s.CV = s.Std / math.Abs(s.Mean)
	}
	s.Skewness = skewness(xs, s.Mean, s.Std)
	s.Kurtosis = kurtosis(xs, s.Mean, s.Std)
	return s
}

// skewness is the adjusted Fisher-Pearson coefficient
// n/((n-1)(n-2)) * Σ((x-mean)/std)^3. Needs n >= 3 and std > 0.
func skewness(xs []float64, mean, std float64) Estimate {
	n := float64(len(xs))
	if len(xs) < 3 || std == 0 {
		return undefined(0)
	}
	var sum float64
	for _, x := range xs {
		z := (x - mean) / std
		sum += z * z * z
	}
	return defined(n / ((n - 1) * (n - 2)) * sum)
}

// kurtosis is the bias-corrected excess kurtosis. Needs n >= 4 and std > 0.
func kurtosis(xs []float64, mean, std float64) Estimate {
	n := float64(len(xs))
	if len(xs) < 4 || std == 0 {
		return undefined(0)
	}
	var sum float64
	for _, x := range xs {
		z := (x - mean) / std
		z2 := z * z
		sum += z2 * z2
	}
	k := n * (n + 1) / ((n - 1) * (n - 2) * (n - 3)) * sum
	correction := 3 * (n - 1) * (n - 1) / ((n - 2) * (n - 3))
	return defined(k - correction)
}

// DescribeColumn describes a named column; the column must exist.
func DescribeColumn(df *frame.DataFrame, column string) (DescriptiveStats, error) {
	col, err := lookupColumn(df, column)
	if err != nil {
		return DescriptiveStats{}, err
	}
	return Describe(column, col), nil
}

// DescribeAll describes every numeric column, in column order. Columns are
// processed concurrently; an individual column never fails the batch, only
// cancellation of ctx does.
func DescribeAll(ctx context.Context, df *frame.DataFrame, parallelism int) ([]DescriptiveStats, error) {
	cols := df.NumericColumns()
	out := make([]DescriptiveStats, len(cols))
	err := forEach(ctx, parallelism, len(cols), func(i int) {
		col, _ := df.Column(cols[i])
		out[i] = Describe(cols[i], col)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type describeJSON struct {
	Column       string    `json:"column" yaml:"column"`
	Count        int       `json:"count" yaml:"count"`
	Mean         jsonFloat `json:"mean" yaml:"mean"`
	Median       jsonFloat `json:"median" yaml:"median"`
	Std          jsonFloat `json:"std" yaml:"std"`
	Variance     jsonFloat `json:"variance" yaml:"variance"`
	Min          jsonFloat `json:"min" yaml:"min"`
	Max          jsonFloat `json:"max" yaml:"max"`
	Range        jsonFloat `json:"range" yaml:"range"`
	Sum          jsonFloat `json:"sum" yaml:"sum"`
	Q1           jsonFloat `json:"q1" yaml:"q1"`
	Q3           jsonFloat `json:"q3" yaml:"q3"`
	IQR          jsonFloat `json:"iqr" yaml:"iqr"`
	CV           jsonFloat `json:"cv" yaml:"cv"`
	Skewness     Estimate  `json:"skewness" yaml:"skewness"`
	Kurtosis     Estimate  `json:"kurtosis" yaml:"kurtosis"`
	NullCount    int       `json:"nullCount" yaml:"nullCount"`
	InvalidCount int       `json:"invalidCount" yaml:"invalidCount"`
	NullPercent  jsonFloat `json:"nullPercent" yaml:"nullPercent"`
}

func (s DescriptiveStats) wire() describeJSON {
	return describeJSON{
		Column: s.Column, Count: s.Count,
		Mean: jsonFloat(s.Mean), Median: jsonFloat(s.Median),
		Std: jsonFloat(s.Std), Variance: jsonFloat(s.Variance),
		Min: jsonFloat(s.Min), Max: jsonFloat(s.Max), Range: jsonFloat(s.Range), Sum: jsonFloat(s.Sum),
		Q1: jsonFloat(s.Q1), Q3: jsonFloat(s.Q3), IQR: jsonFloat(s.IQR), CV: jsonFloat(s.CV),
		Skewness: s.Skewness, Kurtosis: s.Kurtosis,
		NullCount: s.NullCount, InvalidCount: s.InvalidCount, NullPercent: jsonFloat(s.NullPercent),
	}
}

func (s DescriptiveStats) MarshalJSON() ([]byte, error) { return json.Marshal(s.wire()) }

// MarshalYAML uses the same field names and null sentinel as MarshalJSON.
func (s DescriptiveStats) MarshalYAML() (any, error) { return s.wire(), nil }

func (s *DescriptiveStats) UnmarshalJSON(b []byte) error {
	var w describeJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*s = DescriptiveStats{
		Column: w.Column, Count: w.Count,
		Mean: float64(w.Mean), Median: float64(w.Median),
		Std: float64(w.Std), Variance: float64(w.Variance),
		Min: float64(w.Min), Max: float64(w.Max), Range: float64(w.Range), Sum: float64(w.Sum),
		Q1: float64(w.Q1), Q3: float64(w.Q3), IQR: float64(w.IQR), CV: float64(w.CV),
		Skewness: w.Skewness, Kurtosis: w.Kurtosis,
		NullCount: w.NullCount, InvalidCount: w.InvalidCount, NullPercent: float64(w.NullPercent),
	}
	return nil
}
