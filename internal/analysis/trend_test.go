package analysis

import (
	"encoding/json"
	"testing"

	"github.com/KaramelBytes/tabstat/internal/frame"
	"github.com/KaramelBytes/tabstat/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func series(n int, f func(i int) float64) []frame.Value {
	out := make([]frame.Value, n)
	for i := range out {
		out[i] = frame.Number(f(i))
	}
	return out
}

func TestAnalyzeTrendIncreasing(t *testing.T) {
	res := AnalyzeTrend("x", series(100, func(i int) float64 { return float64(i + 1) }))
	assert.Equal(t, Increasing, res.Trend)
	assert.InDelta(t, 1.0, res.Slope, 1e-9)
	assert.InDelta(t, 1.0, res.Intercept, 1e-9)
	assert.InDelta(t, 1.0, res.RSquared, 1e-9)
	assert.Equal(t, 100, res.N)
	assert.True(t, res.Sufficient)
	require.NotNil(t, res.Seasonality)
	assert.False(t, res.Seasonality.Detected)
}

func TestAnalyzeTrendDecreasing(t *testing.T) {
	res := AnalyzeTrend("x", frame.Floats(50, 40, 31, 20, 12, 1))
	assert.Equal(t, Decreasing, res.Trend)
	assert.Less(t, res.Slope, 0.0)
	assert.Greater(t, res.RSquared, 0.9)
}

func TestAnalyzeTrendStable(t *testing.T) {
	flat := AnalyzeTrend("x", frame.Floats(7, 7, 7, 7))
	assert.Equal(t, Stable, flat.Trend)
	assert.Equal(t, 0.0, flat.Slope)
	assert.Equal(t, 0.0, flat.RSquared)

	// slope 0.5 against a mean near 1000 is flat
	nearFlat := AnalyzeTrend("x", frame.Floats(1000, 1000.5, 1001, 1001.5, 1002))
	assert.Equal(t, Stable, nearFlat.Trend)
	assert.InDelta(t, 0.5, nearFlat.Slope, 1e-9)
}

func TestAnalyzeTrendNegativeMean(t *testing.T) {
	// the flat rule compares against the signed mean, so it never holds here
	down := AnalyzeTrend("x", series(20, func(i int) float64 { return -100 - 0.1*float64(i) }))
	assert.Equal(t, Decreasing, down.Trend)
	assert.InDelta(t, -0.1, down.Slope, 1e-9)
	assert.InDelta(t, 1.0, down.RSquared, 1e-9)

	up := AnalyzeTrend("x", series(20, func(i int) float64 { return -100 + 0.1*float64(i) }))
	assert.Equal(t, Increasing, up.Trend)

	for _, values := range [][]frame.Value{frame.Floats(-5, -5, -5, -5), frame.Floats(0, 0, 0)} {
		res := AnalyzeTrend("x", values)
		assert.Equal(t, Volatile, res.Trend)
		assert.Equal(t, 0.0, res.Slope)
		assert.Equal(t, 0.0, res.RSquared)
		assert.True(t, res.Sufficient)
	}
}

func TestAnalyzeTrendVolatile(t *testing.T) {
	res := AnalyzeTrend("x", frame.Floats(0, 10, 0, 10, 0, 10, 0, 10))
	assert.Equal(t, Volatile, res.Trend)
	assert.InDelta(t, 10.0/21.0, res.Slope, 1e-9)
	assert.InDelta(t, 1.0/21.0, res.RSquared, 1e-9)
	require.NotNil(t, res.Seasonality)
	assert.True(t, res.Seasonality.Detected)
	assert.Equal(t, 2, res.Seasonality.Period)
}

func TestAnalyzeTrendInsufficient(t *testing.T) {
	values := []frame.Value{frame.Number(1), frame.Null(), frame.String("x"), frame.Number(9)}
	res := AnalyzeTrend("x", values)
	assert.Equal(t, Stable, res.Trend)
	assert.False(t, res.Sufficient)
	assert.Equal(t, 2, res.N)
	assert.Equal(t, 0.0, res.Slope)
	assert.Nil(t, res.Seasonality)
}

func TestSeasonalityOnTrendingSeries(t *testing.T) {
	pattern := []float64{0, 1, 0, -1}
	values := series(24, func(i int) float64 { return 10 + 3*pattern[i%4] + 0.5*float64(i) })
	res := AnalyzeTrend("x", values)
	assert.Equal(t, Increasing, res.Trend)
	require.NotNil(t, res.Seasonality)
	assert.True(t, res.Seasonality.Detected)
	assert.Equal(t, 4, res.Seasonality.Period)
	assert.InDelta(t, 0.83, res.Seasonality.Strength, 0.01)

	opt := DefaultTrendOptions()
	opt.MinAutocorrelation = 0.9
	res = AnalyzeTrendWith("x", values, opt)
	assert.False(t, res.Seasonality.Detected)

	opt.Seasonality = false
	res = AnalyzeTrendWith("x", values, opt)
	assert.Nil(t, res.Seasonality)
}

func TestAnalyzeColumnTrend(t *testing.T) {
	_, err := AnalyzeColumnTrend(testutil.SalesFrame(), "nope", DefaultTrendOptions())
	assert.ErrorIs(t, err, ErrMissingColumn)

	res, err := AnalyzeColumnTrend(testutil.SalesFrame(), "units", DefaultTrendOptions())
	require.NoError(t, err)
	assert.Equal(t, 5, res.N)
}

func TestTrendJSON(t *testing.T) {
	res := AnalyzeTrend("x", frame.Floats(0, 10, 0, 10, 0, 10, 0, 10))
	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"trend":"volatile"`)
	assert.Contains(t, string(b), `"period":2`)

	var back TrendAnalysis
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, res.Trend, back.Trend)
	require.NotNil(t, back.Seasonality)
	assert.Equal(t, res.Seasonality.Period, back.Seasonality.Period)
	assert.InDelta(t, res.Seasonality.Strength, back.Seasonality.Strength, 1e-12)
}
