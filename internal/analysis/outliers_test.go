package analysis

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/KaramelBytes/tabstat/internal/frame"
	"github.com/KaramelBytes/tabstat/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectOutliersIQR(t *testing.T) {
	res, err := DetectOutliers("v", frame.Floats(10, 12, 11, 13, 9, 100), IQR, OutlierOptions{})
	require.NoError(t, err)
	require.Len(t, res.Outliers, 1)
	assert.Equal(t, 5, res.Outliers[0].Index)
	assert.Equal(t, 100.0, res.Outliers[0].Value)
	assert.InDelta(t, 6.5, res.LowerBound, 1e-12)
	assert.InDelta(t, 16.5, res.UpperBound, 1e-12)
	assert.InDelta(t, 33.4, res.Outliers[0].Score, 1e-9)
	assert.Equal(t, 1.5, res.Threshold)
	assert.Equal(t, 6, res.Count)
}

func TestOutlierBoundsInvariant(t *testing.T) {
	values := frame.Floats(3, -20, 4, 5, 4.5, 6, 5.5, 4, 40, 5, 3.5, 6.5, -2)
	for _, method := range []OutlierMethod{IQR, ZScore, ModifiedZScore} {
		res, err := DetectOutliers("v", values, method, OutlierOptions{})
		require.NoError(t, err)
		flagged := make(map[int]bool)
		for _, p := range res.Outliers {
			flagged[p.Index] = true
			assert.True(t, p.Value < res.LowerBound || p.Value > res.UpperBound, "%s flagged %v inside bounds", method, p.Value)
		}
		for i, v := range values {
			x, _ := v.Float()
			if !flagged[i] {
				assert.True(t, x >= res.LowerBound && x <= res.UpperBound, "%s missed %v", method, x)
			}
		}
	}
}

func TestDetectOutliersIndicesSkipMissing(t *testing.T) {
	values := []frame.Value{
		frame.Number(10), frame.Null(), frame.Number(12), frame.String("x"),
		frame.Number(11), frame.Number(13), frame.Number(9), frame.Number(100),
	}
	res, err := DetectOutliers("v", values, IQR, OutlierOptions{})
	require.NoError(t, err)
	require.Len(t, res.Outliers, 1)
	assert.Equal(t, 7, res.Outliers[0].Index)
	assert.Equal(t, 6, res.Count)
}

func TestDetectOutliersZScore(t *testing.T) {
	xs := make([]float64, 0, 21)
	for i := 0; i < 20; i++ {
		xs = append(xs, 1)
	}
	xs = append(xs, 50)
	res, err := DetectOutliers("v", frame.Floats(xs...), ZScore, OutlierOptions{})
	require.NoError(t, err)
	require.Len(t, res.Outliers, 1)
	assert.Equal(t, 20, res.Outliers[0].Index)
	assert.Greater(t, res.Outliers[0].Score, 3.0)
	assert.Equal(t, 3.0, res.Threshold)
}

func TestDetectOutliersZScoreConstant(t *testing.T) {
	res, err := DetectOutliers("v", frame.Floats(7, 7, 7, 7, 7), ZScore, OutlierOptions{})
	require.NoError(t, err)
	assert.Empty(t, res.Outliers)
	assert.True(t, res.Degenerate)
	assert.Equal(t, 7.0, res.LowerBound)
	assert.Equal(t, 7.0, res.UpperBound)

	res, err = DetectOutliers("v", frame.Floats(7, 7, 7, 7, 7), ModifiedZScore, OutlierOptions{})
	require.NoError(t, err)
	assert.Empty(t, res.Outliers)
	assert.True(t, res.Degenerate)
}

func TestDetectOutliersConstantInexactValues(t *testing.T) {
	values := frame.Floats(0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1)
	for _, m := range []OutlierMethod{ZScore, ModifiedZScore} {
		res, err := DetectOutliers("v", values, m, OutlierOptions{})
		require.NoError(t, err)
		assert.True(t, res.Degenerate, "method %s", m)
		assert.Empty(t, res.Outliers)
		assert.Equal(t, 0.1, res.LowerBound)
		assert.Equal(t, 0.1, res.UpperBound)
	}
}

func TestDetectOutliersModifiedZScore(t *testing.T) {
	res, err := DetectOutliers("v", frame.Floats(1, 2, 3, 4, 100), "mad", OutlierOptions{})
	require.NoError(t, err)
	assert.Equal(t, ModifiedZScore, res.Method)
	require.Len(t, res.Outliers, 1)
	assert.Equal(t, 4, res.Outliers[0].Index)
	assert.InDelta(t, 0.6745*97, res.Outliers[0].Score, 1e-9)
	assert.InDelta(t, 3-3.5/0.6745, res.LowerBound, 1e-9)
	assert.InDelta(t, 3+3.5/0.6745, res.UpperBound, 1e-9)
}

func TestDetectOutliersZeroIQR(t *testing.T) {
	res, err := DetectOutliers("v", frame.Floats(5, 5, 5, 5, 5, 5, 9), IQR, OutlierOptions{})
	require.NoError(t, err)
	assert.False(t, res.Degenerate)
	assert.Equal(t, 5.0, res.LowerBound)
	assert.Equal(t, 5.0, res.UpperBound)
	require.Len(t, res.Outliers, 1)
	assert.Equal(t, 4.0, res.Outliers[0].Score)
}

func TestDetectOutliersEmptyAndErrors(t *testing.T) {
	res, err := DetectOutliers("v", []frame.Value{frame.Null()}, IQR, OutlierOptions{})
	require.NoError(t, err)
	assert.Empty(t, res.Outliers)
	assert.True(t, math.IsNaN(res.LowerBound))

	_, err = DetectOutliers("v", frame.Floats(1, 2), "grubbs", OutlierOptions{})
	assert.ErrorIs(t, err, ErrUnknownMethod)

	_, err = DetectColumnOutliers(testutil.SalesFrame(), "nope", IQR, OutlierOptions{})
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestDetectOutliersCustomThreshold(t *testing.T) {
	values := frame.Floats(10, 12, 11, 13, 9, 16)
	loose, err := DetectOutliers("v", values, IQR, OutlierOptions{})
	require.NoError(t, err)
	strict, err := DetectOutliers("v", values, IQR, OutlierOptions{Threshold: 0.5})
	require.NoError(t, err)
	assert.Empty(t, loose.Outliers)
	assert.NotEmpty(t, strict.Outliers)
	assert.Equal(t, 0.5, strict.Threshold)
}

func TestOutlierResultJSON(t *testing.T) {
	res, err := DetectOutliers("v", nil, ZScore, OutlierOptions{})
	require.NoError(t, err)
	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"lowerBound":null`)
	assert.Contains(t, string(b), `"outliers":[]`)

	var back OutlierResult
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, math.IsNaN(back.UpperBound))
	assert.Equal(t, ZScore, back.Method)
}
