package analysis

import (
	"context"
	"encoding/json"
	"math"
	"testing"

	"github.com/KaramelBytes/tabstat/internal/frame"
	"github.com/KaramelBytes/tabstat/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrelationPerfectLinear(t *testing.T) {
	x := frame.Floats(1, 2, 3, 4, 5)
	y := frame.Floats(2, 4, 6, 8, 10)
	assert.InDelta(t, 1.0, Correlation(x, y, Pearson), 1e-12)
	assert.InDelta(t, 1.0, Correlation(x, y, Spearman), 1e-12)
	assert.InDelta(t, 1.0, Correlation(x, y, Kendall), 1e-12)

	neg := frame.Floats(10, 8, 6, 4, 2)
	assert.InDelta(t, -1.0, Correlation(x, neg, Pearson), 1e-12)
}

func TestCorrelationSymmetric(t *testing.T) {
	x := frame.Floats(1, 3, 2, 8, 5, 7, 4)
	y := frame.Floats(2, 1, 4, 9, 3, 6, 5)
	for _, m := range []Method{Pearson, Spearman, Kendall} {
		assert.InDelta(t, Correlation(x, y, m), Correlation(y, x, m), 1e-12, m)
	}
}

func TestSpearmanMonotoneAndTies(t *testing.T) {
	x := frame.Floats(1, 2, 3, 4, 5)
	cubes := frame.Floats(1, 8, 27, 64, 125)
	assert.InDelta(t, 1.0, Correlation(x, cubes, Spearman), 1e-12)
	assert.Less(t, Correlation(x, cubes, Pearson), 1.0)

	tied := frame.Floats(1, 2, 2, 3)
	assert.InDelta(t, 4.5/math.Sqrt(22.5), Correlation(tied, frame.Floats(1, 2, 3, 4), Spearman), 1e-12)
	assert.Equal(t, []float64{1, 2.5, 2.5, 4}, ranks([]float64{1, 2, 2, 3}))
}

func TestKendallTauA(t *testing.T) {
	x := frame.Floats(1, 2, 3, 4)
	y := frame.Floats(1, 3, 2, 4)
	assert.InDelta(t, 4.0/6.0, Correlation(x, y, Kendall), 1e-12)
}

func TestKendallTauATies(t *testing.T) {
	// the pairs tied in x (rows 0,1) or in y (rows 1,2) are neither
	// concordant nor discordant but still count in the denominator
	x := frame.Floats(1, 1, 2, 3)
	y := frame.Floats(1, 2, 2, 3)
	assert.InDelta(t, 4.0/6.0, Correlation(x, y, Kendall), 1e-12)
	assert.InDelta(t, 0.0, Correlation(frame.Floats(2, 2, 2, 2), y, Kendall), 1e-12)
}

func TestCorrelationInsufficientOrDegenerate(t *testing.T) {
	assert.True(t, math.IsNaN(Correlation(frame.Floats(1, 2), frame.Floats(3, 4), Pearson)))
	// rows with a null on either side are dropped pairwise
	x := []frame.Value{frame.Number(1), frame.Null(), frame.Number(3), frame.Number(4)}
	y := []frame.Value{frame.Number(1), frame.Number(2), frame.String("x"), frame.Number(4)}
	assert.True(t, math.IsNaN(Correlation(x, y, Pearson)))

	flat := frame.Floats(5, 5, 5, 5)
	assert.True(t, math.IsNaN(Correlation(flat, frame.Floats(1, 2, 3, 4), Pearson)))
	assert.True(t, math.IsNaN(Correlation(frame.Floats(1, 2, 3), frame.Floats(1, 2, 3), Method("cosine"))))
}

func TestStrengthOf(t *testing.T) {
	tests := map[float64]Strength{
		0.05:  Negligible,
		-0.2:  Weak,
		0.3:   Moderate,
		0.49:  Moderate,
		0.6:   Strong,
		-0.75: VeryStrong,
		1:     VeryStrong,
	}
	for r, want := range tests {
		assert.Equal(t, want, StrengthOf(r), r)
	}
}

func TestPValue(t *testing.T) {
	assert.InDelta(t, 1.0, pValue(0, 10, Pearson), 1e-12)
	assert.InDelta(t, 1.0, pValue(0, 10, Kendall), 1e-12)
	assert.Equal(t, 0.0, pValue(1, 10, Pearson))
	assert.True(t, math.IsNaN(pValue(math.NaN(), 10, Spearman)))
	assert.True(t, math.IsNaN(pValue(0.5, 2, Pearson)))

	small := pValue(0.6, 10, Pearson)
	large := pValue(0.6, 100, Pearson)
	assert.Greater(t, small, large)
	assert.Greater(t, small, 0.0)
	assert.Less(t, small, 1.0)
}

func TestCorrelatePair(t *testing.T) {
	df := testutil.SalesFrame()
	res, err := CorrelatePair(df, "sales", "units", "")
	require.NoError(t, err)
	assert.Equal(t, 4, res.N, "rows with a null or text cell drop out")
	assert.Greater(t, res.Coefficient, 0.9)
	assert.Equal(t, VeryStrong, res.Strength)

	_, err = CorrelatePair(df, "sales", "missing", Pearson)
	assert.ErrorIs(t, err, ErrMissingColumn)
	_, err = CorrelatePair(df, "sales", "units", "cosine")
	assert.ErrorIs(t, err, ErrUnknownMethod)
}

func matrixFrame() *frame.DataFrame {
	return frame.MustNew(
		[]string{"a", "label", "b", "c"},
		map[string][]frame.Value{
			"a":     frame.Floats(1, 2, 3, 4, 5, 6),
			"label": frame.Strings("x", "y", "x", "y", "x", "y"),
			"b":     frame.Floats(2, 4, 6, 8, 10, 12.5),
			"c":     frame.Floats(6, 1, 4, 2, 5, 3),
		},
	)
}

func TestCorrelationMatrixSymmetricUnitDiagonal(t *testing.T) {
	for _, method := range []Method{Pearson, Spearman, Kendall} {
		m, err := ComputeCorrelationMatrix(context.Background(), matrixFrame(), method, 0, 3)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, m.Columns)
		assert.Equal(t, method, m.Method)
		for i := range m.Columns {
			assert.Equal(t, 1.0, m.Values[i][i])
			assert.Equal(t, 6, m.Observations[i][i])
			for j := range m.Columns {
				assert.Equal(t, m.Values[i][j], m.Values[j][i])
			}
		}
	}
}

func TestCorrelationMatrixMaxColumns(t *testing.T) {
	m, err := ComputeCorrelationMatrix(context.Background(), matrixFrame(), Pearson, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, m.Columns)

	_, err = ComputeCorrelationMatrix(context.Background(), matrixFrame(), "bogus", 0, 0)
	assert.ErrorIs(t, err, ErrUnknownMethod)
}

func TestFindSignificantCorrelations(t *testing.T) {
	pairs, err := FindSignificantCorrelations(context.Background(), matrixFrame(), 0.5, Pearson, 0)
	require.NoError(t, err)
	require.NotEmpty(t, pairs)
	assert.Equal(t, "a", pairs[0].Column1)
	assert.Equal(t, "b", pairs[0].Column2)
	for i, p := range pairs {
		assert.GreaterOrEqual(t, math.Abs(p.Coefficient), 0.5)
		if i > 0 {
			assert.LessOrEqual(t, math.Abs(p.Coefficient), math.Abs(pairs[i-1].Coefficient))
		}
		assert.Equal(t, 6, p.N)
	}

	none, err := FindSignificantCorrelations(context.Background(), matrixFrame(), 1.01, Pearson, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

// tiedFrame has Kendall coefficients of exactly ±1 and ±4/6.
func tiedFrame() *frame.DataFrame {
	return frame.MustNew([]string{"a", "b", "c", "d"}, map[string][]frame.Value{
		"a": frame.Floats(1, 2, 3, 4),
		"b": frame.Floats(2, 4, 6, 8),
		"c": frame.Floats(4, 3, 2, 1),
		"d": frame.Floats(1, 3, 2, 4),
	})
}

func TestFindSignificantCorrelationsEqualMagnitudeKeepsScanOrder(t *testing.T) {
	pairs, err := FindSignificantCorrelations(context.Background(), tiedFrame(), 0.5, Kendall, 4)
	require.NoError(t, err)

	got := make([]string, len(pairs))
	for i, p := range pairs {
		got[i] = p.Column1 + "~" + p.Column2
	}
	assert.Equal(t, []string{"a~b", "a~c", "b~c", "a~d", "b~d", "c~d"}, got)
	assert.Equal(t, 1.0, pairs[0].Coefficient)
	assert.Equal(t, -1.0, pairs[1].Coefficient)
	assert.Equal(t, -4.0/6.0, pairs[5].Coefficient)
}

func TestFindSignificantCorrelationsThresholdInclusive(t *testing.T) {
	at, err := FindSignificantCorrelations(context.Background(), tiedFrame(), 4.0/6.0, Kendall, 0)
	require.NoError(t, err)
	assert.Len(t, at, 6)

	above, err := FindSignificantCorrelations(context.Background(), tiedFrame(), math.Nextafter(4.0/6.0, 1), Kendall, 0)
	require.NoError(t, err)
	assert.Len(t, above, 3)

	exact, err := FindSignificantCorrelations(context.Background(), tiedFrame(), 1, Kendall, 0)
	require.NoError(t, err)
	assert.Len(t, exact, 3)
}

func TestPearsonConstantInexactColumn(t *testing.T) {
	flat := frame.Floats(0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1)
	assert.True(t, math.IsNaN(Correlation(flat, frame.Floats(1, 2, 3, 4, 5, 6, 7), Pearson)))
}

func TestCorrelationMatrixJSONRoundTrip(t *testing.T) {
	m := &CorrelationMatrix{
		Columns:      []string{"a", "b"},
		Values:       [][]float64{{1, math.NaN()}, {math.NaN(), 1}},
		Method:       Spearman,
		Observations: [][]int{{2, 2}, {2, 2}},
	}
	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"values":[[1,null],[null,1]]`)

	var back CorrelationMatrix
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, math.IsNaN(back.Values[0][1]))
	assert.Equal(t, Spearman, back.Method)
	assert.Equal(t, m.Observations, back.Observations)
}
