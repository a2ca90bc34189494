package analysis

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/KaramelBytes/tabstat/internal/frame"
	"github.com/KaramelBytes/tabstat/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestAnalyzeSalesFrame(t *testing.T) {
	opt := DefaultOptions()
	opt.Logger = testutil.NewTestLogger(t)
	opt.GroupBy = []GroupSpec{{
		Column:       "region",
		Aggregations: []Aggregation{{"sales", OpSum}, {"missing", OpMean}},
	}}
	rep, err := Analyze(context.Background(), "sales.csv", testutil.SalesFrame(), opt)
	require.NoError(t, err)

	_, err = uuid.Parse(rep.ID)
	assert.NoError(t, err)
	assert.Equal(t, "sales.csv", rep.Name)
	assert.Equal(t, 6, rep.Rows)
	assert.Len(t, rep.Columns, 4)
	require.Len(t, rep.Stats, 2)
	require.NotNil(t, rep.Correlation)
	assert.Equal(t, []string{"sales", "units"}, rep.Correlation.Columns)
	require.Len(t, rep.Significant, 1)
	assert.Len(t, rep.Outliers, 2)
	assert.Len(t, rep.Trends, 2)
	require.Len(t, rep.Groups, 1)
	assert.Len(t, rep.Groups[0].Groups, 3)

	var missingWarn bool
	for _, w := range rep.Warnings {
		if strings.Contains(w, `"missing" not found`) {
			missingWarn = true
		}
	}
	assert.True(t, missingWarn, "warnings: %v", rep.Warnings)
}

func TestAnalyzeWarnsOnDegenerateAndShortColumns(t *testing.T) {
	df := frame.MustNew([]string{"flat", "short"}, map[string][]frame.Value{
		"flat":  frame.Floats(7, 7, 7, 7, 7),
		"short": {frame.Number(1), frame.Number(2), frame.Null(), frame.Null(), frame.Null()},
	})
	opt := DefaultOptions()
	opt.OutlierMethod = ZScore
	rep, err := Analyze(context.Background(), "x", df, opt)
	require.NoError(t, err)

	joined := strings.Join(rep.Warnings, "\n")
	assert.Contains(t, joined, "flat: zero spread")
	assert.Contains(t, joined, "short: fewer than 3 values")
	assert.Empty(t, rep.Outliers[0].Outliers)
}

func TestAnalyzeWarnsOnConstantInexactColumn(t *testing.T) {
	df := frame.MustNew([]string{"price"}, map[string][]frame.Value{
		"price": frame.Floats(0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1),
	})
	opt := DefaultOptions()
	opt.OutlierMethod = ZScore
	rep, err := Analyze(context.Background(), "x", df, opt)
	require.NoError(t, err)

	joined := strings.Join(rep.Warnings, "\n")
	assert.Contains(t, joined, "price: too few values or no variance for skewness")
	assert.Contains(t, joined, "price: zero spread")
}

func TestAnalyzeErrors(t *testing.T) {
	df := testutil.SalesFrame()
	opt := DefaultOptions()
	opt.GroupBy = []GroupSpec{{Column: "nope"}}
	_, err := Analyze(context.Background(), "x", df, opt)
	assert.ErrorIs(t, err, ErrMissingColumn)

	opt = DefaultOptions()
	opt.CorrelationMethod = "cosine"
	_, err = Analyze(context.Background(), "x", df, opt)
	assert.ErrorIs(t, err, ErrUnknownMethod)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Analyze(ctx, "x", df, DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzeMaxColumnsWarning(t *testing.T) {
	opt := DefaultOptions()
	opt.MaxColumns = 2
	rep, err := Analyze(context.Background(), "m", matrixFrame(), opt)
	require.NoError(t, err)
	assert.Len(t, rep.Correlation.Columns, 2)
	assert.Contains(t, strings.Join(rep.Warnings, "\n"), "limited to the first 2 of 3")
}

func TestReportMarkdown(t *testing.T) {
	opt := DefaultOptions()
	opt.GroupBy = []GroupSpec{{Column: "region", Aggregations: []Aggregation{{"sales", OpSum}}}}
	rep, err := Analyze(context.Background(), "sales.csv", testutil.SalesFrame(), opt)
	require.NoError(t, err)

	md := rep.Markdown()
	for _, section := range []string{
		"[DATASET SUMMARY]", "[DESCRIPTIVE STATISTICS]", "[CORRELATIONS] (pearson)",
		"[OUTLIERS]", "[TRENDS]", "[GROUP-BY SUMMARY]",
	} {
		assert.Contains(t, md, section)
	}
	assert.Contains(t, md, "File: sales.csv")
	assert.Contains(t, md, "Rows: 6")
	assert.Contains(t, md, "region=north (n=3)")
	assert.Contains(t, md, "sales_sum: 370")
}

func TestReportJSONAndYAML(t *testing.T) {
	df := frame.MustNew([]string{"a", "b"}, map[string][]frame.Value{
		"a": frame.Floats(1, 2, 3, 4),
		"b": {frame.Number(5), frame.Null(), frame.Null(), frame.Null()},
	})
	rep, err := Analyze(context.Background(), "sparse", df, DefaultOptions())
	require.NoError(t, err)

	b, err := json.Marshal(rep)
	require.NoError(t, err)
	var back Report
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, rep.ID, back.ID)
	require.Len(t, back.Stats, 2)
	assert.Equal(t, 0.0, back.Stats[1].Std)
	assert.False(t, back.Stats[1].Skewness.Defined)
	assert.True(t, math.IsNaN(back.Correlation.Values[0][1]))
	assert.Equal(t, rep.Warnings, back.Warnings)

	y, err := yaml.Marshal(rep)
	require.NoError(t, err)
	assert.Contains(t, string(y), "name: sparse")

	// both encodings share field names and the null sentinel
	var fromJSON, fromYAML map[string]any
	require.NoError(t, json.Unmarshal(b, &fromJSON))
	require.NoError(t, yaml.Unmarshal(y, &fromYAML))
	for _, section := range []string{"stats", "outliers", "trends"} {
		js, ys := fromJSON[section].([]any), fromYAML[section].([]any)
		require.Len(t, ys, len(js), section)
		for i := range js {
			assert.ElementsMatch(t, mapKeys(js[i]), mapKeys(ys[i]), "%s[%d]", section, i)
		}
	}
	assert.ElementsMatch(t, mapKeys(fromJSON["correlation"]), mapKeys(fromYAML["correlation"]))
	sparse := fromYAML["stats"].([]any)[1].(map[string]any)
	assert.Contains(t, sparse, "nullCount")
	assert.Nil(t, sparse["skewness"])
	assert.NotNil(t, sparse["mean"])
	trend := fromYAML["trends"].([]any)[0].(map[string]any)
	assert.Contains(t, trend, "rSquared")
}

func mapKeys(v any) []string {
	m, _ := v.(map[string]any)
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
