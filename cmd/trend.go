package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/tabstat/internal/analysis"
	"github.com/spf13/cobra"
)

var (
	trIngest        ingestFlags
	trEngine        engineFlags
	trFormat        string
	trColumns       []string
	trNoSeasonality bool
)

var trendCmd = &cobra.Command{
	Use:   "trend <file>",
	Short: "Linear trend and seasonality of numeric columns in row order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validFormat(trFormat); err != nil {
			return err
		}
		opt, err := trEngine.options()
		if err != nil {
			return err
		}
		if trNoSeasonality {
			opt.Trend.Seasonality = false
		}
		ds, err := trIngest.load(args[0])
		if err != nil {
			return err
		}
		cols := trColumns
		if len(cols) == 0 {
			cols = ds.Frame.NumericColumns()
		}
		results := make([]analysis.TrendAnalysis, 0, len(cols))
		for _, c := range cols {
			r, err := analysis.AnalyzeColumnTrend(ds.Frame, c, opt.Trend)
			if err != nil {
				return err
			}
			results = append(results, r)
		}
		return render(cmd.OutOrStdout(), trFormat, results, func() string { return trendText(results) })
	},
}

func init() {
	rootCmd.AddCommand(trendCmd)
	trIngest.register(trendCmd)
	trEngine.registerTrend(trendCmd)
	trendCmd.Flags().StringVarP(&trFormat, "format", "f", "text", "output format: text|json|yaml")
	trendCmd.Flags().StringSliceVarP(&trColumns, "column", "c", nil, "columns to analyze (default: all numeric)")
	trendCmd.Flags().BoolVar(&trNoSeasonality, "no-seasonality", false, "skip the seasonality search")
}

func trendText(results []analysis.TrendAnalysis) string {
	if len(results) == 0 {
		return "No numeric columns found."
	}
	var b strings.Builder
	for _, t := range results {
		if !t.Sufficient {
			fmt.Fprintf(&b, "%s: insufficient data (n=%d)\n", t.Column, t.N)
			continue
		}
		fmt.Fprintf(&b, "%s: %s (slope %s, intercept %s, R² %.3f, n=%d)\n",
			t.Column, t.Trend, fnum(t.Slope), fnum(t.Intercept), t.RSquared, t.N)
		if s := t.Seasonality; s != nil && s.Detected {
			fmt.Fprintf(&b, "  seasonal period %d (strength %.2f)\n", s.Period, s.Strength)
		}
	}
	return b.String()
}
