package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/tabstat/internal/analysis"
	"github.com/spf13/cobra"
)

var (
	outIngest  ingestFlags
	outEngine  engineFlags
	outFormat  string
	outColumns []string
)

var outliersCmd = &cobra.Command{
	Use:   "outliers <file>",
	Short: "Detect outliers in numeric columns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validFormat(outFormat); err != nil {
			return err
		}
		opt, err := outEngine.options()
		if err != nil {
			return err
		}
		ds, err := outIngest.load(args[0])
		if err != nil {
			return err
		}
		cols := outColumns
		if len(cols) == 0 {
			cols = ds.Frame.NumericColumns()
		}
		results := make([]analysis.OutlierResult, 0, len(cols))
		for _, c := range cols {
			r, err := analysis.DetectColumnOutliers(ds.Frame, c, opt.OutlierMethod, analysis.OutlierOptions{Threshold: opt.OutlierThreshold})
			if err != nil {
				return err
			}
			results = append(results, r)
		}
		return render(cmd.OutOrStdout(), outFormat, results, func() string { return outliersText(results) })
	},
}

func init() {
	rootCmd.AddCommand(outliersCmd)
	outIngest.register(outliersCmd)
	outEngine.registerOutlier(outliersCmd)
	outliersCmd.Flags().StringVarP(&outFormat, "format", "f", "text", "output format: text|json|yaml")
	outliersCmd.Flags().StringSliceVarP(&outColumns, "column", "c", nil, "columns to scan (default: all numeric)")
}

func outliersText(results []analysis.OutlierResult) string {
	if len(results) == 0 {
		return "No numeric columns found."
	}
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "%s (%s, threshold %s, bounds %s..%s): %d of %d flagged\n",
			r.Column, r.Method, fnum(r.Threshold), fnum(r.LowerBound), fnum(r.UpperBound), len(r.Outliers), r.Count)
		if r.Degenerate {
			b.WriteString("  zero spread, no scores\n")
		}
		for _, p := range r.Outliers {
			fmt.Fprintf(&b, "  row %d: %s (score %s)\n", p.Index, fnum(p.Value), fnum(p.Score))
		}
	}
	return b.String()
}
