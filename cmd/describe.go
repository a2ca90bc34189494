package cmd

import (
	"fmt"
	"math"

	"github.com/KaramelBytes/tabstat/internal/analysis"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	descIngest  ingestFlags
	descFormat  string
	descColumns []string
)

var describeCmd = &cobra.Command{
	Use:   "describe <file>",
	Short: "Descriptive statistics for numeric columns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validFormat(descFormat); err != nil {
			return err
		}
		ds, err := descIngest.load(args[0])
		if err != nil {
			return err
		}
		var stats []analysis.DescriptiveStats
		if len(descColumns) == 0 {
			stats, err = analysis.DescribeAll(cmd.Context(), ds.Frame, cfg.Parallelism)
			if err != nil {
				return err
			}
		} else {
			for _, c := range descColumns {
				s, err := analysis.DescribeColumn(ds.Frame, c)
				if err != nil {
					return err
				}
				stats = append(stats, s)
			}
		}
		return render(cmd.OutOrStdout(), descFormat, stats, func() string { return describeText(stats) })
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
	descIngest.register(describeCmd)
	describeCmd.Flags().StringVarP(&descFormat, "format", "f", "text", "output format: text|json|yaml")
	describeCmd.Flags().StringSliceVarP(&descColumns, "column", "c", nil, "columns to describe (default: all numeric)")
}

func describeText(stats []analysis.DescriptiveStats) string {
	if len(stats) == 0 {
		return "No numeric columns found."
	}
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Column", "N", "Missing", "Mean", "Median", "Std", "Min", "Q1", "Q3", "Max", "Skew", "Kurt"})
	for _, s := range stats {
		t.AppendRow(table.Row{
			s.Column, s.Count, fmt.Sprintf("%d (%.1f%%)", s.NullCount, s.NullPercent),
			fnum(s.Mean), fnum(s.Median), fnum(s.Std), fnum(s.Min),
			fnum(s.Q1), fnum(s.Q3), fnum(s.Max), estimate(s.Skewness), estimate(s.Kurtosis),
		})
	}
	return t.Render()
}

func fnum(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.4g", v)
}

func estimate(e analysis.Estimate) string {
	if !e.Defined {
		return "n/a"
	}
	return fnum(e.Value)
}
