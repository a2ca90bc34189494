package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KaramelBytes/tabstat/internal/analysis"
	"github.com/spf13/cobra"
)

var (
	gbIngest ingestFlags
	gbFormat string
	gbColumn string
	gbAggs   []string
)

var groupbyCmd = &cobra.Command{
	Use:   "groupby <file>",
	Short: "Group rows by a column and aggregate others",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validFormat(gbFormat); err != nil {
			return err
		}
		if strings.TrimSpace(gbColumn) == "" {
			return fmt.Errorf("--by is required")
		}
		aggs := make([]analysis.Aggregation, 0, len(gbAggs))
		for _, a := range gbAggs {
			agg, err := analysis.ParseAggregation(a)
			if err != nil {
				return err
			}
			aggs = append(aggs, agg)
		}
		ds, err := gbIngest.load(args[0])
		if err != nil {
			return err
		}
		res, err := analysis.GroupBy(ds.Frame, gbColumn, aggs)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), gbFormat, res, func() string { return groupText(res) })
	},
}

func init() {
	rootCmd.AddCommand(groupbyCmd)
	gbIngest.register(groupbyCmd)
	groupbyCmd.Flags().StringVarP(&gbFormat, "format", "f", "text", "output format: text|json|yaml")
	groupbyCmd.Flags().StringVar(&gbColumn, "by", "", "column to group by")
	groupbyCmd.Flags().StringArrayVar(&gbAggs, "agg", nil, "aggregation as column:op, op one of sum|mean|median|min|max|count|std (repeatable)")
}

func groupText(res analysis.GroupByResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Grouped by %s: %d groups\n", res.GroupColumn, len(res.Groups))
	for _, g := range res.Groups {
		fmt.Fprintf(&b, "- %s (n=%d)\n", g.Value.String(), g.Count)
		keys := make([]string, 0, len(g.Aggregations))
		for k := range g.Aggregations {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "    %s: %s\n", k, fnum(g.Aggregations[k].Value))
		}
	}
	return b.String()
}
