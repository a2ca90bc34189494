package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/tabstat/internal/analysis"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	corIngest ingestFlags
	corEngine engineFlags
	corFormat string
	corPair   []string
)

type correlationOutput struct {
	Matrix      *analysis.CorrelationMatrix  `json:"matrix" yaml:"matrix"`
	Significant []analysis.CorrelationResult `json:"significant" yaml:"significant"`
}

var correlateCmd = &cobra.Command{
	Use:   "correlate <file>",
	Short: "Correlation matrix and significant pairs of numeric columns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validFormat(corFormat); err != nil {
			return err
		}
		opt, err := corEngine.options()
		if err != nil {
			return err
		}
		ds, err := corIngest.load(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(corPair) > 0 {
			if len(corPair) != 2 {
				return fmt.Errorf("--pair needs exactly two columns, got %d", len(corPair))
			}
			res, err := analysis.CorrelatePair(ds.Frame, corPair[0], corPair[1], opt.CorrelationMethod)
			if err != nil {
				return err
			}
			return render(out, corFormat, res, func() string { return pairText(res) })
		}
		m, err := analysis.ComputeCorrelationMatrix(cmd.Context(), ds.Frame, opt.CorrelationMethod, opt.MaxColumns, opt.Parallelism)
		if err != nil {
			return err
		}
		res := correlationOutput{Matrix: m, Significant: m.SignificantPairs(opt.CorrelationThreshold)}
		return render(out, corFormat, res, func() string { return matrixText(res, opt.CorrelationThreshold) })
	},
}

func init() {
	rootCmd.AddCommand(correlateCmd)
	corIngest.register(correlateCmd)
	corEngine.registerCorrelation(correlateCmd)
	correlateCmd.Flags().StringVarP(&corFormat, "format", "f", "text", "output format: text|json|yaml")
	correlateCmd.Flags().StringSliceVar(&corPair, "pair", nil, "correlate just two columns: --pair a,b")
}

func pairText(r analysis.CorrelationResult) string {
	return fmt.Sprintf("%s ~ %s: r=%s (%s, n=%d, p=%s)", r.Column1, r.Column2, fnum(r.Coefficient), r.Strength, r.N, fnum(r.PValue))
}

func matrixText(res correlationOutput, threshold float64) string {
	m := res.Matrix
	if len(m.Columns) == 0 {
		return "No numeric columns found."
	}
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	header := table.Row{""}
	for _, c := range m.Columns {
		header = append(header, c)
	}
	t.AppendHeader(header)
	for i, c := range m.Columns {
		row := table.Row{c}
		for j := range m.Columns {
			row = append(row, fnum(m.Values[i][j]))
		}
		t.AppendRow(row)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Method: %s\n", m.Method)
	b.WriteString(t.Render())
	fmt.Fprintf(&b, "\n\nSignificant pairs (|r| >= %.2f):\n", threshold)
	if len(res.Significant) == 0 {
		b.WriteString("  none\n")
	}
	for _, p := range res.Significant {
		b.WriteString("  ")
		b.WriteString(pairText(p))
		b.WriteString("\n")
	}
	return b.String()
}
