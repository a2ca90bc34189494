package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/tabstat/internal/analysis"
	"github.com/KaramelBytes/tabstat/internal/ingest"
	"github.com/KaramelBytes/tabstat/internal/logging"
	"github.com/KaramelBytes/tabstat/internal/store"
	"github.com/KaramelBytes/tabstat/internal/utils"
	"github.com/spf13/cobra"
)

var (
	anaIngest  ingestFlags
	anaEngine  engineFlags
	anaFormat  string
	anaOutput  string
	anaSave    bool
	anaGroupBy []string
	anaAggs    []string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze a CSV/TSV/XLSX file and produce a full report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validFormat(anaFormat); err != nil {
			return err
		}
		groups, err := parseGroupSpecs(anaGroupBy, anaAggs)
		if err != nil {
			return err
		}
		rep, err := analyzeFile(cmd.Context(), args[0], &anaIngest, &anaEngine, groups)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if anaSave {
			e, err := saveReport(rep, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Saved report %s (%s)\n", e.ID, e.Name)
		}
		if anaOutput != "" {
			if err := writeReport(anaOutput, anaFormat, rep); err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Wrote analysis to %s\n", anaOutput)
			return nil
		}
		if anaSave {
			return nil
		}
		return render(out, anaFormat, rep, rep.Markdown)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	anaIngest.register(analyzeCmd)
	anaEngine.registerCorrelation(analyzeCmd)
	anaEngine.registerOutlier(analyzeCmd)
	anaEngine.registerTrend(analyzeCmd)
	anaEngine.registerToggles(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaFormat, "format", "f", "md", "output format: md|json|yaml")
	analyzeCmd.Flags().StringVarP(&anaOutput, "output", "o", "", "optional path to write the report")
	analyzeCmd.Flags().BoolVar(&anaSave, "save", false, "save the report to the reports directory")
	analyzeCmd.Flags().StringSliceVar(&anaGroupBy, "group-by", nil, "comma-separated column names to group by (repeatable)")
	analyzeCmd.Flags().StringArrayVar(&anaAggs, "agg", nil, "aggregation as column:op, op one of sum|mean|median|min|max|count|std (repeatable)")
}

// analyzeFile loads path and runs the full report.
func analyzeFile(ctx context.Context, path string, in *ingestFlags, eng *engineFlags, groups []analysis.GroupSpec) (*analysis.Report, error) {
	log := logging.FromContext(ctx)
	ds, err := in.load(path)
	if err != nil {
		return nil, err
	}
	opt, err := eng.options()
	if err != nil {
		return nil, err
	}
	opt.GroupBy = groups
	opt.Logger = log
	log.Debug("dataset loaded", "path", path, "rows", ds.Frame.RowCount(), "columns", len(ds.Frame.Columns()), "truncated", ds.Truncated)

	rep, err := analysis.Analyze(ctx, ds.Name, ds.Frame, opt)
	if err != nil {
		return nil, err
	}
	if ds.Truncated {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("input truncated to the first %d rows", ds.Frame.RowCount()))
	}
	if len(ds.Units) > 0 {
		rep.Units = ds.Units
	}
	return rep, nil
}

func saveReport(rep *analysis.Report, source string) (*store.Entry, error) {
	if cfg == nil {
		return nil, fmt.Errorf("no config loaded")
	}
	s, err := store.Open(cfg.ReportsDir)
	if err != nil {
		return nil, err
	}
	if abs, err := filepath.Abs(source); err == nil {
		source = abs
	}
	return s.Save(rep, source)
}

// writeReport renders rep to path; the format defaults from the extension
// when the flag was left at md.
func writeReport(path, format string, rep *analysis.Report) error {
	if f := formatFromExt(path); f != "" && (format == "" || format == "md") {
		format = f
	}
	var buf bytes.Buffer
	if err := render(&buf, format, rep, rep.Markdown); err != nil {
		return err
	}
	if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func formatFromExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	}
	return ""
}

// expandInputs resolves glob patterns and literal paths to a sorted,
// de-duplicated list of supported files.
func expandInputs(args []string, w io.Writer) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			// treat as literal path; ReadFile reports it if missing
			matches = []string{arg}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			if !ingest.Supported(m) {
				fmt.Fprintf(w, "⚠ Skipping unsupported file %s\n", m)
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched")
	}
	sort.Strings(files)
	return files, nil
}
