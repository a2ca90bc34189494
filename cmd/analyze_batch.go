package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/tabstat/internal/logging"
	"github.com/spf13/cobra"
)

var (
	abIngest    ingestFlags
	abEngine    engineFlags
	abFormat    string
	abOutputDir string
	abSave      bool
	abGroupBy   []string
	abAggs      []string
	abQuiet     bool
	abKeepGoing bool
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Analyze multiple CSV/TSV/XLSX files with progress",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validFormat(abFormat); err != nil {
			return err
		}
		groups, err := parseGroupSpecs(abGroupBy, abAggs)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		files, err := expandInputs(args, out)
		if err != nil {
			return err
		}
		if abOutputDir != "" {
			if err := os.MkdirAll(abOutputDir, 0o755); err != nil {
				return err
			}
		}
		log := logging.FromContext(cmd.Context())

		total := len(files)
		failed := 0
		used := map[string]int{}
		for i, path := range files {
			if !abQuiet {
				fmt.Fprintf(out, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			rep, err := analyzeFile(cmd.Context(), path, &abIngest, &abEngine, groups)
			if err != nil {
				if !abKeepGoing {
					return err
				}
				failed++
				log.Warn("analysis failed", "path", path, "err", err)
				fmt.Fprintf(out, "✗ %s: %v\n", filepath.Base(path), err)
				continue
			}

			written := false
			if abSave {
				e, err := saveReport(rep, path)
				if err != nil {
					return err
				}
				if !abQuiet {
					fmt.Fprintf(out, "✓ Saved report %s\n", e.ID)
				}
				written = true
			}
			if abOutputDir != "" {
				outFile := batchOutputPath(abOutputDir, path, abFormat, used)
				if err := writeReport(outFile, abFormat, rep); err != nil {
					return err
				}
				if !abQuiet {
					fmt.Fprintf(out, "✓ Wrote analysis to %s\n", outFile)
				}
				written = true
			}
			if !written && !abQuiet {
				if err := render(out, abFormat, rep, rep.Markdown); err != nil {
					return err
				}
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, total)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	abIngest.register(analyzeBatchCmd)
	abEngine.registerCorrelation(analyzeBatchCmd)
	abEngine.registerOutlier(analyzeBatchCmd)
	abEngine.registerTrend(analyzeBatchCmd)
	abEngine.registerToggles(analyzeBatchCmd)
	analyzeBatchCmd.Flags().StringVarP(&abFormat, "format", "f", "md", "output format: md|json|yaml")
	analyzeBatchCmd.Flags().StringVarP(&abOutputDir, "output-dir", "o", "", "directory to write one report per input file")
	analyzeBatchCmd.Flags().BoolVar(&abSave, "save", false, "save each report to the reports directory")
	analyzeBatchCmd.Flags().StringSliceVar(&abGroupBy, "group-by", nil, "comma-separated column names to group by (repeatable)")
	analyzeBatchCmd.Flags().StringArrayVar(&abAggs, "agg", nil, "aggregation as column:op (repeatable)")
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
	analyzeBatchCmd.Flags().BoolVar(&abKeepGoing, "keep-going", false, "continue with the next file when one fails")
}

// batchOutputPath names the report file for input, adding a __N suffix when
// another input with the same base name was already written.
func batchOutputPath(dir, input, format string, used map[string]int) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if abIngest.sheetName != "" {
		stem += "__sheet-" + slug(abIngest.sheetName)
	}
	ext := ".md"
	switch strings.ToLower(format) {
	case "json":
		ext = ".json"
	case "yaml", "yml":
		ext = ".yaml"
	}
	used[stem]++
	if n := used[stem]; n > 1 {
		return filepath.Join(dir, fmt.Sprintf("%s__%d.report%s", stem, n, ext))
	}
	return filepath.Join(dir, stem+".report"+ext)
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else if r == ' ' || r == '-' || r == '_' {
			b.WriteRune('-')
		}
	}
	ss := strings.Trim(b.String(), "-")
	if ss == "" {
		ss = "sheet"
	}
	return ss
}
