package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/tabstat/internal/analysis"
	"github.com/KaramelBytes/tabstat/internal/ingest"
	"github.com/KaramelBytes/tabstat/internal/utils"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// ingestFlags are the file-loading flags shared by every command that reads data.
type ingestFlags struct {
	delimiter  string
	decimal    string
	thousands  string
	maxRows    int
	sheetName  string
	sheetIndex int
	nulls      []string
	noUnits    bool
}

func (f *ingestFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' | '|' (auto-detect if omitted)")
	fl.StringVar(&f.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	fl.StringVar(&f.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
	fl.IntVar(&f.maxRows, "max-rows", 0, "maximum rows to process (0 = config value, unlimited by default)")
	fl.StringVar(&f.sheetName, "sheet-name", "", "XLSX: sheet name to analyze")
	fl.IntVar(&f.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	fl.StringSliceVar(&f.nulls, "null", nil, "extra tokens read as missing values (repeatable)")
	fl.BoolVar(&f.noUnits, "no-units", false, "keep unit suffixes in headers and skip unit normalization")
}

func (f *ingestFlags) options() (ingest.Options, error) {
	opt := ingest.DefaultOptions()
	if cfg != nil && cfg.MaxRows > 0 {
		opt.MaxRows = cfg.MaxRows
	}
	if f.maxRows > 0 {
		opt.MaxRows = f.maxRows
	}
	switch f.delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	case "|", "pipe":
		opt.Delimiter = '|'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", f.delimiter)
	}
	// Locale separators
	switch strings.ToLower(strings.TrimSpace(f.decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", f.decimal)
	}
	switch strings.ToLower(strings.TrimSpace(f.thousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", f.thousands)
	}
	opt.Sheet = f.sheetName
	opt.SheetIndex = f.sheetIndex
	opt.NullTokens = append(opt.NullTokens, f.nulls...)
	if f.noUnits {
		opt.SplitUnits = false
		opt.UnitNormalize = false
	}
	return opt, nil
}

func (f *ingestFlags) load(path string) (*ingest.Dataset, error) {
	opt, err := f.options()
	if err != nil {
		return nil, err
	}
	return ingest.ReadFile(path, opt)
}

// engineFlags override configured engine defaults for one invocation.
type engineFlags struct {
	method         string
	threshold      float64
	outlierMethod  string
	outlierThr     float64
	maxColumns     int
	noCorrelations bool
	noOutliers     bool
	noTrends       bool
	minACF         float64
}

func (f *engineFlags) registerCorrelation(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.method, "method", "", "correlation method: pearson|spearman|kendall (default from config)")
	cmd.Flags().Float64Var(&f.threshold, "threshold", 0, "minimum |r| for significant pairs (default from config)")
	cmd.Flags().IntVar(&f.maxColumns, "max-columns", 0, "max numeric columns in the correlation matrix (default from config)")
}

func (f *engineFlags) registerOutlier(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.outlierMethod, "outlier-method", "", "outlier method: iqr|zscore|modified_zscore (default from config)")
	cmd.Flags().Float64Var(&f.outlierThr, "outlier-threshold", 0, "outlier threshold for the chosen method (default from config)")
}

func (f *engineFlags) registerTrend(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.minACF, "min-acf", 0, "minimum autocorrelation to report seasonality (default from config)")
}

func (f *engineFlags) registerToggles(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.noCorrelations, "no-correlations", false, "skip the correlation matrix")
	cmd.Flags().BoolVar(&f.noOutliers, "no-outliers", false, "skip outlier detection")
	cmd.Flags().BoolVar(&f.noTrends, "no-trends", false, "skip trend analysis")
}

// options merges analysis defaults, configuration and flags.
func (f *engineFlags) options() (analysis.Options, error) {
	opt := analysis.DefaultOptions()
	method, outMethod := f.method, f.outlierMethod
	thr := f.threshold
	if cfg != nil {
		if method == "" {
			method = cfg.CorrelationMethod
		}
		if outMethod == "" {
			outMethod = cfg.OutlierMethod
		}
		if thr <= 0 {
			thr = cfg.CorrelationThreshold
		}
		opt.MaxColumns = cfg.MaxColumns
		opt.Parallelism = cfg.Parallelism
		if cfg.SeasonalityMinACF > 0 {
			opt.Trend.MinAutocorrelation = cfg.SeasonalityMinACF
		}
	}
	if method != "" {
		m, err := analysis.ParseMethod(method)
		if err != nil {
			return opt, err
		}
		opt.CorrelationMethod = m
	}
	if outMethod != "" {
		m, err := analysis.ParseOutlierMethod(outMethod)
		if err != nil {
			return opt, err
		}
		opt.OutlierMethod = m
	}
	if thr > 0 {
		opt.CorrelationThreshold = thr
	}
	switch {
	case f.outlierThr > 0:
		opt.OutlierThreshold = f.outlierThr
	case cfg != nil:
		opt.OutlierThreshold = cfg.OutlierThreshold(string(opt.OutlierMethod))
	}
	if f.maxColumns > 0 {
		opt.MaxColumns = f.maxColumns
	}
	if f.minACF > 0 {
		opt.Trend.MinAutocorrelation = f.minACF
	}
	opt.Correlations = !f.noCorrelations
	opt.Outliers = !f.noOutliers
	opt.Trends = !f.noTrends
	return opt, nil
}

// parseGroupSpecs pairs every --group-by column with all --agg requests.
func parseGroupSpecs(columns, aggs []string) ([]analysis.GroupSpec, error) {
	parsed := make([]analysis.Aggregation, 0, len(aggs))
	for _, a := range aggs {
		agg, err := analysis.ParseAggregation(a)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, agg)
	}
	if len(columns) == 0 {
		if len(parsed) > 0 {
			return nil, fmt.Errorf("--agg requires --group-by")
		}
		return nil, nil
	}
	specs := make([]analysis.GroupSpec, 0, len(columns))
	for _, c := range columns {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		specs = append(specs, analysis.GroupSpec{Column: c, Aggregations: parsed})
	}
	return specs, nil
}

// render writes v as JSON or YAML, or calls text for md/text.
func render(w io.Writer, format string, v any, text func() string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "md", "markdown", "text":
		_, err := fmt.Fprintln(w, strings.TrimRight(text(), "\n"))
		return err
	case "json":
		b, err := utils.PrettyJSON(v)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	case "yaml", "yml":
		b, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}
		_, err = w.Write(b)
		return err
	}
	return fmt.Errorf("unsupported --format: %s (use md|json|yaml)", format)
}

func validFormat(format string) error {
	return render(io.Discard, format, nil, func() string { return "" })
}
