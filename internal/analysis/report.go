package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/KaramelBytes/tabstat/internal/frame"
	"github.com/google/uuid"
)

// GroupSpec is one group-by request of a report.
type GroupSpec struct {
	Column       string        `json:"column" yaml:"column"`
	Aggregations []Aggregation `json:"aggregations" yaml:"aggregations"`
}

// Options controls which analyses a Report runs.
type Options struct {
	Correlations         bool
	CorrelationMethod    Method
	CorrelationThreshold float64
	Outliers             bool
	OutlierMethod        OutlierMethod
	// OutlierThreshold of 0 selects DefaultThreshold(OutlierMethod).
	OutlierThreshold float64
	Trends           bool
	Trend            TrendOptions
	GroupBy          []GroupSpec
	// MaxColumns caps the correlation matrix width; 0 means unlimited.
	MaxColumns int
	// Parallelism bounds concurrent column work; 0 means GOMAXPROCS.
	Parallelism int
	Logger      *slog.Logger
}

// DefaultOptions returns reasonable defaults for dataset analysis.
func DefaultOptions() Options {
	return Options{
		Correlations:         true,
		CorrelationMethod:    Pearson,
		CorrelationThreshold: 0.5,
		Outliers:             true,
		OutlierMethod:        IQR,
		Trends:               true,
		Trend:                DefaultTrendOptions(),
		MaxColumns:           50,
	}
}

// Report bundles every analysis of one dataset.
type Report struct {
	ID          string              `json:"id" yaml:"id"`
	Name        string              `json:"name" yaml:"name"`
	GeneratedAt time.Time           `json:"generatedAt" yaml:"generatedAt"`
	Rows        int                 `json:"rows" yaml:"rows"`
	Columns     []string            `json:"columns" yaml:"columns"`
	Stats       []DescriptiveStats  `json:"stats" yaml:"stats"`
	Correlation *CorrelationMatrix  `json:"correlation,omitempty" yaml:"correlation,omitempty"`
	Significant []CorrelationResult `json:"significant,omitempty" yaml:"significant,omitempty"`
	Outliers    []OutlierResult     `json:"outliers,omitempty" yaml:"outliers,omitempty"`
	Trends      []TrendAnalysis     `json:"trends,omitempty" yaml:"trends,omitempty"`
	Groups      []GroupByResult     `json:"groups,omitempty" yaml:"groups,omitempty"`
	Warnings    []string            `json:"warnings,omitempty" yaml:"warnings,omitempty"`

	// Units maps column to the unit taken from its header, set by the loader.
	Units map[string]string `json:"units,omitempty" yaml:"units,omitempty"`
}

// Analyze runs the analyses selected by opt. Per-column problems become
// warnings; only invalid options, a missing group column or cancellation
// return an error.
func Analyze(ctx context.Context, name string, df *frame.DataFrame, opt Options) (*Report, error) {
	log := opt.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	rep := &Report{
		ID:          uuid.NewString(),
		Name:        name,
		GeneratedAt: time.Now().UTC(),
		Rows:        df.RowCount(),
		Columns:     df.Columns(),
	}
	log.Debug("analysis started", "report", rep.ID, "name", name, "rows", rep.Rows, "columns", len(rep.Columns))

	stats, err := DescribeAll(ctx, df, opt.Parallelism)
	if err != nil {
		return nil, fmt.Errorf("describe: %w", err)
	}
	rep.Stats = stats
	numeric := make([]string, len(stats))
	for i, s := range stats {
		numeric[i] = s.Column
		if !s.Skewness.Defined {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("%s: too few values or no variance for skewness (n=%d)", s.Column, s.Count))
		}
	}
	if len(numeric) == 0 {
		rep.Warnings = append(rep.Warnings, "no numeric columns found")
	}

	if opt.Correlations && len(numeric) >= 2 {
		if opt.MaxColumns > 0 && len(numeric) > opt.MaxColumns {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("correlation matrix limited to the first %d of %d numeric columns", opt.MaxColumns, len(numeric)))
		}
		m, err := ComputeCorrelationMatrix(ctx, df, opt.CorrelationMethod, opt.MaxColumns, opt.Parallelism)
		if err != nil {
			return nil, fmt.Errorf("correlations: %w", err)
		}
		rep.Correlation = m
		rep.Significant = m.SignificantPairs(opt.CorrelationThreshold)
		log.Debug("correlations computed", "method", m.Method, "columns", len(m.Columns), "significant", len(rep.Significant))
	}

	if opt.Outliers || opt.Trends {
		outliers := make([]OutlierResult, len(numeric))
		trends := make([]TrendAnalysis, len(numeric))
		errs := make([]error, len(numeric))
		err := forEach(ctx, opt.Parallelism, len(numeric), func(i int) {
			col, _ := df.Column(numeric[i])
			if opt.Outliers {
				outliers[i], errs[i] = DetectOutliers(numeric[i], col, opt.OutlierMethod, OutlierOptions{Threshold: opt.OutlierThreshold})
			}
			if opt.Trends {
				trends[i] = AnalyzeTrendWith(numeric[i], col, opt.Trend)
			}
		})
		if err != nil {
			return nil, err
		}
		for _, e := range errs {
			if e != nil {
				return nil, fmt.Errorf("outliers: %w", e)
			}
		}
		if opt.Outliers {
			rep.Outliers = outliers
			for _, o := range outliers {
				if o.Degenerate {
					rep.Warnings = append(rep.Warnings, fmt.Sprintf("%s: zero spread, %s outlier scores undefined", o.Column, o.Method))
				}
			}
		}
		if opt.Trends {
			rep.Trends = trends
			for _, t := range trends {
				if !t.Sufficient {
					rep.Warnings = append(rep.Warnings, fmt.Sprintf("%s: fewer than %d values, trend not computed", t.Column, minTrendPoints))
				}
			}
		}
	}

	for _, spec := range opt.GroupBy {
		g, err := GroupBy(df, spec.Column, spec.Aggregations)
		if err != nil {
			return nil, fmt.Errorf("group by %s: %w", spec.Column, err)
		}
		for _, a := range spec.Aggregations {
			if !df.HasColumn(a.Column) {
				rep.Warnings = append(rep.Warnings, fmt.Sprintf("group by %s: column %q not found, %s skipped", spec.Column, a.Column, a.Key()))
			}
		}
		rep.Groups = append(rep.Groups, g)
	}
	log.Debug("analysis finished", "report", rep.ID, "warnings", len(rep.Warnings))
	return rep, nil
}

// Markdown renders a compact report suitable for prompts or standalone docs.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d (numeric %d)\n", len(r.Columns), len(r.Stats)))

	if len(r.Stats) > 0 {
		b.WriteString("\n[DESCRIPTIVE STATISTICS]\n")
		for _, s := range r.Stats {
			name := safeName(s.Column)
			if u := r.Units[s.Column]; u != "" {
				name += " [" + u + "]"
			}
			b.WriteString(fmt.Sprintf("- %s: n=%d, missing %.1f%%", name, s.Count, s.NullPercent))
			b.WriteString(fmt.Sprintf(" — mean %s, median %s, std %s, min %s, max %s, q1 %s, q3 %s",
				num(s.Mean), num(s.Median), num(s.Std), num(s.Min), num(s.Max), num(s.Q1), num(s.Q3)))
			b.WriteString(fmt.Sprintf(", skew %s, kurt %s\n", num(s.Skewness.Float()), num(s.Kurtosis.Float())))
		}
	}

	if r.Correlation != nil && len(r.Correlation.Columns) >= 2 {
		b.WriteString(fmt.Sprintf("\n[CORRELATIONS] (%s)\n", r.Correlation.Method))
		if len(r.Significant) == 0 {
			b.WriteString("- no pairs above threshold\n")
		}
		maxp := 10
		if len(r.Significant) < maxp {
			maxp = len(r.Significant)
		}
		for _, p := range r.Significant[:maxp] {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f (%s, n=%d, p=%s)\n", p.Column1, p.Column2, p.Coefficient, p.Strength, p.N, num(p.PValue)))
		}
	}

	if len(r.Outliers) > 0 {
		b.WriteString("\n[OUTLIERS]\n")
		for _, o := range r.Outliers {
			b.WriteString(fmt.Sprintf("- %s (%s, bounds %s..%s): %d", safeName(o.Column), o.Method, num(o.LowerBound), num(o.UpperBound), len(o.Outliers)))
			if len(o.Outliers) > 0 {
				top := make([]OutlierPoint, len(o.Outliers))
				copy(top, o.Outliers)
				sort.SliceStable(top, func(i, j int) bool { return math.Abs(top[i].Score) > math.Abs(top[j].Score) })
				if len(top) > 3 {
					top = top[:3]
				}
				parts := make([]string, len(top))
				for i, p := range top {
					parts[i] = fmt.Sprintf("row %d=%s", p.Index, num(p.Value))
				}
				b.WriteString(" — e.g., " + strings.Join(parts, ", "))
			}
			b.WriteString("\n")
		}
	}

	if len(r.Trends) > 0 {
		b.WriteString("\n[TRENDS]\n")
		for _, t := range r.Trends {
			b.WriteString(fmt.Sprintf("- %s: %s (slope %s, R² %.3f)", safeName(t.Column), t.Trend, num(t.Slope), t.RSquared))
			if t.Seasonality != nil && t.Seasonality.Detected {
				b.WriteString(fmt.Sprintf("; seasonal period %d (strength %.2f)", t.Seasonality.Period, t.Seasonality.Strength))
			}
			b.WriteString("\n")
		}
	}

	if len(r.Groups) > 0 {
		b.WriteString("\n[GROUP-BY SUMMARY]\n")
		for _, g := range r.Groups {
			for _, grp := range g.Groups {
				b.WriteString(fmt.Sprintf("- %s=%s (n=%d)\n", g.GroupColumn, safeVal(grp.Value.String()), grp.Count))
				keys := make([]string, 0, len(grp.Aggregations))
				for k := range grp.Aggregations {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					b.WriteString(fmt.Sprintf("  • %s: %s\n", k, num(grp.Aggregations[k].Value)))
				}
			}
		}
	}

	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func num(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.4g", v)
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
