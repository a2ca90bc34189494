package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/tabstat/internal/frame"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Method selects a correlation coefficient.
type Method string

const (
	Pearson  Method = "pearson"
	Spearman Method = "spearman"
	Kendall  Method = "kendall"
)

// minPairs is the fewest complete (x, y) pairs a coefficient is computed from.
const minPairs = 3

func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case Pearson, Spearman, Kendall:
		return m, nil
	case "":
		return Pearson, nil
	}
	return "", fmt.Errorf("%w: correlation %q (use pearson|spearman|kendall)", ErrUnknownMethod, s)
}

// Strength is a qualitative label for |r|.
type Strength string

const (
	Negligible Strength = "negligible"
	Weak       Strength = "weak"
	Moderate   Strength = "moderate"
	Strong     Strength = "strong"
	VeryStrong Strength = "very_strong"
)

// StrengthOf labels the absolute value of a coefficient.
func StrengthOf(r float64) Strength {
	a := math.Abs(r)
	switch {
	case a < 0.10:
		return Negligible
	case a < 0.30:
		return Weak
	case a < 0.50:
		return Moderate
	case a < 0.70:
		return Strong
	default:
		return VeryStrong
	}
}

// Correlation computes the coefficient between two raw columns over the rows
// where both sides hold a finite number. Fewer than three such rows, zero
// variance or an unknown method give NaN.
func Correlation(x, y []frame.Value, method Method) float64 {
	xs, ys := completePairs(x, y)
	return correlate(xs, ys, method)
}

// completePairs keeps index-aligned rows where both values are usable.
func completePairs(x, y []frame.Value) (xs, ys []float64) {
	n := min(len(x), len(y))
	xs = make([]float64, 0, n)
	ys = make([]float64, 0, n)
	for i := 0; i < n; i++ {
		a, okA := x[i].Float()
		b, okB := y[i].Float()
		if okA && okB {
			xs = append(xs, a)
			ys = append(ys, b)
		}
	}
	return xs, ys
}

func correlate(xs, ys []float64, method Method) float64 {
	if len(xs) < minPairs || len(xs) != len(ys) {
		return math.NaN()
	}
	var r float64
	switch method {
	case Pearson:
		r = pearson(xs, ys)
	case Spearman:
		r = pearson(ranks(xs), ranks(ys))
	case Kendall:
		r = kendallTauA(xs, ys)
	default:
		return math.NaN()
	}
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return math.NaN()
	}
	return math.Max(-1, math.Min(1, r))
}

func pearson(xs, ys []float64) float64 {
	if constant(xs) || constant(ys) {
		return math.NaN()
	}
	return stat.Correlation(xs, ys, nil)
}

// ranks assigns 1-based ranks, tied values sharing the mean of their ranks.
func ranks(xs []float64) []float64 {
	n := len(xs)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return xs[order[a]] < xs[order[b]] })
	out := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && xs[order[j+1]] == xs[order[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			out[order[k]] = avg
		}
		i = j + 1
	}
	return out
}

// kendallTauA is (concordant - discordant) / (n(n-1)/2). Pairs tied on
// either side count as neither.
func kendallTauA(xs, ys []float64) float64 {
	n := len(xs)
	var concordant, discordant int
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			s := sign(xs[i]-xs[j]) * sign(ys[i]-ys[j])
			if s > 0 {
				concordant++
			} else if s < 0 {
				discordant++
			}
		}
	}
	total := float64(n) * float64(n-1) / 2
	return float64(concordant-discordant) / total
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// pValue is the two-sided p-value of r under independence: Student t with
// n-2 degrees of freedom for Pearson and Spearman, the normal approximation
// for Kendall.
func pValue(r float64, n int, method Method) float64 {
	if math.IsNaN(r) || n < minPairs {
		return math.NaN()
	}
	if method == Kendall {
		nf := float64(n)
		z := 3 * r * math.Sqrt(nf*(nf-1)) / math.Sqrt(2*(2*nf+5))
		return 2 * distuv.UnitNormal.Survival(math.Abs(z))
	}
	if math.Abs(r) >= 1 {
		return 0
	}
	df := float64(n - 2)
	t := r * math.Sqrt(df/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return 2 * dist.Survival(math.Abs(t))
}

// CorrelationResult is one column pair with its coefficient.
type CorrelationResult struct {
	Column1     string
	Column2     string
	Coefficient float64
	Strength    Strength
	// N is the number of complete pairs; PValue is two-sided.
	N      int
	PValue float64
}

func newCorrelationResult(a, b string, r float64, n int, method Method) CorrelationResult {
	return CorrelationResult{
		Column1:     a,
		Column2:     b,
		Coefficient: r,
		Strength:    StrengthOf(r),
		N:           n,
		PValue:      pValue(r, n, method),
	}
}

// CorrelatePair correlates two named columns and attaches n and a p-value.
func CorrelatePair(df *frame.DataFrame, col1, col2 string, method Method) (CorrelationResult, error) {
	method, err := ParseMethod(string(method))
	if err != nil {
		return CorrelationResult{}, err
	}
	x, err := lookupColumn(df, col1)
	if err != nil {
		return CorrelationResult{}, err
	}
	y, err := lookupColumn(df, col2)
	if err != nil {
		return CorrelationResult{}, err
	}
	xs, ys := completePairs(x, y)
	return newCorrelationResult(col1, col2, correlate(xs, ys, method), len(xs), method), nil
}

// CorrelationMatrix is a symmetric coefficient matrix over numeric columns.
type CorrelationMatrix struct {
	Columns []string
	Values  [][]float64
	Method  Method
	// Observations[i][j] is the number of complete pairs behind Values[i][j].
	Observations [][]int
}

// ComputeCorrelationMatrix correlates every pair of numeric columns. Only the
// upper triangle is computed; it is mirrored and the diagonal fixed at 1.
// maxColumns > 0 keeps only the first maxColumns numeric columns.
func ComputeCorrelationMatrix(ctx context.Context, df *frame.DataFrame, method Method, maxColumns, parallelism int) (*CorrelationMatrix, error) {
	method, err := ParseMethod(string(method))
	if err != nil {
		return nil, err
	}
	cols := df.NumericColumns()
	if maxColumns > 0 && len(cols) > maxColumns {
		cols = cols[:maxColumns]
	}
	n := len(cols)
	m := &CorrelationMatrix{
		Columns:      cols,
		Values:       make([][]float64, n),
		Method:       method,
		Observations: make([][]int, n),
	}
	data := make([][]frame.Value, n)
	for i, name := range cols {
		m.Values[i] = make([]float64, n)
		m.Observations[i] = make([]int, n)
		data[i], _ = df.Column(name)
	}
	type pair struct{ i, j int }
	pairs := make([]pair, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		m.Values[i][i] = 1
		m.Observations[i][i] = frame.Extract(data[i]).Len()
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, pair{i, j})
		}
	}
	err = forEach(ctx, parallelism, len(pairs), func(k int) {
		p := pairs[k]
		xs, ys := completePairs(data[p.i], data[p.j])
		r := correlate(xs, ys, method)
		m.Values[p.i][p.j], m.Values[p.j][p.i] = r, r
		m.Observations[p.i][p.j], m.Observations[p.j][p.i] = len(xs), len(xs)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// SignificantPairs scans the upper triangle for |r| >= threshold and returns
// the pairs sorted by descending |r|; equal magnitudes keep scan order.
func (m *CorrelationMatrix) SignificantPairs(threshold float64) []CorrelationResult {
	var out []CorrelationResult
	for i := range m.Columns {
		for j := i + 1; j < len(m.Columns); j++ {
			r := m.Values[i][j]
			if math.IsNaN(r) || math.Abs(r) < threshold {
				continue
			}
			n := 0
			if m.Observations != nil {
				n = m.Observations[i][j]
			}
			out = append(out, newCorrelationResult(m.Columns[i], m.Columns[j], r, n, m.Method))
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return math.Abs(out[a].Coefficient) > math.Abs(out[b].Coefficient)
	})
	return out
}

// FindSignificantCorrelations builds the matrix and extracts pairs at or
// above threshold.
func FindSignificantCorrelations(ctx context.Context, df *frame.DataFrame, threshold float64, method Method, parallelism int) ([]CorrelationResult, error) {
	m, err := ComputeCorrelationMatrix(ctx, df, method, 0, parallelism)
	if err != nil {
		return nil, err
	}
	return m.SignificantPairs(threshold), nil
}

type correlationResultJSON struct {
	Column1     string    `json:"column1" yaml:"column1"`
	Column2     string    `json:"column2" yaml:"column2"`
	Coefficient jsonFloat `json:"coefficient" yaml:"coefficient"`
	Strength    Strength  `json:"strength" yaml:"strength"`
	N           int       `json:"n" yaml:"n"`
	PValue      jsonFloat `json:"pValue" yaml:"pValue"`
}

func (r CorrelationResult) wire() correlationResultJSON {
	return correlationResultJSON{
		Column1: r.Column1, Column2: r.Column2,
		Coefficient: jsonFloat(r.Coefficient), Strength: r.Strength,
		N: r.N, PValue: jsonFloat(r.PValue),
	}
}

func (r CorrelationResult) MarshalJSON() ([]byte, error) { return json.Marshal(r.wire()) }

func (r CorrelationResult) MarshalYAML() (any, error) { return r.wire(), nil }

func (r *CorrelationResult) UnmarshalJSON(b []byte) error {
	var w correlationResultJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*r = CorrelationResult{
		Column1: w.Column1, Column2: w.Column2,
		Coefficient: float64(w.Coefficient), Strength: w.Strength,
		N: w.N, PValue: float64(w.PValue),
	}
	return nil
}

type correlationMatrixJSON struct {
	Columns      []string      `json:"columns" yaml:"columns"`
	Values       [][]jsonFloat `json:"values" yaml:"values"`
	Method       Method        `json:"method" yaml:"method"`
	Observations [][]int       `json:"observations,omitempty" yaml:"observations,omitempty"`
}

func (m CorrelationMatrix) wire() correlationMatrixJSON {
	return correlationMatrixJSON{
		Columns:      m.Columns,
		Values:       toJSONMatrix(m.Values),
		Method:       m.Method,
		Observations: m.Observations,
	}
}

func (m CorrelationMatrix) MarshalJSON() ([]byte, error) { return json.Marshal(m.wire()) }

func (m CorrelationMatrix) MarshalYAML() (any, error) { return m.wire(), nil }

func (m *CorrelationMatrix) UnmarshalJSON(b []byte) error {
	var w correlationMatrixJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*m = CorrelationMatrix{
		Columns:      w.Columns,
		Values:       fromJSONMatrix(w.Values),
		Method:       w.Method,
		Observations: w.Observations,
	}
	return nil
}
