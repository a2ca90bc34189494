package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/KaramelBytes/tabstat/internal/frame"
)

// OutlierMethod selects how outliers are scored.
type OutlierMethod string

const (
	IQR            OutlierMethod = "iqr"
	ZScore         OutlierMethod = "zscore"
	ModifiedZScore OutlierMethod = "modified_zscore"
)

// madScale makes the MAD consistent with the standard deviation of a normal
// distribution (Iglewicz and Hoaglin).
const madScale = 0.6745

func ParseOutlierMethod(s string) (OutlierMethod, error) {
	switch m := OutlierMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case IQR, ZScore, ModifiedZScore:
		return m, nil
	case "":
		return IQR, nil
	case "mad", "modified-zscore", "modifiedzscore":
		return ModifiedZScore, nil
	}
	return "", fmt.Errorf("%w: outlier %q (use iqr|zscore|modified_zscore)", ErrUnknownMethod, s)
}

// DefaultThreshold is the multiplier (iqr) or score cut-off (zscore,
// modified_zscore) used when none is given.
func DefaultThreshold(m OutlierMethod) float64 {
	switch m {
	case ZScore:
		return 3
	case ModifiedZScore:
		return 3.5
	default:
		return 1.5
	}
}

// OutlierOptions tunes detection. A zero Threshold selects DefaultThreshold.
type OutlierOptions struct {
	Threshold float64
}

// OutlierPoint is one flagged value. Index is the row in the source column.
type OutlierPoint struct {
	Index int
	Value float64
	Score float64
}

// OutlierResult lists the values strictly outside [LowerBound, UpperBound].
type OutlierResult struct {
	Column     string
	Method     OutlierMethod
	Outliers   []OutlierPoint
	LowerBound float64
	UpperBound float64
	// Count is the number of valid observations examined.
	Count     int
	Threshold float64
	// Degenerate is set when the spread (std or MAD) is zero and no
	// deviation-based score exists.
	Degenerate bool
}

// DetectOutliers flags outliers among the finite numbers of values.
//
// iqr: bounds q1 - t*iqr, q3 + t*iqr; score is the distance past the nearer
// bound in IQR units (raw distance when iqr is 0).
// zscore: bounds mean ± t*std (population); score |x-mean|/std.
// modified_zscore: score 0.6745*(x-median)/MAD; bounds solved from t.
//
// A zero std or MAD reports no outliers and collapses both bounds to the
// center.
func DetectOutliers(column string, values []frame.Value, method OutlierMethod, opt OutlierOptions) (OutlierResult, error) {
	method, err := ParseOutlierMethod(string(method))
	if err != nil {
		return OutlierResult{}, err
	}
	thr := opt.Threshold
	if thr <= 0 {
		thr = DefaultThreshold(method)
	}
	vec := frame.Extract(values)
	res := OutlierResult{
		Column:     column,
		Method:     method,
		Outliers:   []OutlierPoint{},
		LowerBound: math.NaN(),
		UpperBound: math.NaN(),
		Count:      vec.Len(),
		Threshold:  thr,
	}
	if vec.Len() == 0 {
		return res, nil
	}

	var score func(x float64) float64
	switch method {
	case IQR:
		sorted := sortedCopy(vec.Values)
		q1, q3 := quantile(sorted, 0.25), quantile(sorted, 0.75)
		spread := q3 - q1
		res.LowerBound, res.UpperBound = q1-thr*spread, q3+thr*spread
		unit := spread
		if unit == 0 {
			unit = 1
		}
		lo, hi := res.LowerBound, res.UpperBound
		score = func(x float64) float64 {
			if x < lo {
				return (lo - x) / unit
			}
			return (x - hi) / unit
		}
	case ZScore:
		mean, std := meanStd(vec.Values)
		if std == 0 || math.IsNaN(std) {
			res.LowerBound, res.UpperBound, res.Degenerate = mean, mean, true
			return res, nil
		}
		res.LowerBound, res.UpperBound = mean-thr*std, mean+thr*std
		score = func(x float64) float64 { return math.Abs(x-mean) / std }
	case ModifiedZScore:
		median, mad := medianMAD(vec.Values)
		if mad == 0 || math.IsNaN(mad) {
			res.LowerBound, res.UpperBound, res.Degenerate = median, median, true
			return res, nil
		}
		half := thr * mad / madScale
		res.LowerBound, res.UpperBound = median-half, median+half
		score = func(x float64) float64 { return madScale * (x - median) / mad }
	}

	for i, x := range vec.Values {
		if x < res.LowerBound || x > res.UpperBound {
			res.Outliers = append(res.Outliers, OutlierPoint{Index: vec.Index[i], Value: x, Score: score(x)})
		}
	}
	return res, nil
}

// DetectColumnOutliers runs DetectOutliers on a named column; the column must exist.
func DetectColumnOutliers(df *frame.DataFrame, column string, method OutlierMethod, opt OutlierOptions) (OutlierResult, error) {
	col, err := lookupColumn(df, column)
	if err != nil {
		return OutlierResult{}, err
	}
	return DetectOutliers(column, col, method, opt)
}

type outlierPointJSON struct {
	Index int       `json:"index" yaml:"index"`
	Value jsonFloat `json:"value" yaml:"value"`
	Score jsonFloat `json:"score" yaml:"score"`
}

type outlierResultJSON struct {
	Column     string             `json:"column" yaml:"column"`
	Method     OutlierMethod      `json:"method" yaml:"method"`
	Outliers   []outlierPointJSON `json:"outliers" yaml:"outliers"`
	LowerBound jsonFloat          `json:"lowerBound" yaml:"lowerBound"`
	UpperBound jsonFloat          `json:"upperBound" yaml:"upperBound"`
	Count      int                `json:"count" yaml:"count"`
	Threshold  jsonFloat          `json:"threshold" yaml:"threshold"`
	Degenerate bool               `json:"degenerate,omitempty" yaml:"degenerate,omitempty"`
}

func (r OutlierResult) wire() outlierResultJSON {
	pts := make([]outlierPointJSON, len(r.Outliers))
	for i, p := range r.Outliers {
		pts[i] = outlierPointJSON{Index: p.Index, Value: jsonFloat(p.Value), Score: jsonFloat(p.Score)}
	}
	return outlierResultJSON{
		Column: r.Column, Method: r.Method, Outliers: pts,
		LowerBound: jsonFloat(r.LowerBound), UpperBound: jsonFloat(r.UpperBound),
		Count: r.Count, Threshold: jsonFloat(r.Threshold), Degenerate: r.Degenerate,
	}
}

func (r OutlierResult) MarshalJSON() ([]byte, error) { return json.Marshal(r.wire()) }

func (r OutlierResult) MarshalYAML() (any, error) { return r.wire(), nil }

func (r *OutlierResult) UnmarshalJSON(b []byte) error {
	var w outlierResultJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	pts := make([]OutlierPoint, len(w.Outliers))
	for i, p := range w.Outliers {
		pts[i] = OutlierPoint{Index: p.Index, Value: float64(p.Value), Score: float64(p.Score)}
	}
	*r = OutlierResult{
		Column: w.Column, Method: w.Method, Outliers: pts,
		LowerBound: float64(w.LowerBound), UpperBound: float64(w.UpperBound),
		Count: w.Count, Threshold: float64(w.Threshold), Degenerate: w.Degenerate,
	}
	return nil
}
