package analysis

import (
	"bytes"
	"encoding/json"
	"math"
)

// Estimate is a statistic that may not be computable for the data at hand,
// e.g. skewness of fewer than three values. Value is only meaningful when
// Defined is true; undefined estimates keep the conventional fallback (0, or
// NaN for an empty column) so plain-number consumers still see a number.
type Estimate struct {
	Value   float64
	Defined bool
}

func defined(v float64) Estimate          { return Estimate{Value: v, Defined: true} }
func undefined(fallback float64) Estimate { return Estimate{Value: fallback} }

// Float returns the value, or NaN when the estimate is undefined.
func (e Estimate) Float() float64 {
	if !e.Defined {
		return math.NaN()
	}
	return e.Value
}

func (e Estimate) MarshalJSON() ([]byte, error) {
	if !e.Defined {
		return []byte("null"), nil
	}
	return jsonFloat(e.Value).MarshalJSON()
}

func (e *Estimate) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*e = undefined(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*e = defined(v)
	return nil
}

func (e Estimate) MarshalYAML() (any, error) {
	if !e.Defined {
		return nil, nil
	}
	return e.Value, nil
}

// jsonFloat carries the NaN sentinel across JSON: non-finite values encode
// as null and null decodes as NaN.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// MarshalYAML writes non-finite values as null, like MarshalJSON.
func (f jsonFloat) MarshalYAML() (any, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, nil
	}
	return v, nil
}

func (f *jsonFloat) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*f = jsonFloat(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = jsonFloat(v)
	return nil
}

func toJSONMatrix(m [][]float64) [][]jsonFloat {
	if m == nil {
		return nil
	}
	out := make([][]jsonFloat, len(m))
	for i, row := range m {
		out[i] = make([]jsonFloat, len(row))
		for j, v := range row {
			out[i][j] = jsonFloat(v)
		}
	}
	return out
}

func fromJSONMatrix(m [][]jsonFloat) [][]float64 {
	if m == nil {
		return nil
	}
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j] = float64(v)
		}
	}
	return out
}
