package frame

// NumericVector is the finite-number view of a raw column.
type NumericVector struct {
	// Values are the accepted numbers in original order.
	Values []float64
	// Index maps Values[i] back to its row in the source column.
	Index []int
	Total int
	// Nulls counts null cells; Invalid counts non-null cells rejected by Value.Float.
	Nulls   int
	Invalid int
}

// Extract filters a raw column down to its finite numbers.
func Extract(values []Value) NumericVector {
	vec := NumericVector{
		Values: make([]float64, 0, len(values)),
		Index:  make([]int, 0, len(values)),
		Total:  len(values),
	}
	for i, v := range values {
		if x, ok := v.Float(); ok {
			vec.Values = append(vec.Values, x)
			vec.Index = append(vec.Index, i)
			continue
		}
		if v.IsNull() {
			vec.Nulls++
		} else {
			vec.Invalid++
		}
	}
	return vec
}

func (v NumericVector) Len() int { return len(v.Values) }

// Missing is the number of cells that did not yield a number.
func (v NumericVector) Missing() int { return v.Total - len(v.Values) }

// Floats is a convenience for building columns in tests and fixtures.
func Floats(xs ...float64) []Value {
	out := make([]Value, len(xs))
	for i, x := range xs {
		out[i] = Number(x)
	}
	return out
}

// Strings builds a string column.
func Strings(ss ...string) []Value {
	out := make([]Value, len(ss))
	for i, s := range ss {
		out[i] = String(s)
	}
	return out
}
