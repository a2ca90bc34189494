package frame

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Kind identifies the type held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindNumber
	KindString
	KindBool
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a single dataset cell. The zero Value is null.
type Value struct {
	kind Kind
	num  float64
	str  string
	b    bool
	t    time.Time
}

func Null() Value                    { return Value{} }
func Number(f float64) Value         { return Value{kind: KindNumber, num: f} }
func String(s string) Value          { return Value{kind: KindString, str: s} }
func Bool(b bool) Value              { return Value{kind: KindBool, b: b} }
func Time(t time.Time) Value         { return Value{kind: KindTime, t: t} }
func (v Value) Kind() Kind           { return v.kind }
func (v Value) IsNull() bool         { return v.kind == KindNull }
func (v Value) Text() string         { return v.str }
func (v Value) Boolean() bool        { return v.b }
func (v Value) Timestamp() time.Time { return v.t }

// Float is the single coercion point used by every statistic: only numbers
// holding a finite float are accepted. Strings, booleans and times are
// rejected even when they look numeric; typing is the ingestion layer's job.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
		return 0, false
	}
	return v.num, true
}

// Key is a comparable identity for a Value, usable as a map key.
type Key struct {
	kind Kind
	num  float64
	nan  bool
	str  string
	b    bool
	unix int64
}

// Key returns the grouping identity of v. All NaN numbers share one key and
// positive and negative zero are equal.
func (v Value) Key() Key {
	switch v.kind {
	case KindNumber:
		if math.IsNaN(v.num) {
			return Key{kind: KindNumber, nan: true}
		}
		return Key{kind: KindNumber, num: v.num}
	case KindString:
		return Key{kind: KindString, str: v.str}
	case KindBool:
		return Key{kind: KindBool, b: v.b}
	case KindTime:
		return Key{kind: KindTime, unix: v.t.UnixNano()}
	default:
		return Key{}
	}
}

// String renders the value for reports and group labels.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindString:
		return v.str
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindTime:
		return v.t.Format(time.RFC3339)
	default:
		return "null"
	}
}

// Interface returns the value as a plain Go value (nil, float64, string, bool, time.Time).
func (v Value) Interface() any {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindString:
		return v.str
	case KindBool:
		return v.b
	case KindTime:
		return v.t
	default:
		return nil
	}
}

// MarshalJSON writes the natural JSON form. Non-finite numbers become null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(v.num)
	case KindString:
		return json.Marshal(v.str)
	case KindBool:
		return json.Marshal(v.b)
	case KindTime:
		return json.Marshal(v.t.Format(time.RFC3339Nano))
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON reads null, numbers, booleans and strings. Strings are kept
// as strings; RFC3339 text is not promoted to a time.
func (v *Value) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case nil:
		*v = Null()
	case float64:
		*v = Number(x)
	case string:
		*v = String(x)
	case bool:
		*v = Bool(x)
	default:
		return fmt.Errorf("unsupported cell value %s", string(b))
	}
	return nil
}

// MarshalYAML mirrors MarshalJSON for yaml.v3 encoders.
func (v Value) MarshalYAML() (any, error) {
	if v.kind == KindTime {
		return v.t.Format(time.RFC3339Nano), nil
	}
	return v.Interface(), nil
}
