// Package frame holds the column-oriented dataset consumed by the analysis
// engine, plus the numeric extraction step every statistic starts from.
package frame

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateColumn = errors.New("duplicate column")
	ErrColumnLength    = errors.New("column length mismatch")
	ErrMissingData     = errors.New("column has no data")
	ErrEmptyName       = errors.New("empty column name")
)

// DataFrame is an immutable, column-oriented table. Every column holds
// exactly RowCount values.
type DataFrame struct {
	columns []string
	data    map[string][]Value
	rows    int
}

// New validates and wraps columns and data. Entries of data not named in
// columns are dropped. The slices are retained, not copied; callers hand
// ownership to the DataFrame.
func New(columns []string, data map[string][]Value) (*DataFrame, error) {
	kept := make(map[string][]Value, len(columns))
	rows := -1
	for _, name := range columns {
		if name == "" {
			return nil, ErrEmptyName
		}
		if _, dup := kept[name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, name)
		}
		col, ok := data[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingData, name)
		}
		kept[name] = col
		if rows < 0 {
			rows = len(col)
		} else if len(col) != rows {
			return nil, fmt.Errorf("%w: %q has %d values, want %d", ErrColumnLength, name, len(col), rows)
		}
	}
	if rows < 0 {
		rows = 0
	}
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &DataFrame{columns: cols, data: kept, rows: rows}, nil
}

// MustNew is New for fixtures and tests; it panics on invalid input.
func MustNew(columns []string, data map[string][]Value) *DataFrame {
	df, err := New(columns, data)
	if err != nil {
		panic(err)
	}
	return df
}

// Columns returns the column names in order.
func (df *DataFrame) Columns() []string {
	out := make([]string, len(df.columns))
	copy(out, df.columns)
	return out
}

func (df *DataFrame) RowCount() int { return df.rows }

func (df *DataFrame) HasColumn(name string) bool {
	_, ok := df.data[name]
	return ok
}

// Column returns the values of a column. The slice must not be modified.
func (df *DataFrame) Column(name string) ([]Value, bool) {
	col, ok := df.data[name]
	return col, ok
}

// Row returns the values of row i in column order.
func (df *DataFrame) Row(i int) []Value {
	if i < 0 || i >= df.rows {
		return nil
	}
	out := make([]Value, len(df.columns))
	for j, name := range df.columns {
		out[j] = df.data[name][i]
	}
	return out
}

// NumericColumns lists, in order, the columns holding at least one finite number.
func (df *DataFrame) NumericColumns() []string {
	var out []string
	for _, name := range df.columns {
		for _, v := range df.data[name] {
			if _, ok := v.Float(); ok {
				out = append(out, name)
				break
			}
		}
	}
	return out
}

// Builder accumulates rows for readers that produce data row by row.
type Builder struct {
	columns []string
	data    map[string][]Value
}

func NewBuilder(columns []string) (*Builder, error) {
	// validate names up front with an empty frame
	empty := make(map[string][]Value, len(columns))
	for _, c := range columns {
		empty[c] = nil
	}
	if _, err := New(columns, empty); err != nil {
		return nil, err
	}
	return &Builder{columns: columns, data: empty}, nil
}

// Append adds one row. Short rows are padded with nulls, extra cells dropped.
func (b *Builder) Append(row []Value) {
	for j, name := range b.columns {
		v := Null()
		if j < len(row) {
			v = row[j]
		}
		b.data[name] = append(b.data[name], v)
	}
}

func (b *Builder) Len() int {
	if len(b.columns) == 0 {
		return 0
	}
	return len(b.data[b.columns[0]])
}

// Build returns the DataFrame. The builder must not be used afterwards.
func (b *Builder) Build() (*DataFrame, error) {
	return New(b.columns, b.data)
}
