package analysis

import (
	"errors"
	"fmt"

	"github.com/KaramelBytes/tabstat/internal/frame"
)

var (
	// ErrMissingColumn is returned when a caller names a column the dataset lacks.
	ErrMissingColumn = errors.New("column not found")
	// ErrUnknownMethod indicates an unsupported correlation or outlier method.
	ErrUnknownMethod = errors.New("unknown method")
	// ErrUnknownOperation indicates an unsupported aggregation operation.
	ErrUnknownOperation = errors.New("unknown aggregation operation")
)

// ColumnError ties an error to the column that caused it.
type ColumnError struct {
	Column string
	Err    error
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("column %q: %v", e.Column, e.Err)
}

func (e *ColumnError) Unwrap() error { return e.Err }

func lookupColumn(df *frame.DataFrame, name string) ([]frame.Value, error) {
	col, ok := df.Column(name)
	if !ok {
		return nil, &ColumnError{Column: name, Err: ErrMissingColumn}
	}
	return col, nil
}
