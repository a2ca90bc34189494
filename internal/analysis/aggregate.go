package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
)

// Operation is an aggregation applied to the numeric values of a column.
type Operation string

const (
	OpSum    Operation = "sum"
	OpMean   Operation = "mean"
	OpMedian Operation = "median"
	OpMin    Operation = "min"
	OpMax    Operation = "max"
	OpCount  Operation = "count"
	OpStd    Operation = "std"
)

// Operations lists every supported aggregation in display order.
var Operations = []Operation{OpSum, OpMean, OpMedian, OpMin, OpMax, OpCount, OpStd}

// ParseOperation accepts the operation names case-insensitively.
func ParseOperation(s string) (Operation, error) {
	op := Operation(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Operations {
		if op == known {
			return op, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownOperation, s)
}

// reduce applies op to already-filtered numbers. These primitives are shared
// by Describe and GroupBy so both report identical figures. Every operation
// except sum and count is NaN on empty input.
func reduce(op Operation, xs []float64) float64 {
	if op == OpCount {
		return float64(len(xs))
	}
	if len(xs) == 0 {
		if op == OpSum {
			return 0
		}
		return math.NaN()
	}
	// a constant column has an exact center and no spread; summing values
	// such as 0.1 would otherwise leave rounding residue in both
	if constant(xs) {
		switch op {
		case OpMean, OpMedian:
			return xs[0]
		case OpStd:
			return 0
		}
	}
	var (
		v   float64
		err error
	)
	switch op {
	case OpSum:
		v, err = stats.Sum(xs)
	case OpMean:
		v, err = stats.Mean(xs)
	case OpMedian:
		v, err = stats.Median(xs)
	case OpMin:
		v, err = stats.Min(xs)
	case OpMax:
		v, err = stats.Max(xs)
	case OpStd:
		// population form, see DESIGN.md
		v, err = stats.StandardDeviationPopulation(xs)
	default:
		return math.NaN()
	}
	if err != nil {
		return math.NaN()
	}
	return v
}

// meanStd returns the population mean and standard deviation.
func meanStd(xs []float64) (mean, std float64) {
	return reduce(OpMean, xs), reduce(OpStd, xs)
}

// medianMAD returns the median and the median absolute deviation about it.
func medianMAD(xs []float64) (median, mad float64) {
	median = reduce(OpMedian, xs)
	if constant(xs) {
		return median, 0
	}
	mad, err := stats.MedianAbsoluteDeviationPopulation(xs)
	if err != nil {
		return median, math.NaN()
	}
	return median, mad
}

// constant reports whether xs holds at least one value and all are equal.
func constant(xs []float64) bool {
	return len(xs) > 0 && floats.Min(xs) == floats.Max(xs)
}
