// Package ingest turns CSV, TSV and XLSX files into DataFrames.
package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/tabstat/internal/frame"
)

// ErrUnsupported indicates no reader handles the file.
var ErrUnsupported = errors.New("unsupported file format")

// Options controls how raw cells become values.
type Options struct {
	// Delimiter for CSV. If 0, '\t' for .tsv files, otherwise sniffed from the header.
	Delimiter rune
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// MaxRows limits data rows read; 0 means unlimited.
	MaxRows int
	// Sheet selects an XLSX sheet by name; SheetIndex (1-based) is used when empty.
	Sheet      string
	SheetIndex int
	// NullTokens are read as null, case-insensitively. Empty cells always are.
	NullTokens []string
	// SplitUnits strips unit suffixes such as "Mass [mg/L]" from header names.
	SplitUnits    bool
	UnitNormalize bool
	UnitTargets   map[string]string // map[fromUnit]toUnit, e.g., {"g/L":"mg/L", "°F":"°C"}
}

// DefaultOptions returns the options used by the CLI.
func DefaultOptions() Options {
	return Options{
		NullTokens:    []string{"NA", "N/A", "null", "nan", "-"},
		SplitUnits:    true,
		UnitNormalize: true,
		UnitTargets: map[string]string{
			"g/L":  "mg/L",
			"ug/L": "mg/L",
			"°F":   "°C",
		},
	}
}

// Dataset is a loaded file.
type Dataset struct {
	Name  string
	Frame *frame.DataFrame
	// Units maps column name to the unit found in its header (after normalization).
	Units map[string]string
	// Truncated is set when MaxRows cut the input short.
	Truncated bool
	Sheet     string
}

// Reader loads one file format.
type Reader interface {
	CanRead(path string) bool
	Read(path string, opt Options) (*Dataset, error)
}

var registry []Reader

// Register adds a reader implementation to the registry.
func Register(r Reader) {
	registry = append(registry, r)
}

// ReadFile selects a reader based on the file name and loads the file.
func ReadFile(path string, opt Options) (*Dataset, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	for _, r := range registry {
		if r.CanRead(path) {
			ds, err := r.Read(path, opt)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
			}
			return ds, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
}

// Supported reports whether some registered reader handles path.
func Supported(path string) bool {
	for _, r := range registry {
		if r.CanRead(path) {
			return true
		}
	}
	return false
}

func init() {
	Register(csvReader{})
	Register(xlsxReader{})
}

// build assembles the header and typed rows into a Dataset.
func build(name string, header []string, next func() ([]string, bool, error), opt Options) (*Dataset, error) {
	c := newConverter(opt)
	names, units := c.header(header)
	b, err := frame.NewBuilder(names)
	if err != nil {
		return nil, err
	}
	ds := &Dataset{Name: name, Units: units}
	for {
		rec, ok, err := next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if opt.MaxRows > 0 && b.Len() >= opt.MaxRows {
			ds.Truncated = true
			break
		}
		b.Append(c.row(rec))
	}
	if ds.Frame, err = b.Build(); err != nil {
		return nil, err
	}
	return ds, nil
}

func empty(name string) *Dataset {
	return &Dataset{Name: name, Frame: frame.MustNew(nil, nil), Units: map[string]string{}}
}
