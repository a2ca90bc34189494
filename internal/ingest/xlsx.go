package ingest

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

type xlsxReader struct{}

func (xlsxReader) CanRead(path string) bool {
	name := strings.ToLower(path)
	return strings.HasSuffix(name, ".xlsx") || strings.HasSuffix(name, ".xlsm")
}

// Read streams the selected sheet. With no Sheet and SheetIndex <= 0 the
// first sheet is used; SheetIndex is 1-based.
func (xlsxReader) Read(path string, opt Options) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheet, err := selectSheet(f.GetSheetList(), opt, filepath.Base(path))
	if err != nil {
		return nil, err
	}
	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	defer rows.Close()

	name := fmt.Sprintf("%s (sheet: %s)", filepath.Base(path), sheet)
	if !rows.Next() {
		ds := empty(name)
		ds.Sheet = sheet
		return ds, rows.Error()
	}
	header, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) == 0 {
		ds := empty(name)
		ds.Sheet = sheet
		return ds, nil
	}
	next := func() ([]string, bool, error) {
		if !rows.Next() {
			return nil, false, rows.Error()
		}
		rec, err := rows.Columns()
		if err != nil {
			return nil, false, err
		}
		return rec, true, nil
	}
	ds, err := build(name, header, next, opt)
	if err != nil {
		return nil, err
	}
	ds.Sheet = sheet
	return ds, nil
}

func selectSheet(sheets []string, opt Options, file string) (string, error) {
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook %s has no sheets", file)
	}
	if opt.Sheet != "" {
		for _, s := range sheets {
			if strings.EqualFold(s, opt.Sheet) {
				return s, nil
			}
		}
		return "", fmt.Errorf("sheet '%s' not found in workbook '%s'.\nAvailable sheets: %s",
			opt.Sheet, file, strings.Join(sheets, ", "))
	}
	idx := opt.SheetIndex
	if idx <= 0 {
		idx = 1
	}
	if idx > len(sheets) {
		return "", fmt.Errorf("sheet index %d out of range (workbook '%s' has %d sheets)", idx, file, len(sheets))
	}
	return sheets[idx-1], nil
}
