package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type csvReader struct{}

func (csvReader) CanRead(path string) bool {
	name := strings.ToLower(path)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv") || strings.HasSuffix(name, ".tab")
}

func (csvReader) Read(path string, opt Options) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	if opt.Delimiter == 0 && sniffDelimiter(path) == '\t' {
		opt.Delimiter = '\t'
	}
	return ReadCSV(f, filepath.Base(path), opt)
}

// ReadCSV reads delimited text with a header row from r.
func ReadCSV(r io.Reader, name string, opt Options) (*Dataset, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	delim := opt.Delimiter
	if delim == 0 {
		head, _ := br.Peek(br.Size())
		if i := bytes.IndexByte(head, '\n'); i >= 0 {
			head = head[:i]
		}
		delim = sniffLine(string(head))
	}
	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true
	cr.Comma = delim

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return empty(name), nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	line := 1
	next := func() ([]string, bool, error) {
		rec, err := cr.Read()
		line++
		if errors.Is(err, io.EOF) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("line %d: %w", line, err)
		}
		return rec, true, nil
	}
	return build(name, header, next, opt)
}
