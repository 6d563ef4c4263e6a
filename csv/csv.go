// Package csv reads and writes delimited text datasets.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fwojciec/edabot"
)

// Delimiters for the supported formats.
const (
	Comma = ','
	Tab   = '\t'
)

// Parse reads a delimited dataset. The first record is the header. Rows
// shorter than the header are padded with empty cells; longer rows are an
// error. A UTF-8 byte order mark before the header is dropped.
func Parse(r io.Reader, delim rune) (*edabot.Dataset, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("csv: missing header row: %w", edabot.ErrNoDataset)
	}
	if err != nil {
		return nil, fmt.Errorf("csv: %w: %w", edabot.ErrNoDataset, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}

	ds := &edabot.Dataset{Columns: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: %w: %w", edabot.ErrNoDataset, err)
		}
		if len(rec) > len(header) {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("csv: line %d has %d fields, header has %d: %w",
				line, len(rec), len(header), edabot.ErrNoDataset)
		}
		for len(rec) < len(header) {
			rec = append(rec, "")
		}
		ds.Rows = append(ds.Rows, rec)
	}
	return ds, nil
}

// Write encodes ds as comma-separated text with a header row.
func Write(w io.Writer, ds *edabot.Dataset) error {
	if ds == nil {
		return fmt.Errorf("csv: nil dataset")
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(ds.Columns); err != nil {
		return fmt.Errorf("csv: %w", err)
	}
	if err := cw.WriteAll(ds.Rows); err != nil {
		return fmt.Errorf("csv: %w", err)
	}
	return nil
}
