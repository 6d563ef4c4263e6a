// Package excelize reads xlsx workbooks into datasets.
package excelize

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/fwojciec/edabot"
)

// Parse reads the first non-empty sheet of an xlsx workbook. The first row
// is the header; trailing empty cells that the workbook omits are restored
// as empty strings.
func Parse(r io.Reader) (*edabot.Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("excelize: %w: %w", edabot.ErrNoDataset, err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("excelize: sheet %q: %w: %w", sheet, edabot.ErrNoDataset, err)
		}
		if len(rows) == 0 {
			continue
		}
		return toDataset(rows), nil
	}
	return nil, fmt.Errorf("excelize: workbook has no data: %w", edabot.ErrNoDataset)
}

func toDataset(rows [][]string) *edabot.Dataset {
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	header := pad(rows[0], width)
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		header[i] = h
	}
	ds := &edabot.Dataset{Columns: header}
	for _, r := range rows[1:] {
		ds.Rows = append(ds.Rows, pad(r, width))
	}
	return ds
}

func pad(r []string, n int) []string {
	out := make([]string, n)
	copy(out, r)
	return out
}
