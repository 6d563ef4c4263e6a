package edabot

import "context"

// Dataset is an in-memory table: ordered, named columns and ordered rows.
// Cells are kept as the text they were parsed from; typing is left to the
// interpreter that receives the dataset.
type Dataset struct {
	Columns []string
	Rows    [][]string
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// Head returns up to n leading rows. The returned slice shares storage with
// the dataset and must not be modified.
func (d *Dataset) Head(n int) [][]string {
	if d == nil || n <= 0 {
		return nil
	}
	if n > len(d.Rows) {
		n = len(d.Rows)
	}
	return d.Rows[:n]
}

// DatasetLoader resolves an attachment into a Dataset. Implementations return
// an error wrapping ErrNoDataset on any retrieval or parse failure.
type DatasetLoader interface {
	Load(ctx context.Context, a Attachment) (*Dataset, error)
}
