package edabot

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Names bound in the interpreter scope and referenced by the prompts.
const (
	DatasetBinding = "df"
	ResultBinding  = "result"
	FigureBinding  = "fig"

	// PlotMarker is the opt-in token that enables chart export when present
	// anywhere in the user's query.
	PlotMarker = "--plot"

	// MaxResultRows bounds the tabular result the model is asked to produce.
	MaxResultRows = 20

	// DefaultPreviewRows is the number of head rows shown to the model.
	DefaultPreviewRows = 5

	maxPreviewCellWidth = 24
)

// SystemPrompt describes the execution contract to the model.
var SystemPrompt = fmt.Sprintf(`You are a data analysis assistant. You answer questions about a dataset by writing Python code that will be executed for you.

Rules for the code you write:
- You may only use these capabilities, which are already imported: pandas as pd (tabular manipulation), numpy as np (numeric operations) and matplotlib.pyplot as plt (charting).
- Do not import any other module and do not read or write files or access the network.
- The dataset is already loaded as a pandas DataFrame named %[1]s. Do not load it again.
- Emit exactly one code block, fenced as `+"```python"+`, containing all of the code as a single contiguous unit.
- After the code block, explain the result in plain language.`, DatasetBinding)

// HasPlotMarker reports whether the query opts into chart export.
func HasPlotMarker(query string) bool {
	return strings.Contains(query, PlotMarker)
}

// InjectSystemTurn returns conv with a system turn carrying SystemPrompt
// prepended, unless the first turn already is a system turn.
func InjectSystemTurn(conv Conversation) Conversation {
	if len(conv) > 0 && conv[0].Role == RoleSystem {
		return conv
	}
	out := make(Conversation, 0, len(conv)+1)
	out = append(out, Turn{Role: RoleSystem, Content: SystemPrompt})
	return append(out, conv...)
}

// RewriteLatestUserTurn replaces the content of the newest user turn with the
// composed query prompt. It mutates conv in place and returns the original
// query text. No turn is added or removed.
func RewriteLatestUserTurn(conv Conversation, ds *Dataset, previewRows int) (string, error) {
	i := LatestUserTurn(conv)
	if i < 0 {
		return "", fmt.Errorf("conversation has no user turn: %w", ErrValidation)
	}
	query := conv[i].Content
	conv[i].Content = ComposeQuery(query, ds, previewRows)
	return query, nil
}

// ComposeQuery builds the per-query prompt: the literal query, the dataset's
// columns and a preview of its head rows, followed by the output contract.
func ComposeQuery(query string, ds *Dataset, previewRows int) string {
	if previewRows <= 0 {
		previewRows = DefaultPreviewRows
	}
	var cols []string
	if ds != nil {
		cols = ds.Columns
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\n", strings.TrimSpace(query))
	fmt.Fprintf(&b, "The DataFrame %s has %d rows and these columns: %s\n\n",
		DatasetBinding, ds.Len(), strings.Join(quoteAll(cols), ", "))
	fmt.Fprintf(&b, "First rows of %s:\n", DatasetBinding)
	b.WriteString(PreviewTable(ds, previewRows))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Assign any tabular answer to a variable named %s and truncate it to at most %d rows. "+
		"A plain string answer may also be assigned to %s.\n", ResultBinding, MaxResultRows, ResultBinding)
	fmt.Fprintf(&b, "If you draw a chart, first create the figure with `%s, ax = plt.subplots()` and only then add titles and labels. "+
		"Never call plt.show().", FigureBinding)
	return b.String()
}

// PreviewTable renders the first n rows of ds as a fixed-width text table.
// A dataset without rows renders its header followed by "(no rows)".
func PreviewTable(ds *Dataset, n int) string {
	if ds == nil || len(ds.Columns) == 0 {
		return "(no columns)"
	}
	rows := ds.Head(n)

	widths := make([]int, len(ds.Columns))
	for i, c := range ds.Columns {
		widths[i] = cellWidth(c)
	}
	for _, r := range rows {
		for i := range widths {
			if i < len(r) {
				widths[i] = max(widths[i], cellWidth(r[i]))
			}
		}
	}

	var b strings.Builder
	writeRow(&b, ds.Columns, widths)
	for i, w := range widths {
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(strings.Repeat("-", w))
	}
	if len(rows) == 0 {
		b.WriteString("\n(no rows)")
		return b.String()
	}
	for _, r := range rows {
		b.WriteByte('\n')
		writeRow(&b, r, widths)
	}
	return b.String()
}

func writeRow(b *strings.Builder, cells []string, widths []int) {
	for i, w := range widths {
		if i > 0 {
			b.WriteString("  ")
		}
		var cell string
		if i < len(cells) {
			cell = runewidth.Truncate(cells[i], maxPreviewCellWidth, "…")
		}
		if i == len(widths)-1 {
			b.WriteString(cell)
			continue
		}
		b.WriteString(runewidth.FillRight(cell, w))
	}
}

func cellWidth(s string) int {
	return min(runewidth.StringWidth(s), maxPreviewCellWidth)
}

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}
