package markdown

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

type renderer struct {
	bold      lipgloss.Style
	italic    lipgloss.Style
	accent    lipgloss.Style
	muted     lipgloss.Style
	underline lipgloss.Style
	err       lipgloss.Style
}

func newRenderer(theme Theme) *renderer {
	return &renderer{
		bold:      lipgloss.NewStyle().Bold(true),
		italic:    lipgloss.NewStyle().Italic(true),
		accent:    lipgloss.NewStyle().Foreground(color(theme.Accent)).Bold(true),
		muted:     lipgloss.NewStyle().Foreground(color(theme.Muted)).Faint(true),
		underline: lipgloss.NewStyle().Underline(true),
		err:       lipgloss.NewStyle().Foreground(color(theme.Error)).Bold(true),
	}
}

func color(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}

func (r *renderer) render(source []byte, width int) string {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	doc := md.Parser().Parse(text.NewReader(source))

	var buf bytes.Buffer
	for c := doc.FirstChild(); c != nil; c = c.NextSibling() {
		r.block(c, source, width, &buf)
		if c.NextSibling() != nil {
			buf.WriteString("\n")
		}
	}
	return strings.TrimRight(buf.String(), "\n")
}

func (r *renderer) block(node ast.Node, source []byte, width int, buf *bytes.Buffer) {
	switch n := node.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		buf.WriteString(lipgloss.NewStyle().Width(width).Render(r.inline(n, source)))
		buf.WriteString("\n")

	case *ast.Heading:
		buf.WriteString(lipgloss.NewStyle().Width(width).Render(r.accent.Render(r.inline(n, source))))
		buf.WriteString("\n")

	case *ast.FencedCodeBlock:
		if lang := string(n.Language(source)); lang != "" {
			buf.WriteString(r.muted.Render(lang))
			buf.WriteString("\n")
		}
		r.codeLines(n.Lines(), source, buf)

	case *ast.CodeBlock:
		r.codeLines(n.Lines(), source, buf)

	case *ast.List:
		r.list(n, source, width, 0, buf)

	case *east.Table:
		r.table(n, source, buf)

	case *ast.ThematicBreak:
		buf.WriteString(r.muted.Render(strings.Repeat("─", min(width, 40))))
		buf.WriteString("\n")

	case *ast.HTMLBlock:
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(source))
		}

	default:
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			r.block(c, source, width, buf)
		}
	}
}

// codeLines writes code verbatim behind a muted gutter. Analysis output is
// column-aligned text, so it is never wrapped.
func (r *renderer) codeLines(lines *text.Segments, source []byte, buf *bytes.Buffer) {
	gutter := r.muted.Render("│") + " "
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		line := strings.TrimRight(string(seg.Value(source)), "\n")
		buf.WriteString(gutter + line + "\n")
	}
}

func (r *renderer) list(n *ast.List, source []byte, width, depth int, buf *bytes.Buffer) {
	num := n.Start
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		marker := "- "
		if n.IsOrdered() {
			marker = fmt.Sprintf("%d. ", num)
			num++
		}
		prefix := strings.Repeat("  ", depth) + marker

		var content strings.Builder
		for ic := c.FirstChild(); ic != nil; ic = ic.NextSibling() {
			if sub, ok := ic.(*ast.List); ok {
				r.listItem(prefix, content.String(), width, buf)
				content.Reset()
				prefix = strings.Repeat(" ", len(prefix))
				r.list(sub, source, width, depth+1, buf)
				continue
			}
			content.WriteString(r.inline(ic, source))
		}
		if content.Len() > 0 {
			r.listItem(prefix, content.String(), width, buf)
		}
	}
}

// listItem wraps content so continuation lines align under the first.
func (r *renderer) listItem(prefix, content string, width int, buf *bytes.Buffer) {
	if content == "" {
		return
	}
	w := max(width-len(prefix), 10)
	pad := strings.Repeat(" ", len(prefix))
	for i, line := range strings.Split(lipgloss.NewStyle().Width(w).Render(content), "\n") {
		if i == 0 {
			buf.WriteString(prefix + line + "\n")
		} else {
			buf.WriteString(pad + line + "\n")
		}
	}
}

// table lays out a GFM table with columns padded to their widest cell.
func (r *renderer) table(n *east.Table, source []byte, buf *bytes.Buffer) {
	var rows [][]string
	for row := n.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, r.inline(cell, source))
		}
		rows = append(rows, cells)
	}

	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	sep := r.muted.Render(" │ ")
	for ri, row := range rows {
		parts := make([]string, len(widths))
		for i := range widths {
			var cell string
			if i < len(row) {
				cell = row[i]
			}
			align := east.AlignNone
			if i < len(n.Alignments) {
				align = n.Alignments[i]
			}
			parts[i] = pad(cell, widths[i], align)
		}
		line := strings.Join(parts, sep)
		if ri == 0 {
			line = r.bold.Render(line)
		}
		buf.WriteString(strings.TrimRight(line, " ") + "\n")
		if ri == 0 {
			rules := make([]string, len(widths))
			for i, w := range widths {
				rules[i] = strings.Repeat("─", w)
			}
			buf.WriteString(r.muted.Render(strings.Join(rules, "─┼─")) + "\n")
		}
	}
}

func pad(cell string, width int, align east.Alignment) string {
	gap := width - lipgloss.Width(cell)
	if gap <= 0 {
		return cell
	}
	switch align {
	case east.AlignRight:
		return strings.Repeat(" ", gap) + cell
	case east.AlignCenter:
		return strings.Repeat(" ", gap/2) + cell + strings.Repeat(" ", gap-gap/2)
	default:
		return cell + strings.Repeat(" ", gap)
	}
}

func (r *renderer) inline(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		r.span(c, source, &buf)
	}
	return buf.String()
}

func (r *renderer) span(node ast.Node, source []byte, buf *bytes.Buffer) {
	switch n := node.(type) {
	case *ast.Text:
		buf.Write(n.Segment.Value(source))
		switch {
		case n.HardLineBreak():
			buf.WriteByte('\n')
		case n.SoftLineBreak():
			buf.WriteByte(' ')
		}

	case *ast.String:
		buf.Write(n.Value)

	case *ast.Emphasis:
		inner := r.inline(n, source)
		if n.Level == 1 {
			buf.WriteString(r.italic.Render(inner))
		} else {
			buf.WriteString(r.bold.Render(inner))
		}

	case *ast.CodeSpan:
		buf.WriteString(r.bold.Render(r.inline(n, source)))

	case *ast.Link:
		buf.WriteString(r.underline.Render(r.inline(n, source)))
		buf.WriteString(" " + r.muted.Render("("+string(n.Destination)+")"))

	case *ast.Image:
		// Charts are hosted remotely; show where to find them.
		buf.WriteString(r.accent.Render(r.inline(n, source)+":"))
		buf.WriteString(" " + r.underline.Render(string(n.Destination)))

	case *ast.AutoLink:
		buf.WriteString(r.underline.Render(string(n.URL(source))))

	case *ast.RawHTML:
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			buf.Write(seg.Value(source))
		}

	default:
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			r.span(c, source, buf)
		}
	}
}
