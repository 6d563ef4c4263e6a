package markdown_test

import (
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/edabot"
	"github.com/fwojciec/edabot/markdown"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ansiRE = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func stripANSI(s string) string {
	return ansiRE.ReplaceAllString(s, "")
}

func TestMain(m *testing.M) {
	// Force color output so styled and plain renders differ.
	lipgloss.SetColorProfile(termenv.ANSI)
	os.Exit(m.Run())
}

func TestRender(t *testing.T) {
	t.Parallel()

	theme := markdown.DefaultTheme()

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "", markdown.Render("", 80, theme))
	})

	t.Run("heading is styled", func(t *testing.T) {
		t.Parallel()
		heading := markdown.Render("# Title", 80, theme)
		paragraph := markdown.Render("Title", 80, theme)
		assert.Contains(t, stripANSI(heading), "Title")
		assert.NotEqual(t, heading, paragraph)
	})

	t.Run("analysis output keeps its alignment", func(t *testing.T) {
		t.Parallel()
		src := "```\n   a  b\n0  1  4\n1  2  5\n```"
		got := stripANSI(markdown.Render(src, 10, theme))
		assert.Contains(t, got, "│    a  b")
		assert.Contains(t, got, "│ 0  1  4")
	})

	t.Run("fenced code shows language", func(t *testing.T) {
		t.Parallel()
		got := stripANSI(markdown.Render("```python\nresult = df.sum()\n```", 80, theme))
		assert.Contains(t, got, "python")
		assert.Contains(t, got, "result = df.sum()")
	})

	t.Run("paragraph wraps", func(t *testing.T) {
		t.Parallel()
		got := markdown.Render("one two three four five six seven eight nine ten eleven twelve", 20, theme)
		assert.Greater(t, len(strings.Split(got, "\n")), 1)
		assert.Contains(t, stripANSI(got), "twelve")
	})

	t.Run("lists", func(t *testing.T) {
		t.Parallel()
		got := stripANSI(markdown.Render("3. first\n4. second\n\n- outer\n  - inner", 80, theme))
		assert.Contains(t, got, "3. first")
		assert.Contains(t, got, "4. second")
		assert.Contains(t, got, "- outer")
		assert.Contains(t, got, "  - inner")
	})

	t.Run("list continuation lines are indented", func(t *testing.T) {
		t.Parallel()
		got := stripANSI(markdown.Render("- a very long list item that has to wrap onto further lines", 24, theme))
		lines := strings.Split(got, "\n")
		require.Greater(t, len(lines), 1)
		assert.True(t, strings.HasPrefix(lines[0], "- "))
		for _, l := range lines[1:] {
			if strings.TrimSpace(l) != "" {
				assert.True(t, strings.HasPrefix(l, "  "), "continuation not indented: %q", l)
			}
		}
	})

	t.Run("table columns are aligned", func(t *testing.T) {
		t.Parallel()
		src := "| name | total |\n|---|---:|\n| a | 6 |\n| long name | 15 |"
		got := stripANSI(markdown.Render(src, 80, theme))
		lines := strings.Split(got, "\n")
		require.Len(t, lines, 4)
		assert.Equal(t, "name      │ total", lines[0])
		assert.Equal(t, "a         │     6", lines[2])
		assert.Equal(t, "long name │    15", lines[3])
	})

	t.Run("chart image shows its link", func(t *testing.T) {
		t.Parallel()
		got := stripANSI(markdown.Render("![chart](https://i.example/c.png)", 80, theme))
		assert.Contains(t, got, "chart:")
		assert.Contains(t, got, "https://i.example/c.png")
	})

	t.Run("link", func(t *testing.T) {
		t.Parallel()
		got := stripANSI(markdown.Render("[docs](https://example.com)", 80, theme))
		assert.Contains(t, got, "docs (https://example.com)")
	})

	t.Run("zero width defaults to 80", func(t *testing.T) {
		t.Parallel()
		assert.Contains(t, stripANSI(markdown.Render("hello world", 0, theme)), "hello world")
	})
}

func TestRenderEnvelope(t *testing.T) {
	t.Parallel()
	theme := markdown.DefaultTheme()

	answered := markdown.RenderEnvelope(edabot.Envelope{Text: "done", Outcome: edabot.OutcomeAnswered}, 80, theme)
	assert.NotContains(t, stripANSI(answered), "[answered]")

	failed := stripANSI(markdown.RenderEnvelope(edabot.FormatNoAttachment(), 80, theme))
	assert.True(t, strings.HasPrefix(failed, "[no_attachment]"))
}
