package python

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Sanitize strips ANSI escape sequences and control characters from
// interpreter output. Tabs and newlines survive, CRLF becomes LF, and a lone
// CR rewinds to the start of its line the way a terminal would (progress bars
// collapse to their final state).
func Sanitize(s string) string {
	s = ansi.Strip(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
	if !strings.ContainsRune(s, '\r') {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = overwrite(line)
	}
	return strings.Join(lines, "\n")
}

// overwrite replays the CR-separated segments of line on top of each other.
func overwrite(line string) string {
	var out []rune
	for _, seg := range strings.Split(line, "\r") {
		for j, r := range []rune(seg) {
			if j < len(out) {
				out[j] = r
			} else {
				out = append(out, r)
			}
		}
	}
	return string(out)
}
