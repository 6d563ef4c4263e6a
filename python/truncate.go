package python

import (
	"strings"
	"unicode/utf8"
)

// TruncateTail keeps the last maxLines lines of s, further bounded to
// maxBytes. A cut never splits a UTF-8 sequence. The second return value
// reports whether anything was removed.
func TruncateTail(s string, maxLines, maxBytes int) (string, bool) {
	s = strings.TrimRight(s, "\n")
	truncated := false

	if maxLines > 0 {
		lines := strings.Split(s, "\n")
		if len(lines) > maxLines {
			s = strings.Join(lines[len(lines)-maxLines:], "\n")
			truncated = true
		}
	}
	if maxBytes > 0 && len(s) > maxBytes {
		cut := len(s) - maxBytes
		if s[cut-1] != '\n' {
			// Mid-line: drop the partial line unless it is the only one left.
			if i := strings.IndexByte(s[cut:], '\n'); i >= 0 {
				cut += i + 1
			} else {
				for cut < len(s) && !utf8.RuneStart(s[cut]) {
					cut++
				}
			}
		}
		s = s[cut:]
		truncated = true
	}
	return s, truncated
}
