package edabot

import (
	"regexp"
	"strings"
)

// CodeUnit is the executable code assembled from a completion.
type CodeUnit string

// IsEmpty reports whether the unit contains nothing but whitespace.
func (c CodeUnit) IsEmpty() bool {
	return strings.TrimSpace(string(c)) == ""
}

// fencePattern matches ``` fenced sections non-greedily. A fenced block
// opens with ``` and any info string up to the end of its line, so every
// opening fence is paired with the next closing one. Group 1 is the
// indentation of a fence that starts a line, group 2 the info string and
// group 3 the enclosed text. Group 4 holds the body of a fence opened and
// closed on the same line.
var fencePattern = regexp.MustCompile("(?ms)(^[ \t]*)?(?:```([^\n`]*)\n(.*?)```|```([^\n`]+)```)")

// languageAliases lists the fence tags honored for each target language.
var languageAliases = map[string][]string{
	"python": {"python", "py", "python3"},
}

// ExtractCode returns the concatenation, in order of appearance, of every
// fenced section that is either untagged or tagged as lang. The tag is the
// first word of the info string. Sections tagged with another language are
// skipped. No separator is inserted between sections. A fence opened and
// closed on one line is untagged and contributes its text as one line.
// Bodies of indented fences lose that indentation. Text without a matching
// section yields an empty unit.
func ExtractCode(text, lang string) CodeUnit {
	var b strings.Builder
	for _, m := range fencePattern.FindAllStringSubmatch(text, -1) {
		if m[4] != "" {
			b.WriteString(strings.TrimSpace(m[4]))
			b.WriteByte('\n')
			continue
		}
		if !tagMatches(infoTag(m[2]), lang) {
			continue
		}
		b.WriteString(dedent(m[3], len(m[1])))
	}
	return CodeUnit(b.String())
}

// infoTag returns the first word of a fence info string.
func infoTag(info string) string {
	fields := strings.Fields(info)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// dedent removes up to width leading blanks from every line of body.
func dedent(body string, width int) string {
	if width == 0 {
		return body
	}
	lines := strings.SplitAfter(body, "\n")
	for i, line := range lines {
		n := 0
		for n < width && n < len(line) && (line[n] == ' ' || line[n] == '\t') {
			n++
		}
		lines[i] = line[n:]
	}
	return strings.Join(lines, "")
}

func tagMatches(tag, lang string) bool {
	if tag == "" {
		return true
	}
	tag = strings.ToLower(tag)
	aliases, ok := languageAliases[lang]
	if !ok {
		return tag == strings.ToLower(lang)
	}
	for _, a := range aliases {
		if tag == a {
			return true
		}
	}
	return false
}
