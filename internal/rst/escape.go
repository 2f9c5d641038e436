package rst

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dgallion1/xml2rst/internal/adornment"
	"github.com/mattn/go-runewidth"
)

// escapeText backslash-escapes characters that would start or end inline
// markup in plain text.
func escapeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i, r := range s {
		switch r {
		case '\\', '*', '`', '|':
			b.WriteByte('\\')
		case '_':
			next, _ := utf8.DecodeRuneInString(s[i+1:])
			if i+1 == len(s) || !isWordRune(next) {
				b.WriteByte('\\')
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// startPrecedes reports whether inline markup may start right after r.
func startPrecedes(r rune) bool {
	if unicode.IsSpace(r) || strings.ContainsRune(`-:/'"<([{`, r) {
		return true
	}
	return r >= utf8.RuneSelf && unicode.In(r, unicode.Pd, unicode.Po, unicode.Pi, unicode.Pf, unicode.Ps)
}

// endFollows reports whether r may directly follow the end of inline markup.
func endFollows(r rune) bool {
	if unicode.IsSpace(r) || strings.ContainsRune(`-.,:;!?\/'")]}>`, r) {
		return true
	}
	return r >= utf8.RuneSelf && unicode.In(r, unicode.Pd, unicode.Po, unicode.Pi, unicode.Pf, unicode.Pe)
}

var (
	// Paragraph openings the reST parser would read as another construct.
	constructStart = regexp.MustCompile(`^(?:` +
		`[-+•‣⁃](?: |$)` + // bullet
		`|\(?(?:\d+|[A-Za-z]|[ivxlcdmIVXLCDM]+|#)[.)](?: |$)` + // enumerator
		`|\.\.(?: |$)` + // explicit markup
		`|:[^: ][^:]*:(?: |$)` + // field
		`|>>>(?: |$)` + // doctest
		`|--?[A-Za-z0-9]` + // option
		`|(?:--|---|—)(?: |$)` + // attribution
		`)`)
)

// isPunctuationLine reports whether line repeats one ASCII punctuation
// character at least twice, the shape of a section adornment.
func isPunctuationLine(line string) bool {
	if len(line) < 2 || !strings.ContainsRune(adornment.Characters, rune(line[0])) {
		return false
	}
	return strings.Count(line, line[:1]) == len(line)
}

// isShortUnderline reports whether a one character punctuation line would
// underline the line above it.
func isShortUnderline(line, above string) bool {
	return len(line) == 1 && strings.ContainsRune(adornment.Characters, rune(line[0])) &&
		runewidth.StringWidth(above) <= 1
}

// guardStart escapes a single line, such as a title or a term, that would
// otherwise open a list, field, directive or other construct.
func guardStart(line string) string {
	if constructStart.MatchString(line) {
		return `\` + line
	}
	return line
}

// guardLines escapes paragraph lines that would otherwise parse as a list,
// field, directive, section underline, transition or literal block marker.
func guardLines(lines []string) []string {
	if len(lines) == 0 {
		return lines
	}
	if constructStart.MatchString(lines[0]) {
		lines[0] = `\` + lines[0]
	}
	for i, line := range lines {
		if isPunctuationLine(line) || (i > 0 && isShortUnderline(line, lines[i-1])) {
			lines[i] = `\` + line
		}
	}
	last := len(lines) - 1
	if strings.HasSuffix(lines[last], "::") {
		l := lines[last]
		lines[last] = l[:len(l)-1] + `\:`
	}
	return lines
}

// escapeName quotes a target or reference name when it contains characters
// the bare form cannot carry.
func escapeName(name string) string {
	if name == "" || strings.ContainsAny(name, ":`") || strings.HasPrefix(name, "_") {
		return "`" + strings.ReplaceAll(name, "`", "\\`") + "`"
	}
	return name
}

// splitNames splits a docutils names attribute. Names are separated by
// spaces; spaces inside a name are backslash-escaped.
func splitNames(attr string) []string {
	var names []string
	var cur strings.Builder
	escaped := false
	for _, r := range attr {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == ' ':
			if cur.Len() > 0 {
				names = append(names, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		names = append(names, cur.String())
	}
	return names
}

func firstName(attr string) string {
	if names := splitNames(attr); len(names) > 0 {
		return names[0]
	}
	return ""
}
