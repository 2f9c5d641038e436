package rst

import (
	"strconv"
	"strings"

	"github.com/dgallion1/xml2rst/internal/doctree"
)

var romanNumerals = []struct {
	value  int
	symbol string
}{
	{1000, "M"}, {900, "CM"}, {500, "D"}, {400, "CD"},
	{100, "C"}, {90, "XC"}, {50, "L"}, {40, "XL"},
	{10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"},
}

func toRoman(n int) string {
	var b strings.Builder
	for _, r := range romanNumerals {
		for n >= r.value {
			b.WriteString(r.symbol)
			n -= r.value
		}
	}
	return b.String()
}

// enumerator formats ordinal n in the given docutils enumtype.
func enumerator(enumtype string, n int) (string, bool) {
	switch enumtype {
	case "", "arabic":
		return strconv.Itoa(n), true
	case "loweralpha", "upperalpha":
		if n < 1 || n > 26 {
			return "", false
		}
		s := string(rune('a' + n - 1))
		if enumtype == "upperalpha" {
			s = strings.ToUpper(s)
		}
		return s, true
	case "lowerroman", "upperroman":
		if n < 1 || n > 3999 {
			return "", false
		}
		s := toRoman(n)
		if enumtype == "lowerroman" {
			s = strings.ToLower(s)
		}
		return s, true
	}
	return "", false
}

// enumMarkers builds the item markers of an enumerated list, such as "3. "
// or "(c) ". When an ordinal cannot be written in the list's enumtype the
// whole list falls back to arabic numbers and ok is false.
func enumMarkers(n *doctree.Node, count int) (markers []string, ok bool) {
	enumtype := n.Attr("enumtype")
	prefix := n.Attr("prefix")
	suffix := n.Attr("suffix")
	if !n.HasAttr("suffix") {
		suffix = "."
	}
	start := 1
	if v, err := strconv.Atoi(n.Attr("start")); err == nil {
		start = v
	}

	build := func(enumtype string) ([]string, bool) {
		out := make([]string, count)
		for i := range out {
			label, ok := enumerator(enumtype, start+i)
			if !ok {
				return nil, false
			}
			out[i] = prefix + label + suffix + " "
		}
		return out, true
	}

	if markers, ok := build(enumtype); ok {
		return markers, true
	}
	markers, _ = build("arabic")
	return markers, false
}
