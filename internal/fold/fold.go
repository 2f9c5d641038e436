// Package fold reflows plain text into lines of bounded width.
package fold

import (
	"iter"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Normalize collapses every run of whitespace, newlines included, into a
// single space and trims both ends.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Lines yields the lines of text. With width <= 0 folding is off and the
// text is yielded as is, split at its own line breaks. Otherwise the text is
// whitespace-normalized and words are packed greedily so no line exceeds
// width columns, unless the line holds a single longer word. Words are
// never split. Empty text yields nothing.
func Lines(text string, width int) iter.Seq[string] {
	return func(yield func(string) bool) {
		if text == "" {
			return
		}
		if width <= 0 {
			for _, line := range strings.Split(text, "\n") {
				if !yield(line) {
					return
				}
			}
			return
		}

		var line strings.Builder
		lineWidth := 0
		for _, word := range strings.Fields(text) {
			w := runewidth.StringWidth(word)
			if lineWidth > 0 && lineWidth+1+w > width {
				if !yield(line.String()) {
					return
				}
				line.Reset()
				lineWidth = 0
			}
			if lineWidth > 0 {
				line.WriteByte(' ')
				lineWidth++
			}
			line.WriteString(word)
			lineWidth += w
		}
		if lineWidth > 0 {
			yield(line.String())
		}
	}
}

// Collect gathers the folded lines into a slice.
func Collect(text string, width int) []string {
	var out []string
	for line := range Lines(text, width) {
		out = append(out, line)
	}
	return out
}
