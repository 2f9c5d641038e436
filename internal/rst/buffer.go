package rst

import (
	"io"
	"strings"
)

// Buffer holds rendered output lines. It only grows.
type Buffer struct {
	lines []string
}

func (b *Buffer) add(line string) {
	b.lines = append(b.lines, strings.TrimRight(line, " \t"))
}

// blank adds a separating empty line unless the output is empty or already
// ends with one.
func (b *Buffer) blank() {
	if n := len(b.lines); n > 0 && b.lines[n-1] != "" {
		b.lines = append(b.lines, "")
	}
}

// Len returns the number of lines.
func (b *Buffer) Len() int {
	return len(b.lines)
}

// Lines returns a copy of the output lines.
func (b *Buffer) Lines() []string {
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

// String returns the output text, terminated by a single newline.
func (b *Buffer) String() string {
	if len(b.lines) == 0 {
		return ""
	}
	return strings.Join(b.lines, "\n") + "\n"
}

// WriteTo writes the output text to w.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}
