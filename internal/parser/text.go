package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/xml2rst/internal/doctree"
)

// TextParser handles plain text files. Blank lines separate paragraphs;
// line breaks inside a paragraph are kept.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.Node, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs []string
	var current strings.Builder

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		} else {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(line)
		}
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	b := newBuilder(filename)
	for _, para := range paragraphs {
		b.add(doctree.Elem("paragraph", doctree.Text(para)))
	}
	return b.done(), nil
}
