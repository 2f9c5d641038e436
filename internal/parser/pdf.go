package parser

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/dgallion1/xml2rst/internal/doctree"
	pdflib "github.com/ledongthuc/pdf"
)

// PDFParser handles PDF files. It tries the Go library first,
// then falls back to pdftotext if available. Each page becomes a section.
type PDFParser struct {
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*doctree.Node, error) {
	// ledongthuc/pdf requires a ReadSeeker+size, so we write to a temp file.
	tmp, err := os.CreateTemp("", "xml2rst-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	text, err := extractPDFText(tmpPath)
	if err != nil && p.FallbackPdftotext {
		text, err = extractPdftotext(tmpPath)
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}
	return pdfTree(text, filename), nil
}

// pdfTree builds a document from form-feed separated page text. A single
// page needs no section.
func pdfTree(text, filename string) *doctree.Node {
	b := newBuilder(filename)
	pages := splitPages(text)
	var nonEmpty int
	for _, page := range pages {
		if strings.TrimSpace(page) != "" {
			nonEmpty++
		}
	}

	for i, page := range pages {
		paras := pageParagraphs(page)
		if len(paras) == 0 {
			continue
		}
		if nonEmpty > 1 {
			b.heading(1, []*doctree.Node{doctree.Text(fmt.Sprintf("Page %d", i+1))})
		}
		b.add(paras...)
	}
	// Page sections are navigation, not a document title.
	return b.doc
}

// pageParagraphs splits page text on blank lines.
func pageParagraphs(page string) []*doctree.Node {
	var out []*doctree.Node
	var current []string
	flush := func() {
		if len(current) > 0 {
			out = append(out, doctree.Elem("paragraph", doctree.Text(strings.Join(current, "\n"))))
			current = nil
		}
	}
	for _, line := range strings.Split(page, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return out
}

func extractPDFText(path string) (string, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if i > 1 {
			buf.WriteString("\f") // Form feed as page separator.
		}
		buf.WriteString(text)
	}
	return buf.String(), nil
}

func extractPdftotext(path string) (string, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}

func splitPages(text string) []string {
	return strings.Split(text, "\f")
}
