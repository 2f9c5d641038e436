// Package parser turns source documents of several formats into docutils
// document trees that the reST renderer can walk.
package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"unicode"

	"github.com/dgallion1/xml2rst/internal/doctree"
)

// Parser converts raw document bytes into a docutils document tree.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.Node, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".xml":      true,
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// Formats lists the names accepted by ForFormat.
var Formats = []string{"xml", "txt", "md", "csv", "html", "pdf", "docx"}

// ForFormat returns the parser for a format name such as "md" or "docx".
func ForFormat(format string) (Parser, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "xml", "docutils":
		return &XMLParser{}, nil
	case "txt", "text":
		return &TextParser{}, nil
	case "md", "markdown":
		return &MarkdownParser{}, nil
	case "csv":
		return &CSVParser{}, nil
	case "html", "htm":
		return &HTMLParser{}, nil
	case "pdf":
		return &PDFParser{FallbackPdftotext: true}, nil
	case "docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %q", format)
	}
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !SupportedExtensions[ext] {
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
	return ForFormat(ext)
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

type stackEntry struct {
	node  *doctree.Node
	level int
}

// builder nests sections under a document by heading level.
type builder struct {
	doc   *doctree.Node
	stack []stackEntry
}

func newBuilder(filename string) *builder {
	doc := doctree.Elem("document")
	if filename != "" {
		doc.WithAttr("source", filename)
	}
	return &builder{doc: doc, stack: []stackEntry{{node: doc, level: 0}}}
}

// heading opens a section at level, closing any open section at the same
// level or deeper.
func (b *builder) heading(level int, title []*doctree.Node) {
	for len(b.stack) > 1 && b.stack[len(b.stack)-1].level >= level {
		b.stack = b.stack[:len(b.stack)-1]
	}
	sec := doctree.Elem("section", doctree.Elem("title", title...))
	if text := inlineText(title); text != "" {
		sec.WithAttr("ids", slug(text)).WithAttr("names", refName(text))
	}
	b.add(sec)
	b.stack = append(b.stack, stackEntry{node: sec, level: level})
}

// add appends body elements to the innermost open section.
func (b *builder) add(nodes ...*doctree.Node) {
	top := b.stack[len(b.stack)-1].node
	for _, n := range nodes {
		if n != nil {
			top.Append(n)
		}
	}
}

// done returns the document, promoting a lone leading section to the
// document title.
func (b *builder) done() *doctree.Node {
	promoteTitle(b.doc)
	return b.doc
}

// promoteTitle lifts the title of the first section into the document
// when that section is the only one at the top level.
func promoteTitle(doc *doctree.Node) {
	if doc.FirstChild("title") != nil || len(doc.Children) == 0 {
		return
	}
	first := doc.Children[0]
	if first.Role != "section" {
		return
	}
	for _, ch := range doc.Children[1:] {
		if ch.Role == "section" {
			return
		}
	}
	children := append([]*doctree.Node{}, first.Children...)
	children = append(children, doc.Children[1:]...)
	doc.Children = children
	if ids := first.Attr("ids"); ids != "" {
		doc.WithAttr("ids", ids).WithAttr("names", first.Attr("names"))
	}
}

// paragraph wraps inline nodes, or returns nil when they hold no text.
func paragraph(inlines []*doctree.Node) *doctree.Node {
	if inlineText(inlines) == "" && !slices.ContainsFunc(inlines, isImage) {
		return nil
	}
	return doctree.Elem("paragraph", inlines...)
}

func isImage(n *doctree.Node) bool {
	return n.Role == "image"
}

// literalBlock builds a preserved literal block, tagged as code when lang
// is known.
func literalBlock(text, lang string) *doctree.Node {
	n := doctree.Elem("literal_block", doctree.Text(strings.TrimRight(text, "\n"))).
		WithAttr("xml:space", "preserve")
	if lang != "" {
		n.WithAttr("classes", "code "+lang)
	}
	return n
}

// appendInline adds n to nodes, merging adjacent text and adjacent spans of
// the same role.
func appendInline(nodes []*doctree.Node, n *doctree.Node) []*doctree.Node {
	if n == nil {
		return nodes
	}
	if k := len(nodes); k > 0 {
		prev := nodes[k-1]
		switch {
		case n.IsText() && prev.IsText():
			prev.Text += n.Text
			return nodes
		case !n.IsText() && prev.Role == n.Role && len(n.Attrs) == 0 && len(prev.Attrs) == 0 &&
			(n.Role == "emphasis" || n.Role == "strong" || n.Role == "literal"):
			for _, c := range n.Children {
				prev.Children = appendInline(prev.Children, c)
			}
			return nodes
		}
	}
	return append(nodes, n)
}

func inlineText(nodes []*doctree.Node) string {
	var b strings.Builder
	for _, n := range nodes {
		b.WriteString(n.TextContent())
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// slug builds a docutils-style id: lowercase words joined by hyphens.
func slug(s string) string {
	var b strings.Builder
	hyphen := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if hyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			hyphen = false
			continue
		}
		hyphen = true
	}
	return b.String()
}

// refName normalizes a title to a reference name, escaping inner spaces as
// the names attribute requires.
func refName(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.Join(strings.Fields(s), " ")), " ", `\ `)
}
