package parser

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/dgallion1/xml2rst/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.Node, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	b := newBuilder(filename)
	m := &mdConverter{src: src}
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			b.heading(h.Level, m.inlines(h))
			continue
		}
		b.add(m.block(n))
	}
	return b.done(), nil
}

type mdConverter struct {
	src []byte
}

func (m *mdConverter) blocks(parent ast.Node) []*doctree.Node {
	var out []*doctree.Node
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		if b := m.block(n); b != nil {
			out = append(out, b)
		}
	}
	return out
}

func (m *mdConverter) block(n ast.Node) *doctree.Node {
	switch node := n.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		return paragraph(m.inlines(node))
	case *ast.Heading:
		// Headings inside lists and quotes cannot open sections.
		return doctree.Elem("rubric", m.inlines(node)...)
	case *ast.FencedCodeBlock:
		return literalBlock(m.lines(node), string(node.Language(m.src)))
	case *ast.CodeBlock:
		return literalBlock(m.lines(node), "")
	case *ast.List:
		return m.list(node)
	case *ast.Blockquote:
		return doctree.Elem("block_quote", m.blocks(node)...)
	case *ast.ThematicBreak:
		return doctree.Elem("transition")
	case *ast.HTMLBlock:
		raw := m.lines(node)
		if node.HasClosure() {
			raw += string(node.ClosureLine.Value(m.src))
		}
		return doctree.Elem("raw", doctree.Text(strings.TrimRight(raw, "\n"))).
			WithAttr("format", "html").
			WithAttr("xml:space", "preserve")
	}
	return nil
}

func (m *mdConverter) list(l *ast.List) *doctree.Node {
	var n *doctree.Node
	if l.IsOrdered() {
		n = doctree.Elem("enumerated_list").
			WithAttr("enumtype", "arabic").
			WithAttr("prefix", "").
			WithAttr("suffix", string(l.Marker))
		if l.Start != 1 {
			n.WithAttr("start", strconv.Itoa(l.Start))
		}
	} else {
		n = doctree.Elem("bullet_list").WithAttr("bullet", string(l.Marker))
	}
	for item := l.FirstChild(); item != nil; item = item.NextSibling() {
		n.Append(doctree.Elem("list_item", m.blocks(item)...))
	}
	return n
}

// lines returns the raw source lines of a block.
func (m *mdConverter) lines(n ast.Node) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(m.src))
	}
	return buf.String()
}

func (m *mdConverter) inlines(parent ast.Node) []*doctree.Node {
	var out []*doctree.Node
	for c := parent.FirstChild(); c != nil; c = c.NextSibling() {
		out = appendInline(out, m.inline(c))
	}
	return out
}

func (m *mdConverter) inline(n ast.Node) *doctree.Node {
	switch node := n.(type) {
	case *ast.Text:
		s := string(node.Value(m.src))
		if node.HardLineBreak() || node.SoftLineBreak() {
			s += "\n"
		}
		return doctree.Text(s)
	case *ast.String:
		return doctree.Text(string(node.Value))
	case *ast.Emphasis:
		role := "emphasis"
		if node.Level >= 2 {
			role = "strong"
		}
		return doctree.Elem(role, m.inlines(node)...)
	case *ast.CodeSpan:
		var buf bytes.Buffer
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			switch t := c.(type) {
			case *ast.Text:
				buf.Write(t.Value(m.src))
			case *ast.String:
				buf.Write(t.Value)
			}
		}
		return doctree.Elem("literal", doctree.Text(buf.String()))
	case *ast.Link:
		children := m.inlines(node)
		return doctree.Elem("reference", children...).
			WithAttr("name", inlineText(children)).
			WithAttr("refuri", string(node.Destination))
	case *ast.AutoLink:
		uri := string(node.URL(m.src))
		return doctree.Elem("reference", doctree.Text(string(node.Label(m.src)))).
			WithAttr("refuri", uri)
	case *ast.Image:
		return doctree.Elem("image").
			WithAttr("uri", string(node.Destination)).
			WithAttr("alt", inlineText(m.inlines(node)))
	case *ast.RawHTML:
		// Inline HTML has no reST counterpart.
		return nil
	}
	if n.HasChildren() {
		return doctree.Elem("inline", m.inlines(n)...)
	}
	return nil
}
