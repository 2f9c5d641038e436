package parser

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dgallion1/xml2rst/internal/doctree"
	"golang.org/x/net/html"
)

// HTMLParser handles HTML files.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*doctree.Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	b := newBuilder(filename)
	w := &htmlWalker{b: b}

	// Find <body> or use whole document.
	if body := findBody(doc); body != nil {
		w.flow(body, b.add, true)
	} else {
		w.flow(doc, b.add, true)
	}

	tree := b.done()
	if title := findTitle(doc); title != "" && tree.FirstChild("title") == nil {
		tree.WithAttr("title", title)
	}
	return tree, nil
}

type htmlWalker struct {
	b *builder
}

// flow converts the children of n into body elements. Phrasing content
// between blocks is gathered into implicit paragraphs. Headings open
// sections only at the top level; elsewhere they become rubrics.
func (w *htmlWalker) flow(n *html.Node, emit func(...*doctree.Node), top bool) {
	var para []*doctree.Node
	flush := func() {
		if p := paragraph(para); p != nil {
			emit(p)
		}
		para = nil
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || isPhrasing(c.Data) {
			para = appendInline(para, w.inline(c))
			continue
		}

		if level := headingLevel(c.Data); level > 0 {
			flush()
			if top {
				w.b.heading(level, trimInlines(w.inlines(c)))
			} else {
				emit(doctree.Elem("rubric", trimInlines(w.inlines(c))...))
			}
			continue
		}

		switch c.Data {
		// Skip non-content elements.
		case "script", "style", "nav", "footer", "header", "head", "template", "noscript":
			continue
		case "div", "section", "article", "main", "aside", "body", "center", "form", "fieldset":
			flush()
			w.flow(c, emit, top)
			continue
		}
		flush()
		emit(w.block(c))
	}
	flush()
}

func (w *htmlWalker) children(n *html.Node) []*doctree.Node {
	var out []*doctree.Node
	w.flow(n, func(nodes ...*doctree.Node) {
		for _, b := range nodes {
			if b != nil {
				out = append(out, b)
			}
		}
	}, false)
	return out
}

func (w *htmlWalker) block(n *html.Node) *doctree.Node {
	switch n.Data {
	case "p":
		return paragraph(trimInlines(w.inlines(n)))
	case "pre":
		lang := ""
		if code := firstElement(n, "code"); code != nil {
			for _, class := range strings.Fields(attr(code, "class")) {
				if l, ok := strings.CutPrefix(class, "language-"); ok {
					lang = l
				}
			}
		}
		return literalBlock(strings.TrimPrefix(rawText(n), "\n"), lang)
	case "ul", "menu":
		list := doctree.Elem("bullet_list").WithAttr("bullet", "-")
		w.listItems(list, n)
		return list
	case "ol":
		list := doctree.Elem("enumerated_list").
			WithAttr("enumtype", olEnumType(attr(n, "type"))).
			WithAttr("prefix", "").
			WithAttr("suffix", ".")
		if start, err := strconv.Atoi(attr(n, "start")); err == nil && start != 1 {
			list.WithAttr("start", strconv.Itoa(start))
		}
		w.listItems(list, n)
		return list
	case "blockquote":
		return doctree.Elem("block_quote", w.children(n)...)
	case "hr":
		return doctree.Elem("transition")
	case "dl":
		return w.definitionList(n)
	case "table":
		return w.table(n)
	case "figure":
		img := firstElement(n, "img")
		if img == nil {
			return doctree.Elem("container", w.children(n)...)
		}
		fig := doctree.Elem("figure", htmlImage(img))
		if caption := firstElement(n, "figcaption"); caption != nil {
			fig.Append(doctree.Elem("caption", trimInlines(w.inlines(caption))...))
		}
		return fig
	case "img":
		return htmlImage(n)
	case "address":
		return doctree.Elem("line_block", lines(trimInlines(w.inlines(n)))...)
	}
	// Unknown containers keep their content.
	if kids := w.children(n); len(kids) > 0 {
		return doctree.Elem("container", kids...)
	}
	return nil
}

func (w *htmlWalker) listItems(list *doctree.Node, n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "li" {
			list.Append(doctree.Elem("list_item", w.children(c)...))
		}
	}
}

func (w *htmlWalker) definitionList(n *html.Node) *doctree.Node {
	list := doctree.Elem("definition_list")
	var item *doctree.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "dt":
			item = doctree.Elem("definition_list_item", doctree.Elem("term", trimInlines(w.inlines(c))...))
			list.Append(item)
		case "dd":
			if item == nil {
				item = doctree.Elem("definition_list_item", doctree.Elem("term"))
				list.Append(item)
			}
			if def := item.FirstChild("definition"); def != nil {
				def.Append(w.children(c)...)
			} else {
				item.Append(doctree.Elem("definition", w.children(c)...))
			}
		}
	}
	return list
}

func (w *htmlWalker) table(n *html.Node) *doctree.Node {
	var head, body []*doctree.Node
	cols := 0
	var caption []*doctree.Node

	var collect func(*html.Node, bool)
	collect = func(n *html.Node, inHead bool) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "caption":
				caption = trimInlines(w.inlines(c))
			case "thead":
				collect(c, true)
			case "tbody", "tfoot":
				collect(c, false)
			case "tr":
				row, width, allHeader := w.row(c)
				cols = max(cols, width)
				if inHead || (allHeader && len(body) == 0) {
					head = append(head, row)
				} else {
					body = append(body, row)
				}
			}
		}
	}
	collect(n, false)

	tgroup := doctree.Elem("tgroup").WithAttr("cols", strconv.Itoa(cols))
	if len(head) > 0 {
		tgroup.Append(doctree.Elem("thead", head...))
	}
	tgroup.Append(doctree.Elem("tbody", body...))
	table := doctree.Elem("table")
	if len(caption) > 0 {
		table.Append(doctree.Elem("title", caption...))
	}
	return table.Append(tgroup)
}

// row converts a tr element, reporting its width in columns and whether
// every cell is a th.
func (w *htmlWalker) row(tr *html.Node) (*doctree.Node, int, bool) {
	row := doctree.Elem("row")
	width := 0
	allHeader := true
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || (c.Data != "td" && c.Data != "th") {
			continue
		}
		allHeader = allHeader && c.Data == "th"
		entry := doctree.Elem("entry", w.children(c)...)
		width++
		if span, err := strconv.Atoi(attr(c, "colspan")); err == nil && span > 1 {
			entry.WithAttr("morecols", strconv.Itoa(span-1))
			width += span - 1
		}
		if span, err := strconv.Atoi(attr(c, "rowspan")); err == nil && span > 1 {
			entry.WithAttr("morerows", strconv.Itoa(span-1))
		}
		row.Append(entry)
	}
	return row, width, allHeader && width > 0
}

func (w *htmlWalker) inlines(n *html.Node) []*doctree.Node {
	var out []*doctree.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = appendInline(out, w.inline(c))
	}
	return out
}

func (w *htmlWalker) inline(n *html.Node) *doctree.Node {
	switch n.Type {
	case html.TextNode:
		return doctree.Text(collapseSpace(n.Data))
	case html.ElementNode:
	default:
		return nil
	}

	switch n.Data {
	case "script", "style", "template":
		return nil
	case "em", "i", "var", "dfn":
		return doctree.Elem("emphasis", w.inlines(n)...)
	case "strong", "b":
		return doctree.Elem("strong", w.inlines(n)...)
	case "cite":
		return doctree.Elem("title_reference", w.inlines(n)...)
	case "code", "kbd", "samp", "tt":
		return doctree.Elem("literal", doctree.Text(textContent(n)))
	case "sub":
		return doctree.Elem("subscript", w.inlines(n)...)
	case "sup":
		return doctree.Elem("superscript", w.inlines(n)...)
	case "abbr":
		return doctree.Elem("abbreviation", w.inlines(n)...)
	case "br":
		return doctree.Text("\n")
	case "img":
		return htmlImage(n)
	case "a":
		children := w.inlines(n)
		href := attr(n, "href")
		if href == "" {
			return doctree.Elem("inline", children...)
		}
		return doctree.Elem("reference", children...).
			WithAttr("name", inlineText(children)).
			WithAttr("refuri", href)
	}
	return doctree.Elem("inline", w.inlines(n)...)
}

func htmlImage(n *html.Node) *doctree.Node {
	img := doctree.Elem("image").WithAttr("uri", attr(n, "src"))
	for _, key := range []string{"alt", "width", "height"} {
		if v := attr(n, key); v != "" {
			img.WithAttr(key, v)
		}
	}
	return img
}

// isPhrasing reports whether an element is inline content.
func isPhrasing(tag string) bool {
	switch tag {
	case "a", "abbr", "b", "bdi", "bdo", "br", "cite", "code", "data", "dfn", "em",
		"i", "kbd", "mark", "q", "s", "samp", "small", "span", "strong", "sub",
		"sup", "time", "tt", "u", "var", "wbr", "label":
		return true
	}
	return false
}

func olEnumType(t string) string {
	switch t {
	case "a":
		return "loweralpha"
	case "A":
		return "upperalpha"
	case "i":
		return "lowerroman"
	case "I":
		return "upperroman"
	}
	return "arabic"
}

// lines splits inline content at line breaks into line elements.
func lines(inlines []*doctree.Node) []*doctree.Node {
	var out []*doctree.Node
	line := doctree.Elem("line")
	for _, n := range inlines {
		if !n.IsText() {
			line.Append(n)
			continue
		}
		parts := strings.Split(n.Text, "\n")
		for i, part := range parts {
			if i > 0 {
				out = append(out, line)
				line = doctree.Elem("line")
			}
			if strings.TrimSpace(part) != "" {
				line.Append(doctree.Text(strings.TrimSpace(part)))
			}
		}
	}
	return append(out, line)
}

// trimInlines removes whitespace at the outer edges of inline content.
func trimInlines(nodes []*doctree.Node) []*doctree.Node {
	if len(nodes) == 0 {
		return nodes
	}
	if first := nodes[0]; first.IsText() {
		first.Text = strings.TrimLeft(first.Text, " \n")
	}
	if last := nodes[len(nodes)-1]; last.IsText() {
		last.Text = strings.TrimRight(last.Text, " \n")
	}
	return nodes
}

func collapseSpace(s string) string {
	var b strings.Builder
	space := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' {
			space = true
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteRune(r)
	}
	if space {
		b.WriteByte(' ')
	}
	return b.String()
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func firstElement(n *html.Node, tag string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			return c
		}
		if f := firstElement(c, tag); f != nil {
			return f
		}
	}
	return nil
}

// rawText returns the text of n without whitespace changes.
func rawText(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return buf.String()
}

func textContent(n *html.Node) string {
	return strings.TrimSpace(rawText(n))
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
