package rst

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dgallion1/xml2rst/internal/doctree"
	"github.com/dgallion1/xml2rst/internal/fold"
)

// piece is a run of rendered inline text. Markup pieces must sit on word
// boundaries; plain is the escaped text without markup, used when a piece
// is nested in another span.
type piece struct {
	text   string
	plain  string
	markup bool
}

func textPiece(s string) piece {
	return piece{text: s, plain: s}
}

// join concatenates pieces, inserting an escaped space where a markup piece
// would otherwise touch a word character or another markup piece.
func join(pieces []piece) string {
	var b strings.Builder
	lastMarkup := false
	var last rune
	for _, p := range pieces {
		if p.text == "" {
			continue
		}
		first, _ := utf8.DecodeRuneInString(p.text)
		need := lastMarkup && !endFollows(first)
		if p.markup && b.Len() > 0 && !startPrecedes(last) {
			need = true
		}
		if need {
			b.WriteString(`\ `)
		}
		b.WriteString(p.text)
		last, _ = utf8.DecodeLastRuneInString(p.text)
		lastMarkup = p.markup
	}
	return b.String()
}

// inline renders a run of inline nodes.
func (r *Renderer) inline(c *context, nodes []*doctree.Node) ([]piece, error) {
	var out []piece
	for _, n := range nodes {
		if n.IsText() {
			out = append(out, textPiece(escapeText(n.Text)))
			continue
		}
		rule, ok := r.inlines[n.Role]
		if !ok {
			return nil, r.unsupported(c, n, "not allowed inline")
		}
		ps, err := rule(r, c.child(n), n)
		if err != nil {
			return nil, err
		}
		out = append(out, ps...)
	}
	return out, nil
}

// inlineLine renders the children of n as a single line of text.
func (r *Renderer) inlineLine(c *context, n *doctree.Node) (string, error) {
	pieces, err := r.inline(c.child(n), n.Children)
	if err != nil {
		return "", err
	}
	return fold.Normalize(join(pieces)), nil
}

// plainContent renders the children of n and drops their markup.
func (r *Renderer) plainContent(c *context, n *doctree.Node) (string, error) {
	pieces, err := r.inline(c, n.Children)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, p := range pieces {
		b.WriteString(p.plain)
	}
	return b.String(), nil
}

// span wraps content in markup. Whitespace at either end of content moves
// outside the delimiters; empty content produces no markup.
func span(open, content, close string) []piece {
	trimmed := strings.TrimFunc(content, unicode.IsSpace)
	if trimmed == "" {
		if content == "" {
			return nil
		}
		return []piece{textPiece(content)}
	}
	lead := content[:len(content)-len(strings.TrimLeftFunc(content, unicode.IsSpace))]
	trail := content[len(strings.TrimRightFunc(content, unicode.IsSpace)):]

	var out []piece
	if lead != "" {
		out = append(out, textPiece(lead))
	}
	out = append(out, piece{text: open + trimmed + close, plain: trimmed, markup: true})
	if trail != "" {
		out = append(out, textPiece(trail))
	}
	return out
}

func wrap(open, close string) inlineRule {
	return func(r *Renderer, c *context, n *doctree.Node) ([]piece, error) {
		content, err := r.plainContent(c, n)
		if err != nil {
			return nil, err
		}
		return span(open, content, close), nil
	}
}

func role(name string) inlineRule {
	return wrap(":"+name+":`", "`")
}

func renderLiteral(r *Renderer, c *context, n *doctree.Node) ([]piece, error) {
	content := n.TextContent()
	if strings.Contains(content, "``") || strings.HasPrefix(strings.TrimSpace(content), "`") || strings.HasSuffix(strings.TrimSpace(content), "`") {
		return span(":literal:`", escapeText(content), "`"), nil
	}
	ps := span("``", content, "``")
	for i := range ps {
		if ps[i].markup {
			ps[i].plain = escapeText(ps[i].plain)
		}
	}
	return ps, nil
}

func renderReference(r *Renderer, c *context, n *doctree.Node) ([]piece, error) {
	content, err := r.plainContent(c, n)
	if err != nil {
		return nil, err
	}
	text := strings.ReplaceAll(fold.Normalize(content), "<", `\<`)
	suffix := "_"
	if n.Attr("anonymous") == "1" {
		suffix = "__"
	}

	switch {
	case n.HasAttr("refuri"):
		uri := n.Attr("refuri")
		if text == "" || text == escapeText(uri) {
			// Standalone hyperlink; the parser recognizes it by itself.
			return []piece{{text: uri, plain: escapeText(uri), markup: true}}, nil
		}
		return []piece{{text: "`" + text + " <" + uri + ">`" + suffix, plain: text, markup: true}}, nil

	case n.HasAttr("refid") || n.HasAttr("refname"):
		name := n.Attr("refname")
		if name == "" {
			name = n.Attr("name")
		}
		if name == "" {
			name = n.Attr("refid")
		}
		if text == "" {
			text = escapeText(name)
		}
		if strings.EqualFold(fold.Normalize(name), fold.Normalize(content)) {
			return []piece{{text: "`" + text + "`" + suffix, plain: text, markup: true}}, nil
		}
		return []piece{{text: "`" + text + " <" + strings.ReplaceAll(name, "`", "\\`") + "_>`" + suffix, plain: text, markup: true}}, nil
	}
	// A reference without a target is plain text.
	return []piece{textPiece(text)}, nil
}

func renderInlineTarget(r *Renderer, c *context, n *doctree.Node) ([]piece, error) {
	content, err := r.plainContent(c, n)
	if err != nil {
		return nil, err
	}
	// Targets emitted by embedded URIs carry no text.
	return span("_`", content, "`"), nil
}

func renderFootnoteReference(r *Renderer, c *context, n *doctree.Node) ([]piece, error) {
	return []piece{{text: "[" + footnoteLabel(n, n.Attr("refid"), n.Attr("refname")) + "]_", plain: escapeText(n.TextContent()), markup: true}}, nil
}

func renderCitationReference(r *Renderer, c *context, n *doctree.Node) ([]piece, error) {
	label := strings.TrimSpace(n.TextContent())
	return []piece{{text: "[" + label + "]_", plain: escapeText(label), markup: true}}, nil
}

func renderSubstitutionReference(r *Renderer, c *context, n *doctree.Node) ([]piece, error) {
	name := n.Attr("refname")
	if name == "" {
		name = strings.TrimSpace(n.TextContent())
	}
	return []piece{{text: "|" + name + "|", plain: escapeText(n.TextContent()), markup: true}}, nil
}

// footnoteLabel chooses the label for a footnote or footnote reference.
// Auto-numbered footnotes are labelled by id so references and footnotes
// pair up regardless of order.
func footnoteLabel(n *doctree.Node, ids ...string) string {
	switch n.Attr("auto") {
	case "1":
		for _, id := range ids {
			if name := firstName(id); name != "" {
				return "#" + name
			}
		}
		return "#"
	case "*":
		return "*"
	}
	if label := n.FirstChild("label"); label != nil {
		return strings.TrimSpace(label.TextContent())
	}
	return strings.TrimSpace(n.TextContent())
}

func renderTransparent(r *Renderer, c *context, n *doctree.Node) ([]piece, error) {
	return r.inline(c, n.Children)
}

func renderImageAlt(r *Renderer, c *context, n *doctree.Node) ([]piece, error) {
	alt := n.Attr("alt")
	if alt == "" {
		alt = n.Attr("uri")
	}
	return []piece{textPiece(escapeText(alt))}, nil
}

func renderProblematic(r *Renderer, c *context, n *doctree.Node) ([]piece, error) {
	// The content is the source text that failed to parse.
	return []piece{textPiece(n.TextContent())}, nil
}

func renderNothing(r *Renderer, c *context, n *doctree.Node) ([]piece, error) {
	return nil, nil
}

func registerInlines(r *Renderer) {
	r.inlines["emphasis"] = wrap("*", "*")
	r.inlines["strong"] = wrap("**", "**")
	r.inlines["title_reference"] = wrap("`", "`")
	r.inlines["literal"] = renderLiteral
	r.inlines["reference"] = renderReference
	r.inlines["target"] = renderInlineTarget
	r.inlines["footnote_reference"] = renderFootnoteReference
	r.inlines["citation_reference"] = renderCitationReference
	r.inlines["substitution_reference"] = renderSubstitutionReference
	r.inlines["subscript"] = role("sub")
	r.inlines["superscript"] = role("sup")
	r.inlines["math"] = role("math")
	r.inlines["abbreviation"] = role("abbreviation")
	r.inlines["acronym"] = role("acronym")
	r.inlines["inline"] = renderTransparent
	r.inlines["image"] = renderImageAlt
	r.inlines["problematic"] = renderProblematic
	r.inlines["generated"] = renderNothing
}
