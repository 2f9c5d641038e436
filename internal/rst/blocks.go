package rst

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/xml2rst/internal/adornment"
	"github.com/dgallion1/xml2rst/internal/doctree"
)

const (
	quoteIndent     = "    "
	literalIndent   = "    "
	directiveIndent = "   "
	bodyIndent      = "    "
)

var admonitions = []string{
	"attention", "caution", "danger", "error", "hint",
	"important", "note", "tip", "warning",
}

var bibliographic = map[string]string{
	"author":       "Author",
	"authors":      "Authors",
	"organization": "Organization",
	"address":      "Address",
	"contact":      "Contact",
	"version":      "Version",
	"revision":     "Revision",
	"status":       "Status",
	"date":         "Date",
	"copyright":    "Copyright",
}

func registerBlocks(r *Renderer) {
	r.blocks["document"] = renderDocument
	r.blocks["section"] = renderSection
	r.blocks["title"] = renderTitle
	r.blocks["subtitle"] = renderTitle
	r.blocks["paragraph"] = renderParagraph
	r.blocks["caption"] = renderParagraph
	r.blocks["literal_block"] = renderLiteralBlock
	r.blocks["doctest_block"] = renderDoctestBlock
	r.blocks["line_block"] = renderLineBlock
	r.blocks["block_quote"] = renderBlockQuote
	r.blocks["attribution"] = renderAttribution
	r.blocks["bullet_list"] = renderBulletList
	r.blocks["enumerated_list"] = renderEnumeratedList
	r.blocks["definition_list"] = renderDefinitionList
	r.blocks["field_list"] = renderFieldList
	r.blocks["docinfo"] = renderDocinfo
	r.blocks["transition"] = renderTransition
	r.blocks["comment"] = renderComment
	r.blocks["target"] = renderTarget
	r.blocks["footnote"] = renderFootnote
	r.blocks["citation"] = renderFootnote
	r.blocks["admonition"] = renderAdmonition
	for _, name := range admonitions {
		r.blocks[name] = directive(name)
	}
	r.blocks["topic"] = renderTopic
	r.blocks["sidebar"] = renderSidebar
	r.blocks["rubric"] = renderRubric
	r.blocks["image"] = renderImage
	r.blocks["figure"] = renderFigure
	r.blocks["legend"] = renderTransparentBlock
	r.blocks["raw"] = renderRaw
	r.blocks["math_block"] = renderMathBlock
	r.blocks["container"] = renderContainer
	r.blocks["compound"] = directive("compound")
	r.blocks["decoration"] = renderTransparentBlock
	r.blocks["header"] = directive("header")
	r.blocks["footer"] = directive("footer")
	r.blocks["table"] = renderTable
	r.blocks["substitution_definition"] = renderSubstitutionDefinition
	r.blocks["system_message"] = renderSystemMessage
}

func renderDocument(r *Renderer, c *context, n *doctree.Node) error {
	if title := n.Attr("title"); title != "" && n.FirstChild("title") == nil {
		c.emit(kindDirective, []string{".. title:: " + title})
	}
	return r.children(c, n)
}

func renderSection(r *Renderer, c *context, n *doctree.Node) error {
	sc := *c
	sc.level++
	c.st.sections++
	return r.children(&sc, n)
}

func renderTitle(r *Renderer, c *context, n *doctree.Node) error {
	var depth int
	switch {
	case c.parent == "document" && n.Role == "title":
		depth = adornment.DocumentDepth
	case c.parent == "document" && n.Role == "subtitle":
		depth = adornment.SubtitleDepth
	case c.parent == "section" && n.Role == "title":
		depth = adornment.SectionDepth + c.level - 1
	default:
		return r.unsupported(c, n, "title outside document or section")
	}

	text, err := r.inlineLine(c, n)
	if err != nil {
		return err
	}
	pair, err := r.spec.For(depth)
	if err != nil {
		return fmt.Errorf("%s: %w", c.path, err)
	}
	if pair.Placement == adornment.Underline {
		text = guardStart(text)
	}
	r.log.Debug("title", "depth", depth, "adornment", pair.String(), "text", text)
	c.emit(kindTitle, pair.Render(text))
	return nil
}

func renderParagraph(r *Renderer, c *context, n *doctree.Node) error {
	return r.paragraphText(c.child(n), n.Children)
}

func renderTransparentBlock(r *Renderer, c *context, n *doctree.Node) error {
	return r.children(c, n)
}

// literalBody emits preserved text indented below a marker line.
func literalBody(c *context, indent, text string) {
	lines := textLines(text)
	if len(lines) == 0 {
		return
	}
	c.indented(indent).emit(kindLiteral, lines)
}

func renderLiteralBlock(r *Renderer, c *context, n *doctree.Node) error {
	if n.HasClass("code") {
		header := ".. code::"
		for _, class := range n.Classes() {
			if class != "code" {
				header += " " + class
				break
			}
		}
		c.emit(kindDirective, []string{header})
		literalBody(c, directiveIndent, n.TextContent())
		c.st.closed(kindDirective, len(c.indent))
		return nil
	}

	for _, ch := range n.Children {
		if !ch.IsText() {
			return renderParsedLiteral(r, c, n)
		}
	}
	if len(textLines(n.TextContent())) == 0 {
		return nil
	}
	c.emit(kindLiteral, []string{"::"})
	literalBody(c, literalIndent, n.TextContent())
	return nil
}

func renderParsedLiteral(r *Renderer, c *context, n *doctree.Node) error {
	pieces, err := r.inline(c.child(n), n.Children)
	if err != nil {
		return err
	}
	c.emit(kindDirective, []string{".. parsed-literal::"})
	literalBody(c, directiveIndent, join(pieces))
	c.st.closed(kindDirective, len(c.indent))
	return nil
}

func renderDoctestBlock(r *Renderer, c *context, n *doctree.Node) error {
	if lines := textLines(n.TextContent()); len(lines) > 0 {
		c.emit(kindLiteral, lines)
	}
	return nil
}

func renderLineBlock(r *Renderer, c *context, n *doctree.Node) error {
	lines, err := r.lineBlockLines(c.child(n), n, 0)
	if err != nil {
		return err
	}
	if len(lines) > 0 {
		c.emit(kindLineBlock, lines)
	}
	return nil
}

func (r *Renderer) lineBlockLines(c *context, n *doctree.Node, level int) ([]string, error) {
	var lines []string
	for _, ch := range n.Children {
		switch {
		case ch.IsBlank():
		case ch.Role == "line":
			text, err := r.inlineLine(c, ch)
			if err != nil {
				return nil, err
			}
			if text == "" {
				lines = append(lines, "|")
			} else {
				lines = append(lines, "| "+strings.Repeat(" ", 4*level)+text)
			}
		case ch.Role == "line_block":
			nested, err := r.lineBlockLines(c.child(ch), ch, level+1)
			if err != nil {
				return nil, err
			}
			lines = append(lines, nested...)
		default:
			return nil, r.unsupported(c, ch, "expected line or line_block")
		}
	}
	return lines, nil
}

// needsSeparator reports whether an indented construct at this point would
// be absorbed by the preceding construct.
func (c *context) needsSeparator() bool {
	if c.hasLead() {
		return true
	}
	if c.st.out.Len() == 0 {
		return false
	}
	return c.st.last.opensBody() || c.st.lastIndent > len(c.indent)
}

func renderBlockQuote(r *Renderer, c *context, n *doctree.Node) error {
	if c.needsSeparator() {
		c.emit(kindComment, []string{".."})
	}
	if err := r.children(c.indented(quoteIndent), n); err != nil {
		return err
	}
	c.st.closed(kindQuote, len(c.indent))
	return nil
}

func renderAttribution(r *Renderer, c *context, n *doctree.Node) error {
	text, err := r.inlineLine(c, n)
	if err != nil {
		return err
	}
	c.emit(kindParagraph, []string{"-- " + text})
	return nil
}

// items returns the element children of n, rejecting any not of role.
func (r *Renderer) items(c *context, n *doctree.Node, role string) ([]*doctree.Node, error) {
	var out []*doctree.Node
	for _, ch := range n.Children {
		if ch.IsBlank() {
			continue
		}
		if ch.Role != role {
			return nil, r.unsupported(c.child(n), ch, "expected "+role)
		}
		out = append(out, ch)
	}
	return out, nil
}

// listItems renders list items, each starting with its marker.
func (r *Renderer) listItems(c *context, n *doctree.Node, items []*doctree.Node, markers []string) error {
	if c.st.last == kindList && c.st.lastIndent == len(c.indent) && !c.hasLead() {
		// Adjacent lists would merge into one.
		c.emit(kindComment, []string{".."})
	}
	lc := c.child(n)
	for i, item := range items {
		prefix, blank := lc.takeLead()
		ic := lc.withLead(lc.indent+strings.Repeat(" ", utf8.RuneCountInString(markers[i])), prefix+markers[i], blank)
		if err := r.children(ic, item); err != nil {
			return err
		}
		if ic.hasLead() {
			ic.emit(kindParagraph, []string{""})
		}
	}
	c.st.closed(kindList, len(c.indent))
	return nil
}

func renderBulletList(r *Renderer, c *context, n *doctree.Node) error {
	items, err := r.items(c, n, "list_item")
	if err != nil {
		return err
	}
	bullet := n.Attr("bullet")
	if bullet == "" || !strings.Contains("-*+•‣⁃", bullet) {
		bullet = "-"
	}
	markers := make([]string, len(items))
	for i := range markers {
		markers[i] = bullet + " "
	}
	return r.listItems(c, n, items, markers)
}

func renderEnumeratedList(r *Renderer, c *context, n *doctree.Node) error {
	items, err := r.items(c, n, "list_item")
	if err != nil {
		return err
	}
	markers, ok := enumMarkers(n, len(items))
	if !ok {
		r.log.Debug("enumeration out of range, using arabic", "enumtype", n.Attr("enumtype"), "path", c.path)
	}
	return r.listItems(c, n, items, markers)
}

func renderDefinitionList(r *Renderer, c *context, n *doctree.Node) error {
	items, err := r.items(c, n, "definition_list_item")
	if err != nil {
		return err
	}
	lc := c.child(n)
	for _, item := range items {
		ic := lc.child(item)
		var term []string
		var definition *doctree.Node
		for _, ch := range item.Children {
			switch {
			case ch.IsBlank():
			case ch.Role == "term" || ch.Role == "classifier":
				text, err := r.inlineLine(ic, ch)
				if err != nil {
					return err
				}
				term = append(term, strings.ReplaceAll(text, " : ", ` \: `))
			case ch.Role == "definition":
				definition = ch
			default:
				return r.unsupported(ic, ch, "expected term, classifier or definition")
			}
		}
		if len(term) == 0 {
			return r.unsupported(lc, item, "definition list item without term")
		}
		ic.emit(kindTerm, []string{guardStart(strings.Join(term, " : "))})
		if definition != nil {
			dc := ic.withLead(ic.indent+bodyIndent, ic.indent+bodyIndent, false)
			if err := r.children(dc, definition); err != nil {
				return err
			}
		}
	}
	c.st.closed(kindDefList, len(c.indent))
	return nil
}

// field emits ":name: body", rendering the body with fn.
func (r *Renderer) field(c *context, name string, fn func(bc *context) error) error {
	marker := ":" + strings.ReplaceAll(name, ":", `\:`) + ":"
	prefix, blank := c.takeLead()
	bc := c.withLead(c.indent+bodyIndent, prefix+marker+" ", blank)
	if err := fn(bc); err != nil {
		return err
	}
	if bc.hasLead() {
		bc.emit(kindField, []string{""})
	}
	c.st.closed(kindField, len(c.indent))
	return nil
}

func (r *Renderer) genericField(c *context, n *doctree.Node) error {
	nameNode := n.FirstChild("field_name")
	if nameNode == nil {
		return r.unsupported(c, n, "field without field_name")
	}
	name, err := r.inlineLine(c.child(n), nameNode)
	if err != nil {
		return err
	}
	return r.field(c, name, func(bc *context) error {
		if body := n.FirstChild("field_body"); body != nil {
			return r.children(bc.child(n), body)
		}
		return nil
	})
}

func renderFieldList(r *Renderer, c *context, n *doctree.Node) error {
	fields, err := r.items(c, n, "field")
	if err != nil {
		return err
	}
	lc := c.child(n)
	for _, f := range fields {
		if err := r.genericField(lc, f); err != nil {
			return err
		}
	}
	return nil
}

func renderDocinfo(r *Renderer, c *context, n *doctree.Node) error {
	dc := c.child(n)
	for _, ch := range n.Children {
		if ch.IsBlank() {
			continue
		}
		if ch.Role == "field" {
			if err := r.genericField(dc, ch); err != nil {
				return err
			}
			continue
		}
		name, ok := bibliographic[ch.Role]
		if !ok {
			return r.unsupported(dc, ch, "not a bibliographic field")
		}
		if err := r.field(dc, name, func(bc *context) error {
			return r.bibliographicBody(bc.child(ch), ch)
		}); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) bibliographicBody(c *context, n *doctree.Node) error {
	switch {
	case n.Role == "authors":
		var names []string
		for _, a := range n.Children {
			if a.IsBlank() {
				continue
			}
			text, err := r.inlineLine(c, a)
			if err != nil {
				return err
			}
			names = append(names, text)
		}
		c.emit(kindParagraph, []string{strings.Join(names, "; ")})
		return nil
	case n.Attr("xml:space") == "preserve":
		pieces, err := r.inline(c, n.Children)
		if err != nil {
			return err
		}
		if lines := textLines(join(pieces)); len(lines) > 0 {
			c.emit(kindParagraph, lines)
		}
		return nil
	}
	for _, ch := range n.Children {
		if !ch.IsText() && r.blocks[ch.Role] != nil && r.inlines[ch.Role] == nil {
			// Body elements, as in a multi-paragraph copyright.
			return r.children(c, n)
		}
	}
	return r.paragraphText(c, n.Children)
}

func renderTransition(r *Renderer, c *context, n *doctree.Node) error {
	c.emit(kindTransition, []string{strings.Repeat("-", 10)})
	return nil
}

func renderComment(r *Renderer, c *context, n *doctree.Node) error {
	lines := []string{".."}
	for _, line := range textLines(n.TextContent()) {
		if line == "" {
			lines = append(lines, "")
			continue
		}
		lines = append(lines, directiveIndent+line)
	}
	// A comment with text takes following indented blocks as its body;
	// an empty one does not.
	kind := kindComment
	if len(lines) > 1 {
		kind = kindDirective
	}
	c.emit(kind, lines)
	return nil
}

func renderTarget(r *Renderer, c *context, n *doctree.Node) error {
	name := escapeName(firstName(n.Attr("names")))
	var line string
	switch {
	case n.Attr("anonymous") == "1" && n.HasAttr("refuri"):
		line = ".. __: " + n.Attr("refuri")
	case n.HasAttr("refuri") && n.Attr("names") != "":
		line = ".. _" + name + ": " + n.Attr("refuri")
	case n.HasAttr("refname") && n.Attr("names") != "":
		line = ".. _" + name + ": " + escapeName(n.Attr("refname")) + "_"
	case n.Attr("names") != "":
		line = ".. _" + name + ":"
	case n.HasAttr("refid"):
		line = ".. _" + escapeName(n.Attr("refid")) + ":"
	default:
		// Nothing to point at: an unnamed target left by a resolved reference.
		return nil
	}
	c.emit(kindTarget, []string{line})
	return nil
}

func renderFootnote(r *Renderer, c *context, n *doctree.Node) error {
	var label string
	if n.Role == "citation" {
		l := n.FirstChild("label")
		if l == nil {
			return r.unsupported(c, n, "citation without label")
		}
		label = strings.TrimSpace(l.TextContent())
	} else {
		label = footnoteLabel(n, n.Attr("ids"), n.Attr("names"))
	}
	prefix, blank := c.takeLead()
	bc := c.withLead(c.indent+directiveIndent, prefix+".. ["+label+"] ", blank)
	if err := r.childrenExcept(bc, n, "label"); err != nil {
		return err
	}
	if bc.hasLead() {
		bc.emit(kindDirective, []string{""})
	}
	c.st.closed(kindDirective, len(c.indent))
	return nil
}

// directiveHeader emits the directive line and its option lines.
func directiveHeader(c *context, header string, options []string) {
	c.emit(kindDirective, []string{header})
	if len(options) > 0 {
		oc := c.withLead(c.indent+directiveIndent, c.indent+directiveIndent, false)
		oc.emit(kindDirective, options)
	}
}

// directive emits a directive header with options, then body nodes indented
// beneath it.
func (r *Renderer) directive(c *context, n *doctree.Node, header string, options []string, body []*doctree.Node) error {
	directiveHeader(c, header, options)
	bc := c.indented(directiveIndent).child(n)
	for _, ch := range body {
		if err := r.block(bc, ch); err != nil {
			return err
		}
	}
	c.st.closed(kindDirective, len(c.indent))
	return nil
}

func directive(name string) blockRule {
	return func(r *Renderer, c *context, n *doctree.Node) error {
		return r.directive(c, n, ".. "+name+"::", nil, n.Children)
	}
}

// titled splits n's children into its title text and the rest.
func (r *Renderer) titled(c *context, n *doctree.Node) (string, []*doctree.Node, error) {
	var title string
	var body []*doctree.Node
	for _, ch := range n.Children {
		if ch.Role == "title" && title == "" {
			t, err := r.inlineLine(c.child(n), ch)
			if err != nil {
				return "", nil, err
			}
			title = t
			continue
		}
		body = append(body, ch)
	}
	return title, body, nil
}

func renderAdmonition(r *Renderer, c *context, n *doctree.Node) error {
	title, body, err := r.titled(c, n)
	if err != nil {
		return err
	}
	return r.directive(c, n, ".. admonition:: "+title, classOption(n, "admonition"), body)
}

func renderTopic(r *Renderer, c *context, n *doctree.Node) error {
	title, body, err := r.titled(c, n)
	if err != nil {
		return err
	}
	if n.HasClass("contents") {
		// The table of contents is regenerated by the contents directive.
		header := ".. contents::"
		if title != "" {
			header += " " + title
		}
		return r.directive(c, n, header, nil, nil)
	}
	return r.directive(c, n, ".. topic:: "+title, nil, body)
}

func renderSidebar(r *Renderer, c *context, n *doctree.Node) error {
	title, body, err := r.titled(c, n)
	if err != nil {
		return err
	}
	var options []string
	var rest []*doctree.Node
	for _, ch := range body {
		if ch.Role == "subtitle" {
			sub, err := r.inlineLine(c.child(n), ch)
			if err != nil {
				return err
			}
			options = append(options, ":subtitle: "+sub)
			continue
		}
		rest = append(rest, ch)
	}
	return r.directive(c, n, ".. sidebar:: "+title, options, rest)
}

func renderRubric(r *Renderer, c *context, n *doctree.Node) error {
	text, err := r.inlineLine(c, n)
	if err != nil {
		return err
	}
	c.emit(kindDirective, []string{".. rubric:: " + text})
	return nil
}

func renderContainer(r *Renderer, c *context, n *doctree.Node) error {
	header := ".. container::"
	if classes := n.Attr("classes"); classes != "" {
		header += " " + classes
	}
	return r.directive(c, n, header, nil, n.Children)
}

// classOption returns a :class: option for classes other than the implied ones.
func classOption(n *doctree.Node, implied ...string) []string {
	var extra []string
	for _, class := range n.Classes() {
		if !containsRole(implied, class) && !strings.HasPrefix(class, "admonition-") {
			extra = append(extra, class)
		}
	}
	if len(extra) == 0 {
		return nil
	}
	return []string{":class: " + strings.Join(extra, " ")}
}

func imageOptions(n *doctree.Node, keys ...string) []string {
	var options []string
	for _, key := range keys {
		if v := n.Attr(key); v != "" {
			options = append(options, ":"+key+": "+v)
		}
	}
	return options
}

func renderImage(r *Renderer, c *context, n *doctree.Node) error {
	return r.directive(c, n, ".. image:: "+n.Attr("uri"), imageOptions(n, "alt", "height", "width", "scale", "align"), nil)
}

func renderFigure(r *Renderer, c *context, n *doctree.Node) error {
	img := n.FirstChild("image")
	if img == nil {
		return r.unsupported(c, n, "figure without image")
	}
	options := imageOptions(img, "alt", "height", "width", "scale")
	if v := n.Attr("width"); v != "" {
		options = append(options, ":figwidth: "+v)
	}
	if v := n.Attr("align"); v != "" {
		options = append(options, ":align: "+v)
	}
	var body []*doctree.Node
	for _, ch := range n.Children {
		if ch != img {
			body = append(body, ch)
		}
	}
	return r.directive(c, n, ".. figure:: "+img.Attr("uri"), options, body)
}

// preservedDirective emits a directive whose content is verbatim text.
func preservedDirective(c *context, header string, options []string, text string) {
	directiveHeader(c, header, options)
	literalBody(c, directiveIndent, text)
	c.st.closed(kindDirective, len(c.indent))
}

func renderRaw(r *Renderer, c *context, n *doctree.Node) error {
	preservedDirective(c, ".. raw:: "+n.Attr("format"), nil, n.TextContent())
	return nil
}

func renderMathBlock(r *Renderer, c *context, n *doctree.Node) error {
	preservedDirective(c, ".. math::", nil, n.TextContent())
	return nil
}

func renderSubstitutionDefinition(r *Renderer, c *context, n *doctree.Node) error {
	name := firstName(n.Attr("names"))
	var elems []*doctree.Node
	for _, ch := range n.Children {
		if !ch.IsBlank() {
			elems = append(elems, ch)
		}
	}
	if len(elems) == 1 && elems[0].Role == "image" {
		img := elems[0]
		return r.directive(c, n, ".. |"+name+"| image:: "+img.Attr("uri"), imageOptions(img, "alt", "height", "width", "scale", "align"), nil)
	}
	text, err := r.inlineLine(c, n)
	if err != nil {
		return err
	}
	c.emit(kindDirective, []string{".. |" + name + "| replace:: " + text})
	return nil
}

func renderSystemMessage(r *Renderer, c *context, n *doctree.Node) error {
	// Diagnostics from the producer are not document content.
	r.log.Debug("dropping system message", "level", n.Attr("level"), "type", n.Attr("type"), "path", c.path)
	return nil
}
