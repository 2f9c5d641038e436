package rst

import (
	"strconv"
	"strings"

	"github.com/dgallion1/xml2rst/internal/doctree"
)

// renderTable writes a table as a list-table directive. Cells may hold any
// body elements; spanning cells have no list-table form and are rejected.
func renderTable(r *Renderer, c *context, n *doctree.Node) error {
	tc := c.child(n)
	var title string
	var tgroup *doctree.Node
	for _, ch := range n.Children {
		switch {
		case ch.IsBlank():
		case ch.Role == "title":
			t, err := r.inlineLine(tc, ch)
			if err != nil {
				return err
			}
			title = t
		case ch.Role == "tgroup" && tgroup == nil:
			tgroup = ch
		default:
			return r.unsupported(tc, ch, "expected title or a single tgroup")
		}
	}
	if tgroup == nil {
		return r.unsupported(c, n, "table without tgroup")
	}

	gc := tc.child(tgroup)
	var widths []string
	var rows []*doctree.Node
	headerRows := 0
	for _, ch := range tgroup.Children {
		switch {
		case ch.IsBlank():
		case ch.Role == "colspec":
			widths = append(widths, ch.Attr("colwidth"))
		case ch.Role == "thead" || ch.Role == "tbody":
			rs, err := r.items(gc, ch, "row")
			if err != nil {
				return err
			}
			if ch.Role == "thead" {
				headerRows += len(rs)
			}
			rows = append(rows, rs...)
		default:
			return r.unsupported(gc, ch, "expected colspec, thead or tbody")
		}
	}

	var options []string
	if headerRows > 0 {
		options = append(options, ":header-rows: "+strconv.Itoa(headerRows))
	}
	if ws := strings.Join(widths, " "); len(widths) > 0 && !containsRole(widths, "") {
		options = append(options, ":widths: "+ws)
	}
	header := ".. list-table::"
	if title != "" {
		header += " " + title
	}
	directiveHeader(c, header, options)

	bc := c.indented(directiveIndent).child(n)
	for _, row := range rows {
		entries, err := r.items(bc, row, "entry")
		if err != nil {
			return err
		}
		prefix, blank := bc.takeLead()
		rc := bc.withLead(bc.indent+"  ", prefix+"* ", blank)
		for _, entry := range entries {
			if entry.HasAttr("morecols") || entry.HasAttr("morerows") {
				return r.unsupported(rc.child(row), entry, "spanning cell")
			}
			p, b := rc.takeLead()
			ec := rc.withLead(rc.indent+"  ", p+"- ", b)
			if err := r.children(ec, entry); err != nil {
				return err
			}
			if ec.hasLead() {
				ec.emit(kindParagraph, []string{""})
			}
		}
		if rc.hasLead() {
			rc.emit(kindParagraph, []string{""})
		}
	}
	c.st.closed(kindDirective, len(c.indent))
	return nil
}
