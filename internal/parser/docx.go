package parser

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dgallion1/xml2rst/internal/doctree"
	"github.com/fumiama/go-docx"
)

// DOCXParser handles .docx files. Heading styles open sections, list
// paragraphs become bullet lists and bold or italic runs become inline
// markup.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*doctree.Node, error) {
	// go-docx needs a ReadSeeker+size, so write to temp file.
	tmp, err := os.CreateTemp("", "xml2rst-docx-*.docx")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("seek temp file: %w", err)
	}

	doc, err := docx.Parse(tmp, int64(size))
	tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	b := newBuilder(filename)
	c := &docxConverter{doc: doc}
	var list *doctree.Node

	for _, item := range doc.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Paragraph:
			inlines := trimInlines(c.inlines(it))
			style := docxStyle(it)

			if level := docxHeadingLevel(style); level > 0 && inlineText(inlines) != "" {
				list = nil
				b.heading(level, inlines)
				continue
			}
			if strings.EqualFold(style, "Title") && b.doc.FirstChild("title") == nil && len(b.stack) == 1 {
				list = nil
				b.doc.Children = append([]*doctree.Node{doctree.Elem("title", inlines...)}, b.doc.Children...)
				continue
			}

			para := paragraph(inlines)
			if para == nil {
				continue
			}
			if docxIsList(it, style) {
				if list == nil {
					list = doctree.Elem("bullet_list").WithAttr("bullet", "-")
					b.add(list)
				}
				list.Append(doctree.Elem("list_item", para))
				continue
			}
			list = nil
			if strings.Contains(strings.ToLower(style), "quote") {
				b.add(doctree.Elem("block_quote", para))
				continue
			}
			b.add(para)

		case *docx.Table:
			list = nil
			b.add(c.table(it))
		}
	}
	return b.done(), nil
}

type docxConverter struct {
	doc *docx.Docx
}

func (c *docxConverter) inlines(para *docx.Paragraph) []*doctree.Node {
	var out []*doctree.Node
	for _, child := range para.Children {
		switch ch := child.(type) {
		case *docx.Run:
			out = appendInline(out, docxRun(ch))
		case *docx.Hyperlink:
			run := docxRun(&ch.Run)
			if run == nil {
				continue
			}
			target, err := c.doc.ReferTarget(ch.ID)
			if err != nil {
				// Bookmark anchors have no relationship entry.
				out = appendInline(out, run)
				continue
			}
			out = append(out, doctree.Elem("reference", run).
				WithAttr("name", run.TextContent()).
				WithAttr("refuri", target))
		}
	}
	return out
}

// docxRun converts a run to text, wrapped in emphasis or strong when the run
// is italic or bold. Bold wins when both are set.
func docxRun(run *docx.Run) *doctree.Node {
	var buf strings.Builder
	for _, rc := range run.Children {
		switch t := rc.(type) {
		case *docx.Text:
			buf.WriteString(t.Text)
		case *docx.Tab:
			buf.WriteByte(' ')
		case *docx.BarterRabbet:
			buf.WriteByte('\n')
		}
	}
	if buf.Len() == 0 {
		return nil
	}
	text := doctree.Text(buf.String())
	props := run.RunProperties
	switch {
	case props == nil || strings.TrimSpace(buf.String()) == "":
		return text
	case props.Bold != nil:
		return doctree.Elem("strong", text)
	case props.Italic != nil:
		return doctree.Elem("emphasis", text)
	}
	return text
}

func (c *docxConverter) table(t *docx.Table) *doctree.Node {
	var rows []*doctree.Node
	cols := 0
	for _, tr := range t.TableRows {
		row := doctree.Elem("row")
		width := 0
		for _, tc := range tr.TableCells {
			entry := doctree.Elem("entry")
			for _, para := range tc.Paragraphs {
				if p := paragraph(trimInlines(c.inlines(para))); p != nil {
					entry.Append(p)
				}
			}
			width++
			if props := tc.TableCellProperties; props != nil && props.GridSpan != nil && props.GridSpan.Val > 1 {
				entry.WithAttr("morecols", strconv.Itoa(props.GridSpan.Val-1))
				width += props.GridSpan.Val - 1
			}
			row.Append(entry)
		}
		cols = max(cols, width)
		rows = append(rows, row)
	}

	tgroup := doctree.Elem("tgroup").WithAttr("cols", strconv.Itoa(cols))
	if len(rows) > 1 {
		// Word tables carry no header marker; the first row is the usual header.
		tgroup.Append(doctree.Elem("thead", rows[0]))
		rows = rows[1:]
	}
	tgroup.Append(doctree.Elem("tbody", rows...))
	return doctree.Elem("table", tgroup)
}

func docxStyle(para *docx.Paragraph) string {
	if para.Properties == nil || para.Properties.Style == nil {
		return ""
	}
	return para.Properties.Style.Val
}

func docxIsList(para *docx.Paragraph, style string) bool {
	if para.Properties != nil && para.Properties.NumProperties != nil {
		return true
	}
	s := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	return strings.HasPrefix(s, "listparagraph") || strings.HasPrefix(s, "listbullet")
}

func docxHeadingLevel(style string) int {
	s := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	rest, ok := strings.CutPrefix(s, "heading")
	if !ok {
		return 0
	}
	level, err := strconv.Atoi(rest)
	if err != nil || level < 1 || level > 9 {
		return 0
	}
	return level
}
