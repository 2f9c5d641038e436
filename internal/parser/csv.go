package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/xml2rst/internal/doctree"
)

// CSVParser handles CSV files. The first record is the header row of a
// single table.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.Node, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	b := newBuilder(filename)
	if len(records) == 0 {
		return b.done(), nil
	}

	cols := 0
	for _, rec := range records {
		cols = max(cols, len(rec))
	}
	b.add(table(records[:1], records[1:], cols))
	return b.done(), nil
}

// table builds a docutils table from rows of cell text. Short rows are
// padded with empty cells.
func table(head, body [][]string, cols int) *doctree.Node {
	tgroup := doctree.Elem("tgroup").WithAttr("cols", fmt.Sprint(cols))
	for range cols {
		tgroup.Append(doctree.Elem("colspec").WithAttr("colwidth", "1"))
	}
	rows := func(records [][]string) []*doctree.Node {
		var out []*doctree.Node
		for _, rec := range records {
			row := doctree.Elem("row")
			for i := range cols {
				entry := doctree.Elem("entry")
				if i < len(rec) {
					if text := strings.TrimSpace(rec[i]); text != "" {
						entry.Append(doctree.Elem("paragraph", doctree.Text(text)))
					}
				}
				row.Append(entry)
			}
			out = append(out, row)
		}
		return out
	}
	if len(head) > 0 {
		tgroup.Append(doctree.Elem("thead", rows(head)...))
	}
	tgroup.Append(doctree.Elem("tbody", rows(body)...))
	return doctree.Elem("table", tgroup)
}
