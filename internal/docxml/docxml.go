// Package docxml reads docutils XML into a doctree.
package docxml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"github.com/dgallion1/xml2rst/internal/doctree"
)

const xmlNamespace = "http://www.w3.org/XML/1998/namespace"

// ErrEmpty is returned when the input holds no root element.
var ErrEmpty = errors.New("no root element")

// Decode reads a docutils XML document. Comments, processing instructions
// and the DOCTYPE are dropped; adjacent character data is merged into one
// text node.
func Decode(r io.Reader) (*doctree.Node, error) {
	d := xml.NewDecoder(r)
	d.Entity = xml.HTMLEntity

	var root *doctree.Node
	var stack []*doctree.Node

	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &doctree.Node{Role: t.Name.Local}
			for _, a := range t.Attr {
				n.WithAttr(attrName(a.Name), a.Value)
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("decode xml: second root element <%s>", t.Name.Local)
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)

		case xml.EndElement:
			stack = stack[:len(stack)-1]

		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			parent := stack[len(stack)-1]
			if k := len(parent.Children); k > 0 && parent.Children[k-1].IsText() {
				parent.Children[k-1].Text += string(t)
				continue
			}
			parent.Children = append(parent.Children, doctree.Text(string(t)))
		}
	}

	if root == nil {
		return nil, ErrEmpty
	}
	return root, nil
}

func attrName(n xml.Name) string {
	switch n.Space {
	case "":
		return n.Local
	case "xml", xmlNamespace:
		return "xml:" + n.Local
	default:
		return n.Local
	}
}
