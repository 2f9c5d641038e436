package parser

import (
	"io"

	"github.com/dgallion1/xml2rst/internal/doctree"
	"github.com/dgallion1/xml2rst/internal/docxml"
)

// XMLParser reads docutils XML as is.
type XMLParser struct{}

func (p *XMLParser) Parse(r io.Reader, filename string) (*doctree.Node, error) {
	return docxml.Decode(r)
}
