package docxml

import (
	"errors"
	"strings"
	"testing"
)

const sample = `<?xml version="1.0" encoding="utf-8"?>
<!DOCTYPE document PUBLIC "+//IDN docutils.sourceforge.net//DTD Docutils Generic//EN//XML" "http://docutils.sourceforge.net/docs/ref/docutils.dtd">
<!-- Generated by Docutils -->
<document ids="example" names="example" source="example.txt" title="Example">
  <title>Example</title>
  <paragraph>Some <emphasis>nice</emphasis> text &amp; more.</paragraph>
  <literal_block xml:space="preserve">a
  b</literal_block>
</document>
`

func TestDecode_Structure(t *testing.T) {
	root, err := Decode(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if root.Role != "document" {
		t.Fatalf("expected document root, got %q", root.Role)
	}
	if root.Attr("title") != "Example" {
		t.Errorf("expected title attribute %q, got %q", "Example", root.Attr("title"))
	}

	para := root.FirstChild("paragraph")
	if para == nil {
		t.Fatal("expected a paragraph child")
	}
	if len(para.Children) != 3 {
		t.Fatalf("expected 3 paragraph children, got %d", len(para.Children))
	}
	if got := para.TextContent(); got != "Some nice text & more." {
		t.Errorf("expected %q, got %q", "Some nice text & more.", got)
	}

	lit := root.FirstChild("literal_block")
	if lit == nil {
		t.Fatal("expected a literal_block child")
	}
	if lit.Attr("xml:space") != "preserve" {
		t.Errorf("expected xml:space=preserve, got %q", lit.Attr("xml:space"))
	}
	if got := lit.TextContent(); got != "a\n  b" {
		t.Errorf("expected literal text preserved, got %q", got)
	}
}

func TestDecode_MergesCharData(t *testing.T) {
	root, err := Decode(strings.NewReader(`<paragraph>a<![CDATA[<b>]]>c</paragraph>`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(root.Children) != 1 {
		t.Fatalf("expected 1 merged text node, got %d", len(root.Children))
	}
	if root.Children[0].Text != "a<b>c" {
		t.Errorf("expected %q, got %q", "a<b>c", root.Children[0].Text)
	}
}

func TestDecode_Empty(t *testing.T) {
	_, err := Decode(strings.NewReader("<?xml version=\"1.0\"?>\n"))
	if !errors.Is(err, ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode(strings.NewReader("<document><paragraph>x</document>"))
	if err == nil {
		t.Fatal("expected error for mismatched tags")
	}
}
