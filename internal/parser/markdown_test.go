package parser

import (
	"strings"
	"testing"

	"github.com/dgallion1/xml2rst/internal/doctree"
	"github.com/dgallion1/xml2rst/internal/rst"
)

// children returns the element children of n with the given role.
func children(n *doctree.Node, role string) []*doctree.Node {
	var out []*doctree.Node
	for _, c := range n.Children {
		if c.Role == role {
			out = append(out, c)
		}
	}
	return out
}

// find returns the first descendant of n with the given role.
func find(n *doctree.Node, role string) *doctree.Node {
	for _, c := range n.Children {
		if c.Role == role {
			return c
		}
		if f := find(c, role); f != nil {
			return f
		}
	}
	return nil
}

func titleOf(n *doctree.Node) string {
	if t := n.FirstChild("title"); t != nil {
		return t.TextContent()
	}
	return ""
}

func TestMarkdownParser_HeadingHierarchy(t *testing.T) {
	input := `# Title

Intro text.

## Section A

Section A content.

### Subsection A1

Subsection A1 content.

## Section B

Section B content.
`
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Role != "document" || doc.Attr("source") != "doc.md" {
		t.Errorf("expected document with source doc.md, got %s %q", doc.Role, doc.Attr("source"))
	}

	// The lone h1 becomes the document title.
	if got := titleOf(doc); got != "Title" {
		t.Errorf("expected document title %q, got %q", "Title", got)
	}
	intro := doc.FirstChild("paragraph")
	if intro == nil || intro.TextContent() != "Intro text." {
		t.Fatalf("expected intro paragraph, got %+v", intro)
	}

	sections := children(doc, "section")
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}

	secA := sections[0]
	if got := titleOf(secA); got != "Section A" {
		t.Errorf("expected %q, got %q", "Section A", got)
	}
	if secA.Attr("ids") != "section-a" || secA.Attr("names") != `section\ a` {
		t.Errorf("unexpected section ids/names: %q %q", secA.Attr("ids"), secA.Attr("names"))
	}

	subs := children(secA, "section")
	if len(subs) != 1 {
		t.Fatalf("expected 1 subsection under Section A, got %d", len(subs))
	}
	if got := titleOf(subs[0]); got != "Subsection A1" {
		t.Errorf("expected %q, got %q", "Subsection A1", got)
	}

	if got := titleOf(sections[1]); got != "Section B" {
		t.Errorf("expected %q, got %q", "Section B", got)
	}
}

func TestMarkdownParser_NoHeadings(t *testing.T) {
	input := `Just some plain text.

Another paragraph here.`

	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "plain.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	paras := children(doc, "paragraph")
	if len(paras) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d", len(paras))
	}
	if paras[0].TextContent() != "Just some plain text." {
		t.Errorf("unexpected first paragraph %q", paras[0].TextContent())
	}
	if doc.FirstChild("title") != nil {
		t.Error("expected no document title")
	}
}

func TestMarkdownParser_CodeBlocks(t *testing.T) {
	input := "# API Reference\n\n## Endpoints\n\n```\nGET /api/users\nPOST /api/users\n```\n\n```go\nfmt.Println()\n```\n\nMore text after code.\n"

	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "api.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	endpoints := doc.FirstChild("section")
	if endpoints == nil || titleOf(endpoints) != "Endpoints" {
		t.Fatalf("expected Endpoints section, got %+v", endpoints)
	}
	blocks := children(endpoints, "literal_block")
	if len(blocks) != 2 {
		t.Fatalf("expected 2 literal blocks, got %d", len(blocks))
	}
	if got := blocks[0].TextContent(); got != "GET /api/users\nPOST /api/users" {
		t.Errorf("unexpected code block text %q", got)
	}
	if blocks[0].HasAttr("classes") {
		t.Errorf("expected plain literal block, got classes %q", blocks[0].Attr("classes"))
	}
	if got := blocks[1].Attr("classes"); got != "code go" {
		t.Errorf("expected classes %q, got %q", "code go", got)
	}
	if p := endpoints.FirstChild("paragraph"); p == nil || p.TextContent() != "More text after code." {
		t.Errorf("expected post-code paragraph, got %+v", p)
	}
}

func TestMarkdownParser_Inlines(t *testing.T) {
	input := "Some *em* and **strong** and `code` and [Go](https://go.dev).\n"
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "inline.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	para := doc.FirstChild("paragraph")
	if para == nil {
		t.Fatal("expected a paragraph")
	}
	for _, role := range []string{"emphasis", "strong", "literal", "reference"} {
		if find(para, role) == nil {
			t.Errorf("expected a %s node", role)
		}
	}
	ref := find(para, "reference")
	if ref.Attr("refuri") != "https://go.dev" || ref.Attr("name") != "Go" {
		t.Errorf("unexpected reference attrs %v", ref.Attrs)
	}
}

func TestMarkdownParser_Lists(t *testing.T) {
	input := "- a\n- b\n\n3. x\n4. y\n"
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "lists.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bullets := doc.FirstChild("bullet_list")
	if bullets == nil || len(children(bullets, "list_item")) != 2 || bullets.Attr("bullet") != "-" {
		t.Fatalf("expected bullet list with 2 items, got %+v", bullets)
	}
	enum := doc.FirstChild("enumerated_list")
	if enum == nil {
		t.Fatal("expected enumerated list")
	}
	if enum.Attr("start") != "3" || enum.Attr("suffix") != "." {
		t.Errorf("unexpected enumerated list attrs %v", enum.Attrs)
	}
}

func TestMarkdownParser_EmptyInput(t *testing.T) {
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(""), "empty.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Children) != 0 {
		t.Errorf("expected 0 children for empty input, got %d", len(doc.Children))
	}
}

func TestMarkdownParser_RendersAsRST(t *testing.T) {
	input := "# Title\n\nHello *world*.\n\n## Part\n\n- a\n- b\n"
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	buf, err := rst.Render(doc, rst.Options{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := "#####\nTitle\n#####\n\nHello *world*.\n\nPart\n====\n\n- a\n\n- b\n"
	if got := buf.String(); got != want {
		t.Errorf("expected:\n%s\ngot:\n%s", want, got)
	}
}
