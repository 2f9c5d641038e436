package rst

import (
	"errors"
	"strings"
	"testing"

	"github.com/dgallion1/xml2rst/internal/adornment"
	"github.com/dgallion1/xml2rst/internal/doctree"
	"github.com/dgallion1/xml2rst/internal/docxml"
)

func parse(t *testing.T, src string) *doctree.Node {
	t.Helper()
	root, err := docxml.Decode(strings.NewReader(src))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return root
}

func render(t *testing.T, src string, opts Options) string {
	t.Helper()
	buf, err := Render(parse(t, src), opts)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return buf.String()
}

func assertOutput(t *testing.T, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("unexpected output\n--- expected ---\n%s\n--- got ---\n%s", want, got)
	}
}

func TestRender_DocumentTitleDefaultAdornment(t *testing.T) {
	got := render(t, `<document><title>Example</title><paragraph>Hello world.</paragraph></document>`, Options{})
	assertOutput(t, got, "#######\nExample\n#######\n\nHello world.\n")

	lines := strings.Split(got, "\n")
	if lines[1] != "Example" || len(lines[2]) < len("Example") || strings.Trim(lines[2], "#") != "" {
		t.Errorf("expected title followed by an underline of '#', got %q", lines[:3])
	}
}

func TestRender_SectionDepths(t *testing.T) {
	src := `<document>
  <title>Doc</title>
  <subtitle>Sub</subtitle>
  <section ids="a" names="a">
    <title>A</title>
    <paragraph>p</paragraph>
    <section ids="b" names="b">
      <title>B</title>
      <paragraph>q</paragraph>
    </section>
  </section>
  <section ids="c" names="c">
    <title>C</title>
  </section>
</document>`
	spec := adornment.MustParse("o=o-u~u^")
	got := render(t, src, Options{Adornment: spec})
	want := "===\nDoc\n===\n\n---\nSub\n---\n\nA\n~\n\np\n\nB\n^\n\nq\n\nC\n~\n"
	assertOutput(t, got, want)
}

func TestRender_DepthExhausted(t *testing.T) {
	src := `<document><section><title>A</title><section><title>B</title></section></section></document>`
	_, err := Render(parse(t, src), Options{Adornment: adornment.MustParse("o=o-u~")})
	if !errors.Is(err, ErrDepthExhausted) {
		t.Fatalf("expected ErrDepthExhausted, got %v", err)
	}
	var depthErr *adornment.DepthError
	if !errors.As(err, &depthErr) || depthErr.Depth != 3 {
		t.Errorf("expected depth error for depth 3, got %v", err)
	}
}

func TestRender_UnsupportedElement(t *testing.T) {
	src := `<document><paragraph>ok</paragraph><frobnicate/></document>`
	buf, err := Render(parse(t, src), Options{})
	if !errors.Is(err, ErrUnsupportedElement) {
		t.Fatalf("expected ErrUnsupportedElement, got %v", err)
	}
	if buf != nil {
		t.Error("expected no output on failure")
	}
	var unsupported *UnsupportedElementError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected *UnsupportedElementError, got %T", err)
	}
	if unsupported.Role != "frobnicate" || unsupported.Path != "document" {
		t.Errorf("unexpected error details: %+v", unsupported)
	}
}

func TestRender_UnsupportedInline(t *testing.T) {
	src := `<document><paragraph>a <blink>b</blink></paragraph></document>`
	_, err := Render(parse(t, src), Options{})
	var unsupported *UnsupportedElementError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected *UnsupportedElementError, got %v", err)
	}
	if unsupported.Path != "document/paragraph" {
		t.Errorf("expected path document/paragraph, got %q", unsupported.Path)
	}
}

func TestRender_Fold(t *testing.T) {
	src := `<document><paragraph>one two three four five</paragraph></document>`
	assertOutput(t, render(t, src, Options{Fold: 11}), "one two\nthree four\nfive\n")
}

func TestRender_FoldCountsIndent(t *testing.T) {
	src := `<document><bullet_list bullet="-"><list_item><paragraph>aaa bbb ccc ddd</paragraph></list_item></bullet_list></document>`
	got := render(t, src, Options{Fold: 12})
	assertOutput(t, got, "- aaa bbb\n  ccc ddd\n")
}

func TestRender_NoFoldKeepsLineBreaks(t *testing.T) {
	src := "<document><paragraph>first line\n    second line</paragraph></document>"
	assertOutput(t, render(t, src, Options{}), "first line\nsecond line\n")
}

func TestRender_FoldLeavesLiteralBlocks(t *testing.T) {
	src := "<document><literal_block xml:space=\"preserve\">a very long line of code that must stay\n  indented</literal_block></document>"
	got := render(t, src, Options{Fold: 10})
	assertOutput(t, got, "::\n\n    a very long line of code that must stay\n      indented\n")
}

func TestRender_Lists(t *testing.T) {
	src := `<document>
<bullet_list bullet="*">
  <list_item><paragraph>one</paragraph>
    <bullet_list bullet="-"><list_item><paragraph>inner</paragraph></list_item></bullet_list>
  </list_item>
  <list_item><bullet_list bullet="-"><list_item><paragraph>nested first</paragraph></list_item></bullet_list></list_item>
  <list_item/>
</bullet_list>
<enumerated_list enumtype="loweralpha" prefix="(" suffix=")" start="2">
  <list_item><paragraph>b</paragraph></list_item>
  <list_item><paragraph>c</paragraph></list_item>
</enumerated_list>
</document>`
	want := `* one

  - inner

* - nested first

*

..

(b) b

(c) c
`
	assertOutput(t, render(t, src, Options{}), want)
}

func TestRender_EnumeratedVaryingWidth(t *testing.T) {
	src := `<document><enumerated_list enumtype="arabic" prefix="" suffix="." start="9">
<list_item><paragraph>nine</paragraph><paragraph>more</paragraph></list_item>
<list_item><paragraph>ten</paragraph><paragraph>more</paragraph></list_item>
</enumerated_list></document>`
	want := "9. nine\n\n   more\n\n10. ten\n\n    more\n"
	assertOutput(t, render(t, src, Options{}), want)
}

func TestRender_BlockQuoteAfterList(t *testing.T) {
	src := `<document>
<bullet_list bullet="-"><list_item><paragraph>a</paragraph></list_item></bullet_list>
<block_quote><paragraph>q</paragraph><attribution>Someone</attribution></block_quote>
</document>`
	want := "- a\n\n..\n\n    q\n\n    -- Someone\n"
	assertOutput(t, render(t, src, Options{}), want)
}

func TestRender_BlockQuoteAfterParagraph(t *testing.T) {
	src := `<document><paragraph>p</paragraph><block_quote><paragraph>q</paragraph></block_quote></document>`
	assertOutput(t, render(t, src, Options{}), "p\n\n    q\n")
}

func TestRender_BlockQuoteAfterExplicitMarkup(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			"comment with text",
			`<document><comment>note</comment><block_quote><paragraph>quoted</paragraph></block_quote></document>`,
			"..\n   note\n\n..\n\n    quoted\n",
		},
		{
			"empty comment",
			`<document><comment/><block_quote><paragraph>quoted</paragraph></block_quote></document>`,
			"..\n\n    quoted\n",
		},
		{
			"target",
			`<document><target ids="x" names="x" refuri="http://x.org"/><block_quote><paragraph>quoted</paragraph></block_quote></document>`,
			".. _x: http://x.org\n\n..\n\n    quoted\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertOutput(t, render(t, tt.src, Options{}), tt.want)
		})
	}
}

func TestRender_TitleAndTermStartGuarded(t *testing.T) {
	under := adornment.MustParse("u=")
	tests := []struct {
		name string
		src  string
		opts Options
		want string
	}{
		{
			"underlined bullet title",
			`<document><title>- dash</title><paragraph>p</paragraph></document>`,
			Options{Adornment: under},
			"\\- dash\n=======\n\np\n",
		},
		{
			"underlined field title",
			`<document><title>:x: y</title><paragraph>p</paragraph></document>`,
			Options{Adornment: under},
			"\\:x: y\n======\n\np\n",
		},
		{
			"overlined title untouched",
			`<document><title>- dash</title><paragraph>p</paragraph></document>`,
			Options{Adornment: adornment.MustParse("o=")},
			"======\n- dash\n======\n\np\n",
		},
		{
			"bullet term",
			`<document><definition_list><definition_list_item><term>- t</term><definition><paragraph>d</paragraph></definition></definition_list_item></definition_list></document>`,
			Options{},
			"\\- t\n    d\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertOutput(t, render(t, tt.src, tt.opts), tt.want)
		})
	}
}

func TestRender_FoldGuardsOneColumnUnderline(t *testing.T) {
	src := `<document><paragraph>a - b</paragraph></document>`
	assertOutput(t, render(t, src, Options{Fold: 1}), "a\n\\-\nb\n")
}

func TestRender_DefinitionAndFieldLists(t *testing.T) {
	src := `<document>
<definition_list>
  <definition_list_item>
    <term>term</term><classifier>kind</classifier>
    <definition><paragraph>meaning</paragraph><paragraph>more</paragraph></definition>
  </definition_list_item>
</definition_list>
<field_list>
  <field><field_name>name</field_name><field_body><paragraph>value</paragraph></field_body></field>
  <field><field_name>empty</field_name><field_body/></field>
</field_list>
</document>`
	want := "term : kind\n    meaning\n\n    more\n\n:name: value\n\n:empty:\n"
	assertOutput(t, render(t, src, Options{}), want)
}

func TestRender_Docinfo(t *testing.T) {
	src := `<document><title>T</title><docinfo>
<author>Jane Doe</author>
<authors><author>A</author><author>B</author></authors>
<address xml:space="preserve">1 Road
Town</address>
<field><field_name>Custom</field_name><field_body><paragraph>x</paragraph></field_body></field>
</docinfo></document>`
	want := "#\nT\n#\n\n:Author: Jane Doe\n\n:Authors: A; B\n\n:Address: 1 Road\n    Town\n\n:Custom: x\n"
	assertOutput(t, render(t, src, Options{}), want)
}

func TestRender_LiteralAndCode(t *testing.T) {
	src := `<document>
<literal_block classes="code python" xml:space="preserve"><inline classes="keyword">print</inline>(1)</literal_block>
<doctest_block xml:space="preserve">&gt;&gt;&gt; 1 + 1
2</doctest_block>
<literal_block xml:space="preserve">see <emphasis>this</emphasis></literal_block>
</document>`
	want := ".. code:: python\n\n   print(1)\n\n>>> 1 + 1\n2\n\n.. parsed-literal::\n\n   see *this*\n"
	assertOutput(t, render(t, src, Options{}), want)
}

func TestRender_Admonitions(t *testing.T) {
	src := `<document>
<note><paragraph>Careful.</paragraph></note>
<admonition classes="admonition-custom"><title>Custom</title><paragraph>Body.</paragraph></admonition>
<paragraph>after</paragraph>
</document>`
	want := ".. note::\n\n   Careful.\n\n.. admonition:: Custom\n\n   Body.\n\nafter\n"
	assertOutput(t, render(t, src, Options{}), want)
}

func TestRender_ImageAndFigure(t *testing.T) {
	src := `<document>
<image uri="a.png" alt="A picture" width="200px"/>
<figure align="center"><image uri="b.png"/><caption>The caption.</caption></figure>
</document>`
	want := ".. image:: a.png\n   :alt: A picture\n   :width: 200px\n\n.. figure:: b.png\n   :align: center\n\n   The caption.\n"
	assertOutput(t, render(t, src, Options{}), want)
}

func TestRender_TargetsAndFootnotes(t *testing.T) {
	src := `<document>
<target ids="python" names="python" refuri="https://python.org"/>
<target refid="intro"/>
<paragraph>See<footnote_reference auto="1" ids="r1" refid="f1">1</footnote_reference> and <citation_reference ids="r2" refid="cit">CIT2002</citation_reference>.</paragraph>
<footnote auto="1" ids="f1"><label>1</label><paragraph>A note.</paragraph></footnote>
<citation ids="cit" names="cit2002"><label>CIT2002</label><paragraph>A book.</paragraph></citation>
</document>`
	want := ".. _python: https://python.org\n\n.. _intro:\n\nSee\\ [#f1]_ and [CIT2002]_.\n\n.. [#f1] A note.\n\n.. [CIT2002] A book.\n"
	assertOutput(t, render(t, src, Options{}), want)
}

func TestRender_Table(t *testing.T) {
	src := `<document><table><title>Tbl</title><tgroup cols="2">
<colspec colwidth="1"/><colspec colwidth="2"/>
<thead><row><entry><paragraph>H1</paragraph></entry><entry><paragraph>H2</paragraph></entry></row></thead>
<tbody><row><entry><paragraph>a</paragraph></entry><entry/></row></tbody>
</tgroup></table></document>`
	want := `.. list-table:: Tbl
   :header-rows: 1
   :widths: 1 2

   * - H1

     - H2

   * - a

     -
`
	assertOutput(t, render(t, src, Options{}), want)
}

func TestRender_TableSpanningCell(t *testing.T) {
	src := `<document><table><tgroup cols="2"><tbody><row><entry morecols="1"/></row></tbody></tgroup></table></document>`
	_, err := Render(parse(t, src), Options{})
	if !errors.Is(err, ErrUnsupportedElement) {
		t.Fatalf("expected ErrUnsupportedElement, got %v", err)
	}
}

func TestRender_MiscBlocks(t *testing.T) {
	src := `<document title="Meta">
<comment xml:space="preserve">hidden
text</comment>
<transition/>
<line_block><line>one</line><line_block><line>two</line></line_block><line/></line_block>
<rubric>Aside</rubric>
<raw format="html" xml:space="preserve">&lt;hr/&gt;</raw>
<math_block xml:space="preserve">E = mc^2</math_block>
<topic classes="contents"><title>Contents</title><bullet_list/></topic>
<system_message level="1" type="INFO"><paragraph>ignored</paragraph></system_message>
</document>`
	want := `.. title:: Meta

..
   hidden
   text

----------

| one
|     two
|

.. rubric:: Aside

.. raw:: html

   <hr/>

.. math::

   E = mc^2

.. contents:: Contents
`
	assertOutput(t, render(t, src, Options{}), want)
}

func TestRender_SubtreeIsolation(t *testing.T) {
	section := parse(t, `<section><title>Alone</title><paragraph>x</paragraph></section>`)
	buf, err := Render(section, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertOutput(t, buf.String(), "Alone\n=====\n\nx\n")
}

func TestRender_Deterministic(t *testing.T) {
	src := `<document><title>T</title><section><title>S</title><paragraph>a <strong>b</strong></paragraph></section></document>`
	r := New(Options{Fold: 20})
	root := parse(t, src)
	first, err := r.Render(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := r.Render(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.String() != second.String() {
		t.Errorf("expected identical output, got %q and %q", first.String(), second.String())
	}
}

func TestRender_SingleBlankLineBetweenBlocks(t *testing.T) {
	src := `<document>
  <title>T</title>
  <section><title>S</title>
    <paragraph>p1</paragraph>

    <paragraph>p2</paragraph>
    <bullet_list bullet="-">
      <list_item><paragraph>i1</paragraph><paragraph>i1b</paragraph></list_item>
      <list_item><paragraph>i2</paragraph></list_item>
    </bullet_list>
    <literal_block xml:space="preserve">

code

</literal_block>
    <note><paragraph>n</paragraph></note>
    <block_quote><paragraph>q</paragraph></block_quote>
    <definition_list><definition_list_item><term>t</term><definition><paragraph>d</paragraph></definition></definition_list_item></definition_list>
    <transition/>
    <paragraph>end</paragraph>
  </section>
</document>`
	for _, width := range []int{0, 5, 40} {
		out := render(t, src, Options{Fold: width})
		if strings.HasPrefix(out, "\n") {
			t.Errorf("fold %d: output starts with a blank line", width)
		}
		if strings.Contains(out, "\n\n\n") {
			t.Errorf("fold %d: found more than one blank line in a row:\n%s", width, out)
		}
		if !strings.HasSuffix(out, "end\n") {
			t.Errorf("fold %d: expected single trailing newline, got %q", width, out[len(out)-10:])
		}
	}
}
