// Package rst renders a docutils document tree as reStructuredText.
//
// Rendering is a single recursive descent over the tree. Each element role
// maps to a rule registered in the Renderer; block rules append lines to the
// output buffer, inline rules return markup pieces that the enclosing block
// joins into text. Per-document state travels in an explicit context value,
// so a Renderer can be reused and any subtree can be rendered on its own.
package rst

import (
	"io"
	"log/slog"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/dgallion1/xml2rst/internal/adornment"
	"github.com/dgallion1/xml2rst/internal/doctree"
	"github.com/dgallion1/xml2rst/internal/fold"
)

// Options configure a Renderer.
type Options struct {
	// Adornment styles titles. The zero value means adornment.Default().
	Adornment adornment.Spec
	// Fold is the maximum line width for paragraph text; 0 disables folding.
	Fold int
	// Logger receives debug progress. Nil discards.
	Logger *slog.Logger
}

type blockRule func(r *Renderer, c *context, n *doctree.Node) error

type inlineRule func(r *Renderer, c *context, n *doctree.Node) ([]piece, error)

// Renderer converts document trees. It holds no per-document state and is
// safe for sequential reuse.
type Renderer struct {
	spec    adornment.Spec
	fold    int
	log     *slog.Logger
	blocks  map[string]blockRule
	inlines map[string]inlineRule
}

// New returns a Renderer with the standard docutils rules registered.
func New(opts Options) *Renderer {
	r := &Renderer{
		spec:    opts.Adornment,
		fold:    opts.Fold,
		log:     opts.Logger,
		blocks:  make(map[string]blockRule),
		inlines: make(map[string]inlineRule),
	}
	if r.spec.IsZero() {
		r.spec = adornment.Default()
	}
	if r.fold < 0 {
		r.fold = 0
	}
	if r.log == nil {
		r.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	registerBlocks(r)
	registerInlines(r)
	return r
}

// Render renders a document tree, or any block-level subtree of one.
func Render(root *doctree.Node, opts Options) (*Buffer, error) {
	return New(opts).Render(root)
}

// Render walks root and returns the produced lines. On error no output is
// returned.
func (r *Renderer) Render(root *doctree.Node) (*Buffer, error) {
	st := &state{out: &Buffer{}}
	c := &context{st: st, path: ""}
	if err := r.block(c, root); err != nil {
		return nil, err
	}
	r.log.Debug("rendered document", "lines", st.out.Len(), "sections", st.sections)
	return st.out, nil
}

// block kinds recorded for blank line and separator decisions.
type blockKind int

const (
	kindNone blockKind = iota
	kindParagraph
	kindTitle
	kindLiteral
	kindLineBlock
	kindTransition
	kindComment
	kindTarget
	kindTerm
	kindList
	kindDefList
	kindField
	kindQuote
	kindDirective
)

// opensBody reports whether text indented after a construct of this kind
// would be read as part of it.
func (k blockKind) opensBody() bool {
	switch k {
	case kindList, kindDefList, kindField, kindQuote, kindDirective, kindTarget:
		return true
	}
	return false
}

// state is shared by every context of one Render call.
type state struct {
	out        *Buffer
	last       blockKind
	lastIndent int
	sections   int
}

func (s *state) closed(kind blockKind, indent int) {
	s.last = kind
	s.lastIndent = indent
}

// lead is a pending prefix for the first line of the next block, such as a
// list marker. Once taken it is gone for every context sharing it.
type lead struct {
	prefix string
	blank  bool // separate from preceding output with a blank line
	used   bool
}

// context is the traversal state threaded through the rules.
type context struct {
	st     *state
	parent string
	path   string
	level  int // section nesting, 0 outside any section
	indent string
	lead   *lead
}

// child returns the context for the children of n.
func (c *context) child(n *doctree.Node) *context {
	cc := *c
	cc.parent = n.Role
	if c.path == "" {
		cc.path = n.Role
	} else {
		cc.path = c.path + "/" + n.Role
	}
	return &cc
}

// indented returns a context whose blocks are indented by extra more.
func (c *context) indented(extra string) *context {
	cc := *c
	cc.indent = c.indent + extra
	cc.lead = nil
	return &cc
}

// withLead returns a context indented to indent whose next block starts
// with prefix.
func (c *context) withLead(indent, prefix string, blank bool) *context {
	cc := *c
	cc.indent = indent
	cc.lead = &lead{prefix: prefix, blank: blank}
	return &cc
}

func (c *context) hasLead() bool {
	return c.lead != nil && !c.lead.used
}

// takeLead consumes the pending lead, or returns the plain indent.
func (c *context) takeLead() (prefix string, blank bool) {
	if c.hasLead() {
		c.lead.used = true
		return c.lead.prefix, c.lead.blank
	}
	return c.indent, true
}

// firstWidth is the display width of the prefix the next line will get.
func (c *context) firstWidth() int {
	w := runewidth.StringWidth(c.indent)
	if c.hasLead() {
		if lw := runewidth.StringWidth(c.lead.prefix); lw > w {
			w = lw
		}
	}
	return w
}

// emit appends one block. The first line gets the pending lead, the rest
// the context indent.
func (c *context) emit(kind blockKind, lines []string) {
	prefix, blank := c.takeLead()
	if blank {
		c.st.out.blank()
	}
	for i, line := range lines {
		switch {
		case i == 0:
			c.st.out.add(prefix + line)
		case line == "":
			c.st.out.add("")
		default:
			c.st.out.add(c.indent + line)
		}
	}
	c.st.closed(kind, len(c.indent))
}

func (r *Renderer) unsupported(c *context, n *doctree.Node, reason string) error {
	path := c.path
	if path == "" {
		path = "/"
	}
	return &UnsupportedElementError{Role: n.Role, Path: path, Reason: reason}
}

// block dispatches a block-level node.
func (r *Renderer) block(c *context, n *doctree.Node) error {
	if n.IsText() {
		if n.IsBlank() {
			return nil
		}
		return r.paragraphText(c, []*doctree.Node{n})
	}
	rule, ok := r.blocks[n.Role]
	if !ok {
		return r.unsupported(c, n, "")
	}
	return rule(r, c, n)
}

// children renders the block children of n.
func (r *Renderer) children(c *context, n *doctree.Node) error {
	cc := c.child(n)
	for _, ch := range n.Children {
		if err := r.block(cc, ch); err != nil {
			return err
		}
	}
	return nil
}

// childrenExcept renders the block children of n other than the skipped roles.
func (r *Renderer) childrenExcept(c *context, n *doctree.Node, skip ...string) error {
	cc := c.child(n)
	for _, ch := range n.Children {
		if containsRole(skip, ch.Role) {
			continue
		}
		if err := r.block(cc, ch); err != nil {
			return err
		}
	}
	return nil
}

func containsRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// flow turns inline text into paragraph lines, folding when configured.
func (r *Renderer) flow(c *context, text string) []string {
	var lines []string
	if r.fold > 0 {
		width := r.fold - c.firstWidth()
		if width < 1 {
			width = 1
		}
		lines = fold.Collect(text, width)
	} else {
		for line := range fold.Lines(text, 0) {
			if line = strings.TrimSpace(line); line != "" {
				lines = append(lines, line)
			}
		}
	}
	return guardLines(lines)
}

// paragraphText renders inline nodes as one paragraph.
func (r *Renderer) paragraphText(c *context, nodes []*doctree.Node) error {
	pieces, err := r.inline(c, nodes)
	if err != nil {
		return err
	}
	lines := r.flow(c, join(pieces))
	if len(lines) == 0 {
		return nil
	}
	c.emit(kindParagraph, lines)
	return nil
}

// textLines splits preserved text into lines, dropping leading and
// trailing blank lines.
func textLines(s string) []string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
