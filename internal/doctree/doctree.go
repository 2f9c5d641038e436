package doctree

import "strings"

// TextRole is the role given to character data nodes.
const TextRole = "#text"

// Node is one element of a docutils document tree. Element nodes carry a
// Role (the docutils tag name) and Children; text nodes carry TextRole and Text.
type Node struct {
	Role     string            // docutils element name, or TextRole
	Attrs    map[string]string // element attributes (ids, names, refuri, enumtype, ...)
	Text     string            // character data, only for text nodes
	Children []*Node           // ordered child nodes
}

// Elem builds an element node.
func Elem(role string, children ...*Node) *Node {
	return &Node{Role: role, Children: children}
}

// Text builds a text node.
func Text(s string) *Node {
	return &Node{Role: TextRole, Text: s}
}

// IsText reports whether n is a text node.
func (n *Node) IsText() bool {
	return n.Role == TextRole
}

// WithAttr sets an attribute and returns n, for building trees in code.
func (n *Node) WithAttr(key, value string) *Node {
	if n.Attrs == nil {
		n.Attrs = make(map[string]string)
	}
	n.Attrs[key] = value
	return n
}

// Append adds children and returns n.
func (n *Node) Append(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// Attr returns the attribute value, or "" when absent.
func (n *Node) Attr(key string) string {
	if n.Attrs == nil {
		return ""
	}
	return n.Attrs[key]
}

// HasAttr reports whether the attribute is present.
func (n *Node) HasAttr(key string) bool {
	_, ok := n.Attrs[key]
	return ok
}

// Classes splits the space separated "classes" attribute.
func (n *Node) Classes() []string {
	return strings.Fields(n.Attr("classes"))
}

// HasClass reports whether the classes attribute contains class.
func (n *Node) HasClass(class string) bool {
	for _, c := range n.Classes() {
		if c == class {
			return true
		}
	}
	return false
}

// FirstChild returns the first child element with the given role.
func (n *Node) FirstChild(role string) *Node {
	for _, c := range n.Children {
		if c.Role == role {
			return c
		}
	}
	return nil
}

// TextContent concatenates all descendant character data.
func (n *Node) TextContent() string {
	if n.IsText() {
		return n.Text
	}
	var buf strings.Builder
	var walk func(*Node)
	walk = func(n *Node) {
		if n.IsText() {
			buf.WriteString(n.Text)
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(n)
	return buf.String()
}

// IsBlank reports whether n is a text node holding only whitespace.
func (n *Node) IsBlank() bool {
	return n.IsText() && strings.TrimSpace(n.Text) == ""
}
