package view

import "fmt"

// Kind is the node type discriminator.
type Kind uint8

const (
	KindElement  Kind = iota // <div>, <a>, etc.
	KindText                 // Plain text node
	KindFragment             // Grouping without wrapper
	KindRaw                  // Raw HTML, not escaped
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	case KindFragment:
		return "Fragment"
	case KindRaw:
		return "Raw"
	default:
		return "Unknown"
	}
}

// Attrs holds element attributes.
type Attrs map[string]string

// Attr is a single attribute passed to an element helper.
type Attr struct {
	Key   string
	Value string
}

// Node is a node of a rendered page tree.
type Node struct {
	Kind     Kind
	Tag      string
	Attrs    Attrs
	Children []*Node
	Text     string // For KindText and KindRaw
}

// Text creates a text node.
func Text(content string) *Node {
	return &Node{Kind: KindText, Text: content}
}

// Textf creates a formatted text node.
func Textf(format string, args ...any) *Node {
	return Text(fmt.Sprintf(format, args...))
}

// Raw creates an unescaped HTML node.
// Use with caution - can lead to XSS if content is user-provided.
func Raw(html string) *Node {
	return &Node{Kind: KindRaw, Text: html}
}

// Fragment groups children without a wrapper element.
func Fragment(children ...any) *Node {
	n := &Node{Kind: KindFragment}
	n.appendArgs(children)
	return n
}

// El creates an element node.
// Arguments can be: nil, Attr, Attrs, *Node, []*Node or string (text).
func El(tag string, args ...any) *Node {
	n := &Node{Kind: KindElement, Tag: tag, Attrs: make(Attrs)}
	n.appendArgs(args)
	return n
}

func (n *Node) appendArgs(args []any) {
	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
			continue
		case Attr:
			if v.Key != "" && n.Kind == KindElement {
				n.Attrs[v.Key] = v.Value
			}
		case Attrs:
			if n.Kind == KindElement {
				for k, val := range v {
					n.Attrs[k] = val
				}
			}
		case *Node:
			if v != nil {
				n.Children = append(n.Children, v)
			}
		case []*Node:
			for _, c := range v {
				if c != nil {
					n.Children = append(n.Children, c)
				}
			}
		case string:
			n.Children = append(n.Children, Text(v))
		}
	}
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(key string) string {
	if n == nil || n.Attrs == nil {
		return ""
	}
	return n.Attrs[key]
}

// ID returns the id attribute.
func (n *Node) ID() string {
	return n.Attr("id")
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{Kind: n.Kind, Tag: n.Tag, Text: n.Text}
	if n.Attrs != nil {
		c.Attrs = make(Attrs, len(n.Attrs))
		for k, v := range n.Attrs {
			c.Attrs[k] = v
		}
	}
	if len(n.Children) > 0 {
		c.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.Clone()
		}
	}
	return c
}

// Find returns the first node in the tree, in document order, for which
// match returns true.
func (n *Node) Find(match func(*Node) bool) *Node {
	if n == nil {
		return nil
	}
	if match(n) {
		return n
	}
	for _, child := range n.Children {
		if found := child.Find(match); found != nil {
			return found
		}
	}
	return nil
}

// FindByID returns the element with the given id attribute.
func (n *Node) FindByID(id string) *Node {
	return n.Find(func(c *Node) bool {
		return c.Kind == KindElement && c.Attrs["id"] == id
	})
}

// Parent returns the parent of target within the tree rooted at n.
func (n *Node) Parent(target *Node) *Node {
	if n == nil || target == nil {
		return nil
	}
	for _, child := range n.Children {
		if child == target {
			return n
		}
		if p := child.Parent(target); p != nil {
			return p
		}
	}
	return nil
}

// TextContent concatenates all text below the node.
func (n *Node) TextContent() string {
	if n == nil {
		return ""
	}
	if n.Kind == KindText || n.Kind == KindRaw {
		return n.Text
	}
	var s string
	for _, child := range n.Children {
		s += child.TextContent()
	}
	return s
}
