package view

import (
	"io"
	"slices"
	"strings"
)

// voidElements cannot have children and have no closing tag.
var voidElements = map[string]bool{
	"area":   true,
	"base":   true,
	"br":     true,
	"col":    true,
	"embed":  true,
	"hr":     true,
	"img":    true,
	"input":  true,
	"link":   true,
	"meta":   true,
	"param":  true,
	"source": true,
	"track":  true,
	"wbr":    true,
}

// booleanAttrs are rendered as the bare attribute name when set to "true"
// and omitted when set to "false".
var booleanAttrs = map[string]bool{
	"async":    true,
	"checked":  true,
	"defer":    true,
	"disabled": true,
	"hidden":   true,
	"multiple": true,
	"readonly": true,
	"required": true,
	"selected": true,
}

// IsVoidElement returns true if the tag is a void element.
func IsVoidElement(tag string) bool {
	return voidElements[tag]
}

// Render writes the HTML for the node tree to w.
func Render(w io.Writer, n *Node) error {
	var b strings.Builder
	writeNode(&b, n)
	_, err := io.WriteString(w, b.String())
	return err
}

// RenderString renders the node tree to an HTML string.
func RenderString(n *Node) string {
	var b strings.Builder
	writeNode(&b, n)
	return b.String()
}

// RenderDocument renders a full document, doctype included.
func RenderDocument(n *Node) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n")
	writeNode(&b, n)
	return b.String()
}

func writeNode(b *strings.Builder, n *Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case KindText:
		b.WriteString(EscapeHTML(n.Text))
	case KindRaw:
		b.WriteString(n.Text)
	case KindFragment:
		for _, child := range n.Children {
			writeNode(b, child)
		}
	case KindElement:
		writeElement(b, n)
	}
}

func writeElement(b *strings.Builder, n *Node) {
	b.WriteByte('<')
	b.WriteString(n.Tag)

	// Sorted keys keep the output deterministic.
	keys := make([]string, 0, len(n.Attrs))
	for k := range n.Attrs {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		v := n.Attrs[k]
		if booleanAttrs[k] {
			if v == "true" || v == k || v == "" {
				b.WriteByte(' ')
				b.WriteString(k)
			}
			continue
		}
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteString(`="`)
		b.WriteString(EscapeAttr(v))
		b.WriteByte('"')
	}
	b.WriteByte('>')

	if voidElements[n.Tag] {
		return
	}

	// Script and style bodies are raw text in HTML.
	raw := n.Tag == "script" || n.Tag == "style"
	for _, child := range n.Children {
		if raw && child.Kind == KindText {
			b.WriteString(child.Text)
			continue
		}
		writeNode(b, child)
	}

	b.WriteString("</")
	b.WriteString(n.Tag)
	b.WriteByte('>')
}
