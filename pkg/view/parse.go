package view

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Parse parses an HTML document into a node tree rooted at the <html>
// element. Comments and the doctype are dropped.
func Parse(document string) (*Node, error) {
	doc, err := html.Parse(strings.NewReader(document))
	if err != nil {
		return nil, fmt.Errorf("view: parse: %w", err)
	}
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "html" {
			return convert(c), nil
		}
	}
	return nil, fmt.Errorf("view: parse: no html element")
}

func convert(n *html.Node) *Node {
	switch n.Type {
	case html.TextNode:
		return Text(n.Data)
	case html.ElementNode:
		out := &Node{Kind: KindElement, Tag: n.Data, Attrs: make(Attrs, len(n.Attr))}
		for _, a := range n.Attr {
			out.Attrs[a.Key] = a.Val
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if child := convert(c); child != nil {
				out.Children = append(out.Children, child)
			}
		}
		return out
	default:
		return nil
	}
}
