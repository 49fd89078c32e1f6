package view

// MountID is the id of the element the page view is mounted into.
const MountID = "page"

// DocumentProps is what a Document receives on the server.
type DocumentProps struct {
	// Page is the rendered page content.
	Page *Node

	// Head holds extra head nodes (meta, link tags).
	Head []*Node

	// Title is the document title.
	Title string

	// Lang is the html lang attribute. Defaults to "en".
	Lang string

	// Revival is the script restoring application state on the client.
	Revival string

	// Scripts are paths of client scripts appended to the body.
	Scripts []string

	// Utils holds the shared view utilities.
	Utils map[string]any
}

// Document renders the outer HTML document around a page.
type Document interface {
	RenderDocument(d DocumentProps) *Node
}

// DocumentFunc adapts an ordinary function to the Document interface.
type DocumentFunc func(d DocumentProps) *Node

// RenderDocument calls f(d).
func (f DocumentFunc) RenderDocument(d DocumentProps) *Node {
	return f(d)
}

// DefaultDocument is the stock document: head with charset, viewport,
// title and the extra head nodes, and a body holding the mount element,
// the revival script and the client scripts.
var DefaultDocument Document = DocumentFunc(func(d DocumentProps) *Node {
	lang := d.Lang
	if lang == "" {
		lang = "en"
	}

	head := Head(
		Meta(Charset("utf-8")),
		Meta(Name("viewport"), Content("width=device-width, initial-scale=1")),
	)
	if d.Title != "" {
		head.Children = append(head.Children, Title(d.Title))
	}
	head.Children = append(head.Children, d.Head...)

	body := Body(Div(ID(MountID), d.Page))
	if d.Revival != "" {
		body.Children = append(body.Children, Script(ID("revival-settings"), Raw(d.Revival)))
	}
	for _, src := range d.Scripts {
		body.Children = append(body.Children, Script(Src(src), Attr{Key: "defer", Value: "true"}))
	}

	return Html(Lang(lang), head, body)
})
