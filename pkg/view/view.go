package view

// Props is what a view receives when rendered.
type Props struct {
	// State is the current page state.
	State map[string]any

	// Utils holds the shared view utilities ($Utils): router, dispatcher,
	// settings and the like, as registered by the application.
	Utils map[string]any

	// Page is the page view, set when rendering a root view or an adapter.
	Page View

	// Root is the managed root view wrapping the page, if any.
	Root View

	// Children is the rendered page view, set when rendering a root view.
	Children *Node
}

// View renders page state into a node tree.
type View interface {
	Render(p Props) *Node
}

// Func adapts an ordinary function to the View interface.
type Func func(p Props) *Node

// Render calls f(p).
func (f Func) Render(p Props) *Node {
	return f(p)
}

// DefaultAdapter renders the page view, wrapped by the managed root view
// when one is set.
var DefaultAdapter View = Func(func(p Props) *Node {
	if p.Page == nil {
		return nil
	}
	page := p.Page.Render(p)
	if p.Root == nil {
		return page
	}
	rp := p
	rp.Children = page
	return p.Root.Render(rp)
})

// Compose renders the page through the adapter, falling back to
// DefaultAdapter when adapter is nil.
func Compose(adapter, root, page View, p Props) *Node {
	if adapter == nil {
		adapter = DefaultAdapter
	}
	p.Page = page
	p.Root = root
	return adapter.Render(p)
}
