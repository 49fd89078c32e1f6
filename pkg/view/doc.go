// Package view provides the node tree pages render into.
//
// A page view turns the page state into a *Node tree. The tree is rendered
// to HTML on the server (see Render) and patched in place on the client
// (see Diff and Apply). The outer document is produced by a Document,
// DefaultDocument being the stock one.
//
//	home := view.Func(func(p view.Props) *view.Node {
//		return view.Div(view.Class("home"),
//			view.H1(view.Textf("Hello %v", p.State["name"])),
//		)
//	})
package view
