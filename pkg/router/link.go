package router

import (
	"github.com/imago-dev/imago/pkg/controller"
	"github.com/imago-dev/imago/pkg/route"
	"github.com/imago-dev/imago/pkg/view"
)

var _ controller.Linker = (*Router)(nil)

// Anchor creates an anchor to the named route. The client router turns a
// click on it into a client side navigation. An unknown route yields an
// anchor without href.
func Anchor(l controller.Linker, name string, params route.Params, children ...any) *view.Node {
	href, err := l.Link(name, params)
	if err != nil {
		return view.A(children...)
	}
	return view.A(append([]any{view.Href(href)}, children...)...)
}

// ExternalAnchor creates an anchor the client router leaves to the browser.
func ExternalAnchor(href string, children ...any) *view.Node {
	return view.A(append([]any{view.Href(href), view.Target("_blank"), view.Rel("noopener")}, children...)...)
}

// ActiveAnchor is Anchor with class added when the named route handles the
// current path.
func ActiveAnchor(r *Router, name string, params route.Params, class string, children ...any) *view.Node {
	a := Anchor(r, name, params, children...)
	info, err := r.GetCurrentRouteInfo()
	if err == nil && info.Route.Name() == name {
		if a.Attrs == nil {
			a.Attrs = view.Attrs{}
		}
		if existing := a.Attrs["class"]; existing != "" {
			class = existing + " " + class
		}
		a.Attrs["class"] = class
	}
	return a
}
