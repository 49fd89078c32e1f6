// Package router maps URLs to routes and hands matched routes to the page
// manager.
//
// A Router owns an ordered route table. The first route matching a path
// handles it; unmatched paths are handled by the route registered under
// the reserved name "notFound", and failures by the route named "error".
//
//	r := router.NewServer(pageManager, dispatcher, req, resp)
//	r.Init(router.Config{Protocol: "https:", Host: "example.com"})
//	r.Add("home", "/", HomeController, HomeView)
//	r.Add("article", "/articles/:id", ArticleController, ArticleView)
//	r.Add(router.RouteNotFound, "/not-found", NotFoundController, ErrorView)
//	r.Add(router.RouteError, "/error", ErrorController, ErrorView)
//
//	resp, err := r.Route(ctx, r.MustPath(), page.Action{})
//
// # Platforms
//
// The bare Router only knows the route table. ServerRouter reads the path
// from the HTTP request and redirects through the HTTP response. ClientRouter
// reads the path from a window, listens for popstate and anchor clicks, and
// navigates without reloading the document when the target is on the same
// application.
//
// # Events
//
// Every handled route fires EventBeforeHandleRoute and
// EventAfterHandleRoute on the dispatcher with a RouteEvent.
//
// # Middlewares
//
// Middlewares registered with Use run before the middlewares of the matched
// route, which run before the page is managed. A middleware error aborts the
// navigation and is handled as a route error.
package router
