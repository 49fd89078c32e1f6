package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/imago-dev/imago/pkg/event"
	"github.com/imago-dev/imago/pkg/imaerr"
	"github.com/imago-dev/imago/pkg/page"
	"github.com/imago-dev/imago/pkg/route"
)

// Reserved route names.
const (
	RouteNotFound = "notFound"
	RouteError    = "error"
)

// Router events, fired on the dispatcher with a RouteEvent.
const (
	EventBeforeHandleRoute = "$IMA.$Router.beforeHandleRoute"
	EventAfterHandleRoute  = "$IMA.$Router.afterHandleRoute"
)

var (
	// ErrDuplicateRoute is returned by Add for a name already in use.
	ErrDuplicateRoute = errors.New("router: duplicate route name")

	// ErrUnknownRoute is returned for a name that is not registered.
	ErrUnknownRoute = errors.New("router: unknown route")
)

// PageManager manages the page of a matched route.
type PageManager interface {
	Manage(ctx context.Context, handler route.Handler, options route.Options, params route.Params, action page.Action) (*page.Response, error)
}

// PreManager is implemented by page managers that need to know a
// navigation starts before its middlewares run.
type PreManager interface {
	PreManage()
}

// Config is the application location the router builds URLs from.
type Config struct {
	// Protocol including the colon, e.g. "https:".
	Protocol string

	// Root is the path prefix the application is mounted at.
	Root string

	// LanguagePartPath is the language prefix following Root, e.g. "/en".
	LanguagePartPath string

	Host string
}

// RouteInfo describes the route handling the current path.
type RouteInfo struct {
	Route  route.Handler
	Params route.Params
	Path   string
}

// RouteEvent is the data of the router events. Response is only set for
// EventAfterHandleRoute.
type RouteEvent struct {
	Route    route.Handler
	Params   route.Params
	Path     string
	Options  route.Options
	Action   page.Action
	Response *page.Response
}

// platform is what a concrete router adds to the route table.
type platform interface {
	path() (string, error)
	redirect(ctx context.Context, url string, action page.Action, opts ...route.Option) error
	listen() error
	unlisten() error
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) { r.logger = logger }
}

// Router is the route table shared by the server and client routers.
// Without a platform, GetPath, Redirect and Listen fail.
type Router struct {
	pageManager PageManager
	dispatcher  *event.Dispatcher
	factory     *route.Factory
	logger      *slog.Logger
	platform    platform

	mu          sync.RWMutex
	cfg         Config
	handlers    []route.Handler
	middlewares []route.Middleware
}

// New creates a router without a platform.
func New(pm PageManager, dispatcher *event.Dispatcher, opts ...Option) *Router {
	r := &Router{
		pageManager: pm,
		dispatcher:  dispatcher,
		factory:     route.NewFactory(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Init sets the application location.
func (r *Router) Init(cfg Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg.Root = strings.TrimSuffix(cfg.Root, "/")
	cfg.LanguagePartPath = strings.TrimSuffix(cfg.LanguagePartPath, "/")
	r.cfg = cfg
}

// Add compiles and registers a route. Routes are matched in the order they
// were added.
func (r *Router) Add(name, pathExpression string, controller, view any, opts ...route.Option) error {
	return r.AddHandler(r.factory.CreateRoute(name, pathExpression, controller, view, opts...))
}

// AddHandler registers a route handler, e.g. a dynamic route.
func (r *Router) AddHandler(h route.Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.handlers {
		if existing.Name() == h.Name() {
			return fmt.Errorf("%w: %q", ErrDuplicateRoute, h.Name())
		}
	}
	r.handlers = append(r.handlers, h)
	return nil
}

// Remove unregisters the named route.
func (r *Router) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, h := range r.handlers {
		if h.Name() == name {
			r.handlers = append(r.handlers[:i:i], r.handlers[i+1:]...)
			return
		}
	}
}

// GetRouteHandler returns the named route.
func (r *Router) GetRouteHandler(name string) (route.Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, h := range r.handlers {
		if h.Name() == name {
			return h, true
		}
	}
	return nil, false
}

// GetRouteHandlers returns the route table in matching order.
func (r *Router) GetRouteHandlers() []route.Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]route.Handler(nil), r.handlers...)
}

// Use registers middlewares run for every routed page.
func (r *Router) Use(mw ...route.Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = append(r.middlewares, mw...)
}

// GetPath returns the current route path, without root and language part.
func (r *Router) GetPath() (string, error) {
	if r.platform == nil {
		return "", imaerr.New("router: GetPath requires a server or client router", nil)
	}
	return r.platform.path()
}

// MustPath is GetPath for callers that know a platform is set. It returns
// "/" on error.
func (r *Router) MustPath() string {
	p, err := r.GetPath()
	if err != nil {
		return "/"
	}
	return p
}

// GetURL returns the absolute URL of the current path.
func (r *Router) GetURL() (string, error) {
	p, err := r.GetPath()
	if err != nil {
		return "", err
	}
	return r.GetBaseURL() + p, nil
}

// GetBaseURL returns domain, root and language part.
func (r *Router) GetBaseURL() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.domain() + r.cfg.Root + r.cfg.LanguagePartPath
}

// GetDomain returns protocol and host, e.g. "https://example.com".
func (r *Router) GetDomain() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.domain()
}

func (r *Router) domain() string {
	return r.cfg.Protocol + "//" + r.cfg.Host
}

// GetHost returns the configured host.
func (r *Router) GetHost() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg.Host
}

// GetProtocol returns the configured protocol.
func (r *Router) GetProtocol() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg.Protocol
}

// GetCurrentRouteInfo returns the route handling the current path.
func (r *Router) GetCurrentRouteInfo() (RouteInfo, error) {
	p, err := r.GetPath()
	if err != nil {
		return RouteInfo{}, err
	}
	h, ok := r.handlerForPath(p)
	if !ok {
		return RouteInfo{}, imaerr.WithStatus(404, fmt.Sprintf("router: no route for path %q", p), map[string]any{"path": p})
	}
	return RouteInfo{Route: h, Params: h.ExtractParameters(p), Path: p}, nil
}

// Listen starts reacting to navigation events of the platform.
func (r *Router) Listen() error {
	if r.platform == nil {
		return imaerr.New("router: Listen requires a server or client router", nil)
	}
	return r.platform.listen()
}

// Unlisten stops reacting to navigation events.
func (r *Router) Unlisten() error {
	if r.platform == nil {
		return imaerr.New("router: Unlisten requires a server or client router", nil)
	}
	return r.platform.unlisten()
}

// Redirect navigates to url.
func (r *Router) Redirect(ctx context.Context, url string, action page.Action, opts ...route.Option) error {
	if r.platform == nil {
		return imaerr.New("router: Redirect requires a server or client router", map[string]any{"url": url})
	}
	return r.platform.redirect(ctx, url, action, opts...)
}

// Link returns the absolute URL of the named route with params. Params
// without a placeholder become the query string.
func (r *Router) Link(name string, params route.Params) (string, error) {
	h, ok := r.GetRouteHandler(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRoute, name)
	}
	return r.GetBaseURL() + h.ToPath(params), nil
}

// Route handles path with the first matching route, or the not-found route.
// Options override the options of the route.
func (r *Router) Route(ctx context.Context, path string, action page.Action, opts ...route.Option) (*page.Response, error) {
	h, ok := r.handlerForPath(path)
	if !ok {
		return r.HandleNotFound(ctx, route.Params{"path": path}, opts...)
	}
	return r.handle(ctx, h, h.ExtractParameters(path), path, action, opts)
}

// HandleError renders the error route for err. The error is available to
// the controllers through imaerr.FromContext.
func (r *Router) HandleError(ctx context.Context, err error, params route.Params, opts ...route.Option) (*page.Response, error) {
	h, ok := r.GetRouteHandler(RouteError)
	if !ok {
		return nil, imaerr.New(fmt.Sprintf("router: the %q route is not defined", RouteError), map[string]any{"error": err}).Wrap(err)
	}
	url, _ := r.GetURL()
	return r.handleFailure(ctx, h, err, params, page.Action{Type: page.ActionError, URL: url}, opts)
}

// HandleNotFound renders the not-found route with a 404 error.
func (r *Router) HandleNotFound(ctx context.Context, params route.Params, opts ...route.Option) (*page.Response, error) {
	h, ok := r.GetRouteHandler(RouteNotFound)
	if !ok {
		return nil, imaerr.New(fmt.Sprintf("router: the %q route is not defined", RouteNotFound), nil)
	}
	err := imaerr.WithStatus(404, fmt.Sprintf("router: route for path %q is not defined", params["path"]), map[string]any{"path": params["path"]})
	url, _ := r.GetURL()
	return r.handleFailure(ctx, h, err, params, page.Action{Type: page.ActionError, URL: url}, opts)
}

// IsClientError reports whether err carries a status in [400, 500).
func (r *Router) IsClientError(err error) bool { return imaerr.IsClientError(err) }

// IsRedirection reports whether err carries a status in [300, 400).
func (r *Router) IsRedirection(err error) bool { return imaerr.IsRedirection(err) }

func (r *Router) handleFailure(ctx context.Context, h route.Handler, cause error, params route.Params, action page.Action, opts []route.Option) (*page.Response, error) {
	if params == nil {
		params = route.Params{}
	}
	resp, err := r.handle(imaerr.NewContext(ctx, cause), h, params.Clone(), params["path"], action, opts)
	if resp != nil {
		resp.Err = cause
	}
	return resp, err
}

// handle runs the middlewares and manages the page of h.
func (r *Router) handle(ctx context.Context, h route.Handler, params route.Params, path string, action page.Action, opts []route.Option) (*page.Response, error) {
	options := h.Options().With(opts...)
	if pm, ok := r.pageManager.(PreManager); ok {
		pm.PreManage()
	}
	if err := r.runMiddlewares(ctx, h, options, params, action); err != nil {
		return nil, err
	}

	data := RouteEvent{
		Route:   h,
		Params:  params,
		Path:    path,
		Options: options,
		Action:  action,
	}
	r.fire(EventBeforeHandleRoute, data)

	resp, err := r.pageManager.Manage(ctx, h, options, params, action)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		resp = &page.Response{}
	}

	data.Response = resp
	r.fire(EventAfterHandleRoute, data)
	return resp, nil
}

func (r *Router) fire(name string, data RouteEvent) {
	if r.dispatcher == nil {
		return
	}
	r.dispatcher.Fire(name, data, true)
}

func (r *Router) handlerForPath(path string) (route.Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, h := range r.handlers {
		if h.Matches(path) {
			return h, true
		}
	}
	return nil, false
}

// extractRoutePath strips the root and the language part from path.
func (r *Router) extractRoutePath(path string) string {
	r.mu.RLock()
	prefix := r.cfg.Root + r.cfg.LanguagePartPath
	r.mu.RUnlock()
	if rest, ok := strings.CutPrefix(path, prefix); ok && prefix != "" {
		if rest == "" || rest[0] == '/' || rest[0] == '?' {
			path = rest
		}
	}
	if path == "" || path[0] != '/' {
		path = "/" + path
	}
	return path
}
