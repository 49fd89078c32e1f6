package router

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/imago-dev/imago/pkg/event"
	"github.com/imago-dev/imago/pkg/imaerr"
	"github.com/imago-dev/imago/pkg/page"
	"github.com/imago-dev/imago/pkg/route"
	"github.com/imago-dev/imago/pkg/window"
)

// Mouse buttons of a click event.
const (
	MouseLeftButton   = 0
	MouseMiddleButton = 1
)

// ClientRouter routes inside a window. Navigations to the application are
// handled without reloading the document.
type ClientRouter struct {
	*Router
	win window.Window

	mu      sync.Mutex
	fatal   func(error)
	removes []func()
}

// NewClient creates a router for win.
func NewClient(pm PageManager, dispatcher *event.Dispatcher, win window.Window, opts ...Option) *ClientRouter {
	c := &ClientRouter{Router: New(pm, dispatcher, opts...), win: win}
	c.platform = c
	return c
}

// Init sets the application location. An empty host is taken from the
// window.
func (c *ClientRouter) Init(cfg Config) {
	if cfg.Host == "" {
		cfg.Host = c.win.Host()
	}
	if cfg.Protocol == "" {
		if scheme, _, ok := strings.Cut(c.win.Domain(), "//"); ok {
			cfg.Protocol = scheme
		}
	}
	c.Router.Init(cfg)
}

// SetFatalErrorHandler sets the handler of errors the error route could
// not render. Without one they are logged.
func (c *ClientRouter) SetFatalErrorHandler(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fatal = fn
}

// Route handles path. Routes that do not allow client side navigation are
// loaded with a hard redirect. Failures are handled by HandleError.
func (c *ClientRouter) Route(ctx context.Context, path string, action page.Action, opts ...route.Option) (*page.Response, error) {
	if h, ok := c.handlerForPath(path); ok && action.Type != "" && !h.Options().With(opts...).AllowSPA {
		c.win.Redirect(c.GetBaseURL() + path)
		return &page.Response{}, nil
	}

	resp, err := c.Router.Route(ctx, path, action, opts...)
	if err == nil || errors.Is(err, page.ErrNavigationAborted) {
		return resp, err
	}
	return c.handleError(ctx, err, route.Params{"path": path}, opts, false)
}

// HandleError renders the not-found route for client errors, redirects for
// redirection errors and renders the error route otherwise. Errors the
// error route cannot render go to the fatal error handler.
func (c *ClientRouter) HandleError(ctx context.Context, err error, params route.Params, opts ...route.Option) (*page.Response, error) {
	return c.handleError(ctx, err, params, opts, false)
}

// HandleNotFound renders the not-found route, falling back to the error
// route.
func (c *ClientRouter) HandleNotFound(ctx context.Context, params route.Params, opts ...route.Option) (*page.Response, error) {
	resp, err := c.Router.HandleNotFound(ctx, params, opts...)
	if err == nil {
		return resp, nil
	}
	return c.handleError(ctx, err, params, opts, true)
}

func (c *ClientRouter) handleError(ctx context.Context, err error, params route.Params, opts []route.Option, notFoundFailed bool) (*page.Response, error) {
	if c.IsClientError(err) && !notFoundFailed {
		resp, nerr := c.Router.HandleNotFound(ctx, params, opts...)
		if nerr == nil {
			resp.Err = err
			return resp, nil
		}
		return c.handleError(ctx, nerr, params, opts, true)
	}

	if c.IsRedirection(err) {
		target := imaerr.RedirectURL(err)
		if rerr := c.Redirect(ctx, target, page.Action{Type: page.ActionRedirect, URL: target}); rerr != nil {
			return nil, rerr
		}
		return &page.Response{Status: imaerr.StatusOf(err), Err: err}, nil
	}

	resp, herr := c.Router.HandleError(ctx, err, params, opts...)
	if herr != nil {
		fatal := errors.Join(err, herr)
		c.handleFatal(fatal)
		return nil, fatal
	}
	return resp, nil
}

func (c *ClientRouter) handleFatal(err error) {
	c.mu.Lock()
	fn := c.fatal
	c.mu.Unlock()
	if fn != nil {
		fn(err)
		return
	}
	c.logger.Warn("router: unhandled navigation error, set a fatal error handler", "error", err)
}

func (c *ClientRouter) path() (string, error) {
	u, err := url.Parse(c.win.Path())
	if err != nil {
		return "", err
	}
	return c.extractRoutePath(u.RequestURI()), nil
}

// redirect navigates softly within the application and reloads the
// document for any other target.
func (c *ClientRouter) redirect(ctx context.Context, target string, action page.Action, opts ...route.Option) error {
	target = c.resolve(target)
	if !c.isSameDomain(target) {
		c.win.Redirect(target)
		return nil
	}

	if action.Type == "" {
		action.Type = page.ActionRedirect
	}
	if action.URL == "" {
		action.URL = target
	}
	path := c.extractRoutePath(strings.TrimPrefix(target, c.GetDomain()))
	_, err := c.Route(ctx, path, action, opts...)
	return err
}

func (c *ClientRouter) listen() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.removes) > 0 {
		return nil
	}
	c.removes = append(c.removes,
		c.win.AddEventListener(window.EventPopState, c.handlePopState),
		c.win.AddEventListener(window.EventClick, c.handleClick),
	)
	return nil
}

func (c *ClientRouter) unlisten() error {
	c.mu.Lock()
	removes := c.removes
	c.removes = nil
	c.mu.Unlock()
	for _, remove := range removes {
		remove()
	}
	return nil
}

func (c *ClientRouter) handlePopState(e *window.Event) {
	if e.State == nil || e.DefaultPrevented() {
		return
	}
	c.Route(context.Background(), c.MustPath(), page.Action{
		Type:  page.ActionPopState,
		URL:   c.win.URL(),
		Event: e,
	})
}

// handleClick turns a plain left click on an anchor to the application into
// a client side navigation. Anchors with a target, links to other domains,
// links changing only the hash, modified clicks and prevented events are
// left to the browser.
func (c *ClientRouter) handleClick(e *window.Event) {
	a := e.Anchor
	if a == nil {
		return
	}
	href, ok := a.Attrs["href"]
	if !ok {
		return
	}
	href = c.resolve(href)

	switch {
	case a.Attr("target") != "",
		!c.isSameDomain(href),
		e.Button == MouseMiddleButton,
		e.Button == MouseLeftButton && (e.CtrlKey || e.MetaKey),
		e.DefaultPrevented(),
		c.isHashLink(href):
		return
	}

	e.PreventDefault()
	c.Redirect(context.Background(), href, page.Action{
		Type:  page.ActionClick,
		URL:   href,
		Event: e,
	})
}

// resolve makes target absolute against the current location.
func (c *ClientRouter) resolve(target string) string {
	base, err := url.Parse(c.win.URL())
	if err != nil {
		return target
	}
	ref, err := url.Parse(target)
	if err != nil {
		return target
	}
	return base.ResolveReference(ref).String()
}

func (c *ClientRouter) isSameDomain(target string) bool {
	base := c.GetBaseURL()
	if !strings.HasPrefix(target, base) {
		return false
	}
	rest := target[len(base):]
	return rest == "" || strings.ContainsRune("/?#", rune(rest[0]))
}

// isHashLink reports whether target only changes the fragment of the
// current location.
func (c *ClientRouter) isHashLink(target string) bool {
	if !strings.Contains(target, "#") {
		return false
	}
	current, _, _ := strings.Cut(c.win.URL(), "#")
	next, _, _ := strings.Cut(target, "#")
	return current == next
}
