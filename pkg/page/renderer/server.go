package renderer

import (
	"context"
	"encoding/json"

	"github.com/imago-dev/imago/pkg/cache"
	"github.com/imago-dev/imago/pkg/page"
	"github.com/imago-dev/imago/pkg/page/factory"
	"github.com/imago-dev/imago/pkg/resource"
	"github.com/imago-dev/imago/pkg/route"
	"github.com/imago-dev/imago/pkg/state"
	"github.com/imago-dev/imago/pkg/view"
)

// ServerResponse is the part of the HTTP response the server renderer
// writes to. Status and Send fail once the response has been sent.
type ServerResponse interface {
	IsSent() bool
	StatusCode() int
	Status(code int) error
	Send(content string) error
}

// ServerOptions are the request-scoped inputs of a Server renderer.
type ServerOptions struct {
	Response ServerResponse

	// Cache is serialized into the revival payload. May be nil.
	Cache *cache.Cache

	Revival Revival

	// Scripts are the client scripts referenced by the document.
	Scripts []string
}

// Server renders one complete document per request.
type Server struct {
	base
	opts ServerOptions
}

var _ Renderer = (*Server)(nil)

// NewServer creates a renderer for a single request.
func NewServer(cfg Config, opts ServerOptions) *Server {
	return &Server{base: newBase(cfg), opts: opts}
}

// Mount waits for every resource, renders the document and sends it with
// the controller's status. If the response was already sent, e.g. by a
// redirect issued while loading, nothing is rendered.
func (r *Server) Mount(ctx context.Context, c *factory.ControllerDecorator, v view.View, resources map[string]any, opts route.Options) (*page.Response, error) {
	if r.opts.Response.IsSent() {
		return r.sentResponse(c), nil
	}

	loaded, err := resource.AwaitAll(ctx, resources)
	if err != nil {
		r.fire(EventError, nil, err)
		return nil, err
	}
	if r.opts.Response.IsSent() {
		return r.sentResponse(c), nil
	}

	if err := c.Controller().SetState(loaded); err != nil {
		return nil, err
	}
	c.SetMetaParams(loaded)
	pageState := c.State()

	content, err := r.renderDocument(c, v, opts, pageState)
	if err != nil {
		r.fire(EventError, pageState, err)
		return nil, err
	}

	status := c.HTTPStatus()
	if err := r.opts.Response.Status(status); err != nil {
		return nil, err
	}
	if err := r.opts.Response.Send(content); err != nil {
		return nil, err
	}

	r.fire(EventMounted, pageState, nil)
	return &page.Response{Status: status, Content: content, PageState: pageState}, nil
}

// Update always fails: a server response is rendered once.
func (r *Server) Update(context.Context, *factory.ControllerDecorator, view.View, map[string]any, route.Options) (*page.Response, error) {
	return nil, ErrUpdateOnServer
}

func (r *Server) Unmount()             {}
func (r *Server) SetState(state.State) {}
func (r *Server) ClearState()          {}

func (r *Server) sentResponse(c *factory.ControllerDecorator) *page.Response {
	return &page.Response{
		Status:    r.opts.Response.StatusCode(),
		PageState: c.State(),
	}
}

func (r *Server) renderDocument(c *factory.ControllerDecorator, v view.View, opts route.Options, s state.State) (string, error) {
	body, err := r.compose(v, opts, s)
	if err != nil {
		return "", err
	}
	doc, err := r.cfg.Factory.CreateDocument(opts.DocumentView)
	if err != nil {
		return "", err
	}

	revival := r.opts.Revival
	if r.opts.Cache != nil {
		data, err := r.opts.Cache.Serialize()
		if err != nil {
			return "", err
		}
		revival.Cache = json.RawMessage(data)
	}
	script, err := revival.Script()
	if err != nil {
		return "", err
	}

	m := c.MetaManager()
	return view.RenderDocument(doc.RenderDocument(view.DocumentProps{
		Page:    body,
		Head:    m.HeadNodes(),
		Title:   m.Title(),
		Lang:    revival.Language,
		Revival: script,
		Scripts: r.opts.Scripts,
		Utils:   r.cfg.Utils,
	})), nil
}
