// Package renderer turns a controller's state into markup: a complete
// document at the server, in-place patches of the window's document at the
// client.
package renderer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/imago-dev/imago/pkg/event"
	"github.com/imago-dev/imago/pkg/page"
	"github.com/imago-dev/imago/pkg/page/factory"
	"github.com/imago-dev/imago/pkg/route"
	"github.com/imago-dev/imago/pkg/state"
	"github.com/imago-dev/imago/pkg/view"
)

// Events fired on the dispatcher.
const (
	EventMounted   = "$IMA.$PageRenderer.mounted"
	EventUpdated   = "$IMA.$PageRenderer.updated"
	EventUnmounted = "$IMA.$PageRenderer.unmounted"
	EventError     = "$IMA.$PageRenderer.error"
)

var (
	// ErrUpdateOnServer is returned by Server.Update.
	ErrUpdateOnServer = errors.New("renderer: update is not supported at the server")

	// ErrNoMountElement is returned when the window document has no
	// element to mount the page into.
	ErrNoMountElement = errors.New("renderer: mount element not found")
)

// Event is the payload of renderer events.
type Event struct {
	PageState state.State
	Err       error
}

// Renderer renders pages for a page manager.
type Renderer interface {
	// Mount renders a new page from the controller's loaded resources.
	Mount(ctx context.Context, c *factory.ControllerDecorator, v view.View, resources map[string]any, opts route.Options) (*page.Response, error)

	// Update patches the resources of an only-update navigation into the
	// current page.
	Update(ctx context.Context, c *factory.ControllerDecorator, v view.View, resources map[string]any, opts route.Options) (*page.Response, error)

	// Unmount removes the rendered page.
	Unmount()

	// SetState re-renders the current page with s.
	SetState(s state.State)

	// ClearState empties the rendered state, keeping the page mounted.
	ClearState()
}

// Config holds what both renderers need.
type Config struct {
	Factory    *factory.PageFactory
	Dispatcher *event.Dispatcher

	// Utils is handed to every view as Props.Utils.
	Utils map[string]any

	Logger *slog.Logger
}

type base struct {
	cfg Config
}

func newBase(cfg Config) base {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return base{cfg: cfg}
}

// compose renders the page view through the route's root view and adapter.
func (b *base) compose(v view.View, opts route.Options, s state.State) (*view.Node, error) {
	root, err := b.cfg.Factory.CreateView(opts.ManagedRootView)
	if err != nil {
		return nil, err
	}
	adapter, err := b.cfg.Factory.CreateView(opts.ViewAdapter)
	if err != nil {
		return nil, err
	}
	return view.Compose(adapter, root, v, view.Props{State: s, Utils: b.cfg.Utils}), nil
}

func (b *base) fire(name string, s state.State, err error) {
	if b.cfg.Dispatcher == nil {
		return
	}
	b.cfg.Dispatcher.Fire(name, Event{PageState: s, Err: err}, true)
}

func response(c *factory.ControllerDecorator, content string) *page.Response {
	return &page.Response{
		Status:    c.HTTPStatus(),
		Content:   content,
		PageState: c.State(),
	}
}
