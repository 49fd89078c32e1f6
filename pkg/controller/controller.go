// Package controller defines the units that own a page's state: the
// Controller bound to a route and the Extensions attached to it.
//
// Applications embed Base or BaseExtension and override the lifecycle
// methods they need:
//
//	type HomeController struct {
//		controller.Base
//		api *API
//	}
//
//	func (c *HomeController) Load(ctx context.Context) (map[string]any, error) {
//		return map[string]any{
//			"articles": resource.NewContext(ctx, c.api.Articles),
//		}, nil
//	}
//
// Values of the map returned by Load and Update are either plain values or
// *resource.Resource; the page manager and renderer settle them.
package controller

import (
	"context"
	"net/http"
	"sync"

	"github.com/imago-dev/imago/pkg/meta"
	"github.com/imago-dev/imago/pkg/route"
	"github.com/imago-dev/imago/pkg/state"
)

// Linker builds URLs of named routes.
type Linker interface {
	Link(name string, params route.Params) (string, error)
}

// Dictionary resolves localized messages.
type Dictionary interface {
	Get(key string, params map[string]any) string
}

// MetaParams are the collaborators a controller needs to fill in the page
// metadata.
type MetaParams struct {
	Meta       *meta.Manager
	Router     Linker
	Dictionary Dictionary
	Settings   map[string]any
}

// Lifecycle is shared by controllers and extensions.
type Lifecycle interface {
	// Init is called once the instance becomes part of the current page.
	Init() error

	// Load returns the resources the page state is made of.
	Load(ctx context.Context) (map[string]any, error)

	// Update is called instead of a full lifecycle when only the route
	// parameters changed. It returns the resources to patch into state.
	Update(ctx context.Context, prev route.Params) (map[string]any, error)

	// Activate is called once the page has been rendered.
	Activate()

	// Deactivate is called before the page is torn down.
	Deactivate()

	// Destroy releases everything Init acquired.
	Destroy()

	SetRouteParams(params route.Params)
	RouteParams() route.Params

	SetPageStateManager(m state.Manager)
	State() state.State
	SetState(patch state.State) error
}

// Controller owns the state of one page.
type Controller interface {
	Lifecycle

	// SetMetaParams fills the page metadata once resources are loaded.
	SetMetaParams(resources map[string]any, p MetaParams)

	// HTTPStatus is the status the server responds with.
	HTTPStatus() int

	AddExtension(ext Extension)
	Extensions() []Extension
}

// Extension contributes part of a page state. It may only set the keys it
// declares in AllowedStateKeys.
type Extension interface {
	Lifecycle

	// AllowedStateKeys lists the state keys the extension owns.
	AllowedStateKeys() []string

	// SetPartialState gives the extension the state accumulated so far
	// during loading, before its own Load runs.
	SetPartialState(s state.State)
	PartialState() state.State
	ClearPartialState()
}

// Base is an embeddable Controller with no-op lifecycle methods.
type Base struct {
	mu         sync.RWMutex
	params     route.Params
	states     state.Manager
	extensions []Extension
	status     int
}

var _ Controller = (*Base)(nil)

func (c *Base) Init() error { return nil }

func (c *Base) Load(context.Context) (map[string]any, error) { return nil, nil }

// Update returns no resources.
func (c *Base) Update(context.Context, route.Params) (map[string]any, error) {
	return map[string]any{}, nil
}

func (c *Base) Activate()   {}
func (c *Base) Deactivate() {}
func (c *Base) Destroy()    {}

func (c *Base) SetMetaParams(map[string]any, MetaParams) {}

func (c *Base) SetRouteParams(params route.Params) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.params = params
}

func (c *Base) RouteParams() route.Params {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.params == nil {
		return route.Params{}
	}
	return c.params
}

func (c *Base) SetPageStateManager(m state.Manager) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states = m
}

// State returns the current page state.
func (c *Base) State() state.State {
	c.mu.RLock()
	m := c.states
	c.mu.RUnlock()
	if m == nil {
		return state.State{}
	}
	return m.GetState()
}

// SetState patches the page state. Without a state manager, e.g. after
// the page has been torn down, the patch is dropped.
func (c *Base) SetState(patch state.State) error {
	c.mu.RLock()
	m := c.states
	c.mu.RUnlock()
	if m == nil {
		return nil
	}
	return m.SetState(patch)
}

// SetHTTPStatus sets the status HTTPStatus returns.
func (c *Base) SetHTTPStatus(status int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = status
}

// HTTPStatus defaults to 200.
func (c *Base) HTTPStatus() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}

func (c *Base) AddExtension(ext Extension) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.extensions = append(c.extensions, ext)
}

// Extensions returns the extensions in registration order.
func (c *Base) Extensions() []Extension {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Extension(nil), c.extensions...)
}
