// Package manager drives the lifecycle of the page a router navigates to.
//
// A navigation either updates the current page, when the route's
// only-update policy applies to the same controller and view, or replaces
// it:
//
//  1. the pre-navigation handlers run against the prospective page;
//  2. the current page is deactivated and destroyed, the state cleared and
//     the rendered view cleared or unmounted;
//  3. the new controller and its extensions are initialized and loaded;
//  4. the renderer mounts the loaded resources;
//  5. the post-navigation handlers run.
//
// Navigations are not serialized. A navigation starting while another is
// loading cancels the loads of the older one through PreManage, which then
// fails with page.ErrNavigationAborted.
package manager

import (
	"context"
	"log/slog"
	"sync"

	"github.com/imago-dev/imago/pkg/controller"
	"github.com/imago-dev/imago/pkg/imaerr"
	"github.com/imago-dev/imago/pkg/page"
	"github.com/imago-dev/imago/pkg/page/factory"
	"github.com/imago-dev/imago/pkg/page/handler"
	"github.com/imago-dev/imago/pkg/page/renderer"
	"github.com/imago-dev/imago/pkg/route"
	"github.com/imago-dev/imago/pkg/state"
)

// Config holds the collaborators of a Manager.
type Config struct {
	Factory  *factory.PageFactory
	Renderer renderer.Renderer
	States   *state.PageStateManager

	// Handlers run around every navigation. Defaults to an empty registry.
	Handlers *handler.Registry

	// Debug rejects extension state outside the declared keys.
	Debug bool

	Logger *slog.Logger
}

// Manager is the page manager shared by the server and the client.
type Manager struct {
	cfg Config

	mu         sync.Mutex
	current    *page.ManagedPage
	previous   *page.ManagedPage
	navigation uint64
	cancelLoad context.CancelFunc
}

// New creates a page manager. Init must be called before Manage.
func New(cfg Config) *Manager {
	if cfg.Handlers == nil {
		cfg.Handlers = handler.NewRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{
		cfg:      cfg,
		current:  &page.ManagedPage{},
		previous: &page.ManagedPage{},
	}
}

// Init empties the managed page, routes state changes to the renderer and
// initializes the handlers.
func (m *Manager) Init() error {
	m.mu.Lock()
	m.current.Reset()
	m.previous.Reset()
	m.mu.Unlock()

	m.cfg.States.OnChange(m.cfg.Renderer.SetState)
	return m.cfg.Handlers.Init()
}

// PreManage cancels the loads of a navigation still in progress.
func (m *Manager) PreManage() {
	m.mu.Lock()
	cancel := m.cancelLoad
	m.cancelLoad = nil
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Current returns a snapshot of the managed page.
func (m *Manager) Current() *page.ManagedPage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.Snapshot()
}

// Manage navigates to the page of h.
func (m *Manager) Manage(ctx context.Context, h route.Handler, options route.Options, params route.Params, action page.Action) (*page.Response, error) {
	loadCtx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.navigation++
	nav := m.navigation
	m.cancelLoad = cancel
	m.previous = m.current.Snapshot()
	current := m.current
	onlyUpdate := m.hasOnlyUpdate(h, options)
	m.mu.Unlock()
	defer m.releaseLoad(nav, cancel)

	m.cfg.Logger.Debug("manager: navigation", "route", h.Name(), "action", action.Type, "onlyUpdate", onlyUpdate)

	var (
		resp *page.Response
		err  error
	)
	if onlyUpdate {
		resp, err = m.update(loadCtx, current, h, options, params, action)
	} else {
		resp, err = m.replace(loadCtx, h, options, params, action)
	}
	if err != nil && loadCtx.Err() != nil && ctx.Err() == nil {
		return nil, page.ErrNavigationAborted
	}
	return resp, err
}

func (m *Manager) releaseLoad(nav uint64, cancel context.CancelFunc) {
	m.mu.Lock()
	if m.navigation == nav {
		m.cancelLoad = nil
	}
	m.mu.Unlock()
	cancel()
}

// hasOnlyUpdate must be called with mu held.
func (m *Manager) hasOnlyUpdate(h route.Handler, options route.Options) bool {
	if m.current.IsEmpty() {
		return false
	}
	if options.OnlyUpdateFunc != nil {
		return options.OnlyUpdateFunc(m.current.ControllerKey, m.current.ViewKey, h.Controller(), h.View())
	}
	return options.OnlyUpdate &&
		m.current.ControllerKey == h.Controller() &&
		m.current.ViewKey == h.View()
}

// update patches the current page with the new route parameters.
func (m *Manager) update(ctx context.Context, current *page.ManagedPage, h route.Handler, options route.Options, params route.Params, action page.Action) (*page.Response, error) {
	m.mu.Lock()
	prevParams := current.Params.Clone()
	current.Route = h
	current.Options = options
	current.Params = params
	previous := m.previous
	m.mu.Unlock()

	if err := m.cfg.Handlers.HandlePreManagedState(ctx, current, current, action); err != nil {
		return nil, err
	}

	ctrl := current.Controller
	ctrl.SetRouteParams(params)
	resources, err := ctrl.Update(ctx, prevParams)
	if err != nil {
		return nil, err
	}
	resources, err = m.extensionResources(resources, ctrl, func(ext controller.Extension) (map[string]any, error) {
		ext.SetRouteParams(params)
		return ext.Update(ctx, prevParams)
	})
	if err != nil {
		return nil, err
	}

	resp, err := m.cfg.Renderer.Update(ctx, current.Decorated, current.View, resources, options)
	if err != nil {
		return nil, err
	}

	if err := m.cfg.Handlers.HandlePostManagedState(ctx, current, previous, action); err != nil {
		return nil, err
	}
	return resp, nil
}

// replace tears the current page down and mounts the page of h.
func (m *Manager) replace(ctx context.Context, h route.Handler, options route.Options, params route.Params, action page.Action) (*page.Response, error) {
	next, err := m.newPage(ctx, h, options, params)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	current := m.current
	m.mu.Unlock()
	if err := m.cfg.Handlers.HandlePreManagedState(ctx, current, next, action); err != nil {
		return nil, err
	}

	m.teardown(current)
	if current.SameViews(next) {
		m.cfg.Renderer.ClearState()
	} else {
		m.cfg.Renderer.Unmount()
	}

	m.mu.Lock()
	m.current = next
	previous := m.previous
	m.mu.Unlock()

	if err := m.initPage(next); err != nil {
		return nil, err
	}
	resources, err := m.loadPage(ctx, next)
	if err != nil {
		return nil, err
	}

	resp, err := m.cfg.Renderer.Mount(ctx, next.Decorated, next.View, resources, options)
	if err != nil {
		return nil, err
	}

	if err := m.cfg.Handlers.HandlePostManagedState(ctx, next, previous, action); err != nil {
		return nil, err
	}
	return resp, nil
}

func (m *Manager) newPage(ctx context.Context, h route.Handler, options route.Options, params route.Params) (*page.ManagedPage, error) {
	ctrl, err := m.cfg.Factory.CreateController(h.Controller())
	if err != nil {
		return nil, err
	}
	// Error and not-found pages respond with the status of the error by
	// default.
	if routeErr := imaerr.FromContext(ctx); routeErr != nil {
		if s, ok := ctrl.(interface{ SetHTTPStatus(int) }); ok {
			s.SetHTTPStatus(imaerr.StatusOf(routeErr))
		}
	}
	v, err := m.cfg.Factory.CreateView(h.View())
	if err != nil {
		return nil, err
	}

	return &page.ManagedPage{
		ControllerKey: h.Controller(),
		Controller:    ctrl,
		Decorated:     m.cfg.Factory.DecorateController(ctrl),
		ViewKey:       h.View(),
		View:          v,
		Route:         h,
		Options:       options,
		Params:        params,
	}, nil
}

// teardown deactivates and destroys p and clears the page state.
func (m *Manager) teardown(p *page.ManagedPage) {
	if p.IsEmpty() {
		return
	}
	m.deactivate(p)
	for _, ext := range p.Controller.Extensions() {
		ext.Destroy()
		ext.SetPageStateManager(nil)
	}
	p.Controller.Destroy()
	p.Controller.SetPageStateManager(nil)
	m.cfg.States.Clear()
}

func (m *Manager) initPage(p *page.ManagedPage) error {
	ctrl := p.Controller
	ctrl.SetRouteParams(p.Params)
	ctrl.SetPageStateManager(m.cfg.States)
	if err := ctrl.Init(); err != nil {
		return err
	}

	for _, ext := range ctrl.Extensions() {
		ext.SetRouteParams(p.Params)
		ext.SetPageStateManager(m.cfg.Factory.DecoratePageStateManager(m.cfg.States, ext.AllowedStateKeys()))
		if err := ext.Init(); err != nil {
			return err
		}
	}
	return nil
}

// loadPage loads the controller, then each extension in order. Extension
// resources are layered over the controller's.
func (m *Manager) loadPage(ctx context.Context, p *page.ManagedPage) (map[string]any, error) {
	resources, err := p.Controller.Load(ctx)
	if err != nil {
		return nil, err
	}
	return m.extensionResources(resources, p.Controller, func(ext controller.Extension) (map[string]any, error) {
		return ext.Load(ctx)
	})
}

// extensionResources calls load for every extension of ctrl, handing each
// the resources accumulated so far.
func (m *Manager) extensionResources(resources map[string]any, ctrl controller.Controller, load func(controller.Extension) (map[string]any, error)) (map[string]any, error) {
	acc := state.Merge(resources)
	for _, ext := range ctrl.Extensions() {
		ext.SetPartialState(acc.Clone())
		loaded, err := load(ext)
		ext.ClearPartialState()
		if err != nil {
			return nil, err
		}
		if m.cfg.Debug {
			scoped := state.Restrict(m.cfg.States, ext.AllowedStateKeys(), true)
			if err := scoped.Check(loaded); err != nil {
				return nil, err
			}
		}
		acc = state.Merge(acc, loaded)
	}
	return acc, nil
}

// activate activates the managed page once.
func (m *Manager) activate() {
	m.mu.Lock()
	p := m.current
	if p.IsEmpty() || p.State.Activated {
		m.mu.Unlock()
		return
	}
	p.State.Activated = true
	m.mu.Unlock()

	p.Controller.Activate()
	for _, ext := range p.Controller.Extensions() {
		ext.Activate()
	}
}

func (m *Manager) deactivate(p *page.ManagedPage) {
	m.mu.Lock()
	active := p.State.Activated
	p.State.Activated = false
	m.mu.Unlock()
	if !active {
		return
	}
	for _, ext := range p.Controller.Extensions() {
		ext.Deactivate()
	}
	p.Controller.Deactivate()
}

// Destroy tears the managed page down and destroys the handlers. It is
// safe to call on a manager without a page.
func (m *Manager) Destroy() {
	m.PreManage()
	m.cfg.Handlers.Destroy()

	m.mu.Lock()
	current := m.current
	m.mu.Unlock()
	if current.IsEmpty() {
		return
	}
	m.teardown(current)

	m.mu.Lock()
	m.current = &page.ManagedPage{}
	m.previous = &page.ManagedPage{}
	m.mu.Unlock()
}
