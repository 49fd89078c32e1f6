package imago

import (
	"fmt"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	ierrors "github.com/imago-dev/imago/internal/errors"
	"github.com/imago-dev/imago/pkg/cache"
	"github.com/imago-dev/imago/pkg/container"
	"github.com/imago-dev/imago/pkg/controller"
	"github.com/imago-dev/imago/pkg/devtools"
	"github.com/imago-dev/imago/pkg/event"
	"github.com/imago-dev/imago/pkg/middleware"
	"github.com/imago-dev/imago/pkg/page/factory"
	"github.com/imago-dev/imago/pkg/page/manager"
	"github.com/imago-dev/imago/pkg/page/renderer"
	"github.com/imago-dev/imago/pkg/router"
	"github.com/imago-dev/imago/pkg/state"
	"github.com/imago-dev/imago/pkg/storage"
)

// Names of the framework constants bound in every request container.
const (
	BindRequest          = "$Request"
	BindResponse         = "$Response"
	BindRouter           = "$Router"
	BindDispatcher       = "$Dispatcher"
	BindPageStateManager = "$PageStateManager"
	BindCache            = "$Cache"
	BindCookieStorage    = "$CookieStorage"
	BindSettings         = "$Settings"
	BindEnv              = "$Env"
	BindLanguage         = "$Language"
	BindDictionary       = "$Dictionary"
)

// pageRequest is everything one page request is rendered with.
type pageRequest struct {
	oc         *container.Container
	dispatcher *event.Dispatcher
	states     *state.PageStateManager
	cache      *cache.Cache
	cookies    *storage.CookieStorage
	request    *router.Request
	response   *router.Response
	router     *router.ServerRouter
	manager    *manager.Server
}

func (a *App) newPageRequest(w http.ResponseWriter, r *http.Request) (*pageRequest, error) {
	logger := a.logger.With("request_id", chimw.GetReqID(r.Context()))

	p := &pageRequest{
		request:  router.NewRequest(r),
		response: router.NewResponse(w),
	}
	p.oc = container.New(nil, container.WithDebug(a.cfg.Debug), container.WithLogger(logger))
	p.dispatcher = event.NewDispatcher(event.WithLogger(logger), event.WithDebug(a.cfg.Debug))
	p.states = state.NewPageStateManager(p.dispatcher, logger)
	p.cookies = storage.NewCookieStorage(p.response)
	p.cookies.ParseCookieHeader(p.request.CookieHeader())
	p.cache = cache.New(storage.NewMapStorage(), cache.WithDefaultTTL(a.cfg.Cache.TTL), cache.WithLogger(logger))
	if !a.cfg.Cache.Enabled {
		p.cache.Disable()
	}

	protocol := a.cfg.Protocol
	if protocol == "" {
		protocol = p.request.Protocol()
	}
	host := a.cfg.Host
	if host == "" {
		host = p.request.Host()
	}
	language := DefaultLanguage
	if a.cfg.Language != nil {
		language = a.cfg.Language(host)
	}
	var dict controller.Dictionary
	if a.cfg.Dictionary != nil {
		dict = a.cfg.Dictionary(language)
	}
	settings := a.cfg.App
	if settings == nil {
		settings = map[string]any{}
	}

	f := factory.New(p.oc, factory.Config{
		Dictionary: dict,
		Settings:   settings,
		Debug:      a.cfg.Debug,
	})
	rend := renderer.NewServer(renderer.Config{
		Factory:    f,
		Dispatcher: p.dispatcher,
		Utils:      map[string]any{BindDictionary: dict, BindSettings: settings},
		Logger:     logger,
	}, renderer.ServerOptions{
		Response: p.response,
		Cache:    p.cache,
		Revival: renderer.Revival{
			Language:         language,
			Env:              a.cfg.Env,
			Debug:            a.cfg.Debug,
			Version:          a.cfg.Version,
			App:              a.cfg.App,
			Protocol:         protocol,
			Host:             host,
			Path:             p.request.Path(),
			Root:             a.cfg.Root,
			LanguagePartPath: a.cfg.LanguagePartPath,
		},
		Scripts: a.cfg.Scripts,
	})
	p.manager = manager.NewServer(manager.Config{
		Factory:  f,
		Renderer: rend,
		States:   p.states,
		Debug:    a.cfg.Debug,
		Logger:   logger,
	})

	a.mu.RLock()
	pm := middleware.Wrap(p.manager, a.middlewares...)
	a.mu.RUnlock()
	p.router = router.NewServer(pm, p.dispatcher, p.request, p.response, router.WithLogger(logger))
	p.router.Init(router.Config{
		Protocol:         protocol,
		Host:             host,
		Root:             a.cfg.Root,
		LanguagePartPath: a.cfg.LanguagePartPath,
	})
	f.SetRouter(p.router)

	constants := map[string]any{
		BindRequest:          p.request,
		BindResponse:         p.response,
		BindRouter:           p.router,
		BindDispatcher:       p.dispatcher,
		BindPageStateManager: p.states,
		BindCache:            p.cache,
		BindCookieStorage:    p.cookies,
		BindSettings:         settings,
		BindEnv:              a.cfg.Env,
		BindLanguage:         language,
	}
	if dict != nil {
		constants[BindDictionary] = dict
	}
	if err := a.bind(p.oc, constants); err != nil {
		return nil, err
	}
	if err := a.registerRoutes(p.router.Router); err != nil {
		return nil, err
	}
	if err := p.manager.Init(); err != nil {
		return nil, err
	}
	if a.events != nil {
		p.relay(a.events)
	}
	return p, nil
}

// bind runs the framework, plugin and application bindings in their
// binding states.
func (a *App) bind(oc *container.Container, constants map[string]any) error {
	if err := oc.SetBindingState(container.StateIMA, ""); err != nil {
		return ierrors.New("E140").Wrap(err)
	}
	for name, value := range constants {
		if err := oc.Constant(name, value); err != nil {
			return ierrors.New("E140").Wrap(err)
		}
	}

	a.mu.RLock()
	plugins := a.plugins
	binds := a.binds
	a.mu.RUnlock()

	for _, p := range plugins {
		if err := oc.SetBindingState(container.StatePlugin, p.name); err != nil {
			return ierrors.New("E140").Wrap(err)
		}
		if err := p.bind(oc); err != nil {
			return ierrors.New("E140").WithDetail(fmt.Sprintf("The bindings of plugin %q failed.", p.name)).Wrap(err)
		}
	}

	if err := oc.SetBindingState(container.StateApp, ""); err != nil {
		return ierrors.New("E140").Wrap(err)
	}
	for _, fn := range binds {
		if err := fn(oc); err != nil {
			return ierrors.New("E140").Wrap(err)
		}
	}
	return nil
}

// registerRoutes adds the application routes to r and checks the reserved
// routes are among them.
func (a *App) registerRoutes(r *router.Router) error {
	a.mu.RLock()
	routes := a.routes
	a.mu.RUnlock()

	for _, fn := range routes {
		if err := fn(r); err != nil {
			return ierrors.New("E141").Wrap(err)
		}
	}
	for _, name := range []string{router.RouteNotFound, router.RouteError} {
		if _, ok := r.GetRouteHandler(name); !ok {
			return ierrors.New("E142").WithDetail(fmt.Sprintf("The %q route is not registered.", name))
		}
	}
	return nil
}

// relay forwards the events devtools watches to the application
// dispatcher.
func (p *pageRequest) relay(to *event.Dispatcher) {
	for _, name := range devtools.DefaultEvents {
		p.dispatcher.Listen(name, p, func(data any) {
			to.Fire(name, data, true)
		})
	}
}

func (p *pageRequest) destroy() {
	p.manager.Destroy()
	p.dispatcher.Clear()
	p.oc.Clear()
}
