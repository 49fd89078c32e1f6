// Package imago serves isomorphic page applications over HTTP.
//
// An App renders every page request on its own object container, router,
// page manager and renderer, so requests never share page state. What is
// shared lives on the App: the bindings and routes the request containers
// are built from, the page cache, the page manager middlewares and the
// devtools event stream.
//
//	app := imago.New(imago.Config{Env: "prod", Cache: imago.CacheConfig{Enabled: true}})
//	app.Bind(func(oc *container.Container) error {
//	    return oc.Bind("HomeController", container.Func("HomeController", NewHomeController))
//	})
//	app.Routes(func(r *router.Router) error {
//	    return errors.Join(
//	        r.Add("home", "/", "HomeController", "HomeView"),
//	        r.Add(router.RouteNotFound, "/not-found", "ErrorController", "NotFoundView"),
//	        r.Add(router.RouteError, "/error", "ErrorController", "ErrorView"),
//	    )
//	})
//	log.Fatal(app.Run(ctx, ":3001"))
package imago

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	ierrors "github.com/imago-dev/imago/internal/errors"
	"github.com/imago-dev/imago/pkg/cache"
	"github.com/imago-dev/imago/pkg/container"
	"github.com/imago-dev/imago/pkg/devtools"
	"github.com/imago-dev/imago/pkg/event"
	"github.com/imago-dev/imago/pkg/middleware"
	"github.com/imago-dev/imago/pkg/page"
	"github.com/imago-dev/imago/pkg/routepath"
	"github.com/imago-dev/imago/pkg/router"
	"github.com/imago-dev/imago/pkg/storage"
)

// BindFunc registers bindings in the object container of a request.
type BindFunc func(oc *container.Container) error

// RoutesFunc registers the routes of the application.
type RoutesFunc func(r *router.Router) error

type plugin struct {
	name string
	bind BindFunc
}

// App is the imago application. It implements http.Handler.
type App struct {
	cfg    Config
	logger *slog.Logger
	static *staticFiles

	// pages caches the documents of anonymous requests. Nil when the
	// cache is disabled.
	pages     *cache.Cache
	stopReap  context.CancelFunc
	closeOnce sync.Once

	// bus and events carry what devtools streams. Nil without devtools.
	bus      *event.EventBus
	events   *event.Dispatcher
	devtools *devtools.Server

	mu          sync.RWMutex
	plugins     []plugin
	binds       []BindFunc
	routes      []RoutesFunc
	middlewares []middleware.Middleware

	handlerOnce sync.Once
	handler     http.Handler
}

// New creates an App.
func New(cfg Config) *App {
	if cfg.Static.Prefix == "" {
		cfg.Static.Prefix = "/"
	}
	if cfg.Cache.TTL <= 0 {
		cfg.Cache.TTL = cache.DefaultTTL
	}
	if cfg.Env == "" {
		cfg.Env = "prod"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{
		cfg:    cfg,
		logger: logger,
		static: newStaticFiles(cfg.Static),
	}

	if cfg.Cache.Enabled {
		s := cfg.Cache.Storage
		if s == nil {
			arena := storage.NewArenaStorage(storage.WithTTL(cfg.Cache.TTL))
			ctx, cancel := context.WithCancel(context.Background())
			go arena.Reap(ctx, cfg.Cache.TTL)
			a.stopReap = cancel
			s = arena
		}
		a.pages = cache.New(s, cache.WithDefaultTTL(cfg.Cache.TTL), cache.WithLogger(logger))
	}

	if cfg.Metrics {
		a.middlewares = append(a.middlewares, middleware.Prometheus())
	}
	if cfg.Tracing {
		a.middlewares = append(a.middlewares, middleware.OpenTelemetry())
	}
	if cfg.Devtools {
		a.bus = event.NewEventBus()
		a.events = event.NewDispatcher(event.WithLogger(logger))
		a.devtools = devtools.NewServer(a.bus, a.events, devtools.WithLogger(logger))
	}
	return a
}

// Config returns the configuration of the App.
func (a *App) Config() Config {
	return a.cfg
}

// Plugin registers the bindings of a plugin. Plugins bind after the
// framework and before the application, and may only override existing
// bindings through Inject.
func (a *App) Plugin(name string, fn BindFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.plugins = append(a.plugins, plugin{name: name, bind: fn})
}

// Bind registers application bindings.
func (a *App) Bind(fn BindFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.binds = append(a.binds, fn)
}

// Routes registers routes. The application must register the
// router.RouteNotFound and router.RouteError routes.
func (a *App) Routes(fn RoutesFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.routes = append(a.routes, fn)
}

// Use wraps the page manager of every request with mw. The first
// middleware is the outermost.
func (a *App) Use(mw ...middleware.Middleware) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.middlewares = append(a.middlewares, mw...)
}

// RouteTable returns the routes of the application in matching order.
func (a *App) RouteTable() ([]RouteInfo, error) {
	r := router.New(nil, nil, router.WithLogger(a.logger))
	if err := a.registerRoutes(r); err != nil {
		return nil, err
	}
	handlers := r.GetRouteHandlers()
	out := make([]RouteInfo, 0, len(handlers))
	for _, h := range handlers {
		info := RouteInfo{Name: h.Name(), Controller: h.Controller(), View: h.View()}
		if p, ok := h.(interface{ PathExpression() string }); ok {
			info.Path = p.PathExpression()
		}
		out = append(out, info)
	}
	return out, nil
}

// RouteInfo describes a registered route.
type RouteInfo struct {
	Name       string
	Path       string
	Controller any
	View       any
}

// Handler returns the HTTP handler of the App.
func (a *App) Handler() http.Handler {
	a.handlerOnce.Do(func() {
		r := chi.NewRouter()
		r.Use(chimw.RequestID)
		r.Use(chimw.RealIP)
		r.Use(chimw.Recoverer)
		r.Use(routepath.Middleware)

		if a.cfg.Metrics {
			r.Handle(MetricsPath, promhttp.Handler())
		}
		if a.devtools != nil {
			r.Get(DevtoolsPath, a.devtools.HandleWebSocket)
		}
		r.Get("/*", a.serve)
		r.Head("/*", a.serve)
		a.handler = r
	})
	return a.handler
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.Handler().ServeHTTP(w, r)
}

// serve answers with a static file, a cached page or a rendered page.
func (a *App) serve(w http.ResponseWriter, r *http.Request) {
	if a.static != nil && a.static.serve(w, r) {
		return
	}

	key := a.pageCacheKey(r)
	if key != "" {
		if a.serveCached(w, key) {
			return
		}
		w.Header().Set(CacheHeader, "miss")
	}

	ctx := r.Context()
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	status, content, err := a.render(ctx, w, r)
	if a.cfg.Metrics {
		middleware.RecordResponse(status)
	}
	if a.bus != nil {
		a.bus.Fire(a, "request", map[string]any{"path": r.URL.RequestURI(), "status": status})
	}
	if key != "" && err == nil && status == http.StatusOK && len(w.Header().Values("Set-Cookie")) == 0 {
		if err := a.pages.Set(key, content, 0); err != nil {
			a.logger.Warn("imago: page cache write failed", "key", key, "error", err)
		}
	}
}

// render routes r on a fresh request scope and returns the status and
// document sent.
func (a *App) render(ctx context.Context, w http.ResponseWriter, r *http.Request) (int, string, error) {
	p, err := a.newPageRequest(w, r)
	if err != nil {
		a.logger.Error("imago: request bootstrap failed", "path", r.URL.Path, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return http.StatusInternalServerError, "", err
	}
	defer p.destroy()

	_, err = p.router.Route(ctx, p.router.MustPath(), page.Action{})
	if err != nil {
		a.logger.Error("imago: page rendering failed", "path", r.URL.Path, "error", ierrors.New("E160").Wrap(err))
		if !p.response.IsSent() {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return http.StatusInternalServerError, "", err
		}
	}
	return p.response.StatusCode(), p.response.Content(), err
}

func (a *App) pageCacheKey(r *http.Request) string {
	if a.pages == nil || r.Method != http.MethodGet || r.Header.Get("Cookie") != "" {
		return ""
	}
	return "page:" + r.Host + r.URL.RequestURI()
}

func (a *App) serveCached(w http.ResponseWriter, key string) bool {
	v, ok := a.pages.Get(key)
	if !ok {
		return false
	}
	content, ok := v.(string)
	if !ok {
		return false
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set(CacheHeader, "hit")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(content))
	return true
}

// Run serves the App on addr until ctx is done, then shuts the server down
// gracefully.
func (a *App) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		a.logger.Info("imago: listening", "addr", addr, "env", a.cfg.Env)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		a.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	a.Close()
	if err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close stops the page cache sweeper and the devtools stream. A storage
// passed in CacheConfig is left open.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		if a.stopReap != nil {
			a.stopReap()
		}
		if a.devtools != nil {
			a.devtools.Close()
		}
	})
}
