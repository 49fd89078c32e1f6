package imago

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	ierrors "github.com/imago-dev/imago/internal/errors"
	"github.com/imago-dev/imago/pkg/container"
	"github.com/imago-dev/imago/pkg/controller"
	"github.com/imago-dev/imago/pkg/imaerr"
	"github.com/imago-dev/imago/pkg/middleware"
	"github.com/imago-dev/imago/pkg/page"
	"github.com/imago-dev/imago/pkg/route"
	"github.com/imago-dev/imago/pkg/router"
	"github.com/imago-dev/imago/pkg/storage"
	"github.com/imago-dev/imago/pkg/view"
)

type homeController struct {
	controller.Base
	settings map[string]any
}

func (c *homeController) Load(context.Context) (map[string]any, error) {
	return map[string]any{"greeting": c.settings["greeting"]}, nil
}

type visitController struct {
	controller.Base
	cookies *storage.CookieStorage
}

func (c *visitController) Load(context.Context) (map[string]any, error) {
	visits := 0
	if v, ok := c.cookies.Get("visits"); ok {
		visits, _ = strconv.Atoi(fmt.Sprint(v))
	}
	visits++
	if err := c.cookies.Set("visits", visits); err != nil {
		return nil, err
	}
	return map[string]any{"visits": visits}, nil
}

type failingController struct {
	controller.Base
	err error
}

func (c *failingController) Load(context.Context) (map[string]any, error) {
	return nil, c.err
}

type errorController struct {
	controller.Base
}

func (c *errorController) Load(ctx context.Context) (map[string]any, error) {
	return map[string]any{
		"path":  c.RouteParams()["path"],
		"error": fmt.Sprint(imaerr.FromContext(ctx)),
	}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestApp(t *testing.T, cfg Config) *App {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = quietLogger()
	}
	if cfg.App == nil {
		cfg.App = map[string]any{"greeting": "hello"}
	}
	app := New(cfg)
	t.Cleanup(app.Close)

	app.Bind(func(oc *container.Container) error {
		return stderrors.Join(
			oc.Bind("HomeController", container.NewClass("HomeController", func(deps []any) (controller.Controller, error) {
				return &homeController{settings: deps[0].(map[string]any)}, nil
			}, BindSettings)),
			oc.Bind("VisitController", container.NewClass("VisitController", func(deps []any) (controller.Controller, error) {
				return &visitController{cookies: deps[0].(*storage.CookieStorage)}, nil
			}, BindCookieStorage)),
			oc.Bind("GoneController", container.Func("GoneController", func() controller.Controller {
				return &failingController{err: imaerr.WithStatus(http.StatusServiceUnavailable, "maintenance", nil)}
			})),
			oc.Bind("MovedController", container.Func("MovedController", func() controller.Controller {
				return &failingController{err: imaerr.Redirect("/", http.StatusMovedPermanently)}
			})),
			oc.Bind("ErrorController", container.Func("ErrorController", func() controller.Controller {
				return &errorController{}
			})),
			oc.Constant("HomeView", view.Func(func(p view.Props) *view.Node {
				return view.H1(view.Textf("%v", p.State["greeting"]))
			})),
			oc.Constant("VisitView", view.Func(func(p view.Props) *view.Node {
				return view.P(view.Textf("visits=%v", p.State["visits"]))
			})),
			oc.Constant("NotFoundView", view.Func(func(p view.Props) *view.Node {
				return view.P(view.Textf("Not found: %v", p.State["path"]))
			})),
			oc.Constant("ErrorView", view.Func(func(p view.Props) *view.Node {
				return view.P(view.Textf("Error: %v", p.State["error"]))
			})),
		)
	})
	app.Routes(func(r *router.Router) error {
		return stderrors.Join(
			r.Add("home", "/", "HomeController", "HomeView"),
			r.Add("visit", "/visit", "VisitController", "VisitView"),
			r.Add("gone", "/gone", "GoneController", "HomeView"),
			r.Add("moved", "/moved", "MovedController", "HomeView"),
			r.Add(router.RouteNotFound, "/not-found", "ErrorController", "NotFoundView"),
			r.Add(router.RouteError, "/error", "ErrorController", "ErrorView"),
		)
	})
	return app
}

func get(t *testing.T, h http.Handler, path string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "http://example.com"+path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAppServesPages(t *testing.T) {
	tests := []struct {
		name         string
		path         string
		wantStatus   int
		wantBody     []string
		wantLocation string
	}{
		{
			name:       "page",
			path:       "/",
			wantStatus: http.StatusOK,
			wantBody:   []string{"<h1>hello</h1>", `"$Env":"test"`, `"$Host":"example.com"`, `"$Language":"cs"`},
		},
		{
			name:       "not found",
			path:       "/missing",
			wantStatus: http.StatusNotFound,
			wantBody:   []string{"<p>Not found: /missing</p>"},
		},
		{
			name:       "error page with the status of the error",
			path:       "/gone",
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   []string{"<p>Error: maintenance</p>"},
		},
		{
			name:         "redirect",
			path:         "/moved",
			wantStatus:   http.StatusMovedPermanently,
			wantLocation: "/",
		},
		{
			name:         "non-canonical path",
			path:         "/visit/",
			wantStatus:   http.StatusPermanentRedirect,
			wantLocation: "/visit",
		},
	}

	app := newTestApp(t, Config{
		Env:      "test",
		Language: func(string) string { return "cs" },
	})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, app, tt.path, nil)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d\n%s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			for _, want := range tt.wantBody {
				if !strings.Contains(rec.Body.String(), want) {
					t.Errorf("body missing %q:\n%s", want, rec.Body.String())
				}
			}
			if got := rec.Header().Get("Location"); got != tt.wantLocation {
				t.Errorf("Location = %q, want %q", got, tt.wantLocation)
			}
		})
	}
}

func TestAppPageCache(t *testing.T) {
	app := newTestApp(t, Config{Cache: CacheConfig{Enabled: true}})

	var got []string
	for i := 0; i < 2; i++ {
		rec := get(t, app, "/", nil)
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<h1>hello</h1>") {
			t.Fatalf("request %d: status %d body %s", i, rec.Code, rec.Body.String())
		}
		got = append(got, rec.Header().Get(CacheHeader))
	}
	if diff := cmp.Diff([]string{"miss", "hit"}, got); diff != "" {
		t.Errorf("cache header (-want +got):\n%s", diff)
	}

	withCookie := get(t, app, "/", http.Header{"Cookie": {"session=1"}})
	if h := withCookie.Header().Get(CacheHeader); h != "" {
		t.Errorf("request with cookies: %s = %q, want none", CacheHeader, h)
	}

	if rec := get(t, app, "/missing", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec := get(t, app, "/missing", nil); rec.Header().Get(CacheHeader) != "miss" {
		t.Errorf("not-found page was cached")
	}
}

func TestAppCookies(t *testing.T) {
	app := newTestApp(t, Config{Cache: CacheConfig{Enabled: true}})

	first := get(t, app, "/visit", nil)
	if !strings.Contains(first.Body.String(), "<p>visits=1</p>") {
		t.Fatalf("body = %s", first.Body.String())
	}
	if got := first.Header().Get("Set-Cookie"); !strings.HasPrefix(got, "visits=1") {
		t.Errorf("Set-Cookie = %q, want visits=1", got)
	}

	second := get(t, app, "/visit", nil)
	if second.Header().Get(CacheHeader) != "miss" {
		t.Errorf("a page setting cookies was cached")
	}

	again := get(t, app, "/visit", http.Header{"Cookie": {"visits=4"}})
	if !strings.Contains(again.Body.String(), "<p>visits=5</p>") {
		t.Errorf("body = %s, want visits=5", again.Body.String())
	}
}

func TestAppMissingReservedRoutes(t *testing.T) {
	app := New(Config{Logger: quietLogger()})
	defer app.Close()
	app.Routes(func(r *router.Router) error {
		return r.Add("home", "/", "HomeController", "HomeView")
	})

	if rec := get(t, app, "/", nil); rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}

	_, err := app.RouteTable()
	var ie *ierrors.ImagoError
	if !stderrors.As(err, &ie) || ie.Code != "E142" {
		t.Errorf("RouteTable() error = %v, want E142", err)
	}
}

func TestAppPluginFailure(t *testing.T) {
	app := newTestApp(t, Config{})
	app.Plugin("analytics", func(oc *container.Container) error {
		return oc.Constant("$Analytics", true)
	})

	if rec := get(t, app, "/", nil); rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 for a plugin binding a constant", rec.Code)
	}
}

func TestAppUseWrapsPageManager(t *testing.T) {
	app := newTestApp(t, Config{})
	var seen []string
	app.Use(func(next router.PageManager) router.PageManager {
		return middleware.ManagerFunc(func(ctx context.Context, h route.Handler, options route.Options, params route.Params, action page.Action) (*page.Response, error) {
			seen = append(seen, h.Name())
			return next.Manage(ctx, h, options, params, action)
		})
	})

	get(t, app, "/", nil)
	get(t, app, "/missing", nil)
	if diff := cmp.Diff([]string{"home", router.RouteNotFound}, seen); diff != "" {
		t.Errorf("managed routes (-want +got):\n%s", diff)
	}
}

func TestRouteTable(t *testing.T) {
	app := newTestApp(t, Config{})
	routes, err := app.RouteTable()
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, r := range routes {
		names = append(names, r.Name+" "+r.Path)
	}
	want := []string{"home /", "visit /visit", "gone /gone", "moved /moved", "notFound /not-found", "error /error"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("RouteTable() (-want +got):\n%s", diff)
	}
}

func TestAppMetricsEndpoint(t *testing.T) {
	app := newTestApp(t, Config{Metrics: true})
	get(t, app, "/", nil)

	rec := get(t, app, MetricsPath, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	for _, want := range []string{"imago_pages_total", "imago_responses_total"} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("metrics missing %s", want)
		}
	}
}
