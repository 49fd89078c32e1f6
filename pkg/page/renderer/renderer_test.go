package renderer

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/imago-dev/imago/pkg/cache"
	"github.com/imago-dev/imago/pkg/container"
	"github.com/imago-dev/imago/pkg/controller"
	"github.com/imago-dev/imago/pkg/event"
	"github.com/imago-dev/imago/pkg/page/factory"
	"github.com/imago-dev/imago/pkg/resource"
	"github.com/imago-dev/imago/pkg/route"
	"github.com/imago-dev/imago/pkg/state"
	"github.com/imago-dev/imago/pkg/storage"
	"github.com/imago-dev/imago/pkg/view"
	"github.com/imago-dev/imago/pkg/window"
)

type fakeResponse struct {
	status int
	body   string
	sent   bool
	sends  int
}

func (r *fakeResponse) IsSent() bool    { return r.sent }
func (r *fakeResponse) StatusCode() int { return r.status }

func (r *fakeResponse) Status(code int) error {
	if r.sent {
		return errors.New("already sent")
	}
	r.status = code
	return nil
}

func (r *fakeResponse) Send(content string) error {
	if r.sent {
		return errors.New("already sent")
	}
	r.body, r.sent = content, true
	r.sends++
	return nil
}

type articlesController struct {
	controller.Base
}

func (c *articlesController) SetMetaParams(resources map[string]any, p controller.MetaParams) {
	p.Meta.SetTitle("Articles")
	p.Meta.SetMetaName("description", "List of articles")
}

// recorder is a page view remembering the state of every render.
type recorder struct {
	mu      sync.Mutex
	renders []state.State
	signal  chan state.State
}

func newRecorder() *recorder {
	return &recorder{signal: make(chan state.State, 64)}
}

func (r *recorder) Render(p view.Props) *view.Node {
	s := state.State(p.State).Clone()
	r.mu.Lock()
	r.renders = append(r.renders, s)
	r.mu.Unlock()
	r.signal <- s

	items := view.Ul()
	for _, k := range s.Keys() {
		items.Children = append(items.Children, view.Li(view.Textf("%s=%v", k, s[k])))
	}
	return view.Div(view.Class("articles"), items)
}

func (r *recorder) waitFor(t *testing.T, pred func(state.State) bool) state.State {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case s := <-r.signal:
			if pred(s) {
				return s
			}
		case <-timeout:
			t.Fatal("timed out waiting for render")
			return nil
		}
	}
}

type fixture struct {
	oc       *container.Container
	factory  *factory.PageFactory
	states   *state.PageStateManager
	ctrl     *articlesController
	decor    *factory.ControllerDecorator
	view     *recorder
	dispatch *event.Dispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	oc := container.New(nil)
	layout := view.Func(func(p view.Props) *view.Node {
		return view.Main(view.ID("layout"), p.Children)
	})
	if err := oc.Constant("Layout", view.View(layout)); err != nil {
		t.Fatal(err)
	}

	f := factory.New(oc, factory.Config{})
	d := event.NewDispatcher()
	psm := state.NewPageStateManager(d, nil)
	ctrl := &articlesController{}
	ctrl.SetPageStateManager(psm)

	return &fixture{
		oc:       oc,
		factory:  f,
		states:   psm,
		ctrl:     ctrl,
		decor:    f.DecorateController(ctrl),
		view:     newRecorder(),
		dispatch: d,
	}
}

func TestServerMount(t *testing.T) {
	fx := newFixture(t)
	resp := &fakeResponse{}
	c := cache.New(storage.NewMapStorage())
	c.Set("api/articles", []int{1, 2, 3}, time.Minute)

	r := NewServer(Config{Factory: fx.factory, Dispatcher: fx.dispatch}, ServerOptions{
		Response: resp,
		Cache:    c,
		Revival:  Revival{Language: "cs", Env: "prod", Protocol: "https:", Host: "example.com", Path: "/articles"},
		Scripts:  []string{"/static/app.js"},
	})

	var mounted bool
	fx.dispatch.Listen(EventMounted, nil, func(any) { mounted = true })

	fx.ctrl.SetHTTPStatus(http.StatusAccepted)
	out, err := r.Mount(context.Background(), fx.decor, fx.view, map[string]any{
		"title":    "News",
		"articles": resource.New(func(context.Context) (any, error) { return []int{1, 2, 3}, nil }),
	}, route.NewOptions(route.ManagedRootView("Layout")))
	if err != nil {
		t.Fatalf("Mount() error = %v", err)
	}

	if out.Status != http.StatusAccepted || resp.status != http.StatusAccepted {
		t.Errorf("status = %d, response status = %d", out.Status, resp.status)
	}
	if out.Content != resp.body || resp.sends != 1 {
		t.Errorf("content not sent exactly once (sends = %d)", resp.sends)
	}
	if !mounted {
		t.Error("mounted event not fired")
	}

	for _, want := range []string{
		`<html lang="cs">`,
		"<title>Articles</title>",
		`<meta content="List of articles" name="description">`,
		`<div id="page"><main id="layout"><div class="articles">`,
		"<li>articles=[1 2 3]</li>",
		`"Cache":{"api/articles":{"value":[1,2,3],"ttl":60000}}`,
		`"$Language":"cs"`,
		`<script defer src="/static/app.js"></script>`,
	} {
		if !strings.Contains(out.Content, want) {
			t.Errorf("document missing %q", want)
		}
	}

	// A second mount finds the response sent and renders nothing.
	again, err := r.Mount(context.Background(), fx.decor, fx.view, nil, route.NewOptions())
	if err != nil || again.Content != "" || resp.sends != 1 {
		t.Errorf("second Mount() = %+v, %v, sends = %d", again, err, resp.sends)
	}

	if _, err := r.Update(context.Background(), fx.decor, fx.view, nil, route.NewOptions()); !errors.Is(err, ErrUpdateOnServer) {
		t.Errorf("Update() error = %v", err)
	}
}

func TestServerMountResourceError(t *testing.T) {
	fx := newFixture(t)
	resp := &fakeResponse{}
	r := NewServer(Config{Factory: fx.factory}, ServerOptions{Response: resp})

	boom := errors.New("boom")
	_, err := r.Mount(context.Background(), fx.decor, fx.view, map[string]any{
		"x": resource.Rejected(boom),
	}, route.NewOptions())

	var loadErr *resource.LoadError
	if !errors.As(err, &loadErr) || loadErr.Key != "x" || !errors.Is(err, boom) {
		t.Errorf("Mount() error = %v", err)
	}
	if resp.sent {
		t.Error("failed mount sent a response")
	}
}

func TestRevivalRoundTrip(t *testing.T) {
	in := Revival{
		Cache:    []byte(`{"k":{"value":1,"ttl":1000}}`),
		Language: "en",
		Debug:    true,
		Path:     "/</script>",
		App:      map[string]any{"name": "demo"},
	}
	script, err := in.Script()
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(script, "</script>") {
		t.Error("script payload is not HTML-safe")
	}

	out, err := ParseRevival(script)
	if err != nil {
		t.Fatalf("ParseRevival() error = %v", err)
	}
	if out.Path != in.Path || out.Language != "en" || !out.Debug || string(out.Cache) != string(in.Cache) {
		t.Errorf("ParseRevival() = %+v", out)
	}
	if _, err := ParseRevival("nothing here"); err == nil {
		t.Error("ParseRevival() without payload should fail")
	}
}

func newClient(t *testing.T, fx *fixture) (*Client, *window.Memory) {
	t.Helper()
	win, err := window.NewMemory("https://example.com/articles")
	if err != nil {
		t.Fatal(err)
	}
	r := NewClient(Config{Factory: fx.factory, Dispatcher: fx.dispatch}, ClientOptions{
		Window:       win,
		HydrateDelay: -1,
	})
	fx.states.OnChange(r.SetState)
	return r, win
}

func TestClientFirstMountWaitsForEverything(t *testing.T) {
	fx := newFixture(t)
	r, win := newClient(t, fx)

	out, err := r.Mount(context.Background(), fx.decor, fx.view, map[string]any{
		"title":    "News",
		"articles": resource.New(func(context.Context) (any, error) { return 3, nil }),
	}, route.NewOptions())
	if err != nil {
		t.Fatalf("Mount() error = %v", err)
	}

	if out.PageState["articles"] != 3 || out.Content != "" {
		t.Errorf("response = %+v", out)
	}
	for _, s := range fx.view.renders {
		if _, ok := s["articles"]; !ok {
			t.Errorf("first mount painted without the articles: %v", s)
		}
	}
	if win.Title() != "Articles" {
		t.Errorf("window title = %q", win.Title())
	}
	mount := win.ElementByID(view.MountID)
	if !strings.Contains(view.RenderString(mount), "<li>articles=3</li>") {
		t.Errorf("mount element = %s", view.RenderString(mount))
	}
}

func TestClientHydratesServerMarkup(t *testing.T) {
	fx := newFixture(t)
	r, win := newClient(t, fx)

	server := view.Html(view.Body(view.Div(view.ID(view.MountID),
		view.Div(view.Class("articles"), view.Ul(view.Li("title=old"))))))
	win.SetDocument(server)
	before := win.ElementByID(view.MountID).Children[0]

	if _, err := r.Mount(context.Background(), fx.decor, fx.view, map[string]any{"title": "new"}, route.NewOptions()); err != nil {
		t.Fatal(err)
	}

	mount := win.ElementByID(view.MountID)
	if mount.Children[0] != before {
		t.Error("hydration replaced the server markup instead of patching it")
	}
	if got := view.RenderString(mount); got != `<div id="page"><div class="articles"><ul><li>title=new</li></ul></div></div>` {
		t.Errorf("hydrated markup = %s", got)
	}
}

func TestClientProgressiveMount(t *testing.T) {
	fx := newFixture(t)
	r, win := newClient(t, fx)
	ctx := context.Background()

	// Boot with an empty page so the next mount is not the first one.
	if _, err := r.Mount(ctx, fx.decor, fx.view, nil, route.NewOptions()); err != nil {
		t.Fatal(err)
	}
	r.Unmount()
	fx.states.Clear()
	r.ClearState()
	fx.view.renders = nil

	slow, resolveSlow := resource.Deferred()
	fast, resolveFast := resource.Deferred()

	done := make(chan error, 1)
	go func() {
		_, err := r.Mount(ctx, fx.decor, fx.view, map[string]any{
			"title": "News",
			"slow":  slow,
			"fast":  fast,
		}, route.NewOptions())
		done <- err
	}()

	first := fx.view.waitFor(t, func(s state.State) bool { return s["title"] == "News" })
	if _, ok := first["fast"]; ok {
		t.Errorf("first paint used a pending resource: %v", first)
	}
	if _, ok := first["slow"]; ok {
		t.Errorf("first paint used a pending resource: %v", first)
	}

	resolveFast("F", nil)
	fx.view.waitFor(t, func(s state.State) bool { return s["fast"] == "F" })
	resolveSlow("S", nil)

	if err := <-done; err != nil {
		t.Fatalf("Mount() error = %v", err)
	}

	// The fast patch landed in history before the slow one.
	var fastAt, slowAt int = -1, -1
	for i, s := range fx.states.GetAllStates() {
		if _, ok := s["fast"]; ok && fastAt < 0 {
			fastAt = i
		}
		if _, ok := s["slow"]; ok && slowAt < 0 {
			slowAt = i
		}
	}
	if fastAt < 0 || slowAt <= fastAt {
		t.Errorf("patch order fast=%d slow=%d", fastAt, slowAt)
	}

	html := view.RenderString(win.ElementByID(view.MountID))
	if !strings.Contains(html, "<li>fast=F</li>") || !strings.Contains(html, "<li>slow=S</li>") {
		t.Errorf("final markup = %s", html)
	}
}

func TestClientDropsPatchesOfReplacedPage(t *testing.T) {
	fx := newFixture(t)
	r, _ := newClient(t, fx)
	ctx := context.Background()
	r.Mount(ctx, fx.decor, fx.view, nil, route.NewOptions())

	late, resolve := resource.Deferred()
	done := make(chan error, 1)
	go func() {
		_, err := r.Update(ctx, fx.decor, fx.view, map[string]any{"late": late}, route.NewOptions())
		done <- err
	}()

	// The page goes away before the resource resolves.
	time.Sleep(10 * time.Millisecond)
	r.ClearState()
	resolve("L", nil)

	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if _, ok := fx.states.GetState()["late"]; ok {
		t.Error("patch of a replaced page reached the state")
	}
}

func TestClientUnmount(t *testing.T) {
	fx := newFixture(t)
	r, win := newClient(t, fx)

	var unmounted bool
	fx.dispatch.Listen(EventUnmounted, nil, func(any) { unmounted = true })

	r.Mount(context.Background(), fx.decor, fx.view, map[string]any{"a": 1}, route.NewOptions())
	if !r.Mounted() {
		t.Fatal("Mounted() = false after Mount")
	}
	r.Unmount()

	if r.Mounted() || len(win.ElementByID(view.MountID).Children) != 0 || !unmounted {
		t.Error("Unmount() left the page rendered")
	}
}
