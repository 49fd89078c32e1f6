package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/imago-dev/imago"
	"github.com/imago-dev/imago/pkg/container"
	"github.com/imago-dev/imago/pkg/controller"
	"github.com/imago-dev/imago/pkg/imaerr"
	"github.com/imago-dev/imago/pkg/route"
	"github.com/imago-dev/imago/pkg/router"
	"github.com/imago-dev/imago/pkg/view"
)

type homeController struct {
	controller.Base
	settings map[string]any
}

func (c *homeController) Load(context.Context) (map[string]any, error) {
	return map[string]any{"title": c.settings["title"]}, nil
}

func (c *homeController) SetMetaParams(state map[string]any, p controller.MetaParams) {
	p.Meta.SetTitle(fmt.Sprint(state["title"]))
}

type helloController struct {
	controller.Base
}

func (c *helloController) Load(context.Context) (map[string]any, error) {
	name := c.RouteParams()["name"]
	if name == "" {
		name = "world"
	}
	return map[string]any{"name": name}, nil
}

func (c *helloController) Update(ctx context.Context, _ route.Params) (map[string]any, error) {
	return c.Load(ctx)
}

func (c *helloController) SetMetaParams(state map[string]any, p controller.MetaParams) {
	p.Meta.SetTitle(fmt.Sprintf("Hello %v", state["name"]))
}

type errorController struct {
	controller.Base
}

func (c *errorController) Load(ctx context.Context) (map[string]any, error) {
	err := imaerr.FromContext(ctx)
	return map[string]any{
		"path":   c.RouteParams()["path"],
		"status": imaerr.StatusOf(err),
	}, nil
}

func homeView(p view.Props) *view.Node {
	return view.Main(
		view.H1(view.Textf("%v", p.State["title"])),
		view.P(view.A(view.Href("/hello/imago"), "Say hello")),
	)
}

func helloView(p view.Props) *view.Node {
	return view.Main(view.H1(view.Textf("Hello %v!", p.State["name"])))
}

func notFoundView(p view.Props) *view.Node {
	return view.Main(view.P(view.Textf("Nothing lives at %v.", p.State["path"])))
}

func errorView(p view.Props) *view.Node {
	return view.Main(view.P(view.Textf("Something went wrong (%v).", p.State["status"])))
}

// setup registers the starter pages.
func setup(app *imago.App) error {
	app.Bind(func(oc *container.Container) error {
		return errors.Join(
			oc.Bind("HomeController", container.NewClass("HomeController", func(deps []any) (controller.Controller, error) {
				settings, _ := deps[0].(map[string]any)
				return &homeController{settings: settings}, nil
			}, imago.BindSettings)),
			oc.Bind("HelloController", container.Func("HelloController", func() controller.Controller {
				return &helloController{}
			})),
			oc.Bind("ErrorController", container.Func("ErrorController", func() controller.Controller {
				return &errorController{}
			})),
			oc.Constant("HomeView", view.Func(homeView)),
			oc.Constant("HelloView", view.Func(helloView)),
			oc.Constant("NotFoundView", view.Func(notFoundView)),
			oc.Constant("ErrorView", view.Func(errorView)),
		)
	})
	app.Routes(func(r *router.Router) error {
		return errors.Join(
			r.Add("home", "/", "HomeController", "HomeView"),
			r.Add("hello", "/hello/:?name", "HelloController", "HelloView"),
			r.Add(router.RouteNotFound, "/not-found", "ErrorController", "NotFoundView"),
			r.Add(router.RouteError, "/error", "ErrorController", "ErrorView"),
		)
	})
	return nil
}
