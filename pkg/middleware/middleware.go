package middleware

import (
	"context"

	"github.com/imago-dev/imago/pkg/page"
	"github.com/imago-dev/imago/pkg/route"
	"github.com/imago-dev/imago/pkg/router"
)

// Middleware wraps a page manager.
type Middleware func(next router.PageManager) router.PageManager

// ManagerFunc adapts a function to router.PageManager.
type ManagerFunc func(ctx context.Context, h route.Handler, options route.Options, params route.Params, action page.Action) (*page.Response, error)

// Manage calls f.
func (f ManagerFunc) Manage(ctx context.Context, h route.Handler, options route.Options, params route.Params, action page.Action) (*page.Response, error) {
	return f(ctx, h, options, params, action)
}

// wrapped keeps PreManage of the innermost manager reachable.
type wrapped struct {
	router.PageManager
	inner router.PageManager
}

func (w *wrapped) PreManage() {
	if pm, ok := w.inner.(router.PreManager); ok {
		pm.PreManage()
	}
}

// Wrap applies mw to pm. The first middleware is the outermost one.
func Wrap(pm router.PageManager, mw ...Middleware) router.PageManager {
	if len(mw) == 0 {
		return pm
	}
	next := pm
	for i := len(mw) - 1; i >= 0; i-- {
		next = mw[i](next)
	}
	return &wrapped{PageManager: next, inner: pm}
}
