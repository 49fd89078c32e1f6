package router

import (
	"context"
	"fmt"

	"github.com/imago-dev/imago/pkg/page"
	"github.com/imago-dev/imago/pkg/route"
)

// Keys of the locals map handed to middlewares.
const (
	LocalRoute   = "route"
	LocalAction  = "action"
	LocalOptions = "options"
)

// MiddlewareError reports which route a middleware aborted.
type MiddlewareError struct {
	Route string
	Err   error
}

func (e *MiddlewareError) Error() string {
	return fmt.Sprintf("router: middleware of route %q: %v", e.Route, e.Err)
}

func (e *MiddlewareError) Unwrap() error { return e.Err }

// runMiddlewares runs the router middlewares, then the route middlewares,
// stopping at the first error.
func (r *Router) runMiddlewares(ctx context.Context, h route.Handler, options route.Options, params route.Params, action page.Action) error {
	r.mu.RLock()
	mw := append([]route.Middleware(nil), r.middlewares...)
	r.mu.RUnlock()
	mw = append(mw, options.Middlewares...)
	if len(mw) == 0 {
		return nil
	}

	locals := map[string]any{
		LocalRoute:   h,
		LocalAction:  action,
		LocalOptions: options,
	}
	if err := Chain(mw...)(ctx, params, locals); err != nil {
		return &MiddlewareError{Route: h.Name(), Err: err}
	}
	return nil
}

// Chain combines middlewares into one running them in order.
func Chain(mw ...route.Middleware) route.Middleware {
	return func(ctx context.Context, params route.Params, locals map[string]any) error {
		for _, m := range mw {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := m(ctx, params, locals); err != nil {
				return err
			}
		}
		return nil
	}
}

// Only runs mw when condition holds for the navigation.
func Only(condition func(params route.Params, locals map[string]any) bool, mw route.Middleware) route.Middleware {
	return func(ctx context.Context, params route.Params, locals map[string]any) error {
		if !condition(params, locals) {
			return nil
		}
		return mw(ctx, params, locals)
	}
}

// Skip runs mw unless condition holds for the navigation.
func Skip(condition func(params route.Params, locals map[string]any) bool, mw route.Middleware) route.Middleware {
	return func(ctx context.Context, params route.Params, locals map[string]any) error {
		if condition(params, locals) {
			return nil
		}
		return mw(ctx, params, locals)
	}
}
