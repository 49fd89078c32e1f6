package route

import (
	"context"
)

// Params maps parameter names to values.
type Params map[string]string

// Clone returns a copy of p.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Middleware runs before page management of a matched route. Returning an
// error aborts the navigation; the router then handles it as a route error.
// Middlewares may store values in locals for later middlewares.
type Middleware func(ctx context.Context, params Params, locals map[string]any) error

// OnlyUpdateFunc decides whether a navigation between two pages should only
// update the current controller instead of replacing it. Keys are the
// container keys of the controllers and views.
type OnlyUpdateFunc func(prevController, prevView, nextController, nextView any) bool

// Options is the per-route configuration.
type Options struct {
	// OnlyUpdate reuses the current controller and view when a navigation
	// targets the same pair.
	OnlyUpdate bool

	// OnlyUpdateFunc, when set, replaces OnlyUpdate with a predicate.
	OnlyUpdateFunc OnlyUpdateFunc

	// AutoScroll scrolls to the top (or the restored position) after a
	// client navigation. Default: true.
	AutoScroll bool

	// AllowSPA allows client side navigation to the route. Default: true.
	AllowSPA bool

	// DocumentView is the container key of the document view rendered at
	// the server. Nil selects the renderer default.
	DocumentView any

	// ManagedRootView is the container key of the layout wrapping the page
	// view. Nil renders the page view directly.
	ManagedRootView any

	// ViewAdapter is the container key of the outermost wrapper.
	ViewAdapter any

	// Middlewares run in order after the router middlewares.
	Middlewares []Middleware
}

// Option configures Options.
type Option func(*Options)

// NewOptions returns the default options with opts applied.
func NewOptions(opts ...Option) Options {
	o := Options{
		AutoScroll: true,
		AllowSPA:   true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// With returns a copy of o with opts applied.
func (o Options) With(opts ...Option) Options {
	out := o
	out.Middlewares = append([]Middleware(nil), o.Middlewares...)
	for _, opt := range opts {
		opt(&out)
	}
	return out
}

// ShouldOnlyUpdate applies the only-update policy to a transition.
func (o Options) ShouldOnlyUpdate(prevController, prevView, nextController, nextView any) bool {
	if o.OnlyUpdateFunc != nil {
		return o.OnlyUpdateFunc(prevController, prevView, nextController, nextView)
	}
	return o.OnlyUpdate
}

// OnlyUpdate enables the static only-update policy.
func OnlyUpdate() Option {
	return func(o *Options) { o.OnlyUpdate = true }
}

// OnlyUpdateWhen sets an only-update predicate.
func OnlyUpdateWhen(fn OnlyUpdateFunc) Option {
	return func(o *Options) { o.OnlyUpdateFunc = fn }
}

// AutoScroll sets automatic scrolling after navigation.
func AutoScroll(enabled bool) Option {
	return func(o *Options) { o.AutoScroll = enabled }
}

// AllowSPA sets whether the route may be reached by client navigation.
func AllowSPA(allowed bool) Option {
	return func(o *Options) { o.AllowSPA = allowed }
}

// DocumentView sets the document view key.
func DocumentView(key any) Option {
	return func(o *Options) { o.DocumentView = key }
}

// ManagedRootView sets the managed root view key.
func ManagedRootView(key any) Option {
	return func(o *Options) { o.ManagedRootView = key }
}

// ViewAdapter sets the view adapter key.
func ViewAdapter(key any) Option {
	return func(o *Options) { o.ViewAdapter = key }
}

// Use appends route middlewares.
func Use(mw ...Middleware) Option {
	return func(o *Options) { o.Middlewares = append(o.Middlewares, mw...) }
}
