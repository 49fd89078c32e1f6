package route

import "regexp"

// DynamicPath describes a route whose matching and path building are
// supplied by the application instead of compiled from an expression.
type DynamicPath struct {
	// Matcher selects the paths the route handles.
	Matcher *regexp.Regexp

	// Extract returns the parameters of a matched path.
	Extract func(path string) Params

	// Build returns the path for params.
	Build func(params Params) string
}

// Dynamic is a route backed by a DynamicPath.
type Dynamic struct {
	name       string
	path       DynamicPath
	controller any
	view       any
	options    Options
}

// NewDynamic creates a dynamic route. Extract and Build default to no
// parameters and the matcher source respectively.
func NewDynamic(name string, path DynamicPath, controller, view any, opts ...Option) *Dynamic {
	if path.Extract == nil {
		path.Extract = func(string) Params { return Params{} }
	}
	if path.Build == nil {
		src := path.Matcher.String()
		path.Build = func(Params) string { return src }
	}
	return &Dynamic{
		name:       name,
		path:       path,
		controller: controller,
		view:       view,
		options:    NewOptions(opts...),
	}
}

// Name returns the unique route name.
func (d *Dynamic) Name() string { return d.name }

// Controller returns the controller key.
func (d *Dynamic) Controller() any { return d.controller }

// View returns the view key.
func (d *Dynamic) View() any { return d.view }

// Options returns a copy of the route options.
func (d *Dynamic) Options() Options { return d.options.With() }

// Matches reports whether the path without query matches.
func (d *Dynamic) Matches(path string) bool {
	p, _ := splitQuery(path)
	return d.path.Matcher.MatchString(trimPath(p))
}

// ExtractParameters returns the application parameters merged with query
// parameters, or empty Params without a match.
func (d *Dynamic) ExtractParameters(path string) Params {
	if !d.Matches(path) {
		return Params{}
	}
	p, query := splitQuery(path)
	params := d.path.Extract(trimPath(p)).Clone()
	for k, v := range parseQuery(query) {
		params[k] = v
	}
	return params
}

// ToPath builds the path for params.
func (d *Dynamic) ToPath(params Params) string {
	return d.path.Build(params)
}

// Factory creates routes.
type Factory struct{}

// NewFactory creates a route factory.
func NewFactory() *Factory {
	return &Factory{}
}

// CreateRoute compiles a static route.
func (f *Factory) CreateRoute(name, pathExpression string, controller, view any, opts ...Option) *Route {
	return New(name, pathExpression, controller, view, opts...)
}

// CreateDynamicRoute creates a dynamic route.
func (f *Factory) CreateDynamicRoute(name string, path DynamicPath, controller, view any, opts ...Option) *Dynamic {
	return NewDynamic(name, path, controller, view, opts...)
}
