package route

import (
	"net/url"
	"regexp"
	"slices"
	"sort"
	"strings"
)

// Handler is a routable entry of a router table. Route and Dynamic
// implement it.
type Handler interface {
	Name() string
	Controller() any
	View() any
	Options() Options
	Matches(path string) bool
	ExtractParameters(path string) Params
	ToPath(params Params) string
}

// Route is a compiled, immutable path expression bound to a controller and
// a view.
type Route struct {
	name           string
	pathExpression string
	controller     any
	view           any
	options        Options

	trimmedPath string
	segments    []segment
	paramNames  []string
	matcher     *regexp.Regexp
}

// New compiles pathExpression into a Route. The controller and view are
// container keys.
func New(name, pathExpression string, controller, view any, opts ...Option) *Route {
	trimmed := trimPath(pathExpression)
	segments := parseSegments(trimmed)
	matcher, names := compile(segments)

	return &Route{
		name:           name,
		pathExpression: pathExpression,
		controller:     controller,
		view:           view,
		options:        NewOptions(opts...),
		trimmedPath:    trimmed,
		segments:       segments,
		paramNames:     names,
		matcher:        matcher,
	}
}

// Name returns the unique route name.
func (r *Route) Name() string { return r.name }

// PathExpression returns the pattern the route was created with.
func (r *Route) PathExpression() string { return r.pathExpression }

// TrimmedPath returns the normalized pattern.
func (r *Route) TrimmedPath() string { return r.trimmedPath }

// Controller returns the controller key.
func (r *Route) Controller() any { return r.controller }

// View returns the view key.
func (r *Route) View() any { return r.view }

// Options returns a copy of the route options.
func (r *Route) Options() Options { return r.options.With() }

// ParamNames returns the parameter names in pattern order.
func (r *Route) ParamNames() []string { return slices.Clone(r.paramNames) }

// Matcher returns the compiled pattern.
func (r *Route) Matcher() *regexp.Regexp { return r.matcher }

// Matches reports whether path, without its query string, satisfies the
// pattern.
func (r *Route) Matches(path string) bool {
	p, _ := splitQuery(path)
	return r.matcher.MatchString(trimPath(p))
}

// ExtractParameters returns the decoded path parameters of path, overridden
// by its query parameters. It returns empty Params when path does not match.
func (r *Route) ExtractParameters(path string) Params {
	p, query := splitQuery(path)
	m := r.matcher.FindStringSubmatch(trimPath(p))
	if m == nil {
		return Params{}
	}

	params := make(Params, len(r.paramNames))
	for i, name := range r.paramNames {
		if i+1 >= len(m) || m[i+1] == "" {
			continue
		}
		params[name] = decode(m[i+1])
	}
	for k, v := range parseQuery(query) {
		params[k] = v
	}
	return params
}

// ToPath substitutes params into the pattern. Parameters without a
// placeholder are appended as a query string; absent optional parameters
// are pruned together with their separator.
func (r *Route) ToPath(params Params) string {
	used := make(map[string]bool, len(params))
	var b strings.Builder

	for _, seg := range r.segments {
		if seg.whole {
			t := seg.tokens[0]
			v, ok := params[t.text]
			used[t.text] = true
			switch {
			case ok:
				b.WriteString("/" + encode(v))
			case t.kind == tokenRequired:
				b.WriteString("/:" + t.text)
			}
			continue
		}

		var sb strings.Builder
		for _, t := range seg.tokens {
			switch t.kind {
			case tokenLiteral:
				sb.WriteString(t.text)
			case tokenRequired:
				used[t.text] = true
				if v, ok := params[t.text]; ok {
					sb.WriteString(encodeSub(v))
				} else {
					sb.WriteString(":" + t.text)
				}
			case tokenOptional:
				used[t.text] = true
				if v, ok := params[t.text]; ok {
					sb.WriteString(t.sep + encodeSub(v))
				}
			}
		}
		if sb.Len() > 0 {
			b.WriteString("/" + sb.String())
		}
	}

	path := b.String()
	if path == "" {
		path = "/"
	}

	var rest []string
	for k := range params {
		if !used[k] {
			rest = append(rest, k)
		}
	}
	if len(rest) == 0 {
		return path
	}

	sort.Strings(rest)
	pairs := make([]string, len(rest))
	for i, k := range rest {
		pairs[i] = encode(k) + "=" + encode(params[k])
	}
	return path + "?" + strings.Join(pairs, "&")
}

// encode escapes like encodeURIComponent: spaces become %20, not "+".
func encode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// subEscaper escapes the separators of sub-parameters, which a
// sub-parameter value cannot contain unencoded.
var subEscaper = strings.NewReplacer("-", "%2D", "_", "%5F")

func encodeSub(s string) string {
	return subEscaper.Replace(encode(s))
}

func decode(s string) string {
	out, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return out
}

func parseQuery(query string) Params {
	params := Params{}
	if query == "" {
		return params
	}
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		params[decode(strings.ReplaceAll(k, "+", " "))] = decode(strings.ReplaceAll(v, "+", " "))
	}
	return params
}
