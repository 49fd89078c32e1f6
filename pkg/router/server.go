package router

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/imago-dev/imago/pkg/event"
	"github.com/imago-dev/imago/pkg/imaerr"
	"github.com/imago-dev/imago/pkg/page"
	"github.com/imago-dev/imago/pkg/route"
	"github.com/imago-dev/imago/pkg/storage"
)

// ErrResponseSent is returned when a response is modified after it was
// sent.
var ErrResponseSent = errors.New("router: response already sent")

// Request is the HTTP request being routed.
type Request struct {
	r *http.Request
}

// NewRequest wraps r.
func NewRequest(r *http.Request) *Request {
	return &Request{r: r}
}

// Path returns the request path with the query string.
func (r *Request) Path() string {
	if uri := r.r.URL.RequestURI(); uri != "" {
		return uri
	}
	return "/"
}

// Host returns the request host.
func (r *Request) Host() string { return r.r.Host }

// Protocol returns "https:" for TLS or forwarded HTTPS requests, else
// "http:".
func (r *Request) Protocol() string {
	if r.r.TLS != nil || strings.EqualFold(r.r.Header.Get("X-Forwarded-Proto"), "https") {
		return "https:"
	}
	return "http:"
}

// CookieHeader returns the Cookie header.
func (r *Request) CookieHeader() string { return r.r.Header.Get("Cookie") }

// Header returns a request header.
func (r *Request) Header(name string) string { return r.r.Header.Get(name) }

// HTTPRequest returns the wrapped request.
func (r *Request) HTTPRequest() *http.Request { return r.r }

// Response is the HTTP response of a routed request. It is sent at most
// once; Status, Send, Redirect and SetCookie fail with ErrResponseSent
// afterwards.
type Response struct {
	w http.ResponseWriter

	mu      sync.Mutex
	sent    bool
	status  int
	content string
	cookies []string
}

var _ storage.CookieSink = (*Response)(nil)

// NewResponse wraps w.
func NewResponse(w http.ResponseWriter) *Response {
	return &Response{w: w, status: http.StatusOK}
}

// IsSent reports whether the response was sent.
func (r *Response) IsSent() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sent
}

// StatusCode returns the status set so far.
func (r *Response) StatusCode() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Content returns the sent body.
func (r *Response) Content() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.content
}

// Status sets the status sent with the response.
func (r *Response) Status(code int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sent {
		return ErrResponseSent
	}
	r.status = code
	return nil
}

// SetCookie queues a Set-Cookie header.
func (r *Response) SetCookie(name, value string, opts storage.CookieOptions) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sent {
		return ErrResponseSent
	}
	r.cookies = append(r.cookies, storage.SerializeCookie(name, value, opts))
	return nil
}

// Send writes the status, the queued cookies and content as an HTML body.
func (r *Response) Send(content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sent {
		return ErrResponseSent
	}
	r.sent = true
	r.content = content

	h := r.w.Header()
	r.writeCookies(h)
	if h.Get("Content-Type") == "" {
		h.Set("Content-Type", "text/html; charset=utf-8")
	}
	r.w.WriteHeader(r.status)
	_, err := r.w.Write([]byte(content))
	return err
}

// Redirect sends a redirect to url. A status outside [300, 400) becomes
// 302 Found.
func (r *Response) Redirect(url string, status int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sent {
		return ErrResponseSent
	}
	if status < 300 || status >= 400 {
		status = http.StatusFound
	}
	r.sent = true
	r.status = status

	h := r.w.Header()
	r.writeCookies(h)
	h.Set("Location", url)
	r.w.WriteHeader(status)
	return nil
}

func (r *Response) writeCookies(h http.Header) {
	for _, c := range r.cookies {
		h.Add("Set-Cookie", c)
	}
}

// ServerRouter routes a single HTTP request.
type ServerRouter struct {
	*Router
	req  *Request
	resp *Response
}

// NewServer creates a router for one request.
func NewServer(pm PageManager, dispatcher *event.Dispatcher, req *Request, resp *Response, opts ...Option) *ServerRouter {
	s := &ServerRouter{Router: New(pm, dispatcher, opts...), req: req, resp: resp}
	s.platform = s
	return s
}

// Request returns the routed request.
func (s *ServerRouter) Request() *Request { return s.req }

// Response returns the response of the routed request.
func (s *ServerRouter) Response() *Response { return s.resp }

// Route handles path. A failed navigation is turned into a redirect for
// redirection errors, the not-found route for client errors and the error
// route otherwise. The returned error is only set when that fails too.
func (s *ServerRouter) Route(ctx context.Context, path string, action page.Action, opts ...route.Option) (*page.Response, error) {
	resp, err := s.Router.Route(ctx, path, action, opts...)
	if err == nil || errors.Is(err, page.ErrNavigationAborted) {
		return resp, err
	}
	return s.HandleError(ctx, err, route.Params{"path": path})
}

// HandleError handles err as described for Route.
func (s *ServerRouter) HandleError(ctx context.Context, err error, params route.Params, opts ...route.Option) (*page.Response, error) {
	if s.IsRedirection(err) {
		status := imaerr.StatusOf(err)
		if rerr := s.resp.Redirect(imaerr.RedirectURL(err), status); rerr != nil {
			return nil, rerr
		}
		return &page.Response{Status: status, Err: err}, nil
	}

	if s.IsClientError(err) {
		resp, nerr := s.Router.HandleNotFound(ctx, params, opts...)
		if nerr == nil {
			resp.Err = err
			return resp, nil
		}
		s.logger.Warn("router: not-found route failed", "path", params["path"], "error", nerr)
	}

	resp, herr := s.Router.HandleError(ctx, err, params, opts...)
	if herr != nil {
		return nil, errors.Join(err, herr)
	}
	return resp, nil
}

// RedirectStatus sends a redirect with an explicit status.
func (s *ServerRouter) RedirectStatus(url string, status int) error {
	return s.resp.Redirect(url, status)
}

func (s *ServerRouter) path() (string, error) {
	return s.extractRoutePath(s.req.Path()), nil
}

func (s *ServerRouter) redirect(_ context.Context, url string, _ page.Action, _ ...route.Option) error {
	return s.resp.Redirect(url, http.StatusFound)
}

func (s *ServerRouter) listen() error   { return nil }
func (s *ServerRouter) unlisten() error { return nil }
