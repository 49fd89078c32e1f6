package storage

import (
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// CookieOptions are the attributes of a cookie.
type CookieOptions struct {
	Domain   string
	Path     string
	Expires  time.Time
	MaxAge   int // seconds; 0 omits the attribute, negative deletes
	HTTPOnly bool
	Secure   bool
}

// DefaultCookieOptions are applied to cookies set without options.
var DefaultCookieOptions = CookieOptions{
	Path:     "/",
	HTTPOnly: true,
}

// CookieSink receives cookies set through a CookieStorage, typically the
// server response.
type CookieSink interface {
	SetCookie(name, value string, opts CookieOptions) error
}

type cookie struct {
	value string
	opts  CookieOptions
}

// CookieStorage holds the cookies of the current request. Cookies set or
// deleted are forwarded to the sink, if any.
type CookieStorage struct {
	mu      sync.RWMutex
	cookies map[string]cookie
	sink    CookieSink
	options CookieOptions
}

var _ Storage = (*CookieStorage)(nil)

// NewCookieStorage creates an empty CookieStorage writing to sink, which
// may be nil.
func NewCookieStorage(sink CookieSink) *CookieStorage {
	return &CookieStorage{
		cookies: make(map[string]cookie),
		sink:    sink,
		options: DefaultCookieOptions,
	}
}

// ParseCookieHeader loads the cookies of a Cookie request header, e.g.
// "a=1; b=2". Malformed pairs are skipped.
func (s *CookieStorage) ParseCookieHeader(header string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, pair := range strings.Split(header, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || name == "" {
			continue
		}
		s.cookies[name] = cookie{value: strings.Trim(value, `"`), opts: s.options}
	}
}

// ParseSetCookieHeader loads the cookie of a Set-Cookie response header.
func (s *CookieStorage) ParseSetCookieHeader(header string) error {
	c, err := http.ParseSetCookie(header)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cookies[c.Name] = cookie{value: c.Value, opts: CookieOptions{
		Domain:   c.Domain,
		Path:     c.Path,
		Expires:  c.Expires,
		MaxAge:   c.MaxAge,
		HTTPOnly: c.HttpOnly,
		Secure:   c.Secure,
	}}
	return nil
}

// CookieHeader renders the stored cookies as a Cookie request header.
func (s *CookieStorage) CookieHeader() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	parts := make([]string, 0, len(s.cookies))
	for _, name := range s.sortedNames() {
		parts = append(parts, name+"="+s.cookies[name].value)
	}
	return strings.Join(parts, "; ")
}

func (s *CookieStorage) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cookies[key]
	return ok
}

// Get returns the cookie value as a string.
func (s *CookieStorage) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cookies[key]
	if !ok {
		return nil, false
	}
	return c.value, true
}

// Set sets a cookie with the default options.
func (s *CookieStorage) Set(key string, value any) error {
	return s.SetWithOptions(key, value, s.options)
}

// SetWithOptions sets a cookie. The value is converted to a string and
// sanitized.
func (s *CookieStorage) SetWithOptions(key string, value any, opts CookieOptions) error {
	v := SanitizeCookieValue(stringify(value))
	if s.sink != nil {
		if err := s.sink.SetCookie(key, v, opts); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cookies[key] = cookie{value: v, opts: opts}
	return nil
}

// Delete expires the cookie.
func (s *CookieStorage) Delete(key string) error {
	s.mu.RLock()
	c, ok := s.cookies[key]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	opts := c.opts
	opts.Expires = time.Unix(0, 0).UTC()
	opts.MaxAge = 0
	if s.sink != nil {
		if err := s.sink.SetCookie(key, "", opts); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cookies, key)
	return nil
}

// Clear deletes every cookie.
func (s *CookieStorage) Clear() error {
	for _, k := range s.Keys() {
		if err := s.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func (s *CookieStorage) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedNames()
}

func (s *CookieStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cookies)
}

func (s *CookieStorage) sortedNames() []string {
	names := make([]string, 0, len(s.cookies))
	for k := range s.cookies {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// SerializeCookie renders a Set-Cookie header value.
func SerializeCookie(name, value string, opts CookieOptions) string {
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('=')
	b.WriteString(SanitizeCookieValue(value))
	if opts.Domain != "" {
		b.WriteString("; Domain=")
		b.WriteString(opts.Domain)
	}
	if opts.Path != "" {
		b.WriteString("; Path=")
		b.WriteString(opts.Path)
	}
	if !opts.Expires.IsZero() {
		b.WriteString("; Expires=")
		b.WriteString(opts.Expires.UTC().Format(http.TimeFormat))
	}
	if opts.MaxAge != 0 {
		b.WriteString("; Max-Age=")
		b.WriteString(strconv.Itoa(max(opts.MaxAge, 0)))
	}
	if opts.HTTPOnly {
		b.WriteString("; HttpOnly")
	}
	if opts.Secure {
		b.WriteString("; Secure")
	}
	return b.String()
}

// SanitizeCookieValue drops characters outside the printable range RFC 6265
// allows in cookie values: 0x21-0x7E except '"', ';' and '\'.
func SanitizeCookieValue(value string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x21 || r > 0x7e || r == '"' || r == ';' || r == '\\' {
			return -1
		}
		return r
	}, value)
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
