// Package routepath normalizes request paths before they are routed, so
// one page is never served under several URLs and no path reaches the
// static files or the page router with traversal segments in it.
package routepath

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
)

var (
	ErrBackslash   = errors.New("routepath: backslash in path")
	ErrNUL         = errors.New("routepath: NUL byte in path")
	ErrBadEscape   = errors.New("routepath: invalid percent escape")
	ErrEscapesRoot = errors.New("routepath: path escapes the root")
)

// Canonicalize returns the canonical form of an escaped request path.
// Slashes are collapsed, "." segments dropped, ".." segments resolved and
// the trailing slash removed unless the path is the root. Dot segments
// are recognized in their percent-encoded form too.
func Canonicalize(p string) (string, error) {
	if p == "" {
		return "/", nil
	}
	if strings.ContainsRune(p, '\\') {
		return "", ErrBackslash
	}
	if strings.ContainsRune(p, 0) {
		return "", ErrNUL
	}
	if strings.Contains(p, "%") {
		if err := checkEscapes(p); err != nil {
			return "", err
		}
		if strings.Contains(strings.ToUpper(p), "%00") {
			return "", ErrNUL
		}
	}

	out := make([]string, 0, strings.Count(p, "/"))
	for _, seg := range strings.Split(p, "/") {
		switch dotSegment(seg) {
		case "":
			out = append(out, seg)
		case ".":
		case "..":
			if len(out) == 0 {
				return "", ErrEscapesRoot
			}
			out = out[:len(out)-1]
		}
	}
	return "/" + strings.Join(out, "/"), nil
}

// dotSegment returns "." or ".." for dot segments, "." for empty ones
// and "" for everything else.
func dotSegment(seg string) string {
	if seg == "" {
		return "."
	}
	if len(seg) > 6 {
		return ""
	}
	if strings.Contains(seg, "%") {
		if s, err := url.PathUnescape(seg); err == nil {
			seg = s
		}
	}
	if seg == "." || seg == ".." {
		return seg
	}
	return ""
}

func checkEscapes(p string) error {
	for i := 0; i < len(p); i++ {
		if p[i] != '%' {
			continue
		}
		if i+2 >= len(p) || !isHex(p[i+1]) || !isHex(p[i+2]) {
			return ErrBadEscape
		}
		i += 2
	}
	return nil
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

// Middleware answers requests for a non-canonical path with a permanent
// redirect to the canonical one, keeping the query. Paths that cannot be
// canonicalized are bad requests.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.EscapedPath()
		canonical, err := Canonicalize(raw)
		if err != nil {
			http.Error(w, "Invalid path", http.StatusBadRequest)
			return
		}
		if canonical != raw {
			if r.URL.RawQuery != "" {
				canonical += "?" + r.URL.RawQuery
			}
			http.Redirect(w, r, canonical, http.StatusPermanentRedirect)
			return
		}
		next.ServeHTTP(w, r)
	})
}
