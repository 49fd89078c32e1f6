package imago

import (
	"net/http"
	"path"
	"path/filepath"
	"strings"
)

// staticFiles serves the files of a directory below a URL prefix.
type staticFiles struct {
	fs     http.FileSystem
	prefix string
	cfg    StaticConfig
}

func newStaticFiles(cfg StaticConfig) *staticFiles {
	if cfg.Dir == "" {
		return nil
	}
	prefix := cfg.Prefix
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &staticFiles{fs: http.Dir(cfg.Dir), prefix: prefix, cfg: cfg}
}

// relPath returns the file below the static directory urlPath names. It
// rejects traversal and absolute paths, so nothing outside the directory
// is ever opened.
func (s *staticFiles) relPath(urlPath string) (string, bool) {
	if !strings.HasPrefix(urlPath, s.prefix) {
		return "", false
	}
	rel := urlPath[len(s.prefix):]
	if rel == "" || strings.IndexByte(rel, 0) != -1 || strings.Contains(rel, "\\") {
		return "", false
	}
	// "/static//etc/passwd" leaves "/etc/passwd".
	if strings.HasPrefix(rel, "/") {
		return "", false
	}
	for _, seg := range strings.Split(rel, "/") {
		if seg == "." || seg == ".." {
			return "", false
		}
	}

	clean := path.Clean(rel)
	if clean != rel {
		return "", false
	}
	osPath := filepath.FromSlash(clean)
	if filepath.IsAbs(osPath) || filepath.VolumeName(osPath) != "" {
		return "", false
	}
	return clean, true
}

// serve writes the file urlPath names and reports whether there was one.
// Directories and missing files are left to the page router.
func (s *staticFiles) serve(w http.ResponseWriter, r *http.Request) bool {
	rel, ok := s.relPath(r.URL.Path)
	if !ok {
		return false
	}
	f, err := s.fs.Open(rel)
	if err != nil {
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return false
	}

	s.applyCacheHeaders(w, rel)
	for key, value := range s.cfg.Headers {
		w.Header().Set(key, value)
	}
	http.ServeContent(w, r, rel, info.ModTime(), f)
	return true
}

func (s *staticFiles) applyCacheHeaders(w http.ResponseWriter, rel string) {
	switch s.cfg.CacheControl {
	case CacheControlNone:
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	case CacheControlProduction:
		if isFingerprinted(rel) {
			w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		} else {
			w.Header().Set("Cache-Control", "public, max-age=3600, must-revalidate")
		}
	}
}

// isFingerprinted reports whether the name carries a content hash of at
// least eight hex digits before its extension, e.g. "app.a1b2c3d4.js".
func isFingerprinted(name string) bool {
	parts := strings.Split(path.Base(name), ".")
	if len(parts) < 3 {
		return false
	}
	hash := parts[len(parts)-2]
	if len(hash) < 8 {
		return false
	}
	for _, c := range hash {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return false
		}
	}
	return true
}
