package imago

import (
	"log/slog"
	"time"

	"github.com/imago-dev/imago/pkg/controller"
	"github.com/imago-dev/imago/pkg/storage"
)

// Config configures an App.
type Config struct {
	// Env is the environment name handed to the client, e.g. "prod".
	Env string

	// Debug enables the development checks of the container, the page
	// factory and the page manager.
	Debug bool

	// Version is rendered into the revival payload.
	Version string

	// Protocol and Host locate the application. They default to those of
	// each request.
	Protocol string
	Host     string

	// Root is the path prefix of every route.
	Root string

	// LanguagePartPath is the path segment carrying the language.
	LanguagePartPath string

	// Language returns the language served on a host. Defaults to
	// DefaultLanguage.
	Language func(host string) string

	// Dictionary returns the dictionary of a language. May be nil.
	Dictionary func(language string) controller.Dictionary

	// App is handed to the client in the revival payload and to
	// controllers as the $Settings constant.
	App map[string]any

	Cache CacheConfig

	Static StaticConfig

	// Scripts are the client scripts referenced by rendered documents.
	Scripts []string

	// Timeout bounds the routing of one request. Zero means no limit.
	Timeout time.Duration

	// Metrics records page metrics and serves them at MetricsPath.
	Metrics bool

	// Tracing starts a span for every managed page.
	Tracing bool

	// Devtools streams application events at DevtoolsPath.
	Devtools bool

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// CacheConfig configures the caches of an App.
type CacheConfig struct {
	// Enabled turns on the request cache handed to the client and the
	// shared page cache.
	Enabled bool

	// TTL is the time to live of cached entries and pages.
	TTL time.Duration

	// Storage backs the shared page cache. Defaults to an in-memory arena
	// swept every TTL.
	Storage storage.Storage
}

// StaticConfig contains static file serving configuration.
type StaticConfig struct {
	// Dir is the directory containing static files. Empty disables
	// static file serving.
	Dir string

	// Prefix is the URL prefix of static files (default: "/").
	Prefix string

	// CacheControl sets the caching strategy of static files.
	CacheControl CacheControlStrategy

	// Headers are added to every static response.
	Headers map[string]string
}

// CacheControlStrategy defines how static files are cached by clients.
type CacheControlStrategy int

const (
	// CacheControlNone disables caching (development).
	CacheControlNone CacheControlStrategy = iota

	// CacheControlProduction caches fingerprinted files for a year and
	// other files for an hour.
	CacheControlProduction
)

const (
	// DefaultLanguage is served when Config.Language is nil.
	DefaultLanguage = "en"

	// DevtoolsPath serves the devtools WebSocket.
	DevtoolsPath = "/__imago/devtools"

	// MetricsPath serves the Prometheus metrics.
	MetricsPath = "/metrics"

	// CacheHeader reports whether a page was served from the page cache.
	CacheHeader = "X-Imago-Cache"
)

// DefaultConfig returns the configuration of a production App.
func DefaultConfig() Config {
	return Config{
		Env: "prod",
		Cache: CacheConfig{
			Enabled: true,
			TTL:     time.Minute,
		},
		Static: StaticConfig{
			Prefix:       "/",
			CacheControl: CacheControlProduction,
		},
	}
}
