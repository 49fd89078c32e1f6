package config

import (
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/imago-dev/imago/internal/errors"
)

const (
	// EnvironmentFileName is the default environment file.
	EnvironmentFileName = "environment.yaml"

	// DefaultEnvironment is the environment every other one extends.
	DefaultEnvironment = "prod"

	// DefaultLanguage is used when no $Language entry matches the host.
	DefaultLanguage = "en"

	// DefaultCacheTTL is the cache TTL of environments that set none.
	DefaultCacheTTL = time.Minute
)

// Environment holds the settings of one deployment environment.
type Environment struct {
	// Name is the environment name, e.g. "prod" or "dev".
	Name string `yaml:"-"`

	Debug   bool   `yaml:"$Debug"`
	Version string `yaml:"$Version"`

	Server ServerConfig `yaml:"$Server"`

	// Protocol, Host and Root locate the application when it cannot be
	// taken from the request; Root is the path prefix of every route.
	Protocol string `yaml:"$Protocol"`
	Host     string `yaml:"$Host"`
	Root     string `yaml:"$Root"`

	// LanguagePartPath is the path segment carrying the language, e.g.
	// "/cs".
	LanguagePartPath string `yaml:"$LanguagePartPath"`

	// Language maps hosts to the language served on them. The key "*"
	// matches any host.
	Language map[string]string `yaml:"$Language"`

	Cache CacheConfig `yaml:"$Cache"`

	// App is handed to the client in the revival payload.
	App map[string]any `yaml:"$App"`
}

// CacheConfig configures the page cache.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`

	// TTL is a duration such as "60s".
	TTL string `yaml:"ttl"`

	// File persists the cache in a bolt database. Without one the cache
	// lives in memory.
	File string `yaml:"file"`
}

// DefaultEnvironmentSettings returns the environment of a project without
// an environment file.
func DefaultEnvironmentSettings() *Environment {
	return &Environment{
		Name:     DefaultEnvironment,
		Protocol: "http:",
		Language: map[string]string{"*": DefaultLanguage},
		Cache:    CacheConfig{Enabled: true, TTL: DefaultCacheTTL.String()},
	}
}

// LoadEnvironmentFile loads the environment name from the YAML file at
// path. The environment is decoded over prod, which is decoded over the
// defaults. A missing file yields the defaults for every name.
func LoadEnvironmentFile(path, name string) (*Environment, error) {
	if name == "" {
		name = DefaultEnvironment
	}
	env := DefaultEnvironmentSettings()
	env.Name = name

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return env, nil
		}
		return nil, errors.New("E102").Wrap(err)
	}

	var doc map[string]yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.New("E102").WithLocationFromYAML(path, err).Wrap(err)
	}

	if prod, ok := doc[DefaultEnvironment]; ok {
		if err := prod.Decode(env); err != nil {
			return nil, errors.New("E102").WithEnvironment(DefaultEnvironment).WithLocationFromYAML(path, err).Wrap(err)
		}
	}
	if name != DefaultEnvironment {
		node, ok := doc[name]
		if !ok {
			return nil, errors.New("E103").
				WithEnvironment(name).
				WithDetail("Environment " + name + " is not defined in " + path).
				WithSuggestion("Define one of: " + strings.Join(environmentNames(doc), ", "))
		}
		if err := node.Decode(env); err != nil {
			return nil, errors.New("E102").WithEnvironment(name).WithLocationFromYAML(path, err).Wrap(err)
		}
	}

	if err := env.Validate(); err != nil {
		return nil, err
	}
	return env, nil
}

func environmentNames(doc map[string]yaml.Node) []string {
	names := make([]string, 0, len(doc))
	for name := range doc {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the port and the cache TTL.
func (e *Environment) Validate() error {
	if err := validatePort(e.Server.Port); err != nil {
		return errors.FromError(err, "E104").WithEnvironment(e.Name).WithKey("$Server.port")
	}
	if _, err := e.CacheTTL(); err != nil {
		return err
	}
	return nil
}

// CacheTTL returns the parsed cache TTL, DefaultCacheTTL when unset.
func (e *Environment) CacheTTL() (time.Duration, error) {
	if e.Cache.TTL == "" {
		return DefaultCacheTTL, nil
	}
	ttl, err := time.ParseDuration(e.Cache.TTL)
	if err != nil || ttl < 0 {
		return 0, errors.New("E105").
			WithEnvironment(e.Name).
			WithKey("$Cache.ttl").
			WithDetail("The TTL " + strconv.Quote(e.Cache.TTL) + " is not a duration such as \"60s\" or \"5m\".")
	}
	return ttl, nil
}

// LanguageFor returns the language served on host. The port is ignored
// unless the host with port is listed itself.
func (e *Environment) LanguageFor(host string) string {
	if lang, ok := e.Language[host]; ok {
		return lang
	}
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		if lang, ok := e.Language[host[:i]]; ok {
			return lang
		}
	}
	if lang, ok := e.Language["*"]; ok {
		return lang
	}
	return DefaultLanguage
}
