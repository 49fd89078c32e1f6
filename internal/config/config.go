package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/imago-dev/imago/internal/errors"
)

const (
	// ConfigFileName is the name of the project configuration file.
	ConfigFileName = "imago.json"

	// DefaultPort is the default server port.
	DefaultPort = 3001

	// DefaultHost is the default address the server binds to.
	DefaultHost = "localhost"

	// DefaultStaticDir is the default directory of static files.
	DefaultStaticDir = "static"

	// DefaultStaticPrefix is the default URL prefix of static files.
	DefaultStaticPrefix = "/static/"
)

// Config represents imago.json.
type Config struct {
	// Name is the application name.
	Name string `json:"name,omitempty"`

	// Version is the application version, rendered into the revival
	// payload unless the environment overrides it.
	Version string `json:"version,omitempty"`

	Server ServerConfig `json:"server,omitempty"`

	Static StaticConfig `json:"static,omitempty"`

	// Debug enables debug checks in every environment.
	Debug bool `json:"debug,omitempty"`

	// Scripts are the client scripts referenced by rendered documents.
	Scripts []string `json:"scripts,omitempty"`

	// Environment is the path of the environment file, relative to the
	// project directory.
	Environment string `json:"environment,omitempty"`

	// Devtools exposes the event stream at /__imago/devtools.
	Devtools bool `json:"devtools,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig is the address the HTTP server binds to.
type ServerConfig struct {
	Port int    `json:"port,omitempty" yaml:"port,omitempty"`
	Host string `json:"host,omitempty" yaml:"host,omitempty"`
}

// StaticConfig contains static file serving configuration.
type StaticConfig struct {
	// Dir is the directory containing static files.
	Dir string `json:"dir,omitempty"`

	// Prefix is the URL prefix of static files.
	Prefix string `json:"prefix,omitempty"`
}

// New creates a Config with default values.
func New() *Config {
	return &Config{
		Version: "0.1.0",
		Server: ServerConfig{
			Port: DefaultPort,
			Host: DefaultHost,
		},
		Static: StaticConfig{
			Dir:    DefaultStaticDir,
			Prefix: DefaultStaticPrefix,
		},
		Environment: EnvironmentFileName,
	}
}

// Load reads imago.json from dir.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads the configuration from path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E100").
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path)).
				WithSuggestion("Create " + ConfigFileName + " at the project root")
		}
		return nil, errors.New("E101").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		e := errors.New("E101").
			WithSuggestion("Check that " + ConfigFileName + " is valid JSON").
			Wrap(err)
		if syntax, ok := err.(*json.SyntaxError); ok {
			line, col := position(data, syntax.Offset)
			e.WithLocation(path, line, col)
		}
		return nil, e
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// position converts a byte offset into a 1-based line and column.
func position(data []byte, offset int64) (int, int) {
	line, col := 1, 1
	for i := int64(0); i < offset && i < int64(len(data)); i++ {
		if data[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E101").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.New("E101").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Static.Dir == "" {
		c.Static.Dir = DefaultStaticDir
	}
	if c.Static.Prefix == "" {
		c.Static.Prefix = DefaultStaticPrefix
	}
	if c.Environment == "" {
		c.Environment = EnvironmentFileName
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validatePort(c.Server.Port); err != nil {
		return errors.FromError(err, "E104").WithKey("server.port")
	}
	return nil
}

func validatePort(port int) error {
	if port < 0 || port > 65535 {
		return errors.New("E104").
			WithDetail("Port " + strconv.Itoa(port) + " is not between 0 and 65535")
	}
	return nil
}

// Address returns the address the server listens on.
func (c *Config) Address() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// StaticPath returns the absolute path of the static directory.
func (c *Config) StaticPath() string {
	return c.resolve(c.Static.Dir)
}

// EnvironmentPath returns the absolute path of the environment file.
func (c *Config) EnvironmentPath() string {
	return c.resolve(c.Environment)
}

func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir(), path)
}

// LoadEnvironment loads the named environment from the environment file.
// The project's debug flag and version apply unless the environment sets
// its own. A project without an environment file runs with the defaults.
func (c *Config) LoadEnvironment(name string) (*Environment, error) {
	env, err := LoadEnvironmentFile(c.EnvironmentPath(), name)
	if err != nil {
		return nil, err
	}
	if c.Debug {
		env.Debug = true
	}
	if env.Version == "" {
		env.Version = c.Version
	}
	if env.Server.Port == 0 {
		env.Server.Port = c.Server.Port
	}
	if env.Server.Host == "" {
		env.Server.Host = c.Server.Host
	}
	return env, nil
}

// Exists reports whether dir contains imago.json.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up from startDir to the directory containing
// imago.json.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E100").
				WithDetail("No " + ConfigFileName + " found in " + startDir + " or any parent directory").
				WithSuggestion("Run imago from the project directory or pass --dir")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads the configuration of the project containing the
// working directory.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}
