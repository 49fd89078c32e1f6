package cli

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/imago-dev/imago"
	"github.com/imago-dev/imago/internal/config"
	ierrors "github.com/imago-dev/imago/internal/errors"
	"github.com/imago-dev/imago/pkg/storage"
)

// projectFlags select the project and environment a command runs with.
type projectFlags struct {
	dir string
	env string
}

func (f *projectFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.dir, "dir", "d", "", "Project directory (default: the working directory or a parent)")
	cmd.Flags().StringVarP(&f.env, "env", "e", "", "Environment (default: $IMAGO_ENV or prod)")
}

// load reads the project configuration and the selected environment.
func (f *projectFlags) load() (*config.Config, *config.Environment, error) {
	dir := f.dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, nil, err
		}
		dir = wd
	}
	root, err := config.FindProjectRoot(dir)
	if err != nil {
		return nil, nil, err
	}
	project, err := config.Load(root)
	if err != nil {
		return nil, nil, err
	}

	name := f.env
	if name == "" {
		name = os.Getenv("IMAGO_ENV")
	}
	env, err := project.LoadEnvironment(name)
	if err != nil {
		return nil, nil, err
	}
	return project, env, nil
}

// appOptions are the serve flags that are not part of the project files.
type appOptions struct {
	metrics bool
	tracing bool
	logOut  io.Writer
}

// newApp builds the App of a project environment. The returned closer
// releases the persistent page cache, if any.
func newApp(project *config.Config, env *config.Environment, opts appOptions, setup Setup) (*imago.App, io.Closer, error) {
	ttl, err := env.CacheTTL()
	if err != nil {
		return nil, nil, err
	}

	level := slog.LevelInfo
	if env.Debug {
		level = slog.LevelDebug
	}
	out := opts.logOut
	if out == nil {
		out = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))

	cfg := imago.Config{
		Env:              env.Name,
		Debug:            env.Debug,
		Version:          env.Version,
		Protocol:         env.Protocol,
		Host:             env.Host,
		Root:             env.Root,
		LanguagePartPath: env.LanguagePartPath,
		Language:         env.LanguageFor,
		App:              env.App,
		Cache: imago.CacheConfig{
			Enabled: env.Cache.Enabled,
			TTL:     ttl,
		},
		Scripts:  project.Scripts,
		Metrics:  opts.metrics,
		Tracing:  opts.tracing,
		Devtools: project.Devtools,
		Logger:   logger,
	}

	static, err := staticConfig(project, env.Debug)
	if err != nil {
		return nil, nil, err
	}
	cfg.Static = static

	var closer io.Closer = nopCloser{}
	if env.Cache.Enabled && env.Cache.File != "" {
		path := env.Cache.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(project.Dir(), path)
		}
		bolt, err := storage.OpenBolt(path, "")
		if err != nil {
			return nil, nil, ierrors.New("E122").
				WithDetail("The cache file " + path + " could not be opened.").
				WithSuggestion("Check the $Cache.file setting of the " + env.Name + " environment").
				Wrap(err)
		}
		cfg.Cache.Storage = bolt
		closer = bolt
	}

	app := imago.New(cfg)
	if setup != nil {
		if err := setup(app); err != nil {
			app.Close()
			return nil, nil, errors.Join(err, closer.Close())
		}
	}
	return app, closer, nil
}

// staticConfig serves the static directory of the project. A missing
// directory is an error unless it is the default one.
func staticConfig(project *config.Config, debug bool) (imago.StaticConfig, error) {
	cfg := imago.StaticConfig{
		Prefix:       project.Static.Prefix,
		CacheControl: imago.CacheControlProduction,
	}
	if debug {
		cfg.CacheControl = imago.CacheControlNone
	}

	dir := project.StaticPath()
	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		cfg.Dir = dir
	case errors.Is(err, os.ErrNotExist) && project.Static.Dir == config.DefaultStaticDir:
	default:
		return cfg, ierrors.New("E121").
			WithDetail("The static directory " + dir + " does not exist or is not a directory.").
			WithSuggestion("Create the directory or fix static.dir in " + config.ConfigFileName)
	}
	return cfg, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
