// Package app provides the application context and dependency management
// for the fitler CLI: configuration, logging, the store and the engine,
// created once and shared by every command.
package app

import (
	stderrors "errors"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ckdake/fitler"
	"github.com/ckdake/fitler/internal/metrics"
	"github.com/ckdake/fitler/internal/sources/local"
	"github.com/ckdake/fitler/internal/store/sqlite"
	"github.com/ckdake/fitler/pkg/authority"
	"github.com/ckdake/fitler/pkg/errors"
	"github.com/ckdake/fitler/pkg/reconciler"
	"github.com/ckdake/fitler/pkg/sources"
	"github.com/ckdake/fitler/pkg/store"
)

// App represents the fitler application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	// Command IO, nil means the process streams
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	// Engine and its store (lazy-initialized, singleton)
	mu      sync.Mutex
	store   store.Store
	fitler  fitler.Fitler
	metrics *metrics.Metrics
}

// Option configures an App.
type Option func(*App) error

// WithConfig replaces the loaded configuration.
func WithConfig(cfg *Config) Option {
	return func(a *App) error {
		if cfg == nil {
			return &errors.ValidationError{Field: "config", Message: "cannot be nil"}
		}
		a.config = cfg
		return nil
	}
}

// WithStore makes the app use st instead of opening the configured database.
func WithStore(st store.Store) Option {
	return func(a *App) error {
		a.store = st
		return nil
	}
}

// WithIO sets the streams commands read from and write to.
func WithIO(in io.Reader, out, errOut io.Writer) Option {
	return func(a *App) error {
		a.in, a.out, a.errOut = in, out, errOut
		return nil
	}
}

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	config, err := LoadConfig("")
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	logger := NewLogger(app.config)
	app.logger = &logger

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Output
}

// Location returns the home time zone, falling back to UTC when the
// configured zone cannot be loaded.
func (a *App) Location() *time.Location {
	loc, err := a.config.Location()
	if err != nil {
		a.logger.Warn().Err(err).Msg("Falling back to UTC")
		return time.UTC
	}
	return loc
}

// Fitler returns the engine, creating it and opening the store on first
// use. It is safe for concurrent use.
func (a *App) Fitler() (fitler.Fitler, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.fitler != nil {
		return a.fitler, nil
	}

	opts, err := a.buildOptions()
	if err != nil {
		return nil, err
	}

	if a.store == nil {
		st, err := sqlite.Open(a.config.Database)
		if err != nil {
			return nil, errors.WrapResource("open", "store", a.config.Database, err)
		}
		a.store = st
	}

	f, err := fitler.New(a.store, opts...)
	if err != nil {
		return nil, errors.WrapResource("create", "fitler", "", err)
	}

	a.logger.Debug().
		Str("database", a.config.Database).
		Strs("sources", a.sourceNames()).
		Msg("Engine ready")

	a.fitler = f
	return f, nil
}

// buildOptions turns the configuration into engine options.
func (a *App) buildOptions() ([]fitler.Option, error) {
	loc, err := a.config.Location()
	if err != nil {
		return nil, err
	}

	enabled, err := a.config.EnabledSources()
	if err != nil {
		return nil, err
	}
	srcs := make([]sources.Source, 0, len(enabled))
	for _, s := range enabled {
		srcs = append(srcs, local.New(s, a.config.SourcePath(s), local.WithLocation(loc)))
	}

	strategy, err := reconciler.ParseStrategy(a.config.Strategy)
	if err != nil {
		return nil, errors.NewConfigError("strategy", a.config.Strategy, err)
	}

	if a.metrics == nil {
		a.metrics = metrics.New(nil)
	}

	opts := []fitler.Option{
		fitler.WithSources(srcs...),
		fitler.WithStrategy(strategy),
		fitler.WithMatchWindow(a.config.MatchWindow),
		fitler.WithDurationTolerance(a.config.DurationTolerance),
		fitler.WithLocation(loc),
		fitler.WithConcurrency(a.config.Concurrency),
		fitler.WithFetchTimeout(a.config.FetchTimeout),
		fitler.WithMetrics(a.metrics),
	}

	precedence, err := a.config.PrecedenceOrder()
	if err != nil {
		return nil, err
	}
	if len(precedence) > 0 {
		auth, err := authority.New(precedence)
		if err != nil {
			return nil, errors.NewConfigError("precedence", "building authority", err)
		}
		opts = append(opts, fitler.WithAuthority(auth))
	}

	return opts, nil
}

func (a *App) sourceNames() []string {
	enabled, _ := a.config.EnabledSources()
	names := make([]string, len(enabled))
	for i, s := range enabled {
		names[i] = s.String()
	}
	return names
}

// Shutdown writes the metrics textfile, if configured, and releases the
// engine and the store.
func (a *App) Shutdown() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	if a.metrics != nil && a.config.MetricsTextfile != "" && a.fitler != nil {
		if err := a.metrics.WriteTextfile(a.config.MetricsTextfile); err != nil {
			errs = append(errs, err)
		}
	}
	if a.fitler != nil {
		if err := a.fitler.Close(); err != nil {
			errs = append(errs, err)
		}
		a.fitler = nil
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, err)
		}
		a.store = nil
	}
	return stderrors.Join(errs...)
}
