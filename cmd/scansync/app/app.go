// Package app provides the application context and dependency management
// for the scansync CLI. It centralizes configuration, logging, and the
// lifecycle of the catalog client.
package app

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/agentstation/scansync"
	"github.com/agentstation/scansync/cmd/application"
	"github.com/agentstation/scansync/pkg/catalogs/elastic"
	"github.com/agentstation/scansync/pkg/errors"
	"github.com/agentstation/scansync/pkg/manifest"
)

// Ensure App implements application.Application at compile time.
var _ application.Application = (*App)(nil)

// App represents the scansync application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	// Configuration
	viper  *viper.Viper
	config *Config

	logger *zerolog.Logger
	out    io.Writer

	// Client instance (lazy-initialized, singleton)
	mu     sync.Mutex
	client scansync.Client
}

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		viper:   newViper(),
		out:     os.Stdout,
	}

	config, err := LoadConfig(app.viper)
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

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
	return a.config.Format
}

// WatchInterval returns the configured watch interval.
func (a *App) WatchInterval() time.Duration {
	return a.config.WatchInterval
}

// Client returns the scansync client, opening the catalog backend on
// first use.
func (a *App) Client(ctx context.Context) (scansync.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		return a.client, nil
	}

	store, err := scansync.OpenStore(ctx, a.storeConfig())
	if err != nil {
		return nil, errors.WrapResource("open", "catalog", a.config.Backend, err)
	}

	client, err := scansync.New(store, a.clientOptions()...)
	if err != nil {
		if closer, ok := store.(io.Closer); ok {
			_ = closer.Close()
		}
		return nil, errors.WrapResource("create", "client", "", err)
	}
	a.registerHooks(client)

	a.client = client
	return client, nil
}

// Shutdown stops watching and releases the catalog backend.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	client := a.client
	a.client = nil
	a.mu.Unlock()

	if client == nil {
		return nil
	}
	if err := client.Close(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to close catalog during shutdown")
		return err
	}
	return nil
}

// storeConfig builds the catalog backend configuration.
func (a *App) storeConfig() scansync.StoreConfig {
	return scansync.StoreConfig{
		Backend:    a.config.Backend,
		Path:       a.config.CatalogPath,
		Classifier: a.config.Classifier,
		Elastic: elastic.Config{
			Addresses: a.config.ElasticAddresses,
			Index:     a.config.ElasticIndex,
			Username:  a.config.ElasticUsername,
			Password:  a.config.ElasticPassword,
			APIKey:    a.config.ElasticAPIKey,
		},
	}
}

// clientOptions constructs client options from the app configuration.
func (a *App) clientOptions() []scansync.Option {
	opts := []scansync.Option{
		scansync.WithManifestURL(a.config.ManifestURL),
		scansync.WithDownloadDir(a.config.DownloadDir),
		scansync.WithAlgorithm(a.config.Algorithm),
		scansync.WithLocalReuse(a.config.ReuseLocal),
		scansync.WithTimeouts(a.config.Timeout, a.config.DownloadTimeout),
		scansync.WithUserAgent(a.config.UserAgent),
		scansync.WithWatchInterval(a.config.WatchInterval),
	}

	if a.config.AuthSecret != "" {
		opts = append(opts, scansync.WithAuth(a.config.AuthScheme, a.config.AuthSecret))
	}

	return opts
}

// registerHooks logs file events.
func (a *App) registerHooks(client scansync.Client) {
	client.OnFileIngested(func(studyID string, file manifest.File) {
		a.logger.Info().Str("study_id", studyID).Str("file", file.Filename()).Msg("Ingested file")
	})
	client.OnIntegrityFailed(func(studyID string, file manifest.File, observed string) {
		a.logger.Error().
			Str("study_id", studyID).
			Str("file", file.Filename()).
			Str("expected", file.Fingerprint).
			Str("observed", observed).
			Msg("Fingerprint mismatch")
	})
	client.OnFileRejected(func(studyID string, file manifest.File) {
		a.logger.Warn().Str("study_id", studyID).Str("file", file.Filename()).Msg("Catalog rejected file")
	})
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithClient sets a custom client (useful for testing).
func WithClient(client scansync.Client) Option {
	return func(a *App) error {
		a.client = client
		return nil
	}
}

// WithOutput redirects command output, stdout by default.
func WithOutput(w io.Writer) Option {
	return func(a *App) error {
		a.out = w
		return nil
	}
}
