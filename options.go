package scansync

import (
	"time"

	"github.com/agentstation/scansync/internal/transport"
	"github.com/agentstation/scansync/pkg/constants"
	"github.com/agentstation/scansync/pkg/errors"
	"github.com/agentstation/scansync/pkg/fingerprint"
	"github.com/agentstation/scansync/pkg/reconciler"
)

// options holds the configuration for a Client.
type options struct {
	manifestURL   string
	downloadDir   string
	hasher        *fingerprint.Hasher
	reuseLocal    bool
	fetcher       reconciler.Fetcher
	transportOpts []transport.Option
	watchInterval time.Duration
}

func defaults() *options {
	return &options{
		manifestURL:   constants.DefaultManifestURL,
		downloadDir:   ".",
		hasher:        fingerprint.Default(),
		reuseLocal:    true,
		watchInterval: constants.DefaultWatchInterval,
	}
}

// Option is a function that configures a Client.
type Option func(*options) error

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.fetcher == nil && len(o.transportOpts) > 0 {
		o.fetcher = transport.New(o.transportOpts...)
	}
	return o, nil
}

// WithManifestURL sets the manifest location.
func WithManifestURL(url string) Option {
	return func(o *options) error {
		if url == "" {
			return &errors.ValidationError{Field: "manifest_url", Message: "cannot be empty"}
		}
		o.manifestURL = url
		return nil
	}
}

// WithDownloadDir sets where study files are written.
func WithDownloadDir(dir string) Option {
	return func(o *options) error {
		if dir == "" {
			return &errors.ValidationError{Field: "download_dir", Message: "cannot be empty"}
		}
		o.downloadDir = dir
		return nil
	}
}

// WithAlgorithm selects the fingerprint algorithm by name.
func WithAlgorithm(name string) Option {
	return func(o *options) error {
		algorithm, err := fingerprint.ParseAlgorithm(name)
		if err != nil {
			return err
		}
		o.hasher = fingerprint.New(algorithm)
		return nil
	}
}

// WithLocalReuse controls reuse of verified files already on disk.
func WithLocalReuse(enabled bool) Option {
	return func(o *options) error {
		o.reuseLocal = enabled
		return nil
	}
}

// WithAuth authenticates manifest and file requests. scheme is parsed by
// transport.ParseAuth.
func WithAuth(scheme, secret string) Option {
	return func(o *options) error {
		auth, err := transport.ParseAuth(scheme)
		if err != nil {
			return err
		}
		o.transportOpts = append(o.transportOpts, transport.WithAuth(auth, secret))
		return nil
	}
}

// WithTimeouts sets the manifest request and per-file download timeouts.
// Zero leaves a value unchanged.
func WithTimeouts(request, download time.Duration) Option {
	return func(o *options) error {
		if request > 0 {
			o.transportOpts = append(o.transportOpts, transport.WithTimeout(request))
		}
		if download > 0 {
			o.transportOpts = append(o.transportOpts, transport.WithDownloadTimeout(download))
		}
		return nil
	}
}

// WithUserAgent sets the User-Agent sent to scans.io.
func WithUserAgent(ua string) Option {
	return func(o *options) error {
		o.transportOpts = append(o.transportOpts, transport.WithUserAgent(ua))
		return nil
	}
}

// WithFetcher replaces the HTTP transport entirely.
func WithFetcher(f reconciler.Fetcher) Option {
	return func(o *options) error {
		if f == nil {
			return &errors.ValidationError{Field: "fetcher", Message: "cannot be nil"}
		}
		o.fetcher = f
		return nil
	}
}

// WithWatchInterval sets how often WatchOn re-reconciles.
func WithWatchInterval(interval time.Duration) Option {
	return func(o *options) error {
		if interval < constants.MinWatchInterval {
			return &errors.ValidationError{
				Field:   "watch_interval",
				Value:   interval,
				Message: "must be at least " + constants.MinWatchInterval.String(),
			}
		}
		o.watchInterval = interval
		return nil
	}
}
