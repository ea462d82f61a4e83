package reconciler

import (
	"context"
	"io"

	"github.com/agentstation/scansync/internal/transport"
	"github.com/agentstation/scansync/pkg/constants"
	"github.com/agentstation/scansync/pkg/errors"
	"github.com/agentstation/scansync/pkg/fingerprint"
)

// Fetcher retrieves the manifest and streams file bodies.
type Fetcher interface {
	FetchJSON(ctx context.Context, url string, target any) error
	FetchToSink(ctx context.Context, url string, w io.Writer) (int64, error)
}

type options struct {
	manifestURL string
	downloadDir string
	fetcher     Fetcher
	hasher      *fingerprint.Hasher
	observer    Observer
	reuseLocal  bool
}

func defaultOptions() *options {
	return &options{
		manifestURL: constants.DefaultManifestURL,
		downloadDir: ".",
		fetcher:     transport.New(),
		hasher:      fingerprint.Default(),
		observer:    NopObserver{},
		reuseLocal:  true,
	}
}

// Option is a function that configures an Engine.
type Option func(*options) error

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithManifestURL sets where the manifest is fetched from.
func WithManifestURL(url string) Option {
	return func(o *options) error {
		if url == "" {
			return &errors.ValidationError{Field: "manifest_url", Message: "cannot be empty"}
		}
		o.manifestURL = url
		return nil
	}
}

// WithDownloadDir sets the directory study files are written to.
func WithDownloadDir(dir string) Option {
	return func(o *options) error {
		if dir == "" {
			return &errors.ValidationError{Field: "download_dir", Message: "cannot be empty"}
		}
		o.downloadDir = dir
		return nil
	}
}

// WithFetcher replaces the HTTP fetcher.
func WithFetcher(f Fetcher) Option {
	return func(o *options) error {
		if f == nil {
			return &errors.ValidationError{Field: "fetcher", Message: "cannot be nil"}
		}
		o.fetcher = f
		return nil
	}
}

// WithHasher selects the fingerprint algorithm used for verification.
func WithHasher(h *fingerprint.Hasher) Option {
	return func(o *options) error {
		if h == nil {
			return &errors.ValidationError{Field: "hasher", Message: "cannot be nil"}
		}
		o.hasher = h
		return nil
	}
}

// WithObserver receives per-file events.
func WithObserver(obs Observer) Option {
	return func(o *options) error {
		if obs == nil {
			return &errors.ValidationError{Field: "observer", Message: "cannot be nil"}
		}
		o.observer = obs
		return nil
	}
}

// WithLocalReuse controls whether a file already present in the download
// directory with the declared fingerprint is used instead of fetched.
func WithLocalReuse(enabled bool) Option {
	return func(o *options) error {
		o.reuseLocal = enabled
		return nil
	}
}
