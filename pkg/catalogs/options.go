package catalogs

import (
	"context"

	"github.com/agentstation/scansync/pkg/classify"
	"github.com/agentstation/scansync/pkg/errors"
	"github.com/agentstation/scansync/pkg/logging"
	"github.com/agentstation/scansync/pkg/manifest"
)

// Options holds settings shared by every backend.
type Options struct {
	Classifier classify.Classifier
}

// Option configures a Store.
type Option func(*Options) error

// NewOptions applies opts over the defaults.
func NewOptions(opts ...Option) (*Options, error) {
	o := &Options{Classifier: classify.AcceptAll}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithClassifier sets the predicate run on each downloaded file before it
// is recorded.
func WithClassifier(c classify.Classifier) Option {
	return func(o *Options) error {
		if c == nil {
			return &errors.ValidationError{
				Field:   "classifier",
				Message: "cannot be nil",
			}
		}
		o.Classifier = c
		return nil
	}
}

// Accept runs the classifier on the file's local path.
func (o *Options) Accept(ctx context.Context, file manifest.File) bool {
	path := file.Path()
	if o.Classifier(path) {
		return true
	}
	logging.FromContext(ctx).Warn().
		Str("path", path).
		Str("fingerprint", file.Fingerprint).
		Msg("Classifier refused file")
	return false
}
