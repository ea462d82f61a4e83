// Package classify provides content predicates that a catalog runs on a
// downloaded file before recording it. A predicate returning false makes
// the catalog refuse the write.
package classify

import (
	"os"
	"strings"

	"github.com/agentstation/scansync/pkg/constants"
	"github.com/agentstation/scansync/pkg/errors"
	"github.com/agentstation/scansync/pkg/logging"
)

// Classifier decides whether the file at path may be recorded.
type Classifier func(path string) bool

// AcceptAll accepts every file. It is the default.
func AcceptAll(string) bool { return true }

// NonEmpty accepts regular files with at least one byte.
func NonEmpty(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		logging.Debug().Err(err).Str("path", path).Msg("Classifier could not stat file")
		return false
	}
	return info.Mode().IsRegular() && info.Size() > 0
}

// ArchiveOption tunes the Archive classifier.
type ArchiveOption func(*archiveConfig)

type archiveConfig struct {
	probe      int64
	allowRaw   bool
	strictName bool
}

// WithProbeLimit bounds how many decoded bytes are checked. Zero or less
// decodes the whole file.
func WithProbeLimit(n int64) ArchiveOption {
	return func(c *archiveConfig) { c.probe = n }
}

// WithRawAllowed accepts files that carry no recognized magic number.
func WithRawAllowed() ArchiveOption {
	return func(c *archiveConfig) { c.allowRaw = true }
}

// WithLenientNames skips the check that the file extension agrees with
// the sniffed format.
func WithLenientNames() ArchiveOption {
	return func(c *archiveConfig) { c.strictName = false }
}

// Archive returns a classifier that accepts gzip, zstd, lz4 and bzip2
// files whose leading decoded bytes are well formed.
func Archive(opts ...ArchiveOption) Classifier {
	cfg := &archiveConfig{probe: constants.ClassifyProbeSize, strictName: true}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(path string) bool {
		logger := logging.Default().With().Str("path", path).Logger()

		format, err := SniffFile(path)
		if err != nil {
			logger.Debug().Err(err).Msg("Archive sniff failed")
			return false
		}

		if claimed, ok := FormatForName(path); ok && cfg.strictName && claimed != format {
			logger.Debug().
				Str("claimed", claimed.String()).
				Str("sniffed", format.String()).
				Msg("Extension does not match content")
			return false
		}

		if format == FormatRaw {
			return cfg.allowRaw
		}

		if err := Probe(path, format, cfg.probe); err != nil {
			logger.Debug().Err(err).Str("format", format.String()).Msg("Archive probe failed")
			return false
		}
		return true
	}
}

// All accepts a file only when every classifier does.
func All(classifiers ...Classifier) Classifier {
	return func(path string) bool {
		for _, c := range classifiers {
			if !c(path) {
				return false
			}
		}
		return true
	}
}

// Any accepts a file when at least one classifier does.
func Any(classifiers ...Classifier) Classifier {
	return func(path string) bool {
		for _, c := range classifiers {
			if c(path) {
				return true
			}
		}
		return false
	}
}

// Not inverts a classifier.
func Not(c Classifier) Classifier {
	return func(path string) bool { return !c(path) }
}

// ByName resolves a configured classifier name. Names may be joined with
// "+" to require all of them, e.g. "non-empty+archive".
func ByName(name string) (Classifier, error) {
	if name == "" {
		return AcceptAll, nil
	}

	parts := strings.Split(name, "+")
	classifiers := make([]Classifier, 0, len(parts))
	for _, part := range parts {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "all", "accept-all", "none":
			classifiers = append(classifiers, AcceptAll)
		case "non-empty", "nonempty":
			classifiers = append(classifiers, NonEmpty)
		case "archive":
			classifiers = append(classifiers, Archive())
		case "archive-or-raw":
			classifiers = append(classifiers, Archive(WithRawAllowed()))
		default:
			return nil, errors.NewValidationError("classifier", part, "unknown classifier")
		}
	}

	if len(classifiers) == 1 {
		return classifiers[0], nil
	}
	return All(classifiers...), nil
}

// Names lists the classifier names ByName understands.
func Names() []string {
	return []string{"accept-all", "non-empty", "archive", "archive-or-raw"}
}
