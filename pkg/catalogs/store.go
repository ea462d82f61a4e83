package catalogs

import (
	"context"

	"github.com/agentstation/scansync/pkg/manifest"
)

// Store is a persistent catalog backend.
type Store interface {
	// Load returns the full catalog. A backend with no prior state returns
	// an empty catalog, not an error.
	Load(ctx context.Context) (*Catalog, error)

	// Contains reports whether a file with this fingerprint was recorded
	// under any study.
	Contains(ctx context.Context, fingerprint string) (bool, error)

	// Write classifies the downloaded file and, when accepted, records it
	// under metadata's study. It returns false with a nil error when the
	// classifier refuses the file; the catalog is then left untouched.
	Write(ctx context.Context, metadata manifest.Metadata, file manifest.File) (bool, error)
}

// Named is implemented by stores that report a backend name for logs and
// errors.
type Named interface {
	Backend() string
}

// BackendName returns the store's backend name, or "catalog".
func BackendName(s Store) string {
	if n, ok := s.(Named); ok {
		return n.Backend()
	}
	return "catalog"
}
