package scansync

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentstation/scansync/pkg/catalogs"
	"github.com/agentstation/scansync/pkg/catalogs/bolt"
	"github.com/agentstation/scansync/pkg/catalogs/elastic"
	"github.com/agentstation/scansync/pkg/catalogs/files"
	"github.com/agentstation/scansync/pkg/catalogs/memory"
	"github.com/agentstation/scansync/pkg/classify"
	"github.com/agentstation/scansync/pkg/constants"
	"github.com/agentstation/scansync/pkg/errors"
)

// Backend names accepted by OpenStore.
const (
	BackendFiles   = "files"
	BackendBolt    = "bolt"
	BackendElastic = "elastic"
	BackendMemory  = "memory"
)

// Backends lists every supported catalog backend.
func Backends() []string {
	return []string{BackendFiles, BackendBolt, BackendElastic, BackendMemory}
}

// StoreConfig selects and configures a catalog backend.
type StoreConfig struct {
	// Backend is one of Backends(); empty selects files.
	Backend string

	// Path is the catalog file for the files and bolt backends.
	Path string

	// Classifier names the admission policy, see classify.ByName.
	Classifier string

	Elastic elastic.Config
}

// OpenStore creates the configured catalog backend. The elastic backend
// creates its index when missing. Callers must Close the returned store
// when it implements io.Closer.
func OpenStore(ctx context.Context, cfg StoreConfig) (catalogs.Store, error) {
	classifier, err := classify.ByName(cfg.Classifier)
	if err != nil {
		return nil, err
	}
	opts := []catalogs.Option{catalogs.WithClassifier(classifier)}

	switch strings.ToLower(cfg.Backend) {
	case "", BackendFiles:
		path := cfg.Path
		if path == "" {
			path = constants.DefaultCatalogFile
		}
		store, err := files.New(path, opts...)
		if err != nil {
			return nil, err
		}
		return store, nil
	case BackendBolt:
		path := cfg.Path
		if path == "" {
			path = constants.DefaultBoltFile
		}
		store, err := bolt.Open(path, opts...)
		if err != nil {
			return nil, err
		}
		return store, nil
	case BackendElastic:
		store, err := elastic.New(cfg.Elastic, opts...)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureIndex(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case BackendMemory:
		store, err := memory.New(opts...)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, errors.NewConfigError("backend",
			fmt.Sprintf("unknown backend %q (expected one of %s)", cfg.Backend, strings.Join(Backends(), ", ")), nil)
	}
}
