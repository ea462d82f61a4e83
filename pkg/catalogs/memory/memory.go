// Package memory provides a process-local catalogs.Store.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/agentstation/scansync/pkg/catalogs"
	"github.com/agentstation/scansync/pkg/logging"
	"github.com/agentstation/scansync/pkg/manifest"
)

// Store keeps the catalog in memory. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	catalog *catalogs.Catalog
	options *catalogs.Options
}

// New creates an empty in-memory store.
func New(opts ...catalogs.Option) (*Store, error) {
	options, err := catalogs.NewOptions(opts...)
	if err != nil {
		return nil, fmt.Errorf("applying memory option: %w", err)
	}
	return &Store{catalog: catalogs.New(), options: options}, nil
}

// NewFrom creates a store seeded with a copy of cat.
func NewFrom(cat *catalogs.Catalog, opts ...catalogs.Option) (*Store, error) {
	s, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if cat != nil {
		s.catalog = clone(cat)
	}
	return s, nil
}

// Backend implements catalogs.Named.
func (s *Store) Backend() string { return "memory" }

// Load returns a copy of the catalog.
func (s *Store) Load(context.Context) (*catalogs.Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.catalog), nil
}

// Contains implements catalogs.Store.
func (s *Store) Contains(_ context.Context, fingerprint string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog.Contains(fingerprint), nil
}

// Write implements catalogs.Store.
func (s *Store) Write(ctx context.Context, metadata manifest.Metadata, file manifest.File) (bool, error) {
	if !s.options.Accept(ctx, file) {
		return false, nil
	}

	s.mu.Lock()
	s.catalog.Append(metadata, file)
	s.mu.Unlock()

	logging.FromContext(ctx).Debug().
		Str("study", metadata.ID()).
		Str("file", file.Filename()).
		Msg("Recorded file in memory catalog")
	return true, nil
}

// clone deep-copies through JSON so callers never share file slices or
// metadata maps with the store.
func clone(cat *catalogs.Catalog) *catalogs.Catalog {
	data, err := json.Marshal(cat)
	if err != nil {
		return catalogs.New()
	}
	out := catalogs.New()
	if err := json.Unmarshal(data, out); err != nil {
		return catalogs.New()
	}
	return out
}
