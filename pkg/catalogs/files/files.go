// Package files stores the catalog as one JSON document on disk, in the
// same shape as the remote manifest.
package files

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/agentstation/scansync/pkg/catalogs"
	"github.com/agentstation/scansync/pkg/constants"
	"github.com/agentstation/scansync/pkg/errors"
	"github.com/agentstation/scansync/pkg/logging"
	"github.com/agentstation/scansync/pkg/manifest"
)

// Store is a flat-file catalog. Every Write rewrites the whole document
// under an advisory lock and replaces it atomically, so concurrent
// processes on one host never lose each other's records.
type Store struct {
	path    string
	options *catalogs.Options
}

// New creates a flat-file store at path. The file need not exist.
func New(path string, opts ...catalogs.Option) (*Store, error) {
	if path == "" {
		return nil, &errors.ValidationError{Field: "path", Message: "is required for files catalog"}
	}

	options, err := catalogs.NewOptions(opts...)
	if err != nil {
		return nil, fmt.Errorf("applying files option: %w", err)
	}

	return &Store{path: path, options: options}, nil
}

// Path returns the catalog document path.
func (s *Store) Path() string { return s.path }

// Backend implements catalogs.Named.
func (s *Store) Backend() string { return "files" }

// Load reads the catalog document. A missing file is an empty catalog.
func (s *Store) Load(context.Context) (*catalogs.Catalog, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return catalogs.New(), nil
	}
	if err != nil {
		return nil, errors.WrapIO("read", s.path, err)
	}

	cat := catalogs.New()
	if err := json.Unmarshal(data, cat); err != nil {
		return nil, errors.WrapParse("json", s.path, err)
	}
	if cat.Studies == nil {
		cat.Studies = []manifest.Study{}
	}
	return cat, nil
}

// Contains implements catalogs.Store.
func (s *Store) Contains(ctx context.Context, fingerprint string) (bool, error) {
	cat, err := s.Load(ctx)
	if err != nil {
		return false, err
	}
	return cat.Contains(fingerprint), nil
}

// Write implements catalogs.Store.
func (s *Store) Write(ctx context.Context, metadata manifest.Metadata, file manifest.File) (bool, error) {
	if !s.options.Accept(ctx, file) {
		return false, nil
	}

	unlock, err := lock(ctx, s.path+constants.LockSuffix)
	if err != nil {
		return false, err
	}
	defer func() {
		if err := unlock(); err != nil {
			logging.FromContext(ctx).Warn().Err(err).Str("path", s.path).Msg("Failed to release catalog lock")
		}
	}()

	// Re-read under the lock; another process may have written since.
	cat, err := s.Load(ctx)
	if err != nil {
		return false, err
	}
	cat.Append(metadata, file)

	if err := s.save(cat); err != nil {
		return false, err
	}

	logging.FromContext(ctx).Debug().
		Str("study", metadata.ID()).
		Str("file", file.Filename()).
		Str("catalog", s.path).
		Msg("Recorded file in catalog")
	return true, nil
}

// save writes cat to a temp file next to the catalog and renames it into
// place.
func (s *Store) save(cat *catalogs.Catalog) error {
	data, err := json.Marshal(cat)
	if err != nil {
		return errors.WrapParse("json", s.path, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return errors.WrapIO("create", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return errors.WrapIO("create", dir, err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return errors.WrapIO("write", tmpPath, err)
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return errors.WrapIO("sync", tmpPath, err)
	}
	if err := tmpFile.Close(); err != nil {
		return errors.WrapIO("close", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, constants.FilePermissions); err != nil {
		return errors.WrapIO("chmod", tmpPath, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return errors.WrapIO("rename", s.path, err)
	}

	success = true
	return nil
}
