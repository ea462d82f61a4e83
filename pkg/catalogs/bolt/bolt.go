// Package bolt stores the catalog in an embedded bbolt database. Studies
// are kept as JSON under their id and a second bucket indexes every
// recorded fingerprint, so Contains never scans the catalog.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.etcd.io/bbolt"

	"github.com/agentstation/scansync/pkg/catalogs"
	"github.com/agentstation/scansync/pkg/constants"
	"github.com/agentstation/scansync/pkg/errors"
	"github.com/agentstation/scansync/pkg/logging"
	"github.com/agentstation/scansync/pkg/manifest"
)

// Bucket names.
const (
	StudiesBucket      = "studies"
	FingerprintsBucket = "fingerprints"
)

// Store is a bbolt-backed catalog. bbolt holds an exclusive lock on the
// database file for as long as the store is open.
type Store struct {
	db      *bbolt.DB
	path    string
	options *catalogs.Options
}

// Open opens or creates the database at path.
func Open(path string, opts ...catalogs.Option) (*Store, error) {
	if path == "" {
		return nil, &errors.ValidationError{Field: "path", Message: "is required for bolt catalog"}
	}

	options, err := catalogs.NewOptions(opts...)
	if err != nil {
		return nil, fmt.Errorf("applying bolt option: %w", err)
	}

	db, err := bbolt.Open(path, constants.FilePermissions, &bbolt.Options{Timeout: constants.LockTimeout})
	if err != nil {
		return nil, errors.WrapResource("open", "catalog", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{StudiesBucket, FingerprintsBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.WrapResource("create", "catalog", path, err)
	}

	return &Store{db: db, path: path, options: options}, nil
}

// Close releases the database and its file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Backend implements catalogs.Named.
func (s *Store) Backend() string { return "bolt" }

// Load implements catalogs.Store. Studies come back ordered by id.
func (s *Store) Load(context.Context) (*catalogs.Catalog, error) {
	cat := catalogs.New()
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(StudiesBucket)).ForEach(func(k, v []byte) error {
			var study manifest.Study
			if err := json.Unmarshal(v, &study); err != nil {
				return errors.WrapParse("json", string(k), err)
			}
			cat.Studies = append(cat.Studies, study)
			return nil
		})
	})
	if err != nil {
		return nil, errors.WrapResource("load", "catalog", s.path, err)
	}
	return cat, nil
}

// Contains implements catalogs.Store.
func (s *Store) Contains(_ context.Context, fingerprint string) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket([]byte(FingerprintsBucket)).Get(fingerprintKey(fingerprint)) != nil
		return nil
	})
	if err != nil {
		return false, errors.WrapResource("query", "catalog", s.path, err)
	}
	return found, nil
}

// Write implements catalogs.Store. The study record and the fingerprint
// index are updated in one transaction.
func (s *Store) Write(ctx context.Context, metadata manifest.Metadata, file manifest.File) (bool, error) {
	if !s.options.Accept(ctx, file) {
		return false, nil
	}

	studyID := metadata.ID()
	err := s.db.Update(func(tx *bbolt.Tx) error {
		studies := tx.Bucket([]byte(StudiesBucket))

		study := manifest.Study{Metadata: metadata.Clone()}
		if existing := studies.Get([]byte(studyID)); existing != nil {
			if err := json.Unmarshal(existing, &study); err != nil {
				return errors.WrapParse("json", studyID, err)
			}
		}
		study.Files = append(study.Files, file)

		data, err := json.Marshal(study)
		if err != nil {
			return err
		}
		if err := studies.Put([]byte(studyID), data); err != nil {
			return err
		}
		return tx.Bucket([]byte(FingerprintsBucket)).Put(fingerprintKey(file.Fingerprint), []byte(studyID))
	})
	if err != nil {
		return false, errors.WrapResource("create", "catalog", s.path, err)
	}

	logging.FromContext(ctx).Debug().
		Str("study", studyID).
		Str("file", file.Filename()).
		Str("catalog", s.path).
		Msg("Recorded file in bolt catalog")
	return true, nil
}

// Study returns the study that recorded fingerprint, if any.
func (s *Store) Study(fingerprint string) (string, bool, error) {
	var id string
	err := s.db.View(func(tx *bbolt.Tx) error {
		id = string(tx.Bucket([]byte(FingerprintsBucket)).Get(fingerprintKey(fingerprint)))
		return nil
	})
	if err != nil {
		return "", false, errors.WrapResource("query", "catalog", s.path, err)
	}
	return id, id != "", nil
}

func fingerprintKey(fp string) []byte {
	return []byte(strings.ToLower(strings.TrimSpace(fp)))
}
