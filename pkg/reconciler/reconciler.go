// Package reconciler brings a local catalog up to date with a study in the
// remote manifest. Every selected file that the catalog does not already
// know by fingerprint is downloaded, verified against the manifest's
// fingerprint and only then recorded, one file at a time, oldest first.
// A fingerprint mismatch or a classifier refusal stops the run.
package reconciler

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agentstation/scansync/pkg/catalogs"
	"github.com/agentstation/scansync/pkg/constants"
	"github.com/agentstation/scansync/pkg/errors"
	"github.com/agentstation/scansync/pkg/fingerprint"
	"github.com/agentstation/scansync/pkg/logging"
	"github.com/agentstation/scansync/pkg/manifest"
	"github.com/agentstation/scansync/pkg/selection"
)

// Engine runs reconciliations. It holds no per-run state and may be reused.
type Engine struct {
	manifestURL string
	downloadDir string
	fetcher     Fetcher
	hasher      *fingerprint.Hasher
	observer    Observer
	reuseLocal  bool
}

// New creates an Engine with options.
func New(opts ...Option) (*Engine, error) {
	options, err := defaultOptions().apply(opts...)
	if err != nil {
		return nil, err
	}

	return &Engine{
		manifestURL: options.manifestURL,
		downloadDir: options.downloadDir,
		fetcher:     options.fetcher,
		hasher:      options.hasher,
		observer:    options.observer,
		reuseLocal:  options.reuseLocal,
	}, nil
}

// ManifestURL returns the manifest location.
func (e *Engine) ManifestURL() string { return e.manifestURL }

// DownloadDir returns the directory files are written to.
func (e *Engine) DownloadDir() string { return e.downloadDir }

// Manifest fetches the remote manifest.
func (e *Engine) Manifest(ctx context.Context) (*manifest.Manifest, error) {
	var m manifest.Manifest
	if err := e.fetcher.FetchJSON(ctx, e.manifestURL, &m); err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Debug().
		Str("url", e.manifestURL).
		Int("studies", len(m.Studies)).
		Msg("Fetched manifest")
	return &m, nil
}

// Reconcile ingests the files of studyID that policy selects and store
// does not hold.
//
// A manifest fetch failure or an unknown study returns a nil Result. An
// empty selection is not an error: the Result has EmptySelection set.
// A fingerprint mismatch returns the partial Result with an
// *errors.IntegrityError and a classifier refusal returns it with an
// *errors.RejectedError.
func (e *Engine) Reconcile(ctx context.Context, studyID string, store catalogs.Store, policy selection.Policy) (*Result, error) {
	// Step 1: Tag the run
	runID := uuid.NewString()
	ctx = logging.WithRunID(logging.WithStudy(ctx, studyID), runID)
	ctx = logging.WithBackend(ctx, catalogs.BackendName(store))
	logger := logging.FromContext(ctx)

	// Step 2: Fetch the manifest
	m, err := e.Manifest(ctx)
	if err != nil {
		logger.Error().Err(err).Str("url", e.manifestURL).Msg("Manifest fetch failed")
		return nil, err
	}

	// Step 3: Locate the study
	study, ok := m.Study(studyID)
	if !ok {
		return nil, errors.NewNotFoundError("study", studyID)
	}
	metadata := study.Header()

	// Step 4: Apply the selection policy
	result := newResult(studyID, runID)
	defer result.finalize()

	selected, err := policy.Apply(study.Files)
	if errors.IsEmptySelection(err) {
		result.EmptySelection = true
		logger.Info().
			Int("count", policy.Count).
			Str("filter", policy.URLFilter).
			Msg("Selection is empty")
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	result.Selected = selected

	logger.Info().
		Int("available", len(study.Files)).
		Int("selected", len(selected)).
		Msg("Reconciling study")

	// Step 5: Ingest each file, oldest first
	for _, file := range selected {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := e.ingest(ctx, logger, store, metadata, file, result); err != nil {
			return result, err
		}
	}

	logger.Info().
		Int("ingested", len(result.Downloaded)).
		Int("reused", len(result.Reused)).
		Int("skipped", len(result.Skipped)).
		Dur("elapsed", time.Since(result.StartTime)).
		Msg("Reconciliation complete")
	return result, nil
}

// DownloadLatest ingests the newest file of studyID. It returns the
// filename, or "" when the newest file is already in the catalog or the
// study lists no files.
func (e *Engine) DownloadLatest(ctx context.Context, studyID string, store catalogs.Store) (string, error) {
	result, err := e.Reconcile(ctx, studyID, store, selection.Latest)
	if err != nil {
		return "", err
	}
	if len(result.Downloaded) == 0 {
		return "", nil
	}
	return result.Downloaded[0], nil
}

// ingest handles one selected file, recording its outcome in result.
func (e *Engine) ingest(ctx context.Context, logger *zerolog.Logger, store catalogs.Store, metadata manifest.Metadata, file manifest.File, result *Result) error {
	studyID := metadata.ID()
	name := file.Filename()
	if name == "" {
		return &errors.ValidationError{Field: "name", Value: file.Name, Message: "file URL has no filename"}
	}
	flog := logger.With().Str("file", name).Logger()

	known, err := store.Contains(ctx, file.Fingerprint)
	if err != nil {
		return err
	}
	if known {
		flog.Debug().Msg("Already in catalog")
		result.Skipped = append(result.Skipped, name)
		e.observer.FileSkipped(ctx, studyID, file)
		return nil
	}

	target := filepath.Join(e.downloadDir, name)
	observed, reused, err := e.acquire(ctx, &flog, file, target)
	if err != nil {
		return err
	}

	if !fingerprint.Equal(observed, file.Fingerprint) {
		if rmErr := os.Remove(target); rmErr != nil && !os.IsNotExist(rmErr) {
			flog.Warn().Err(rmErr).Msg("Failed to remove corrupt download")
		}
		flog.Error().
			Str("expected", file.Fingerprint).
			Str("observed", observed).
			Msg("Fingerprint mismatch")
		e.observer.IntegrityFailed(ctx, studyID, file, observed)
		return errors.NewIntegrityError(studyID, name, file.Fingerprint, observed)
	}

	file.Verified = true
	file.LocalPath = target

	accepted, err := store.Write(ctx, metadata, file)
	if err != nil {
		return err
	}
	if !accepted {
		flog.Warn().Str("path", target).Msg("Catalog refused file; it stays on disk for the next run")
		e.observer.FileRejected(ctx, studyID, file)
		return errors.NewRejectedError(studyID, name, catalogs.BackendName(store))
	}

	result.Downloaded = append(result.Downloaded, name)
	if reused {
		result.Reused = append(result.Reused, name)
	}
	flog.Info().Bool("reused", reused).Msg("Ingested file")
	e.observer.FileIngested(ctx, studyID, file)
	return nil
}

// acquire puts the file at target and returns its fingerprint. An existing
// file is reused when it already hashes to the declared fingerprint.
func (e *Engine) acquire(ctx context.Context, logger *zerolog.Logger, file manifest.File, target string) (string, bool, error) {
	if e.reuseLocal {
		if sum, err := e.hasher.SumFile(target); err == nil {
			if fingerprint.Equal(sum, file.Fingerprint) {
				logger.Debug().Str("path", target).Msg("Reusing verified local copy")
				return sum, true, nil
			}
			logger.Debug().Str("path", target).Msg("Local copy is stale, downloading")
		}
	}

	if err := e.download(ctx, logger, file.Name, target); err != nil {
		return "", false, err
	}

	sum, err := e.hasher.SumFile(target)
	if err != nil {
		return "", false, err
	}
	return sum, false, nil
}

// download streams url into target via a partial file that is renamed
// into place once the body is complete.
func (e *Engine) download(ctx context.Context, logger *zerolog.Logger, url, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), constants.DirPermissions); err != nil {
		return errors.WrapIO("create", filepath.Dir(target), err)
	}

	partial := target + constants.PartialSuffix
	f, err := os.OpenFile(partial, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, constants.FilePermissions) //nolint:gosec
	if err != nil {
		return errors.WrapIO("create", partial, err)
	}

	start := time.Now()
	n, err := e.fetcher.FetchToSink(ctx, url, f)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = errors.WrapIO("close", partial, closeErr)
	}
	if err != nil {
		_ = os.Remove(partial)
		return err
	}

	if err := os.Rename(partial, target); err != nil {
		_ = os.Remove(partial)
		return errors.WrapIO("rename", target, err)
	}

	logger.Debug().
		Str("url", url).
		Int64("bytes", n).
		Dur("elapsed", time.Since(start)).
		Msg("Downloaded file")
	return nil
}
