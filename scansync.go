// Package scansync keeps a local catalog of scans.io study files in step
// with the remote manifest.
//
// A Client pairs a reconciliation engine with one catalog backend. Each
// reconciliation fetches the manifest, selects files of one study, and
// downloads, verifies and records every file the catalog does not already
// know by fingerprint.
//
// Example usage:
//
//	store, err := scansync.OpenStore(ctx, scansync.StoreConfig{Backend: "files", Path: "local_catalog.json"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client, err := scansync.New(store, scansync.WithDownloadDir("/data/scans"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.OnFileIngested(func(studyID string, file manifest.File) {
//	    log.Printf("ingested %s for %s", file.Filename(), studyID)
//	})
//
//	result, err := client.Reconcile(ctx, "sonar.ssl", selection.Policy{Count: -3, URLFilter: "ipv4"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Summary())
package scansync

import (
	"context"
	"io"
	"sync"

	"github.com/agentstation/scansync/pkg/catalogs"
	"github.com/agentstation/scansync/pkg/errors"
	"github.com/agentstation/scansync/pkg/logging"
	"github.com/agentstation/scansync/pkg/manifest"
	"github.com/agentstation/scansync/pkg/reconciler"
	"github.com/agentstation/scansync/pkg/selection"
)

// Compile-time interface check to ensure proper implementation.
var _ Client = (*client)(nil)

// Reconciler runs reconciliations against the client's catalog.
type Reconciler interface {
	// Reconcile ingests the files of studyID selected by policy
	Reconcile(ctx context.Context, studyID string, policy selection.Policy) (*reconciler.Result, error)

	// DownloadLatest ingests the newest file of studyID, returning "" when
	// it is already in the catalog
	DownloadLatest(ctx context.Context, studyID string) (string, error)
}

// Catalog provides read access to the local catalog.
type Catalog interface {
	// Catalog loads the full local catalog
	Catalog(ctx context.Context) (*catalogs.Catalog, error)

	// Contains reports whether a fingerprint has been ingested
	Contains(ctx context.Context, fingerprint string) (bool, error)
}

// Studies lists what the remote manifest offers.
type Studies interface {
	Studies(ctx context.Context) ([]manifest.Study, error)
}

// Client reconciles one catalog backend against the remote manifest.
type Client interface {
	Reconciler
	Catalog
	Studies

	// Watcher re-runs a reconciliation on an interval
	Watcher

	// Hooks provides access to event callback registration
	Hooks

	// Close stops watching and releases the catalog backend
	Close() error
}

// client is the internal implementation of the Client interface.
type client struct {
	options *options
	store   catalogs.Store
	engine  *reconciler.Engine
	hooks   *hooks

	// watch state
	mu          sync.Mutex
	watchCancel context.CancelFunc
	watchDone   chan struct{}
}

// New creates a Client over store with the given options.
func New(store catalogs.Store, opts ...Option) (Client, error) {
	if store == nil {
		return nil, &errors.ValidationError{Field: "store", Message: "cannot be nil"}
	}

	options, err := defaults().apply(opts...)
	if err != nil {
		return nil, err
	}

	c := &client{
		options: options,
		store:   store,
		hooks:   newHooks(),
	}

	engineOpts := []reconciler.Option{
		reconciler.WithManifestURL(options.manifestURL),
		reconciler.WithDownloadDir(options.downloadDir),
		reconciler.WithHasher(options.hasher),
		reconciler.WithLocalReuse(options.reuseLocal),
		reconciler.WithObserver(c.hooks),
	}
	if options.fetcher != nil {
		engineOpts = append(engineOpts, reconciler.WithFetcher(options.fetcher))
	}

	if c.engine, err = reconciler.New(engineOpts...); err != nil {
		return nil, errors.WrapResource("create", "reconciler", options.manifestURL, err)
	}

	logging.Debug().
		Str("manifest", options.manifestURL).
		Str("download_dir", options.downloadDir).
		Str("backend", catalogs.BackendName(store)).
		Msg("Created scansync client")
	return c, nil
}

// Reconcile implements Reconciler.
func (c *client) Reconcile(ctx context.Context, studyID string, policy selection.Policy) (*reconciler.Result, error) {
	return c.engine.Reconcile(ctx, studyID, c.store, policy)
}

// DownloadLatest implements Reconciler.
func (c *client) DownloadLatest(ctx context.Context, studyID string) (string, error) {
	return c.engine.DownloadLatest(ctx, studyID, c.store)
}

// Catalog implements Catalog.
func (c *client) Catalog(ctx context.Context) (*catalogs.Catalog, error) {
	return c.store.Load(ctx)
}

// Contains implements Catalog.
func (c *client) Contains(ctx context.Context, fingerprint string) (bool, error) {
	return c.store.Contains(ctx, fingerprint)
}

// Studies implements Studies.
func (c *client) Studies(ctx context.Context) ([]manifest.Study, error) {
	m, err := c.engine.Manifest(ctx)
	if err != nil {
		return nil, err
	}
	return m.Studies, nil
}

// Close implements Client. Stores holding resources (bolt) are closed.
func (c *client) Close() error {
	if err := c.WatchOff(); err != nil {
		return err
	}
	if closer, ok := c.store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
