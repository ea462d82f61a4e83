package scansync_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/scansync"
	"github.com/agentstation/scansync/pkg/catalogs"
	"github.com/agentstation/scansync/pkg/catalogs/elastic"
	"github.com/agentstation/scansync/pkg/errors"
)

// newElasticStub answers every request as an Elasticsearch node that
// already has the index.
func newElasticStub(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()
	es := newElasticStub(t)

	tests := []struct {
		name    string
		cfg     scansync.StoreConfig
		backend string
	}{
		{"default is files", scansync.StoreConfig{Path: filepath.Join(dir, "c.json")}, "files"},
		{"files", scansync.StoreConfig{Backend: "files", Path: filepath.Join(dir, "f.json")}, "files"},
		{"bolt", scansync.StoreConfig{Backend: "bolt", Path: filepath.Join(dir, "c.db")}, "bolt"},
		{"memory", scansync.StoreConfig{Backend: "MEMORY"}, "memory"},
		{"elastic", scansync.StoreConfig{Backend: "elastic", Elastic: elastic.Config{Addresses: []string{es.URL}}}, "elastic"},
		{"with classifier", scansync.StoreConfig{Backend: "memory", Classifier: "non-empty+archive"}, "memory"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := scansync.OpenStore(context.Background(), tt.cfg)
			require.NoError(t, err)
			if c, ok := store.(io.Closer); ok {
				t.Cleanup(func() { _ = c.Close() })
			}
			assert.Equal(t, tt.backend, catalogs.BackendName(store))
		})
	}
}

func TestOpenStoreErrors(t *testing.T) {
	ctx := context.Background()

	_, err := scansync.OpenStore(ctx, scansync.StoreConfig{Backend: "mongo"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mongo")

	_, err = scansync.OpenStore(ctx, scansync.StoreConfig{Backend: "memory", Classifier: "antivirus"})
	assert.True(t, errors.IsValidationError(err), "got %v", err)

	_, err = scansync.OpenStore(ctx, scansync.StoreConfig{
		Backend: "elastic",
		Elastic: elastic.Config{Addresses: []string{"http://127.0.0.1:1"}},
	})
	assert.Error(t, err)
}

func TestOpenStoreFailureReturnsNilInterface(t *testing.T) {
	ctx := context.Background()
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	store, err := scansync.OpenStore(ctx, scansync.StoreConfig{Backend: "bolt", Path: filepath.Join(blocker, "c.db")})
	require.Error(t, err)
	assert.True(t, store == nil, "failed open must not return a typed nil store")

	_, err = scansync.New(store)
	assert.True(t, errors.IsValidationError(err), "got %v", err)
}

func TestCloseReleasesBolt(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "c.db")
	store, err := scansync.OpenStore(ctx, scansync.StoreConfig{Backend: "bolt", Path: path})
	require.NoError(t, err)

	c, err := scansync.New(store)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	reopened, err := scansync.OpenStore(ctx, scansync.StoreConfig{Backend: "bolt", Path: path})
	require.NoError(t, err)
	defer reopened.(io.Closer).Close()

	cat, err := reopened.Load(ctx)
	require.NoError(t, err)
	assert.Zero(t, cat.Len())
}
