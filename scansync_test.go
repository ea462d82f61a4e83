package scansync_test

import (
	"context"
	"crypto/sha1" //nolint:gosec
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/scansync"
	"github.com/agentstation/scansync/pkg/catalogs/memory"
	"github.com/agentstation/scansync/pkg/errors"
	"github.com/agentstation/scansync/pkg/logging"
	"github.com/agentstation/scansync/pkg/manifest"
	"github.com/agentstation/scansync/pkg/reconciler"
	"github.com/agentstation/scansync/pkg/selection"
)

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// newServer serves a one-study manifest. bodies maps file names such as
// "1.gz" to content; "bad.gz" is the newest file and declares a wrong
// fingerprint.
func newServer(t *testing.T, bodies map[string]string) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/json" {
			files := []map[string]any{}
			for name, body := range bodies {
				fp, date := sha1Hex(body), "2020-01-0"+name[:1]
				if name == "bad.gz" {
					fp, date = sha1Hex("something else"), "2020-02-01"
				}
				files = append(files, map[string]any{
					"name":        srv.URL + "/data/" + name,
					"fingerprint": fp,
					"updated-at":  date,
				})
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"studies": []map[string]any{{"uniqid": "sonar.ssl", "name": "SSL", "files": files}},
			})
			return
		}
		body, ok := bodies[filepath.Base(r.URL.Path)]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, srv *httptest.Server, opts ...scansync.Option) scansync.Client {
	t.Helper()
	store, err := memory.New()
	require.NoError(t, err)
	opts = append([]scansync.Option{
		scansync.WithManifestURL(srv.URL + "/json"),
		scansync.WithDownloadDir(t.TempDir()),
	}, opts...)
	c, err := scansync.New(store, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNewValidation(t *testing.T) {
	_, err := scansync.New(nil)
	assert.True(t, errors.IsValidationError(err))

	store, err := memory.New()
	require.NoError(t, err)

	tests := []struct {
		name string
		opt  scansync.Option
	}{
		{"empty manifest url", scansync.WithManifestURL("")},
		{"empty download dir", scansync.WithDownloadDir("")},
		{"unknown algorithm", scansync.WithAlgorithm("md5")},
		{"short watch interval", scansync.WithWatchInterval(time.Millisecond)},
		{"unknown auth", scansync.WithAuth("kerberos", "x")},
		{"nil fetcher", scansync.WithFetcher(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := scansync.New(store, tt.opt)
			assert.True(t, errors.IsValidationError(err), "got %v", err)
		})
	}
}

func TestReconcileAndCatalog(t *testing.T) {
	srv := newServer(t, map[string]string{"1.gz": "one", "2.gz": "two"})
	c := newClient(t, srv, scansync.WithUserAgent("scansync-test"), scansync.WithTimeouts(5*time.Second, 5*time.Second))
	ctx := context.Background()

	studies, err := c.Studies(ctx)
	require.NoError(t, err)
	require.Len(t, studies, 1)
	assert.Equal(t, "sonar.ssl", studies[0].ID())

	result, err := c.Reconcile(ctx, "sonar.ssl", selection.All)
	require.NoError(t, err)
	assert.Len(t, result.Downloaded, 2)
	assert.True(t, result.HasChanges())

	ok, err := c.Contains(ctx, sha1Hex("one"))
	require.NoError(t, err)
	assert.True(t, ok)

	cat, err := c.Catalog(ctx)
	require.NoError(t, err)
	study, found := cat.Study("sonar.ssl")
	require.True(t, found)
	assert.Len(t, study.Files, 2)
	assert.Equal(t, "SSL", study.Metadata["name"])

	again, err := c.Reconcile(ctx, "sonar.ssl", selection.All)
	require.NoError(t, err)
	assert.False(t, again.HasChanges())
	assert.Len(t, again.Skipped, 2)
}

func TestDownloadLatest(t *testing.T) {
	srv := newServer(t, map[string]string{"1.gz": "one", "2.gz": "two"})
	c := newClient(t, srv)

	name, err := c.DownloadLatest(context.Background(), "sonar.ssl")
	require.NoError(t, err)
	assert.Equal(t, "2.gz", name)

	name, err = c.DownloadLatest(context.Background(), "sonar.ssl")
	require.NoError(t, err)
	assert.Empty(t, name)
}

func TestHooks(t *testing.T) {
	srv := newServer(t, map[string]string{"1.gz": "one", "bad.gz": "corrupt"})
	c := newClient(t, srv)

	var mu sync.Mutex
	var ingested, skipped []string
	var observed string
	c.OnFileIngested(func(studyID string, f manifest.File) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, "sonar.ssl", studyID)
		assert.True(t, f.Verified)
		ingested = append(ingested, f.Filename())
	})
	c.OnFileSkipped(func(_ string, f manifest.File) {
		mu.Lock()
		defer mu.Unlock()
		skipped = append(skipped, f.Filename())
	})
	c.OnIntegrityFailed(func(_ string, f manifest.File, got string) {
		mu.Lock()
		defer mu.Unlock()
		observed = got
	})

	_, err := c.Reconcile(context.Background(), "sonar.ssl", selection.Policy{Count: 1})
	require.NoError(t, err)

	_, err = c.Reconcile(context.Background(), "sonar.ssl", selection.All)
	require.Error(t, err)
	assert.True(t, errors.IsIntegrityMismatch(err))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"1.gz"}, ingested)
	assert.Equal(t, []string{"1.gz"}, skipped)
	assert.Equal(t, sha1Hex("corrupt"), observed)
}

func TestWatch(t *testing.T) {
	logging.DisableLoggingForTest(t)
	srv := newServer(t, map[string]string{"1.gz": "one"})
	c := newClient(t, srv, scansync.WithWatchInterval(time.Hour))

	results := make(chan *reconciler.Result, 4)
	err := c.WatchOn(context.Background(), "sonar.ssl", selection.All, func(r *reconciler.Result, err error) {
		if err == nil {
			results <- r
		}
	})
	require.NoError(t, err)

	select {
	case r := <-results:
		assert.Equal(t, []string{"1.gz"}, r.Downloaded)
	case <-time.After(10 * time.Second):
		t.Fatal("watch did not run an initial reconciliation")
	}

	require.NoError(t, c.WatchOff())
	require.NoError(t, c.WatchOff())
}
