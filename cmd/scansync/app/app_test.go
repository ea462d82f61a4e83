package app

import (
	"bytes"
	"context"
	"crypto/sha1" //nolint:gosec
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/scansync/pkg/errors"
	"github.com/agentstation/scansync/pkg/logging"
)

var studyFiles = map[string]string{
	"20200101_certs.gz": "first",
	"20200201_certs.gz": "second",
}

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// newScansServer serves sonar.ssl with the files in studyFiles.
func newScansServer(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/json" {
			files := []map[string]any{}
			for name, body := range studyFiles {
				files = append(files, map[string]any{
					"name":        srv.URL + "/data/" + name,
					"fingerprint": sha1Hex(body),
					"updated-at":  name[:4] + "-" + name[4:6] + "-" + name[6:8],
				})
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"studies": []map[string]any{{"uniqid": "sonar.ssl", "name": "SSL Certificates", "files": files}},
			})
			return
		}
		body, ok := studyFiles[filepath.Base(r.URL.Path)]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// isolate keeps the developer's config and env files out of the test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
}

type env struct {
	srv     *httptest.Server
	dir     string
	catalog string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	isolate(t)
	dir := t.TempDir()
	return &env{srv: newScansServer(t), dir: dir, catalog: filepath.Join(dir, "local_catalog.json")}
}

// run executes one CLI invocation against the test server with a fresh App.
func (e *env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	a, err := New("1.2.3", "abc123", "2026-01-01", "test", WithOutput(&out), WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)
	defer func() { _ = a.Shutdown(context.Background()) }()

	args = append(args,
		"--manifest-url", e.srv.URL+"/json",
		"--download-dir", e.dir,
		"--catalog", e.catalog,
		"--log-level", "error",
	)
	err = a.Execute(context.Background(), args)
	return out.String(), err
}

func TestApp_New(t *testing.T) {
	isolate(t)
	app, err := New("1.0.0", "abc123", "2024-01-01", "test")
	require.NoError(t, err)

	assert.Equal(t, "1.0.0", app.Version())
	assert.Equal(t, "abc123", app.Commit())
	assert.Equal(t, "2024-01-01", app.Date())
	assert.Equal(t, "test", app.BuiltBy())
	assert.NotNil(t, app.Logger())
	require.NotNil(t, app.Config())
	assert.Equal(t, 24*time.Hour, app.WatchInterval())
}

func TestExecute_Version(t *testing.T) {
	e := newEnv(t)
	out, err := e.run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "scansync version 1.2.3")
	assert.Contains(t, out, "commit: abc123")
}

func TestExecute_InvalidFormat(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "studies", "-o", "xml")
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestExecute_Studies(t *testing.T) {
	e := newEnv(t)
	out, err := e.run(t, "studies", "-o", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "sonar.ssl")
	assert.Contains(t, out, "2020-02-01")
}

func TestExecute_ReconcileThenCatalog(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "reconcile", "sonar.ssl", "-o", "json")
	require.NoError(t, err)

	var result struct {
		StudyID    string   `json:"study_id"`
		Downloaded []string `json:"downloaded"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "sonar.ssl", result.StudyID)
	assert.Equal(t, []string{"20200101_certs.gz", "20200201_certs.gz"}, result.Downloaded)
	assert.FileExists(t, filepath.Join(e.dir, "20200201_certs.gz"))
	assert.FileExists(t, e.catalog)

	out, err = e.run(t, "reconcile", "sonar.ssl", "-o", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "No changes.")

	out, err = e.run(t, "catalog", "contains", strings.ToUpper(sha1Hex("second")), "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"fingerprint":"`+strings.ToUpper(sha1Hex("second"))+`","present":true}`, out)

	out, err = e.run(t, "catalog", "contains", sha1Hex("missing"), "-o", "table")
	require.NoError(t, err)
	assert.Contains(t, out, sha1Hex("missing"))
	assert.Contains(t, out, "false")

	out, err = e.run(t, "catalog", "list", "sonar.ssl", "-o", "json")
	require.NoError(t, err)
	var study map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &study))
	assert.Equal(t, "SSL Certificates", study["name"])
	assert.Len(t, study["files"], 2)

	_, err = e.run(t, "catalog", "list", "sonar.http", "-o", "json")
	assert.True(t, errors.IsNotFound(err))
}

func TestExecute_ReconcileNewest(t *testing.T) {
	e := newEnv(t)
	out, err := e.run(t, "reconcile", "sonar.ssl", "-n", "-1", "-o", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "1 selected, 1 ingested")
	assert.NoFileExists(t, filepath.Join(e.dir, "20200101_certs.gz"))
}

func TestExecute_ReconcileMissingStudy(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "reconcile", "sonar.missing", "-o", "json")
	assert.True(t, errors.IsNotFound(err))
}

func TestExecute_Latest(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "latest", "sonar.ssl", "-o", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "20200201_certs.gz")
	assert.Contains(t, out, "sonar.ssl")

	out, err = e.run(t, "latest", "sonar.ssl", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"study":"sonar.ssl","file":""}`, out)
}

func TestExecute_BoltBackend(t *testing.T) {
	e := newEnv(t)
	e.catalog = filepath.Join(e.dir, "catalog.db")

	_, err := e.run(t, "reconcile", "sonar.ssl", "-b", "bolt", "-o", "json")
	require.NoError(t, err)

	out, err := e.run(t, "catalog", "contains", sha1Hex("first"), "-b", "bolt", "-o", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "true")
}

func TestExecute_Watch(t *testing.T) {
	e := newEnv(t)

	a, err := New("dev", "", "", "", WithOutput(&bytes.Buffer{}), WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- a.Execute(ctx, []string{
			"watch", "sonar.ssl",
			"--manifest-url", e.srv.URL + "/json",
			"--download-dir", e.dir,
			"--catalog", e.catalog,
			"--watch-interval", "1h",
			"--log-level", "error",
		})
	}()

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(e.catalog)
		return err == nil && strings.Contains(string(data), "20200201_certs.gz")
	}, 10*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("watch did not stop after cancellation")
	}
	require.NoError(t, a.Shutdown(context.Background()))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.NewNotFoundError("study", "sonar.udp")))
	assert.Equal(t, ExitCodeInterrupted, ExitCode(fmt.Errorf("reconcile: %w", context.Canceled)))
	assert.Equal(t, ExitCodeInterrupted, ExitCode(errors.ErrCanceled))
}
