package reconciler_test

import (
	"context"
	"crypto/sha1" //nolint:gosec
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentstation/scansync/internal/transport"
	"github.com/agentstation/scansync/pkg/manifest"
	"github.com/agentstation/scansync/pkg/reconciler"
)

// entry is one file served by a scansServer.
type entry struct {
	path      string
	body      string
	updatedAt string
	// fingerprint overrides the declared fingerprint; empty means the
	// correct SHA-1 of body.
	fingerprint string
}

// scansServer serves a manifest at /json and the study files it lists.
type scansServer struct {
	t       *testing.T
	srv     *httptest.Server
	mu      sync.Mutex
	studies map[string][]entry
	hits    map[string]int
	status  int
}

func newScansServer(t *testing.T) *scansServer {
	t.Helper()
	s := &scansServer{t: t, studies: map[string][]entry{}, hits: map[string]int{}}
	s.srv = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *scansServer) addStudy(id string, entries ...entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.studies[id] = entries
}

func (s *scansServer) failManifest(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

func (s *scansServer) manifestURL() string { return s.srv.URL + "/json" }

func (s *scansServer) url(path string) string { return s.srv.URL + "/data/" + path }

// fileHits returns how many times any study file was requested.
func (s *scansServer) fileHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for path, c := range s.hits {
		if path != "/json" {
			n += c
		}
	}
	return n
}

func (s *scansServer) hitsFor(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits["/data/"+path]
}

func (s *scansServer) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hits[r.URL.Path]++

	if r.URL.Path == "/json" {
		if s.status != 0 {
			http.Error(w, "unavailable", s.status)
			return
		}
		m := manifest.Manifest{}
		for id, entries := range s.studies {
			study := manifest.NewStudy(id)
			study.Metadata["name"] = "Study " + id
			for _, e := range entries {
				fp := e.fingerprint
				if fp == "" {
					fp = sha1Hex(e.body)
				}
				study.Files = append(study.Files, manifest.File{
					Name:        s.srv.URL + "/data/" + e.path,
					Fingerprint: fp,
					UpdatedAt:   e.updatedAt,
				})
			}
			m.Studies = append(m.Studies, study)
		}
		_ = json.NewEncoder(w).Encode(m)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/data/")
	for _, entries := range s.studies {
		for _, e := range entries {
			if e.path == path {
				_, _ = io.WriteString(w, e.body)
				return
			}
		}
	}
	http.NotFound(w, r)
}

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

func newEngine(t *testing.T, s *scansServer, dir string, opts ...reconciler.Option) *reconciler.Engine {
	t.Helper()
	opts = append([]reconciler.Option{
		reconciler.WithManifestURL(s.manifestURL()),
		reconciler.WithDownloadDir(dir),
	}, opts...)
	e, err := reconciler.New(opts...)
	require.NoError(t, err)
	return e
}

// recorder is an Observer that remembers events as "kind:filename".
type recorder struct {
	events []string
}

func (r *recorder) FileIngested(_ context.Context, _ string, f manifest.File) {
	r.events = append(r.events, "ingested:"+f.Filename())
}

func (r *recorder) FileSkipped(_ context.Context, _ string, f manifest.File) {
	r.events = append(r.events, "skipped:"+f.Filename())
}

func (r *recorder) IntegrityFailed(_ context.Context, _ string, f manifest.File, _ string) {
	r.events = append(r.events, "integrity:"+f.Filename())
}

func (r *recorder) FileRejected(_ context.Context, _ string, f manifest.File) {
	r.events = append(r.events, "rejected:"+f.Filename())
}

// brokenFetcher serves the manifest normally but fails every download
// after writing a few bytes.
type brokenFetcher struct {
	*transport.Client
	err error
}

func (b brokenFetcher) FetchToSink(_ context.Context, _ string, w io.Writer) (int64, error) {
	n, _ := io.WriteString(w, "partial")
	return int64(n), b.err
}
