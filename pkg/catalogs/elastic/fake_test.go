package elastic_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/agentstation/scansync/pkg/catalogs/elastic"
)

// fakeCluster is just enough of the Elasticsearch REST API for the store:
// index existence and creation, document PUT, and term/match_all search
// ordered by id with search_after paging.
type fakeCluster struct {
	mu       sync.Mutex
	indices  map[string]map[string]elastic.Document
	mappings map[string]string
	requests []string
	failAll  bool
}

func newFakeCluster(t *testing.T) (*fakeCluster, *httptest.Server) {
	t.Helper()
	fc := &fakeCluster{
		indices:  map[string]map[string]elastic.Document{},
		mappings: map[string]string{},
	}
	srv := httptest.NewServer(fc)
	t.Cleanup(srv.Close)
	return fc, srv
}

func (fc *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	fc.requests = append(fc.requests, r.Method+" "+r.URL.Path)
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	if fc.failAll {
		writeError(w, http.StatusInternalServerError, "internal_error", "boom")
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	index := parts[0]
	docs, exists := fc.indices[index]

	switch {
	case len(parts) == 1 && r.Method == http.MethodHead:
		if !exists {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)

	case len(parts) == 1 && r.Method == http.MethodPut:
		if exists {
			writeError(w, http.StatusBadRequest, "resource_already_exists_exception", "index ["+index+"] already exists")
			return
		}
		body, _ := io.ReadAll(r.Body)
		fc.indices[index] = map[string]elastic.Document{}
		fc.mappings[index] = string(body)
		_, _ = w.Write([]byte(`{"acknowledged":true,"index":"` + index + `"}`))

	case len(parts) == 3 && parts[1] == "_doc":
		var doc elastic.Document
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			writeError(w, http.StatusBadRequest, "mapper_parsing_exception", err.Error())
			return
		}
		if !exists {
			docs = map[string]elastic.Document{}
			fc.indices[index] = docs
		}
		docs[parts[2]] = doc
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"_index":"` + index + `","_id":"` + parts[2] + `","result":"created"}`))

	case len(parts) == 2 && parts[1] == "_search":
		if !exists {
			writeError(w, http.StatusNotFound, "index_not_found_exception", "no such index ["+index+"]")
			return
		}
		fc.search(w, r, docs)

	default:
		writeError(w, http.StatusBadRequest, "unsupported", r.Method+" "+r.URL.Path)
	}
}

func (fc *fakeCluster) search(w http.ResponseWriter, r *http.Request, docs map[string]elastic.Document) {
	var req struct {
		Query struct {
			Term map[string]string `json:"term"`
		} `json:"query"`
		SearchAfter []string `json:"search_after"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	size := 10
	if s := r.URL.Query().Get("size"); s != "" {
		size, _ = strconv.Atoi(s)
	}

	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	type hit struct {
		ID     string           `json:"_id"`
		Source elastic.Document `json:"_source"`
	}
	hits := []hit{}
	matched := 0
	for _, id := range ids {
		if want, ok := req.Query.Term["sha1"]; ok && docs[id].SHA1 != want {
			continue
		}
		if len(req.SearchAfter) > 0 && id <= req.SearchAfter[0] {
			continue
		}
		matched++
		if len(hits) < size {
			hits = append(hits, hit{ID: id, Source: docs[id]})
		}
	}

	resp := map[string]any{
		"hits": map[string]any{
			"total": map[string]any{"value": matched, "relation": "eq"},
			"hits":  hits,
		},
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (fc *fakeCluster) document(index, id string) (elastic.Document, bool) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	doc, ok := fc.indices[index][id]
	return doc, ok
}

func (fc *fakeCluster) requestLog() []string {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return append([]string(nil), fc.requests...)
}

func (fc *fakeCluster) mapping(index string) string {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.mappings[index]
}

func (fc *fakeCluster) fail() {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.failAll = true
}

func writeError(w http.ResponseWriter, status int, kind, reason string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":  map[string]any{"type": kind, "reason": reason},
		"status": status,
	})
}
