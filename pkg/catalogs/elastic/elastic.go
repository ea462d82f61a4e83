// Package elastic records ingested files in an Elasticsearch index, one
// document per file keyed by its filename:
//
//	PUT /scansio-imported/_doc/20200101_certs.gz
//	{"study": "sonar-ssl", "file": "20200101_certs.gz", "imported_date": "...", "sha1": "..."}
//
// Dots in study ids become dashes in the "study" field.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/agentstation/utc"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/agentstation/scansync/pkg/catalogs"
	"github.com/agentstation/scansync/pkg/constants"
	"github.com/agentstation/scansync/pkg/errors"
	"github.com/agentstation/scansync/pkg/logging"
	"github.com/agentstation/scansync/pkg/manifest"
)

// Config selects the cluster and index.
type Config struct {
	Addresses []string
	Index     string
	Username  string
	Password  string
	APIKey    string
	Timeout   time.Duration

	// PageSize bounds each search request while loading; zero uses
	// constants.MaxIndexDocuments.
	PageSize int

	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

// Document is the indexed record of one ingested file.
type Document struct {
	Study        string `json:"study"`
	File         string `json:"file"`
	ImportedDate string `json:"imported_date"`
	SHA1         string `json:"sha1"`
}

// Store is an Elasticsearch-backed catalog.
type Store struct {
	client  *elasticsearch.Client
	index   string
	timeout  time.Duration
	pageSize int
	options  *catalogs.Options
	now      func() utc.Time
}

// New connects a store to the cluster described by cfg. No request is
// made until the first operation.
func New(cfg Config, opts ...catalogs.Option) (*Store, error) {
	options, err := catalogs.NewOptions(opts...)
	if err != nil {
		return nil, fmt.Errorf("applying elastic option: %w", err)
	}

	if len(cfg.Addresses) == 0 {
		cfg.Addresses = []string{constants.DefaultElasticsearchURL}
	}
	if cfg.Index == "" {
		cfg.Index = constants.DefaultIndex
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = constants.IndexTimeout
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = constants.MaxIndexDocuments
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		APIKey:    cfg.APIKey,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, errors.NewConfigError("elastic", "invalid client configuration", err)
	}

	return &Store{
		client:   client,
		index:    cfg.Index,
		timeout:  cfg.Timeout,
		pageSize: cfg.PageSize,
		options:  options,
		now:      utc.Now,
	}, nil
}

// Index returns the index name.
func (s *Store) Index() string { return s.index }

// Backend implements catalogs.Named.
func (s *Store) Backend() string { return "elastic" }

// StudyKey converts a study id to the form stored in documents.
func StudyKey(studyID string) string {
	return strings.ReplaceAll(studyID, ".", "-")
}

// EnsureIndex creates the index with keyword mappings when it is missing.
func (s *Store) EnsureIndex(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.client.Indices.Exists([]string{s.index}, s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return errors.WrapResource("query", "index", s.index, err)
	}
	drain(res)
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = s.client.Indices.Create(s.index,
		s.client.Indices.Create.WithContext(ctx),
		s.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		return errors.WrapResource("create", "index", s.index, err)
	}
	defer drain(res)

	if res.IsError() {
		reason := errorReason(res)
		// Lost a creation race with another process.
		if strings.Contains(reason, "resource_already_exists_exception") {
			return nil
		}
		return &errors.ResourceError{Operation: "create", Resource: "index", ID: s.index, Message: reason}
	}

	logging.FromContext(ctx).Info().Str("index", s.index).Msg("Created catalog index")
	return nil
}

const indexMapping = `{
  "mappings": {
    "properties": {
      "study":         {"type": "keyword"},
      "file":          {"type": "keyword"},
      "sha1":          {"type": "keyword"},
      "imported_date": {"type": "date"}
    }
  }
}`

// Load implements catalogs.Store. Studies are rebuilt from documents; their
// metadata holds only the stored study key. A missing index loads empty.
// Documents are read in pages ordered by file, resuming with search_after.
func (s *Store) Load(ctx context.Context) (*catalogs.Catalog, error) {
	var (
		docs  []Document
		after []any
	)
	for {
		request := map[string]any{
			"query": map[string]any{"match_all": map[string]any{}},
			"sort":  []any{map[string]any{"file": "asc"}},
		}
		if after != nil {
			request["search_after"] = after
		}
		page, err := s.search(ctx, request, s.pageSize)
		if err != nil {
			return nil, err
		}
		docs = append(docs, page...)
		if len(page) < s.pageSize {
			break
		}
		after = []any{page[len(page)-1].File}
	}

	cat := catalogs.New()
	for _, doc := range docs {
		cat.Append(manifest.Metadata{manifest.KeyStudyID: doc.Study}, manifest.File{
			Name:        doc.File,
			Fingerprint: doc.SHA1,
			Verified:    true,
			Extra:       map[string]any{"imported_date": doc.ImportedDate},
		})
	}
	return cat, nil
}

// Contains implements catalogs.Store with a term query on sha1.
func (s *Store) Contains(ctx context.Context, fingerprint string) (bool, error) {
	docs, err := s.search(ctx, map[string]any{
		"query": map[string]any{"term": map[string]any{"sha1": normalize(fingerprint)}},
	}, 1)
	if err != nil {
		return false, err
	}
	return len(docs) > 0, nil
}

// Write implements catalogs.Store. Re-indexing the same filename replaces
// the document, so retries are idempotent.
func (s *Store) Write(ctx context.Context, metadata manifest.Metadata, file manifest.File) (bool, error) {
	if !s.options.Accept(ctx, file) {
		return false, nil
	}

	doc := Document{
		Study:        StudyKey(metadata.ID()),
		File:         file.Filename(),
		ImportedDate: s.now().Time.UTC().Format(time.RFC3339),
		SHA1:         normalize(file.Fingerprint),
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.client.Index(s.index, bytes.NewReader(body),
		s.client.Index.WithContext(ctx),
		s.client.Index.WithDocumentID(doc.File),
		s.client.Index.WithRefresh("true"),
	)
	if err != nil {
		return false, errors.WrapResource("index", "index", s.index, err)
	}
	defer drain(res)

	if res.IsError() {
		return false, &errors.ResourceError{
			Operation: "index",
			Resource:  "index",
			ID:        s.index + "/" + doc.File,
			Message:   errorReason(res),
		}
	}

	logging.FromContext(ctx).Debug().
		Str("index", s.index).
		Str("study", doc.Study).
		Str("file", doc.File).
		Msg("Indexed file")
	return true, nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string   `json:"_id"`
			Source Document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (s *Store) search(ctx context.Context, request map[string]any, size int) ([]Document, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(body)),
		s.client.Search.WithSize(size),
	)
	if err != nil {
		return nil, errors.WrapResource("query", "index", s.index, err)
	}
	defer drain(res)

	if res.StatusCode == http.StatusNotFound {
		logging.FromContext(ctx).Debug().Str("index", s.index).Msg("Catalog index does not exist yet")
		return nil, nil
	}
	if res.IsError() {
		return nil, &errors.ResourceError{Operation: "query", Resource: "index", ID: s.index, Message: errorReason(res)}
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, errors.WrapParse("json", s.index+"/_search", err)
	}

	docs := make([]Document, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		doc := hit.Source
		if doc.File == "" {
			doc.File = hit.ID
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func errorReason(res *esapi.Response) string {
	var e struct {
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	if err := json.NewDecoder(res.Body).Decode(&e); err != nil || e.Error.Type == "" {
		return res.Status()
	}
	return e.Error.Type + ": " + e.Error.Reason
}

func drain(res *esapi.Response) {
	if res != nil && res.Body != nil {
		_, _ = io.Copy(io.Discard, res.Body)
		_ = res.Body.Close()
	}
}

func normalize(fp string) string {
	return strings.ToLower(strings.TrimSpace(fp))
}
