// Package catalogs defines the local record of ingested study files and the
// Store interface its backends implement.
//
// A Store answers one question for the reconciler (has a file with this
// fingerprint been ingested?) and records verified files. Backends live in
// sub-packages:
//
//   - files: a single JSON document on disk
//   - elastic: one Elasticsearch document per file
//   - bolt: an embedded bbolt database with a fingerprint index
//   - memory: a process-local catalog
package catalogs

import (
	"encoding/json"

	"github.com/agentstation/scansync/pkg/fingerprint"
	"github.com/agentstation/scansync/pkg/manifest"
)

// Catalog is the local record of ingested files, grouped by study. Its JSON
// form mirrors the remote manifest: {"studies": [...]}.
type Catalog struct {
	Studies []manifest.Study `json:"studies"`
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{Studies: []manifest.Study{}}
}

// Contains reports whether any study holds a file with the given
// fingerprint.
func (c *Catalog) Contains(fp string) bool {
	if c == nil {
		return false
	}
	for _, study := range c.Studies {
		for _, f := range study.Files {
			if fingerprint.Equal(f.Fingerprint, fp) {
				return true
			}
		}
	}
	return false
}

// Study returns the study record with the given id.
func (c *Catalog) Study(id string) (*manifest.Study, bool) {
	if c == nil {
		return nil, false
	}
	for i := range c.Studies {
		if c.Studies[i].ID() == id {
			return &c.Studies[i], true
		}
	}
	return nil, false
}

// Append records file under the study named by metadata, creating the
// study from metadata when it is not yet present. An existing study keeps
// its original metadata.
func (c *Catalog) Append(metadata manifest.Metadata, file manifest.File) {
	if study, ok := c.Study(metadata.ID()); ok {
		study.Files = append(study.Files, file)
		return
	}
	c.Studies = append(c.Studies, manifest.Study{
		Metadata: metadata.Clone(),
		Files:    []manifest.File{file},
	})
}

// Len returns the number of recorded files across all studies.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, study := range c.Studies {
		n += len(study.Files)
	}
	return n
}

// MarshalJSON never emits a null study list.
func (c Catalog) MarshalJSON() ([]byte, error) {
	type plain Catalog
	if c.Studies == nil {
		c.Studies = []manifest.Study{}
	}
	return json.Marshal(plain(c))
}
