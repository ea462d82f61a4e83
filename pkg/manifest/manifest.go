// Package manifest defines the study manifest published by scans.io (and
// any server using the same JSON layout) together with the study and file
// records that the local catalogs persist.
//
// A manifest looks like:
//
//	{"studies": [{"uniqid": "sonar.ssl", "name": "...", "files": [
//	    {"name": "https://.../20200101_certs.gz", "fingerprint": "<sha1>", "updated-at": "2020-01-01"}
//	]}]}
//
// Study metadata is kept as an open map because only "uniqid" and "files"
// are interpreted; every other key is carried through to the catalog as-is.
package manifest

import (
	"encoding/json"
	"fmt"
)

// Key names interpreted from the manifest.
const (
	KeyStudyID = "uniqid"
	KeyFiles   = "files"
)

// Manifest is the remote, authoritative description of available studies.
type Manifest struct {
	Studies []Study `json:"studies"`
}

// Study returns the study with the given unique id.
func (m *Manifest) Study(id string) (*Study, bool) {
	if m == nil {
		return nil, false
	}
	for i := range m.Studies {
		if m.Studies[i].ID() == id {
			return &m.Studies[i], true
		}
	}
	return nil, false
}

// Metadata holds every study field except the file list.
type Metadata map[string]any

// ID returns the study's unique id, or "" when absent or not a string.
func (md Metadata) ID() string {
	id, _ := md[KeyStudyID].(string)
	return id
}

// Clone returns a shallow copy without any "files" key.
func (md Metadata) Clone() Metadata {
	out := make(Metadata, len(md))
	for k, v := range md {
		if k == KeyFiles {
			continue
		}
		out[k] = v
	}
	return out
}

// Study is a named group of related file entries sharing metadata.
type Study struct {
	Metadata Metadata
	Files    []File
}

// NewStudy creates a study with the given id and no files.
func NewStudy(id string) Study {
	return Study{Metadata: Metadata{KeyStudyID: id}, Files: []File{}}
}

// ID returns the study's unique id.
func (s Study) ID() string {
	return s.Metadata.ID()
}

// Header returns the study metadata with the file list stripped, the
// shape catalogs receive on every write.
func (s Study) Header() Metadata {
	return s.Metadata.Clone()
}

// MarshalJSON flattens metadata and files into one object.
func (s Study) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Metadata)+1)
	for k, v := range s.Metadata {
		out[k] = v
	}
	files := s.Files
	if files == nil {
		files = []File{}
	}
	out[KeyFiles] = files
	return json.Marshal(out)
}

// UnmarshalJSON splits a flat study object into metadata and files.
func (s *Study) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	s.Metadata = make(Metadata, len(raw))
	s.Files = []File{}
	for k, v := range raw {
		if k == KeyFiles {
			if err := json.Unmarshal(v, &s.Files); err != nil {
				return fmt.Errorf("decoding files: %w", err)
			}
			if s.Files == nil {
				s.Files = []File{}
			}
			continue
		}
		var value any
		if err := json.Unmarshal(v, &value); err != nil {
			return fmt.Errorf("decoding %q: %w", k, err)
		}
		s.Metadata[k] = value
	}
	return nil
}
