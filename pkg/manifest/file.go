package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// File is a single downloadable entry of a study.
type File struct {
	// Name is the source URL of the file.
	Name string
	// Fingerprint is the hex content hash declared by the manifest.
	Fingerprint string
	// UpdatedAt is the "updated-at" date, usually YYYY-MM-DD, possibly empty.
	UpdatedAt string
	// Verified is set once the downloaded bytes matched Fingerprint.
	Verified bool
	// Extra keeps manifest keys scansync does not interpret (size, description, ...).
	Extra map[string]any

	// LocalPath is where the file was downloaded. Never serialized.
	LocalPath string
}

const (
	keyName        = "name"
	keyFingerprint = "fingerprint"
	keyUpdatedAt   = "updated-at"
	keyVerified    = "verified"
)

// Filename returns the final path segment of the file URL, which is also
// the on-disk name of the download and the search-index document id. It is
// "" when the URL ends in a slash, "." or "..", so such entries can never
// resolve outside the download directory.
func (f File) Filename() string {
	p := f.Name
	if u, err := url.Parse(f.Name); err == nil {
		p = u.Path
	}
	if p == "" || strings.HasSuffix(p, "/") {
		return ""
	}
	base := p[strings.LastIndex(p, "/")+1:]
	if base == "." || base == ".." || strings.ContainsRune(base, '\\') {
		return ""
	}
	return base
}

// Path returns the local download path when known, otherwise the filename.
func (f File) Path() string {
	if f.LocalPath != "" {
		return f.LocalPath
	}
	return f.Filename()
}

// DateKey returns the update time as a sortable integer (2020-01-02 becomes
// 20200102). Missing or unparseable dates are 0 so they sort as oldest.
func (f File) DateKey() int {
	if f.UpdatedAt == "" {
		return 0
	}
	n, err := strconv.Atoi(strings.ReplaceAll(f.UpdatedAt, "-", ""))
	if err != nil {
		return 0
	}
	return n
}

// MarshalJSON writes the known keys plus any preserved extras.
func (f File) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(f.Extra)+4)
	for k, v := range f.Extra {
		out[k] = v
	}
	out[keyName] = f.Name
	out[keyFingerprint] = f.Fingerprint
	if f.UpdatedAt != "" {
		out[keyUpdatedAt] = f.UpdatedAt
	}
	if f.Verified {
		out[keyVerified] = true
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the known keys and keeps the rest in Extra.
func (f *File) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	*f = File{}
	for k, v := range raw {
		switch k {
		case keyName:
			f.Name = stringValue(v)
		case keyFingerprint:
			f.Fingerprint = stringValue(v)
		case keyUpdatedAt:
			f.UpdatedAt = stringValue(v)
		case keyVerified:
			f.Verified, _ = v.(bool)
		default:
			if f.Extra == nil {
				f.Extra = make(map[string]any)
			}
			f.Extra[k] = v
		}
	}
	return nil
}

func stringValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}
