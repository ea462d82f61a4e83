// Package fingerprint computes the content hashes that identify ingested
// files. Manifest fingerprints are SHA-1 hex digests, so SHA-1 is the
// default; SHA-256 and BLAKE3 are available for catalogs fed by other
// manifest producers.
package fingerprint

import (
	"crypto/sha1" //nolint:gosec // manifest fingerprints are SHA-1
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/agentstation/scansync/pkg/constants"
	"github.com/agentstation/scansync/pkg/errors"
)

// Algorithm identifies a digest function.
type Algorithm uint8

const (
	// SHA1 is the manifest's native fingerprint.
	SHA1 Algorithm = iota
	SHA256
	BLAKE3
)

// String returns the canonical lowercase algorithm name.
func (a Algorithm) String() string {
	switch a {
	case SHA1:
		return "sha1"
	case SHA256:
		return "sha256"
	case BLAKE3:
		return "blake3"
	default:
		return fmt.Sprintf("unknown(%d)", a)
	}
}

// ParseAlgorithm maps a name to an Algorithm. The empty string selects SHA1.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sha1", "sha-1":
		return SHA1, nil
	case "sha256", "sha-256":
		return SHA256, nil
	case "blake3":
		return BLAKE3, nil
	default:
		return 0, errors.NewValidationError("algorithm", name, "unsupported fingerprint algorithm")
	}
}

func (a Algorithm) new() (hash.Hash, error) {
	switch a {
	case SHA1:
		return sha1.New(), nil //nolint:gosec
	case SHA256:
		return sha256.New(), nil
	case BLAKE3:
		return blake3.New(), nil
	default:
		return nil, errors.NewValidationError("algorithm", a.String(), "unsupported fingerprint algorithm")
	}
}

// Hasher streams byte sources through a digest.
type Hasher struct {
	algorithm Algorithm
	chunkSize int
}

// New returns a Hasher for the given algorithm.
func New(algorithm Algorithm) *Hasher {
	return &Hasher{algorithm: algorithm, chunkSize: constants.HashChunkSize}
}

// Default returns a SHA-1 Hasher.
func Default() *Hasher {
	return New(SHA1)
}

// Algorithm returns the digest function in use.
func (h *Hasher) Algorithm() Algorithm {
	return h.algorithm
}

// Sum reads r to EOF in fixed-size chunks and returns the lowercase hex
// digest. Read errors are returned unchanged.
func (h *Hasher) Sum(r io.Reader) (string, error) {
	d, err := h.algorithm.new()
	if err != nil {
		return "", err
	}
	buf := make([]byte, h.chunkSize)
	if _, err := io.CopyBuffer(d, onlyReader{r}, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(d.Sum(nil)), nil
}

// SumFile hashes the file at path.
func (h *Hasher) SumFile(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // path is a download target we own
	if err != nil {
		return "", errors.WrapIO("open", path, err)
	}
	defer func() { _ = f.Close() }()

	sum, err := h.Sum(f)
	if err != nil {
		return "", errors.WrapIO("read", path, err)
	}
	return sum, nil
}

// Equal reports whether two hex digests name the same content. Manifest
// producers are inconsistent about case.
func Equal(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// onlyReader hides WriterTo so io.CopyBuffer honours the chunk buffer.
type onlyReader struct {
	io.Reader
}
