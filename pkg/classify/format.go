package classify

import (
	"bytes"
	"compress/bzip2"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/agentstation/scansync/pkg/constants"
	"github.com/agentstation/scansync/pkg/errors"
)

// Format is a container format recognized by its leading magic bytes.
type Format uint8

const (
	// FormatRaw is anything without a recognized magic number.
	FormatRaw Format = iota
	FormatGzip
	FormatZstd
	FormatLZ4
	FormatBzip2
)

var (
	magicGzip  = []byte{0x1f, 0x8b}
	magicZstd  = []byte{0x28, 0xb5, 0x2f, 0xfd}
	magicLZ4   = []byte{0x04, 0x22, 0x4d, 0x18}
	magicBzip2 = []byte("BZh")
)

func (f Format) String() string {
	switch f {
	case FormatRaw:
		return "raw"
	case FormatGzip:
		return "gzip"
	case FormatZstd:
		return "zstd"
	case FormatLZ4:
		return "lz4"
	case FormatBzip2:
		return "bzip2"
	default:
		return fmt.Sprintf("unknown(%d)", f)
	}
}

// ParseFormat maps a format name to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "raw", "none":
		return FormatRaw, nil
	case "gzip", "gz":
		return FormatGzip, nil
	case "zstd", "zst":
		return FormatZstd, nil
	case "lz4":
		return FormatLZ4, nil
	case "bzip2", "bz2":
		return FormatBzip2, nil
	default:
		return 0, errors.NewValidationError("format", name, "unknown archive format")
	}
}

// FormatForName infers the format a filename claims through its extension.
// The second result is false when the extension says nothing.
func FormatForName(name string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".gz", ".tgz":
		return FormatGzip, true
	case ".zst", ".zstd":
		return FormatZstd, true
	case ".lz4":
		return FormatLZ4, true
	case ".bz2", ".tbz2":
		return FormatBzip2, true
	default:
		return FormatRaw, false
	}
}

// Sniff identifies the format from the first bytes of a stream.
func Sniff(header []byte) Format {
	switch {
	case bytes.HasPrefix(header, magicGzip):
		return FormatGzip
	case bytes.HasPrefix(header, magicZstd):
		return FormatZstd
	case bytes.HasPrefix(header, magicLZ4):
		return FormatLZ4
	case bytes.HasPrefix(header, magicBzip2):
		return FormatBzip2
	default:
		return FormatRaw
	}
}

// SniffFile reads the head of the file at path and identifies its format.
func SniffFile(path string) (Format, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return FormatRaw, errors.WrapIO("open", path, err)
	}
	defer func() { _ = f.Close() }()

	header := make([]byte, constants.SniffSize)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return FormatRaw, errors.WrapIO("read", path, err)
	}
	return Sniff(header[:n]), nil
}

// NewReader wraps r in a decoder for format. The returned closer releases
// decoder resources and never closes r.
func NewReader(format Format, r io.Reader) (io.ReadCloser, error) {
	switch format {
	case FormatRaw:
		return io.NopCloser(r), nil
	case FormatGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip header: %w", err)
		}
		return zr, nil
	case FormatZstd:
		zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("zstd header: %w", err)
		}
		return zr.IOReadCloser(), nil
	case FormatLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	case FormatBzip2:
		return io.NopCloser(bzip2.NewReader(r)), nil
	default:
		return nil, errors.NewValidationError("format", format.String(), "unsupported archive format")
	}
}

// Probe decodes up to limit bytes of the file at path as format. It
// returns nil when the decoded prefix is well formed; a stream shorter
// than limit must decode to its end. A limit <= 0 decodes everything.
func Probe(path string, format Format, limit int64) error {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return errors.WrapIO("open", path, err)
	}
	defer func() { _ = f.Close() }()

	dec, err := NewReader(format, f)
	if err != nil {
		return err
	}
	defer func() { _ = dec.Close() }()

	var src io.Reader = dec
	if limit > 0 {
		src = io.LimitReader(dec, limit)
	}
	if _, err := io.Copy(io.Discard, src); err != nil {
		return fmt.Errorf("%s decode: %w", format, err)
	}
	return nil
}
