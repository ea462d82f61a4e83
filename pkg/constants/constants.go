// Package constants provides shared constants used throughout the scansync codebase.
// This includes timeouts, file permissions, buffer sizes and the well-known
// defaults for the scans.io manifest and the local catalog backends.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the standard timeout for manifest requests
	DefaultHTTPTimeout = 30 * time.Second

	// DownloadTimeout bounds a single file download; study files run to many gigabytes
	DownloadTimeout = 6 * time.Hour

	// DialTimeout is the timeout for establishing network connections
	DialTimeout = 10 * time.Second

	// IndexTimeout is the default timeout for search-index requests
	IndexTimeout = 30 * time.Second

	// LockTimeout is how long a catalog open waits for another process's lock
	LockTimeout = 5 * time.Second

	// ShutdownTimeout is the grace period given to cleanup after an error
	ShutdownTimeout = 5 * time.Second

	// DefaultWatchInterval is how often watch mode re-reconciles a study
	DefaultWatchInterval = 24 * time.Hour

	// MinWatchInterval keeps watch mode from hammering the manifest server
	MinWatchInterval = time.Second
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644

	// SecureFilePermissions is for database files (rw-------)
	SecureFilePermissions = 0600
)

// Buffer and limit constants
const (
	// HashChunkSize is the read size used when fingerprinting a stream
	HashChunkSize = 8192

	// SniffSize is how many bytes are read to identify a file's container format
	SniffSize = 16

	// ClassifyProbeSize is how many decoded bytes a classifier reads to prove an archive decodes
	ClassifyProbeSize = 64 * 1024

	// MaxIndexDocuments is the largest page requested from the search index
	MaxIndexDocuments = 10000
)

// Default values
const (
	// DefaultManifestURL is the scans.io study manifest
	DefaultManifestURL = "https://scans.io/json"

	// DefaultCatalogFile is the flat-file catalog name
	DefaultCatalogFile = "local_catalog.json"

	// DefaultBoltFile is the bolt catalog database name
	DefaultBoltFile = "local_catalog.db"

	// DefaultIndex is the search index that records imported files
	DefaultIndex = "scansio-imported"

	// DefaultElasticsearchURL is the address used when none is configured
	DefaultElasticsearchURL = "http://localhost:9200"

	// DefaultUserAgent identifies scansync to manifest and file servers
	DefaultUserAgent = "scansync"
)

// Format constants
const (
	// TimeFormatHuman is a human-readable time format
	TimeFormatHuman = "Jan 2, 2006 at 3:04pm MST"

	// PartialSuffix marks a download that has not finished streaming
	PartialSuffix = ".part"

	// LockSuffix names the advisory lock file that sits next to a catalog file
	LockSuffix = ".lock"
)
