// Package storetest is the behavioural contract every catalogs.Store
// backend must satisfy. Backend tests call Run with a factory.
package storetest

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/scansync/pkg/catalogs"
	"github.com/agentstation/scansync/pkg/classify"
	"github.com/agentstation/scansync/pkg/manifest"
)

// Factory builds a fresh, empty store using the given classifier.
type Factory func(t *testing.T, classifier classify.Classifier) catalogs.Store

// Run executes the contract suite against stores built by factory.
func Run(t *testing.T, factory Factory) {
	t.Helper()

	t.Run("EmptyLoad", func(t *testing.T) { testEmptyLoad(t, factory) })
	t.Run("WriteThenContains", func(t *testing.T) { testWriteThenContains(t, factory) })
	t.Run("ContainsIsGlobal", func(t *testing.T) { testContainsIsGlobal(t, factory) })
	t.Run("AppendToExistingStudy", func(t *testing.T) { testAppend(t, factory) })
	t.Run("RejectionLeavesCatalogUnmodified", func(t *testing.T) { testRejection(t, factory) })
	t.Run("ClassifierSeesLocalPath", func(t *testing.T) { testClassifierPath(t, factory) })
	t.Run("FingerprintCase", func(t *testing.T) { testFingerprintCase(t, factory) })
}

// File returns a verified file entry backed by a real file in a temp dir.
func File(t *testing.T, name, fp string) manifest.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(fp), 0o600))
	return manifest.File{
		Name:        "https://scans.io/data/" + name,
		Fingerprint: fp,
		UpdatedAt:   "2020-01-01",
		Verified:    true,
		LocalPath:   path,
	}
}

// Metadata returns study metadata for id.
func Metadata(id string) manifest.Metadata {
	return manifest.Metadata{manifest.KeyStudyID: id}
}

func mustWrite(t *testing.T, s catalogs.Store, studyID string, f manifest.File) {
	t.Helper()
	ok, err := s.Write(context.Background(), Metadata(studyID), f)
	require.NoError(t, err)
	require.True(t, ok)
}

func filenames(study *manifest.Study) []string {
	out := make([]string, 0, len(study.Files))
	for _, f := range study.Files {
		out = append(out, f.Filename())
	}
	sort.Strings(out)
	return out
}

func testEmptyLoad(t *testing.T, factory Factory) {
	ctx := context.Background()
	s := factory(t, classify.AcceptAll)

	cat, err := s.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, cat)
	assert.Empty(t, cat.Studies)

	found, err := s.Contains(ctx, "da39a3ee5e6b4b0d3255bfef95601890afd80709")
	require.NoError(t, err)
	assert.False(t, found)
}

func testWriteThenContains(t *testing.T, factory Factory) {
	ctx := context.Background()
	s := factory(t, classify.AcceptAll)

	mustWrite(t, s, "study-a", File(t, "20200101_a.gz", "aaaa"))

	found, err := s.Contains(ctx, "aaaa")
	require.NoError(t, err)
	assert.True(t, found)

	cat, err := s.Load(ctx)
	require.NoError(t, err)
	study, ok := cat.Study("study-a")
	require.True(t, ok)
	assert.Equal(t, []string{"20200101_a.gz"}, filenames(study))
	assert.Equal(t, "aaaa", study.Files[0].Fingerprint)
}

func testContainsIsGlobal(t *testing.T, factory Factory) {
	ctx := context.Background()
	s := factory(t, classify.AcceptAll)

	mustWrite(t, s, "study-a", File(t, "a.gz", "aaaa"))
	mustWrite(t, s, "study-b", File(t, "b.gz", "bbbb"))

	for _, fp := range []string{"aaaa", "bbbb"} {
		found, err := s.Contains(ctx, fp)
		require.NoError(t, err)
		assert.True(t, found, fp)
	}

	cat, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, cat.Studies, 2)
	assert.Equal(t, 2, cat.Len())
}

func testAppend(t *testing.T, factory Factory) {
	ctx := context.Background()
	s := factory(t, classify.AcceptAll)

	mustWrite(t, s, "study-a", File(t, "1.gz", "1111"))
	mustWrite(t, s, "study-a", File(t, "2.gz", "2222"))

	cat, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, cat.Studies, 1)
	study, ok := cat.Study("study-a")
	require.True(t, ok)
	assert.Equal(t, []string{"1.gz", "2.gz"}, filenames(study))
}

func testRejection(t *testing.T, factory Factory) {
	ctx := context.Background()
	reject := func(string) bool { return false }
	s := factory(t, reject)

	ok, err := s.Write(ctx, Metadata("study-a"), File(t, "bad.gz", "dead"))
	require.NoError(t, err)
	assert.False(t, ok)

	found, err := s.Contains(ctx, "dead")
	require.NoError(t, err)
	assert.False(t, found)

	cat, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, cat.Studies)
}

func testClassifierPath(t *testing.T, factory Factory) {
	var seen []string
	s := factory(t, func(path string) bool {
		seen = append(seen, path)
		return true
	})

	f := File(t, "seen.gz", "5eed")
	mustWrite(t, s, "study-a", f)
	assert.Equal(t, []string{f.LocalPath}, seen)
}

func testFingerprintCase(t *testing.T, factory Factory) {
	ctx := context.Background()
	s := factory(t, classify.AcceptAll)

	mustWrite(t, s, "study-a", File(t, "upper.gz", "ABCDEF"))

	found, err := s.Contains(ctx, "abcdef")
	require.NoError(t, err)
	assert.True(t, found)
}
