package memory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/scansync/pkg/catalogs"
	"github.com/agentstation/scansync/pkg/catalogs/memory"
	"github.com/agentstation/scansync/pkg/catalogs/storetest"
	"github.com/agentstation/scansync/pkg/classify"
	"github.com/agentstation/scansync/pkg/manifest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T, c classify.Classifier) catalogs.Store {
		s, err := memory.New(catalogs.WithClassifier(c))
		require.NoError(t, err)
		return s
	})
}

func TestLoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s, err := memory.New()
	require.NoError(t, err)

	_, err = s.Write(ctx, storetest.Metadata("a"), manifest.File{Name: "u", Fingerprint: "aa"})
	require.NoError(t, err)

	cat, err := s.Load(ctx)
	require.NoError(t, err)
	cat.Studies[0].Files = nil

	again, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, again.Len())
}

func TestNewFromSeedsCatalog(t *testing.T) {
	seed := catalogs.New()
	seed.Append(storetest.Metadata("a"), manifest.File{Name: "u", Fingerprint: "aa"})

	s, err := memory.NewFrom(seed)
	require.NoError(t, err)

	found, err := s.Contains(context.Background(), "aa")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "memory", s.Backend())
}

func TestConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	s, err := memory.New()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = s.Write(ctx, storetest.Metadata("a"), manifest.File{Fingerprint: fmt.Sprintf("%04d", i)})
		}(i)
	}
	wg.Wait()

	cat, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, cat.Len())
}
