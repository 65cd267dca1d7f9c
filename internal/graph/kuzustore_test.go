//go:build cgo

package graph

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore creates a fresh in-memory KuzuStore with an initialized schema.
// It registers a cleanup function to close the store when the test finishes.
func newTestStore(t *testing.T) *KuzuStore {
	t.Helper()
	s, err := NewKuzuStore()
	require.NoError(t, err, "NewKuzuStore should not fail")
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	require.NoError(t, s.InitSchema(ctx), "InitSchema should not fail")
	return s
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestKuzuStore_InitSchema(t *testing.T) {
	s, err := NewKuzuStore()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()

	// First call creates the tables.
	require.NoError(t, s.InitSchema(ctx))

	// Second call should be idempotent (IF NOT EXISTS).
	require.NoError(t, s.InitSchema(ctx))
}

func TestKuzuStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		return newTestStore(t)
	})
}

func TestKuzuStore_EmptyKeyFiles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddModule(ctx, ModuleInfo{ID: "solo", Name: "Solo", Complexity: ComplexityLow, Category: DefaultCategory}))

	got, err := s.GetModule(ctx, "solo")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, got.KeyFiles)
	assert.Empty(t, got.Dependencies)
}

func TestKuzuFileStore_Reopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "graph.kuzu")

	s, err := NewKuzuFileStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, Persist(ctx, s, sampleGraph()))
	require.NoError(t, s.Close())

	reopened, err := OpenStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	stats, err := reopened.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.ModuleCount)
}
