//go:build cgo

package docgraph

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	testStores["kuzu"] = func(t *testing.T) Store {
		t.Helper()
		s, err := NewKuzuStore()
		require.NoError(t, err, "NewKuzuStore should not fail")
		return s
	}
}

func TestKuzuStore_InitSchemaIdempotent(t *testing.T) {
	s, err := NewKuzuStore()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	require.NoError(t, s.InitSchema(ctx))
	require.NoError(t, s.InitSchema(ctx))
}

func TestKuzuStore_UnknownEdgeKind(t *testing.T) {
	s, err := NewKuzuStore()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.InitSchema(context.Background()))

	err = s.AddEdge(context.Background(), Edge{SourceID: "a", TargetID: "b", Kind: "CALLS"})
	assert.Error(t, err)
}

func TestKuzuFileStore_Persists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "graph", "db")
	ctx := context.Background()

	s, err := NewKuzuFileStore(dir)
	require.NoError(t, err)
	doc := sampleDocument(t)
	require.NoError(t, Load(ctx, s, doc))
	require.NoError(t, s.Close())

	reopened, err := NewKuzuFileStore(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	require.NoError(t, Verify(ctx, reopened, doc))
}
