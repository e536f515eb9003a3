// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLite(t *testing.T) Store {
	t.Helper()
	s, err := NewSQLiteStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoreContract(t *testing.T) {
	storeContract(t, newSQLite)
}

func TestSQLiteStore_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s1, err := NewSQLiteStore(dir)
	require.NoError(t, err)
	idx, err := newTestManager(s1).Build(ctx, "My Collection", sampleDocs())
	require.NoError(t, err)
	idx.Release()
	require.NoError(t, s1.Close())

	_, err = os.Stat(filepath.Join(dir, "My_Collection", sqliteFile))
	require.NoError(t, err)

	s2, err := NewSQLiteStore(dir)
	require.NoError(t, err)
	defer s2.Close()

	names, err := s2.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"My_Collection"}, names)

	idx, err = newTestManager(s2).Open(ctx, "My Collection")
	require.NoError(t, err)
	defer idx.Release()
	hits, err := idx.Query(ctx, "graph neural networks", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Graph Nets", hits[0].Document.Title)
	assert.Equal(t, 2019, hits[0].Document.Year)
}

func TestSQLiteStore_DestroyRemovesDirectory(t *testing.T) {
	dir := t.TempDir()
	s, err := NewSQLiteStore(dir)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Create(ctx, "old", 3))
	require.NoError(t, s.Destroy(ctx, "old"))
	_, err = os.Stat(filepath.Join(dir, "old"))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, s.Destroy(ctx, "never-existed"))
}

func TestSQLiteStore_RejectsDimensionMismatch(t *testing.T) {
	s := newSQLite(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, "dims", 3))
	err := s.Insert(ctx, "dims", []Entry{{ID: "x", Vector: []float32{1, 2}}})
	assert.Error(t, err)
}

func TestNewSQLiteStore_RequiresDir(t *testing.T) {
	_, err := NewSQLiteStore("")
	assert.ErrorIs(t, err, ErrConfiguration)
}
