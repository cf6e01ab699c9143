package archive

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestBadgerArchive(t *testing.T) *BadgerArchive {
	t.Helper()

	a := NewBadgerArchive()
	require.NoError(t, a.Initialize(filepath.Join(t.TempDir(), "archive"), false))
	t.Cleanup(func() { a.Close() })
	return a
}

func backends(t *testing.T) map[string]Archive {
	t.Helper()
	mem := NewMemoryArchive()
	require.NoError(t, mem.Initialize("", false))
	return map[string]Archive{
		"Badger": setupTestBadgerArchive(t),
		"Memory": mem,
	}
}

func entryAt(name string, at time.Time) Entry {
	e := NewEntry(name, `{"elements":{"nodes":[],"edges":[]}}`, 2, 1)
	e.CreatedAt = at
	return e
}

func TestNewEntry(t *testing.T) {
	t.Parallel()

	a := NewEntry("x.json", "{}", 3, 2)
	b := NewEntry("x.json", "{}", 3, 2)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Len(t, a.ID, 36)
	assert.Equal(t, 3, a.Nodes)
	assert.Equal(t, 2, a.Edges)
	assert.WithinDuration(t, time.Now(), a.CreatedAt, time.Minute)
}

func TestArchive(t *testing.T) {
	t.Parallel()

	for name, a := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

			older := entryAt("older.json", base)
			newer := entryAt("newer.json", base.Add(time.Hour))
			require.NoError(t, a.Put(ctx, older))
			require.NoError(t, a.Put(ctx, newer))

			got, err := a.Get(ctx, older.ID)
			require.NoError(t, err)
			assert.Equal(t, older.Name, got.Name)
			assert.Equal(t, older.JSON, got.JSON)
			assert.True(t, older.CreatedAt.Equal(got.CreatedAt))

			list, err := a.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "newer.json", list[0].Name)
			assert.Equal(t, "older.json", list[1].Name)

			require.NoError(t, a.Delete(ctx, older.ID))
			_, err = a.Get(ctx, older.ID)
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, a.Delete(ctx, older.ID), ErrNotFound)

			list, err = a.List(ctx)
			require.NoError(t, err)
			assert.Len(t, list, 1)
		})
	}
}

func TestArchive_PutReplaces(t *testing.T) {
	t.Parallel()

	for name, a := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			e := NewEntry("a.json", "{}", 1, 0)
			require.NoError(t, a.Put(ctx, e))

			e.Name = "renamed.json"
			require.NoError(t, a.Put(ctx, e))

			list, err := a.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, "renamed.json", list[0].Name)
		})
	}
}

func TestBadgerArchive_Reopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "archive")
	ctx := context.Background()

	first := NewBadgerArchive()
	require.NoError(t, first.Initialize(path, false))
	e := NewEntry("kept.json", `{"zoom":1}`, 0, 0)
	require.NoError(t, first.Put(ctx, e))
	require.NoError(t, first.Close())

	second := NewBadgerArchive()
	require.NoError(t, second.Initialize(path, true))
	defer second.Close()

	got, err := second.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, `{"zoom":1}`, got.JSON)
}

func TestBadgerArchive_NotInitialized(t *testing.T) {
	t.Parallel()

	a := NewBadgerArchive()
	assert.Error(t, a.Put(context.Background(), NewEntry("x", "{}", 0, 0)))
	_, err := a.List(context.Background())
	assert.Error(t, err)
	assert.NoError(t, a.Close())
}
