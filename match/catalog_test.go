package match

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/dealflow/memo"
	"github.com/c360studio/dealflow/store"
)

func TestCatalogLazyLoadAndInvalidate(t *testing.T) {
	ctx := context.Background()
	docs := store.NewMemory()
	require.NoError(t, docs.PutInvestor(ctx, &memo.Investor{ID: "inv-1", Name: "Asha Rao"}))

	catalog := NewCatalog(docs, time.Hour, nil)

	investors, err := catalog.Investors(ctx)
	require.NoError(t, err)
	require.Len(t, investors, 1)

	// A new entry is invisible until the cache is invalidated.
	require.NoError(t, docs.PutInvestor(ctx, &memo.Investor{ID: "inv-2", Name: "Ben Olsen"}))
	investors, err = catalog.Investors(ctx)
	require.NoError(t, err)
	assert.Len(t, investors, 1)

	catalog.Invalidate()
	investors, err = catalog.Investors(ctx)
	require.NoError(t, err)
	assert.Len(t, investors, 2)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("bare array", func(t *testing.T) {
		path := filepath.Join(dir, "catalog.json")
		require.NoError(t, os.WriteFile(path, []byte(`[
			{"investor_id": "inv-1", "name": "Asha Rao", "firm": "Peak Ventures"}
		]`), 0o644))

		investors, err := LoadFile(path)
		require.NoError(t, err)
		require.Len(t, investors, 1)
		assert.Equal(t, "Peak Ventures", investors[0].Firm)
	})

	t.Run("wrapped object", func(t *testing.T) {
		path := filepath.Join(dir, "wrapped.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"investors": [
			{"investor_id": "inv-2", "name": "Ben Olsen", "firm": "Faraway Capital"}
		]}`), 0o644))

		investors, err := LoadFile(path)
		require.NoError(t, err)
		require.Len(t, investors, 1)
		assert.Equal(t, "inv-2", investors[0].ID)
	})

	t.Run("missing id rejected", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte(`[{"name": "No ID"}]`), 0o644))

		_, err := LoadFile(path)
		require.Error(t, err)
	})
}

func TestCatalogReloadFileUpserts(t *testing.T) {
	ctx := context.Background()
	docs := store.NewMemory()
	catalog := NewCatalog(docs, time.Hour, nil)

	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"investor_id": "inv-1", "name": "Asha Rao", "firm": "Peak Ventures"}
	]`), 0o644))

	require.NoError(t, catalog.reloadFile(ctx, path))

	inv, err := docs.GetInvestor(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, "Peak Ventures", inv.Firm)
	assert.False(t, inv.UploadedAt.IsZero())
	assert.False(t, inv.LastUpdated.IsZero())
}
