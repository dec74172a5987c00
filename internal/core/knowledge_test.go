package core

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gwi.com/finance-chat/internal/core/catalog"
	"gwi.com/finance-chat/internal/store"
)

func TestEnsureSeededWritesDefaultOnce(t *testing.T) {
	ctx := context.Background()
	kv := newCountingKV()
	k := NewKnowledgeStore(kv)

	k.EnsureSeeded(ctx)
	k.EnsureSeeded(ctx)

	assert.Equal(t, 1, kv.setCount(store.KnowledgeKey))
	assert.Len(t, k.Load(ctx), len(catalog.Default()))
}

func TestEnsureSeededRefreshesWhenCountDiffers(t *testing.T) {
	ctx := context.Background()
	kv := newCountingKV()

	// same version and hash as the built-in catalogue, fewer entries
	short, err := json.Marshal(catalogRecord{Version: 1, Hash: catalogueHash(testCatalogue()), Items: testCatalogue()[:1]})
	require.NoError(t, err)
	require.NoError(t, kv.MemoryStore.Set(ctx, store.KnowledgeKey, short))

	k := NewKnowledgeStoreWithDefaults(kv, 1, testCatalogue())
	k.EnsureSeeded(ctx)

	assert.Equal(t, 1, kv.setCount(store.KnowledgeKey))
	assert.Equal(t, testCatalogue(), k.Load(ctx))
}

func TestEnsureSeededRefreshesLegacyArray(t *testing.T) {
	ctx := context.Background()
	kv := newCountingKV()

	legacy, err := json.Marshal(testCatalogue())
	require.NoError(t, err)
	require.NoError(t, kv.MemoryStore.Set(ctx, store.KnowledgeKey, legacy))

	k := NewKnowledgeStoreWithDefaults(kv, 1, testCatalogue())
	k.EnsureSeeded(ctx)

	assert.Equal(t, 1, kv.setCount(store.KnowledgeKey))
	assert.Equal(t, testCatalogue(), k.Load(ctx))
}

func TestEnsureSeededRefreshesEditedContentWithSameCount(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()

	old := NewKnowledgeStoreWithDefaults(kv, 1, testCatalogue())
	old.EnsureSeeded(ctx)

	edited := testCatalogue()
	edited[2].Response = "easy budget, revised"
	k := NewKnowledgeStoreWithDefaults(kv, 1, edited)
	k.EnsureSeeded(ctx)

	assert.Equal(t, "easy budget, revised", Match(k.Load(ctx), "budget"))
}

func TestEnsureSeededRefreshesOnVersionBump(t *testing.T) {
	ctx := context.Background()
	kv := newCountingKV()

	NewKnowledgeStoreWithDefaults(kv, 1, testCatalogue()).EnsureSeeded(ctx)
	NewKnowledgeStoreWithDefaults(kv, 2, testCatalogue()).EnsureSeeded(ctx)

	assert.Equal(t, 2, kv.setCount(store.KnowledgeKey))
}

func TestEnsureSeededReplacesCorruptRecord(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	require.NoError(t, kv.Set(ctx, store.KnowledgeKey, []byte("{not json")))

	k := NewKnowledgeStoreWithDefaults(kv, 1, testCatalogue())
	k.EnsureSeeded(ctx)

	assert.Equal(t, testCatalogue(), k.Load(ctx))
}

func TestEnsureSeededAbsorbsStorageFailure(t *testing.T) {
	k := NewKnowledgeStore(failingKV{})
	assert.NotPanics(t, func() { k.EnsureSeeded(context.Background()) })
}

func TestLoadFallsBackToDefaults(t *testing.T) {
	ctx := context.Background()

	t.Run("nothing persisted", func(t *testing.T) {
		k := NewKnowledgeStoreWithDefaults(store.NewMemoryStore(), 1, testCatalogue())
		assert.Equal(t, testCatalogue(), k.Load(ctx))
	})

	t.Run("storage down", func(t *testing.T) {
		k := NewKnowledgeStoreWithDefaults(failingKV{}, 1, testCatalogue())
		assert.Equal(t, testCatalogue(), k.Load(ctx))
	})

	t.Run("corrupt record", func(t *testing.T) {
		kv := store.NewMemoryStore()
		require.NoError(t, kv.Set(ctx, store.KnowledgeKey, []byte(`{"version":1,"items":"nope"}`)))
		k := NewKnowledgeStoreWithDefaults(kv, 1, testCatalogue())
		assert.Equal(t, testCatalogue(), k.Load(ctx))
	})

	t.Run("invalid entry", func(t *testing.T) {
		kv := store.NewMemoryStore()
		require.NoError(t, kv.Set(ctx, store.KnowledgeKey, []byte(`[{"keywords":[],"response":"x","difficulty":"easy"}]`)))
		k := NewKnowledgeStoreWithDefaults(kv, 1, testCatalogue())
		assert.Equal(t, testCatalogue(), k.Load(ctx))
	})
}

func TestLoadReturnsIndependentCopies(t *testing.T) {
	ctx := context.Background()

	for name, kv := range map[string]store.KV{
		"built-in":  store.NewMemoryStore(),
		"persisted": store.NewMemoryStore(),
	} {
		t.Run(name, func(t *testing.T) {
			k := NewKnowledgeStoreWithDefaults(kv, 1, testCatalogue())
			if name == "persisted" {
				k.EnsureSeeded(ctx)
			}

			items := k.Load(ctx)
			items[0].Response = "changed"
			items[0].Keywords[0] = "changed"
			items[1] = store.KnowledgeItem{}

			assert.Equal(t, testCatalogue(), k.Load(ctx))
		})
	}
}

func TestImportOverridesAndSurvivesSeeding(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	k := NewKnowledgeStoreWithDefaults(kv, 1, testCatalogue())

	custom := []store.KnowledgeItem{
		{Keywords: []string{"mortgage"}, Response: "mortgage basics", Difficulty: store.DifficultyEasy, Category: "housing"},
	}
	raw, err := json.Marshal(custom)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "catalogue.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	n, err := k.Import(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	k.EnsureSeeded(ctx)
	assert.Equal(t, "mortgage basics", Match(k.Load(ctx), "Mortgage?"))

	// the seeded record itself still matches the built-in catalogue
	seeded, err := kv.Get(ctx, store.KnowledgeKey)
	require.NoError(t, err)
	items, err := parseCatalogue(seeded)
	require.NoError(t, err)
	assert.Equal(t, testCatalogue(), items)

	require.NoError(t, k.ClearOverride(ctx))
	assert.Equal(t, testCatalogue(), k.Load(ctx))
	assert.Equal(t, FallbackResponse, Match(k.Load(ctx), "Mortgage?"))
}

func TestImportRejectsInvalidFiles(t *testing.T) {
	ctx := context.Background()
	k := NewKnowledgeStore(store.NewMemoryStore())
	dir := t.TempDir()

	_, err := k.Import(ctx, filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[{"keywords":["x"],"response":"y","difficulty":"expert"}]`), 0o600))
	_, err = k.Import(ctx, bad)
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"version":1,"items":[]}`), 0o600))
	_, err = k.Import(ctx, empty)
	assert.Error(t, err)
}
