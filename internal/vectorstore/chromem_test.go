package vectorstore

import (
	"context"
	"hash/fnv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/recalld/internal/logging"
)

// stubEmbedder produces deterministic unit vectors derived from a hash of
// the input text. chromem requires normalized vectors.
type stubEmbedder struct {
	dim int
}

func (e *stubEmbedder) embed(text string) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, e.dim)
	var sumSquares float32
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(seed>>33))/float32(1<<30) - 1
		sumSquares += vec[i] * vec[i]
	}
	norm := sqrt32(sumSquares)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

func (e *stubEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.embed(t)
	}
	return out, nil
}

func (e *stubEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return e.embed(text), nil
}

// sqrt32 computes a square root via Newton's method, enough precision
// for normalizing test vectors.
func sqrt32(x float32) float32 {
	if x <= 0 {
		return 0
	}
	z := x
	for i := 0; i < 20; i++ {
		z = (z + x/z) / 2
	}
	return z
}

func newTestChromemStore(t *testing.T) *ChromemStore {
	t.Helper()
	store, err := NewChromemStore(ChromemConfig{
		Path:       t.TempDir(),
		Collection: "test_memories",
	}, &stubEmbedder{dim: 32}, logging.NewNop())
	require.NoError(t, err)
	return store
}

func TestNewChromemStore(t *testing.T) {
	t.Run("creates store with valid config", func(t *testing.T) {
		store := newTestChromemStore(t)
		assert.NotNil(t, store)
	})

	t.Run("returns error when embedder is nil", func(t *testing.T) {
		_, err := NewChromemStore(ChromemConfig{Path: t.TempDir()}, nil, logging.NewNop())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("returns error when path is empty", func(t *testing.T) {
		_, err := NewChromemStore(ChromemConfig{}, &stubEmbedder{dim: 32}, logging.NewNop())
		require.Error(t, err)
	})

	t.Run("rejects invalid collection name", func(t *testing.T) {
		_, err := NewChromemStore(ChromemConfig{
			Path:       t.TempDir(),
			Collection: "Bad Name!",
		}, &stubEmbedder{dim: 32}, logging.NewNop())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidCollectionName)
	})
}

func TestChromemStoreAddDocuments(t *testing.T) {
	ctx := context.Background()

	t.Run("adds documents and returns ids", func(t *testing.T) {
		store := newTestChromemStore(t)
		ids, err := store.AddDocuments(ctx, []Document{
			{ID: "m1", Content: "walked the dog in the park"},
			{ID: "m2", Content: "made pasta for dinner"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"m1", "m2"}, ids)

		info, err := store.CollectionInfo(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, info.PointCount)
	})

	t.Run("generates ids when missing", func(t *testing.T) {
		store := newTestChromemStore(t)
		ids, err := store.AddDocuments(ctx, []Document{{Content: "no id here"}})
		require.NoError(t, err)
		require.Len(t, ids, 1)
		assert.NotEmpty(t, ids[0])
	})

	t.Run("rejects empty batch", func(t *testing.T) {
		store := newTestChromemStore(t)
		_, err := store.AddDocuments(ctx, nil)
		assert.ErrorIs(t, err, ErrEmptyDocuments)
	})
}

func TestChromemStoreSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("empty collection returns empty results", func(t *testing.T) {
		store := newTestChromemStore(t)
		results, err := store.Search(ctx, "anything", 5)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("returns matching document first for identical text", func(t *testing.T) {
		store := newTestChromemStore(t)
		_, err := store.AddDocuments(ctx, []Document{
			{ID: "m1", Content: "morning run by the river"},
			{ID: "m2", Content: "phone call with grandma"},
			{ID: "m3", Content: "burned the toast again"},
		})
		require.NoError(t, err)

		results, err := store.Search(ctx, "phone call with grandma", 3)
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, "m2", results[0].ID)
		assert.Equal(t, "phone call with grandma", results[0].Content)
	})

	t.Run("caps k at collection size", func(t *testing.T) {
		store := newTestChromemStore(t)
		_, err := store.AddDocuments(ctx, []Document{{ID: "m1", Content: "only one"}})
		require.NoError(t, err)

		results, err := store.Search(ctx, "only one", 10)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("rejects empty query", func(t *testing.T) {
		store := newTestChromemStore(t)
		_, err := store.Search(ctx, "", 5)
		require.Error(t, err)
	})

	t.Run("rejects non-positive k", func(t *testing.T) {
		store := newTestChromemStore(t)
		_, err := store.Search(ctx, "query", 0)
		require.Error(t, err)
	})

	t.Run("filters restrict results by metadata", func(t *testing.T) {
		store := newTestChromemStore(t)
		_, err := store.AddDocuments(ctx, []Document{
			{ID: "m1", Content: "first entry", Metadata: map[string]interface{}{"kind": "text"}},
			{ID: "m2", Content: "second entry", Metadata: map[string]interface{}{"kind": "photo"}},
		})
		require.NoError(t, err)

		results, err := store.SearchWithFilters(ctx, "entry", 5, map[string]interface{}{"kind": "photo"})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "m2", results[0].ID)
	})
}

func TestChromemStoreDeleteDocuments(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes existing documents", func(t *testing.T) {
		store := newTestChromemStore(t)
		_, err := store.AddDocuments(ctx, []Document{
			{ID: "m1", Content: "keep me"},
			{ID: "m2", Content: "delete me"},
		})
		require.NoError(t, err)

		require.NoError(t, store.DeleteDocuments(ctx, []string{"m2"}))

		info, err := store.CollectionInfo(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, info.PointCount)
	})

	t.Run("empty id list is a no-op", func(t *testing.T) {
		store := newTestChromemStore(t)
		assert.NoError(t, store.DeleteDocuments(ctx, nil))
	})
}

func TestChromemStorePersistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	embedder := &stubEmbedder{dim: 32}

	store, err := NewChromemStore(ChromemConfig{Path: dir, Collection: "persist_test"}, embedder, logging.NewNop())
	require.NoError(t, err)
	_, err = store.AddDocuments(ctx, []Document{{ID: "m1", Content: "survives restart"}})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewChromemStore(ChromemConfig{Path: dir, Collection: "persist_test"}, embedder, logging.NewNop())
	require.NoError(t, err)

	info, err := reopened.CollectionInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, info.PointCount)

	results, err := reopened.Search(ctx, "survives restart", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "m1", results[0].ID)
}
