package memory

import (
	"context"
	"encoding/base64"
	"hash/fnv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/recalld/internal/config"
	"github.com/fyrsmithlabs/recalld/internal/logging"
	"github.com/fyrsmithlabs/recalld/internal/vectorstore"
)

// hashEmbedder produces deterministic normalized vectors for tests.
type hashEmbedder struct{}

func (hashEmbedder) embed(text string) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	const dim = 32
	vec := make([]float32, dim)
	var sumSquares float64
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(seed>>33))/float32(1<<30) - 1
		sumSquares += float64(vec[i]) * float64(vec[i])
	}
	norm := float32(sqrtFloat(sumSquares))
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

func sqrtFloat(x float64) float64 {
	if x <= 0 {
		return 0
	}
	z := x
	for i := 0; i < 30; i++ {
		z = (z + x/z) / 2
	}
	return z
}

func (e hashEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.embed(t)
	}
	return out, nil
}

func (e hashEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return e.embed(text), nil
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	dataDir := t.TempDir()

	store, err := vectorstore.NewChromemStore(vectorstore.ChromemConfig{
		Path:       filepath.Join(dataDir, "index"),
		Collection: "test_memories",
	}, hashEmbedder{}, logging.NewNop())
	require.NoError(t, err)

	svc, err := NewService(config.MemoryConfig{
		DataDir:     dataDir,
		DefaultTopK: 3,
		MaxPhotoKB:  64,
	}, store, nil, logging.NewNop())
	require.NoError(t, err)
	return svc
}

// tinyPNG is a 1x1 transparent PNG.
var tinyPNG = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4, 0x89, 0x00, 0x00, 0x00,
	0x0D, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9C, 0x62, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0D, 0x0A, 0x2D, 0xB4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4E, 0x44, 0xAE, 0x42, 0x60, 0x82,
}

func TestServiceStore(t *testing.T) {
	ctx := context.Background()

	t.Run("stores text memory", func(t *testing.T) {
		svc := newTestService(t)
		m, err := svc.Store(ctx, "picnic by the lake with Sam", "positive")
		require.NoError(t, err)
		assert.NotEmpty(t, m.ID)
		assert.Equal(t, KindText, m.Kind)
		assert.Equal(t, "positive", m.Mood)
		assert.Equal(t, 1, svc.Count())
	})

	t.Run("rejects empty content", func(t *testing.T) {
		svc := newTestService(t)
		_, err := svc.Store(ctx, "   ", "")
		assert.ErrorIs(t, err, ErrEmptyContent)
		assert.Zero(t, svc.Count())
	})
}

func TestServiceStorePhoto(t *testing.T) {
	ctx := context.Background()
	encoded := base64.StdEncoding.EncodeToString(tinyPNG)

	t.Run("stores photo with caption", func(t *testing.T) {
		svc := newTestService(t)
		m, err := svc.StorePhoto(ctx, encoded, "sunset at the beach", "")
		require.NoError(t, err)
		assert.Equal(t, KindPhoto, m.Kind)
		assert.Equal(t, "sunset at the beach", m.Content)
		assert.True(t, filepath.IsAbs(m.PhotoPath) || m.PhotoPath != "")
		assert.FileExists(t, m.PhotoPath)
		assert.Equal(t, ".png", filepath.Ext(m.PhotoPath))
	})

	t.Run("empty caption gets placeholder", func(t *testing.T) {
		svc := newTestService(t)
		m, err := svc.StorePhoto(ctx, encoded, "", "")
		require.NoError(t, err)
		assert.Equal(t, photoPlaceholder, m.Content)
	})

	t.Run("accepts data uri prefix", func(t *testing.T) {
		svc := newTestService(t)
		m, err := svc.StorePhoto(ctx, "data:image/png;base64,"+encoded, "cat photo", "")
		require.NoError(t, err)
		assert.FileExists(t, m.PhotoPath)
	})

	t.Run("rejects invalid base64", func(t *testing.T) {
		svc := newTestService(t)
		_, err := svc.StorePhoto(ctx, "not-base64!!!", "", "")
		assert.ErrorIs(t, err, ErrInvalidPhoto)
	})

	t.Run("rejects empty payload", func(t *testing.T) {
		svc := newTestService(t)
		_, err := svc.StorePhoto(ctx, "", "", "")
		assert.ErrorIs(t, err, ErrInvalidPhoto)
	})

	t.Run("rejects oversized image", func(t *testing.T) {
		svc := newTestService(t)
		big := make([]byte, 100*1024)
		_, err := svc.StorePhoto(ctx, base64.StdEncoding.EncodeToString(big), "", "")
		assert.ErrorIs(t, err, ErrInvalidPhoto)
	})
}

func TestServiceRecall(t *testing.T) {
	ctx := context.Background()

	t.Run("empty query returns empty results", func(t *testing.T) {
		svc := newTestService(t)
		_, err := svc.Store(ctx, "something stored", "")
		require.NoError(t, err)

		results, err := svc.Recall(ctx, "", 3)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("empty store returns empty results", func(t *testing.T) {
		svc := newTestService(t)
		results, err := svc.Recall(ctx, "anything at all", 3)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("recalls matching memory", func(t *testing.T) {
		svc := newTestService(t)
		_, err := svc.Store(ctx, "walked the dog along the canal", "")
		require.NoError(t, err)
		_, err = svc.Store(ctx, "finished reading a mystery novel", "")
		require.NoError(t, err)

		results, err := svc.Recall(ctx, "walked the dog along the canal", 2)
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, "walked the dog along the canal", results[0].Content)
	})

	t.Run("k defaults when non-positive", func(t *testing.T) {
		svc := newTestService(t)
		_, err := svc.Store(ctx, "single memory", "")
		require.NoError(t, err)

		results, err := svc.Recall(ctx, "single memory", 0)
		require.NoError(t, err)
		assert.NotEmpty(t, results)
	})
}

func TestServiceListAndDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("list returns newest first", func(t *testing.T) {
		svc := newTestService(t)
		first, err := svc.Store(ctx, "first memory", "")
		require.NoError(t, err)
		second, err := svc.Store(ctx, "second memory", "")
		require.NoError(t, err)

		memories, err := svc.List(ctx)
		require.NoError(t, err)
		require.Len(t, memories, 2)
		ids := []string{memories[0].ID, memories[1].ID}
		assert.Contains(t, ids, first.ID)
		assert.Contains(t, ids, second.ID)
		assert.False(t, memories[0].CreatedAt.Before(memories[1].CreatedAt))
	})

	t.Run("delete removes memory", func(t *testing.T) {
		svc := newTestService(t)
		m, err := svc.Store(ctx, "to be deleted", "")
		require.NoError(t, err)

		require.NoError(t, svc.Delete(ctx, m.ID))
		assert.Zero(t, svc.Count())

		_, err = svc.Get(ctx, m.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete unknown id returns not found", func(t *testing.T) {
		svc := newTestService(t)
		err := svc.Delete(ctx, "no-such-id")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete removes photo file", func(t *testing.T) {
		svc := newTestService(t)
		m, err := svc.StorePhoto(ctx, base64.StdEncoding.EncodeToString(tinyPNG), "temp photo", "")
		require.NoError(t, err)
		require.FileExists(t, m.PhotoPath)

		require.NoError(t, svc.Delete(ctx, m.ID))
		_, statErr := os.Stat(m.PhotoPath)
		assert.True(t, os.IsNotExist(statErr))
	})
}

func TestCatalogPersistence(t *testing.T) {
	ctx := context.Background()
	dataDir := t.TempDir()

	store, err := vectorstore.NewChromemStore(vectorstore.ChromemConfig{
		Path:       filepath.Join(dataDir, "index"),
		Collection: "persist_catalog",
	}, hashEmbedder{}, logging.NewNop())
	require.NoError(t, err)

	svc, err := NewService(config.MemoryConfig{DataDir: dataDir, DefaultTopK: 3, MaxPhotoKB: 64}, store, nil, logging.NewNop())
	require.NoError(t, err)

	m, err := svc.Store(ctx, "persists across restarts", "")
	require.NoError(t, err)

	// Reopen against the same data dir.
	store2, err := vectorstore.NewChromemStore(vectorstore.ChromemConfig{
		Path:       filepath.Join(dataDir, "index"),
		Collection: "persist_catalog",
	}, hashEmbedder{}, logging.NewNop())
	require.NoError(t, err)

	svc2, err := NewService(config.MemoryConfig{DataDir: dataDir, DefaultTopK: 3, MaxPhotoKB: 64}, store2, nil, logging.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1, svc2.Count())

	got, err := svc2.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "persists across restarts", got.Content)
}
