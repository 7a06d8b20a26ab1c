package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helioworks/ragd/internal/config"
)

func TestNewStore(t *testing.T) {
	embedder := &stubEmbedder{}

	t.Run("chromem provider", func(t *testing.T) {
		var cfg config.Config
		cfg.Store.Provider = "chromem"
		cfg.Store.Path = t.TempDir()
		cfg.Store.Collection = "docs"

		store, err := NewStore(&cfg, embedder, nil)
		require.NoError(t, err)
		assert.IsType(t, &ChromemStore{}, store)
	})

	t.Run("qdrant provider connects lazily", func(t *testing.T) {
		var cfg config.Config
		cfg.Store.Provider = "qdrant"
		cfg.Store.Collection = "docs"
		cfg.Qdrant.Host = "localhost"
		cfg.Qdrant.Port = 6334
		cfg.Qdrant.VectorSize = 3

		store, err := NewStore(&cfg, embedder, nil)
		require.NoError(t, err)
		assert.IsType(t, &QdrantStore{}, store)
		require.NoError(t, store.Close())
	})

	t.Run("unknown provider", func(t *testing.T) {
		var cfg config.Config
		cfg.Store.Provider = "pinecone"

		_, err := NewStore(&cfg, embedder, nil)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}
