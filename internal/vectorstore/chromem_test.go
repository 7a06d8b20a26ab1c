package vectorstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEmbedder returns fixed unit vectors keyed by text so similarity
// ordering is fully deterministic.
type stubEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (s *stubEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, ok := s.vectors[text]
		if !ok {
			vec = []float32{0, 0, 1}
		}
		out[i] = vec
	}
	return out, nil
}

func (s *stubEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	if vec, ok := s.vectors[text]; ok {
		return vec, nil
	}
	return []float32{0, 0, 1}, nil
}

func newTestStore(t *testing.T) (*ChromemStore, *stubEmbedder) {
	t.Helper()

	embedder := &stubEmbedder{vectors: map[string][]float32{
		"solar panels and rebates": {1, 0, 0},
		"wind turbines offshore":   {0, 1, 0},
		"project finance rates":    {0, 0, 1},
		"solar question":           {0.8, 0.6, 0},
	}}

	store, err := NewChromemStore(ChromemConfig{Collection: "test_docs"}, embedder, nil)
	require.NoError(t, err)
	return store, embedder
}

func seedChunks(t *testing.T, store *ChromemStore) {
	t.Helper()
	docs := []Document{
		{ID: "c1", Content: "solar panels and rebates", Metadata: map[string]string{MetaDocumentName: "solar.pdf", MetaChunkIndex: "0"}},
		{ID: "c2", Content: "wind turbines offshore", Metadata: map[string]string{MetaDocumentName: "wind.pdf", MetaChunkIndex: "0"}},
		{ID: "c3", Content: "project finance rates", Metadata: map[string]string{MetaDocumentName: "finance.pdf", MetaChunkIndex: "0"}},
	}
	require.NoError(t, store.AddDocuments(context.Background(), docs))
}

func TestChromemStoreAddAndSearch(t *testing.T) {
	store, _ := newTestStore(t)
	seedChunks(t, store)

	results, err := store.Search(context.Background(), "solar question", 2)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "solar panels and rebates", results[0].Content)
	assert.Equal(t, "solar.pdf", results[0].Metadata[MetaDocumentName])
	assert.Equal(t, "wind turbines offshore", results[1].Content)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestChromemStoreSearchCapsK(t *testing.T) {
	store, _ := newTestStore(t)
	seedChunks(t, store)

	results, err := store.Search(context.Background(), "solar question", 10)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestChromemStoreSearchEmptyCollection(t *testing.T) {
	store, _ := newTestStore(t)

	results, err := store.Search(context.Background(), "solar question", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestChromemStoreDeleteByDocumentName(t *testing.T) {
	store, _ := newTestStore(t)
	seedChunks(t, store)

	require.NoError(t, store.DeleteByDocumentName(context.Background(), "solar.pdf"))

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	results, err := store.Search(context.Background(), "solar question", 3)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "solar.pdf", r.Metadata[MetaDocumentName])
	}

	// Deleting an unknown document is a no-op.
	require.NoError(t, store.DeleteByDocumentName(context.Background(), "never-stored.pdf"))
}

func TestChromemStoreAddDocumentsValidation(t *testing.T) {
	store, embedder := newTestStore(t)

	err := store.AddDocuments(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyDocuments)

	embedder.err = errors.New("backend unreachable")
	err = store.AddDocuments(context.Background(), []Document{{ID: "c1", Content: "text"}})
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
}

func TestChromemStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"solar panels and rebates": {1, 0, 0},
	}}

	store, err := NewChromemStore(ChromemConfig{Path: dir, Collection: "test_docs"}, embedder, nil)
	require.NoError(t, err)
	require.NoError(t, store.AddDocuments(context.Background(), []Document{
		{ID: "c1", Content: "solar panels and rebates", Metadata: map[string]string{MetaDocumentName: "solar.pdf"}},
	}))
	require.NoError(t, store.Close())

	reopened, err := NewChromemStore(ChromemConfig{Path: dir, Collection: "test_docs"}, embedder, nil)
	require.NoError(t, err)

	count, err := reopened.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNewChromemStoreValidation(t *testing.T) {
	_, err := NewChromemStore(ChromemConfig{Collection: "x"}, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewChromemStore(ChromemConfig{}, &stubEmbedder{}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
