// Package vectorstore provides vector storage implementations for
// document chunks.
package vectorstore

import (
	"context"
	"errors"
)

// Metadata keys stored with every chunk.
const (
	// MetaDocumentName is the owning document's file name.
	MetaDocumentName = "document_name"

	// MetaChunkIndex is the chunk's position within its document.
	MetaChunkIndex = "chunk_index"
)

// Sentinel errors for vector store operations.
var (
	// ErrInvalidConfig indicates invalid store configuration.
	ErrInvalidConfig = errors.New("vectorstore: invalid configuration")

	// ErrEmptyDocuments indicates empty or nil documents.
	ErrEmptyDocuments = errors.New("vectorstore: empty or nil documents")

	// ErrEmbeddingFailed indicates the embedding backend was unreachable
	// or rejected the request.
	ErrEmbeddingFailed = errors.New("vectorstore: failed to generate embeddings")

	// ErrConnectionFailed indicates the external store was unreachable.
	ErrConnectionFailed = errors.New("vectorstore: connection failed")
)

// Document is a single chunk to be embedded and persisted.
type Document struct {
	// ID uniquely identifies the chunk within the collection.
	ID string

	// Content is the chunk text.
	Content string

	// Metadata carries the document-name association and chunk index.
	Metadata map[string]string
}

// SearchResult is one retrieved chunk with its similarity score.
type SearchResult struct {
	ID       string
	Content  string
	Score    float32
	Metadata map[string]string
}

// Embedder generates vector embeddings from text.
type Embedder interface {
	// EmbedDocuments generates embeddings for multiple texts.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Store is the interface for chunk storage and similarity search.
//
// Implementations:
//   - ChromemStore: embedded chromem-go with on-disk persistence (default)
//   - QdrantStore: external Qdrant server over gRPC
type Store interface {
	// AddDocuments embeds and upserts chunks into the collection.
	// Returns ErrEmptyDocuments when docs is empty.
	AddDocuments(ctx context.Context, docs []Document) error

	// Search returns up to k chunks most similar to query, highest
	// similarity first. Fewer than k results are returned if the
	// collection holds fewer chunks; an empty collection yields an
	// empty result, never an error.
	Search(ctx context.Context, query string, k int) ([]SearchResult, error)

	// DeleteByDocumentName removes all chunks associated with the named
	// document. Deleting a document with no stored chunks is a no-op.
	DeleteByDocumentName(ctx context.Context, name string) error

	// Count returns the number of chunks in the collection.
	Count(ctx context.Context) (int, error)

	// Close releases resources held by the store.
	Close() error
}
