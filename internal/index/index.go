// Package index implements the chunk index: it owns the text split
// policy and the document-to-chunk association in the vector store.
package index

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/textsplitter"
	"go.uber.org/zap"

	"github.com/helioworks/ragd/internal/vectorstore"
)

// Config tunes the split policy.
type Config struct {
	// ChunkSize is the maximum chunk length in characters.
	ChunkSize int

	// ChunkOverlap is the overlap between consecutive chunks.
	ChunkOverlap int
}

// Index stores document texts as embedded chunks and retrieves the most
// similar chunks for a query.
type Index struct {
	store    vectorstore.Store
	splitter textsplitter.RecursiveCharacter
	logger   *zap.Logger
}

// New creates an Index over the given store.
func New(store vectorstore.Store, cfg Config, logger *zap.Logger) *Index {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize / 5
	}

	return &Index{
		store: store,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(cfg.ChunkSize),
			textsplitter.WithChunkOverlap(cfg.ChunkOverlap),
		),
		logger: logger,
	}
}

// Ingest splits each text into chunks, embeds them, and persists them
// under the corresponding document name. texts[i] belongs to names[i].
//
// Re-ingesting a document replaces its prior chunks (delete-then-insert
// keyed by document name), so repeated ingestion never accumulates
// duplicates. Ingesting nothing is a no-op.
func (ix *Index) Ingest(ctx context.Context, texts, names []string) error {
	if len(texts) != len(names) {
		return fmt.Errorf("texts and names length mismatch: %d vs %d", len(texts), len(names))
	}
	if len(texts) == 0 {
		return nil
	}

	for i, text := range texts {
		name := names[i]

		if err := ix.store.DeleteByDocumentName(ctx, name); err != nil {
			return fmt.Errorf("replacing prior chunks for %s: %w", name, err)
		}

		chunks, err := ix.splitter.SplitText(text)
		if err != nil {
			return fmt.Errorf("splitting %s: %w", name, err)
		}
		if len(chunks) == 0 {
			ix.logger.Warn("document produced no chunks", zap.String("document", name))
			continue
		}

		docs := make([]vectorstore.Document, len(chunks))
		for j, chunk := range chunks {
			docs[j] = vectorstore.Document{
				ID:      uuid.NewString(),
				Content: chunk,
				Metadata: map[string]string{
					vectorstore.MetaDocumentName: name,
					vectorstore.MetaChunkIndex:   strconv.Itoa(j),
				},
			}
		}

		if err := ix.store.AddDocuments(ctx, docs); err != nil {
			return fmt.Errorf("storing chunks for %s: %w", name, err)
		}

		ix.logger.Info("ingested document",
			zap.String("document", name),
			zap.Int("chunks", len(docs)),
		)
	}

	return nil
}

// Retrieve returns the texts and metadata of the top-k chunks most
// similar to query, highest similarity first. An empty index yields
// empty results, never an error.
func (ix *Index) Retrieve(ctx context.Context, query string, k int) ([]string, []map[string]string, error) {
	if k < 1 {
		return nil, nil, fmt.Errorf("k must be at least 1, got %d", k)
	}

	results, err := ix.store.Search(ctx, query, k)
	if err != nil {
		return nil, nil, fmt.Errorf("searching index: %w", err)
	}

	chunks := make([]string, len(results))
	metadata := make([]map[string]string, len(results))
	for i, r := range results {
		chunks[i] = r.Content
		metadata[i] = r.Metadata
	}

	return chunks, metadata, nil
}
