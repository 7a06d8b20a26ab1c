package vectorstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
)

// QdrantConfig holds configuration for the Qdrant gRPC client.
type QdrantConfig struct {
	// Host is the Qdrant server hostname or IP address.
	Host string

	// Port is the Qdrant gRPC port (6334), not the HTTP REST port (6333).
	Port int

	// APIKey is the optional Qdrant API key.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool

	// Collection is the collection name for all operations.
	Collection string

	// VectorSize is the embedding dimensionality. Must match the
	// embedder's output dimension.
	VectorSize uint64
}

// QdrantStore implements Store against an external Qdrant server. It is
// the provider to reach for once a corpus outgrows the embedded store.
type QdrantStore struct {
	client   *qdrant.Client
	embedder Embedder
	config   QdrantConfig
	logger   *zap.Logger

	ensureOnce sync.Once
	ensureErr  error
}

// NewQdrantStore creates a QdrantStore. The collection is created lazily
// on first write so that construction does not require a reachable server.
func NewQdrantStore(cfg QdrantConfig, embedder Embedder, logger *zap.Logger) (*QdrantStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("%w: collection name is required", ErrInvalidConfig)
	}
	if cfg.VectorSize == 0 {
		return nil, fmt.Errorf("%w: vector size is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: creating qdrant client: %v", ErrConnectionFailed, err)
	}

	return &QdrantStore{
		client:   client,
		embedder: embedder,
		config:   cfg,
		logger:   logger,
	}, nil
}

// ensureCollection creates the collection if it does not exist yet.
func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	s.ensureOnce.Do(func() {
		exists, err := s.client.CollectionExists(ctx, s.config.Collection)
		if err != nil {
			s.ensureErr = fmt.Errorf("%w: checking collection: %v", ErrConnectionFailed, err)
			return
		}
		if exists {
			return
		}

		err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.config.Collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     s.config.VectorSize,
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			s.ensureErr = fmt.Errorf("%w: creating collection: %v", ErrConnectionFailed, err)
			return
		}

		s.logger.Info("created qdrant collection",
			zap.String("collection", s.config.Collection),
			zap.Uint64("vector_size", s.config.VectorSize),
		)
	})
	return s.ensureErr
}

// AddDocuments embeds the chunks and upserts them as points.
func (s *QdrantStore) AddDocuments(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return ErrEmptyDocuments
	}

	if err := s.ensureCollection(ctx); err != nil {
		return err
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}

	embeddings, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	points := make([]*qdrant.PointStruct, len(docs))
	for i, doc := range docs {
		payload := map[string]any{"content": doc.Content}
		for k, v := range doc.Metadata {
			payload[k] = v
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(doc.ID),
			Vectors: qdrant.NewVectors(embeddings[i]...),
			Payload: qdrant.NewValueMap(payload),
		}
	}

	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.config.Collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}

	s.logger.Debug("added chunks to qdrant",
		zap.String("collection", s.config.Collection),
		zap.Int("count", len(docs)),
	)

	return nil
}

// Search embeds the query and performs nearest-neighbor search.
func (s *QdrantStore) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	if k < 1 {
		return nil, fmt.Errorf("k must be at least 1, got %d", k)
	}
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}

	exists, err := s.client.CollectionExists(ctx, s.config.Collection)
	if err != nil {
		return nil, fmt.Errorf("%w: checking collection: %v", ErrConnectionFailed, err)
	}
	if !exists {
		return []SearchResult{}, nil
	}

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.config.Collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying collection %s: %w", s.config.Collection, err)
	}

	results := make([]SearchResult, len(points))
	for i, p := range points {
		metadata := make(map[string]string)
		content := ""
		for key, value := range p.GetPayload() {
			if key == "content" {
				content = value.GetStringValue()
				continue
			}
			metadata[key] = value.GetStringValue()
		}
		results[i] = SearchResult{
			ID:       p.GetId().GetUuid(),
			Content:  content,
			Score:    p.GetScore(),
			Metadata: metadata,
		}
	}

	return results, nil
}

// DeleteByDocumentName removes all points whose payload names the document.
func (s *QdrantStore) DeleteByDocumentName(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("document name cannot be empty")
	}

	exists, err := s.client.CollectionExists(ctx, s.config.Collection)
	if err != nil {
		return fmt.Errorf("%w: checking collection: %v", ErrConnectionFailed, err)
	}
	if !exists {
		return nil
	}

	_, err = s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.config.Collection,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch(MetaDocumentName, name),
			},
		}),
		Wait: qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("deleting chunks for %s: %w", name, err)
	}

	return nil
}

// Count returns the exact number of points in the collection.
func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	exists, err := s.client.CollectionExists(ctx, s.config.Collection)
	if err != nil {
		return 0, fmt.Errorf("%w: checking collection: %v", ErrConnectionFailed, err)
	}
	if !exists {
		return 0, nil
	}

	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.config.Collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("counting points: %w", err)
	}
	return int(count), nil
}

// Close closes the gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

var _ Store = (*QdrantStore)(nil)
