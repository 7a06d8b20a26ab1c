package vectorstore

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/helioworks/ragd/internal/config"
)

// NewStore creates a Store based on the configured provider:
//   - "chromem" (default): embedded store persisted under Store.Path
//   - "qdrant": external Qdrant server over gRPC
func NewStore(cfg *config.Config, embedder Embedder, logger *zap.Logger) (Store, error) {
	switch cfg.Store.Provider {
	case "chromem", "":
		return NewChromemStore(ChromemConfig{
			Path:       cfg.Store.Path,
			Collection: cfg.Store.Collection,
		}, embedder, logger)

	case "qdrant":
		return NewQdrantStore(QdrantConfig{
			Host:       cfg.Qdrant.Host,
			Port:       cfg.Qdrant.Port,
			APIKey:     cfg.Qdrant.APIKey.Value(),
			UseTLS:     cfg.Qdrant.UseTLS,
			Collection: cfg.Store.Collection,
			VectorSize: cfg.Qdrant.VectorSize,
		}, embedder, logger)

	default:
		return nil, fmt.Errorf("%w: unsupported provider %q (supported: chromem, qdrant)", ErrInvalidConfig, cfg.Store.Provider)
	}
}
