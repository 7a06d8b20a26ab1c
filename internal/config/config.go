// Package config provides configuration loading for ragd.
package config

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig indicates missing or malformed configuration.
// Configuration failures are fatal at process start, never per-request.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the top-level ragd configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Store      StoreConfig      `koanf:"store"`
	Qdrant     QdrantConfig     `koanf:"qdrant"`
	Drive      DriveConfig      `koanf:"drive"`
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
	LLM        LLMConfig        `koanf:"llm"`
	Log        LogConfig        `koanf:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// StoreConfig holds vector index configuration.
type StoreConfig struct {
	// Provider selects the store implementation: "chromem" (embedded,
	// default) or "qdrant" (external server).
	Provider string `koanf:"provider"`

	// Path is the directory for chromem's persistent storage.
	Path string `koanf:"path"`

	// Collection is the namespace within the index.
	Collection string `koanf:"collection"`

	// ChunkSize and ChunkOverlap tune the split policy, in characters.
	ChunkSize    int `koanf:"chunk_size"`
	ChunkOverlap int `koanf:"chunk_overlap"`

	// TopK is how many chunks retrieval returns per query.
	TopK int `koanf:"top_k"`
}

// QdrantConfig holds connection settings for the optional qdrant provider.
type QdrantConfig struct {
	Host string `koanf:"host"`
	// Port is the gRPC port (6334), not the HTTP REST port (6333).
	Port       int    `koanf:"port"`
	APIKey     Secret `koanf:"api_key"`
	UseTLS     bool   `koanf:"use_tls"`
	VectorSize uint64 `koanf:"vector_size"`
}

// DriveConfig holds Google Drive source settings.
type DriveConfig struct {
	// FolderID identifies the Drive folder holding source PDFs.
	// Required for ingestion to find any files.
	FolderID string `koanf:"folder_id"`

	// CredentialsJSONB64 is the base64-encoded service account key JSON.
	CredentialsJSONB64 Secret `koanf:"credentials_json_b64"`

	// DownloadDir is the local cache directory for downloaded PDFs.
	// Files are cached by name with no eviction.
	DownloadDir string `koanf:"download_dir"`
}

// EmbeddingsConfig holds settings for the embedding backend.
// Any OpenAI-compatible endpoint works (OpenAI API, TEI).
type EmbeddingsConfig struct {
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
	APIKey  Secret `koanf:"api_key"`
}

// LLMConfig holds settings for the answer-generation backend.
// Any OpenAI-compatible chat completion endpoint works (OpenRouter, OpenAI).
type LLMConfig struct {
	BaseURL     string  `koanf:"base_url"`
	Model       string  `koanf:"model"`
	APIKey      Secret  `koanf:"api_key"`
	Temperature float64 `koanf:"temperature"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `koanf:"level"`
	// Format is "json" or "console".
	Format string `koanf:"format"`
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Store.Provider == "" {
		cfg.Store.Provider = "chromem"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "./chroma_db"
	}
	if cfg.Store.Collection == "" {
		cfg.Store.Collection = "solar_docs"
	}
	if cfg.Store.ChunkSize == 0 {
		cfg.Store.ChunkSize = 1000
	}
	if cfg.Store.ChunkOverlap == 0 {
		cfg.Store.ChunkOverlap = 200
	}
	if cfg.Store.TopK == 0 {
		cfg.Store.TopK = 3
	}

	if cfg.Qdrant.Host == "" {
		cfg.Qdrant.Host = "localhost"
	}
	if cfg.Qdrant.Port == 0 {
		cfg.Qdrant.Port = 6334
	}
	if cfg.Qdrant.VectorSize == 0 {
		cfg.Qdrant.VectorSize = 1536 // text-embedding-3-small dimensions
	}

	if cfg.Drive.DownloadDir == "" {
		cfg.Drive.DownloadDir = "./downloaded_pdfs"
	}

	if cfg.Embeddings.BaseURL == "" {
		cfg.Embeddings.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = "text-embedding-3-small"
	}

	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "mistralai/mistral-7b-instruct"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	switch c.Store.Provider {
	case "chromem", "qdrant":
	default:
		return fmt.Errorf("%w: unsupported store provider %q (supported: chromem, qdrant)", ErrInvalidConfig, c.Store.Provider)
	}
	if c.Store.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive", ErrInvalidConfig)
	}
	if c.Store.ChunkOverlap < 0 || c.Store.ChunkOverlap >= c.Store.ChunkSize {
		return fmt.Errorf("%w: chunk overlap must be in [0, chunk size)", ErrInvalidConfig)
	}
	if c.Store.TopK < 1 {
		return fmt.Errorf("%w: top_k must be at least 1", ErrInvalidConfig)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: unsupported log format %q", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}

// DriveCredentials decodes the base64 service account JSON and returns
// the raw key bytes. Decoding and parse failures are startup errors.
func (c *Config) DriveCredentials() ([]byte, error) {
	if !c.Drive.CredentialsJSONB64.IsSet() {
		return nil, fmt.Errorf("%w: drive credentials not set (DRIVE_CREDENTIALS_JSON_B64)", ErrInvalidConfig)
	}

	raw, err := base64.StdEncoding.DecodeString(c.Drive.CredentialsJSONB64.Value())
	if err != nil {
		return nil, fmt.Errorf("%w: decoding drive credentials: %v", ErrInvalidConfig, err)
	}

	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: drive credentials are not valid JSON", ErrInvalidConfig)
	}

	return raw, nil
}
